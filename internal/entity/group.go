package entity

// Group is a named group chat layered on a group conversation
type Group struct {
	Id             string `json:"id" gorm:"column:id;primaryKey;size:32"`
	Name           string `json:"name" gorm:"column:name;size:40"`
	ConversationId string `json:"conversation_id" gorm:"column:conversation_id;size:80;uniqueIndex:uk_group_conv"`
	MasterId       string `json:"master_id" gorm:"column:master_id;size:32;index:idx_group_master"`
	CreatedAt      int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt      int64  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for Group
func (Group) TableName() string {
	return "chat_groups"
}

// IsMaster checks if userId is the group master
func (g *Group) IsMaster(userId string) bool {
	return g.MasterId == userId
}

// GroupManager flags a member as a manager of the group
type GroupManager struct {
	Id      int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	GroupId string `json:"group_id" gorm:"column:group_id;size:32;uniqueIndex:uk_manager_group_user,priority:1"`
	UserId  string `json:"user_id" gorm:"column:user_id;size:32;uniqueIndex:uk_manager_group_user,priority:2;index:idx_manager_user"`
}

// TableName returns the table name for GroupManager
func (GroupManager) TableName() string {
	return "group_managers"
}

// GroupNotice links a notice message into a group's notice list
type GroupNotice struct {
	Id        int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	GroupId   string `json:"group_id" gorm:"column:group_id;size:32;index:idx_notice_group"`
	MessageId int64  `json:"message_id" gorm:"column:message_id;uniqueIndex:uk_notice_message"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
}

// TableName returns the table name for GroupNotice
func (GroupNotice) TableName() string {
	return "group_notices"
}

// GroupInfo represents a group with its roles and members
type GroupInfo struct {
	Id             string   `json:"id"`
	Name           string   `json:"name"`
	ConversationId string   `json:"conversation_id"`
	MasterId       string   `json:"master_id"`
	Managers       []string `json:"managers"`
	Members        []string `json:"members"`
	CreatedAt      int64    `json:"created_at"`
}

// NoticeInfo is a notice as listed for a group
type NoticeInfo struct {
	MessageId int64  `json:"message_id"`
	SenderId  string `json:"sender_id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}
