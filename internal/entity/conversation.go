package entity

// Conversation represents a private or group conversation
type Conversation struct {
	Id        string `json:"id" gorm:"column:id;primaryKey;size:80"`
	Type      int32  `json:"type" gorm:"column:type"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt int64  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationMember is one entry of a conversation's membership set
type ConversationMember struct {
	Id             int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	ConversationId string `json:"conversation_id" gorm:"column:conversation_id;size:80;uniqueIndex:uk_member_conv_user,priority:1"`
	UserId         string `json:"user_id" gorm:"column:user_id;size:32;uniqueIndex:uk_member_conv_user,priority:2;index:idx_member_user"`
	JoinedAt       int64  `json:"joined_at" gorm:"column:joined_at"`
}

// TableName returns the table name for ConversationMember
func (ConversationMember) TableName() string {
	return "conversation_members"
}

// ConversationInfo represents conversation info for API response
type ConversationInfo struct {
	Id            string   `json:"id"`
	Type          int32    `json:"type"`
	Members       []string `json:"members"`
	GroupId       string   `json:"group_id,omitempty"`
	UnreadCount   int64    `json:"unread_count"`
	LastMessageId int64    `json:"last_message_id"`
	UpdatedAt     int64    `json:"updated_at"`
}
