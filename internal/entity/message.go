package entity

// Message is an entry of a conversation's log; Id order is the canonical order.
type Message struct {
	Id             int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	ConversationId string `json:"conversation_id" gorm:"column:conversation_id;size:80;index:idx_message_conv"`
	SenderId       string `json:"sender_id" gorm:"column:sender_id;size:32;index:idx_message_sender"`
	Content        string `json:"content" gorm:"column:content;type:text"`
	ReplyTo        *int64 `json:"reply_to,omitempty" gorm:"column:reply_to"`
	ReplyCount     int64  `json:"reply_count" gorm:"column:reply_count"`
	IsNotice       bool   `json:"is_notice" gorm:"column:is_notice"`
	CreatedAt      int64  `json:"created_at" gorm:"column:created_at"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// DeletedMessage hides a message from one user's view
type DeletedMessage struct {
	Id        int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	UserId    string `json:"user_id" gorm:"column:user_id;size:32;uniqueIndex:uk_deleted_user_msg,priority:1"`
	MessageId int64  `json:"message_id" gorm:"column:message_id;uniqueIndex:uk_deleted_user_msg,priority:2"`
	CreatedAt int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
}

// TableName returns the table name for DeletedMessage
func (DeletedMessage) TableName() string {
	return "deleted_messages"
}

// MessageInfo represents message info for API response
type MessageInfo struct {
	Id             int64    `json:"id"`
	ConversationId string   `json:"conversation_id"`
	SenderId       string   `json:"sender_id"`
	Content        string   `json:"content"`
	ReplyTo        *int64   `json:"reply_to,omitempty"`
	ReplyCount     int64    `json:"reply_count"`
	IsNotice       bool     `json:"is_notice"`
	CreatedAt      int64    `json:"created_at"`
	ReadBy         []string `json:"read_by"`
}

// ToMessageInfo converts Message to MessageInfo
func (m *Message) ToMessageInfo() *MessageInfo {
	return &MessageInfo{
		Id:             m.Id,
		ConversationId: m.ConversationId,
		SenderId:       m.SenderId,
		Content:        m.Content,
		ReplyTo:        m.ReplyTo,
		ReplyCount:     m.ReplyCount,
		IsNotice:       m.IsNotice,
		CreatedAt:      m.CreatedAt,
		ReadBy:         []string{},
	}
}
