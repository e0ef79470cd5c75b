package entity

// ReadCursor is a member's read watermark in a conversation.
// Messages with Id <= Fro predate the membership; messages in (Fro, To] are read.
type ReadCursor struct {
	Id             int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	ConversationId string `json:"conversation_id" gorm:"column:conversation_id;size:80;uniqueIndex:uk_cursor_conv_user,priority:1"`
	UserId         string `json:"user_id" gorm:"column:user_id;size:32;uniqueIndex:uk_cursor_conv_user,priority:2;index:idx_cursor_user"`
	Fro            int64  `json:"fro" gorm:"column:fro_id"`
	To             int64  `json:"to" gorm:"column:to_id"`
}

// TableName returns the table name for ReadCursor
func (ReadCursor) TableName() string {
	return "read_cursors"
}

// NewReadCursor seeds a cursor at the conversation's current last message id,
// so a new member starts with zero backlog.
func NewReadCursor(conversationId, userId string, lastMessageId int64) *ReadCursor {
	return &ReadCursor{
		ConversationId: conversationId,
		UserId:         userId,
		Fro:            lastMessageId,
		To:             lastMessageId,
	}
}

// HasRead reports whether the cursor covers messageId
func (c *ReadCursor) HasRead(messageId int64) bool {
	return c.Fro < messageId && messageId <= c.To
}

// Advance moves To forward; it never moves backwards.
func (c *ReadCursor) Advance(to int64) bool {
	if to <= c.To {
		return false
	}
	c.To = to
	return true
}

// FetchFloor clamps a client supplied lower bound to the visible range
func (c *ReadCursor) FetchFloor(afterId int64) int64 {
	if afterId < c.Fro {
		return c.Fro
	}
	return afterId
}
