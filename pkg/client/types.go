package client

// Conversation types
const (
	ConversationTypePrivate int32 = 0
	ConversationTypeGroup   int32 = 1
)

// Request decisions
const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// UserInfo is a user profile
type UserInfo struct {
	Id        string `json:"id"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// RegisterRequest creates the caller's profile
type RegisterRequest struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// UpdateUserRequest changes the fields that are set
type UpdateUserRequest struct {
	Nickname *string `json:"nickname,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// FriendInfo is one entry of a friend list
type FriendInfo struct {
	UserId   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email,omitempty"`
	Tag      string `json:"tag"`
}

// RequestInfo is a friend or group request as seen by the caller
type RequestInfo struct {
	Id         string `json:"id"`
	Kind       int32  `json:"kind"`
	SenderId   string `json:"sender_id"`
	ReceiverId string `json:"receiver_id,omitempty"`
	GroupId    string `json:"group_id,omitempty"`
	InviterId  string `json:"inviter_id,omitempty"`
	Status     string `json:"status"`
	Role       string `json:"role,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// ConversationInfo is a conversation with the caller's unread count
type ConversationInfo struct {
	Id            string   `json:"id"`
	Type          int32    `json:"type"`
	Members       []string `json:"members"`
	GroupId       string   `json:"group_id,omitempty"`
	UnreadCount   int64    `json:"unread_count"`
	LastMessageId int64    `json:"last_message_id"`
	UpdatedAt     int64    `json:"updated_at"`
}

// ReadState is the caller's cursor in a conversation
type ReadState struct {
	ConversationId string `json:"conversation_id"`
	Fro            int64  `json:"fro"`
	To             int64  `json:"to"`
	UnreadCount    int64  `json:"unread_count"`
}

// MessageInfo is a message as returned by the API
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

// SendMessageRequest appends a message; ReplyTo is optional
type SendMessageRequest struct {
	ConversationId string `json:"conversation_id"`
	Content        string `json:"content"`
	ReplyTo        *int64 `json:"reply_to,omitempty"`
}

// FetchResult is a page of messages
type FetchResult struct {
	Messages    []*MessageInfo `json:"messages"`
	UnreadCount int64          `json:"unread_count"`
}

// GroupInfo is a group with its roles
type GroupInfo struct {
	Id             string   `json:"id"`
	Name           string   `json:"name"`
	ConversationId string   `json:"conversation_id"`
	MasterId       string   `json:"master_id"`
	Managers       []string `json:"managers"`
	Members        []string `json:"members"`
	CreatedAt      int64    `json:"created_at"`
}

// NoticeInfo is a group notice
type NoticeInfo struct {
	MessageId int64  `json:"message_id"`
	SenderId  string `json:"sender_id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}
