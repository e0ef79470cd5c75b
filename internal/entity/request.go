package entity

import "github.com/zhusq20/CapybaraChat/pkg/constant"

// Request is an entry of the request ledger.
// Friend requests carry ReceiverId; group requests carry GroupId and, for invites, InviterId.
type Request struct {
	Id         string  `json:"id" gorm:"column:id;primaryKey;size:32"`
	Kind       int32   `json:"kind" gorm:"column:kind;index:idx_request_tuple,priority:1"`
	SenderId   string  `json:"sender_id" gorm:"column:sender_id;size:32;index:idx_request_tuple,priority:2"`
	ReceiverId *string `json:"receiver_id,omitempty" gorm:"column:receiver_id;size:32;index:idx_request_receiver"`
	GroupId    *string `json:"group_id,omitempty" gorm:"column:group_id;size:32;index:idx_request_group"`
	InviterId  *string `json:"inviter_id,omitempty" gorm:"column:inviter_id;size:32"`
	Status     string  `json:"status" gorm:"column:status;size:16"`
	CreatedAt  int64   `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  int64   `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the table name for Request
func (Request) TableName() string {
	return "requests"
}

// IsPending checks if the request is still awaiting a decision
func (r *Request) IsPending() bool {
	return r.Status == constant.RequestStatusPending
}

// IsGroupRequest checks if the request targets a group
func (r *Request) IsGroupRequest() bool {
	return r.Kind == constant.RequestKindGroupJoin || r.Kind == constant.RequestKindGroupInvite
}

// RequestInfo is a request tagged with the caller's role in it
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

// ToRequestInfo converts Request to RequestInfo
func (r *Request) ToRequestInfo(role string) *RequestInfo {
	info := &RequestInfo{
		Id:        r.Id,
		Kind:      r.Kind,
		SenderId:  r.SenderId,
		Status:    r.Status,
		Role:      role,
		Timestamp: r.UpdatedAt,
	}
	if r.ReceiverId != nil {
		info.ReceiverId = *r.ReceiverId
	}
	if r.GroupId != nil {
		info.GroupId = *r.GroupId
	}
	if r.InviterId != nil {
		info.InviterId = *r.InviterId
	}
	return info
}
