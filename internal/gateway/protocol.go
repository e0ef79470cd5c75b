package gateway

import (
	"github.com/goccy/go-json"
)

// WSRequest is a frame sent by the client
type WSRequest struct {
	ReqIdentifier int32           `json:"req_identifier"`
	MsgIncr       string          `json:"msg_incr"` // echoed back for correlation
	Data          json.RawMessage `json:"data,omitempty"`
}

// WSResponse is a frame sent by the server, either a reply or a push
type WSResponse struct {
	ReqIdentifier int32           `json:"req_identifier"`
	MsgIncr       string          `json:"msg_incr,omitempty"`
	ErrCode       int             `json:"err_code"`
	ErrMsg        string          `json:"err_msg,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// GetOnlineReq is the payload of WSGetOnline
type GetOnlineReq struct {
	UserIds []string `json:"user_ids"`
}

// GetOnlineResp maps each requested user to its presence
type GetOnlineResp struct {
	Online map[string]bool `json:"online"`
}
