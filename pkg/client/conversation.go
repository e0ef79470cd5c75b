package client

import (
	"context"
	"net/url"
)

// CreateConversation creates a conversation with the given members
func (c *Client) CreateConversation(ctx context.Context, convType int32, members ...string) (*ConversationInfo, error) {
	var info ConversationInfo
	body := map[string]any{"type": convType, "members": members}
	if err := c.post(ctx, "/conversation/create", body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// PrivateWith returns the private conversation with a friend, creating it on first use
func (c *Client) PrivateWith(ctx context.Context, peerId string) (*ConversationInfo, error) {
	var info ConversationInfo
	if err := c.get(ctx, "/conversation/private", url.Values{"peer_id": {peerId}}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListConversations lists the caller's conversations
func (c *Client) ListConversations(ctx context.Context) ([]*ConversationInfo, error) {
	var infos []*ConversationInfo
	if err := c.get(ctx, "/conversation/list", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// GetConversation returns one conversation
func (c *Client) GetConversation(ctx context.Context, convId string) (*ConversationInfo, error) {
	var info ConversationInfo
	if err := c.get(ctx, "/conversation/"+url.PathEscape(convId), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// MarkRead moves the caller's cursor to the newest message
func (c *Client) MarkRead(ctx context.Context, convId string) (*ReadState, error) {
	var state ReadState
	if err := c.post(ctx, "/conversation/"+url.PathEscape(convId)+"/mark_read", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// UnreadCount returns the caller's read state
func (c *Client) UnreadCount(ctx context.Context, convId string) (*ReadState, error) {
	var state ReadState
	if err := c.get(ctx, "/conversation/"+url.PathEscape(convId)+"/unread_count", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}
