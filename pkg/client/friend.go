package client

import (
	"context"
	"net/url"
)

// ListFriends lists the caller's friends, optionally filtered by tag
func (c *Client) ListFriends(ctx context.Context, tag string) ([]*FriendInfo, error) {
	var q url.Values
	if tag != "" {
		q = url.Values{"tag": {tag}}
	}
	var friends []*FriendInfo
	if err := c.get(ctx, "/friend/list", q, &friends); err != nil {
		return nil, err
	}
	return friends, nil
}

// RemoveFriend deletes the friendship in both directions
func (c *Client) RemoveFriend(ctx context.Context, friendId string) error {
	return c.post(ctx, "/friend/remove", map[string]string{"friend_id": friendId}, nil)
}

// SetTag tags friends; an empty tag clears it
func (c *Client) SetTag(ctx context.Context, tag string, friendIds ...string) error {
	body := map[string]any{"friend_ids": friendIds, "tag": tag}
	return c.put(ctx, "/friend/tag", body, nil)
}

// SendFriendRequest asks receiverId to become a friend
func (c *Client) SendFriendRequest(ctx context.Context, receiverId string) (*RequestInfo, error) {
	var info RequestInfo
	if err := c.post(ctx, "/friend/request", map[string]string{"receiver_id": receiverId}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListFriendRequests lists friend requests sent or received by the caller
func (c *Client) ListFriendRequests(ctx context.Context) ([]*RequestInfo, error) {
	var infos []*RequestInfo
	if err := c.get(ctx, "/friend/requests", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// ProcessFriendRequestFrom resolves the latest request of senderId
func (c *Client) ProcessFriendRequestFrom(ctx context.Context, senderId, decision string) (*RequestInfo, error) {
	var info RequestInfo
	body := map[string]string{"sender_id": senderId, "decision": decision}
	if err := c.post(ctx, "/friend/request/process", body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
