package client

import (
	"context"
	"net/url"
	"strings"
)

// Register creates the profile of the token's identity
func (c *Client) Register(ctx context.Context, req *RegisterRequest) (*UserInfo, error) {
	var info UserInfo
	if err := c.post(ctx, "/user/register", req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Me returns the caller's profile
func (c *Client) Me(ctx context.Context) (*UserInfo, error) {
	var info UserInfo
	if err := c.get(ctx, "/user/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetUser returns another user's profile
func (c *Client) GetUser(ctx context.Context, userId string) (*UserInfo, error) {
	var info UserInfo
	if err := c.get(ctx, "/user/info/"+url.PathEscape(userId), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetUsers returns the profiles of the given users, skipping unknown ids
func (c *Client) GetUsers(ctx context.Context, userIds ...string) ([]*UserInfo, error) {
	var infos []*UserInfo
	q := url.Values{"user_ids": {strings.Join(userIds, ",")}}
	if err := c.get(ctx, "/user/batch", q, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// SearchUsers searches users by id or nickname
func (c *Client) SearchUsers(ctx context.Context, keyword string) ([]*UserInfo, error) {
	var infos []*UserInfo
	if err := c.get(ctx, "/user/search", url.Values{"keyword": {keyword}}, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// Online reports which of the given users hold a live connection
func (c *Client) Online(ctx context.Context, userIds ...string) (map[string]bool, error) {
	status := map[string]bool{}
	q := url.Values{"user_ids": {strings.Join(userIds, ",")}}
	if err := c.get(ctx, "/user/online", q, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// UpdateProfile changes the caller's profile
func (c *Client) UpdateProfile(ctx context.Context, req *UpdateUserRequest) (*UserInfo, error) {
	var info UserInfo
	if err := c.put(ctx, "/user/update", req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteAccount removes the caller and every trace of them
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.delete(ctx, "/user")
}

// Logout revokes the current token
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/user/logout", nil, nil)
}
