package client

import (
	"context"
	"net/url"
)

func groupPath(groupId, suffix string) string {
	return "/group/" + url.PathEscape(groupId) + suffix
}

// CreateGroup creates a group mastered by the caller
func (c *Client) CreateGroup(ctx context.Context, name string, members ...string) (*GroupInfo, error) {
	var info GroupInfo
	body := map[string]any{"name": name, "members": members}
	if err := c.post(ctx, "/group/create", body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListGroups lists the caller's groups
func (c *Client) ListGroups(ctx context.Context) ([]*GroupInfo, error) {
	var infos []*GroupInfo
	if err := c.get(ctx, "/group/list", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// GetGroup returns a group the caller belongs to
func (c *Client) GetGroup(ctx context.Context, groupId string) (*GroupInfo, error) {
	var info GroupInfo
	if err := c.get(ctx, groupPath(groupId, ""), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListGroupRequests lists join requests and invites the caller can see
func (c *Client) ListGroupRequests(ctx context.Context) ([]*RequestInfo, error) {
	var infos []*RequestInfo
	if err := c.get(ctx, "/group/requests", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// JoinGroup files a join request
func (c *Client) JoinGroup(ctx context.Context, groupId string) (*RequestInfo, error) {
	var info RequestInfo
	if err := c.post(ctx, groupPath(groupId, "/join"), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Invite invites a friend into the group
func (c *Client) Invite(ctx context.Context, groupId, userId string) (*RequestInfo, error) {
	var info RequestInfo
	if err := c.post(ctx, groupPath(groupId, "/invite"), map[string]string{"user_id": userId}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ProcessGroupRequestFrom resolves the latest join or invite request senderId holds for the group
func (c *Client) ProcessGroupRequestFrom(ctx context.Context, groupId, senderId, decision string) (*RequestInfo, error) {
	var info RequestInfo
	body := map[string]string{"sender_id": senderId, "decision": decision}
	if err := c.post(ctx, groupPath(groupId, "/request/process"), body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// QuitGroup leaves the group
func (c *Client) QuitGroup(ctx context.Context, groupId string) error {
	return c.post(ctx, groupPath(groupId, "/quit"), nil, nil)
}

// SetManagers promotes add and demotes del in one step
func (c *Client) SetManagers(ctx context.Context, groupId string, add, del []string) error {
	body := map[string]any{"add": add, "delete": del}
	return c.put(ctx, groupPath(groupId, "/managers"), body, nil)
}

// TransferMaster hands the group to another member
func (c *Client) TransferMaster(ctx context.Context, groupId, newMaster string) error {
	return c.post(ctx, groupPath(groupId, "/transfer"), map[string]string{"new_master": newMaster}, nil)
}

// RemoveMembers removes members from the group
func (c *Client) RemoveMembers(ctx context.Context, groupId string, members ...string) error {
	return c.post(ctx, groupPath(groupId, "/remove"), map[string]any{"members": members}, nil)
}

// PostNotice posts a group announcement
func (c *Client) PostNotice(ctx context.Context, groupId, content string) (*NoticeInfo, error) {
	var info NoticeInfo
	if err := c.post(ctx, groupPath(groupId, "/notice"), map[string]string{"content": content}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListNotices lists the group's notices
func (c *Client) ListNotices(ctx context.Context, groupId string) ([]*NoticeInfo, error) {
	var notices []*NoticeInfo
	if err := c.get(ctx, groupPath(groupId, "/notices"), nil, &notices); err != nil {
		return nil, err
	}
	return notices, nil
}
