package client

import (
	"context"
	"net/url"
)

// GetRequest returns a request visible to the caller
func (c *Client) GetRequest(ctx context.Context, requestId string) (*RequestInfo, error) {
	var info RequestInfo
	if err := c.get(ctx, "/request/"+url.PathEscape(requestId), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ProcessRequest accepts or rejects a pending request by id
func (c *Client) ProcessRequest(ctx context.Context, requestId, decision string) (*RequestInfo, error) {
	var info RequestInfo
	path := "/request/" + url.PathEscape(requestId) + "/process"
	if err := c.post(ctx, path, map[string]string{"decision": decision}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
