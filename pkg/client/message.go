package client

import (
	"context"
	"net/url"
	"strconv"
)

// Send appends a message to a conversation
func (c *Client) Send(ctx context.Context, req *SendMessageRequest) (*MessageInfo, error) {
	var info MessageInfo
	if err := c.post(ctx, "/msg/send", req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Fetch pages messages after afterId; a zero limit uses the server default
func (c *Client) Fetch(ctx context.Context, convId string, afterId int64, limit int) (*FetchResult, error) {
	q := url.Values{"conversation_id": {convId}}
	if afterId > 0 {
		q.Set("after_id", strconv.FormatInt(afterId, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var result FetchResult
	if err := c.get(ctx, "/msg/fetch", q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteMessage hides a message from the caller only
func (c *Client) DeleteMessage(ctx context.Context, msgId int64) error {
	return c.delete(ctx, "/msg/"+strconv.FormatInt(msgId, 10))
}

// Readers lists members whose cursor covers the message
func (c *Client) Readers(ctx context.Context, msgId int64) ([]string, error) {
	var readers []string
	if err := c.get(ctx, "/msg/"+strconv.FormatInt(msgId, 10)+"/readers", nil, &readers); err != nil {
		return nil, err
	}
	return readers, nil
}
