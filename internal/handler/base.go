package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/zhusq20/CapybaraChat/internal/middleware"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
	"github.com/zhusq20/CapybaraChat/pkg/response"
)

// currentUser returns the authenticated caller, writing 401 when absent
func currentUser(ctx context.Context, c *app.RequestContext) (string, bool) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return "", false
	}
	return userId, true
}

// bind decodes the request body and query into req, writing 400 on failure
func bind(ctx context.Context, c *app.RequestContext, req any) bool {
	if err := c.Bind(req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam.Wrap(err))
		return false
	}
	return true
}
