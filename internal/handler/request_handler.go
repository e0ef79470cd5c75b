package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/zhusq20/CapybaraChat/internal/service"
	"github.com/zhusq20/CapybaraChat/pkg/response"
)

// RequestHandler resolves ledger entries by id
type RequestHandler struct {
	requestService *service.RequestService
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(requestService *service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// GetRequest returns one request
func (h *RequestHandler) GetRequest(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	info, err := h.requestService.GetRequest(ctx, userId, c.Param("request_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// ProcessRequest accepts or rejects a request
func (h *RequestHandler) ProcessRequest(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.ProcessRequestRequest
	if !bind(ctx, c, &req) {
		return
	}
	if id := c.Param("request_id"); id != "" {
		req.RequestId = id
	}

	info, err := h.requestService.ProcessRequest(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}
