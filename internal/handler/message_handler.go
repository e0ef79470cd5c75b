package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/zhusq20/CapybaraChat/internal/service"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
	"github.com/zhusq20/CapybaraChat/pkg/response"
)

// MessageHandler handles message-related requests
type MessageHandler struct {
	msgService    *service.MessageService
	cursorService *service.CursorService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(msgService *service.MessageService, cursorService *service.CursorService) *MessageHandler {
	return &MessageHandler{msgService: msgService, cursorService: cursorService}
}

// SendMessage handles send message request
func (h *MessageHandler) SendMessage(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.SendMessageRequest
	if !bind(ctx, c, &req) {
		return
	}

	msg, err := h.msgService.Send(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, msg)
}

// FetchMessages handles fetch messages request
func (h *MessageHandler) FetchMessages(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.FetchMessagesRequest
	if !bind(ctx, c, &req) {
		return
	}

	resp, err := h.msgService.FetchAfter(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, resp)
}

// DeleteMessage hides a message from the caller
func (h *MessageHandler) DeleteMessage(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	messageId, ok := messageIdParam(ctx, c)
	if !ok {
		return
	}

	if err := h.msgService.SoftDelete(ctx, userId, messageId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// GetReaders lists who has read a message
func (h *MessageHandler) GetReaders(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	messageId, ok := messageIdParam(ctx, c)
	if !ok {
		return
	}

	readers, err := h.cursorService.ReadersOf(ctx, userId, messageId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, readers)
}

func messageIdParam(ctx context.Context, c *app.RequestContext) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil || id <= 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam.WithMsg("invalid message id"))
		return 0, false
	}
	return id, true
}
