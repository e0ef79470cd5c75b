package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/zhusq20/CapybaraChat/internal/service"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
	"github.com/zhusq20/CapybaraChat/pkg/response"
)

// ConversationHandler handles conversation-related requests
type ConversationHandler struct {
	convService   *service.ConversationService
	cursorService *service.CursorService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(convService *service.ConversationService, cursorService *service.CursorService) *ConversationHandler {
	return &ConversationHandler{convService: convService, cursorService: cursorService}
}

// CreateConversation creates a private or ad-hoc group conversation
func (h *ConversationHandler) CreateConversation(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.CreateConversationRequest
	if !bind(ctx, c, &req) {
		return
	}

	info, err := h.convService.CreateConversation(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// GetPrivate returns the private conversation with ?peer_id=, creating it on first use
func (h *ConversationHandler) GetPrivate(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	info, err := h.convService.GetOrCreatePrivate(ctx, userId, c.Query("peer_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// GetConversationList handles get conversation list request
func (h *ConversationHandler) GetConversationList(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	convs, err := h.convService.ListForUser(ctx, userId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, convs)
}

// GetConversation handles get conversation request
func (h *ConversationHandler) GetConversation(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	conversationId := c.Param("conversation_id")
	if conversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	conv, err := h.convService.GetConversation(ctx, userId, conversationId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, conv)
}

// MarkRead handles mark read request
func (h *ConversationHandler) MarkRead(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	state, err := h.cursorService.MarkRead(ctx, userId, c.Param("conversation_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, state)
}

// GetUnreadCount handles get unread count request
func (h *ConversationHandler) GetUnreadCount(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	state, err := h.cursorService.UnreadCount(ctx, userId, c.Param("conversation_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, state)
}
