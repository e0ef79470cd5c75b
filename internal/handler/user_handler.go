package handler

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/mbeoliero/kit/log"
	"github.com/zhusq20/CapybaraChat/internal/middleware"
	"github.com/zhusq20/CapybaraChat/internal/service"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
	"github.com/zhusq20/CapybaraChat/pkg/jwt"
	"github.com/zhusq20/CapybaraChat/pkg/response"
)

// Presence answers online queries and drops live connections
type Presence interface {
	IsOnline(ctx context.Context, userId string) bool
	Kick(ctx context.Context, userId string)
}

const maxOnlineQuery = 100

// UserHandler handles user-related requests
type UserHandler struct {
	userService *service.UserService
	tokens      *jwt.TokenStore
	presence    Presence
}

// NewUserHandler creates a new UserHandler; tokens may be nil when revocation is disabled
func NewUserHandler(userService *service.UserService, tokens *jwt.TokenStore, presence Presence) *UserHandler {
	return &UserHandler{userService: userService, tokens: tokens, presence: presence}
}

// Register creates the caller's profile
func (h *UserHandler) Register(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.RegisterRequest
	if !bind(ctx, c, &req) {
		return
	}

	info, err := h.userService.Register(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// GetUserInfo handles get current user info request
func (h *UserHandler) GetUserInfo(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	info, err := h.userService.GetUserInfo(ctx, userId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// GetUserInfoById handles get user info by Id request
func (h *UserHandler) GetUserInfoById(ctx context.Context, c *app.RequestContext) {
	targetId := c.Param("user_id")
	if targetId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	info, err := h.userService.GetUserInfo(ctx, targetId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// SearchUsers handles user search by keyword
func (h *UserHandler) SearchUsers(ctx context.Context, c *app.RequestContext) {
	infos, err := h.userService.SearchUsers(ctx, c.Query("keyword"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, infos)
}

// GetUserInfos returns the profiles of ?user_ids=a,b,c, skipping unknown ids
func (h *UserHandler) GetUserInfos(ctx context.Context, c *app.RequestContext) {
	userIds, ok := userIdsQuery(ctx, c)
	if !ok {
		return
	}

	infos, err := h.userService.GetUserInfos(ctx, userIds)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, infos)
}

// GetOnlineStatus reports presence for ?user_ids=a,b,c
func (h *UserHandler) GetOnlineStatus(ctx context.Context, c *app.RequestContext) {
	userIds, ok := userIdsQuery(ctx, c)
	if !ok {
		return
	}

	online := make(map[string]bool, len(userIds))
	for _, uid := range userIds {
		online[uid] = h.presence != nil && h.presence.IsOnline(ctx, uid)
	}

	response.Success(ctx, c, online)
}

func userIdsQuery(ctx context.Context, c *app.RequestContext) ([]string, bool) {
	raw := c.Query("user_ids")
	if raw == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam.WithMsg("user_ids is required"))
		return nil, false
	}
	userIds := strings.Split(raw, ",")
	if len(userIds) > maxOnlineQuery {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam.WithMsg("at most %d user ids", maxOnlineQuery))
		return nil, false
	}
	return userIds, true
}

// UpdateUserInfo handles update user info request
func (h *UserHandler) UpdateUserInfo(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.UpdateUserRequest
	if !bind(ctx, c, &req) {
		return
	}

	info, err := h.userService.UpdateUserInfo(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// DeleteUser deletes the caller's account and revokes its tokens
func (h *UserHandler) DeleteUser(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(ctx, userId); err != nil {
		response.Error(ctx, c, err)
		return
	}
	if h.tokens != nil {
		if err := h.tokens.RevokeAll(ctx, userId, time.Now()); err != nil {
			log.CtxWarn(ctx, "revoke tokens of deleted user failed: user_id=%s, error=%v", userId, err)
		}
	}
	if h.presence != nil {
		h.presence.Kick(ctx, userId)
	}

	response.Success(ctx, c, nil)
}

// Logout revokes the token used for this request
func (h *UserHandler) Logout(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}
	if h.tokens != nil {
		if err := h.tokens.Revoke(ctx, userId, middleware.GetToken(c)); err != nil {
			log.CtxError(ctx, "revoke token failed: user_id=%s, error=%v", userId, err)
			response.ErrorWithCode(ctx, c, errcode.ErrInternalServer)
			return
		}
	}

	response.Success(ctx, c, nil)
}
