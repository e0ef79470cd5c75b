package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/zhusq20/CapybaraChat/internal/service"
	"github.com/zhusq20/CapybaraChat/pkg/response"
)

// FriendHandler handles the friend graph and the request ledger
type FriendHandler struct {
	friendService  *service.FriendService
	requestService *service.RequestService
}

// NewFriendHandler creates a new FriendHandler
func NewFriendHandler(friendService *service.FriendService, requestService *service.RequestService) *FriendHandler {
	return &FriendHandler{friendService: friendService, requestService: requestService}
}

// ListFriends lists friends, filtered by ?tag= when given
func (h *FriendHandler) ListFriends(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var err error
	var friends any
	if tag := c.Query("tag"); tag != "" {
		friends, err = h.friendService.ListByTag(ctx, userId, tag)
	} else {
		friends, err = h.friendService.ListFriends(ctx, userId)
	}
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, friends)
}

// RemoveFriend removes a friendship
func (h *FriendHandler) RemoveFriend(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.RemoveFriendRequest
	if !bind(ctx, c, &req) {
		return
	}

	if err := h.friendService.RemoveFriend(ctx, userId, &req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// SetTag tags friends
func (h *FriendHandler) SetTag(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.SetTagRequest
	if !bind(ctx, c, &req) {
		return
	}

	if err := h.friendService.SetTag(ctx, userId, &req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// SendRequest sends a friend request
func (h *FriendHandler) SendRequest(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.FriendRequestRequest
	if !bind(ctx, c, &req) {
		return
	}

	info, err := h.requestService.SendFriendRequest(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// ProcessRequestFrom resolves the newest friend request of a sender
func (h *FriendHandler) ProcessRequestFrom(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.ProcessFriendRequestRequest
	if !bind(ctx, c, &req) {
		return
	}

	info, err := h.requestService.ProcessFriendRequestFrom(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// ListRequests lists friend requests the caller sent or received
func (h *FriendHandler) ListRequests(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	infos, err := h.requestService.ListFriendRequests(ctx, userId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, infos)
}
