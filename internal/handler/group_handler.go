package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/zhusq20/CapybaraChat/internal/service"
	"github.com/zhusq20/CapybaraChat/pkg/response"
)

// GroupHandler handles group-related requests
type GroupHandler struct {
	groupService   *service.GroupService
	requestService *service.RequestService
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(groupService *service.GroupService, requestService *service.RequestService) *GroupHandler {
	return &GroupHandler{groupService: groupService, requestService: requestService}
}

// CreateGroup handles create group request
func (h *GroupHandler) CreateGroup(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.CreateGroupRequest
	if !bind(ctx, c, &req) {
		return
	}

	group, err := h.groupService.CreateGroup(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, group)
}

// ListGroups lists the caller's groups
func (h *GroupHandler) ListGroups(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	groups, err := h.groupService.ListGroups(ctx, userId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, groups)
}

// GetGroupInfo handles get group info request
func (h *GroupHandler) GetGroupInfo(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	group, err := h.groupService.GetGroup(ctx, userId, c.Param("group_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, group)
}

// JoinGroup files a join request
func (h *GroupHandler) JoinGroup(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	req := service.JoinGroupRequest{GroupId: c.Param("group_id")}
	info, err := h.requestService.RequestJoin(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// Invite invites a friend into the group
func (h *GroupHandler) Invite(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.InviteRequest
	if !bind(ctx, c, &req) {
		return
	}
	req.GroupId = c.Param("group_id")

	info, err := h.requestService.InviteToGroup(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// ProcessRequestFrom resolves the newest join or invite request of a sender
func (h *GroupHandler) ProcessRequestFrom(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.ProcessGroupRequestRequest
	if !bind(ctx, c, &req) {
		return
	}
	req.GroupId = c.Param("group_id")

	info, err := h.requestService.ProcessGroupRequestFrom(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// ListRequests lists requests of the groups the caller administers
func (h *GroupHandler) ListRequests(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	infos, err := h.requestService.ListGroupRequests(ctx, userId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, infos)
}

// SetManagers adds and removes managers
func (h *GroupHandler) SetManagers(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.SetManagersRequest
	if !bind(ctx, c, &req) {
		return
	}
	req.GroupId = c.Param("group_id")

	if err := h.groupService.SetManagers(ctx, userId, &req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// TransferMaster hands the group to another member
func (h *GroupHandler) TransferMaster(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.TransferMasterRequest
	if !bind(ctx, c, &req) {
		return
	}
	req.GroupId = c.Param("group_id")

	if err := h.groupService.TransferMaster(ctx, userId, &req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// RemoveMembers removes members from the group
func (h *GroupHandler) RemoveMembers(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.RemoveMembersRequest
	if !bind(ctx, c, &req) {
		return
	}
	req.GroupId = c.Param("group_id")

	if err := h.groupService.RemoveMembers(ctx, userId, &req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// QuitGroup handles quit group request
func (h *GroupHandler) QuitGroup(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	if err := h.groupService.LeaveGroup(ctx, userId, c.Param("group_id")); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// PostNotice posts a group announcement
func (h *GroupHandler) PostNotice(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req service.PostNoticeRequest
	if !bind(ctx, c, &req) {
		return
	}
	req.GroupId = c.Param("group_id")

	notice, err := h.groupService.PostNotice(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, notice)
}

// ListNotices lists group announcements
func (h *GroupHandler) ListNotices(ctx context.Context, c *app.RequestContext) {
	userId, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	notices, err := h.groupService.ListNotices(ctx, userId, c.Param("group_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, notices)
}
