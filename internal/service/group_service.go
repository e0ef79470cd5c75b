package service

import (
	"context"

	"github.com/mbeoliero/kit/log"
	"github.com/zhusq20/CapybaraChat/internal/entity"
	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/internal/repository"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
	"github.com/zhusq20/CapybaraChat/pkg/validate"
	"gorm.io/gorm"
)

// GroupService layers named groups and their roles on group conversations
type GroupService struct {
	core
	groupRepo *repository.GroupRepo
}

// NewGroupService creates a new GroupService
func NewGroupService(repos *repository.Repositories, emitter notify.Emitter) *GroupService {
	return &GroupService{
		core:      newCore(repos, emitter),
		groupRepo: repos.Group,
	}
}

// CreateGroupRequest represents create group request
type CreateGroupRequest struct {
	Name    string   `json:"name" validate:"required,max=40"`
	Members []string `json:"members" validate:"max=500,dive,userid"`
}

// SetManagersRequest adds and removes managers in one step
type SetManagersRequest struct {
	GroupId string   `json:"group_id" validate:"required,max=32"`
	Add     []string `json:"add" validate:"dive,userid"`
	Delete  []string `json:"delete" validate:"dive,userid"`
}

// TransferMasterRequest hands the group to another member
type TransferMasterRequest struct {
	GroupId   string `json:"group_id" validate:"required,max=32"`
	NewMaster string `json:"new_master" validate:"required,userid"`
}

// RemoveMembersRequest removes members from a group
type RemoveMembersRequest struct {
	GroupId string   `json:"group_id" validate:"required,max=32"`
	Members []string `json:"members" validate:"required,min=1,dive,userid"`
}

// PostNoticeRequest posts a group announcement
type PostNoticeRequest struct {
	GroupId string `json:"group_id" validate:"required,max=32"`
	Content string `json:"content" validate:"required,max=4096"`
}

// CreateGroup creates a group mastered by the caller with the given friends as members
func (s *GroupService) CreateGroup(ctx context.Context, masterId string, req *CreateGroupRequest) (*entity.GroupInfo, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	convId, err := s.createGroupConversation(ctx, masterId, dedupe(req.Members, masterId), req.Name)
	if err != nil {
		return nil, err
	}

	group, err := s.groupRepo.GetByConversationId(ctx, s.db(ctx), convId)
	if err != nil {
		return nil, toBizError(ctx, "create group", err)
	}
	log.CtxInfo(ctx, "group created: group_id=%s, master_id=%s", group.Id, masterId)
	return s.groupInfo(ctx, group)
}

// GetGroup returns a group to one of its members
func (s *GroupService) GetGroup(ctx context.Context, userId, groupId string) (*entity.GroupInfo, error) {
	group, err := s.loadGroup(ctx, groupId)
	if err != nil {
		return nil, err
	}
	if err := s.assertGroupMember(ctx, s.db(ctx), group, userId); err != nil {
		return nil, toBizError(ctx, "get group", err)
	}
	return s.groupInfo(ctx, group)
}

// ListGroups lists the groups the user belongs to
func (s *GroupService) ListGroups(ctx context.Context, userId string) ([]*entity.GroupInfo, error) {
	groups, err := s.groupRepo.ListByUser(ctx, userId)
	if err != nil {
		log.CtxError(ctx, "list groups failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}

	convIds := make([]string, 0, len(groups))
	groupIds := make([]string, 0, len(groups))
	for _, g := range groups {
		convIds = append(convIds, g.ConversationId)
		groupIds = append(groupIds, g.Id)
	}
	members, err := s.repos.Conversation.ListMembersOf(ctx, convIds)
	if err != nil {
		return nil, toBizError(ctx, "list groups", err)
	}
	managers, err := s.groupRepo.ListManagersOf(ctx, groupIds)
	if err != nil {
		return nil, toBizError(ctx, "list groups", err)
	}

	infos := make([]*entity.GroupInfo, 0, len(groups))
	for _, g := range groups {
		infos = append(infos, buildGroupInfo(g, members[g.ConversationId], managers[g.Id]))
	}
	return infos, nil
}

// SetManagers applies manager additions and removals atomically.
// Every name is validated before anything changes.
func (s *GroupService) SetManagers(ctx context.Context, userId string, req *SetManagersRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	add := dedupe(req.Add, "")
	del := dedupe(req.Delete, "")
	for _, id := range add {
		if contains(del, id) {
			return errcode.ErrInvalidParam.WithMsg("user %s is both added and deleted", id)
		}
	}

	err := s.transact(ctx, "set managers", func(tx *gorm.DB, out *outbox) error {
		group, err := s.lockGroup(ctx, tx, req.GroupId)
		if err != nil {
			return err
		}
		if !group.IsMaster(userId) {
			return errcode.ErrNotGroupMaster
		}

		for _, id := range add {
			if group.IsMaster(id) {
				return errcode.ErrInvalidMember.WithMsg("%s is the master", id)
			}
			member, err := s.repos.Conversation.IsMember(ctx, tx, group.ConversationId, id)
			if err != nil {
				return err
			}
			if !member {
				return errcode.ErrInvalidMember.WithMsg("%s is not a member", id)
			}
			manager, err := s.groupRepo.IsManager(ctx, tx, group.Id, id)
			if err != nil {
				return err
			}
			if manager {
				return errcode.ErrInvalidMember.WithMsg("%s is already a manager", id)
			}
		}
		for _, id := range del {
			manager, err := s.groupRepo.IsManager(ctx, tx, group.Id, id)
			if err != nil {
				return err
			}
			if !manager {
				return errcode.ErrInvalidMember.WithMsg("%s is not a manager", id)
			}
		}

		if err := s.groupRepo.AddManagers(ctx, tx, group.Id, add); err != nil {
			return err
		}
		if err := s.groupRepo.RemoveManagers(ctx, tx, group.Id, del); err != nil {
			return err
		}

		out.add(notify.Fanout(notify.Event{
			Type:           notify.TypeManagerChanged,
			Actor:          userId,
			GroupId:        group.Id,
			ConversationId: group.ConversationId,
		}, append(add, del...), userId)...)
		return nil
	})
	if err != nil {
		return err
	}

	log.CtxInfo(ctx, "group managers changed: group_id=%s, added=%v, deleted=%v", req.GroupId, add, del)
	return nil
}

// TransferMaster hands the master seat to another member; the new master loses its manager flag
func (s *GroupService) TransferMaster(ctx context.Context, userId string, req *TransferMasterRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}

	err := s.transact(ctx, "transfer master", func(tx *gorm.DB, out *outbox) error {
		group, err := s.lockGroup(ctx, tx, req.GroupId)
		if err != nil {
			return err
		}
		if !group.IsMaster(userId) {
			return errcode.ErrNotGroupMaster
		}
		if req.NewMaster == userId {
			return errcode.ErrInvalidMember.WithMsg("already the master")
		}
		member, err := s.repos.Conversation.IsMember(ctx, tx, group.ConversationId, req.NewMaster)
		if err != nil {
			return err
		}
		if !member {
			return errcode.ErrInvalidMember.WithMsg("%s is not a member", req.NewMaster)
		}

		if err := s.groupRepo.RemoveManagers(ctx, tx, group.Id, []string{req.NewMaster}); err != nil {
			return err
		}
		if err := s.groupRepo.UpdateMaster(ctx, tx, group.Id, req.NewMaster); err != nil {
			return err
		}

		members, err := s.repos.Conversation.ListMembers(ctx, tx, group.ConversationId)
		if err != nil {
			return err
		}
		out.add(notify.Fanout(notify.Event{
			Type:           notify.TypeMasterTransferred,
			Actor:          userId,
			GroupId:        group.Id,
			ConversationId: group.ConversationId,
		}, members, userId)...)
		return nil
	})
	if err != nil {
		return err
	}

	log.CtxInfo(ctx, "group master transferred: group_id=%s, from=%s, to=%s", req.GroupId, userId, req.NewMaster)
	return nil
}

// RemoveMembers removes members and their manager flags.
// Managers may remove plain members only; nobody may remove the master.
func (s *GroupService) RemoveMembers(ctx context.Context, userId string, req *RemoveMembersRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	targets := dedupe(req.Members, "")

	err := s.transact(ctx, "remove members", func(tx *gorm.DB, out *outbox) error {
		group, err := s.lockGroup(ctx, tx, req.GroupId)
		if err != nil {
			return err
		}
		isMaster := group.IsMaster(userId)
		if !isMaster {
			manager, err := s.groupRepo.IsManager(ctx, tx, group.Id, userId)
			if err != nil {
				return err
			}
			if !manager {
				return errcode.ErrNotGroupAdmin
			}
		}

		for _, id := range targets {
			if group.IsMaster(id) {
				return errcode.ErrCannotRemoveMaster
			}
			manager, err := s.groupRepo.IsManager(ctx, tx, group.Id, id)
			if err != nil {
				return err
			}
			if manager && !isMaster {
				return errcode.ErrCannotRemoveManager
			}
		}
		found, err := s.repos.Conversation.CountMembersAmong(ctx, tx, group.ConversationId, targets)
		if err != nil {
			return err
		}
		if found != int64(len(targets)) {
			return errcode.ErrInvalidMember.WithMsg("every removed user must be a member")
		}

		if _, err := s.repos.Conversation.LockById(ctx, tx, group.ConversationId); err != nil {
			return err
		}
		for _, id := range targets {
			if _, err := s.leave(ctx, tx, group.ConversationId, id); err != nil {
				return err
			}
		}
		if err := s.groupRepo.RemoveManagers(ctx, tx, group.Id, targets); err != nil {
			return err
		}

		out.add(notify.Fanout(notify.Event{
			Type:           notify.TypeGroupRemoved,
			Actor:          userId,
			GroupId:        group.Id,
			ConversationId: group.ConversationId,
		}, targets, userId)...)
		return nil
	})
	if err != nil {
		return err
	}

	log.CtxInfo(ctx, "group members removed: group_id=%s, operator=%s, members=%v", req.GroupId, userId, targets)
	return nil
}

// LeaveGroup removes the caller from a group; the master must transfer first
func (s *GroupService) LeaveGroup(ctx context.Context, userId, groupId string) error {
	if groupId == "" {
		return errcode.ErrInvalidParam.WithMsg("group_id is required")
	}

	err := s.transact(ctx, "leave group", func(tx *gorm.DB, out *outbox) error {
		group, err := s.lockGroup(ctx, tx, groupId)
		if err != nil {
			return err
		}
		if group.IsMaster(userId) {
			return errcode.ErrMustTransferFirst
		}
		if _, err := s.repos.Conversation.LockById(ctx, tx, group.ConversationId); err != nil {
			return err
		}
		left, err := s.leave(ctx, tx, group.ConversationId, userId)
		if err != nil {
			return err
		}
		if !left {
			return errcode.ErrNotGroupMember
		}
		return s.groupRepo.RemoveManagers(ctx, tx, group.Id, []string{userId})
	})
	if err != nil {
		return err
	}

	log.CtxInfo(ctx, "group left: group_id=%s, user_id=%s", groupId, userId)
	return nil
}

// PostNotice appends a notice message and links it into the group's notice list
func (s *GroupService) PostNotice(ctx context.Context, userId string, req *PostNoticeRequest) (*entity.NoticeInfo, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var msg *entity.Message
	err := s.transact(ctx, "post notice", func(tx *gorm.DB, out *outbox) error {
		group, err := s.lockGroup(ctx, tx, req.GroupId)
		if err != nil {
			return err
		}
		admin, err := s.isGroupAdmin(ctx, tx, group, userId)
		if err != nil {
			return err
		}
		if !admin {
			return errcode.ErrNotGroupAdmin
		}
		conv, err := s.repos.Conversation.LockById(ctx, tx, group.ConversationId)
		if err != nil {
			return err
		}

		msg, err = s.appendMessage(ctx, tx, out, conv, userId, req.Content, nil, true)
		if err != nil {
			return err
		}
		for i := range out.events {
			out.events[i].GroupId = group.Id
		}
		return s.groupRepo.AddNotice(ctx, tx, group.Id, msg.Id)
	})
	if err != nil {
		return nil, err
	}

	log.CtxInfo(ctx, "group notice posted: group_id=%s, message_id=%d, sender_id=%s", req.GroupId, msg.Id, userId)
	return &entity.NoticeInfo{
		MessageId: msg.Id,
		SenderId:  msg.SenderId,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}, nil
}

// ListNotices lists a group's notices to one of its members
func (s *GroupService) ListNotices(ctx context.Context, userId, groupId string) ([]*entity.NoticeInfo, error) {
	group, err := s.loadGroup(ctx, groupId)
	if err != nil {
		return nil, err
	}
	if err := s.assertGroupMember(ctx, s.db(ctx), group, userId); err != nil {
		return nil, toBizError(ctx, "list notices", err)
	}

	notices, err := s.groupRepo.ListNotices(ctx, group.Id)
	if err != nil {
		log.CtxError(ctx, "list notices failed: group_id=%s, error=%v", groupId, err)
		return nil, errcode.ErrInternalServer
	}
	if notices == nil {
		notices = []*entity.NoticeInfo{}
	}
	return notices, nil
}

func (s *GroupService) loadGroup(ctx context.Context, groupId string) (*entity.Group, error) {
	group, err := s.groupRepo.GetById(ctx, groupId)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errcode.ErrGroupNotFound
		}
		return nil, toBizError(ctx, "load group", err)
	}
	return group, nil
}

func (s *GroupService) lockGroup(ctx context.Context, tx *gorm.DB, groupId string) (*entity.Group, error) {
	group, err := s.groupRepo.LockById(ctx, tx, groupId)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errcode.ErrGroupNotFound
		}
		return nil, err
	}
	return group, nil
}

func (s *GroupService) assertGroupMember(ctx context.Context, tx *gorm.DB, group *entity.Group, userId string) error {
	member, err := s.repos.Conversation.IsMember(ctx, tx, group.ConversationId, userId)
	if err != nil {
		return err
	}
	if !member {
		return errcode.ErrNotGroupMember
	}
	return nil
}

func (s *GroupService) groupInfo(ctx context.Context, group *entity.Group) (*entity.GroupInfo, error) {
	members, err := s.repos.Conversation.ListMembers(ctx, s.db(ctx), group.ConversationId)
	if err != nil {
		return nil, toBizError(ctx, "group info", err)
	}
	managers, err := s.groupRepo.ListManagers(ctx, s.db(ctx), group.Id)
	if err != nil {
		return nil, toBizError(ctx, "group info", err)
	}
	return buildGroupInfo(group, members, managers), nil
}

func buildGroupInfo(group *entity.Group, members, managers []string) *entity.GroupInfo {
	if managers == nil {
		managers = []string{}
	}
	if members == nil {
		members = []string{}
	}
	return &entity.GroupInfo{
		Id:             group.Id,
		Name:           group.Name,
		ConversationId: group.ConversationId,
		MasterId:       group.MasterId,
		Managers:       managers,
		Members:        members,
		CreatedAt:      group.CreatedAt,
	}
}

// isGroupAdmin reports whether userId is the master or a manager of group
func (c *core) isGroupAdmin(ctx context.Context, tx *gorm.DB, group *entity.Group, userId string) (bool, error) {
	if group.IsMaster(userId) {
		return true, nil
	}
	return c.repos.Group.IsManager(ctx, tx, group.Id, userId)
}

// groupAdmins returns the master followed by the managers of group
func (c *core) groupAdmins(ctx context.Context, tx *gorm.DB, group *entity.Group) ([]string, error) {
	managers, err := c.repos.Group.ListManagers(ctx, tx, group.Id)
	if err != nil {
		return nil, err
	}
	return append([]string{group.MasterId}, managers...), nil
}
