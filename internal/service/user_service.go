package service

import (
	"context"

	"github.com/mbeoliero/kit/log"
	"github.com/zhusq20/CapybaraChat/internal/entity"
	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/internal/repository"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
	"github.com/zhusq20/CapybaraChat/pkg/validate"
	"gorm.io/gorm"
)

// UserService handles user profiles and the account deletion workflow
type UserService struct {
	core
	userRepo *repository.UserRepo
}

// NewUserService creates a new UserService
func NewUserService(repos *repository.Repositories, emitter notify.Emitter) *UserService {
	return &UserService{
		core:     newCore(repos, emitter),
		userRepo: repos.User,
	}
}

// RegisterRequest represents profile registration for an identity
type RegisterRequest struct {
	Nickname string `json:"nickname" validate:"required,max=64"`
	Email    string `json:"email" validate:"omitempty,email,max=128"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

// UpdateUserRequest represents user update request
type UpdateUserRequest struct {
	Nickname *string `json:"nickname,omitempty" validate:"omitempty,min=1,max=64"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=128"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// Register creates the profile of a verified identity
func (s *UserService) Register(ctx context.Context, userId string, req *RegisterRequest) (*entity.UserInfo, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if !validate.UserId(userId) || userId == constant.SentinelUserId {
		return nil, errcode.ErrInvalidParam.WithMsg("user id is not allowed")
	}

	user := &entity.User{
		Id:       userId,
		Nickname: req.Nickname,
		Email:    req.Email,
		Phone:    req.Phone,
	}
	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, toBizError(ctx, "register user", err)
	}
	if !created {
		return nil, errcode.ErrUserExists
	}

	log.CtxInfo(ctx, "user registered: user_id=%s", userId)
	return user.ToUserInfo(), nil
}

// GetUserInfo gets user info by Id
func (s *UserService) GetUserInfo(ctx context.Context, userId string) (*entity.UserInfo, error) {
	user, err := s.userRepo.GetById(ctx, userId)
	if err != nil {
		log.CtxDebug(ctx, "get user failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrUserNotFound
	}
	return user.ToUserInfo(), nil
}

// GetUserInfos gets multiple users info by Ids
func (s *UserService) GetUserInfos(ctx context.Context, userIds []string) ([]*entity.UserInfo, error) {
	users, err := s.userRepo.GetByIds(ctx, userIds)
	if err != nil {
		log.CtxError(ctx, "get users failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	infos := make([]*entity.UserInfo, 0, len(users))
	for _, user := range users {
		infos = append(infos, user.ToUserInfo())
	}
	return infos, nil
}

// SearchUsers finds users by id or nickname fragment
func (s *UserService) SearchUsers(ctx context.Context, keyword string) ([]*entity.UserInfo, error) {
	if keyword == "" || len(keyword) > 32 {
		return nil, errcode.ErrInvalidParam.WithMsg("keyword must be 1-32 characters")
	}
	users, err := s.userRepo.Search(ctx, keyword, 20)
	if err != nil {
		log.CtxError(ctx, "search users failed: keyword=%s, error=%v", keyword, err)
		return nil, errcode.ErrInternalServer
	}

	infos := make([]*entity.UserInfo, 0, len(users))
	for _, user := range users {
		infos = append(infos, &entity.UserInfo{Id: user.Id, Nickname: user.Nickname, CreatedAt: user.CreatedAt})
	}
	return infos, nil
}

// UpdateUserInfo updates user info
func (s *UserService) UpdateUserInfo(ctx context.Context, userId string, req *UpdateUserRequest) (*entity.UserInfo, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	// Build updates map
	updates := make(map[string]interface{})
	if req.Nickname != nil {
		updates["nickname"] = *req.Nickname
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}

	if _, err := s.userRepo.GetById(ctx, userId); err != nil {
		if repository.IsNotFound(err) {
			return nil, errcode.ErrUserNotFound
		}
		return nil, toBizError(ctx, "update user", err)
	}
	if len(updates) > 0 {
		if err := s.userRepo.Update(ctx, userId, updates); err != nil {
			log.CtxError(ctx, "update user failed: user_id=%s, error=%v", userId, err)
			return nil, errcode.ErrInternalServer
		}
		log.CtxInfo(ctx, "user updated: user_id=%s", userId)
	}

	return s.GetUserInfo(ctx, userId)
}

// DeleteUser removes an account.
// References that must outlive it (message sender, group master, request parties) move to
// the sentinel user; edges, manager flags, cursors, deleted sets and memberships go away.
func (s *UserService) DeleteUser(ctx context.Context, userId string) error {
	if userId == constant.SentinelUserId {
		return errcode.ErrForbidden
	}

	err := s.transact(ctx, "delete user", func(tx *gorm.DB, out *outbox) error {
		if _, err := s.userRepo.LockById(ctx, tx, userId); err != nil {
			if repository.IsNotFound(err) {
				return errcode.ErrUserNotFound
			}
			return err
		}
		if err := s.userRepo.EnsureSentinel(ctx, tx); err != nil {
			return err
		}

		if err := s.reassignToSentinel(ctx, tx, userId); err != nil {
			return err
		}

		friends, err := s.repos.Friend.DeleteByUser(ctx, tx, userId)
		if err != nil {
			return err
		}
		if err := s.repos.Group.RemoveManagersByUser(ctx, tx, userId); err != nil {
			return err
		}
		if err := s.repos.Cursor.RetireByUser(ctx, tx, userId); err != nil {
			return err
		}
		if err := s.repos.Message.DeleteHiddenByUser(ctx, tx, userId); err != nil {
			return err
		}
		if _, err := s.repos.Conversation.RemoveUser(ctx, tx, userId); err != nil {
			return err
		}
		if err := s.userRepo.Delete(ctx, tx, userId); err != nil {
			return err
		}

		out.add(notify.Fanout(notify.Event{
			Type:  notify.TypeFriendRemoved,
			Actor: userId,
		}, friends, userId)...)
		return nil
	})
	if err != nil {
		return err
	}

	log.CtxInfo(ctx, "user deleted: user_id=%s", userId)
	return nil
}

// reassignToSentinel redirects surviving references of userId onto the sentinel user.
// The sentinel takes over the master seat of every group userId masters and joins its conversation.
func (s *UserService) reassignToSentinel(ctx context.Context, tx *gorm.DB, userId string) error {
	// pending requests end here, only resolved history moves to the sentinel
	if _, err := s.repos.Request.RejectPendingOf(ctx, tx, userId); err != nil {
		return err
	}
	if err := s.repos.Message.ReassignSender(ctx, tx, userId); err != nil {
		return err
	}
	if err := s.repos.Request.ReassignUser(ctx, tx, userId); err != nil {
		return err
	}

	groups, err := s.repos.Group.ListMastered(ctx, tx, userId)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if _, err := s.repos.Group.LockById(ctx, tx, g.Id); err != nil {
			return err
		}
		if err := s.repos.Group.UpdateMaster(ctx, tx, g.Id, constant.SentinelUserId); err != nil {
			return err
		}
		if _, err := s.join(ctx, tx, g.ConversationId, constant.SentinelUserId); err != nil {
			return err
		}
		log.CtxInfo(ctx, "group master reassigned to sentinel: group_id=%s, former_master=%s", g.Id, userId)
	}
	return nil
}
