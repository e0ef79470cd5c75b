package service

import (
	"context"
	"errors"

	"github.com/mbeoliero/kit/log"
	"github.com/zhusq20/CapybaraChat/internal/entity"
	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/internal/repository"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
	"github.com/zhusq20/CapybaraChat/pkg/validate"
	"gorm.io/gorm"
)

// FriendService handles the friend graph
type FriendService struct {
	core
	friendRepo *repository.FriendRepo
}

// NewFriendService creates a new FriendService
func NewFriendService(repos *repository.Repositories, emitter notify.Emitter) *FriendService {
	return &FriendService{
		core:       newCore(repos, emitter),
		friendRepo: repos.Friend,
	}
}

// RemoveFriendRequest represents remove friend request
type RemoveFriendRequest struct {
	FriendId string `json:"friend_id" validate:"required,userid"`
}

// SetTagRequest tags a set of friends
type SetTagRequest struct {
	FriendIds []string `json:"friend_ids" validate:"required,min=1,dive,userid"`
	Tag       string   `json:"tag" validate:"max=20"`
}

// ListFriends lists the user's friends
func (s *FriendService) ListFriends(ctx context.Context, userId string) ([]*entity.FriendInfo, error) {
	friends, err := s.friendRepo.List(ctx, userId, "")
	if err != nil {
		log.CtxError(ctx, "list friends failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}
	return friends, nil
}

// ListByTag lists the user's friends carrying tag
func (s *FriendService) ListByTag(ctx context.Context, userId, tag string) ([]*entity.FriendInfo, error) {
	if tag == "" || len([]rune(tag)) > constant.MaxTagLength {
		return nil, errcode.ErrInvalidParam.WithMsg("tag must be 1-%d characters", constant.MaxTagLength)
	}
	friends, err := s.friendRepo.List(ctx, userId, tag)
	if err != nil {
		log.CtxError(ctx, "list friends by tag failed: user_id=%s, error=%v", userId, err)
		return nil, errcode.ErrInternalServer
	}
	return friends, nil
}

// RemoveFriend deletes both directions of a friendship
func (s *FriendService) RemoveFriend(ctx context.Context, userId string, req *RemoveFriendRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}

	err := s.transact(ctx, "remove friend", func(tx *gorm.DB, out *outbox) error {
		if err := s.removeEdgePair(ctx, tx, userId, req.FriendId); err != nil {
			return err
		}
		out.add(notify.Event{
			Type:      notify.TypeFriendRemoved,
			Recipient: req.FriendId,
			Actor:     userId,
			Ts:        entity.NowUnixMilli(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	log.CtxInfo(ctx, "friend removed: user_id=%s, friend_id=%s", userId, req.FriendId)
	return nil
}

// SetTag tags friends; every id must be a current friend or nothing changes
func (s *FriendService) SetTag(ctx context.Context, userId string, req *SetTagRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	friendIds := dedupe(req.FriendIds, "")

	err := s.transact(ctx, "set tag", func(tx *gorm.DB, out *outbox) error {
		count, err := s.friendRepo.CountFriendsAmong(ctx, tx, userId, friendIds)
		if err != nil {
			return err
		}
		if count != int64(len(friendIds)) {
			return errcode.ErrNotFriends
		}
		_, err = s.friendRepo.SetTag(ctx, tx, userId, friendIds, req.Tag)
		return err
	})
	if err != nil {
		return err
	}

	log.CtxInfo(ctx, "friends tagged: user_id=%s, count=%d, tag=%s", userId, len(friendIds), req.Tag)
	return nil
}

// addEdgePair creates both directions of a friendship inside tx
func (c *core) addEdgePair(ctx context.Context, tx *gorm.DB, a, b, tag string) error {
	edges, err := c.repos.Friend.LockPair(ctx, tx, a, b)
	if err != nil {
		return err
	}
	if len(edges) > 0 {
		return errcode.ErrAlreadyFriends
	}
	if err := c.repos.Friend.CreatePair(ctx, tx, a, b, tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errcode.ErrAlreadyFriends
		}
		return err
	}
	return nil
}

// removeEdgePair deletes both directions inside tx; a missing direction aborts the transaction
func (c *core) removeEdgePair(ctx context.Context, tx *gorm.DB, a, b string) error {
	edges, err := c.repos.Friend.LockPair(ctx, tx, a, b)
	if err != nil {
		return err
	}
	if len(edges) != 2 {
		return errcode.ErrNotFriends
	}
	removed, err := c.repos.Friend.DeletePair(ctx, tx, a, b)
	if err != nil {
		return err
	}
	if removed != 2 {
		return errcode.ErrNotFriends
	}
	return nil
}
