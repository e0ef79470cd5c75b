package repository

import (
	"context"
	"errors"

	"github.com/zhusq20/CapybaraChat/internal/entity"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestRepo is the repository for the request ledger
type RequestRepo struct {
	db *gorm.DB
}

// NewRequestRepo creates a new RequestRepo
func NewRequestRepo(db *gorm.DB) *RequestRepo {
	return &RequestRepo{db: db}
}

// Create inserts a new request
func (r *RequestRepo) Create(ctx context.Context, tx *gorm.DB, req *entity.Request) error {
	now := entity.NowUnixMilli()
	req.CreatedAt = now
	req.UpdatedAt = now
	return tx.Create(req).Error
}

// DiscardPendingFriend removes a stale pending friend request of the same tuple
func (r *RequestRepo) DiscardPendingFriend(ctx context.Context, tx *gorm.DB, senderId, receiverId string) (int64, error) {
	result := tx.
		Where("kind = ? AND sender_id = ? AND receiver_id = ? AND status = ?",
			constant.RequestKindFriend, senderId, receiverId, constant.RequestStatusPending).
		Delete(&entity.Request{})
	return result.RowsAffected, result.Error
}

// DiscardPendingGroup removes a stale pending group request of the same tuple
func (r *RequestRepo) DiscardPendingGroup(ctx context.Context, tx *gorm.DB, kind int32, senderId, groupId string) (int64, error) {
	result := tx.
		Where("kind = ? AND sender_id = ? AND group_id = ? AND status = ?",
			kind, senderId, groupId, constant.RequestStatusPending).
		Delete(&entity.Request{})
	return result.RowsAffected, result.Error
}

// GetForUpdate loads and locks a request row; concurrent resolvers queue on the lock.
func (r *RequestRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, id string) (*entity.Request, error) {
	var req entity.Request
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// LatestFriendRequestId returns the newest friend request from sender to receiver
func (r *RequestRepo) LatestFriendRequestId(ctx context.Context, senderId, receiverId string) (string, error) {
	var req entity.Request
	err := r.db.WithContext(ctx).
		Where("kind = ? AND sender_id = ? AND receiver_id = ?", constant.RequestKindFriend, senderId, receiverId).
		Order("created_at DESC").Order("id DESC").
		First(&req).Error
	if err != nil {
		return "", err
	}
	return req.Id, nil
}

// LatestGroupRequestId returns the newest join or invite request of sender for a group
func (r *RequestRepo) LatestGroupRequestId(ctx context.Context, senderId, groupId string) (string, error) {
	var req entity.Request
	err := r.db.WithContext(ctx).
		Where("kind IN ? AND sender_id = ? AND group_id = ?",
			[]int32{constant.RequestKindGroupJoin, constant.RequestKindGroupInvite}, senderId, groupId).
		Order("created_at DESC").Order("id DESC").
		First(&req).Error
	if err != nil {
		return "", err
	}
	return req.Id, nil
}

// UpdateStatus resolves a request
func (r *RequestRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, req *entity.Request, status string) error {
	req.Status = status
	req.UpdatedAt = entity.NowUnixMilli()
	return tx.Model(&entity.Request{}).
		Where("id = ?", req.Id).
		Updates(map[string]interface{}{
			"status":     req.Status,
			"updated_at": req.UpdatedAt,
		}).Error
}

// GetById gets request by Id
func (r *RequestRepo) GetById(ctx context.Context, id string) (*entity.Request, error) {
	var req entity.Request
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListFriendRequests lists friend requests sent or received by userId, oldest first
func (r *RequestRepo) ListFriendRequests(ctx context.Context, userId string) ([]*entity.Request, error) {
	var reqs []*entity.Request
	err := r.db.WithContext(ctx).
		Where("kind = ? AND (sender_id = ? OR receiver_id = ?)", constant.RequestKindFriend, userId, userId).
		Order("updated_at ASC").Order("id ASC").
		Find(&reqs).Error
	return reqs, err
}

// ListGroupRequests lists join and invite requests of the given groups, oldest first
func (r *RequestRepo) ListGroupRequests(ctx context.Context, groupIds []string) ([]*entity.Request, error) {
	if len(groupIds) == 0 {
		return nil, nil
	}
	var reqs []*entity.Request
	err := r.db.WithContext(ctx).
		Where("group_id IN ?", groupIds).
		Order("updated_at ASC").Order("id ASC").
		Find(&reqs).Error
	return reqs, err
}

// RejectPendingOf rejects every pending request userId sent or is asked to answer
func (r *RequestRepo) RejectPendingOf(ctx context.Context, tx *gorm.DB, userId string) (int64, error) {
	result := tx.Model(&entity.Request{}).
		Where("status = ? AND (sender_id = ? OR receiver_id = ?)", constant.RequestStatusPending, userId, userId).
		Updates(map[string]interface{}{
			"status":     constant.RequestStatusReject,
			"updated_at": entity.NowUnixMilli(),
		})
	return result.RowsAffected, result.Error
}

// ReassignUser redirects every reference to userId onto the sentinel user
func (r *RequestRepo) ReassignUser(ctx context.Context, tx *gorm.DB, userId string) error {
	for _, column := range []string{"sender_id", "receiver_id", "inviter_id"} {
		err := tx.Model(&entity.Request{}).
			Where(column+" = ?", userId).
			Update(column, constant.SentinelUserId).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// IsNotFound reports whether err means the row does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
