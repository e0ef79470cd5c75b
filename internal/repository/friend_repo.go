package repository

import (
	"context"

	"github.com/zhusq20/CapybaraChat/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FriendRepo is the repository for friend edges
type FriendRepo struct {
	db *gorm.DB
}

// NewFriendRepo creates a new FriendRepo
func NewFriendRepo(db *gorm.DB) *FriendRepo {
	return &FriendRepo{db: db}
}

// LockPair locks both directions of a pair, or nothing if neither exists.
// Rows are read in (owner, friend) order so concurrent callers lock in the same order.
func (r *FriendRepo) LockPair(ctx context.Context, tx *gorm.DB, a, b string) ([]*entity.FriendEdge, error) {
	var edges []*entity.FriendEdge
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("(owner_id = ? AND friend_id = ?) OR (owner_id = ? AND friend_id = ?)", a, b, b, a).
		Order("owner_id ASC").
		Find(&edges).Error
	return edges, err
}

// CreatePair inserts both directions of a friendship
func (r *FriendRepo) CreatePair(ctx context.Context, tx *gorm.DB, a, b, tag string) error {
	edges := []*entity.FriendEdge{
		{OwnerId: a, FriendId: b, Tag: tag},
		{OwnerId: b, FriendId: a, Tag: tag},
	}
	return tx.Create(&edges).Error
}

// DeletePair removes both directions and reports how many rows went away
func (r *FriendRepo) DeletePair(ctx context.Context, tx *gorm.DB, a, b string) (int64, error) {
	result := tx.
		Where("(owner_id = ? AND friend_id = ?) OR (owner_id = ? AND friend_id = ?)", a, b, b, a).
		Delete(&entity.FriendEdge{})
	return result.RowsAffected, result.Error
}

// AreFriends reports whether both directions of the pair exist
func (r *FriendRepo) AreFriends(ctx context.Context, tx *gorm.DB, a, b string) (bool, error) {
	var count int64
	err := tx.Model(&entity.FriendEdge{}).
		Where("(owner_id = ? AND friend_id = ?) OR (owner_id = ? AND friend_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count == 2, nil
}

// CountFriendsAmong counts how many of ids are friends of owner
func (r *FriendRepo) CountFriendsAmong(ctx context.Context, tx *gorm.DB, owner string, ids []string) (int64, error) {
	var count int64
	err := tx.Model(&entity.FriendEdge{}).
		Where("owner_id = ? AND friend_id IN ?", owner, ids).
		Count(&count).Error
	return count, err
}

// SetTag tags the owner's edges towards friendIds
func (r *FriendRepo) SetTag(ctx context.Context, tx *gorm.DB, owner string, friendIds []string, tag string) (int64, error) {
	result := tx.Model(&entity.FriendEdge{}).
		Where("owner_id = ? AND friend_id IN ?", owner, friendIds).
		Update("tag", tag)
	return result.RowsAffected, result.Error
}

// List returns the owner's friends joined with their profiles; an empty tag lists all.
func (r *FriendRepo) List(ctx context.Context, owner, tag string) ([]*entity.FriendInfo, error) {
	var friends []*entity.FriendInfo
	q := r.db.WithContext(ctx).
		Table("friends f").
		Select("f.friend_id AS user_id, u.nickname AS nickname, u.email AS email, f.tag AS tag").
		Joins("JOIN users u ON u.id = f.friend_id").
		Where("f.owner_id = ?", owner)
	if tag != "" {
		q = q.Where("f.tag = ?", tag)
	}
	err := q.Order("f.friend_id ASC").Scan(&friends).Error
	return friends, err
}

// DeleteByUser removes every edge touching userId and returns the former friends
func (r *FriendRepo) DeleteByUser(ctx context.Context, tx *gorm.DB, userId string) ([]string, error) {
	var friendIds []string
	if err := tx.Model(&entity.FriendEdge{}).Where("owner_id = ?", userId).Pluck("friend_id", &friendIds).Error; err != nil {
		return nil, err
	}
	err := tx.Where("owner_id = ? OR friend_id = ?", userId, userId).Delete(&entity.FriendEdge{}).Error
	return friendIds, err
}
