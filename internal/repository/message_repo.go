package repository

import (
	"context"

	"github.com/zhusq20/CapybaraChat/internal/entity"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepo is the repository for message operations
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo creates a new MessageRepo
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create appends a message; the store assigns the monotonic Id
func (r *MessageRepo) Create(ctx context.Context, tx *gorm.DB, msg *entity.Message) error {
	msg.CreatedAt = entity.NowUnixMilli()
	return tx.Create(msg).Error
}

// GetById gets message by Id
func (r *MessageRepo) GetById(ctx context.Context, tx *gorm.DB, id int64) (*entity.Message, error) {
	var msg entity.Message
	err := tx.Where("id = ?", id).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// IncrReplyCount bumps the reply counter of a message
func (r *MessageRepo) IncrReplyCount(ctx context.Context, tx *gorm.DB, id int64) error {
	return tx.Model(&entity.Message{}).
		Where("id = ?", id).
		Update("reply_count", gorm.Expr("reply_count + 1")).Error
}

// LastId returns the highest message id of a conversation, notices included, 0 if empty
func (r *MessageRepo) LastId(ctx context.Context, tx *gorm.DB, conversationId string) (int64, error) {
	var last int64
	err := tx.Model(&entity.Message{}).
		Select("COALESCE(MAX(id), 0)").
		Where("conversation_id = ?", conversationId).
		Scan(&last).Error
	return last, err
}

// LastNonNoticeId returns the highest regular message id, 0 if none
func (r *MessageRepo) LastNonNoticeId(ctx context.Context, tx *gorm.DB, conversationId string) (int64, error) {
	var last int64
	err := tx.Model(&entity.Message{}).
		Select("COALESCE(MAX(id), 0)").
		Where("conversation_id = ? AND is_notice = ?", conversationId, false).
		Scan(&last).Error
	return last, err
}

// FetchAfter returns regular messages with id > afterId that userId has not hidden
func (r *MessageRepo) FetchAfter(ctx context.Context, conversationId, userId string, afterId int64, limit int) ([]*entity.Message, error) {
	if limit <= 0 || limit > constant.MaxFetchLimit {
		limit = constant.MaxFetchLimit
	}

	hidden := r.db.Model(&entity.DeletedMessage{}).Select("message_id").Where("user_id = ?", userId)

	var messages []*entity.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND id > ? AND is_notice = ?", conversationId, afterId, false).
		Where("id NOT IN (?)", hidden).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// CountAfter counts regular messages with id > afterId
func (r *MessageRepo) CountAfter(ctx context.Context, conversationId string, afterId int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("conversation_id = ? AND id > ? AND is_notice = ?", conversationId, afterId, false).
		Count(&count).Error
	return count, err
}

// Hide adds a message to a user's deleted set; hiding twice is a no-op
func (r *MessageRepo) Hide(ctx context.Context, userId string, messageId int64) error {
	mark := &entity.DeletedMessage{UserId: userId, MessageId: messageId}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "message_id"}},
		DoNothing: true,
	}).Create(mark).Error
}

// ReassignSender moves authorship of userId's messages to the sentinel user
func (r *MessageRepo) ReassignSender(ctx context.Context, tx *gorm.DB, userId string) error {
	return tx.Model(&entity.Message{}).
		Where("sender_id = ?", userId).
		Update("sender_id", constant.SentinelUserId).Error
}

// DeleteHiddenByUser drops the deleted set of userId
func (r *MessageRepo) DeleteHiddenByUser(ctx context.Context, tx *gorm.DB, userId string) error {
	return tx.Where("user_id = ?", userId).Delete(&entity.DeletedMessage{}).Error
}
