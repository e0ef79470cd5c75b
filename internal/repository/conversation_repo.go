package repository

import (
	"context"

	"github.com/zhusq20/CapybaraChat/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepo is the repository for conversations and their membership
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo creates a new ConversationRepo
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// CreateIfAbsent inserts conv unless a row with the same Id exists.
// It reports whether this call created the row.
func (r *ConversationRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, conv *entity.Conversation) (bool, error) {
	now := entity.NowUnixMilli()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(conv)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetById gets conversation by Id
func (r *ConversationRepo) GetById(ctx context.Context, id string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// LockById loads the conversation row with a write lock.
// Membership changes and appends of one conversation serialize on this lock.
func (r *ConversationRepo) LockById(ctx context.Context, tx *gorm.DB, id string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Touch bumps updated_at so listings surface active conversations first
func (r *ConversationRepo) Touch(ctx context.Context, tx *gorm.DB, id string) error {
	return tx.Model(&entity.Conversation{}).Where("id = ?", id).Update("updated_at", entity.NowUnixMilli()).Error
}

// AddMember inserts a membership row; it reports false if the user was already a member
func (r *ConversationRepo) AddMember(ctx context.Context, tx *gorm.DB, conversationId, userId string) (bool, error) {
	member := &entity.ConversationMember{
		ConversationId: conversationId,
		UserId:         userId,
		JoinedAt:       entity.NowUnixMilli(),
	}
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(member)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RemoveMember deletes a membership row and reports whether it existed
func (r *ConversationRepo) RemoveMember(ctx context.Context, tx *gorm.DB, conversationId, userId string) (bool, error) {
	result := tx.Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		Delete(&entity.ConversationMember{})
	return result.RowsAffected > 0, result.Error
}

// IsMember checks membership using the given connection
func (r *ConversationRepo) IsMember(ctx context.Context, tx *gorm.DB, conversationId, userId string) (bool, error) {
	var count int64
	err := tx.Model(&entity.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListMembers returns the member ids of a conversation ordered by join time
func (r *ConversationRepo) ListMembers(ctx context.Context, tx *gorm.DB, conversationId string) ([]string, error) {
	var userIds []string
	err := tx.Model(&entity.ConversationMember{}).
		Where("conversation_id = ?", conversationId).
		Order("id ASC").
		Pluck("user_id", &userIds).Error
	return userIds, err
}

// CountMembersAmong counts how many of userIds belong to the conversation
func (r *ConversationRepo) CountMembersAmong(ctx context.Context, tx *gorm.DB, conversationId string, userIds []string) (int64, error) {
	var count int64
	err := tx.Model(&entity.ConversationMember{}).
		Where("conversation_id = ? AND user_id IN ?", conversationId, userIds).
		Count(&count).Error
	return count, err
}

// ListMembersOf returns member ids for several conversations at once
func (r *ConversationRepo) ListMembersOf(ctx context.Context, conversationIds []string) (map[string][]string, error) {
	result := make(map[string][]string, len(conversationIds))
	if len(conversationIds) == 0 {
		return result, nil
	}

	var members []*entity.ConversationMember
	err := r.db.WithContext(ctx).
		Where("conversation_id IN ?", conversationIds).
		Order("id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		result[m.ConversationId] = append(result[m.ConversationId], m.UserId)
	}
	return result, nil
}

// ListByUser returns the conversations userId belongs to, most recently active first
func (r *ConversationRepo) ListByUser(ctx context.Context, userId string) ([]*entity.Conversation, error) {
	var convs []*entity.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_members cm ON cm.conversation_id = conversations.id").
		Where("cm.user_id = ?", userId).
		Order("conversations.updated_at DESC").
		Order("conversations.id ASC").
		Find(&convs).Error
	return convs, err
}

// RemoveUser deletes every membership of userId and returns the affected conversations
func (r *ConversationRepo) RemoveUser(ctx context.Context, tx *gorm.DB, userId string) ([]string, error) {
	var convIds []string
	if err := tx.Model(&entity.ConversationMember{}).Where("user_id = ?", userId).Pluck("conversation_id", &convIds).Error; err != nil {
		return nil, err
	}
	err := tx.Where("user_id = ?", userId).Delete(&entity.ConversationMember{}).Error
	return convIds, err
}
