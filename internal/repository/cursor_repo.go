package repository

import (
	"context"

	"github.com/zhusq20/CapybaraChat/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CursorRepo is the repository for per-member read cursors
type CursorRepo struct {
	db *gorm.DB
}

// NewCursorRepo creates a new CursorRepo
func NewCursorRepo(db *gorm.DB) *CursorRepo {
	return &CursorRepo{db: db}
}

// Seed creates the cursor of a new member, resetting a leftover one on rejoin
func (r *CursorRepo) Seed(ctx context.Context, tx *gorm.DB, cursor *entity.ReadCursor) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"fro_id": cursor.Fro,
			"to_id":  cursor.To,
		}),
	}).Create(cursor).Error
}

// Get returns the cursor of a member
func (r *CursorRepo) Get(ctx context.Context, conversationId, userId string) (*entity.ReadCursor, error) {
	var cursor entity.ReadCursor
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		First(&cursor).Error
	if err != nil {
		return nil, err
	}
	return &cursor, nil
}

// GetForUpdate returns the cursor of a member with a row lock
func (r *CursorRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, conversationId, userId string) (*entity.ReadCursor, error) {
	var cursor entity.ReadCursor
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		First(&cursor).Error
	if err != nil {
		return nil, err
	}
	return &cursor, nil
}

// UpdateTo persists an advanced read watermark
func (r *CursorRepo) UpdateTo(ctx context.Context, tx *gorm.DB, cursor *entity.ReadCursor) error {
	return tx.Model(&entity.ReadCursor{}).
		Where("id = ?", cursor.Id).
		Update("to_id", cursor.To).Error
}

// ListByConversation returns every cursor of a conversation
func (r *CursorRepo) ListByConversation(ctx context.Context, conversationId string) ([]*entity.ReadCursor, error) {
	var cursors []*entity.ReadCursor
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Order("user_id ASC").
		Find(&cursors).Error
	return cursors, err
}

// ListByUser returns the cursors of a user keyed by conversation
func (r *CursorRepo) ListByUser(ctx context.Context, userId string) (map[string]*entity.ReadCursor, error) {
	var cursors []*entity.ReadCursor
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).Find(&cursors).Error; err != nil {
		return nil, err
	}
	result := make(map[string]*entity.ReadCursor, len(cursors))
	for _, c := range cursors {
		result[c.ConversationId] = c
	}
	return result, nil
}

// Retire deletes the cursor of a departing member
func (r *CursorRepo) Retire(ctx context.Context, tx *gorm.DB, conversationId, userId string) error {
	return tx.Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		Delete(&entity.ReadCursor{}).Error
}

// RetireByUser deletes every cursor of a user
func (r *CursorRepo) RetireByUser(ctx context.Context, tx *gorm.DB, userId string) error {
	return tx.Where("user_id = ?", userId).Delete(&entity.ReadCursor{}).Error
}
