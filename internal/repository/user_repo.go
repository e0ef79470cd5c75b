package repository

import (
	"context"

	"github.com/zhusq20/CapybaraChat/internal/entity"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepo is the repository for user operations
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo creates a new UserRepo
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create creates a new user, reporting false when the id is taken
func (r *UserRepo) Create(ctx context.Context, user *entity.User) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetById gets user by Id
func (r *UserRepo) GetById(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIds gets users by Ids
func (r *UserRepo) GetByIds(ctx context.Context, ids []string) ([]*entity.User, error) {
	var users []*entity.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Search finds users whose id or nickname contains keyword
func (r *UserRepo) Search(ctx context.Context, keyword string, limit int) ([]*entity.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	like := "%" + keyword + "%"

	var users []*entity.User
	err := r.db.WithContext(ctx).
		Where("id <> ? AND (id LIKE ? OR nickname LIKE ?)", constant.SentinelUserId, like, like).
		Order("id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// Update updates user info
func (r *UserRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	updates["updated_at"] = entity.NowUnixMilli()
	return r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Updates(updates).Error
}

// ExistsWithTx checks if user exists inside a transaction
func (r *UserRepo) ExistsWithTx(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	var count int64
	err := tx.Model(&entity.User{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LockById locks the user row; the lock serializes the deletion workflow.
func (r *UserRepo) LockById(ctx context.Context, tx *gorm.DB, id string) (*entity.User, error) {
	var user entity.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureSentinel creates the placeholder user that absorbs references of deleted users
func (r *UserRepo) EnsureSentinel(ctx context.Context, tx *gorm.DB) error {
	sentinel := &entity.User{
		Id:       constant.SentinelUserId,
		Nickname: "Deleted User",
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(sentinel).Error
}

// Delete removes the user row
func (r *UserRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	return tx.Where("id = ?", id).Delete(&entity.User{}).Error
}
