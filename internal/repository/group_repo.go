package repository

import (
	"context"

	"github.com/zhusq20/CapybaraChat/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupRepo is the repository for group operations
type GroupRepo struct {
	db *gorm.DB
}

// NewGroupRepo creates a new GroupRepo
func NewGroupRepo(db *gorm.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// Create creates a new group
func (r *GroupRepo) Create(ctx context.Context, tx *gorm.DB, group *entity.Group) error {
	now := entity.NowUnixMilli()
	group.CreatedAt = now
	group.UpdatedAt = now
	return tx.Create(group).Error
}

// GetById gets group by Id
func (r *GroupRepo) GetById(ctx context.Context, id string) (*entity.Group, error) {
	var group entity.Group
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetByIdWithTx gets group by Id with transaction
func (r *GroupRepo) GetByIdWithTx(ctx context.Context, tx *gorm.DB, id string) (*entity.Group, error) {
	var group entity.Group
	err := tx.Where("id = ?", id).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// LockById loads the group row with a write lock; role changes of one group serialize on it
func (r *GroupRepo) LockById(ctx context.Context, tx *gorm.DB, id string) (*entity.Group, error) {
	var group entity.Group
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetByConversationId gets the group layered on a conversation
func (r *GroupRepo) GetByConversationId(ctx context.Context, tx *gorm.DB, conversationId string) (*entity.Group, error) {
	var group entity.Group
	err := tx.Where("conversation_id = ?", conversationId).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// UpdateMaster hands the master seat to userId
func (r *GroupRepo) UpdateMaster(ctx context.Context, tx *gorm.DB, groupId, userId string) error {
	return tx.Model(&entity.Group{}).
		Where("id = ?", groupId).
		Updates(map[string]interface{}{
			"master_id":  userId,
			"updated_at": entity.NowUnixMilli(),
		}).Error
}

// ListMastered returns the groups mastered by userId
func (r *GroupRepo) ListMastered(ctx context.Context, tx *gorm.DB, userId string) ([]*entity.Group, error) {
	var groups []*entity.Group
	err := tx.Where("master_id = ?", userId).Order("id ASC").Find(&groups).Error
	return groups, err
}

// ListManagers returns the manager ids of a group
func (r *GroupRepo) ListManagers(ctx context.Context, tx *gorm.DB, groupId string) ([]string, error) {
	var userIds []string
	err := tx.Model(&entity.GroupManager{}).
		Where("group_id = ?", groupId).
		Order("user_id ASC").
		Pluck("user_id", &userIds).Error
	return userIds, err
}

// IsManager checks whether userId is a manager of the group
func (r *GroupRepo) IsManager(ctx context.Context, tx *gorm.DB, groupId, userId string) (bool, error) {
	var count int64
	err := tx.Model(&entity.GroupManager{}).
		Where("group_id = ? AND user_id = ?", groupId, userId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddManagers flags userIds as managers; existing flags are kept
func (r *GroupRepo) AddManagers(ctx context.Context, tx *gorm.DB, groupId string, userIds []string) error {
	if len(userIds) == 0 {
		return nil
	}
	managers := make([]*entity.GroupManager, 0, len(userIds))
	for _, id := range userIds {
		managers = append(managers, &entity.GroupManager{GroupId: groupId, UserId: id})
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&managers).Error
}

// RemoveManagers clears the manager flag of userIds
func (r *GroupRepo) RemoveManagers(ctx context.Context, tx *gorm.DB, groupId string, userIds []string) error {
	if len(userIds) == 0 {
		return nil
	}
	return tx.Where("group_id = ? AND user_id IN ?", groupId, userIds).Delete(&entity.GroupManager{}).Error
}

// RemoveManagersByUser clears every manager flag of userId
func (r *GroupRepo) RemoveManagersByUser(ctx context.Context, tx *gorm.DB, userId string) error {
	return tx.Where("user_id = ?", userId).Delete(&entity.GroupManager{}).Error
}

// ListManagersOf returns manager ids for several groups at once
func (r *GroupRepo) ListManagersOf(ctx context.Context, groupIds []string) (map[string][]string, error) {
	result := make(map[string][]string, len(groupIds))
	if len(groupIds) == 0 {
		return result, nil
	}
	var managers []*entity.GroupManager
	err := r.db.WithContext(ctx).Where("group_id IN ?", groupIds).Order("user_id ASC").Find(&managers).Error
	if err != nil {
		return nil, err
	}
	for _, m := range managers {
		result[m.GroupId] = append(result[m.GroupId], m.UserId)
	}
	return result, nil
}

// ListByUser gets all groups that user is a member of
func (r *GroupRepo) ListByUser(ctx context.Context, userId string) ([]*entity.Group, error) {
	var groups []*entity.Group
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_members cm ON cm.conversation_id = chat_groups.conversation_id").
		Where("cm.user_id = ?", userId).
		Order("chat_groups.id ASC").
		Find(&groups).Error
	return groups, err
}

// ListAdministeredIds returns ids of groups userId masters or manages
func (r *GroupRepo) ListAdministeredIds(ctx context.Context, userId string) ([]string, error) {
	var mastered []string
	if err := r.db.WithContext(ctx).Model(&entity.Group{}).Where("master_id = ?", userId).Pluck("id", &mastered).Error; err != nil {
		return nil, err
	}
	var managed []string
	if err := r.db.WithContext(ctx).Model(&entity.GroupManager{}).Where("user_id = ?", userId).Pluck("group_id", &managed).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(mastered)+len(managed))
	ids := make([]string, 0, len(mastered)+len(managed))
	for _, id := range append(mastered, managed...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// AddNotice links a notice message into the group's notice list
func (r *GroupRepo) AddNotice(ctx context.Context, tx *gorm.DB, groupId string, messageId int64) error {
	notice := &entity.GroupNotice{
		GroupId:   groupId,
		MessageId: messageId,
		CreatedAt: entity.NowUnixMilli(),
	}
	return tx.Create(notice).Error
}

// ListNotices returns the notices of a group in posting order
func (r *GroupRepo) ListNotices(ctx context.Context, groupId string) ([]*entity.NoticeInfo, error) {
	var notices []*entity.NoticeInfo
	err := r.db.WithContext(ctx).
		Table("group_notices gn").
		Select("m.id AS message_id, m.sender_id AS sender_id, m.content AS content, m.created_at AS created_at").
		Joins("JOIN messages m ON m.id = gn.message_id").
		Where("gn.group_id = ?", groupId).
		Order("m.id ASC").
		Scan(&notices).Error
	return notices, err
}
