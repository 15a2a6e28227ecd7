package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GamificationRepository struct {
	DB *gorm.DB
}

func NewGamificationRepository(db *gorm.DB) *GamificationRepository {
	return &GamificationRepository{DB: db}
}

func (r *GamificationRepository) WithTx(tx *gorm.DB) *GamificationRepository {
	return &GamificationRepository{DB: tx}
}

func (r *GamificationRepository) ListBadges(ctx context.Context) ([]model.Badge, error) {
	var list []model.Badge
	err := r.DB.WithContext(ctx).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *GamificationRepository) CreateBadge(ctx context.Context, b *model.Badge) error {
	return mapDuplicate(r.DB.WithContext(ctx).Create(b).Error, util.ConflictError("badge already exists"))
}

func (r *GamificationRepository) DeleteBadge(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("badge_id = ?", id).Delete(&model.UserBadge{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Badge{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrBadgeNotFound
		}
		return nil
	})
}

// Award 幂等授予，返回本次是否新授予
func (r *GamificationRepository) Award(ctx context.Context, userID, badgeID uint) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserBadge{UserID: userID, BadgeID: badgeID, EarnedAt: time.Now()})
	return res.RowsAffected > 0, res.Error
}

func (r *GamificationRepository) ListUserBadges(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	var list []model.UserBadge
	err := r.DB.WithContext(ctx).
		Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_at ASC").
		Find(&list).Error
	return list, err
}

func (r *GamificationRepository) EarnedBadgeIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	if err := r.DB.WithContext(ctx).Model(&model.UserBadge{}).
		Where("user_id = ?", userID).
		Pluck("badge_id", &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
