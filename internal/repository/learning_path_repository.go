package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type LearningPathRepository struct {
	DB *gorm.DB
}

func NewLearningPathRepository(db *gorm.DB) *LearningPathRepository {
	return &LearningPathRepository{DB: db}
}

// Create 课程关联只写入关联表，不回写课程本身
func (r *LearningPathRepository) Create(ctx context.Context, path *model.LearningPath) error {
	return r.DB.WithContext(ctx).Omit("Courses.*").Create(path).Error
}

func (r *LearningPathRepository) FindByID(ctx context.Context, id uint) (*model.LearningPath, error) {
	var path model.LearningPath
	if err := r.DB.WithContext(ctx).Preload("Courses").First(&path, id).Error; err != nil {
		return nil, mapNotFound(err, util.ErrPathNotFound)
	}
	return &path, nil
}

// ListVisible 公开路径以及 userID 自己创建的路径
func (r *LearningPathRepository) ListVisible(ctx context.Context, userID uint) ([]model.LearningPath, error) {
	var list []model.LearningPath
	err := r.DB.WithContext(ctx).
		Preload("Courses").
		Where("is_public = ? OR created_by_id = ?", true, userID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *LearningPathRepository) Delete(ctx context.Context, path *model.LearningPath) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(path).Association("Courses").Clear(); err != nil {
			return err
		}
		return tx.Delete(&model.LearningPath{}, path.ID).Error
	})
}
