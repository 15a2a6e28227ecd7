package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DiscussionRepository struct {
	DB *gorm.DB
}

func NewDiscussionRepository(db *gorm.DB) *DiscussionRepository {
	return &DiscussionRepository{DB: db}
}

func (r *DiscussionRepository) CreateThread(ctx context.Context, t *model.DiscussionThread) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *DiscussionRepository) FindThread(ctx context.Context, id uint) (*model.DiscussionThread, error) {
	var t model.DiscussionThread
	if err := r.DB.WithContext(ctx).Preload("Author").First(&t, id).Error; err != nil {
		return nil, mapNotFound(err, util.ErrThreadNotFound)
	}
	return &t, nil
}

func (r *DiscussionRepository) ListThreads(ctx context.Context, courseID uint) ([]model.DiscussionThread, error) {
	var list []model.DiscussionThread
	err := r.DB.WithContext(ctx).
		Preload("Author").
		Where("course_id = ?", courseID).
		Order("is_pinned DESC, updated_at DESC").
		Find(&list).Error
	return list, err
}

func (r *DiscussionRepository) IncrementViews(ctx context.Context, threadID uint) error {
	return r.DB.WithContext(ctx).Model(&model.DiscussionThread{}).
		Where("id = ?", threadID).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

func (r *DiscussionRepository) UpdateThreadFlags(ctx context.Context, threadID uint, pinned, locked bool) error {
	return r.DB.WithContext(ctx).Model(&model.DiscussionThread{}).
		Where("id = ?", threadID).
		Updates(map[string]interface{}{"is_pinned": pinned, "is_locked": locked}).Error
}

// CreatePost 写入回复并累加主题回复数
func (r *DiscussionRepository) CreatePost(ctx context.Context, p *model.DiscussionPost) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Model(&model.DiscussionThread{}).
			Where("id = ?", p.ThreadID).
			Update("post_count", gorm.Expr("post_count + 1")).Error
	})
}

func (r *DiscussionRepository) FindPost(ctx context.Context, id uint) (*model.DiscussionPost, error) {
	var p model.DiscussionPost
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, mapNotFound(err, util.ErrPostNotFound)
	}
	return &p, nil
}

func (r *DiscussionRepository) ListPosts(ctx context.Context, threadID uint) ([]model.DiscussionPost, error) {
	var list []model.DiscussionPost
	err := r.DB.WithContext(ctx).
		Preload("Author").
		Where("thread_id = ?", threadID).
		Order("is_solution DESC, created_at ASC").
		Find(&list).Error
	return list, err
}

// ToggleLike 已点过则取消，返回点赞后状态与最新计数
func (r *DiscussionRepository) ToggleLike(ctx context.Context, postID, userID uint) (bool, int, error) {
	liked := false
	var likes int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&model.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		delta := -1
		if res.RowsAffected == 0 {
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.PostLike{PostID: postID, UserID: userID})
			if ins.Error != nil {
				return ins.Error
			}
			liked = true
			delta = 1
		}
		if err := tx.Model(&model.DiscussionPost{}).
			Where("id = ?", postID).
			Update("likes", gorm.Expr("likes + ?", delta)).Error; err != nil {
			return err
		}
		return tx.Model(&model.DiscussionPost{}).Where("id = ?", postID).Select("likes").Scan(&likes).Error
	})
	return liked, likes, err
}

func (r *DiscussionRepository) MarkSolution(ctx context.Context, threadID, postID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.DiscussionPost{}).
			Where("thread_id = ?", threadID).
			Update("is_solution", false).Error; err != nil {
			return err
		}
		return tx.Model(&model.DiscussionPost{}).
			Where("id = ? AND thread_id = ?", postID, threadID).
			Update("is_solution", true).Error
	})
}
