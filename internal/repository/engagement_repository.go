package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EngagementRepository 评分、收藏与课时笔记
type EngagementRepository struct {
	DB *gorm.DB
}

func NewEngagementRepository(db *gorm.DB) *EngagementRepository {
	return &EngagementRepository{DB: db}
}

func (r *EngagementRepository) WithTx(tx *gorm.DB) *EngagementRepository {
	return &EngagementRepository{DB: tx}
}

func (r *EngagementRepository) CreateRating(ctx context.Context, rating *model.CourseRating) error {
	return mapDuplicate(r.DB.WithContext(ctx).Create(rating).Error, util.ErrAlreadyRated)
}

func (r *EngagementRepository) FindRating(ctx context.Context, studentID, courseID uint) (*model.CourseRating, error) {
	var rating model.CourseRating
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&rating).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrRatingNotFound)
	}
	return &rating, nil
}

func (r *EngagementRepository) SaveRating(ctx context.Context, rating *model.CourseRating) error {
	return r.DB.WithContext(ctx).Omit("Student").Save(rating).Error
}

func (r *EngagementRepository) ListRatings(ctx context.Context, courseID uint) ([]model.CourseRating, error) {
	var list []model.CourseRating
	err := r.DB.WithContext(ctx).
		Preload("Student").
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// RatingAggregate 课程评分均值与条数
func (r *EngagementRepository) RatingAggregate(ctx context.Context, courseID uint) (float64, int, error) {
	var agg struct {
		Avg   float64
		Total int
	}
	err := r.DB.WithContext(ctx).Model(&model.CourseRating{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS total").
		Where("course_id = ?", courseID).
		Scan(&agg).Error
	return agg.Avg, agg.Total, err
}

func (r *EngagementRepository) AddWishlist(ctx context.Context, studentID, courseID uint) error {
	w := &model.Wishlist{StudentID: studentID, CourseID: courseID}
	return mapDuplicate(r.DB.WithContext(ctx).Create(w).Error, util.ErrAlreadyWishlisted)
}

func (r *EngagementRepository) InWishlist(ctx context.Context, studentID, courseID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Wishlist{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error
	return count > 0, err
}

func (r *EngagementRepository) RemoveWishlist(ctx context.Context, studentID, courseID uint) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Delete(&model.Wishlist{})
	return res.RowsAffected > 0, res.Error
}

func (r *EngagementRepository) ListWishlist(ctx context.Context, studentID uint) ([]model.Wishlist, error) {
	var list []model.Wishlist
	err := r.DB.WithContext(ctx).
		Preload("Course").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// UpsertNote 每个 (user, lesson) 仅一条笔记
func (r *EngagementRepository) UpsertNote(ctx context.Context, note *model.LessonNote) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"notes", "updated_at"}),
	}).Create(note).Error
}

func (r *EngagementRepository) FindNote(ctx context.Context, userID, lessonID uint) (*model.LessonNote, error) {
	var note model.LessonNote
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&note).Error
	if err != nil {
		return nil, mapNotFound(err, util.NotFoundError("note not found"))
	}
	return &note, nil
}
