package repository

import (
	"context"
	"lms_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository 课时级观看进度
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

// LockOrCreate 不存在时插入空记录（并发插入由唯一索引去重），再加锁读取
func (r *ProgressRepository) LockOrCreate(ctx context.Context, studentID, lessonID uint) (*model.LessonProgress, error) {
	db := r.DB.WithContext(ctx)
	seed := &model.LessonProgress{StudentID: studentID, LessonID: lessonID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, err
	}

	var lp model.LessonProgress
	err := forUpdate(db).
		Where("student_id = ? AND lesson_id = ?", studentID, lessonID).
		First(&lp).Error
	if err != nil {
		return nil, err
	}
	return &lp, nil
}

func (r *ProgressRepository) Save(ctx context.Context, lp *model.LessonProgress) error {
	return r.DB.WithContext(ctx).Save(lp).Error
}

// CountCompletedInCourse 学生在课程内已完成的课时数
func (r *ProgressRepository) CountCompletedInCourse(ctx context.Context, studentID, courseID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LessonProgress{}).
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("lesson_progress.student_id = ? AND lesson_progress.is_completed = ? AND modules.course_id = ?", studentID, true, courseID).
		Count(&count).Error
	return count, err
}

func (r *ProgressRepository) ListInCourse(ctx context.Context, studentID, courseID uint) ([]model.LessonProgress, error) {
	var list []model.LessonProgress
	err := r.DB.WithContext(ctx).
		Joins("JOIN lessons ON lessons.id = lesson_progress.lesson_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("lesson_progress.student_id = ? AND modules.course_id = ?", studentID, courseID).
		Find(&list).Error
	return list, err
}

func (r *ProgressRepository) Find(ctx context.Context, studentID, lessonID uint) (*model.LessonProgress, error) {
	var lp model.LessonProgress
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND lesson_id = ?", studentID, lessonID).
		First(&lp).Error
	if err != nil {
		return nil, err
	}
	return &lp, nil
}

func (r *ProgressRepository) CountCompletedByStudent(ctx context.Context, studentID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LessonProgress{}).
		Where("student_id = ? AND is_completed = ?", studentID, true).
		Count(&count).Error
	return count, err
}
