package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

// ContentRepository 课程模块与课时
type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func (r *ContentRepository) WithTx(tx *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: tx}
}

func (r *ContentRepository) CreateModule(ctx context.Context, m *model.Module) error {
	return mapDuplicate(r.DB.WithContext(ctx).Create(m).Error, util.ErrDuplicateOrder)
}

func (r *ContentRepository) FindModule(ctx context.Context, id uint) (*model.Module, error) {
	var m model.Module
	if err := r.DB.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, mapNotFound(err, util.ErrModuleNotFound)
	}
	return &m, nil
}

func (r *ContentRepository) ListModules(ctx context.Context, courseID uint) ([]model.Module, error) {
	var modules []model.Module
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Order("sort_order ASC").
		Find(&modules).Error
	return modules, err
}

func (r *ContentRepository) ModuleOrderTaken(ctx context.Context, courseID uint, order int, excludeID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Module{}).
		Where("course_id = ? AND sort_order = ? AND id <> ?", courseID, order, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *ContentRepository) UpdateModule(ctx context.Context, m *model.Module) error {
	return mapDuplicate(r.DB.WithContext(ctx).Omit("Lessons").Save(m).Error, util.ErrDuplicateOrder)
}

func (r *ContentRepository) DeleteModule(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("module_id = ?", id).Delete(&model.Lesson{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Module{}, id).Error
	})
}

func (r *ContentRepository) CreateLesson(ctx context.Context, l *model.Lesson) error {
	return mapDuplicate(r.DB.WithContext(ctx).Create(l).Error, util.ErrDuplicateOrder)
}

func (r *ContentRepository) FindLesson(ctx context.Context, id uint) (*model.Lesson, error) {
	var l model.Lesson
	if err := r.DB.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, mapNotFound(err, util.ErrLessonNotFound)
	}
	return &l, nil
}

// LessonCourseID 课时所属课程，经由模块关联
func (r *ContentRepository) LessonCourseID(ctx context.Context, lessonID uint) (uint, error) {
	var courseID uint
	res := r.DB.WithContext(ctx).Model(&model.Lesson{}).
		Select("modules.course_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("lessons.id = ?", lessonID).
		Scan(&courseID)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 || courseID == 0 {
		return 0, util.ErrLessonNotFound
	}
	return courseID, nil
}

func (r *ContentRepository) LessonOrderTaken(ctx context.Context, moduleID uint, order int, excludeID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Lesson{}).
		Where("module_id = ? AND sort_order = ? AND id <> ?", moduleID, order, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *ContentRepository) UpdateLesson(ctx context.Context, l *model.Lesson) error {
	return mapDuplicate(r.DB.WithContext(ctx).Save(l).Error, util.ErrDuplicateOrder)
}

func (r *ContentRepository) DeleteLesson(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.Lesson{}, id).Error
}

// ListLessonsByCourse 按模块顺序、课时顺序排列
func (r *ContentRepository) ListLessonsByCourse(ctx context.Context, courseID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.WithContext(ctx).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ?", courseID).
		Order("modules.sort_order ASC, lessons.sort_order ASC").
		Find(&lessons).Error
	return lessons, err
}
