package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

// CourseFilter 课程列表查询条件，零值字段不参与过滤
type CourseFilter struct {
	CategoryID   uint
	InstructorID uint
	Difficulty   model.Difficulty
	Status       model.CourseStatus
	Search       string
	FeaturedOnly bool
	Page         int
	Limit        int
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return mapDuplicate(r.DB.WithContext(ctx).Create(course).Error, util.ErrDuplicateSlug)
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Preload("Instructor").
		Preload("Category").
		First(&course, id).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrCourseNotFound)
	}
	return &course, nil
}

// FindWithContent 按顺序预加载模块与课时
func (r *CourseRepository) FindWithContent(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Preload("Instructor").
		Preload("Category").
		Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		First(&course, id).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrCourseNotFound)
	}
	return &course, nil
}

func (r *CourseRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Course{}).
		Where("slug = ? AND id <> ?", slug, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *CourseRepository) Update(ctx context.Context, course *model.Course) error {
	return mapDuplicate(r.DB.WithContext(ctx).Omit("Instructor", "Category", "Modules").Save(course).Error, util.ErrDuplicateSlug)
}

// Delete 删除课程及其模块、课时
func (r *CourseRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moduleIDs := tx.Model(&model.Module{}).Select("id").Where("course_id = ?", id)
		if err := tx.Where("module_id IN (?)", moduleIDs).Delete(&model.Lesson{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Module{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Course{}, id).Error
	})
}

func (r *CourseRepository) List(ctx context.Context, f CourseFilter) ([]model.Course, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.Course{})
	if f.CategoryID != 0 {
		query = query.Where("category_id = ?", f.CategoryID)
	}
	if f.InstructorID != 0 {
		query = query.Where("instructor_id = ?", f.InstructorID)
	}
	if f.Difficulty != "" {
		query = query.Where("difficulty = ?", f.Difficulty)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.FeaturedOnly {
		query = query.Where("is_featured = ?", true)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("title LIKE ? OR short_description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * f.Limit).Limit(f.Limit)
	}

	var courses []model.Course
	err := query.Preload("Instructor").Preload("Category").
		Order("is_featured DESC, created_at DESC").
		Find(&courses).Error
	return courses, total, err
}

// CountLessons 课程下全部课时数（跨模块）
func (r *CourseRepository) CountLessons(ctx context.Context, courseID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Lesson{}).
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ?", courseID).
		Count(&count).Error
	return count, err
}

func (r *CourseRepository) SetTotalLessons(ctx context.Context, courseID uint, total int) error {
	return r.DB.WithContext(ctx).Model(&model.Course{}).
		Where("id = ?", courseID).
		Update("total_lessons", total).Error
}

func (r *CourseRepository) UpdateRating(ctx context.Context, courseID uint, rating float64, total int) error {
	return r.DB.WithContext(ctx).Model(&model.Course{}).
		Where("id = ?", courseID).
		Updates(map[string]interface{}{"rating": rating, "total_ratings": total}).Error
}

func (r *CourseRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Course, error) {
	var courses []model.Course
	if len(ids) == 0 {
		return courses, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	return mapDuplicate(r.DB.WithContext(ctx).Create(c).Error, util.ErrCategoryExists)
}

func (r *CourseRepository) FindCategory(ctx context.Context, id uint) (*model.Category, error) {
	var c model.Category
	if err := r.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, mapNotFound(err, util.ErrCategoryNotFound)
	}
	return &c, nil
}

func (r *CourseRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.DB.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *CourseRepository) UpdateCategory(ctx context.Context, c *model.Category) error {
	return mapDuplicate(r.DB.WithContext(ctx).Save(c).Error, util.ErrCategoryExists)
}

// DeleteCategory 课程的分类引用置空后再删除
func (r *CourseRepository) DeleteCategory(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Course{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Category{}, id).Error
	})
}
