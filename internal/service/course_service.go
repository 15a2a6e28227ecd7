package service

import (
	"context"
	"encoding/json"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"mime/multipart"
	"strings"

	"go.uber.org/zap"
)

type CourseService struct {
	Repo    *repository.CourseRepository
	Storage *StorageService
	Cache   *StatsCache
}

func NewCourseService(repo *repository.CourseRepository, storage *StorageService, cache *StatsCache) *CourseService {
	return &CourseService{Repo: repo, Storage: storage, Cache: cache}
}

// CourseRequest 列表字段同时接受 JSON 数组与 JSON 字符串
type CourseRequest struct {
	Title            string             `json:"title" binding:"required,max=200"`
	Description      string             `json:"description"`
	ShortDescription string             `json:"short_description" binding:"max=300"`
	CategoryID       *uint              `json:"category_id"`
	Thumbnail        string             `json:"thumbnail"`
	VideoIntro       string             `json:"video_intro"`
	Price            float64            `json:"price" binding:"min=0"`
	OriginalPrice    *float64           `json:"original_price" binding:"omitempty,min=0"`
	Difficulty       model.Difficulty   `json:"difficulty" binding:"omitempty,oneof=beginner intermediate advanced"`
	Status           model.CourseStatus `json:"status" binding:"omitempty,oneof=draft published archived"`
	Language         string             `json:"language"`
	Duration         int                `json:"duration" binding:"min=0"`
	IsFeatured       bool               `json:"is_featured"`
	Tags             json.RawMessage    `json:"tags" binding:"omitempty,stringlist" swaggertype:"array,string"`
	Requirements     json.RawMessage    `json:"requirements" binding:"omitempty,stringlist" swaggertype:"array,string"`
	LearningOutcomes json.RawMessage    `json:"learning_outcomes" binding:"omitempty,stringlist" swaggertype:"array,string"`
}

func (s *CourseService) apply(ctx context.Context, actor Actor, course *model.Course, req CourseRequest) error {
	tags, err := util.ParseStringList(req.Tags)
	if err != nil {
		return util.Validationf("tags: %s", err.Error())
	}
	reqs, err := util.ParseStringList(req.Requirements)
	if err != nil {
		return util.Validationf("requirements: %s", err.Error())
	}
	outcomes, err := util.ParseStringList(req.LearningOutcomes)
	if err != nil {
		return util.Validationf("learning_outcomes: %s", err.Error())
	}
	if req.CategoryID != nil {
		if _, err := s.Repo.FindCategory(ctx, *req.CategoryID); err != nil {
			return err
		}
	}

	course.Title = strings.TrimSpace(req.Title)
	course.Description = req.Description
	course.ShortDescription = req.ShortDescription
	course.CategoryID = req.CategoryID
	course.Category = nil
	course.VideoIntro = req.VideoIntro
	course.Price = req.Price
	course.OriginalPrice = req.OriginalPrice
	course.Duration = req.Duration
	course.Tags = tags
	course.Requirements = reqs
	course.LearningOutcomes = outcomes
	if req.Thumbnail != "" {
		course.Thumbnail = req.Thumbnail
	}
	if req.Difficulty != "" {
		course.Difficulty = req.Difficulty
	}
	if req.Status != "" {
		course.Status = req.Status
	}
	if req.Language != "" {
		course.Language = req.Language
	}
	// 推荐位只有管理员能设置
	if actor.Role == model.Admin {
		course.IsFeatured = req.IsFeatured
	}
	return nil
}

// uniqueSlug 标题冲突时追加 -2、-3 ...
func (s *CourseService) uniqueSlug(ctx context.Context, title string, excludeID uint) (string, error) {
	base := util.Slugify(title)
	slug := base
	for i := 2; i < 100; i++ {
		taken, err := s.Repo.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return "", util.ErrDuplicateSlug
}

func (s *CourseService) CreateCourse(ctx context.Context, actor Actor, req CourseRequest) (*model.Course, error) {
	if !actor.CanAuthor() {
		return nil, util.ErrPermissionDenied
	}
	course := &model.Course{
		InstructorID: actor.ID,
		Status:       model.CourseDraft,
		Difficulty:   model.Beginner,
		Language:     "English",
	}
	if err := s.apply(ctx, actor, course, req); err != nil {
		return nil, err
	}
	slug, err := s.uniqueSlug(ctx, course.Title, 0)
	if err != nil {
		return nil, err
	}
	course.Slug = slug
	if err := s.Repo.Create(ctx, course); err != nil {
		return nil, err
	}
	logger.Log.Info("course created", zap.Uint("courseId", course.ID), zap.Uint("instructorId", actor.ID))
	return course, nil
}

func (s *CourseService) ownedCourse(ctx context.Context, actor Actor, courseID uint) (*model.Course, error) {
	course, err := s.Repo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageCourse(course) {
		return nil, util.ErrNotCourseOwner
	}
	return course, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, actor Actor, courseID uint, req CourseRequest) (*model.Course, error) {
	course, err := s.ownedCourse(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	oldTitle := course.Title
	if err := s.apply(ctx, actor, course, req); err != nil {
		return nil, err
	}
	if course.Title != oldTitle {
		if course.Slug, err = s.uniqueSlug(ctx, course.Title, course.ID); err != nil {
			return nil, err
		}
	}
	if err := s.Repo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) DeleteCourse(ctx context.Context, actor Actor, courseID uint) error {
	course, err := s.ownedCourse(ctx, actor, courseID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, courseID); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, instructorStatsKey(course.InstructorID))
	logger.Log.Info("course deleted", zap.Uint("courseId", courseID), zap.Uint("by", actor.ID))
	return nil
}

// GetCourse 未发布课程只对管理者可见，其余人视为不存在
func (s *CourseService) GetCourse(ctx context.Context, actor *Actor, courseID uint) (*model.Course, error) {
	course, err := s.Repo.FindWithContent(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.Status != model.CoursePublished && (actor == nil || !actor.CanManageCourse(course)) {
		return nil, util.ErrCourseNotFound
	}
	return course, nil
}

type CourseQuery struct {
	CategoryID uint             `form:"category"`
	Difficulty model.Difficulty `form:"difficulty"`
	Search     string           `form:"search"`
	Featured   bool             `form:"featured"`
	Page       int              `form:"page"`
	Limit      int              `form:"limit"`
}

// ListCourses 公开目录只含已发布课程
func (s *CourseService) ListCourses(ctx context.Context, q CourseQuery) ([]model.Course, int64, error) {
	return s.Repo.List(ctx, repository.CourseFilter{
		CategoryID:   q.CategoryID,
		Difficulty:   q.Difficulty,
		Status:       model.CoursePublished,
		Search:       strings.TrimSpace(q.Search),
		FeaturedOnly: q.Featured,
		Page:         q.Page,
		Limit:        q.Limit,
	})
}

func (s *CourseService) ListInstructorCourses(ctx context.Context, actor Actor) ([]model.Course, error) {
	if !actor.CanAuthor() {
		return nil, util.ErrPermissionDenied
	}
	courses, _, err := s.Repo.List(ctx, repository.CourseFilter{InstructorID: actor.ID})
	return courses, err
}

func (s *CourseService) UploadThumbnail(ctx context.Context, actor Actor, courseID uint, fh *multipart.FileHeader) (*model.Course, error) {
	course, err := s.ownedCourse(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	file, err := s.Storage.Save(ctx, "thumbnails", fh, util.MaxAvatarSize, []string{util.MimeImage})
	if err != nil {
		return nil, err
	}
	course.Thumbnail = file.URL
	if err := s.Repo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	Icon        string `json:"icon" binding:"max=50"`
}

func (s *CourseService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.Repo.ListCategories(ctx)
}

func (s *CourseService) CreateCategory(ctx context.Context, req CategoryRequest) (*model.Category, error) {
	c := &model.Category{Name: strings.TrimSpace(req.Name), Description: req.Description, Icon: req.Icon}
	if err := s.Repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CourseService) UpdateCategory(ctx context.Context, id uint, req CategoryRequest) (*model.Category, error) {
	c, err := s.Repo.FindCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(req.Name)
	c.Description = req.Description
	c.Icon = req.Icon
	if err := s.Repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CourseService) DeleteCategory(ctx context.Context, id uint) error {
	if _, err := s.Repo.FindCategory(ctx, id); err != nil {
		return err
	}
	return s.Repo.DeleteCategory(ctx, id)
}
