package service

import (
	"context"
	"fmt"
	"io"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"mime/multipart"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ContentService 模块与课时管理，课时增删后同步课程进度
type ContentService struct {
	Repo           *repository.ContentRepository
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Progress       *ProgressService
	Storage        *StorageService
	Prober         util.VideoProber
}

func NewContentService(
	repo *repository.ContentRepository,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	progress *ProgressService,
	storage *StorageService,
	prober util.VideoProber,
) *ContentService {
	if prober == nil {
		prober = util.FFProbe{}
	}
	return &ContentService{
		Repo:           repo,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		Progress:       progress,
		Storage:        storage,
		Prober:         prober,
	}
}

type ModuleRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
	Order       int    `json:"order" binding:"min=0"`
	Duration    int    `json:"duration" binding:"min=0"`
	IsFree      bool   `json:"is_free"`
}

type LessonRequest struct {
	Title      string           `json:"title" binding:"required,max=200"`
	Content    string           `json:"content"`
	LessonType model.LessonType `json:"lesson_type" binding:"omitempty,oneof=video text quiz assignment file"`
	VideoURL   string           `json:"video_url"`
	FileURL    string           `json:"file_url"`
	Duration   int              `json:"duration" binding:"min=0"`
	Order      int              `json:"order" binding:"min=0"`
	IsFree     bool             `json:"is_free"`
}

func (s *ContentService) managedCourse(ctx context.Context, actor Actor, courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageCourse(course) {
		return nil, util.ErrNotCourseOwner
	}
	return course, nil
}

func (s *ContentService) managedModule(ctx context.Context, actor Actor, moduleID uint) (*model.Module, error) {
	m, err := s.Repo.FindModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.managedCourse(ctx, actor, m.CourseID); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ContentService) managedLesson(ctx context.Context, actor Actor, lessonID uint) (*model.Lesson, uint, error) {
	l, err := s.Repo.FindLesson(ctx, lessonID)
	if err != nil {
		return nil, 0, err
	}
	m, err := s.managedModule(ctx, actor, l.ModuleID)
	if err != nil {
		return nil, 0, err
	}
	return l, m.CourseID, nil
}

func (s *ContentService) ListModules(ctx context.Context, courseID uint) ([]model.Module, error) {
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.Repo.ListModules(ctx, courseID)
}

func (s *ContentService) CreateModule(ctx context.Context, actor Actor, courseID uint, req ModuleRequest) (*model.Module, error) {
	if _, err := s.managedCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}
	taken, err := s.Repo.ModuleOrderTaken(ctx, courseID, req.Order, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, util.ErrDuplicateOrder
	}
	m := &model.Module{
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		SortOrder:   req.Order,
		Duration:    req.Duration,
		IsFree:      req.IsFree,
	}
	if err := s.Repo.CreateModule(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ContentService) UpdateModule(ctx context.Context, actor Actor, moduleID uint, req ModuleRequest) (*model.Module, error) {
	m, err := s.managedModule(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	taken, err := s.Repo.ModuleOrderTaken(ctx, m.CourseID, req.Order, m.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, util.ErrDuplicateOrder
	}
	m.Title = req.Title
	m.Description = req.Description
	m.SortOrder = req.Order
	m.Duration = req.Duration
	m.IsFree = req.IsFree
	if err := s.Repo.UpdateModule(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ContentService) DeleteModule(ctx context.Context, actor Actor, moduleID uint) error {
	m, err := s.managedModule(ctx, actor, moduleID)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteModule(ctx, moduleID); err != nil {
		return err
	}
	return s.Progress.ResyncCourse(ctx, m.CourseID)
}

func (s *ContentService) CreateLesson(ctx context.Context, actor Actor, moduleID uint, req LessonRequest) (*model.Lesson, error) {
	m, err := s.managedModule(ctx, actor, moduleID)
	if err != nil {
		return nil, err
	}
	taken, err := s.Repo.LessonOrderTaken(ctx, moduleID, req.Order, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, util.ErrDuplicateOrder
	}
	l := &model.Lesson{
		ModuleID:   moduleID,
		Title:      req.Title,
		Content:    req.Content,
		LessonType: req.LessonType,
		VideoURL:   req.VideoURL,
		FileURL:    req.FileURL,
		Duration:   req.Duration,
		SortOrder:  req.Order,
		IsFree:     req.IsFree,
	}
	if l.LessonType == "" {
		l.LessonType = model.LessonVideo
	}
	if err := s.Repo.CreateLesson(ctx, l); err != nil {
		return nil, err
	}
	if err := s.Progress.ResyncCourse(ctx, m.CourseID); err != nil {
		return nil, fmt.Errorf("resync course progress: %w", err)
	}
	return l, nil
}

func (s *ContentService) UpdateLesson(ctx context.Context, actor Actor, lessonID uint, req LessonRequest) (*model.Lesson, error) {
	l, _, err := s.managedLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}
	taken, err := s.Repo.LessonOrderTaken(ctx, l.ModuleID, req.Order, l.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, util.ErrDuplicateOrder
	}
	l.Title = req.Title
	l.Content = req.Content
	l.VideoURL = req.VideoURL
	l.FileURL = req.FileURL
	l.Duration = req.Duration
	l.SortOrder = req.Order
	l.IsFree = req.IsFree
	if req.LessonType != "" {
		l.LessonType = req.LessonType
	}
	if err := s.Repo.UpdateLesson(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *ContentService) DeleteLesson(ctx context.Context, actor Actor, lessonID uint) error {
	_, courseID, err := s.managedLesson(ctx, actor, lessonID)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteLesson(ctx, lessonID); err != nil {
		return err
	}
	return s.Progress.ResyncCourse(ctx, courseID)
}

// GetLesson 免费课时公开，其余需选课或管理权限
func (s *ContentService) GetLesson(ctx context.Context, actor Actor, lessonID uint) (*model.Lesson, error) {
	l, err := s.Repo.FindLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if l.IsFree {
		return l, nil
	}
	courseID, err := s.Repo.LessonCourseID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if actor.CanManageCourse(course) {
		return l, nil
	}
	ok, err := s.EnrollmentRepo.Exists(ctx, actor.ID, courseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrEnrollmentNeeded
	}
	if err := s.EnrollmentRepo.Touch(ctx, actor.ID, courseID); err != nil {
		logger.Log.Warn("touch enrollment failed", zap.Uint("courseId", courseID), zap.Error(err))
	}
	return l, nil
}

// UploadLessonVideo 先落临时文件探测时长，再写入对象存储
func (s *ContentService) UploadLessonVideo(ctx context.Context, actor Actor, lessonID uint, fh *multipart.FileHeader) (*model.Lesson, error) {
	l, _, err := s.managedLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}
	if !util.HasVideoExtension(fh.Filename) {
		return nil, util.Validationf("unsupported video extension %s", filepath.Ext(fh.Filename))
	}

	duration, err := s.probe(fh)
	if err != nil {
		logger.Log.Warn("probe lesson video failed", zap.Uint("lessonId", lessonID), zap.Error(err))
	}

	file, err := s.Storage.Save(ctx, "videos", fh, util.MaxVideoSize, []string{util.MimeVideo, util.MimeOctetStream})
	if err != nil {
		return nil, err
	}
	l.VideoURL = file.URL
	l.LessonType = model.LessonVideo
	if duration > 0 {
		l.Duration = duration
	}
	if err := s.Repo.UpdateLesson(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *ContentService) probe(fh *multipart.FileHeader) (int, error) {
	src, err := fh.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "lesson-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if _, err := io.Copy(tmp, src); err != nil {
		return 0, err
	}

	info, err := s.Prober.Probe(tmp.Name())
	if err != nil {
		return 0, err
	}
	return info.DurationSeconds(), nil
}

func (s *ContentService) UploadAttachment(ctx context.Context, actor Actor, lessonID uint, fh *multipart.FileHeader) (*model.Lesson, error) {
	l, _, err := s.managedLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}
	file, err := s.Storage.Save(ctx, "attachments", fh, util.MaxAttachmentSize, util.DocumentMimeTypes)
	if err != nil {
		return nil, err
	}
	l.FileURL = file.URL
	if err := s.Repo.UpdateLesson(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}
