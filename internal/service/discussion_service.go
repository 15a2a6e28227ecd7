package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
)

type DiscussionService struct {
	Repo           *repository.DiscussionRepository
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
}

func NewDiscussionService(
	repo *repository.DiscussionRepository,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
) *DiscussionService {
	return &DiscussionService{Repo: repo, CourseRepo: courseRepo, EnrollmentRepo: enrollmentRepo}
}

type ThreadRequest struct {
	LessonID *uint  `json:"lesson_id"`
	Title    string `json:"title" binding:"required,max=200"`
	Content  string `json:"content" binding:"required"`
}

type PostRequest struct {
	Content string `json:"content" binding:"required"`
}

type ThreadFlags struct {
	IsPinned bool `json:"is_pinned"`
	IsLocked bool `json:"is_locked"`
}

// participant 讨论区只对选课学生和课程管理者开放
func (s *DiscussionService) participant(ctx context.Context, actor Actor, courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if actor.CanManageCourse(course) {
		return course, nil
	}
	ok, err := s.EnrollmentRepo.Exists(ctx, actor.ID, courseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrEnrollmentNeeded
	}
	return course, nil
}

func (s *DiscussionService) CreateThread(ctx context.Context, actor Actor, courseID uint, req ThreadRequest) (*model.DiscussionThread, error) {
	if _, err := s.participant(ctx, actor, courseID); err != nil {
		return nil, err
	}
	t := &model.DiscussionThread{
		CourseID: courseID,
		LessonID: req.LessonID,
		AuthorID: actor.ID,
		Title:    req.Title,
		Content:  req.Content,
	}
	if err := s.Repo.CreateThread(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *DiscussionService) ListThreads(ctx context.Context, actor Actor, courseID uint) ([]model.DiscussionThread, error) {
	if _, err := s.participant(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return s.Repo.ListThreads(ctx, courseID)
}

type ThreadView struct {
	*model.DiscussionThread
	Posts []model.DiscussionPost `json:"posts"`
}

func (s *DiscussionService) GetThread(ctx context.Context, actor Actor, threadID uint) (*ThreadView, error) {
	t, err := s.Repo.FindThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if _, err := s.participant(ctx, actor, t.CourseID); err != nil {
		return nil, err
	}
	if err := s.Repo.IncrementViews(ctx, threadID); err != nil {
		logger.Log.Warn("increment thread views failed", zap.Uint("threadId", threadID), zap.Error(err))
	}
	posts, err := s.Repo.ListPosts(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return &ThreadView{DiscussionThread: t, Posts: posts}, nil
}

// Reply 锁定的帖子拒绝回复
func (s *DiscussionService) Reply(ctx context.Context, actor Actor, threadID uint, req PostRequest) (*model.DiscussionPost, error) {
	t, err := s.Repo.FindThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if _, err := s.participant(ctx, actor, t.CourseID); err != nil {
		return nil, err
	}
	if t.IsLocked {
		return nil, util.ErrThreadLocked
	}
	p := &model.DiscussionPost{ThreadID: threadID, AuthorID: actor.ID, Content: req.Content}
	if err := s.Repo.CreatePost(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

type LikeResult struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

func (s *DiscussionService) ToggleLike(ctx context.Context, actor Actor, postID uint) (*LikeResult, error) {
	p, err := s.Repo.FindPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	t, err := s.Repo.FindThread(ctx, p.ThreadID)
	if err != nil {
		return nil, err
	}
	if _, err := s.participant(ctx, actor, t.CourseID); err != nil {
		return nil, err
	}
	liked, likes, err := s.Repo.ToggleLike(ctx, postID, actor.ID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: liked, Likes: likes}, nil
}

// SetFlags 置顶与锁定由课程管理者操作
func (s *DiscussionService) SetFlags(ctx context.Context, actor Actor, threadID uint, flags ThreadFlags) error {
	t, err := s.Repo.FindThread(ctx, threadID)
	if err != nil {
		return err
	}
	course, err := s.CourseRepo.FindByID(ctx, t.CourseID)
	if err != nil {
		return err
	}
	if !actor.CanManageCourse(course) {
		return util.ErrNotCourseOwner
	}
	return s.Repo.UpdateThreadFlags(ctx, threadID, flags.IsPinned, flags.IsLocked)
}

// MarkSolution 发帖人或课程管理者可标记最佳回复
func (s *DiscussionService) MarkSolution(ctx context.Context, actor Actor, postID uint) error {
	p, err := s.Repo.FindPost(ctx, postID)
	if err != nil {
		return err
	}
	t, err := s.Repo.FindThread(ctx, p.ThreadID)
	if err != nil {
		return err
	}
	if t.AuthorID != actor.ID {
		course, err := s.CourseRepo.FindByID(ctx, t.CourseID)
		if err != nil {
			return err
		}
		if !actor.CanManageCourse(course) {
			return util.ErrPermissionDenied
		}
	}
	return s.Repo.MarkSolution(ctx, t.ID, p.ID)
}
