package service

import (
	"context"
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LearningPathService struct {
	DB         *gorm.DB
	Repo       *repository.LearningPathRepository
	CourseRepo *repository.CourseRepository
	Enrollment *EnrollmentService
}

func NewLearningPathService(
	db *gorm.DB,
	repo *repository.LearningPathRepository,
	courseRepo *repository.CourseRepository,
	enrollment *EnrollmentService,
) *LearningPathService {
	return &LearningPathService{DB: db, Repo: repo, CourseRepo: courseRepo, Enrollment: enrollment}
}

type LearningPathRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
	IsPublic    *bool  `json:"is_public"`
	CourseIDs   []uint `json:"course_ids" binding:"required,min=1"`
}

func (s *LearningPathService) List(ctx context.Context, userID uint) ([]model.LearningPath, error) {
	return s.Repo.ListVisible(ctx, userID)
}

func (s *LearningPathService) Get(ctx context.Context, actor Actor, id uint) (*model.LearningPath, error) {
	path, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !path.IsPublic && path.CreatedByID != actor.ID && actor.Role != model.Admin {
		return nil, util.ErrPathNotFound
	}
	return path, nil
}

func (s *LearningPathService) Create(ctx context.Context, actor Actor, req LearningPathRequest) (*model.LearningPath, error) {
	if !actor.CanAuthor() {
		return nil, util.ErrPermissionDenied
	}
	courses, err := s.CourseRepo.FindByIDs(ctx, req.CourseIDs)
	if err != nil {
		return nil, err
	}
	if len(courses) != len(uniqueIDs(req.CourseIDs)) {
		return nil, util.ErrCourseNotFound
	}

	path := &model.LearningPath{
		Title:       req.Title,
		Description: req.Description,
		CreatedByID: actor.ID,
		IsPublic:    true,
		Courses:     courses,
	}
	if req.IsPublic != nil {
		path.IsPublic = *req.IsPublic
	}
	if err := s.Repo.Create(ctx, path); err != nil {
		return nil, err
	}
	return path, nil
}

func (s *LearningPathService) Delete(ctx context.Context, actor Actor, id uint) error {
	path, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if path.CreatedByID != actor.ID && actor.Role != model.Admin {
		return util.ErrPermissionDenied
	}
	return s.Repo.Delete(ctx, path)
}

type PathEnrollResult struct {
	Enrolled []uint `json:"enrolled"`
	Skipped  []uint `json:"skipped"`
}

// EnrollPath 在同一事务中选修路径内所有课程，已选或未开放的课程跳过
func (s *LearningPathService) EnrollPath(ctx context.Context, actor Actor, pathID uint) (*PathEnrollResult, error) {
	path, err := s.Get(ctx, actor, pathID)
	if err != nil {
		return nil, err
	}

	res := &PathEnrollResult{Enrolled: []uint{}, Skipped: []uint{}}
	type enrolled struct {
		course *model.Course
		e      *model.Enrollment
	}
	var created []enrolled
	err = repository.Transaction(ctx, s.DB, func(tx *gorm.DB) error {
		for i := range path.Courses {
			course := &path.Courses[i]
			e, err := s.Enrollment.enrollTx(ctx, tx, actor.ID, course)
			switch {
			case err == nil:
				created = append(created, enrolled{course: course, e: e})
				res.Enrolled = append(res.Enrolled, course.ID)
			case errors.Is(err, util.ErrAlreadyEnrolled), errors.Is(err, util.ErrCourseNotOpen):
				res.Skipped = append(res.Skipped, course.ID)
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, c := range created {
		s.Enrollment.afterEnroll(ctx, c.course, c.e, "learning_path")
	}
	logger.Log.Info("learning path enrolled",
		zap.Uint("pathId", pathID),
		zap.Uint("studentId", actor.ID),
		zap.Int("enrolled", len(res.Enrolled)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
