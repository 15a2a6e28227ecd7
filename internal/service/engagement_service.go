package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"math"

	"gorm.io/gorm"
)

// EngagementService 课程评分、收藏夹与课时笔记
type EngagementService struct {
	DB             *gorm.DB
	Repo           *repository.EngagementRepository
	CourseRepo     *repository.CourseRepository
	ContentRepo    *repository.ContentRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Cache          *StatsCache
}

func NewEngagementService(
	db *gorm.DB,
	repo *repository.EngagementRepository,
	courseRepo *repository.CourseRepository,
	contentRepo *repository.ContentRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	cache *StatsCache,
) *EngagementService {
	return &EngagementService{
		DB:             db,
		Repo:           repo,
		CourseRepo:     courseRepo,
		ContentRepo:    contentRepo,
		EnrollmentRepo: enrollmentRepo,
		Cache:          cache,
	}
}

type RatingRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Review string `json:"review"`
}

func validRating(r int) error {
	if r < 1 || r > 5 {
		return util.ValidationError("rating must be between 1 and 5")
	}
	return nil
}

// RateCourse 只有选课学生可以评分，每人每门课一次
func (s *EngagementService) RateCourse(ctx context.Context, studentID, courseID uint, req RatingRequest) (*model.CourseRating, error) {
	if err := validRating(req.Rating); err != nil {
		return nil, err
	}
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ok, err := s.EnrollmentRepo.Exists(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrEnrollmentNeeded
	}

	rating := &model.CourseRating{StudentID: studentID, CourseID: courseID, Rating: req.Rating, Review: req.Review}
	err = repository.Transaction(ctx, s.DB, func(tx *gorm.DB) error {
		if err := s.Repo.WithTx(tx).CreateRating(ctx, rating); err != nil {
			return err
		}
		return s.recompute(ctx, tx, courseID)
	})
	if err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, instructorStatsKey(course.InstructorID))
	return rating, nil
}

func (s *EngagementService) UpdateRating(ctx context.Context, studentID, courseID uint, req RatingRequest) (*model.CourseRating, error) {
	if err := validRating(req.Rating); err != nil {
		return nil, err
	}
	var rating *model.CourseRating
	err := repository.Transaction(ctx, s.DB, func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		var err error
		rating, err = repo.FindRating(ctx, studentID, courseID)
		if err != nil {
			return err
		}
		rating.Rating = req.Rating
		rating.Review = req.Review
		if err := repo.SaveRating(ctx, rating); err != nil {
			return err
		}
		return s.recompute(ctx, tx, courseID)
	})
	if err != nil {
		return nil, err
	}
	return rating, nil
}

// recompute 评分均值总是从评分行重新计算
func (s *EngagementService) recompute(ctx context.Context, tx *gorm.DB, courseID uint) error {
	avg, total, err := s.Repo.WithTx(tx).RatingAggregate(ctx, courseID)
	if err != nil {
		return err
	}
	return s.CourseRepo.WithTx(tx).UpdateRating(ctx, courseID, math.Round(avg*100)/100, total)
}

func (s *EngagementService) ListRatings(ctx context.Context, courseID uint) ([]model.CourseRating, error) {
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.Repo.ListRatings(ctx, courseID)
}

func (s *EngagementService) AddToWishlist(ctx context.Context, studentID, courseID uint) error {
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		return err
	}
	return s.Repo.AddWishlist(ctx, studentID, courseID)
}

func (s *EngagementService) RemoveFromWishlist(ctx context.Context, studentID, courseID uint) error {
	removed, err := s.Repo.RemoveWishlist(ctx, studentID, courseID)
	if err != nil {
		return err
	}
	if !removed {
		return util.NotFoundError("course is not in the wishlist")
	}
	return nil
}

func (s *EngagementService) Wishlist(ctx context.Context, studentID uint) ([]model.Wishlist, error) {
	return s.Repo.ListWishlist(ctx, studentID)
}

type NoteRequest struct {
	Notes string `json:"notes"`
}

func (s *EngagementService) SaveNote(ctx context.Context, userID, lessonID uint, notes string) (*model.LessonNote, error) {
	if _, err := s.ContentRepo.LessonCourseID(ctx, lessonID); err != nil {
		return nil, err
	}
	note := &model.LessonNote{UserID: userID, LessonID: lessonID, Notes: notes}
	if err := s.Repo.UpsertNote(ctx, note); err != nil {
		return nil, err
	}
	return s.Repo.FindNote(ctx, userID, lessonID)
}

// GetNote 没有笔记时返回空笔记而不是 404
func (s *EngagementService) GetNote(ctx context.Context, userID, lessonID uint) (*model.LessonNote, error) {
	note, err := s.Repo.FindNote(ctx, userID, lessonID)
	if err != nil {
		if util.KindOf(err) == util.KindNotFound {
			return &model.LessonNote{UserID: userID, LessonID: lessonID}, nil
		}
		return nil, err
	}
	return note, nil
}
