package service

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressService 课时观看进度 -> 课程进度 -> 结课与证书
type ProgressService struct {
	DB             *gorm.DB
	CourseRepo     *repository.CourseRepository
	ContentRepo    *repository.ContentRepository
	EnrollmentRepo *repository.EnrollmentRepository
	ProgressRepo   *repository.ProgressRepository
	Gamification   *GamificationService
	Notifier       Notifier
	Cache          *StatsCache
	Points         config.GamificationConfig
}

func NewProgressService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	contentRepo *repository.ContentRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	progressRepo *repository.ProgressRepository,
	gamification *GamificationService,
	notifier Notifier,
	cache *StatsCache,
	points config.GamificationConfig,
) *ProgressService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ProgressService{
		DB:             db,
		CourseRepo:     courseRepo,
		ContentRepo:    contentRepo,
		EnrollmentRepo: enrollmentRepo,
		ProgressRepo:   progressRepo,
		Gamification:   gamification,
		Notifier:       notifier,
		Cache:          cache,
		Points:         points,
	}
}

type LessonProgressResult struct {
	LessonID         uint               `json:"lesson_id"`
	CourseID         uint               `json:"course_id"`
	WatchedDuration  int                `json:"watched_duration"`
	IsCompleted      bool               `json:"is_completed"`
	CompletedAt      *time.Time         `json:"completed_at"`
	PercentComplete  float64            `json:"percent_complete"`
	LessonsCompleted int                `json:"lessons_completed"`
	TotalLessons     int                `json:"total_lessons"`
	CourseCompleted  bool               `json:"course_completed"`
	Certificate      *model.Certificate `json:"certificate,omitempty"`
	Reward           *AwardResult       `json:"reward,omitempty"`
}

// PercentComplete 已完成课时占比，总数为 0 时为 0
func PercentComplete(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(completed) / float64(total)
}

// RecordLessonProgress 合并观看进度。同一 (student, lesson) 与 (student, course)
// 的并发更新通过行锁在事务内串行化
func (s *ProgressService) RecordLessonProgress(ctx context.Context, studentID, lessonID uint, watchedSeconds int, completed bool) (*LessonProgressResult, error) {
	if watchedSeconds < 0 {
		return nil, util.ValidationError("watched duration must not be negative")
	}

	courseID, err := s.ContentRepo.LessonCourseID(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	result := &LessonProgressResult{LessonID: lessonID, CourseID: courseID}
	var transitioned bool
	var newlyIssued bool

	err = repository.Transaction(ctx, s.DB, func(tx *gorm.DB) error {
		enrollments := s.EnrollmentRepo.WithTx(tx)
		lessons := s.ProgressRepo.WithTx(tx)

		// 首条语句须为加锁读，快照在拿到行锁之后才建立，计数才能包含先提交的课时
		progress, err := s.lockCourseProgress(ctx, enrollments, studentID, courseID)
		if err != nil {
			return err
		}
		enrollment, err := enrollments.LockEnrollment(ctx, studentID, courseID)
		if err != nil {
			return err
		}

		lp, err := lessons.LockOrCreate(ctx, studentID, lessonID)
		if err != nil {
			return fmt.Errorf("lock lesson progress: %w", err)
		}

		delta := 0
		if watchedSeconds > lp.WatchedDuration {
			delta = watchedSeconds - lp.WatchedDuration
			lp.WatchedDuration = watchedSeconds
		}
		now := time.Now()
		// 完成状态不可回退，completed_at 只在首次完成时写入
		if completed && !lp.IsCompleted {
			lp.IsCompleted = true
			lp.CompletedAt = &now
			transitioned = true
		}
		if err := lessons.Save(ctx, lp); err != nil {
			return err
		}

		done, err := lessons.CountCompletedInCourse(ctx, studentID, courseID)
		if err != nil {
			return err
		}
		total, err := s.CourseRepo.WithTx(tx).CountLessons(ctx, courseID)
		if err != nil {
			return err
		}
		progress.LessonsCompleted = int(done)
		progress.TotalLessons = int(total)
		progress.PercentComplete = PercentComplete(done, total)
		progress.TimeSpent += delta
		if err := enrollments.SaveProgress(ctx, progress); err != nil {
			return err
		}

		enrollment.Progress = progress.PercentComplete
		enrollment.LastAccessed = now
		fullyDone := total > 0 && done >= total
		if fullyDone && enrollment.Status != model.EnrollmentCompleted {
			enrollment.Status = model.EnrollmentCompleted
			enrollment.CompletedAt = &now
			enrollment.CertificateEarned = true
			result.CourseCompleted = true
		}
		if err := enrollments.Update(ctx, enrollment); err != nil {
			return err
		}

		if fullyDone {
			cert, issued, err := s.issueCertificate(ctx, enrollments, studentID, courseID, now)
			if err != nil {
				return err
			}
			result.Certificate = cert
			newlyIssued = issued
		}

		points := 0
		if transitioned {
			points += s.Points.LessonPoints
		}
		if result.CourseCompleted {
			points += s.Points.CoursePoints
		}
		if transitioned && s.Gamification != nil {
			reward, err := s.Gamification.Award(ctx, tx, studentID, points)
			if err != nil {
				return fmt.Errorf("award points: %w", err)
			}
			result.Reward = reward
		}

		result.WatchedDuration = lp.WatchedDuration
		result.IsCompleted = lp.IsCompleted
		result.CompletedAt = lp.CompletedAt
		result.PercentComplete = progress.PercentComplete
		result.LessonsCompleted = progress.LessonsCompleted
		result.TotalLessons = progress.TotalLessons
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterProgress(ctx, studentID, courseID, result, transitioned, newlyIssued)
	return result, nil
}

// lockCourseProgress 锁定课程进度行。未选课返回 ErrNotEnrolled，选课存在但进度行缺失时补建后再加锁
func (s *ProgressService) lockCourseProgress(ctx context.Context, enrollments *repository.EnrollmentRepository, studentID, courseID uint) (*model.Progress, error) {
	progress, err := enrollments.LockProgress(ctx, studentID, courseID)
	if !isNotEnrolled(err) {
		return progress, err
	}
	if _, err := enrollments.LockEnrollment(ctx, studentID, courseID); err != nil {
		return nil, err
	}
	if err := enrollments.EnsureProgress(ctx, studentID, courseID); err != nil {
		return nil, fmt.Errorf("create course progress: %w", err)
	}
	return enrollments.LockProgress(ctx, studentID, courseID)
}

// issueCertificate 已存在则返回 nil 证书且 issued=false，唯一索引兜底
func (s *ProgressService) issueCertificate(ctx context.Context, enrollments *repository.EnrollmentRepository, studentID, courseID uint, now time.Time) (*model.Certificate, bool, error) {
	exists, err := enrollments.CertificateExists(ctx, studentID, courseID)
	if err != nil || exists {
		return nil, false, err
	}
	cert := &model.Certificate{
		CertificateID: model.GenerateUUID(),
		StudentID:     studentID,
		CourseID:      courseID,
		IssuedDate:    now,
		IsValid:       true,
	}
	if err := enrollments.CreateCertificate(ctx, cert); err != nil {
		return nil, false, fmt.Errorf("issue certificate: %w", err)
	}
	return cert, true, nil
}

func (s *ProgressService) afterProgress(ctx context.Context, studentID, courseID uint, r *LessonProgressResult, transitioned, issued bool) {
	keys := []string{studentDashboardKey(studentID)}
	if transitioned {
		monitoring.LessonCompletions.Inc()
		if course, err := s.CourseRepo.FindByID(ctx, courseID); err == nil {
			keys = append(keys, instructorStatsKey(course.InstructorID))
		}
	}
	s.Cache.Invalidate(ctx, keys...)

	if issued && r.Certificate != nil {
		monitoring.CertificatesIssued.Inc()
		logger.Log.Info("certificate issued",
			zap.Uint("studentId", studentID),
			zap.Uint("courseId", courseID),
			zap.String("certificateId", r.Certificate.CertificateID),
		)
		s.Notifier.Notify(ctx, []uint{studentID}, model.Notification{
			Title:      "Course completed",
			Message:    "Congratulations! Your certificate is ready.",
			Type:       model.NotifySystem,
			RelatedURL: "/certificates/" + r.Certificate.CertificateID,
		})
	}
	if r.Reward != nil {
		for _, b := range r.Reward.NewBadges {
			s.Notifier.Notify(ctx, []uint{studentID}, model.Notification{
				Title:   "Badge earned",
				Message: fmt.Sprintf("You earned the %s badge.", b.Name),
				Type:    model.NotifySystem,
			})
		}
	}
}

// LessonStatus 课程进度中的单节课时明细
type LessonStatus struct {
	LessonID        uint             `json:"lesson_id"`
	ModuleID        uint             `json:"module_id"`
	Title           string           `json:"title"`
	LessonType      model.LessonType `json:"lesson_type"`
	Duration        int              `json:"duration"`
	WatchedDuration int              `json:"watched_duration"`
	IsCompleted     bool             `json:"is_completed"`
	CompletedAt     *time.Time       `json:"completed_at"`
}

type CourseProgress struct {
	model.Progress
	Lessons []LessonStatus `json:"lessons"`
}

func (s *ProgressService) GetCourseProgress(ctx context.Context, studentID, courseID uint) (*CourseProgress, error) {
	progress, err := s.EnrollmentRepo.FindProgress(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.ContentRepo.ListLessonsByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	records, err := s.ProgressRepo.ListInCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	byLesson := make(map[uint]model.LessonProgress, len(records))
	for _, r := range records {
		byLesson[r.LessonID] = r
	}

	out := &CourseProgress{Progress: *progress, Lessons: make([]LessonStatus, 0, len(lessons))}
	for _, l := range lessons {
		st := LessonStatus{
			LessonID:   l.ID,
			ModuleID:   l.ModuleID,
			Title:      l.Title,
			LessonType: l.LessonType,
			Duration:   l.Duration,
		}
		if r, ok := byLesson[l.ID]; ok {
			st.WatchedDuration = r.WatchedDuration
			st.IsCompleted = r.IsCompleted
			st.CompletedAt = r.CompletedAt
		}
		out.Lessons = append(out.Lessons, st)
	}
	return out, nil
}

func (s *ProgressService) ListProgress(ctx context.Context, studentID uint) ([]model.Progress, error) {
	return s.EnrollmentRepo.ListProgressByStudent(ctx, studentID)
}

// GetLessonProgress 尚未观看的课时返回零值记录
func (s *ProgressService) GetLessonProgress(ctx context.Context, studentID, lessonID uint) (*model.LessonProgress, error) {
	lp, err := s.ProgressRepo.Find(ctx, studentID, lessonID)
	if err == nil {
		return lp, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, lerr := s.ContentRepo.FindLesson(ctx, lessonID); lerr != nil {
		return nil, lerr
	}
	return &model.LessonProgress{StudentID: studentID, LessonID: lessonID}, nil
}

// ResyncCourse 课时增删后刷新课程总课时与所有学生的百分比。
// 已结课的选课保持 completed 与证书不变，新增课时只降低百分比
func (s *ProgressService) ResyncCourse(ctx context.Context, courseID uint) error {
	return repository.Transaction(ctx, s.DB, func(tx *gorm.DB) error {
		courses := s.CourseRepo.WithTx(tx)
		enrollments := s.EnrollmentRepo.WithTx(tx)
		lessons := s.ProgressRepo.WithTx(tx)

		// 先锁进度行再计数，与 RecordLessonProgress 相同
		list, err := enrollments.LockProgressByCourse(ctx, courseID)
		if err != nil {
			return err
		}

		total, err := courses.CountLessons(ctx, courseID)
		if err != nil {
			return err
		}
		if err := courses.SetTotalLessons(ctx, courseID, int(total)); err != nil {
			return err
		}

		for i := range list {
			p := &list[i]
			done, err := lessons.CountCompletedInCourse(ctx, p.StudentID, courseID)
			if err != nil {
				return err
			}
			p.LessonsCompleted = int(done)
			p.TotalLessons = int(total)
			p.PercentComplete = PercentComplete(done, total)
			if err := enrollments.SaveProgress(ctx, p); err != nil {
				return err
			}
			if err := enrollments.SetProgress(ctx, p.StudentID, courseID, p.PercentComplete); err != nil {
				return err
			}
		}
		return nil
	})
}
