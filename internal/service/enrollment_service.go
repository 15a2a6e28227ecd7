package service

import (
	"context"
	"errors"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EnrollmentService struct {
	DB             *gorm.DB
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Notifier       Notifier
	Cache          *StatsCache
}

func NewEnrollmentService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	notifier Notifier,
	cache *StatsCache,
) *EnrollmentService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &EnrollmentService{
		DB:             db,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		Notifier:       notifier,
		Cache:          cache,
	}
}

// Enroll 同一事务内创建选课与初始进度
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	var enrollment *model.Enrollment
	err = repository.Transaction(ctx, s.DB, func(tx *gorm.DB) error {
		enrollment, err = s.enrollTx(ctx, tx, studentID, course)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterEnroll(ctx, course, enrollment, "direct")
	return enrollment, nil
}

// enrollTx 供支付回调、学习路径等在自身事务中复用
func (s *EnrollmentService) enrollTx(ctx context.Context, tx *gorm.DB, studentID uint, course *model.Course) (*model.Enrollment, error) {
	if course.Status != model.CoursePublished {
		return nil, util.ErrCourseNotOpen
	}

	enrollments := s.EnrollmentRepo.WithTx(tx)
	exists, err := enrollments.Exists(ctx, studentID, course.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrAlreadyEnrolled
	}

	total, err := s.CourseRepo.WithTx(tx).CountLessons(ctx, course.ID)
	if err != nil {
		return nil, fmt.Errorf("count lessons: %w", err)
	}

	enrollment := &model.Enrollment{
		StudentID:    studentID,
		CourseID:     course.ID,
		Status:       model.EnrollmentActive,
		LastAccessed: time.Now(),
	}
	if err := enrollments.Create(ctx, enrollment); err != nil {
		return nil, err
	}
	if err := enrollments.CreateProgress(ctx, &model.Progress{
		StudentID:    studentID,
		CourseID:     course.ID,
		TotalLessons: int(total),
	}); err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (s *EnrollmentService) afterEnroll(ctx context.Context, course *model.Course, e *model.Enrollment, source string) {
	monitoring.EnrollmentsTotal.WithLabelValues(source).Inc()
	s.Cache.Invalidate(ctx, instructorStatsKey(course.InstructorID), studentDashboardKey(e.StudentID))
	logger.Log.Info("student enrolled",
		zap.Uint("studentId", e.StudentID),
		zap.Uint("courseId", course.ID),
		zap.String("source", source),
	)
	s.Notifier.Notify(ctx, []uint{e.StudentID}, model.Notification{
		Title:      "Enrollment confirmed",
		Message:    fmt.Sprintf("You are now enrolled in %s.", course.Title),
		Type:       model.NotifyEnrollment,
		RelatedURL: fmt.Sprintf("/courses/%d", course.ID),
	})
	s.Notifier.Notify(ctx, []uint{course.InstructorID}, model.Notification{
		Title:      "New student",
		Message:    fmt.Sprintf("A new student enrolled in %s.", course.Title),
		Type:       model.NotifyEnrollment,
		RelatedURL: fmt.Sprintf("/instructor/courses/%d/students", course.ID),
	})
}

// Unenroll 仅课程所属教师（或管理员）可移除学生
func (s *EnrollmentService) Unenroll(ctx context.Context, actor Actor, studentID, courseID uint) error {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return err
	}
	if !actor.CanManageCourse(course) {
		return util.ErrNotCourseOwner
	}

	err = repository.Transaction(ctx, s.DB, func(tx *gorm.DB) error {
		found, err := s.EnrollmentRepo.WithTx(tx).Delete(ctx, studentID, courseID)
		if err != nil {
			return err
		}
		if !found {
			return util.ErrNotEnrolled
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Cache.Invalidate(ctx, instructorStatsKey(course.InstructorID), studentDashboardKey(studentID))
	logger.Log.Info("student unenrolled",
		zap.Uint("studentId", studentID),
		zap.Uint("courseId", courseID),
		zap.Uint("by", actor.ID),
	)
	return nil
}

func (s *EnrollmentService) ListForStudent(ctx context.Context, studentID uint) ([]model.Enrollment, error) {
	return s.EnrollmentRepo.ListByStudent(ctx, studentID)
}

func (s *EnrollmentService) IsEnrolled(ctx context.Context, studentID, courseID uint) (bool, error) {
	return s.EnrollmentRepo.Exists(ctx, studentID, courseID)
}

// CourseStudent 教师查看的学生名单行
type CourseStudent struct {
	StudentID    uint                   `json:"student_id"`
	Username     string                 `json:"username"`
	Name         string                 `json:"name"`
	Email        string                 `json:"email"`
	Status       model.EnrollmentStatus `json:"status"`
	Progress     float64                `json:"progress"`
	EnrolledAt   time.Time              `json:"enrolled_at"`
	LastAccessed time.Time              `json:"last_accessed"`
}

func (s *EnrollmentService) ListCourseStudents(ctx context.Context, actor Actor, courseID uint) ([]CourseStudent, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageCourse(course) {
		return nil, util.ErrNotCourseOwner
	}
	list, err := s.EnrollmentRepo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]CourseStudent, 0, len(list))
	for _, e := range list {
		row := CourseStudent{
			StudentID:    e.StudentID,
			Status:       e.Status,
			Progress:     e.Progress,
			EnrolledAt:   e.CreatedAt,
			LastAccessed: e.LastAccessed,
		}
		if e.Student != nil {
			row.Username = e.Student.Username
			row.Name = e.Student.FullName()
			row.Email = e.Student.Email
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *EnrollmentService) Certificates(ctx context.Context, studentID uint) ([]model.Certificate, error) {
	return s.EnrollmentRepo.ListCertificates(ctx, studentID)
}

// VerifyCertificate 公开校验证书编号
func (s *EnrollmentService) VerifyCertificate(ctx context.Context, certificateID string) (*model.Certificate, error) {
	cert, err := s.EnrollmentRepo.FindCertificate(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if cert.Student != nil {
		cert.Student.Email = ""
	}
	return cert, nil
}

// RequireEnrollment 学生须已选课；教师与管理员按课程归属放行
func (s *EnrollmentService) RequireEnrollment(ctx context.Context, actor Actor, course *model.Course) error {
	if actor.CanManageCourse(course) {
		return nil
	}
	ok, err := s.EnrollmentRepo.Exists(ctx, actor.ID, course.ID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrEnrollmentNeeded
	}
	return nil
}

func isNotEnrolled(err error) bool {
	return errors.Is(err, util.ErrNotEnrolled)
}
