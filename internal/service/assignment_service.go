package service

import (
	"context"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"mime/multipart"
	"time"

	"go.uber.org/zap"
)

type AssignmentService struct {
	Repo           *repository.AssignmentRepository
	CourseRepo     *repository.CourseRepository
	ContentRepo    *repository.ContentRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Storage        *StorageService
	Notifier       Notifier
}

func NewAssignmentService(
	repo *repository.AssignmentRepository,
	courseRepo *repository.CourseRepository,
	contentRepo *repository.ContentRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	storage *StorageService,
	notifier Notifier,
) *AssignmentService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &AssignmentService{
		Repo:           repo,
		CourseRepo:     courseRepo,
		ContentRepo:    contentRepo,
		EnrollmentRepo: enrollmentRepo,
		Storage:        storage,
		Notifier:       notifier,
	}
}

type AssignmentRequest struct {
	CourseID     uint      `json:"course_id" binding:"required"`
	LessonID     *uint     `json:"lesson_id"`
	Title        string    `json:"title" binding:"required,max=200"`
	Description  string    `json:"description"`
	Instructions string    `json:"instructions"`
	DueDate      time.Time `json:"due_date" binding:"required"`
	MaxPoints    int       `json:"max_points" binding:"omitempty,min=1"`
	Attachment   string    `json:"attachment"`
}

type SubmitRequest struct {
	Content string `json:"content"`
	FileURL string `json:"file_url"`
}

type GradeRequest struct {
	Grade    int    `json:"grade" binding:"min=0"`
	Feedback string `json:"feedback"`
}

func (s *AssignmentService) managedCourse(ctx context.Context, actor Actor, courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageCourse(course) {
		return nil, util.ErrNotCourseOwner
	}
	return course, nil
}

func (s *AssignmentService) checkLesson(ctx context.Context, courseID uint, lessonID *uint) error {
	if lessonID == nil {
		return nil
	}
	owner, err := s.ContentRepo.LessonCourseID(ctx, *lessonID)
	if err != nil {
		return err
	}
	if owner != courseID {
		return util.ValidationError("lesson does not belong to this course")
	}
	return nil
}

func (s *AssignmentService) Create(ctx context.Context, actor Actor, req AssignmentRequest) (*model.Assignment, error) {
	course, err := s.managedCourse(ctx, actor, req.CourseID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLesson(ctx, course.ID, req.LessonID); err != nil {
		return nil, err
	}
	a := &model.Assignment{
		CourseID:     course.ID,
		LessonID:     req.LessonID,
		Title:        req.Title,
		Description:  req.Description,
		Instructions: req.Instructions,
		DueDate:      req.DueDate,
		MaxPoints:    req.MaxPoints,
		Attachment:   req.Attachment,
	}
	if a.MaxPoints == 0 {
		a.MaxPoints = 100
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return nil, err
	}

	if ids, err := s.EnrollmentRepo.StudentIDs(ctx, course.ID); err == nil {
		s.Notifier.Notify(ctx, ids, model.Notification{
			Title:      "New assignment",
			Message:    fmt.Sprintf("%s: %s is due %s.", course.Title, a.Title, a.DueDate.Format(util.DateFormat)),
			Type:       model.NotifyAssignment,
			RelatedURL: fmt.Sprintf("/assignments/%d", a.ID),
		})
	}
	return a, nil
}

func (s *AssignmentService) Update(ctx context.Context, actor Actor, id uint, req AssignmentRequest) (*model.Assignment, error) {
	a, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.managedCourse(ctx, actor, a.CourseID); err != nil {
		return nil, err
	}
	if err := s.checkLesson(ctx, a.CourseID, req.LessonID); err != nil {
		return nil, err
	}
	a.LessonID = req.LessonID
	a.Title = req.Title
	a.Description = req.Description
	a.Instructions = req.Instructions
	a.DueDate = req.DueDate
	a.Attachment = req.Attachment
	if req.MaxPoints > 0 {
		a.MaxPoints = req.MaxPoints
	}
	if err := s.Repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssignmentService) Delete(ctx context.Context, actor Actor, id uint) error {
	a, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.managedCourse(ctx, actor, a.CourseID); err != nil {
		return err
	}
	return s.Repo.Delete(ctx, id)
}

// ListByCourse 选课学生或课程管理者可见
func (s *AssignmentService) ListByCourse(ctx context.Context, actor Actor, courseID uint) ([]model.Assignment, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageCourse(course) {
		ok, err := s.EnrollmentRepo.Exists(ctx, actor.ID, courseID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, util.ErrEnrollmentNeeded
		}
	}
	return s.Repo.ListByCourse(ctx, courseID)
}

// Submit 每个学生每份作业只能提交一次，截止后标记为迟交
func (s *AssignmentService) Submit(ctx context.Context, studentID, assignmentID uint, req SubmitRequest) (*model.AssignmentSubmission, error) {
	a, err := s.Repo.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if req.Content == "" && req.FileURL == "" {
		return nil, util.ValidationError("submission needs content or a file")
	}
	ok, err := s.EnrollmentRepo.Exists(ctx, studentID, a.CourseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrEnrollmentNeeded
	}
	exists, err := s.Repo.SubmissionExists(ctx, assignmentID, studentID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrAlreadySubmitted
	}

	now := time.Now()
	sub := &model.AssignmentSubmission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Content:      req.Content,
		FileURL:      req.FileURL,
		Status:       model.SubmissionSubmitted,
		SubmittedAt:  now,
	}
	if !a.DueDate.IsZero() && now.After(a.DueDate) {
		sub.Status = model.SubmissionLate
	}
	if err := s.Repo.CreateSubmission(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *AssignmentService) UploadSubmissionFile(ctx context.Context, fh *multipart.FileHeader) (*StoredFile, error) {
	return s.Storage.Save(ctx, "submissions", fh, util.MaxAttachmentSize, util.DocumentMimeTypes)
}

func (s *AssignmentService) Grade(ctx context.Context, actor Actor, submissionID uint, req GradeRequest) (*model.AssignmentSubmission, error) {
	sub, err := s.Repo.FindSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Assignment == nil {
		return nil, util.ErrAssignmentNotFound
	}
	if _, err := s.managedCourse(ctx, actor, sub.Assignment.CourseID); err != nil {
		return nil, err
	}
	if req.Grade < 0 || req.Grade > sub.Assignment.MaxPoints {
		return nil, util.ErrGradeOutOfRange
	}

	now := time.Now()
	grade := req.Grade
	grader := actor.ID
	sub.Grade = &grade
	sub.Feedback = req.Feedback
	sub.Status = model.SubmissionGraded
	sub.GradedAt = &now
	sub.GradedBy = &grader
	if err := s.Repo.UpdateSubmission(ctx, sub); err != nil {
		return nil, err
	}

	logger.Log.Info("assignment graded",
		zap.Uint("submissionId", sub.ID),
		zap.Uint("studentId", sub.StudentID),
		zap.Int("grade", grade),
	)
	s.Notifier.Notify(ctx, []uint{sub.StudentID}, model.Notification{
		Title:      "Assignment graded",
		Message:    fmt.Sprintf("%s: %d/%d", sub.Assignment.Title, grade, sub.Assignment.MaxPoints),
		Type:       model.NotifyGrade,
		RelatedURL: fmt.Sprintf("/assignments/%d", sub.AssignmentID),
	})
	return sub, nil
}

func (s *AssignmentService) ListSubmissions(ctx context.Context, actor Actor, assignmentID uint) ([]model.AssignmentSubmission, error) {
	a, err := s.Repo.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.managedCourse(ctx, actor, a.CourseID); err != nil {
		return nil, err
	}
	return s.Repo.ListSubmissions(ctx, assignmentID)
}

// Gradebook 学生只能看到自己的成绩，教师看到整门课程
func (s *AssignmentService) Gradebook(ctx context.Context, actor Actor, courseID uint) ([]model.AssignmentSubmission, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if actor.CanManageCourse(course) {
		return s.Repo.ListSubmissionsByCourse(ctx, courseID, 0)
	}
	ok, err := s.EnrollmentRepo.Exists(ctx, actor.ID, courseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrNotEnrolled
	}
	return s.Repo.ListSubmissionsByCourse(ctx, courseID, actor.ID)
}
