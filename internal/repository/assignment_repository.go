package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *AssignmentRepository) FindByID(ctx context.Context, id uint) (*model.Assignment, error) {
	var a model.Assignment
	if err := r.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, mapNotFound(err, util.ErrAssignmentNotFound)
	}
	return &a, nil
}

func (r *AssignmentRepository) Update(ctx context.Context, a *model.Assignment) error {
	return r.DB.WithContext(ctx).Save(a).Error
}

func (r *AssignmentRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id = ?", id).Delete(&model.AssignmentSubmission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Assignment{}, id).Error
	})
}

func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Assignment, error) {
	var list []model.Assignment
	err := r.DB.WithContext(ctx).Where("course_id = ?", courseID).Order("due_date ASC").Find(&list).Error
	return list, err
}

func (r *AssignmentRepository) CreateSubmission(ctx context.Context, s *model.AssignmentSubmission) error {
	return mapDuplicate(r.DB.WithContext(ctx).Create(s).Error, util.ErrAlreadySubmitted)
}

func (r *AssignmentRepository) SubmissionExists(ctx context.Context, assignmentID, studentID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.AssignmentSubmission{}).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *AssignmentRepository) FindSubmission(ctx context.Context, id uint) (*model.AssignmentSubmission, error) {
	var s model.AssignmentSubmission
	if err := r.DB.WithContext(ctx).Preload("Assignment").First(&s, id).Error; err != nil {
		return nil, mapNotFound(err, util.ErrSubmissionNotFound)
	}
	return &s, nil
}

func (r *AssignmentRepository) UpdateSubmission(ctx context.Context, s *model.AssignmentSubmission) error {
	return r.DB.WithContext(ctx).Omit("Assignment", "Student").Save(s).Error
}

func (r *AssignmentRepository) ListSubmissions(ctx context.Context, assignmentID uint) ([]model.AssignmentSubmission, error) {
	var list []model.AssignmentSubmission
	err := r.DB.WithContext(ctx).
		Preload("Student").
		Where("assignment_id = ?", assignmentID).
		Order("submitted_at ASC").
		Find(&list).Error
	return list, err
}

// ListSubmissionsByCourse studentID 为 0 时返回课程下所有学生的提交
func (r *AssignmentRepository) ListSubmissionsByCourse(ctx context.Context, courseID, studentID uint) ([]model.AssignmentSubmission, error) {
	var list []model.AssignmentSubmission
	query := r.DB.WithContext(ctx).
		Preload("Assignment").
		Preload("Student").
		Joins("JOIN assignments ON assignments.id = assignment_submissions.assignment_id").
		Where("assignments.course_id = ?", courseID)
	if studentID != 0 {
		query = query.Where("assignment_submissions.student_id = ?", studentID)
	}
	err := query.Order("assignment_submissions.submitted_at ASC").Find(&list).Error
	return list, err
}
