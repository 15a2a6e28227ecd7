package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnrollmentRepository 选课、课程进度与证书
type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: tx}
}

func (r *EnrollmentRepository) Find(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&e).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrNotEnrolled)
	}
	return &e, nil
}

// LockEnrollment 事务内锁定选课行，串行化同一学生在该课程下的计数类操作
func (r *EnrollmentRepository) LockEnrollment(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := forUpdate(r.DB.WithContext(ctx)).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&e).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrNotEnrolled)
	}
	return &e, nil
}

func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, courseID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error
	return count > 0, err
}

func (r *EnrollmentRepository) Create(ctx context.Context, e *model.Enrollment) error {
	return mapDuplicate(r.DB.WithContext(ctx).Create(e).Error, util.ErrAlreadyEnrolled)
}

func (r *EnrollmentRepository) Update(ctx context.Context, e *model.Enrollment) error {
	return r.DB.WithContext(ctx).Omit("Course", "Student").Save(e).Error
}

func (r *EnrollmentRepository) Touch(ctx context.Context, studentID, courseID uint) error {
	return r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Update("last_accessed", time.Now()).Error
}

// Delete 删除选课与课程进度，返回是否存在选课记录。先删进度行，与进度更新的加锁顺序一致
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, courseID uint) (bool, error) {
	if err := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Delete(&model.Progress{}).Error; err != nil {
		return false, err
	}
	res := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Delete(&model.Enrollment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.DB.WithContext(ctx).
		Preload("Course").
		Preload("Course.Instructor").
		Where("student_id = ?", studentID).
		Order("last_accessed DESC").
		Find(&list).Error
	return list, err
}

func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.DB.WithContext(ctx).
		Preload("Student").
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *EnrollmentRepository) StudentIDs(ctx context.Context, courseID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("course_id = ?", courseID).
		Pluck("student_id", &ids).Error
	return ids, err
}

func (r *EnrollmentRepository) CountByStatus(ctx context.Context, studentID uint, status model.EnrollmentStatus) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("student_id = ? AND status = ?", studentID, status).
		Count(&count).Error
	return count, err
}

func (r *EnrollmentRepository) CreateProgress(ctx context.Context, p *model.Progress) error {
	return mapDuplicate(r.DB.WithContext(ctx).Create(p).Error, util.ErrAlreadyEnrolled)
}

func (r *EnrollmentRepository) FindProgress(ctx context.Context, studentID, courseID uint) (*model.Progress, error) {
	var p model.Progress
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&p).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrNotEnrolled)
	}
	return &p, nil
}

// LockProgress 事务内读取并锁定课程进度行
func (r *EnrollmentRepository) LockProgress(ctx context.Context, studentID, courseID uint) (*model.Progress, error) {
	var p model.Progress
	err := forUpdate(r.DB.WithContext(ctx)).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&p).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrNotEnrolled)
	}
	return &p, nil
}

// EnsureProgress 补齐缺失的课程进度行，已存在时不做修改
func (r *EnrollmentRepository) EnsureProgress(ctx context.Context, studentID, courseID uint) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Progress{StudentID: studentID, CourseID: courseID}).Error
}

func (r *EnrollmentRepository) SaveProgress(ctx context.Context, p *model.Progress) error {
	return r.DB.WithContext(ctx).Save(p).Error
}

func (r *EnrollmentRepository) ListProgressByStudent(ctx context.Context, studentID uint) ([]model.Progress, error) {
	var list []model.Progress
	err := r.DB.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("updated_at DESC").
		Find(&list).Error
	return list, err
}

// LockProgressByCourse 按 id 顺序锁定课程下全部进度行
func (r *EnrollmentRepository) LockProgressByCourse(ctx context.Context, courseID uint) ([]model.Progress, error) {
	var list []model.Progress
	err := forUpdate(r.DB.WithContext(ctx)).
		Where("course_id = ?", courseID).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *EnrollmentRepository) CertificateExists(ctx context.Context, studentID, courseID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Certificate{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error
	return count > 0, err
}

func (r *EnrollmentRepository) CreateCertificate(ctx context.Context, c *model.Certificate) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *EnrollmentRepository) FindCertificate(ctx context.Context, certificateID string) (*model.Certificate, error) {
	var c model.Certificate
	err := r.DB.WithContext(ctx).
		Preload("Course").
		Preload("Student").
		Where("certificate_id = ?", certificateID).
		First(&c).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrCertificateMissing)
	}
	return &c, nil
}

func (r *EnrollmentRepository) ListCertificates(ctx context.Context, studentID uint) ([]model.Certificate, error) {
	var list []model.Certificate
	err := r.DB.WithContext(ctx).
		Preload("Course").
		Where("student_id = ?", studentID).
		Order("issued_date DESC").
		Find(&list).Error
	return list, err
}

func (r *EnrollmentRepository) CountCertificates(ctx context.Context, studentID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Certificate{}).Where("student_id = ?", studentID).Count(&count).Error
	return count, err
}

// SetProgress 仅同步选课记录上的进度百分比
func (r *EnrollmentRepository) SetProgress(ctx context.Context, studentID, courseID uint, percent float64) error {
	return r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Update("progress", percent).Error
}
