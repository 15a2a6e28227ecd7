package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	DB *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{DB: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) LockByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	var p model.Payment
	err := forUpdate(r.DB.WithContext(ctx)).Where("order_id = ?", orderID).First(&p).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrPaymentNotFound)
	}
	return &p, nil
}

func (r *PaymentRepository) Save(ctx context.Context, p *model.Payment) error {
	return r.DB.WithContext(ctx).Omit("Course").Save(p).Error
}

func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID uint) ([]model.Payment, error) {
	var list []model.Payment
	err := r.DB.WithContext(ctx).
		Preload("Course").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// EarningRow 一笔已完成付款的金额与入账时间
type EarningRow struct {
	Amount      float64
	PaymentDate *time.Time
	CreatedAt   time.Time
}

// When 入账时间，缺失时退回创建时间
func (e EarningRow) When() time.Time {
	if e.PaymentDate != nil {
		return *e.PaymentDate
	}
	return e.CreatedAt
}

// CompletedForInstructor 教师名下课程的所有已完成付款
func (r *PaymentRepository) CompletedForInstructor(ctx context.Context, instructorID uint) ([]EarningRow, error) {
	var rows []EarningRow
	err := r.DB.WithContext(ctx).Model(&model.Payment{}).
		Select("payments.amount, payments.payment_date, payments.created_at").
		Joins("JOIN courses ON courses.id = payments.course_id").
		Where("courses.instructor_id = ? AND payments.status = ?", instructorID, model.PaymentCompleted).
		Order("payments.created_at ASC").
		Scan(&rows).Error
	return rows, err
}
