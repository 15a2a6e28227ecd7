package service

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"math"
	"strings"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentGateway 第三方收银台
type PaymentGateway interface {
	CreateSession(ctx context.Context, p *model.Payment, customer *model.User, course *model.Course) (token, redirectURL string, err error)
}

// MidtransGateway 基于 midtrans snap 的收银台实现
type MidtransGateway struct {
	client snap.Client
}

func NewMidtransGateway(cfg config.PaymentConfig) *MidtransGateway {
	env := midtrans.Sandbox
	if cfg.IsProduction {
		env = midtrans.Production
	}
	g := &MidtransGateway{}
	g.client.New(cfg.ServerKey, env)
	return g
}

func (g *MidtransGateway) CreateSession(ctx context.Context, p *model.Payment, customer *model.User, course *model.Course) (string, string, error) {
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  p.OrderID,
			GrossAmt: int64(math.Round(p.Amount)),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: customer.FirstName,
			LName: customer.LastName,
			Email: customer.Email,
			Phone: customer.Phone,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    fmt.Sprintf("course-%d", course.ID),
			Name:  truncate(course.Title, 50),
			Price: int64(math.Round(p.Amount)),
			Qty:   1,
		}},
	}
	resp, mErr := g.client.CreateTransaction(req)
	if mErr != nil {
		return "", "", fmt.Errorf("midtrans create transaction: %s", mErr.GetMessage())
	}
	return resp.Token, resp.RedirectURL, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// GatewayNotification 支付网关异步通知
type GatewayNotification struct {
	OrderID           string `json:"order_id" binding:"required"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status" binding:"required"`
	TransactionID     string `json:"transaction_id"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	SettlementTime    string `json:"settlement_time"`
}

// NotificationSignature sha512(order_id + status_code + gross_amount + server_key)
func NotificationSignature(n GatewayNotification, serverKey string) string {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// MapGatewayStatus 网关状态映射为内部支付状态；未知状态视为待支付
func MapGatewayStatus(transactionStatus, fraudStatus string) model.PaymentStatus {
	switch strings.ToLower(transactionStatus) {
	case "capture":
		if strings.EqualFold(fraudStatus, "challenge") {
			return model.PaymentPending
		}
		return model.PaymentCompleted
	case "settlement":
		return model.PaymentCompleted
	case "deny", "cancel", "expire", "failure":
		return model.PaymentFailed
	case "refund", "partial_refund":
		return model.PaymentRefunded
	default:
		return model.PaymentPending
	}
}

// canTransition 已完成只能退款，已退款为终态
func canTransition(from, to model.PaymentStatus) bool {
	switch from {
	case model.PaymentPending, model.PaymentFailed:
		return true
	case model.PaymentCompleted:
		return to == model.PaymentRefunded
	case model.PaymentRefunded:
		return false
	default:
		return false
	}
}

type PaymentService struct {
	DB         *gorm.DB
	Repo       *repository.PaymentRepository
	CourseRepo *repository.CourseRepository
	UserRepo   *repository.UserRepository
	Enrollment *EnrollmentService
	Gateway    PaymentGateway
	Notifier   Notifier
	Cache      *StatsCache
	Cfg        config.PaymentConfig
}

func NewPaymentService(
	db *gorm.DB,
	repo *repository.PaymentRepository,
	courseRepo *repository.CourseRepository,
	userRepo *repository.UserRepository,
	enrollment *EnrollmentService,
	gateway PaymentGateway,
	notifier Notifier,
	cache *StatsCache,
	cfg config.PaymentConfig,
) *PaymentService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &PaymentService{
		DB:         db,
		Repo:       repo,
		CourseRepo: courseRepo,
		UserRepo:   userRepo,
		Enrollment: enrollment,
		Gateway:    gateway,
		Notifier:   notifier,
		Cache:      cache,
		Cfg:        cfg,
	}
}

type CheckoutResult struct {
	Enrolled    bool              `json:"enrolled"`
	Enrollment  *model.Enrollment `json:"enrollment,omitempty"`
	Payment     *model.Payment    `json:"payment,omitempty"`
	Token       string            `json:"token,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
}

// Checkout 免费课程直接选课，付费课程创建待支付订单并返回收银台地址
func (s *PaymentService) Checkout(ctx context.Context, studentID, courseID uint) (*CheckoutResult, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.IsFree() {
		e, err := s.Enrollment.Enroll(ctx, studentID, courseID)
		if err != nil {
			return nil, err
		}
		return &CheckoutResult{Enrolled: true, Enrollment: e}, nil
	}
	if course.Status != model.CoursePublished {
		return nil, util.ErrCourseNotOpen
	}
	enrolled, err := s.Enrollment.IsEnrolled(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, util.ErrAlreadyEnrolled
	}
	student, err := s.UserRepo.FindByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	p := &model.Payment{
		OrderID:   "LMS-" + model.GenerateUUID(),
		StudentID: studentID,
		CourseID:  courseID,
		Amount:    course.Price,
		Method:    model.PaymentMidtrans,
		Status:    model.PaymentPending,
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	token, redirect, err := s.Gateway.CreateSession(ctx, p, student, course)
	if err != nil {
		p.Status = model.PaymentFailed
		if saveErr := s.Repo.Save(ctx, p); saveErr != nil {
			logger.Log.Error("mark payment failed", zap.String("orderId", p.OrderID), zap.Error(saveErr))
		}
		monitoring.PaymentsTotal.WithLabelValues(string(model.PaymentFailed)).Inc()
		return nil, err
	}
	p.RedirectURL = redirect
	if err := s.Repo.Save(ctx, p); err != nil {
		return nil, err
	}
	monitoring.PaymentsTotal.WithLabelValues(string(model.PaymentPending)).Inc()
	logger.Log.Info("checkout created",
		zap.String("orderId", p.OrderID),
		zap.Uint("studentId", studentID),
		zap.Uint("courseId", courseID),
		zap.Float64("amount", p.Amount),
	)
	return &CheckoutResult{Payment: p, Token: token, RedirectURL: redirect}, nil
}

// HandleNotification 校验签名后推进支付状态，支付完成即自动选课。重复通知是幂等的
func (s *PaymentService) HandleNotification(ctx context.Context, n GatewayNotification) (*model.Payment, error) {
	want := NotificationSignature(n, s.Cfg.ServerKey)
	if n.SignatureKey == "" || subtle.ConstantTimeCompare([]byte(strings.ToLower(n.SignatureKey)), []byte(want)) != 1 {
		return nil, util.ErrInvalidSignature
	}
	next := MapGatewayStatus(n.TransactionStatus, n.FraudStatus)

	var (
		payment    *model.Payment
		course     *model.Course
		enrollment *model.Enrollment
		changed    bool
	)
	err := repository.Transaction(ctx, s.DB, func(tx *gorm.DB) error {
		payments := s.Repo.WithTx(tx)
		p, err := payments.LockByOrderID(ctx, n.OrderID)
		if err != nil {
			return err
		}
		payment = p
		if p.Status == next {
			return nil
		}
		if !canTransition(p.Status, next) {
			return util.ErrPaymentAlreadyFinal
		}

		p.Status = next
		if n.TransactionID != "" {
			p.TransactionID = n.TransactionID
		}
		if next == model.PaymentCompleted {
			paidAt := time.Now()
			if t, err := time.Parse("2006-01-02 15:04:05", n.SettlementTime); err == nil {
				paidAt = t
			}
			p.PaymentDate = &paidAt
		}
		if err := payments.Save(ctx, p); err != nil {
			return err
		}
		changed = true

		if course, err = s.CourseRepo.WithTx(tx).FindByID(ctx, p.CourseID); err != nil {
			return err
		}
		if next != model.PaymentCompleted {
			return nil
		}
		enrollment, err = s.Enrollment.enrollTx(ctx, tx, p.StudentID, course)
		if errors.Is(err, util.ErrAlreadyEnrolled) {
			err = nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return payment, nil
	}

	monitoring.PaymentsTotal.WithLabelValues(string(payment.Status)).Inc()
	s.Cache.Invalidate(ctx, instructorStatsKey(course.InstructorID))
	logger.Log.Info("payment status updated",
		zap.String("orderId", payment.OrderID),
		zap.String("status", string(payment.Status)),
		zap.String("transactionId", payment.TransactionID),
	)
	if enrollment != nil {
		s.Enrollment.afterEnroll(ctx, course, enrollment, "payment")
	}
	if payment.Status == model.PaymentFailed {
		s.Notifier.Notify(ctx, []uint{payment.StudentID}, model.Notification{
			Title:   "Payment failed",
			Message: fmt.Sprintf("Your payment for %s did not go through.", course.Title),
			Type:    model.NotifySystem,
		})
	}
	return payment, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, studentID uint) ([]model.Payment, error) {
	return s.Repo.ListByStudent(ctx, studentID)
}
