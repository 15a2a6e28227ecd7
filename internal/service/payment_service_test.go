package service

import (
	"context"
	"errors"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	calls int
	err   error
}

func (g *fakeGateway) CreateSession(_ context.Context, p *model.Payment, _ *model.User, _ *model.Course) (string, string, error) {
	g.calls++
	if g.err != nil {
		return "", "", g.err
	}
	return "tok-" + p.OrderID, "https://pay.example.com/" + p.OrderID, nil
}

const testServerKey = "SB-server-key"

func newPaymentService(env *testEnv, gw PaymentGateway) *PaymentService {
	return NewPaymentService(env.db,
		repository.NewPaymentRepository(env.db),
		repository.NewCourseRepository(env.db),
		repository.NewUserRepository(env.db),
		env.enrollment, gw, env.notifications, nil,
		config.PaymentConfig{ServerKey: testServerKey},
	)
}

func signed(n GatewayNotification) GatewayNotification {
	n.SignatureKey = NotificationSignature(n, testServerKey)
	return n
}

func TestMapGatewayStatus(t *testing.T) {
	assert.Equal(t, model.PaymentCompleted, MapGatewayStatus("settlement", ""))
	assert.Equal(t, model.PaymentCompleted, MapGatewayStatus("capture", "accept"))
	assert.Equal(t, model.PaymentPending, MapGatewayStatus("capture", "challenge"))
	assert.Equal(t, model.PaymentFailed, MapGatewayStatus("expire", ""))
	assert.Equal(t, model.PaymentFailed, MapGatewayStatus("deny", ""))
	assert.Equal(t, model.PaymentRefunded, MapGatewayStatus("refund", ""))
	assert.Equal(t, model.PaymentPending, MapGatewayStatus("pending", ""))
}

func TestCheckoutFreeCourseEnrollsDirectly(t *testing.T) {
	env := newEnv(t)
	gw := &fakeGateway{}
	svc := newPaymentService(env, gw)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 0)

	res, err := svc.Checkout(env.ctx, student.ID, fx.Course.ID)
	require.NoError(t, err)
	assert.True(t, res.Enrolled)
	assert.Nil(t, res.Payment)
	assert.Zero(t, gw.calls)
}

func TestPaidCheckoutSettlesAndEnrolls(t *testing.T) {
	env := newEnv(t)
	svc := newPaymentService(env, &fakeGateway{})
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 2, 150000)

	res, err := svc.Checkout(env.ctx, student.ID, fx.Course.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Payment)
	assert.Equal(t, model.PaymentPending, res.Payment.Status)
	assert.NotEmpty(t, res.Token)

	ok, err := env.enrollment.IsEnrolled(env.ctx, student.ID, fx.Course.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	n := GatewayNotification{
		OrderID:           res.Payment.OrderID,
		StatusCode:        "200",
		GrossAmount:       "150000.00",
		TransactionStatus: "settlement",
		TransactionID:     "trx-1",
		SettlementTime:    "2024-05-02 10:00:00",
	}

	bad := n
	bad.SignatureKey = "deadbeef"
	_, err = svc.HandleNotification(env.ctx, bad)
	assert.ErrorIs(t, err, util.ErrInvalidSignature)

	p, err := svc.HandleNotification(env.ctx, signed(n))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, p.Status)
	assert.Equal(t, "trx-1", p.TransactionID)
	require.NotNil(t, p.PaymentDate)

	ok, err = env.enrollment.IsEnrolled(env.ctx, student.ID, fx.Course.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// 网关重试同一通知
	_, err = svc.HandleNotification(env.ctx, signed(n))
	require.NoError(t, err)

	stats, err := env.dashboard.InstructorStats(env.ctx, instructor.ID)
	require.NoError(t, err)
	assert.Equal(t, 150000.0, stats.Revenue)
	require.Len(t, stats.MonthlyEarnings, 1)
	assert.Equal(t, "May", stats.MonthlyEarnings[0].Month)

	expired := n
	expired.TransactionStatus = "expire"
	_, err = svc.HandleNotification(env.ctx, signed(expired))
	assert.ErrorIs(t, err, util.ErrPaymentAlreadyFinal)
}

func TestCheckoutGatewayFailureMarksPaymentFailed(t *testing.T) {
	env := newEnv(t)
	svc := newPaymentService(env, &fakeGateway{err: errors.New("gateway down")})
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 10)

	_, err := svc.Checkout(env.ctx, student.ID, fx.Course.ID)
	require.Error(t, err)

	list, err := svc.ListPayments(env.ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.PaymentFailed, list[0].Status)
}

func TestCheckoutRejectsEnrolledStudent(t *testing.T) {
	env := newEnv(t)
	svc := newPaymentService(env, &fakeGateway{})
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 10)
	testutil.Enroll(t, env.db, student, fx.Course)

	_, err := svc.Checkout(env.ctx, student.ID, fx.Course.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)
}
