package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/pkg/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	return &t
}

func TestGroupMonthlyEarnings(t *testing.T) {
	rows := []repository.EarningRow{
		{Amount: 30, PaymentDate: at(2024, time.March, 2)},
		{Amount: 10, PaymentDate: at(2023, time.December, 30)},
		{Amount: 20, PaymentDate: at(2024, time.January, 5)},
		{Amount: 5, PaymentDate: at(2024, time.March, 28)},
		{Amount: 7, CreatedAt: time.Date(2024, time.January, 9, 0, 0, 0, 0, time.UTC)},
	}
	revenue, months := GroupMonthlyEarnings(rows)
	assert.Equal(t, 72.0, revenue)
	assert.Equal(t, []MonthlyEarning{
		{Month: "Dec", Year: 2023, Amount: 10},
		{Month: "Jan", Year: 2024, Amount: 27},
		{Month: "Mar", Year: 2024, Amount: 35},
	}, months)

	revenue, months = GroupMonthlyEarnings(nil)
	assert.Zero(t, revenue)
	assert.Empty(t, months)
}

func TestInstructorStatsCountsOnlyCompletedPayments(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	s1 := testutil.CreateUser(t, env.db, model.Student)
	s2 := testutil.CreateUser(t, env.db, model.Student)
	c1 := testutil.CreateCourse(t, env.db, instructor, 1, 49.5)
	c2 := testutil.CreateCourse(t, env.db, instructor, 1, 20)
	testutil.Enroll(t, env.db, s1, c1.Course)
	testutil.Enroll(t, env.db, s1, c2.Course)
	testutil.Enroll(t, env.db, s2, c1.Course)

	payments := []model.Payment{
		{OrderID: "o1", StudentID: s1.ID, CourseID: c1.Course.ID, Amount: 49.5, Status: model.PaymentCompleted, PaymentDate: at(2024, time.February, 1)},
		{OrderID: "o2", StudentID: s1.ID, CourseID: c2.Course.ID, Amount: 20, Status: model.PaymentCompleted, PaymentDate: at(2024, time.January, 10)},
		{OrderID: "o3", StudentID: s2.ID, CourseID: c1.Course.ID, Amount: 49.5, Status: model.PaymentPending},
	}
	require.NoError(t, env.db.Create(&payments).Error)

	stats, err := env.dashboard.InstructorStats(env.ctx, instructor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.StudentCount)
	assert.Equal(t, 69.5, stats.Revenue)
	require.Len(t, stats.MonthlyEarnings, 2)
	assert.Equal(t, "Jan", stats.MonthlyEarnings[0].Month)
	assert.Equal(t, "Feb", stats.MonthlyEarnings[1].Month)

	dash, err := env.dashboard.InstructorDashboard(env.ctx, instructor.ID)
	require.NoError(t, err)
	require.Len(t, dash.Courses, 2)
	assert.Equal(t, int64(2), dash.Courses[0].Students)
}

func TestStudentDashboard(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	done := testutil.CreateCourse(t, env.db, instructor, 1, 0)
	open := testutil.CreateCourse(t, env.db, instructor, 2, 0)

	_, err := env.enrollment.Enroll(env.ctx, student.ID, done.Course.ID)
	require.NoError(t, err)
	_, err = env.enrollment.Enroll(env.ctx, student.ID, open.Course.ID)
	require.NoError(t, err)
	_, err = env.progress.RecordLessonProgress(env.ctx, student.ID, done.Lessons[0].ID, 600, true)
	require.NoError(t, err)

	d, err := env.dashboard.StudentDashboard(env.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, d.EnrolledCourses)
	assert.Equal(t, 1, d.CompletedCourses)
	assert.Equal(t, 1, d.InProgressCourses)
	assert.Equal(t, int64(1), d.Certificates)
	assert.Equal(t, testPoints.LessonPoints+testPoints.CoursePoints, d.Points)
	assert.Len(t, d.RecentCourses, 2)
}
