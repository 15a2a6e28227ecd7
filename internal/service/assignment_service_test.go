package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssignmentService(env *testEnv) *AssignmentService {
	return NewAssignmentService(
		repository.NewAssignmentRepository(env.db),
		repository.NewCourseRepository(env.db),
		repository.NewContentRepository(env.db),
		repository.NewEnrollmentRepository(env.db),
		nil,
		env.notifications,
	)
}

func TestAssignmentSubmitAndGrade(t *testing.T) {
	env := newEnv(t)
	svc := newAssignmentService(env)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	other := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 0)
	testutil.Enroll(t, env.db, student, fx.Course)
	testutil.Enroll(t, env.db, other, fx.Course)

	a, err := svc.Create(env.ctx, actorOf(instructor), AssignmentRequest{
		CourseID: fx.Course.ID,
		Title:    "Essay",
		DueDate:  time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 100, a.MaxPoints)

	sub, err := svc.Submit(env.ctx, student.ID, a.ID, SubmitRequest{Content: "my essay"})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionSubmitted, sub.Status)

	_, err = svc.Submit(env.ctx, student.ID, a.ID, SubmitRequest{Content: "again"})
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)

	_, err = svc.Grade(env.ctx, actorOf(instructor), sub.ID, GradeRequest{Grade: 101})
	assert.ErrorIs(t, err, util.ErrGradeOutOfRange)

	_, err = svc.Grade(env.ctx, actorOf(other), sub.ID, GradeRequest{Grade: 50})
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	before, err := env.notifications.UnreadCount(env.ctx, student.ID)
	require.NoError(t, err)
	graded, err := svc.Grade(env.ctx, actorOf(instructor), sub.ID, GradeRequest{Grade: 88, Feedback: "good"})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionGraded, graded.Status)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, 88, *graded.Grade)
	require.NotNil(t, graded.GradedBy)
	assert.Equal(t, instructor.ID, *graded.GradedBy)

	after, err := env.notifications.UnreadCount(env.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}

func TestAssignmentLateSubmission(t *testing.T) {
	env := newEnv(t)
	svc := newAssignmentService(env)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	outsider := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 0)
	testutil.Enroll(t, env.db, student, fx.Course)

	a, err := svc.Create(env.ctx, actorOf(instructor), AssignmentRequest{
		CourseID:  fx.Course.ID,
		Title:     "Overdue",
		DueDate:   time.Now().Add(-time.Hour),
		MaxPoints: 20,
	})
	require.NoError(t, err)

	sub, err := svc.Submit(env.ctx, student.ID, a.ID, SubmitRequest{FileURL: "/uploads/a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionLate, sub.Status)

	_, err = svc.Submit(env.ctx, outsider.ID, a.ID, SubmitRequest{Content: "x"})
	assert.ErrorIs(t, err, util.ErrEnrollmentNeeded)

	_, err = svc.Submit(env.ctx, student.ID, a.ID, SubmitRequest{})
	assert.Equal(t, util.KindValidation, util.KindOf(err))
}

func TestGradebookScopes(t *testing.T) {
	env := newEnv(t)
	svc := newAssignmentService(env)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	s1 := testutil.CreateUser(t, env.db, model.Student)
	s2 := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 0)
	testutil.Enroll(t, env.db, s1, fx.Course)
	testutil.Enroll(t, env.db, s2, fx.Course)

	a, err := svc.Create(env.ctx, actorOf(instructor), AssignmentRequest{
		CourseID: fx.Course.ID, Title: "Lab", DueDate: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = svc.Submit(env.ctx, s1.ID, a.ID, SubmitRequest{Content: "one"})
	require.NoError(t, err)
	_, err = svc.Submit(env.ctx, s2.ID, a.ID, SubmitRequest{Content: "two"})
	require.NoError(t, err)

	all, err := svc.Gradebook(env.ctx, actorOf(instructor), fx.Course.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.Gradebook(env.ctx, actorOf(s1), fx.Course.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, s1.ID, mine[0].StudentID)
}

func TestAssignmentLessonMustBelongToCourse(t *testing.T) {
	env := newEnv(t)
	svc := newAssignmentService(env)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	fx1 := testutil.CreateCourse(t, env.db, instructor, 1, 0)
	fx2 := testutil.CreateCourse(t, env.db, instructor, 1, 0)

	_, err := svc.Create(env.ctx, actorOf(instructor), AssignmentRequest{
		CourseID: fx1.Course.ID,
		LessonID: &fx2.Lessons[0].ID,
		Title:    "Mismatch",
		DueDate:  time.Now(),
	})
	assert.Equal(t, util.KindValidation, util.KindOf(err))
}
