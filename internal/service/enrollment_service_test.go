package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollCreatesProgress(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 3, 0)

	e, err := env.enrollment.Enroll(env.ctx, student.ID, fx.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentActive, e.Status)
	assert.Equal(t, 0.0, e.Progress)

	var p model.Progress
	require.NoError(t, env.db.Where("student_id = ? AND course_id = ?", student.ID, fx.Course.ID).First(&p).Error)
	assert.Equal(t, 3, p.TotalLessons)
	assert.Equal(t, 0.0, p.PercentComplete)

	// 学生与教师各收到一条通知
	n, err := env.notifications.UnreadCount(env.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = env.notifications.UnreadCount(env.ctx, instructor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestEnrollTwiceConflicts(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 0)

	_, err := env.enrollment.Enroll(env.ctx, student.ID, fx.Course.ID)
	require.NoError(t, err)
	_, err = env.enrollment.Enroll(env.ctx, student.ID, fx.Course.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)
	assert.Equal(t, util.KindConflict, util.KindOf(err))

	var count int64
	env.db.Model(&model.Progress{}).Where("student_id = ?", student.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestEnrollRejectsMissingAndDraftCourses(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)

	_, err := env.enrollment.Enroll(env.ctx, student.ID, 404)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	fx := testutil.CreateCourse(t, env.db, instructor, 1, 0)
	require.NoError(t, env.db.Model(fx.Course).Update("status", model.CourseDraft).Error)
	_, err = env.enrollment.Enroll(env.ctx, student.ID, fx.Course.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotOpen)
}

func TestUnenroll(t *testing.T) {
	env := newEnv(t)
	owner := testutil.CreateUser(t, env.db, model.Instructor)
	other := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, owner, 2, 0)
	testutil.Enroll(t, env.db, student, fx.Course)

	err := env.enrollment.Unenroll(env.ctx, actorOf(other), student.ID, fx.Course.ID)
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	err = env.enrollment.Unenroll(env.ctx, actorOf(student), student.ID, fx.Course.ID)
	assert.Equal(t, util.KindForbidden, util.KindOf(err))

	require.NoError(t, env.enrollment.Unenroll(env.ctx, actorOf(owner), student.ID, fx.Course.ID))

	ok, err := env.enrollment.IsEnrolled(env.ctx, student.ID, fx.Course.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = env.enrollment.Unenroll(env.ctx, actorOf(owner), student.ID, fx.Course.ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestListCourseStudentsRequiresOwner(t *testing.T) {
	env := newEnv(t)
	owner := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	admin := testutil.CreateUser(t, env.db, model.Admin)
	fx := testutil.CreateCourse(t, env.db, owner, 1, 0)
	testutil.Enroll(t, env.db, student, fx.Course)

	list, err := env.enrollment.ListCourseStudents(env.ctx, actorOf(owner), fx.Course.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, student.Username, list[0].Username)

	_, err = env.enrollment.ListCourseStudents(env.ctx, actorOf(admin), fx.Course.ID)
	assert.NoError(t, err)

	_, err = env.enrollment.ListCourseStudents(env.ctx, actorOf(student), fx.Course.ID)
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)
}
