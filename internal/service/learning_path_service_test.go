package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollPathSkipsExistingEnrollments(t *testing.T) {
	env := newEnv(t)
	svc := NewLearningPathService(env.db, repository.NewLearningPathRepository(env.db),
		repository.NewCourseRepository(env.db), env.enrollment)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	c1 := testutil.CreateCourse(t, env.db, instructor, 2, 0)
	c2 := testutil.CreateCourse(t, env.db, instructor, 3, 0)
	c3 := testutil.CreateCourse(t, env.db, instructor, 1, 0)
	testutil.Enroll(t, env.db, student, c2.Course)

	_, err := svc.Create(env.ctx, actorOf(student), LearningPathRequest{Title: "x", CourseIDs: []uint{c1.Course.ID}})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.Create(env.ctx, actorOf(instructor), LearningPathRequest{Title: "x", CourseIDs: []uint{c1.Course.ID, 404}})
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	path, err := svc.Create(env.ctx, actorOf(instructor), LearningPathRequest{
		Title:     "Backend track",
		CourseIDs: []uint{c1.Course.ID, c2.Course.ID, c3.Course.ID},
	})
	require.NoError(t, err)

	res, err := svc.EnrollPath(env.ctx, actorOf(student), path.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{c1.Course.ID, c3.Course.ID}, res.Enrolled)
	assert.Equal(t, []uint{c2.Course.ID}, res.Skipped)

	var count int64
	env.db.Model(&model.Enrollment{}).Where("student_id = ?", student.ID).Count(&count)
	assert.Equal(t, int64(3), count)
	env.db.Model(&model.Progress{}).Where("student_id = ?", student.ID).Count(&count)
	assert.Equal(t, int64(3), count)

	again, err := svc.EnrollPath(env.ctx, actorOf(student), path.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Enrolled)
	assert.Len(t, again.Skipped, 3)
}

func TestPrivatePathHiddenFromOthers(t *testing.T) {
	env := newEnv(t)
	svc := NewLearningPathService(env.db, repository.NewLearningPathRepository(env.db),
		repository.NewCourseRepository(env.db), env.enrollment)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	c := testutil.CreateCourse(t, env.db, instructor, 1, 0)

	private := false
	path, err := svc.Create(env.ctx, actorOf(instructor), LearningPathRequest{
		Title: "Draft track", IsPublic: &private, CourseIDs: []uint{c.Course.ID},
	})
	require.NoError(t, err)

	var stored model.LearningPath
	require.NoError(t, env.db.First(&stored, path.ID).Error)
	assert.False(t, stored.IsPublic)

	_, err = svc.Get(env.ctx, actorOf(student), path.ID)
	assert.ErrorIs(t, err, util.ErrPathNotFound)

	list, err := svc.List(env.ctx, student.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = svc.List(env.ctx, instructor.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
