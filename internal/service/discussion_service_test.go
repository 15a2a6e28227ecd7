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

func newDiscussionService(env *testEnv) *DiscussionService {
	return NewDiscussionService(
		repository.NewDiscussionRepository(env.db),
		repository.NewCourseRepository(env.db),
		repository.NewEnrollmentRepository(env.db),
	)
}

func TestDiscussionThreadLifecycle(t *testing.T) {
	env := newEnv(t)
	svc := newDiscussionService(env)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	outsider := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 0)
	testutil.Enroll(t, env.db, student, fx.Course)

	_, err := svc.CreateThread(env.ctx, actorOf(outsider), fx.Course.ID, ThreadRequest{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, util.ErrEnrollmentNeeded)

	thread, err := svc.CreateThread(env.ctx, actorOf(student), fx.Course.ID, ThreadRequest{Title: "Help", Content: "stuck"})
	require.NoError(t, err)

	post, err := svc.Reply(env.ctx, actorOf(instructor), thread.ID, PostRequest{Content: "try this"})
	require.NoError(t, err)

	view, err := svc.GetThread(env.ctx, actorOf(student), thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.PostCount)
	require.Len(t, view.Posts, 1)

	like, err := svc.ToggleLike(env.ctx, actorOf(student), post.ID)
	require.NoError(t, err)
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.Likes)
	like, err = svc.ToggleLike(env.ctx, actorOf(student), post.ID)
	require.NoError(t, err)
	assert.False(t, like.Liked)
	assert.Equal(t, 0, like.Likes)

	// 发帖人可以标记最佳回复
	require.NoError(t, svc.MarkSolution(env.ctx, actorOf(student), post.ID))

	assert.ErrorIs(t, svc.SetFlags(env.ctx, actorOf(student), thread.ID, ThreadFlags{IsLocked: true}), util.ErrNotCourseOwner)
	require.NoError(t, svc.SetFlags(env.ctx, actorOf(instructor), thread.ID, ThreadFlags{IsLocked: true}))

	_, err = svc.Reply(env.ctx, actorOf(student), thread.ID, PostRequest{Content: "more"})
	assert.ErrorIs(t, err, util.ErrThreadLocked)
	assert.Equal(t, util.KindForbidden, util.KindOf(err))
}
