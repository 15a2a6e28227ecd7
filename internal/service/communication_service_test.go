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

func newCommunicationService(env *testEnv) *CommunicationService {
	return NewCommunicationService(
		repository.NewCommunicationRepository(env.db),
		repository.NewUserRepository(env.db),
		repository.NewCourseRepository(env.db),
		repository.NewEnrollmentRepository(env.db),
		env.notifications,
	)
}

func TestMessagesMarkReadOnOpen(t *testing.T) {
	env := newEnv(t)
	svc := newCommunicationService(env)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	peer := testutil.CreateUser(t, env.db, model.Student)

	_, err := svc.SendMessage(env.ctx, actorOf(student), MessageRequest{RecipientID: instructor.ID, Content: "question"})
	require.NoError(t, err)
	_, err = svc.SendMessage(env.ctx, actorOf(student), MessageRequest{RecipientID: instructor.ID, Content: "another"})
	require.NoError(t, err)

	_, err = svc.SendMessage(env.ctx, actorOf(student), MessageRequest{RecipientID: peer.ID, Content: "hi"})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	_, err = svc.SendMessage(env.ctx, actorOf(student), MessageRequest{RecipientID: student.ID, Content: "me"})
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	unread, err := svc.UnreadMessages(env.ctx, instructor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	inbox, err := svc.Inbox(env.ctx, instructor.ID)
	require.NoError(t, err)
	assert.Len(t, inbox, 2)

	conv, err := svc.Conversation(env.ctx, instructor.ID, student.ID)
	require.NoError(t, err)
	assert.Len(t, conv, 2)

	unread, err = svc.UnreadMessages(env.ctx, instructor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	// 收件人收到消息通知
	n, err := env.notifications.UnreadCount(env.ctx, instructor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAnnouncementNotifiesEnrolledStudents(t *testing.T) {
	env := newEnv(t)
	svc := newCommunicationService(env)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	s1 := testutil.CreateUser(t, env.db, model.Student)
	s2 := testutil.CreateUser(t, env.db, model.Student)
	outsider := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 0)
	testutil.Enroll(t, env.db, s1, fx.Course)
	testutil.Enroll(t, env.db, s2, fx.Course)

	_, err := svc.Announce(env.ctx, actorOf(s1), fx.Course.ID, AnnouncementRequest{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	_, err = svc.Announce(env.ctx, actorOf(instructor), fx.Course.ID, AnnouncementRequest{Title: "Exam", Content: "Friday", IsPinned: true})
	require.NoError(t, err)

	for _, u := range []*model.User{s1, s2} {
		n, err := env.notifications.UnreadCount(env.ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	}
	n, err := env.notifications.UnreadCount(env.ctx, outsider.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	list, err := svc.ListAnnouncements(env.ctx, actorOf(s1), fx.Course.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsPinned)

	_, err = svc.ListAnnouncements(env.ctx, actorOf(outsider), fx.Course.ID)
	assert.ErrorIs(t, err, util.ErrEnrollmentNeeded)
}
