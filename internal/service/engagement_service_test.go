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

func newEngagementService(env *testEnv) *EngagementService {
	return NewEngagementService(
		env.db,
		repository.NewEngagementRepository(env.db),
		repository.NewCourseRepository(env.db),
		repository.NewContentRepository(env.db),
		repository.NewEnrollmentRepository(env.db),
		nil,
	)
}

func TestRateCourseRecomputesAggregate(t *testing.T) {
	env := newEnv(t)
	svc := newEngagementService(env)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	s1 := testutil.CreateUser(t, env.db, model.Student)
	s2 := testutil.CreateUser(t, env.db, model.Student)
	outsider := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 0)
	testutil.Enroll(t, env.db, s1, fx.Course)
	testutil.Enroll(t, env.db, s2, fx.Course)

	_, err := svc.RateCourse(env.ctx, s1.ID, fx.Course.ID, RatingRequest{Rating: 5})
	require.NoError(t, err)
	_, err = svc.RateCourse(env.ctx, s2.ID, fx.Course.ID, RatingRequest{Rating: 4, Review: "solid"})
	require.NoError(t, err)

	var c model.Course
	require.NoError(t, env.db.First(&c, fx.Course.ID).Error)
	assert.Equal(t, 4.5, c.Rating)
	assert.Equal(t, 2, c.TotalRatings)

	_, err = svc.RateCourse(env.ctx, s1.ID, fx.Course.ID, RatingRequest{Rating: 3})
	assert.ErrorIs(t, err, util.ErrAlreadyRated)

	_, err = svc.RateCourse(env.ctx, outsider.ID, fx.Course.ID, RatingRequest{Rating: 3})
	assert.Equal(t, util.KindForbidden, util.KindOf(err))

	_, err = svc.RateCourse(env.ctx, s1.ID, fx.Course.ID, RatingRequest{Rating: 6})
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	_, err = svc.UpdateRating(env.ctx, s1.ID, fx.Course.ID, RatingRequest{Rating: 2})
	require.NoError(t, err)
	require.NoError(t, env.db.First(&c, fx.Course.ID).Error)
	assert.Equal(t, 3.0, c.Rating)
	assert.Equal(t, 2, c.TotalRatings)
}

func TestWishlist(t *testing.T) {
	env := newEnv(t)
	svc := newEngagementService(env)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 0)

	require.NoError(t, svc.AddToWishlist(env.ctx, student.ID, fx.Course.ID))
	assert.ErrorIs(t, svc.AddToWishlist(env.ctx, student.ID, fx.Course.ID), util.ErrAlreadyWishlisted)

	list, err := svc.Wishlist(env.ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Course)
	assert.Equal(t, fx.Course.Title, list[0].Course.Title)

	require.NoError(t, svc.RemoveFromWishlist(env.ctx, student.ID, fx.Course.ID))
	assert.Equal(t, util.KindNotFound, util.KindOf(svc.RemoveFromWishlist(env.ctx, student.ID, fx.Course.ID)))
}

func TestLessonNotesUpsert(t *testing.T) {
	env := newEnv(t)
	svc := newEngagementService(env)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 0)
	lessonID := fx.Lessons[0].ID

	empty, err := svc.GetNote(env.ctx, student.ID, lessonID)
	require.NoError(t, err)
	assert.Empty(t, empty.Notes)

	_, err = svc.SaveNote(env.ctx, student.ID, lessonID, "first")
	require.NoError(t, err)
	note, err := svc.SaveNote(env.ctx, student.ID, lessonID, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", note.Notes)

	var count int64
	env.db.Model(&model.LessonNote{}).Where("user_id = ?", student.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	_, err = svc.SaveNote(env.ctx, student.ID, 9999, "missing")
	assert.Equal(t, util.KindNotFound, util.KindOf(err))
}
