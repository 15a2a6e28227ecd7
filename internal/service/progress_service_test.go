package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/testutil"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentComplete(t *testing.T) {
	assert.Equal(t, 0.0, PercentComplete(0, 0))
	assert.Equal(t, 0.0, PercentComplete(3, 0))
	assert.Equal(t, 75.0, PercentComplete(3, 4))
	assert.Equal(t, 100.0, PercentComplete(4, 4))
}

func TestRecordLessonProgressCompletesCourse(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 4, 0)

	_, err := env.enrollment.Enroll(env.ctx, student.ID, fx.Course.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := env.progress.RecordLessonProgress(env.ctx, student.ID, fx.Lessons[i].ID, 600, true)
		require.NoError(t, err)
		assert.True(t, res.IsCompleted)
		assert.False(t, res.CourseCompleted)
		assert.Nil(t, res.Certificate)
	}

	p, err := env.progress.GetCourseProgress(env.ctx, student.ID, fx.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, p.PercentComplete)
	assert.Equal(t, 3, p.LessonsCompleted)
	assert.Equal(t, 4, p.TotalLessons)
	assert.Equal(t, 1800, p.TimeSpent)
	require.Len(t, p.Lessons, 4)
	assert.False(t, p.Lessons[3].IsCompleted)

	res, err := env.progress.RecordLessonProgress(env.ctx, student.ID, fx.Lessons[3].ID, 600, true)
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.PercentComplete)
	assert.True(t, res.CourseCompleted)
	require.NotNil(t, res.Certificate)
	assert.NotEmpty(t, res.Certificate.CertificateID)

	// 重复提交不会再发证书
	again, err := env.progress.RecordLessonProgress(env.ctx, student.ID, fx.Lessons[3].ID, 600, true)
	require.NoError(t, err)
	assert.False(t, again.CourseCompleted)
	assert.Nil(t, again.Certificate)

	certs, err := env.enrollment.Certificates(env.ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, certs, 1)

	var e model.Enrollment
	require.NoError(t, env.db.Where("student_id = ? AND course_id = ?", student.ID, fx.Course.ID).First(&e).Error)
	assert.Equal(t, model.EnrollmentCompleted, e.Status)
	assert.True(t, e.CertificateEarned)
	assert.NotNil(t, e.CompletedAt)
	assert.Equal(t, 100.0, e.Progress)

	var u model.User
	require.NoError(t, env.db.First(&u, student.ID).Error)
	assert.Equal(t, 4*testPoints.LessonPoints+testPoints.CoursePoints, u.Points)
}

func TestWatchedDurationNeverDecreases(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 2, 0)
	testutil.Enroll(t, env.db, student, fx.Course)
	lesson := fx.Lessons[0].ID

	res, err := env.progress.RecordLessonProgress(env.ctx, student.ID, lesson, 300, false)
	require.NoError(t, err)
	assert.Equal(t, 300, res.WatchedDuration)
	assert.False(t, res.IsCompleted)

	res, err = env.progress.RecordLessonProgress(env.ctx, student.ID, lesson, 120, false)
	require.NoError(t, err)
	assert.Equal(t, 300, res.WatchedDuration)

	res, err = env.progress.RecordLessonProgress(env.ctx, student.ID, lesson, 450, false)
	require.NoError(t, err)
	assert.Equal(t, 450, res.WatchedDuration)

	p, err := env.progress.GetCourseProgress(env.ctx, student.ID, fx.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, 450, p.TimeSpent)
	assert.Equal(t, 0.0, p.PercentComplete)
}

func TestCompletionIsSticky(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 2, 0)
	testutil.Enroll(t, env.db, student, fx.Course)
	lesson := fx.Lessons[0].ID

	first, err := env.progress.RecordLessonProgress(env.ctx, student.ID, lesson, 600, true)
	require.NoError(t, err)
	require.NotNil(t, first.CompletedAt)
	assert.Equal(t, 50.0, first.PercentComplete)

	second, err := env.progress.RecordLessonProgress(env.ctx, student.ID, lesson, 600, false)
	require.NoError(t, err)
	assert.True(t, second.IsCompleted)
	require.NotNil(t, second.CompletedAt)
	assert.True(t, first.CompletedAt.Equal(*second.CompletedAt))
	assert.Nil(t, second.Reward)
}

func TestRecordLessonProgressErrors(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 0)

	_, err := env.progress.RecordLessonProgress(env.ctx, student.ID, fx.Lessons[0].ID, 10, false)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	_, err = env.progress.RecordLessonProgress(env.ctx, student.ID, 9999, 10, false)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)

	_, err = env.progress.RecordLessonProgress(env.ctx, student.ID, fx.Lessons[0].ID, -1, false)
	assert.Equal(t, util.KindValidation, util.KindOf(err))
}

func TestResyncCourseAfterNewLesson(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 2, 0)
	testutil.Enroll(t, env.db, student, fx.Course)

	_, err := env.progress.RecordLessonProgress(env.ctx, student.ID, fx.Lessons[0].ID, 600, true)
	require.NoError(t, err)

	require.NoError(t, env.db.Create(&model.Lesson{ModuleID: fx.Module.ID, Title: "Extra", SortOrder: 3}).Error)
	require.NoError(t, env.progress.ResyncCourse(env.ctx, fx.Course.ID))

	p, err := env.progress.GetCourseProgress(env.ctx, student.ID, fx.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.TotalLessons)
	assert.InDelta(t, 33.33, p.PercentComplete, 0.01)

	var c model.Course
	require.NoError(t, env.db.First(&c, fx.Course.ID).Error)
	assert.Equal(t, 3, c.TotalLessons)
}

func TestResyncKeepsCompletedEnrollment(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 2, 0)
	testutil.Enroll(t, env.db, student, fx.Course)

	for _, l := range fx.Lessons {
		_, err := env.progress.RecordLessonProgress(env.ctx, student.ID, l.ID, 600, true)
		require.NoError(t, err)
	}

	require.NoError(t, env.db.Create(&model.Lesson{ModuleID: fx.Module.ID, Title: "Bonus", SortOrder: 3}).Error)
	require.NoError(t, env.progress.ResyncCourse(env.ctx, fx.Course.ID))

	p, err := env.progress.GetCourseProgress(env.ctx, student.ID, fx.Course.ID)
	require.NoError(t, err)
	assert.InDelta(t, 66.67, p.PercentComplete, 0.01)

	var e model.Enrollment
	require.NoError(t, env.db.Where("student_id = ? AND course_id = ?", student.ID, fx.Course.ID).First(&e).Error)
	assert.Equal(t, model.EnrollmentCompleted, e.Status)
	assert.True(t, e.CertificateEarned)
	assert.InDelta(t, 66.67, e.Progress, 0.01)

	certs, err := env.enrollment.Certificates(env.ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, certs, 1)
}

func TestRecordLessonProgressRecreatesMissingCourseProgress(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 2, 0)
	testutil.Enroll(t, env.db, student, fx.Course)
	require.NoError(t, env.db.Where("student_id = ?", student.ID).Delete(&model.Progress{}).Error)

	res, err := env.progress.RecordLessonProgress(env.ctx, student.ID, fx.Lessons[0].ID, 600, true)
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.PercentComplete)

	var count int64
	env.db.Model(&model.Progress{}).Where("student_id = ? AND course_id = ?", student.ID, fx.Course.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestConcurrentLessonCompletion(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 4, 0)
	testutil.Enroll(t, env.db, student, fx.Course)

	// 每节课时由两个调用方同时标记完成
	type outcome struct {
		res *LessonProgressResult
		err error
	}
	results := make(chan outcome, 2*len(fx.Lessons))
	var wg sync.WaitGroup
	for _, l := range fx.Lessons {
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(lessonID uint) {
				defer wg.Done()
				res, err := env.progress.RecordLessonProgress(env.ctx, student.ID, lessonID, 600, true)
				results <- outcome{res, err}
			}(l.ID)
		}
	}
	wg.Wait()
	close(results)

	issued, completions := 0, 0
	for o := range results {
		require.NoError(t, o.err)
		if o.res.Certificate != nil {
			issued++
		}
		if o.res.CourseCompleted {
			completions++
		}
	}
	assert.Equal(t, 1, issued)
	assert.Equal(t, 1, completions)

	p, err := env.progress.GetCourseProgress(env.ctx, student.ID, fx.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, p.LessonsCompleted)
	assert.Equal(t, 100.0, p.PercentComplete)
	assert.Equal(t, 4*600, p.TimeSpent)

	certs, err := env.enrollment.Certificates(env.ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, certs, 1)

	var u model.User
	require.NoError(t, env.db.First(&u, student.ID).Error)
	assert.Equal(t, 4*testPoints.LessonPoints+testPoints.CoursePoints, u.Points)
}

func TestGetLessonProgress(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 1, 0)

	lp, err := env.progress.GetLessonProgress(env.ctx, student.ID, fx.Lessons[0].ID)
	require.NoError(t, err)
	assert.False(t, lp.IsCompleted)
	assert.Zero(t, lp.WatchedDuration)

	_, err = env.progress.GetLessonProgress(env.ctx, student.ID, 9999)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)

	// 查询失败不能当作尚未观看
	require.NoError(t, env.db.Migrator().DropTable(&model.LessonProgress{}))
	lp, err = env.progress.GetLessonProgress(env.ctx, student.ID, fx.Lessons[0].ID)
	assert.Error(t, err)
	assert.Nil(t, lp)
}
