package service

import (
	"encoding/json"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCourseService(env *testEnv) *CourseService {
	return NewCourseService(repository.NewCourseRepository(env.db), nil, nil)
}

func TestCreateCourseSlugAndLists(t *testing.T) {
	env := newEnv(t)
	svc := newCourseService(env)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)

	_, err := svc.CreateCourse(env.ctx, actorOf(student), CourseRequest{Title: "Nope"})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	c1, err := svc.CreateCourse(env.ctx, actorOf(instructor), CourseRequest{
		Title:        "Go Basics",
		Tags:         json.RawMessage(`["go"," backend ",""]`),
		Requirements: json.RawMessage(`"[\"laptop\"]"`),
		IsFeatured:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "go-basics", c1.Slug)
	assert.Equal(t, model.CourseDraft, c1.Status)
	assert.Equal(t, model.Beginner, c1.Difficulty)
	assert.Equal(t, []string{"go", "backend"}, []string(c1.Tags))
	assert.Equal(t, []string{"laptop"}, []string(c1.Requirements))
	// 非管理员不能设置推荐位
	assert.False(t, c1.IsFeatured)

	c2, err := svc.CreateCourse(env.ctx, actorOf(instructor), CourseRequest{Title: "Go Basics"})
	require.NoError(t, err)
	assert.Equal(t, "go-basics-2", c2.Slug)

	_, err = svc.CreateCourse(env.ctx, actorOf(instructor), CourseRequest{Title: "Bad", Tags: json.RawMessage(`{"a":1}`)})
	assert.Equal(t, util.KindValidation, util.KindOf(err))
}

func TestGetCourseHidesDrafts(t *testing.T) {
	env := newEnv(t)
	svc := newCourseService(env)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	other := testutil.CreateUser(t, env.db, model.Instructor)

	draft, err := svc.CreateCourse(env.ctx, actorOf(instructor), CourseRequest{Title: "Draft"})
	require.NoError(t, err)

	_, err = svc.GetCourse(env.ctx, nil, draft.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
	owner := actorOf(instructor)
	_, err = svc.GetCourse(env.ctx, &owner, draft.ID)
	require.NoError(t, err)

	_, err = svc.UpdateCourse(env.ctx, actorOf(other), draft.ID, CourseRequest{Title: "Hijack"})
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	updated, err := svc.UpdateCourse(env.ctx, owner, draft.ID, CourseRequest{Title: "Published Now", Status: model.CoursePublished})
	require.NoError(t, err)
	assert.Equal(t, "published-now", updated.Slug)

	list, total, err := svc.ListCourses(env.ctx, CourseQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, draft.ID, list[0].ID)
}

func TestModuleAndLessonOrdering(t *testing.T) {
	env := newEnv(t)
	courseRepo := repository.NewCourseRepository(env.db)
	enrollmentRepo := repository.NewEnrollmentRepository(env.db)
	content := NewContentService(repository.NewContentRepository(env.db), courseRepo, enrollmentRepo,
		env.progress, nil, nil)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 2, 0)
	testutil.Enroll(t, env.db, student, fx.Course)

	_, err := content.CreateModule(env.ctx, actorOf(instructor), fx.Course.ID, ModuleRequest{Title: "Clash", Order: 1})
	assert.ErrorIs(t, err, util.ErrDuplicateOrder)

	_, err = content.CreateLesson(env.ctx, actorOf(instructor), fx.Module.ID, LessonRequest{Title: "Clash", Order: 2})
	assert.ErrorIs(t, err, util.ErrDuplicateOrder)

	l, err := content.CreateLesson(env.ctx, actorOf(instructor), fx.Module.ID, LessonRequest{Title: "Third", Order: 3})
	require.NoError(t, err)
	assert.Equal(t, model.LessonVideo, l.LessonType)

	var c model.Course
	require.NoError(t, env.db.First(&c, fx.Course.ID).Error)
	assert.Equal(t, 3, c.TotalLessons)
	var p model.Progress
	require.NoError(t, env.db.Where("student_id = ? AND course_id = ?", student.ID, fx.Course.ID).First(&p).Error)
	assert.Equal(t, 3, p.TotalLessons)

	require.NoError(t, content.DeleteLesson(env.ctx, actorOf(instructor), l.ID))
	require.NoError(t, env.db.First(&c, fx.Course.ID).Error)
	assert.Equal(t, 2, c.TotalLessons)
}

func TestGetLessonAccess(t *testing.T) {
	env := newEnv(t)
	content := NewContentService(repository.NewContentRepository(env.db), repository.NewCourseRepository(env.db),
		repository.NewEnrollmentRepository(env.db), env.progress, nil, nil)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	fx := testutil.CreateCourse(t, env.db, instructor, 2, 0)
	require.NoError(t, env.db.Model(&model.Lesson{}).Where("id = ?", fx.Lessons[0].ID).Update("is_free", true).Error)

	_, err := content.GetLesson(env.ctx, actorOf(student), fx.Lessons[0].ID)
	require.NoError(t, err)
	_, err = content.GetLesson(env.ctx, actorOf(student), fx.Lessons[1].ID)
	assert.ErrorIs(t, err, util.ErrEnrollmentNeeded)
	_, err = content.GetLesson(env.ctx, actorOf(instructor), fx.Lessons[1].ID)
	require.NoError(t, err)

	testutil.Enroll(t, env.db, student, fx.Course)
	_, err = content.GetLesson(env.ctx, actorOf(student), fx.Lessons[1].ID)
	require.NoError(t, err)
}
