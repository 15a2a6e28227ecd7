package service

import (
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/testutil"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quizFixture struct {
	instructor *model.User
	student    *model.User
	course     *testutil.CourseFixture
	quiz       *model.Quiz
	questions  []*model.Question
}

// newQuizFixture 两道 5 分的单选题，每题第一个选项正确
func newQuizFixture(t *testing.T, env *testEnv, attempts int) *quizFixture {
	t.Helper()
	fx := &quizFixture{
		instructor: testutil.CreateUser(t, env.db, model.Instructor),
		student:    testutil.CreateUser(t, env.db, model.Student),
	}
	fx.course = testutil.CreateCourse(t, env.db, fx.instructor, 1, 0)
	testutil.Enroll(t, env.db, fx.student, fx.course.Course)

	quiz, err := env.quiz.CreateQuiz(env.ctx, actorOf(fx.instructor), QuizRequest{
		LessonID:        fx.course.Lessons[0].ID,
		Title:           "Checkpoint",
		AttemptsAllowed: &attempts,
	})
	require.NoError(t, err)
	fx.quiz = quiz

	for i := 0; i < 2; i++ {
		q, err := env.quiz.AddQuestion(env.ctx, actorOf(fx.instructor), quiz.ID, QuestionRequest{
			QuestionText: "Pick the first option",
			QuestionType: model.MultipleChoice,
			Points:       5,
			Order:        i + 1,
			Options: []OptionRequest{
				{OptionText: "right", IsCorrect: true},
				{OptionText: "wrong"},
			},
		})
		require.NoError(t, err)
		fx.questions = append(fx.questions, q)
	}
	return fx
}

func TestSubmitAttemptScoresHalf(t *testing.T) {
	env := newEnv(t)
	fx := newQuizFixture(t, env, 3)

	attempt, err := env.quiz.StartAttempt(env.ctx, fx.student.ID, fx.quiz.ID)
	require.NoError(t, err)

	res, err := env.quiz.SubmitAttempt(env.ctx, fx.student.ID, attempt.ID, []ResponseInput{
		{QuestionID: fx.questions[0].ID, SelectedOptionIDs: []uint{fx.questions[0].Options[0].ID}},
		{QuestionID: fx.questions[1].ID, SelectedOptionIDs: []uint{fx.questions[1].Options[1].ID}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 50.0, *res.Attempt.Score)
	assert.False(t, *res.Attempt.Passed)
	assert.Equal(t, 5, res.PointsEarned)
	assert.Equal(t, int64(10), res.TotalPoints)
	assert.Nil(t, res.Reward)

	_, err = env.quiz.SubmitAttempt(env.ctx, fx.student.ID, attempt.ID, nil, nil)
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)
}

func TestSubmitAttemptRequiresExactOptionSet(t *testing.T) {
	env := newEnv(t)
	fx := newQuizFixture(t, env, 0)
	q := fx.questions[0]

	attempt, err := env.quiz.StartAttempt(env.ctx, fx.student.ID, fx.quiz.ID)
	require.NoError(t, err)
	res, err := env.quiz.SubmitAttempt(env.ctx, fx.student.ID, attempt.ID, []ResponseInput{
		{QuestionID: q.ID, SelectedOptionIDs: []uint{q.Options[0].ID, q.Options[1].ID}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, *res.Attempt.Score)
	require.NotNil(t, res.Responses[0].IsCorrect)
	assert.False(t, *res.Responses[0].IsCorrect)
}

func TestFourthAttemptIsRejected(t *testing.T) {
	env := newEnv(t)
	fx := newQuizFixture(t, env, 3)

	for i := 0; i < 3; i++ {
		_, err := env.quiz.StartAttempt(env.ctx, fx.student.ID, fx.quiz.ID)
		require.NoError(t, err)
	}
	_, err := env.quiz.StartAttempt(env.ctx, fx.student.ID, fx.quiz.ID)
	assert.ErrorIs(t, err, util.ErrAttemptLimitExceeded)
	assert.Equal(t, util.KindLimitExceeded, util.KindOf(err))
}

func TestUnlimitedAttempts(t *testing.T) {
	env := newEnv(t)
	fx := newQuizFixture(t, env, 0)
	for i := 0; i < 5; i++ {
		_, err := env.quiz.StartAttempt(env.ctx, fx.student.ID, fx.quiz.ID)
		require.NoError(t, err)
	}
}

func TestPassingAwardsPointsOnce(t *testing.T) {
	env := newEnv(t)
	fx := newQuizFixture(t, env, 0)
	allRight := []ResponseInput{
		{QuestionID: fx.questions[0].ID, SelectedOptionIDs: []uint{fx.questions[0].Options[0].ID}},
		{QuestionID: fx.questions[1].ID, SelectedOptionIDs: []uint{fx.questions[1].Options[0].ID}},
	}

	for i := 0; i < 2; i++ {
		attempt, err := env.quiz.StartAttempt(env.ctx, fx.student.ID, fx.quiz.ID)
		require.NoError(t, err)
		res, err := env.quiz.SubmitAttempt(env.ctx, fx.student.ID, attempt.ID, allRight, nil)
		require.NoError(t, err)
		assert.Equal(t, 100.0, *res.Attempt.Score)
		assert.True(t, *res.Attempt.Passed)
	}

	var u model.User
	require.NoError(t, env.db.First(&u, fx.student.ID).Error)
	assert.Equal(t, testPoints.QuizPassedPoints, u.Points)
}

func TestSubmitRejectsForeignQuestions(t *testing.T) {
	env := newEnv(t)
	fx := newQuizFixture(t, env, 3)
	attempt, err := env.quiz.StartAttempt(env.ctx, fx.student.ID, fx.quiz.ID)
	require.NoError(t, err)

	_, err = env.quiz.SubmitAttempt(env.ctx, fx.student.ID, attempt.ID, []ResponseInput{{QuestionID: 9999}}, nil)
	assert.ErrorIs(t, err, util.ErrQuestionNotInQuiz)

	other := testutil.CreateUser(t, env.db, model.Student)
	_, err = env.quiz.SubmitAttempt(env.ctx, other.ID, attempt.ID, nil, nil)
	assert.Equal(t, util.KindForbidden, util.KindOf(err))
}

func TestManualGradingRecomputesScore(t *testing.T) {
	env := newEnv(t)
	fx := newQuizFixture(t, env, 3)
	essay, err := env.quiz.AddQuestion(env.ctx, actorOf(fx.instructor), fx.quiz.ID, QuestionRequest{
		QuestionText: "Explain transactions",
		QuestionType: model.Essay,
		Points:       10,
	})
	require.NoError(t, err)

	attempt, err := env.quiz.StartAttempt(env.ctx, fx.student.ID, fx.quiz.ID)
	require.NoError(t, err)
	res, err := env.quiz.SubmitAttempt(env.ctx, fx.student.ID, attempt.ID, []ResponseInput{
		{QuestionID: fx.questions[0].ID, SelectedOptionIDs: []uint{fx.questions[0].Options[0].ID}},
		{QuestionID: fx.questions[1].ID, SelectedOptionIDs: []uint{fx.questions[1].Options[0].ID}},
		{QuestionID: essay.ID, TextAnswer: "they are atomic"},
	}, nil)
	require.NoError(t, err)
	assert.True(t, res.NeedsGrading)
	assert.Equal(t, 50.0, *res.Attempt.Score)

	var essayResp model.QuizResponse
	for _, r := range res.Responses {
		if r.QuestionID == essay.ID {
			essayResp = r
		}
	}
	assert.Nil(t, essayResp.IsCorrect)

	tooMany := 11
	_, err = env.quiz.GradeResponse(env.ctx, actorOf(fx.instructor), essayResp.ID, true, &tooMany)
	assert.Equal(t, util.KindValidation, util.KindOf(err))

	_, err = env.quiz.GradeResponse(env.ctx, actorOf(fx.student), essayResp.ID, true, nil)
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	graded, err := env.quiz.GradeResponse(env.ctx, actorOf(fx.instructor), essayResp.ID, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, *graded.Score)
	assert.True(t, *graded.Passed)
}

func TestGetQuizHidesAnswersFromStudents(t *testing.T) {
	env := newEnv(t)
	fx := newQuizFixture(t, env, 3)

	asStudent, err := env.quiz.GetQuiz(env.ctx, actorOf(fx.student), fx.quiz.ID)
	require.NoError(t, err)
	for _, q := range asStudent.Questions {
		for _, o := range q.Options {
			assert.False(t, o.IsCorrect)
		}
	}

	asOwner, err := env.quiz.GetQuiz(env.ctx, actorOf(fx.instructor), fx.quiz.ID)
	require.NoError(t, err)
	assert.True(t, asOwner.Questions[0].Options[0].IsCorrect)

	stranger := testutil.CreateUser(t, env.db, model.Student)
	_, err = env.quiz.GetQuiz(env.ctx, actorOf(stranger), fx.quiz.ID)
	assert.ErrorIs(t, err, util.ErrEnrollmentNeeded)
}

func TestOneQuizPerLesson(t *testing.T) {
	env := newEnv(t)
	fx := newQuizFixture(t, env, 3)
	_, err := env.quiz.CreateQuiz(env.ctx, actorOf(fx.instructor), QuizRequest{
		LessonID: fx.course.Lessons[0].ID,
		Title:    "Duplicate",
	})
	assert.ErrorIs(t, err, util.ErrQuizExists)
}

func TestZeroPassingScoreAndAttemptsArePersisted(t *testing.T) {
	env := newEnv(t)
	instructor := testutil.CreateUser(t, env.db, model.Instructor)
	student := testutil.CreateUser(t, env.db, model.Student)
	course := testutil.CreateCourse(t, env.db, instructor, 1, 0)
	testutil.Enroll(t, env.db, student, course.Course)

	zero := 0
	quiz, err := env.quiz.CreateQuiz(env.ctx, actorOf(instructor), QuizRequest{
		LessonID:        course.Lessons[0].ID,
		Title:           "Warm-up",
		PassingScore:    &zero,
		AttemptsAllowed: &zero,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, quiz.PassingScore)
	assert.Equal(t, 0, quiz.AttemptsAllowed)

	var stored model.Quiz
	require.NoError(t, env.db.First(&stored, quiz.ID).Error)
	assert.Equal(t, 0, stored.PassingScore)
	assert.Equal(t, 0, stored.AttemptsAllowed)

	q, err := env.quiz.AddQuestion(env.ctx, actorOf(instructor), quiz.ID, QuestionRequest{
		QuestionText: "Pick the first option",
		QuestionType: model.MultipleChoice,
		Points:       5,
		Order:        1,
		Options: []OptionRequest{
			{OptionText: "right", IsCorrect: true},
			{OptionText: "wrong"},
		},
	})
	require.NoError(t, err)

	// 及格线为 0 时 0 分也算通过
	for i := 0; i < 4; i++ {
		attempt, err := env.quiz.StartAttempt(env.ctx, student.ID, quiz.ID)
		require.NoError(t, err)
		res, err := env.quiz.SubmitAttempt(env.ctx, student.ID, attempt.ID, []ResponseInput{
			{QuestionID: q.ID, SelectedOptionIDs: []uint{q.Options[1].ID}},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 0.0, *res.Attempt.Score)
		assert.True(t, *res.Attempt.Passed)
	}
}

func TestConcurrentStartAttemptRespectsCap(t *testing.T) {
	env := newEnv(t)
	fx := newQuizFixture(t, env, 3)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.quiz.StartAttempt(env.ctx, fx.student.ID, fx.quiz.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	started, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			started++
		case errors.Is(err, util.ErrAttemptLimitExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, started)
	assert.Equal(t, callers-3, rejected)

	var count int64
	require.NoError(t, env.db.Model(&model.QuizAttempt{}).
		Where("student_id = ? AND quiz_id = ?", fx.student.ID, fx.quiz.ID).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}
