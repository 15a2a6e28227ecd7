package service

import (
	"context"
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QuizService struct {
	DB             *gorm.DB
	QuizRepo       *repository.QuizRepository
	CourseRepo     *repository.CourseRepository
	ContentRepo    *repository.ContentRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Gamification   *GamificationService
	Notifier       Notifier
	Points         config.GamificationConfig
}

func NewQuizService(
	db *gorm.DB,
	quizRepo *repository.QuizRepository,
	courseRepo *repository.CourseRepository,
	contentRepo *repository.ContentRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	gamification *GamificationService,
	notifier Notifier,
	points config.GamificationConfig,
) *QuizService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &QuizService{
		DB:             db,
		QuizRepo:       quizRepo,
		CourseRepo:     courseRepo,
		ContentRepo:    contentRepo,
		EnrollmentRepo: enrollmentRepo,
		Gamification:   gamification,
		Notifier:       notifier,
		Points:         points,
	}
}

type QuizRequest struct {
	LessonID        uint   `json:"lesson_id" binding:"required"`
	Title           string `json:"title" binding:"required,max=200"`
	Description     string `json:"description"`
	TimeLimit       *int   `json:"time_limit" binding:"omitempty,min=1"`
	PassingScore    *int   `json:"passing_score" binding:"omitempty,min=0,max=100"`
	AttemptsAllowed *int   `json:"attempts_allowed"`
	IsRandomized    bool   `json:"is_randomized"`
}

type OptionRequest struct {
	OptionText string `json:"option_text" binding:"required"`
	IsCorrect  bool   `json:"is_correct"`
	Order      int    `json:"order"`
}

type QuestionRequest struct {
	QuestionText string             `json:"question_text" binding:"required"`
	QuestionType model.QuestionType `json:"question_type" binding:"required,oneof=multiple_choice true_false short_answer essay"`
	Points       int                `json:"points" binding:"omitempty,min=0"`
	Order        int                `json:"order"`
	Explanation  string             `json:"explanation"`
	Options      []OptionRequest    `json:"options"`
}

// ResponseInput 学生对单题的作答
type ResponseInput struct {
	QuestionID        uint   `json:"question_id" binding:"required"`
	SelectedOptionIDs []uint `json:"selected_option_ids"`
	TextAnswer        string `json:"text_answer"`
}

// courseOfLesson 解析课时所属课程
func (s *QuizService) courseOfLesson(ctx context.Context, lessonID uint) (*model.Course, error) {
	courseID, err := s.ContentRepo.LessonCourseID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return s.CourseRepo.FindByID(ctx, courseID)
}

// ownedQuiz 加载测验并校验操作者对课程的管理权限
func (s *QuizService) ownedQuiz(ctx context.Context, actor Actor, quizID uint) (*model.Quiz, *model.Course, error) {
	quiz, err := s.QuizRepo.FindByID(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	course, err := s.courseOfLesson(ctx, quiz.LessonID)
	if err != nil {
		return nil, nil, err
	}
	if !actor.CanManageCourse(course) {
		return nil, nil, util.ErrNotCourseOwner
	}
	return quiz, course, nil
}

func (s *QuizService) CreateQuiz(ctx context.Context, actor Actor, req QuizRequest) (*model.Quiz, error) {
	course, err := s.courseOfLesson(ctx, req.LessonID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageCourse(course) {
		return nil, util.ErrNotCourseOwner
	}
	if existing, err := s.QuizRepo.FindByLesson(ctx, req.LessonID); err == nil && existing != nil {
		return nil, util.ErrQuizExists
	}

	quiz := &model.Quiz{
		LessonID:        req.LessonID,
		Title:           req.Title,
		Description:     req.Description,
		TimeLimit:       req.TimeLimit,
		PassingScore:    70,
		AttemptsAllowed: 3,
		IsRandomized:    req.IsRandomized,
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.AttemptsAllowed != nil {
		quiz.AttemptsAllowed = *req.AttemptsAllowed
	}
	if err := s.QuizRepo.Create(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) UpdateQuiz(ctx context.Context, actor Actor, quizID uint, req QuizRequest) (*model.Quiz, error) {
	quiz, _, err := s.ownedQuiz(ctx, actor, quizID)
	if err != nil {
		return nil, err
	}
	quiz.Title = req.Title
	quiz.Description = req.Description
	quiz.TimeLimit = req.TimeLimit
	quiz.IsRandomized = req.IsRandomized
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.AttemptsAllowed != nil {
		quiz.AttemptsAllowed = *req.AttemptsAllowed
	}
	if err := s.QuizRepo.Update(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) DeleteQuiz(ctx context.Context, actor Actor, quizID uint) error {
	if _, _, err := s.ownedQuiz(ctx, actor, quizID); err != nil {
		return err
	}
	return s.QuizRepo.Delete(ctx, quizID)
}

func validateOptions(req QuestionRequest) error {
	if !req.QuestionType.AutoGraded() {
		return nil
	}
	if req.QuestionType == model.TrueFalse && len(req.Options) != 2 {
		return util.ValidationError("true/false questions need exactly two options")
	}
	if len(req.Options) < 2 {
		return util.ValidationError("choice questions need at least two options")
	}
	for _, o := range req.Options {
		if o.IsCorrect {
			return nil
		}
	}
	return util.ValidationError("at least one option must be correct")
}

func (s *QuizService) AddQuestion(ctx context.Context, actor Actor, quizID uint, req QuestionRequest) (*model.Question, error) {
	if _, _, err := s.ownedQuiz(ctx, actor, quizID); err != nil {
		return nil, err
	}
	if err := validateOptions(req); err != nil {
		return nil, err
	}

	q := &model.Question{
		QuizID:       quizID,
		QuestionText: req.QuestionText,
		QuestionType: req.QuestionType,
		Points:       req.Points,
		SortOrder:    req.Order,
		Explanation:  req.Explanation,
	}
	if q.Points == 0 {
		q.Points = 1
	}
	if req.QuestionType.AutoGraded() {
		for i, o := range req.Options {
			order := o.Order
			if order == 0 {
				order = i + 1
			}
			q.Options = append(q.Options, model.QuestionOption{
				OptionText: o.OptionText,
				IsCorrect:  o.IsCorrect,
				SortOrder:  order,
			})
		}
	}
	if err := s.QuizRepo.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuizService) DeleteQuestion(ctx context.Context, actor Actor, questionID uint) error {
	q, err := s.QuizRepo.FindQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if _, _, err := s.ownedQuiz(ctx, actor, q.QuizID); err != nil {
		return err
	}
	return s.QuizRepo.DeleteQuestion(ctx, questionID)
}

// GetQuiz 学生视图隐藏正确答案，需已选课
func (s *QuizService) GetQuiz(ctx context.Context, actor Actor, quizID uint) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	course, err := s.courseOfLesson(ctx, quiz.LessonID)
	if err != nil {
		return nil, err
	}
	if actor.CanManageCourse(course) {
		return quiz, nil
	}
	ok, err := s.EnrollmentRepo.Exists(ctx, actor.ID, course.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrEnrollmentNeeded
	}

	for i := range quiz.Questions {
		for j := range quiz.Questions[i].Options {
			quiz.Questions[i].Options[j].IsCorrect = false
		}
		quiz.Questions[i].Explanation = ""
	}
	if quiz.IsRandomized {
		rand.Shuffle(len(quiz.Questions), func(i, j int) {
			quiz.Questions[i], quiz.Questions[j] = quiz.Questions[j], quiz.Questions[i]
		})
	}
	return quiz, nil
}

func (s *QuizService) GetQuizByLesson(ctx context.Context, actor Actor, lessonID uint) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	return s.GetQuiz(ctx, actor, quiz.ID)
}

// StartAttempt attempts_allowed <= 0 表示不限次数
func (s *QuizService) StartAttempt(ctx context.Context, studentID, quizID uint) (*model.QuizAttempt, error) {
	quiz, err := s.QuizRepo.FindByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	courseID, err := s.ContentRepo.LessonCourseID(ctx, quiz.LessonID)
	if err != nil {
		return nil, err
	}

	var attempt *model.QuizAttempt
	err = repository.Transaction(ctx, s.DB, func(tx *gorm.DB) error {
		// 锁住选课行，同一学生并发开始作答时计数与插入串行
		if _, err := s.EnrollmentRepo.WithTx(tx).LockEnrollment(ctx, studentID, courseID); err != nil {
			if isNotEnrolled(err) {
				return util.ErrEnrollmentNeeded
			}
			return err
		}
		quizzes := s.QuizRepo.WithTx(tx)
		used, err := quizzes.CountAttempts(ctx, studentID, quizID)
		if err != nil {
			return err
		}
		if quiz.AttemptsAllowed > 0 && used >= int64(quiz.AttemptsAllowed) {
			return util.ErrAttemptLimitExceeded
		}
		attempt = &model.QuizAttempt{
			StudentID: studentID,
			QuizID:    quizID,
			StartedAt: time.Now(),
		}
		return quizzes.CreateAttempt(ctx, attempt)
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// ScoredAttempt 提交后的判分结果
type ScoredAttempt struct {
	Attempt      *model.QuizAttempt   `json:"attempt"`
	Responses    []model.QuizResponse `json:"responses"`
	PointsEarned int                  `json:"points_earned"`
	TotalPoints  int64                `json:"total_points"`
	NeedsGrading bool                 `json:"needs_grading"`
	Reward       *AwardResult         `json:"reward,omitempty"`
}

// sameOptionSet 所选集合与正确集合完全相同才判对
func sameOptionSet(selected []uint, options []model.QuestionOption) bool {
	correct := make(map[uint]bool)
	for _, o := range options {
		if o.IsCorrect {
			correct[o.ID] = true
		}
	}
	picked := make(map[uint]bool, len(selected))
	for _, id := range selected {
		picked[id] = true
	}
	if len(picked) != len(correct) {
		return false
	}
	for id := range picked {
		if !correct[id] {
			return false
		}
	}
	return true
}

// ScorePercent 得分百分比，总分为 0 时记 0
func ScorePercent(earned int, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(10000*float64(earned)/float64(total)) / 100
}

func (s *QuizService) SubmitAttempt(ctx context.Context, studentID, attemptID uint, responses []ResponseInput, timeTaken *int) (*ScoredAttempt, error) {
	result := &ScoredAttempt{}
	var firstPass bool
	var quizTitle string

	err := repository.Transaction(ctx, s.DB, func(tx *gorm.DB) error {
		quizzes := s.QuizRepo.WithTx(tx)

		attempt, err := quizzes.LockAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		if attempt.StudentID != studentID {
			return util.ErrPermissionDenied
		}
		if attempt.Submitted() {
			return util.ErrAlreadySubmitted
		}

		quiz, err := quizzes.FindByID(ctx, attempt.QuizID)
		if err != nil {
			return err
		}
		quizTitle = quiz.Title
		questions := make(map[uint]*model.Question, len(quiz.Questions))
		for i := range quiz.Questions {
			questions[quiz.Questions[i].ID] = &quiz.Questions[i]
		}

		seen := make(map[uint]bool, len(responses))
		for _, in := range responses {
			q, ok := questions[in.QuestionID]
			if !ok {
				return util.ErrQuestionNotInQuiz
			}
			if seen[in.QuestionID] {
				return util.Validationf("question %d answered twice", in.QuestionID)
			}
			seen[in.QuestionID] = true

			resp := model.QuizResponse{
				AttemptID:  attempt.ID,
				QuestionID: q.ID,
				TextAnswer: in.TextAnswer,
			}
			if q.QuestionType.AutoGraded() {
				valid := make(map[uint]model.QuestionOption, len(q.Options))
				for _, o := range q.Options {
					valid[o.ID] = o
				}
				for _, id := range in.SelectedOptionIDs {
					o, ok := valid[id]
					if !ok {
						return util.Validationf("option %d does not belong to question %d", id, q.ID)
					}
					resp.SelectedOptions = append(resp.SelectedOptions, o)
				}
				correct := sameOptionSet(in.SelectedOptionIDs, q.Options)
				resp.IsCorrect = &correct
				if correct {
					resp.PointsEarned = q.Points
				}
			} else {
				result.NeedsGrading = true
			}
			if err := quizzes.CreateResponse(ctx, &resp); err != nil {
				return err
			}
			result.PointsEarned += resp.PointsEarned
			result.Responses = append(result.Responses, resp)
		}

		total, err := quizzes.SumPoints(ctx, quiz.ID)
		if err != nil {
			return err
		}
		result.TotalPoints = total

		previous, err := quizzes.ListAttempts(ctx, studentID, quiz.ID)
		if err != nil {
			return err
		}
		passedBefore := false
		for _, a := range previous {
			if a.ID != attempt.ID && a.Passed != nil && *a.Passed {
				passedBefore = true
				break
			}
		}

		now := time.Now()
		score := ScorePercent(result.PointsEarned, total)
		passed := score >= float64(quiz.PassingScore)
		attempt.Score = &score
		attempt.Passed = &passed
		attempt.CompletedAt = &now
		attempt.TimeTaken = timeTaken
		if attempt.TimeTaken == nil {
			elapsed := int(now.Sub(attempt.StartedAt).Seconds())
			attempt.TimeTaken = &elapsed
		}
		if err := quizzes.SaveAttempt(ctx, attempt); err != nil {
			return err
		}
		result.Attempt = attempt

		if passed && !passedBefore && s.Gamification != nil {
			firstPass = true
			reward, err := s.Gamification.Award(ctx, tx, studentID, s.Points.QuizPassedPoints)
			if err != nil {
				return fmt.Errorf("award quiz points: %w", err)
			}
			result.Reward = reward
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := "failed"
	if *result.Attempt.Passed {
		outcome = "passed"
	}
	monitoring.QuizAttempts.WithLabelValues(outcome).Inc()
	logger.Log.Info("quiz attempt submitted",
		zap.Uint("attemptId", attemptID),
		zap.Uint("studentId", studentID),
		zap.Float64("score", *result.Attempt.Score),
		zap.Bool("passed", *result.Attempt.Passed),
	)
	if firstPass {
		s.Notifier.Notify(ctx, []uint{studentID}, model.Notification{
			Title:   "Quiz passed",
			Message: fmt.Sprintf("You passed %s with %.0f%%.", quizTitle, *result.Attempt.Score),
			Type:    model.NotifyGrade,
		})
	}
	return result, nil
}

// GradeResponse 人工批改简答/论述题，并重算整份答卷
func (s *QuizService) GradeResponse(ctx context.Context, actor Actor, responseID uint, isCorrect bool, points *int) (*model.QuizAttempt, error) {
	resp, err := s.QuizRepo.FindResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}
	attempt, err := s.QuizRepo.FindAttempt(ctx, resp.AttemptID)
	if err != nil {
		return nil, err
	}
	quiz, _, err := s.ownedQuiz(ctx, actor, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	if !attempt.Submitted() {
		return nil, util.ValidationError("attempt has not been submitted")
	}

	maxPoints := 0
	if resp.Question != nil {
		maxPoints = resp.Question.Points
	}
	earned := 0
	if isCorrect {
		earned = maxPoints
	}
	if points != nil {
		if *points < 0 || *points > maxPoints {
			return nil, util.Validationf("points must be between 0 and %d", maxPoints)
		}
		earned = *points
	}

	var graded *model.QuizAttempt
	var firstPass bool
	err = repository.Transaction(ctx, s.DB, func(tx *gorm.DB) error {
		quizzes := s.QuizRepo.WithTx(tx)
		resp.IsCorrect = &isCorrect
		resp.PointsEarned = earned
		if err := quizzes.UpdateResponse(ctx, resp); err != nil {
			return err
		}

		locked, err := quizzes.LockAttempt(ctx, attempt.ID)
		if err != nil {
			return err
		}
		wasPassed := locked.Passed != nil && *locked.Passed

		list, err := quizzes.ListResponses(ctx, locked.ID)
		if err != nil {
			return err
		}
		sum := 0
		for _, r := range list {
			sum += r.PointsEarned
		}
		total, err := quizzes.SumPoints(ctx, quiz.ID)
		if err != nil {
			return err
		}
		score := ScorePercent(sum, total)
		passed := score >= float64(quiz.PassingScore)
		locked.Score = &score
		locked.Passed = &passed
		if err := quizzes.SaveAttempt(ctx, locked); err != nil {
			return err
		}
		graded = locked

		if passed && !wasPassed && s.Gamification != nil {
			others, err := quizzes.ListAttempts(ctx, locked.StudentID, quiz.ID)
			if err != nil {
				return err
			}
			for _, a := range others {
				if a.ID != locked.ID && a.Passed != nil && *a.Passed {
					return nil
				}
			}
			firstPass = true
			if _, err := s.Gamification.Award(ctx, tx, locked.StudentID, s.Points.QuizPassedPoints); err != nil {
				return fmt.Errorf("award quiz points: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Your attempt on %s was graded: %.0f%%.", quiz.Title, *graded.Score)
	if firstPass {
		msg = fmt.Sprintf("You passed %s with %.0f%%.", quiz.Title, *graded.Score)
	}
	s.Notifier.Notify(ctx, []uint{graded.StudentID}, model.Notification{
		Title:   "Quiz graded",
		Message: msg,
		Type:    model.NotifyGrade,
	})
	return graded, nil
}

func (s *QuizService) ListAttempts(ctx context.Context, studentID, quizID uint) ([]model.QuizAttempt, error) {
	if _, err := s.QuizRepo.FindByID(ctx, quizID); err != nil {
		return nil, err
	}
	return s.QuizRepo.ListAttempts(ctx, studentID, quizID)
}

// GetAttempt 答卷本人或课程管理者可查看
func (s *QuizService) GetAttempt(ctx context.Context, actor Actor, attemptID uint) (*model.QuizAttempt, error) {
	attempt, err := s.QuizRepo.FindAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != actor.ID {
		if _, _, err := s.ownedQuiz(ctx, actor, attempt.QuizID); err != nil {
			return nil, err
		}
	}
	responses, err := s.QuizRepo.ListResponses(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	attempt.Responses = responses
	return attempt, nil
}

func (s *QuizService) ListCourseQuizzes(ctx context.Context, courseID uint) ([]model.Quiz, error) {
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.QuizRepo.ListByCourse(ctx, courseID)
}
