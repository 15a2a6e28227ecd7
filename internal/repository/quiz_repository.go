package repository

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) WithTx(tx *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: tx}
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, id ASC")
}

// Create 连同题目与选项一起写入
func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	return mapDuplicate(r.DB.WithContext(ctx).Create(quiz).Error, util.ErrQuizExists)
}

func (r *QuizRepository) FindByID(ctx context.Context, id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Preload("Questions.Options", orderedQuestions).
		First(&quiz, id).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrQuizNotFound)
	}
	return &quiz, nil
}

func (r *QuizRepository) FindByLesson(ctx context.Context, lessonID uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).Where("lesson_id = ?", lessonID).First(&quiz).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrQuizNotFound)
	}
	return &quiz, nil
}

func (r *QuizRepository) ListByCourse(ctx context.Context, courseID uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.WithContext(ctx).
		Joins("JOIN lessons ON lessons.id = quizzes.lesson_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("modules.course_id = ?", courseID).
		Order("modules.sort_order ASC, lessons.sort_order ASC").
		Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) Update(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Omit("Questions", "Lesson").Save(quiz).Error
}

// Delete 删除测验及其题目、作答记录
func (r *QuizRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		questionIDs := tx.Model(&model.Question{}).Select("id").Where("quiz_id = ?", id)
		attemptIDs := tx.Model(&model.QuizAttempt{}).Select("id").Where("quiz_id = ?", id)
		responseIDs := tx.Model(&model.QuizResponse{}).Select("id").Where("attempt_id IN (?)", attemptIDs)
		if err := tx.Exec("DELETE FROM quiz_response_options WHERE quiz_response_id IN (?)", responseIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("attempt_id IN (?)", attemptIDs).Delete(&model.QuizResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", id).Delete(&model.QuizAttempt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id IN (?)", questionIDs).Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quiz_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Quiz{}, id).Error
	})
}

func (r *QuizRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

func (r *QuizRepository) FindQuestion(ctx context.Context, id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.WithContext(ctx).Preload("Options", orderedQuestions).First(&q, id).Error; err != nil {
		return nil, mapNotFound(err, util.ErrQuestionNotFound)
	}
	return &q, nil
}

func (r *QuizRepository) DeleteQuestion(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&model.QuestionOption{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Question{}, id).Error
	})
}

func (r *QuizRepository) CountAttempts(ctx context.Context, studentID, quizID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		Count(&count).Error
	return count, err
}

func (r *QuizRepository) CreateAttempt(ctx context.Context, a *model.QuizAttempt) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *QuizRepository) FindAttempt(ctx context.Context, id uint) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Preload("Responses").
		Preload("Responses.SelectedOptions").
		First(&a, id).Error
	if err != nil {
		return nil, mapNotFound(err, util.ErrAttemptNotFound)
	}
	return &a, nil
}

// LockAttempt 提交与批改时锁定作答，防止重复提交
func (r *QuizRepository) LockAttempt(ctx context.Context, id uint) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	if err := forUpdate(r.DB.WithContext(ctx)).First(&a, id).Error; err != nil {
		return nil, mapNotFound(err, util.ErrAttemptNotFound)
	}
	return &a, nil
}

func (r *QuizRepository) SaveAttempt(ctx context.Context, a *model.QuizAttempt) error {
	return r.DB.WithContext(ctx).Omit("Responses").Save(a).Error
}

func (r *QuizRepository) ListAttempts(ctx context.Context, studentID, quizID uint) ([]model.QuizAttempt, error) {
	var list []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		Order("started_at ASC").
		Find(&list).Error
	return list, err
}

// CreateResponse 写入作答及所选选项关联
func (r *QuizRepository) CreateResponse(ctx context.Context, resp *model.QuizResponse) error {
	return r.DB.WithContext(ctx).Omit("Question", "SelectedOptions.*").Create(resp).Error
}

func (r *QuizRepository) FindResponse(ctx context.Context, id uint) (*model.QuizResponse, error) {
	var resp model.QuizResponse
	if err := r.DB.WithContext(ctx).Preload("Question").First(&resp, id).Error; err != nil {
		return nil, mapNotFound(err, util.ErrResponseNotFound)
	}
	return &resp, nil
}

func (r *QuizRepository) ListResponses(ctx context.Context, attemptID uint) ([]model.QuizResponse, error) {
	var list []model.QuizResponse
	err := r.DB.WithContext(ctx).Preload("Question").Where("attempt_id = ?", attemptID).Find(&list).Error
	return list, err
}

func (r *QuizRepository) UpdateResponse(ctx context.Context, resp *model.QuizResponse) error {
	return r.DB.WithContext(ctx).Model(resp).
		Select("is_correct", "points_earned").
		Updates(map[string]interface{}{"is_correct": resp.IsCorrect, "points_earned": resp.PointsEarned}).Error
}

// SumPoints 测验全部题目的总分
func (r *QuizRepository) SumPoints(ctx context.Context, quizID uint) (int64, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("quiz_id = ?", quizID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}

func (r *QuizRepository) CountPassedByStudent(ctx context.Context, studentID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("student_id = ? AND passed = ?", studentID, true).
		Distinct("quiz_id").
		Count(&count).Error
	return count, err
}
