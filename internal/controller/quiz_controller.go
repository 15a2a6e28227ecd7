package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
	AIService   *service.AIService
}

func NewQuizController(quizService *service.QuizService, aiService *service.AIService) *QuizController {
	return &QuizController{QuizService: quizService, AIService: aiService}
}

// CreateQuiz godoc
// @Summary 创建测验
// @Description 每个课时最多一份测验
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.QuizRequest true "测验信息"
// @Success 201 {object} util.Response{data=model.Quiz} "创建成功"
// @Failure 409 {object} util.Response "课时已有测验"
// @Router /api/quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	var req service.QuizRequest
	if !bindJSON(ctx, &req) {
		return
	}

	quiz, err := c.QuizService.CreateQuiz(ctx.Request.Context(), actor, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// GetQuiz godoc
// @Summary 测验详情
// @Description 学生视图不包含正确答案与解析
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.Quiz} "成功"
// @Failure 403 {object} util.Response "需要选课"
// @Router /api/quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	quiz, err := c.QuizService.GetQuiz(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// GetLessonQuiz godoc
// @Summary 课时测验
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=model.Quiz} "成功"
// @Failure 404 {object} util.Response "课时没有测验"
// @Router /api/lessons/{id}/quiz [get]
func (c *QuizController) GetLessonQuiz(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	lessonID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	quiz, err := c.QuizService.GetQuizByLesson(ctx.Request.Context(), actor, lessonID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// ListCourseQuizzes godoc
// @Summary 课程测验列表
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Quiz} "成功"
// @Router /api/courses/{id}/quizzes [get]
func (c *QuizController) ListCourseQuizzes(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	list, err := c.QuizService.ListCourseQuizzes(ctx.Request.Context(), courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// UpdateQuiz godoc
// @Summary 更新测验
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   body body service.QuizRequest true "测验信息"
// @Success 200 {object} util.Response{data=model.Quiz} "成功"
// @Router /api/quizzes/{id} [put]
func (c *QuizController) UpdateQuiz(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.QuizRequest
	if !bindJSON(ctx, &req) {
		return
	}

	quiz, err := c.QuizService.UpdateQuiz(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// DeleteQuiz godoc
// @Summary 删除测验
// @Tags 测验
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 204 "已删除"
// @Router /api/quizzes/{id} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.QuizService.DeleteQuiz(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// AddQuestion godoc
// @Summary 添加题目
// @Description 选择题至少一个正确选项，判断题恰好两个选项
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   body body service.QuestionRequest true "题目"
// @Success 201 {object} util.Response{data=model.Question} "创建成功"
// @Router /api/quizzes/{id}/questions [post]
func (c *QuizController) AddQuestion(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.QuestionRequest
	if !bindJSON(ctx, &req) {
		return
	}

	question, err := c.QuizService.AddQuestion(ctx.Request.Context(), actor, quizID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// DeleteQuestion godoc
// @Summary 删除题目
// @Tags 测验
// @Security ApiKeyAuth
// @Param   id path int true "题目ID"
// @Success 204 "已删除"
// @Router /api/questions/{id} [delete]
func (c *QuizController) DeleteQuestion(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.QuizService.DeleteQuestion(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// StartAttempt godoc
// @Summary 开始作答
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 201 {object} util.Response{data=model.QuizAttempt} "成功"
// @Failure 403 {object} util.Response "需要选课"
// @Failure 429 {object} util.Response "作答次数已用完"
// @Router /api/quizzes/{id}/attempts [post]
func (c *QuizController) StartAttempt(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	attempt, err := c.QuizService.StartAttempt(ctx.Request.Context(), actor.ID, quizID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

type SubmitAttemptRequest struct {
	Responses []service.ResponseInput `json:"responses" binding:"dive"`
	TimeTaken *int                    `json:"time_taken" binding:"omitempty,min=0"`
}

// SubmitAttempt godoc
// @Summary 提交答卷
// @Description 客观题自动判分，简答与论述题等待人工批改
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "答卷ID"
// @Param   body body SubmitAttemptRequest true "作答内容"
// @Success 200 {object} util.Response{data=service.ScoredAttempt} "成功"
// @Failure 409 {object} util.Response "答卷已提交"
// @Router /api/attempts/{id}/submit [post]
func (c *QuizController) SubmitAttempt(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req SubmitAttemptRequest
	if !bindJSON(ctx, &req) {
		return
	}

	result, err := c.QuizService.SubmitAttempt(ctx.Request.Context(), actor.ID, attemptID, req.Responses, req.TimeTaken)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetAttempt godoc
// @Summary 答卷详情
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "答卷ID"
// @Success 200 {object} util.Response{data=model.QuizAttempt} "成功"
// @Router /api/attempts/{id} [get]
func (c *QuizController) GetAttempt(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	attempt, err := c.QuizService.GetAttempt(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// ListAttempts godoc
// @Summary 我的作答记录
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=[]model.QuizAttempt} "成功"
// @Router /api/quizzes/{id}/attempts [get]
func (c *QuizController) ListAttempts(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	quizID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	list, err := c.QuizService.ListAttempts(ctx.Request.Context(), actor.ID, quizID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

type GradeResponseRequest struct {
	IsCorrect *bool `json:"is_correct" binding:"required"`
	Points    *int  `json:"points" binding:"omitempty,min=0"`
}

// GradeResponse godoc
// @Summary 人工批改
// @Description 批改简答或论述题并重算答卷得分
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "作答ID"
// @Param   body body GradeResponseRequest true "批改结果"
// @Success 200 {object} util.Response{data=model.QuizAttempt} "成功"
// @Failure 403 {object} util.Response "非课程教师"
// @Router /api/responses/{id}/grade [post]
func (c *QuizController) GradeResponse(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req GradeResponseRequest
	if !bindJSON(ctx, &req) {
		return
	}

	attempt, err := c.QuizService.GradeResponse(ctx.Request.Context(), actor, id, *req.IsCorrect, req.Points)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// GenerateQuiz godoc
// @Summary AI 生成测验草稿
// @Description 以课程标题和课时内容构造提示词，原样返回模型输出
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.GeneratedQuiz} "成功"
// @Failure 403 {object} util.Response "非课程教师"
// @Router /api/courses/{id}/generate-quiz [post]
func (c *QuizController) GenerateQuiz(ctx *gin.Context) {
	actor, ok := actorFrom(ctx)
	if !ok {
		return
	}
	courseID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	quiz, err := c.AIService.GenerateQuiz(ctx.Request.Context(), actor, courseID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}
