package service

import (
	"context"
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// QuizGenerator 生成式题目提供方，返回原始文本
type QuizGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatCompletionClient OpenAI 兼容的 /chat/completions 接口
type ChatCompletionClient struct {
	client *resty.Client
	model  string
}

func NewChatCompletionClient(cfg config.AIConfig) *ChatCompletionClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &ChatCompletionClient{client: client, model: cfg.Model}
}

func (c *ChatCompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	var out chatCompletionResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(chatCompletionRequest{
			Model:    c.model,
			Messages: []AIChatMessage{{Role: "user", Content: prompt}},
		}).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("ai request: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("ai provider %d: %s", resp.StatusCode(), out.Error.Message)
		}
		return "", fmt.Errorf("ai provider %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("ai provider returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

type AIService struct {
	CourseRepo *repository.CourseRepository
	Generator  QuizGenerator
}

func NewAIService(courseRepo *repository.CourseRepository, generator QuizGenerator) *AIService {
	return &AIService{CourseRepo: courseRepo, Generator: generator}
}

type GeneratedQuiz struct {
	CourseID uint   `json:"course_id"`
	Content  string `json:"content"`
}

// 单节课时内容截断长度，避免提示词过长
const maxLessonPromptChars = 2000

// GenerateQuiz 用课程标题与课时正文拼出提示词，供应商返回的文本原样交给调用方
func (s *AIService) GenerateQuiz(ctx context.Context, actor Actor, courseID uint) (*GeneratedQuiz, error) {
	course, err := s.CourseRepo.FindWithContent(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageCourse(course) {
		return nil, util.ErrNotCourseOwner
	}

	prompt := BuildQuizPrompt(course.Title, lessonTexts(course.Modules))
	start := time.Now()
	text, err := s.Generator.Complete(ctx, prompt)
	if err != nil {
		logger.Log.Error("generate quiz failed", zap.Uint("courseId", courseID), zap.Error(err))
		return nil, err
	}
	logger.Log.Info("quiz generated",
		zap.Uint("courseId", courseID),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &GeneratedQuiz{CourseID: course.ID, Content: text}, nil
}

func lessonTexts(modules []model.Module) []string {
	var texts []string
	for _, m := range modules {
		for _, l := range m.Lessons {
			content := strings.TrimSpace(l.Content)
			if content == "" {
				continue
			}
			if len([]rune(content)) > maxLessonPromptChars {
				content = string([]rune(content)[:maxLessonPromptChars])
			}
			texts = append(texts, fmt.Sprintf("## %s\n%s", l.Title, content))
		}
	}
	return texts
}

func BuildQuizPrompt(courseTitle string, lessons []string) string {
	var b strings.Builder
	b.WriteString("Create a multiple-choice quiz for the course \"")
	b.WriteString(courseTitle)
	b.WriteString("\". Write 5 questions, each with 4 options, mark the correct option and give a one-line explanation.\n")
	if len(lessons) > 0 {
		b.WriteString("\nBase the questions on the following lesson material:\n\n")
		b.WriteString(strings.Join(lessons, "\n\n"))
	}
	return b.String()
}
