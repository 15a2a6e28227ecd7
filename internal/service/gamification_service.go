package service

import (
	"context"
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"

	"gorm.io/gorm"
)

type GamificationService struct {
	DB             *gorm.DB
	UserRepo       *repository.UserRepository
	Repo           *repository.GamificationRepository
	ProgressRepo   *repository.ProgressRepository
	EnrollmentRepo *repository.EnrollmentRepository
	QuizRepo       *repository.QuizRepository
	Cfg            config.GamificationConfig
}

func NewGamificationService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	repo *repository.GamificationRepository,
	progressRepo *repository.ProgressRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	quizRepo *repository.QuizRepository,
	cfg config.GamificationConfig,
) *GamificationService {
	if cfg.PointsPerLevel <= 0 {
		cfg.PointsPerLevel = 500
	}
	return &GamificationService{
		DB:             db,
		UserRepo:       userRepo,
		Repo:           repo,
		ProgressRepo:   progressRepo,
		EnrollmentRepo: enrollmentRepo,
		QuizRepo:       quizRepo,
		Cfg:            cfg,
	}
}

// AwardResult 一次积分发放的结果
type AwardResult struct {
	Points    int           `json:"points"`
	Total     int           `json:"total_points"`
	Level     int           `json:"level"`
	LevelUp   bool          `json:"level_up"`
	NewBadges []model.Badge `json:"new_badges,omitempty"`
}

func (s *GamificationService) LevelFor(points int) int {
	return 1 + points/s.Cfg.PointsPerLevel
}

// Award 在调用方事务 tx 中加分、刷新等级并检查徽章
func (s *GamificationService) Award(ctx context.Context, tx *gorm.DB, userID uint, points int) (*AwardResult, error) {
	users := s.UserRepo.WithTx(tx)
	result := &AwardResult{Points: points}

	before, err := users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := before.Points
	if points != 0 {
		if total, err = users.AddPoints(ctx, userID, points); err != nil {
			return nil, fmt.Errorf("add points: %w", err)
		}
	}
	result.Total = total
	result.Level = s.LevelFor(total)
	if result.Level != before.Level {
		if err := users.SetLevel(ctx, userID, result.Level); err != nil {
			return nil, err
		}
		result.LevelUp = result.Level > before.Level
	}

	badges, err := s.evaluateBadges(ctx, tx, userID, total)
	if err != nil {
		return nil, err
	}
	result.NewBadges = badges
	return result, nil
}

// evaluateBadges 授予所有已满足条件且尚未获得的徽章
func (s *GamificationService) evaluateBadges(ctx context.Context, tx *gorm.DB, userID uint, points int) ([]model.Badge, error) {
	repo := s.Repo.WithTx(tx)
	badges, err := repo.ListBadges(ctx)
	if err != nil || len(badges) == 0 {
		return nil, err
	}
	earned, err := repo.EarnedBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := map[string]int64{model.CriteriaPoints: int64(points)}
	load := func(key string) (int64, error) {
		if v, ok := stats[key]; ok {
			return v, nil
		}
		var v int64
		var err error
		switch key {
		case model.CriteriaLessonsCompleted:
			v, err = s.ProgressRepo.WithTx(tx).CountCompletedByStudent(ctx, userID)
		case model.CriteriaCoursesCompleted:
			v, err = s.EnrollmentRepo.WithTx(tx).CountByStatus(ctx, userID, model.EnrollmentCompleted)
		case model.CriteriaQuizzesPassed:
			v, err = s.QuizRepo.WithTx(tx).CountPassedByStudent(ctx, userID)
		default:
			return 0, nil
		}
		stats[key] = v
		return v, err
	}

	var awarded []model.Badge
	for _, b := range badges {
		if earned[b.ID] || len(b.Criteria) == 0 {
			continue
		}
		ok, err := meetsCriteria(b.Criteria, load)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		isNew, err := repo.Award(ctx, userID, b.ID)
		if err != nil {
			return nil, err
		}
		if isNew {
			awarded = append(awarded, b)
		}
	}
	return awarded, nil
}

// meetsCriteria 所有条件同时满足；未知条件键视为不满足
func meetsCriteria(criteria map[string]interface{}, load func(string) (int64, error)) (bool, error) {
	for key, raw := range criteria {
		threshold, ok := toInt64(raw)
		if !ok {
			return false, nil
		}
		switch key {
		case model.CriteriaLessonsCompleted, model.CriteriaCoursesCompleted, model.CriteriaQuizzesPassed, model.CriteriaPoints:
		default:
			return false, nil
		}
		v, err := load(key)
		if err != nil {
			return false, err
		}
		if v < threshold {
			return false, nil
		}
	}
	return true, nil
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
	Level    int    `json:"level"`
	Avatar   string `json:"avatar,omitempty"`
}

func (s *GamificationService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	users, err := s.UserRepo.FindTopByPoints(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = LeaderboardEntry{
			Rank:     i + 1,
			UserID:   u.ID,
			Username: u.Username,
			Name:     u.FullName(),
			Points:   u.Points,
			Level:    u.Level,
			Avatar:   u.Avatar,
		}
	}
	return entries, nil
}

func (s *GamificationService) ListBadges(ctx context.Context) ([]model.Badge, error) {
	return s.Repo.ListBadges(ctx)
}

func (s *GamificationService) UserBadges(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	return s.Repo.ListUserBadges(ctx, userID)
}

type BadgeRequest struct {
	Name        string                 `json:"name" binding:"required,max=100"`
	Description string                 `json:"description"`
	Icon        string                 `json:"icon" binding:"max=50"`
	Color       string                 `json:"color" binding:"omitempty,hexcolor"`
	Criteria    map[string]interface{} `json:"criteria" binding:"required"`
}

func (s *GamificationService) CreateBadge(ctx context.Context, req BadgeRequest) (*model.Badge, error) {
	b := &model.Badge{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
		Criteria:    req.Criteria,
	}
	if b.Color == "" {
		b.Color = "#3B82F6"
	}
	if err := s.Repo.CreateBadge(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *GamificationService) DeleteBadge(ctx context.Context, id uint) error {
	return s.Repo.DeleteBadge(ctx, id)
}
