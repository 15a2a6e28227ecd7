package service

import (
	"context"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/pkg/testutil"
	"testing"

	"gorm.io/gorm"
)

var testPoints = config.GamificationConfig{
	LessonPoints:     10,
	CoursePoints:     100,
	QuizPassedPoints: 20,
	PointsPerLevel:   500,
}

// testEnv 按 app 的装配方式构造一套服务，数据库为内存 sqlite
type testEnv struct {
	ctx           context.Context
	db            *gorm.DB
	notifications *NotificationService
	gamification  *GamificationService
	enrollment    *EnrollmentService
	progress      *ProgressService
	quiz          *QuizService
	dashboard     *DashboardService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	contentRepo := repository.NewContentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	gamificationRepo := repository.NewGamificationRepository(db)
	commRepo := repository.NewCommunicationRepository(db)

	cache := NewStatsCache(nil, 0)
	notifications := NewNotificationService(commRepo, nil)
	gamification := NewGamificationService(db, userRepo, gamificationRepo, progressRepo, enrollmentRepo, quizRepo, testPoints)

	return &testEnv{
		ctx:           context.Background(),
		db:            db,
		notifications: notifications,
		gamification:  gamification,
		enrollment:    NewEnrollmentService(db, courseRepo, enrollmentRepo, notifications, cache),
		progress: NewProgressService(db, courseRepo, contentRepo, enrollmentRepo, progressRepo,
			gamification, notifications, cache, testPoints),
		quiz: NewQuizService(db, quizRepo, courseRepo, contentRepo, enrollmentRepo,
			gamification, notifications, testPoints),
		dashboard: NewDashboardService(repository.NewDashboardRepository(db), paymentRepo,
			enrollmentRepo, userRepo, gamification, cache),
	}
}

func actorOf(u *model.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
