package service

import (
	"context"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"sort"
	"time"
)

type DashboardService struct {
	Repo           *repository.DashboardRepository
	PaymentRepo    *repository.PaymentRepository
	EnrollmentRepo *repository.EnrollmentRepository
	UserRepo       *repository.UserRepository
	Gamification   *GamificationService
	Cache          *StatsCache
}

func NewDashboardService(
	repo *repository.DashboardRepository,
	paymentRepo *repository.PaymentRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	userRepo *repository.UserRepository,
	gamification *GamificationService,
	cache *StatsCache,
) *DashboardService {
	return &DashboardService{
		Repo:           repo,
		PaymentRepo:    paymentRepo,
		EnrollmentRepo: enrollmentRepo,
		UserRepo:       userRepo,
		Gamification:   gamification,
		Cache:          cache,
	}
}

type MonthlyEarning struct {
	Month  string  `json:"month"`
	Year   int     `json:"year"`
	Amount float64 `json:"amount"`
}

type InstructorStats struct {
	StudentCount    int64            `json:"student_count"`
	Revenue         float64          `json:"revenue"`
	MonthlyEarnings []MonthlyEarning `json:"monthly_earnings"`
}

// GroupMonthlyEarnings 按自然月汇总已完成付款，按时间先后排列
func GroupMonthlyEarnings(rows []repository.EarningRow) (float64, []MonthlyEarning) {
	type monthKey struct {
		year  int
		month time.Month
	}
	sums := make(map[monthKey]float64)
	var revenue float64
	for _, r := range rows {
		t := r.When()
		k := monthKey{t.Year(), t.Month()}
		sums[k] += r.Amount
		revenue += r.Amount
	}

	keys := make([]monthKey, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	out := make([]MonthlyEarning, 0, len(keys))
	for _, k := range keys {
		out = append(out, MonthlyEarning{
			Month:  k.month.String()[:3],
			Year:   k.year,
			Amount: sums[k],
		})
	}
	return revenue, out
}

func (s *DashboardService) InstructorStats(ctx context.Context, instructorID uint) (*InstructorStats, error) {
	key := instructorStatsKey(instructorID)
	var cached InstructorStats
	if s.Cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	students, err := s.Repo.DistinctStudents(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	rows, err := s.PaymentRepo.CompletedForInstructor(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	revenue, monthly := GroupMonthlyEarnings(rows)

	stats := &InstructorStats{
		StudentCount:    students,
		Revenue:         revenue,
		MonthlyEarnings: monthly,
	}
	s.Cache.Set(ctx, key, stats)
	return stats, nil
}

type InstructorDashboard struct {
	Stats   *InstructorStats       `json:"stats"`
	Courses []repository.CourseRow `json:"courses"`
}

func (s *DashboardService) InstructorDashboard(ctx context.Context, instructorID uint) (*InstructorDashboard, error) {
	stats, err := s.InstructorStats(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	courses, err := s.Repo.InstructorCourses(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []repository.CourseRow{}
	}
	return &InstructorDashboard{Stats: stats, Courses: courses}, nil
}

type RecentCourse struct {
	CourseID     uint                   `json:"course_id"`
	Title        string                 `json:"title"`
	Thumbnail    string                 `json:"thumbnail"`
	Status       model.EnrollmentStatus `json:"status"`
	Progress     float64                `json:"progress"`
	LastAccessed time.Time              `json:"last_accessed"`
}

type StudentDashboard struct {
	EnrolledCourses   int               `json:"enrolled_courses"`
	CompletedCourses  int               `json:"completed_courses"`
	InProgressCourses int               `json:"in_progress_courses"`
	Certificates      int64             `json:"certificates"`
	Points            int               `json:"points"`
	Level             int               `json:"level"`
	Badges            []model.UserBadge `json:"badges"`
	RecentCourses     []RecentCourse    `json:"recent_courses"`
}

const recentCourseLimit = 5

func (s *DashboardService) StudentDashboard(ctx context.Context, studentID uint) (*StudentDashboard, error) {
	key := studentDashboardKey(studentID)
	var cached StudentDashboard
	if s.Cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	user, err := s.UserRepo.FindByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.EnrollmentRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	certs, err := s.EnrollmentRepo.CountCertificates(ctx, studentID)
	if err != nil {
		return nil, err
	}
	badges, err := s.Gamification.UserBadges(ctx, studentID)
	if err != nil {
		return nil, err
	}

	d := &StudentDashboard{
		EnrolledCourses: len(enrollments),
		Certificates:    certs,
		Points:          user.Points,
		Level:           user.Level,
		Badges:          badges,
		RecentCourses:   []RecentCourse{},
	}
	if d.Badges == nil {
		d.Badges = []model.UserBadge{}
	}
	for _, e := range enrollments {
		switch e.Status {
		case model.EnrollmentCompleted:
			d.CompletedCourses++
		case model.EnrollmentActive:
			d.InProgressCourses++
		case model.EnrollmentCancelled:
		}
	}

	sort.SliceStable(enrollments, func(i, j int) bool {
		return enrollments[i].LastAccessed.After(enrollments[j].LastAccessed)
	})
	for i, e := range enrollments {
		if i == recentCourseLimit {
			break
		}
		rc := RecentCourse{
			CourseID:     e.CourseID,
			Status:       e.Status,
			Progress:     e.Progress,
			LastAccessed: e.LastAccessed,
		}
		if e.Course != nil {
			rc.Title = e.Course.Title
			rc.Thumbnail = e.Course.Thumbnail
		}
		d.RecentCourses = append(d.RecentCourses, rc)
	}

	s.Cache.Set(ctx, key, d)
	return d, nil
}
