package repository

import (
	"context"
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘只读聚合
type DashboardRepository struct {
	DB *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{DB: db}
}

// DistinctStudents 教师所有课程的去重学生数
func (r *DashboardRepository) DistinctStudents(ctx context.Context, instructorID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("courses.instructor_id = ?", instructorID).
		Distinct("enrollments.student_id").
		Count(&count).Error
	return count, err
}

// CourseRow 教师仪表盘中的单门课程汇总
type CourseRow struct {
	CourseID        uint               `json:"course_id"`
	Title           string             `json:"title"`
	Status          model.CourseStatus `json:"status"`
	Rating          float64            `json:"rating"`
	Students        int64              `json:"students"`
	AverageProgress float64            `json:"average_progress"`
}

func (r *DashboardRepository) InstructorCourses(ctx context.Context, instructorID uint) ([]CourseRow, error) {
	var rows []CourseRow
	err := r.DB.WithContext(ctx).Model(&model.Course{}).
		Select(`courses.id AS course_id, courses.title, courses.status, courses.rating,
			COUNT(enrollments.id) AS students,
			COALESCE(AVG(enrollments.progress), 0) AS average_progress`).
		Joins("LEFT JOIN enrollments ON enrollments.course_id = courses.id").
		Where("courses.instructor_id = ?", instructorID).
		Group("courses.id, courses.title, courses.status, courses.rating").
		Order("courses.id ASC").
		Scan(&rows).Error
	return rows, err
}
