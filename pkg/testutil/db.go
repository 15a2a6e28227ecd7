// Package testutil 提供测试用的内存数据库与数据构造
package testutil

import (
	"fmt"
	"lms_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB 每个测试独立的内存 sqlite，已完成迁移
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, role model.UserRole) *model.User {
	t.Helper()
	var n int64
	db.Model(&model.User{}).Count(&n)
	u := &model.User{
		Username: fmt.Sprintf("%s%d", role, n+1),
		Email:    fmt.Sprintf("%s%d@example.com", role, n+1),
		Password: "x",
		Role:     role,
		Level:    1,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CourseFixture 一门已发布课程，单模块下 lessons 节课
type CourseFixture struct {
	Course  *model.Course
	Module  *model.Module
	Lessons []model.Lesson
}

func CreateCourse(t *testing.T, db *gorm.DB, instructor *model.User, lessons int, price float64) *CourseFixture {
	t.Helper()
	var n int64
	db.Model(&model.Course{}).Count(&n)
	course := &model.Course{
		Title:        fmt.Sprintf("Course %d", n+1),
		Slug:         fmt.Sprintf("course-%d", n+1),
		InstructorID: instructor.ID,
		Status:       model.CoursePublished,
		Price:        price,
		TotalLessons: lessons,
	}
	require.NoError(t, db.Create(course).Error)

	module := &model.Module{CourseID: course.ID, Title: "Module 1", SortOrder: 1}
	require.NoError(t, db.Create(module).Error)

	fx := &CourseFixture{Course: course, Module: module}
	for i := 0; i < lessons; i++ {
		l := model.Lesson{
			ModuleID:  module.ID,
			Title:     fmt.Sprintf("Lesson %d", i+1),
			Content:   fmt.Sprintf("content %d", i+1),
			Duration:  600,
			SortOrder: i + 1,
		}
		require.NoError(t, db.Create(&l).Error)
		fx.Lessons = append(fx.Lessons, l)
	}
	return fx
}

// Enroll 直接写入选课与进度行，绕过业务校验
func Enroll(t *testing.T, db *gorm.DB, student *model.User, course *model.Course) {
	t.Helper()
	require.NoError(t, db.Create(&model.Enrollment{
		StudentID:    student.ID,
		CourseID:     course.ID,
		Status:       model.EnrollmentActive,
		LastAccessed: time.Now(),
	}).Error)
	require.NoError(t, db.Create(&model.Progress{
		StudentID:    student.ID,
		CourseID:     course.ID,
		TotalLessons: course.TotalLessons,
	}).Error)
}
