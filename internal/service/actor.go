package service

import (
	"lms_backend/internal/model"
)

// Actor 当前请求的身份，由控制器从 JWT claims 构造
type Actor struct {
	ID   uint
	Role model.UserRole
}

// CanManageCourse 管理员或课程所属教师
func (a Actor) CanManageCourse(course *model.Course) bool {
	switch a.Role {
	case model.Admin:
		return true
	case model.Instructor:
		return course.InstructorID == a.ID
	case model.Student:
		return false
	default:
		return false
	}
}

// CanAuthor 能否创建课程等教学内容
func (a Actor) CanAuthor() bool {
	switch a.Role {
	case model.Admin, model.Instructor:
		return true
	case model.Student:
		return false
	default:
		return false
	}
}
