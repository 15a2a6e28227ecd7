package util

import (
	"errors"
	"fmt"
)

// ErrorKind 稳定的错误分类，前端按 kind 分支处理
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindConflict      ErrorKind = "conflict"
	KindForbidden     ErrorKind = "forbidden"
	KindValidation    ErrorKind = "validation_error"
	KindLimitExceeded ErrorKind = "limit_exceeded"
	KindUnauthorized  ErrorKind = "unauthorized"
)

// AppError 业务错误。Is 只比较 Kind 与 Message，
// 因此 Wrap 出来的同类错误仍能与哨兵错误匹配
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func NewError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func NotFoundError(message string) *AppError   { return NewError(KindNotFound, message) }
func ConflictError(message string) *AppError   { return NewError(KindConflict, message) }
func ForbiddenError(message string) *AppError  { return NewError(KindForbidden, message) }
func ValidationError(message string) *AppError { return NewError(KindValidation, message) }

// Validationf 携带具体原因的校验错误
func Validationf(format string, args ...interface{}) *AppError {
	return NewError(KindValidation, fmt.Sprintf(format, args...))
}

// KindOf 非业务错误返回空串
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

var (
	ErrUserNotFound       = NotFoundError("user not found")
	ErrCourseNotFound     = NotFoundError("course not found")
	ErrModuleNotFound     = NotFoundError("module not found")
	ErrLessonNotFound     = NotFoundError("lesson not found")
	ErrQuizNotFound       = NotFoundError("quiz not found")
	ErrQuestionNotFound   = NotFoundError("question not found")
	ErrAttemptNotFound    = NotFoundError("quiz attempt not found")
	ErrResponseNotFound   = NotFoundError("quiz response not found")
	ErrAssignmentNotFound = NotFoundError("assignment not found")
	ErrSubmissionNotFound = NotFoundError("submission not found")
	ErrCategoryNotFound   = NotFoundError("category not found")
	ErrCertificateMissing = NotFoundError("certificate not found")
	ErrThreadNotFound     = NotFoundError("discussion thread not found")
	ErrPostNotFound       = NotFoundError("discussion post not found")
	ErrPaymentNotFound    = NotFoundError("payment not found")
	ErrPathNotFound       = NotFoundError("learning path not found")
	ErrBadgeNotFound      = NotFoundError("badge not found")
	ErrNotificationGone   = NotFoundError("notification not found")
	ErrRatingNotFound     = NotFoundError("rating not found")
	ErrNotEnrolled        = NotFoundError("student is not enrolled in this course")

	ErrAlreadyEnrolled     = ConflictError("student is already enrolled in this course")
	ErrEmailRegistered     = ConflictError("email is already registered")
	ErrUsernameTaken       = ConflictError("username is already taken")
	ErrDuplicateOrder      = ConflictError("order is already used in this parent")
	ErrAlreadySubmitted    = ConflictError("already submitted")
	ErrAlreadyRated        = ConflictError("course already rated by this student")
	ErrAlreadyWishlisted   = ConflictError("course already in wishlist")
	ErrQuizExists          = ConflictError("lesson already has a quiz")
	ErrDuplicateSlug       = ConflictError("a course with this slug already exists")
	ErrCategoryExists      = ConflictError("category already exists")
	ErrPaymentAlreadyFinal = ConflictError("payment already settled")

	ErrPermissionDenied = ForbiddenError("permission denied")
	ErrNotCourseOwner   = ForbiddenError("only the course instructor can do this")
	ErrThreadLocked     = ForbiddenError("discussion thread is locked")
	ErrEnrollmentNeeded = ForbiddenError("enrollment required")

	ErrInvalidCredentials = NewError(KindUnauthorized, "invalid credentials")
	ErrAccountDisabled    = NewError(KindUnauthorized, "account is disabled")

	ErrAttemptLimitExceeded = NewError(KindLimitExceeded, "maximum number of quiz attempts reached")

	ErrCourseNotOpen     = ValidationError("course is not open for enrollment")
	ErrPasswordMismatch  = ValidationError("passwords do not match")
	ErrInvalidSignature  = ValidationError("invalid payment notification signature")
	ErrInvalidListField  = ValidationError("list fields must be JSON arrays of strings")
	ErrGradeOutOfRange   = ValidationError("grade exceeds the maximum points")
	ErrInvalidRole       = ValidationError("invalid role")
	ErrPaymentNotNeeded  = ValidationError("course is free")
	ErrQuestionNotInQuiz = ValidationError("question does not belong to this quiz")
)
