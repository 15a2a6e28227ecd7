package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/pkg/testutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		Server:    config.ServerConfig{Port: "0", Mode: gin.TestMode},
		JWT:       config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Storage:   config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		RateLimit: config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 1},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Gamification: config.GamificationConfig{
			LessonPoints:     10,
			CoursePoints:     100,
			QuizPassedPoints: 20,
			PointsPerLevel:   500,
		},
	}
	a := &App{Config: cfg, DB: testutil.NewDB(t)}
	a.setup()
	t.Cleanup(func() {
		a.hub.Stop()
		a.limiter.Stop()
	})
	return a
}

func (a *App) call(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (a *App) register(t *testing.T, username string, role model.UserRole) (string, uint) {
	t.Helper()
	w, env := a.call(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username":         username,
		"email":            username + "@example.com",
		"password":         "secret123",
		"confirm_password": "secret123",
		"role":             role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.Token)
	return res.Token, res.User.ID
}

func TestHealthCheck(t *testing.T) {
	a := newTestApp(t)

	w, _ := a.call(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "disabled")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRegisterAndLogin(t *testing.T) {
	a := newTestApp(t)
	a.register(t, "alice", model.Student)

	w, env := a.call(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))

	w, _ = a.call(t, http.MethodGet, "/api/auth/profile", res.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice@example.com")

	w, _ = a.call(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 重名注册
	w, env = a.call(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username":         "alice",
		"email":            "other@example.com",
		"password":         "secret123",
		"confirm_password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", env.Kind)
}

func TestRefreshToken(t *testing.T) {
	a := newTestApp(t)
	token, id := a.register(t, "refresher", model.Student)

	w, _ := a.call(t, http.MethodPost, "/api/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := a.call(t, http.MethodPost, "/api/auth/refresh", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.Token)
	assert.Equal(t, id, res.User.ID)

	w, _ = a.call(t, http.MethodGet, "/api/auth/profile", res.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterRejectsBadPayload(t *testing.T) {
	a := newTestApp(t)

	w, env := a.call(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "bob", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", env.Kind)

	w, _ = a.call(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username":         "bob",
		"email":            "bob@example.com",
		"password":         "secret123",
		"confirm_password": "secret123",
		"role":             model.Admin,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := newTestApp(t)

	w, _ := a.call(t, http.MethodGet, "/api/enrollments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = a.call(t, http.MethodGet, "/api/enrollments", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleChecks(t *testing.T) {
	a := newTestApp(t)
	student, _ := a.register(t, "stu", model.Student)
	instructor, _ := a.register(t, "teach", model.Instructor)

	course := gin.H{"title": "Go 入门", "price": 0}

	w, _ := a.call(t, http.MethodPost, "/api/courses", student, course)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := a.call(t, http.MethodPost, "/api/courses", instructor, course)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created model.Course
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, model.CourseDraft, created.Status)
	assert.NotEmpty(t, created.Slug)

	// 草稿对匿名用户不可见
	w, _ = a.call(t, http.MethodGet, fmt.Sprintf("/api/courses/%d", created.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = a.call(t, http.MethodGet, fmt.Sprintf("/api/courses/%d", created.ID), instructor, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = a.call(t, http.MethodGet, "/api/admin/users", instructor, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEnrollAndCompleteCourse(t *testing.T) {
	a := newTestApp(t)
	token, studentID := a.register(t, "learner", model.Student)

	instructor := testutil.CreateUser(t, a.DB, model.Instructor)
	fx := testutil.CreateCourse(t, a.DB, instructor, 2, 0)
	coursePath := fmt.Sprintf("/api/courses/%d", fx.Course.ID)

	w, _ := a.call(t, http.MethodPost, coursePath+"/enroll", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := a.call(t, http.MethodPost, coursePath+"/enroll", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", env.Kind)

	var last struct {
		PercentComplete float64 `json:"percent_complete"`
		CourseCompleted bool    `json:"course_completed"`
		Certificate     *struct {
			CertificateID string `json:"certificate_id"`
		} `json:"certificate"`
	}
	for _, l := range fx.Lessons {
		w, env = a.call(t, http.MethodPost, fmt.Sprintf("/api/lessons/%d/progress", l.ID), token,
			gin.H{"watched_duration": l.Duration, "completed": true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(env.Data, &last))
	}
	assert.Equal(t, 100.0, last.PercentComplete)
	assert.True(t, last.CourseCompleted)

	var enrollment model.Enrollment
	require.NoError(t, a.DB.Where("student_id = ? AND course_id = ?", studentID, fx.Course.ID).First(&enrollment).Error)
	assert.Equal(t, model.EnrollmentCompleted, enrollment.Status)
	assert.True(t, enrollment.CertificateEarned)

	w, _ = a.call(t, http.MethodGet, coursePath+"/progress", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = a.call(t, http.MethodGet, "/api/certificates", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var certs []model.Certificate
	require.NoError(t, json.Unmarshal(env.Data, &certs))
	require.Len(t, certs, 1)

	// 证书校验无需登录
	w, _ = a.call(t, http.MethodGet, "/api/certificates/"+certs[0].CertificateID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProgressRequiresEnrollment(t *testing.T) {
	a := newTestApp(t)
	token, _ := a.register(t, "outsider", model.Student)

	instructor := testutil.CreateUser(t, a.DB, model.Instructor)
	fx := testutil.CreateCourse(t, a.DB, instructor, 1, 0)

	w, env := a.call(t, http.MethodPost, fmt.Sprintf("/api/lessons/%d/progress", fx.Lessons[0].ID), token,
		gin.H{"watched_duration": 10})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Kind)

	w, _ = a.call(t, http.MethodPost, fmt.Sprintf("/api/lessons/%d/progress", fx.Lessons[0].ID), token,
		gin.H{"watched_duration": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfigCallbacksApplyNewOrigins(t *testing.T) {
	a := newTestApp(t)

	preflight := func() string {
		req := httptest.NewRequest(http.MethodOptions, "/api/courses", nil)
		req.Header.Set("Origin", "https://lms.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		w := httptest.NewRecorder()
		a.Router.ServeHTTP(w, req)
		return w.Header().Get("Access-Control-Allow-Origin")
	}
	assert.Empty(t, preflight())

	next := *a.Config
	next.CORS.AllowedOrigins = []string{"https://lms.example.com"}
	a.applyConfig(&next)
	assert.Equal(t, "https://lms.example.com", preflight())
}
