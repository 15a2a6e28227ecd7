package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMatching(t *testing.T) {
	wrapped := fmt.Errorf("enroll: %w", ErrAlreadyEnrolled)
	assert.True(t, errors.Is(wrapped, ErrAlreadyEnrolled))
	assert.False(t, errors.Is(wrapped, ErrNotEnrolled))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))
}

func TestHandleErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		code int
		kind ErrorKind
	}{
		{ErrCourseNotFound, http.StatusNotFound, KindNotFound},
		{ErrAlreadyEnrolled, http.StatusConflict, KindConflict},
		{ErrNotCourseOwner, http.StatusForbidden, KindForbidden},
		{ErrInvalidListField, http.StatusBadRequest, KindValidation},
		{ErrAttemptLimitExceeded, http.StatusTooManyRequests, KindLimitExceeded},
		{errors.New("db down"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		HandleError(c, tc.err)

		assert.Equal(t, tc.code, w.Code)
		var resp Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, tc.kind, resp.Kind)
	}
}

func TestParseStringList(t *testing.T) {
	got, err := ParseStringList(json.RawMessage(`["go", " sql ", ""]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "sql"}, got)

	got, err = ParseStringList(json.RawMessage(`"[\"a\",\"b\"]"`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = ParseStringList(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseStringList(json.RawMessage(`"not a list"`))
	assert.ErrorIs(t, err, ErrInvalidListField)

	_, err = ParseStringList(json.RawMessage(`{"a":1}`))
	assert.ErrorIs(t, err, ErrInvalidListField)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "intro-to-go-1-22", Slugify("Intro to Go 1.22!"))
	assert.Equal(t, "course", Slugify("???"))
}

func TestParseProbeOutput(t *testing.T) {
	out := `{"streams":[{"codec_type":"audio"},{"codec_type":"video","width":1280,"height":720}],
		"format":{"duration":"61.2","size":"2048","format_name":"mov,mp4,m4a"}}`
	info, err := parseProbeOutput(out, 10)
	require.NoError(t, err)
	assert.Equal(t, 1280, info.Width)
	assert.Equal(t, "mov", info.Format)
	assert.Equal(t, int64(2048), info.Size)
	assert.Equal(t, 62, info.DurationSeconds())
}

func TestStringListValidator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	RegisterValidators()

	type payload struct {
		Tags json.RawMessage `json:"tags" binding:"omitempty,stringlist"`
	}
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var body payload
		if err := c.ShouldBindJSON(&body); err != nil {
			BadRequest(c, err.Error())
			return
		}
		Success(c, nil)
	})

	for body, code := range map[string]int{
		`{"tags":["go","gin"]}`:     http.StatusOK,
		`{"tags":"[\"go\"]"}`:       http.StatusOK,
		`{}`:                        http.StatusOK,
		`{"tags":{"not":"a list"}}`: http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, code, w.Code, body)
	}
}
