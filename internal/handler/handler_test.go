package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/config"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/exam-balancer/backend/internal/partitioner"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 1
	cfg.Grouping.MaxPopulationSize = 100
	cfg.Grouping.MaxGenerations = 200
	cfg.Grouping.JobStatusExpiration = 60

	h, err := NewHandler(cfg, nil, nil, nil, nil)
	require.NoError(t, err)
	return h
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestAuthWithoutCookie(t *testing.T) {
	h := newTestHandler(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("不应该执行到下一个 handler")
	})

	rec := httptest.NewRecorder()
	h.auth(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/my-info", nil))

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "用户未登录", resp.Message)
}

func TestAuthWithInvalidToken(t *testing.T) {
	h := newTestHandler(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("不应该执行到下一个 handler")
	})

	req := httptest.NewRequest(http.MethodGet, "/my-info", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: "not-a-token"})
	rec := httptest.NewRecorder()
	h.auth(next).ServeHTTP(rec, req)

	assert.Equal(t, "无效的令牌", decodeResponse(t, rec).Message)
}

func TestAuthWithValidToken(t *testing.T) {
	h := newTestHandler(t)
	user := &domain.User{ID: 12, Role: domain.RoleTeacher}

	token, expiration, err := h.signToken(user, time.Now())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiration, time.Minute)

	var role, sub string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = r.Context().Value(RoleCtxKey).(string)
		sub = r.Context().Value(SubCtxKey).(string)
		h.successResponse(w, r, "ok", nil)
	})

	req := httptest.NewRequest(http.MethodGet, "/my-info", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: token})
	rec := httptest.NewRecorder()
	h.auth(next).ServeHTTP(rec, req)

	assert.True(t, decodeResponse(t, rec).Success)
	assert.Equal(t, string(domain.RoleTeacher), role)
	assert.Equal(t, "12", sub)
}

func TestRequiredRole(t *testing.T) {
	h := newTestHandler(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.successResponse(w, r, "ok", nil)
	})
	mw := h.RequiredRole([]domain.Role{domain.RoleAdmin})

	tests := []struct {
		role    domain.Role
		success bool
	}{
		{domain.RoleAdmin, true},
		{domain.RoleTeacher, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			req = req.WithContext(context.WithValue(req.Context(), RoleCtxKey, string(tt.role)))
			rec := httptest.NewRecorder()
			mw(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.success, decodeResponse(t, rec).Success)
		})
	}
}

func TestRecovererReturnsInternalServerError(t *testing.T) {
	h := newTestHandler(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	h.recoverer(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "服务器内部错误", decodeResponse(t, rec).Message)
}

func TestBadRequestTranslatesValidationErrors(t *testing.T) {
	h := newTestHandler(t)

	var req struct {
		Username string `json:"username" validate:"required"`
	}
	err := h.validate.Struct(req)
	require.Error(t, err)

	rec := httptest.NewRecorder()
	h.badRequest(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil), err)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "Username")
	assert.Contains(t, resp.Message, "必填")
}

func TestReadJSONRejectsUnknownFields(t *testing.T) {
	h := newTestHandler(t)

	var req struct {
		Username string `json:"username"`
	}
	body := strings.NewReader(`{"username":"admin","extra":1}`)
	assert.Error(t, h.readJSON(httptest.NewRequest(http.MethodPost, "/", body), &req))
}

func TestWritePNG(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.writePNG(rec, httptest.NewRequest(http.MethodGet, "/", nil), func(buf *bytes.Buffer) error {
		buf.WriteString("\x89PNG")
		return nil
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", rec.Body.String())

	rec = httptest.NewRecorder()
	h.writePNG(rec, httptest.NewRequest(http.MethodGet, "/", nil), func(buf *bytes.Buffer) error {
		return errors.New("render failed")
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestCanAccess(t *testing.T) {
	admin := &domain.User{ID: 1, Role: domain.RoleAdmin}
	teacher := &domain.User{ID: 2, Role: domain.RoleTeacher}

	assert.True(t, canAccess(admin, 2))
	assert.True(t, canAccess(teacher, 2))
	assert.False(t, canAccess(teacher, 3))
}

func TestCheckGroupingParameters(t *testing.T) {
	h := newTestHandler(t)
	roster := &domain.Roster{Students: make([]domain.Student, 39)}

	valid := domain.GroupingParameters{
		Encoding:       "discrete",
		GroupCount:     3,
		Tolerance:      "exact",
		PopulationSize: 50,
		MaxGenerations: 100,
		EliteFraction:  0.2,
	}
	assert.NoError(t, h.checkGroupingParameters(&valid, roster))

	infeasible := valid
	infeasible.GroupCount = 4
	assert.ErrorIs(t, h.checkGroupingParameters(&infeasible, roster), partitioner.ErrInfeasibleConfiguration)

	tooLarge := valid
	tooLarge.PopulationSize = 101
	assert.Error(t, h.checkGroupingParameters(&tooLarge, roster))

	unknown := valid
	unknown.Encoding = "binary"
	assert.Error(t, h.checkGroupingParameters(&unknown, roster))

	negativeWeight := valid
	negativeWeight.Weights = &domain.GroupingWeights{Balance: -1}
	assert.Error(t, h.checkGroupingParameters(&negativeWeight, roster))
}
