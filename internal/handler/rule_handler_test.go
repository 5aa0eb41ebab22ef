package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expensehub/internal/model"
	"expensehub/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubRuleService struct {
	setupCalled  bool
	createCalled bool
	updateCalled bool
	deleteCalled bool
}

func (s *stubRuleService) ListRules(_ context.Context, _ uuid.UUID) ([]model.ApprovalRule, error) {
	return nil, nil
}

func (s *stubRuleService) GetRule(_ context.Context, _, _ uuid.UUID) (*model.ApprovalRule, error) {
	return &model.ApprovalRule{}, nil
}

func (s *stubRuleService) CreateRule(_ context.Context, _ uuid.UUID, _ service.CreateRuleRequest) (*model.ApprovalRule, error) {
	s.createCalled = true
	return &model.ApprovalRule{}, nil
}

func (s *stubRuleService) UpdateRule(_ context.Context, _, _ uuid.UUID, _ service.UpdateRuleRequest) (*model.ApprovalRule, error) {
	s.updateCalled = true
	return &model.ApprovalRule{}, nil
}

func (s *stubRuleService) DeleteRule(_ context.Context, _, _ uuid.UUID) error {
	s.deleteCalled = true
	return nil
}

func (s *stubRuleService) SetupDefaultRule(_ context.Context, _ uuid.UUID) (*model.ApprovalRule, error) {
	s.setupCalled = true
	return &model.ApprovalRule{Name: model.DefaultRuleName}, nil
}

func TestRuleRoutesAdmitManagers(t *testing.T) {
	stub := &stubRuleService{}
	router := newTestRouter()
	NewRuleHandler(stub).RegisterRoutes(router.Group(""))

	token := signTestToken(t, model.RoleManager, uuid.New())

	t.Run("setup default rule", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/approval-rules/setup-default", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, stub.setupCalled)
	})

	t.Run("create rule", func(t *testing.T) {
		body := `{"name":"High value","approvers":[{"user_id":"` + uuid.NewString() + `","order":1}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/approval-rules", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, stub.createCalled)
	})

	t.Run("update rule", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/approval-rules/"+uuid.NewString(), strings.NewReader(`{"name":"Renamed"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, stub.updateCalled)
	})

	t.Run("delete rule", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/approval-rules/"+uuid.NewString(), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, stub.deleteCalled)
	})
}

func TestRuleRoutesRejectEmployees(t *testing.T) {
	stub := &stubRuleService{}
	router := newTestRouter()
	NewRuleHandler(stub).RegisterRoutes(router.Group(""))

	req := httptest.NewRequest(http.MethodPost, "/api/approval-rules/setup-default", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, model.RoleEmployee, uuid.New()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, stub.setupCalled)
}
