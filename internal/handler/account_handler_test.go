package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockAccountService struct {
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockAccountService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

var _ AccountServiceInterface = (*mockAccountService)(nil)

func TestWithdraw_Returns204(t *testing.T) {
	var withdrawnUserID string
	svc := &mockAccountService{
		withdrawFn: func(ctx context.Context, userID string) error {
			withdrawnUserID = userID
			return nil
		},
	}
	h := NewAccountHandler(svc)

	rec := httptest.NewRecorder()
	h.Withdraw(rec, authenticatedRequest(http.MethodDelete, "/api/users/me", ""))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if withdrawnUserID != "user-1" {
		t.Errorf("withdrawn user = %q, want user-1", withdrawnUserID)
	}
}

func TestWithdraw_Unauthenticated_Returns401(t *testing.T) {
	h := NewAccountHandler(&mockAccountService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	rec := httptest.NewRecorder()
	h.Withdraw(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestWithdraw_ServiceError_Returns500(t *testing.T) {
	svc := &mockAccountService{
		withdrawFn: func(ctx context.Context, userID string) error {
			return errors.New("db down")
		},
	}
	h := NewAccountHandler(svc)

	rec := httptest.NewRecorder()
	h.Withdraw(rec, authenticatedRequest(http.MethodDelete, "/api/users/me", ""))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
