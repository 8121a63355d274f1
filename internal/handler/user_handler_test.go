package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/goalkeep/internal/model"
)

// mockUserStore はUserStoreのテスト用モック。
type mockUserStore struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// --- GET /api/me テスト ---

func TestUserHandler_GetMe_Success(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store := &mockUserStore{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			if id != "user-1" {
				t.Errorf("id = %q, want %q", id, "user-1")
			}
			return &model.User{
				ID:        "user-1",
				Email:     "hitoshi@example.com",
				Name:      "ひとし",
				CreatedAt: now,
			}, nil
		},
	}
	h := NewUserHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.GetMe(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["id"] != "user-1" {
		t.Errorf("id = %v, want %q", resp["id"], "user-1")
	}
	if resp["email"] != "hitoshi@example.com" {
		t.Errorf("email = %v, want %q", resp["email"], "hitoshi@example.com")
	}
}

func TestUserHandler_GetMe_UserDeleted_Unauthorized(t *testing.T) {
	store := &mockUserStore{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}
	h := NewUserHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = withUserID(req, "user-gone")
	w := httptest.NewRecorder()

	h.GetMe(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestUserHandler_GetMe_NoSession_Unauthorized(t *testing.T) {
	h := NewUserHandler(&mockUserStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	w := httptest.NewRecorder()

	h.GetMe(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
