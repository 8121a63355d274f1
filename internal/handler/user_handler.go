package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/goalkeep/internal/middleware"
	"github.com/hitoshi/goalkeep/internal/model"
)

// UserStore はユーザーハンドラーが必要とする最小限のインターフェース。
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// UserHandler は認証済みユーザー情報のHTTPハンドラー。
type UserHandler struct {
	store UserStore
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// GetMe はログイン中のユーザー情報を取得する。
// GET /api/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	user, err := h.store.FindByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		// セッションは有効だがユーザーが削除済みの場合
		writeUnauthorized(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	})
}
