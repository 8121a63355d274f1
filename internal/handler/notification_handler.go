package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/goalkeep/internal/middleware"
	"github.com/hitoshi/goalkeep/internal/model"
)

// defaultNotificationLimit は通知一覧のデフォルト取得件数。
const defaultNotificationLimit = 50

// NotificationStore は通知ハンドラーが必要とする最小限のインターフェース。
// repository.NotificationRepositoryの部分集合として定義する。
type NotificationStore interface {
	// ListByUser は指定ユーザーの通知一覧をcreated_at降順で返す。
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	// MarkRead は指定ユーザーの通知を既読にする。
	MarkRead(ctx context.Context, userID, notificationID string) (bool, error)
}

// NotificationHandler はアプリ内通知のHTTPハンドラー。
type NotificationHandler struct {
	store NotificationStore
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(store NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// notificationResponse は通知のAPIレスポンス。
type notificationResponse struct {
	ID        string    `json:"id"`
	GoalID    string    `json:"goal_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// ListNotifications はユーザーの通知一覧を取得する。
// GET /api/notifications?limit=N
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	limit := defaultNotificationLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	notifications, err := h.store.ListByUser(r.Context(), userID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]notificationResponse, len(notifications))
	for i, n := range notifications {
		results[i] = notificationResponse{
			ID:        n.ID,
			GoalID:    n.GoalID,
			Title:     n.Title,
			Body:      n.Body,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// MarkNotificationRead は通知を既読にする。
// PUT /api/notifications/:id/read
func (h *NotificationHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	notificationID := chi.URLParam(r, "id")

	updated, err := h.store.MarkRead(r.Context(), userID, notificationID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !updated {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotificationNotFoundError(notificationID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
