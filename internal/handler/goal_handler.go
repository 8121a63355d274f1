// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/goalkeep/internal/middleware"
	"github.com/hitoshi/goalkeep/internal/model"
)

// GoalServiceInterface は目標ハンドラーが必要とするサービスインターフェース。
type GoalServiceInterface interface {
	// List は指定ユーザーの目標一覧を作成日時の新しい順で返す。
	List(ctx context.Context, userID string) ([]*model.Goal, error)
	// Create は新しい目標を作成する。
	Create(ctx context.Context, userID, title string, deadline, targetDate time.Time) (*model.Goal, error)
	// Update は目標を更新する。
	Update(ctx context.Context, userID, goalID string, update model.GoalUpdate) (*model.Goal, error)
	// Delete は目標を削除し、削除した目標のIDを返す。
	Delete(ctx context.Context, userID, goalID string) (string, error)
}

// GoalHandler は目標管理のHTTPハンドラー。
type GoalHandler struct {
	service GoalServiceInterface
}

// NewGoalHandler はGoalHandlerを生成する。
func NewGoalHandler(service GoalServiceInterface) *GoalHandler {
	return &GoalHandler{service: service}
}

// createGoalRequest は目標作成リクエストのボディ。
type createGoalRequest struct {
	Title      string     `json:"title"`
	Deadline   *time.Time `json:"deadline"`
	TargetDate *time.Time `json:"target_date"`
}

// updateGoalRequest は目標更新リクエストのボディ。
// どのフィールドが存在するかで更新種別を決定する（deriveGoalUpdate参照）。
type updateGoalRequest struct {
	Status     *string    `json:"status"`
	Title      *string    `json:"title"`
	Deadline   *time.Time `json:"deadline"`
	TargetDate *time.Time `json:"target_date"`
}

// goalResponse は目標のAPIレスポンス。
type goalResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Deadline         time.Time `json:"deadline"`
	TargetDate       time.Time `json:"target_date"`
	Status           string    `json:"status"`
	NotificationSent bool      `json:"notification_sent"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// deleteGoalResponse は目標削除のAPIレスポンス。
type deleteGoalResponse struct {
	ID string `json:"id"`
}

// ListGoals はユーザーの目標一覧を取得する。
// GET /api/goals
func (h *GoalHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	goals, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]goalResponse, len(goals))
	for i, goal := range goals {
		results[i] = toGoalResponse(goal)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// CreateGoal は目標を作成する。
// POST /api/goals
func (h *GoalHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	var deadline, targetDate time.Time
	if req.Deadline != nil {
		deadline = *req.Deadline
	}
	if req.TargetDate != nil {
		targetDate = *req.TargetDate
	}

	goal, err := h.service.Create(r.Context(), userID, req.Title, deadline, targetDate)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toGoalResponse(goal))
}

// UpdateGoal は目標を更新する。
// PUT /api/goals/:id
func (h *GoalHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	goalID := chi.URLParam(r, "id")

	var req updateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	goal, err := h.service.Update(r.Context(), userID, goalID, deriveGoalUpdate(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toGoalResponse(goal))
}

// DeleteGoal は目標を削除する。
// DELETE /api/goals/:id
func (h *GoalHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	goalID := chi.URLParam(r, "id")

	deletedID, err := h.service.Delete(r.Context(), userID, goalID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deleteGoalResponse{ID: deletedID})
}

// deriveGoalUpdate はリクエストボディから明示的な更新種別を導出する。
// 優先順位は最初に一致した分岐が勝つ:
//  1. statusが存在する場合は状態設定
//  2. titleまたはdeadlineが存在する場合は詳細編集
//  3. いずれも存在しない場合は状態反転
func deriveGoalUpdate(req updateGoalRequest) model.GoalUpdate {
	if req.Status != nil {
		return model.SetStatus(model.GoalStatus(*req.Status))
	}
	if req.Title != nil || req.Deadline != nil {
		return model.EditDetails(req.Title, req.Deadline, req.TargetDate)
	}
	return model.ToggleStatus()
}

// --- ヘルパー関数 ---

// toGoalResponse はmodel.GoalからAPIレスポンスに変換する。
func toGoalResponse(goal *model.Goal) goalResponse {
	return goalResponse{
		ID:               goal.ID,
		Title:            goal.Title,
		Deadline:         goal.Deadline,
		TargetDate:       goal.TargetDate,
		Status:           string(goal.Status),
		NotificationSent: goal.NotificationSent,
		CreatedAt:        goal.CreatedAt,
		UpdatedAt:        goal.UpdatedAt,
	}
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeUnauthorized は未認証エラーレスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidRequest はリクエストボディ解析失敗のレスポンスを書き込む。
func writeInvalidRequest(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidStatus:
		return http.StatusBadRequest
	case model.ErrCodeGoalNotFound, model.ErrCodeNotificationNotFound:
		return http.StatusNotFound
	case model.ErrCodeNotGoalOwner:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
