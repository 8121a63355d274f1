// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, goal, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeGoalNotFound         = "GOAL_NOT_FOUND"
	ErrCodeNotGoalOwner         = "NOT_GOAL_OWNER"
	ErrCodeInvalidStatus        = "INVALID_STATUS"
	ErrCodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
)

// NewValidationError は必須フィールド欠落エラーを生成する。
func NewValidationError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("必須フィールドが指定されていません: %s", field),
		Category: "validation",
		Action:   "タイトルと期限を入力してください。",
	}
}

// NewGoalNotFoundError は目標未検出エラーを生成する。
func NewGoalNotFoundError(goalID string) *APIError {
	return &APIError{
		Code:     ErrCodeGoalNotFound,
		Message:  fmt.Sprintf("指定された目標が見つかりません: %s", goalID),
		Category: "goal",
		Action:   "目標IDを確認してください。",
	}
}

// NewNotGoalOwnerError は所有者以外による操作エラーを生成する。
func NewNotGoalOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotGoalOwner,
		Message:  "この目標を操作する権限がありません。",
		Category: "auth",
		Action:   "自分が作成した目標のみ編集・削除できます。",
	}
}

// NewInvalidStatusError は無効な状態値エラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効な状態です: %s", status),
		Category: "validation",
		Action:   "状態には Active または Completed を指定してください。",
	}
}

// NewNotificationNotFoundError は通知未検出エラーを生成する。
func NewNotificationNotFoundError(notificationID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotificationNotFound,
		Message:  fmt.Sprintf("指定された通知が見つかりません: %s", notificationID),
		Category: "goal",
		Action:   "通知IDを確認してください。",
	}
}
