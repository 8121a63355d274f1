// Package notify は期限接近アラートの配送先（NotificationSink）を提供する。
package notify

import (
	"context"
	"time"
)

// Payload は期限接近アラートの通知内容を表す。
type Payload struct {
	GoalID   string
	OwnerID  string
	Title    string
	Deadline time.Time
}

// Sink は通知ペイロードを受け取り配送するインターフェース。
// 配送失敗は呼び出し側（スキャナ）にとって致命的ではなく、
// クレーム済みの目標が再通知されることはない。
type Sink interface {
	Notify(ctx context.Context, p Payload) error
}
