// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/goalkeep/internal/model"
)

// GoalRepository は目標データの永続化インターフェース。
// GoalServiceとDeadlineScannerの両方から共有される。
type GoalRepository interface {
	// Insert は目標を作成する。
	Insert(ctx context.Context, goal *model.Goal) error

	// FindByID は指定IDの目標を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Goal, error)

	// ListByOwner は指定ユーザーの目標一覧をcreated_at降順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Goal, error)

	// ListDueUnnotified はスキャン対象の目標を取得する。
	// status = 'Active' かつ notification_sent = false かつ
	// from <= deadline < to を満たす目標を返す。
	ListDueUnnotified(ctx context.Context, from, to time.Time) ([]*model.Goal, error)

	// ConditionalSetNotified はnotification_sentをfalseからtrueへ
	// 条件付きで遷移させる。この呼び出しで遷移が起きた場合のみtrueを返す。
	// 既にtrueの場合（他サイクル・他インスタンスがクレーム済み）はfalseを返す。
	ConditionalSetNotified(ctx context.Context, id string) (bool, error)

	// ClearNotified はnotification_sentをfalseへ戻す。
	// 期限が後ろ倒しに編集された場合の通知ラッチ再オープンにのみ使用する。
	ClearNotified(ctx context.Context, id string) error

	// Update は目標のタイトル・期限・目標日・状態を更新し、updated_atを更新する。
	Update(ctx context.Context, goal *model.Goal) error

	// Delete は指定IDの目標を削除する。
	Delete(ctx context.Context, id string) error
}

// NotificationRepository はアプリ内通知の永続化インターフェース。
type NotificationRepository interface {
	// Insert は通知レコードを作成する。
	Insert(ctx context.Context, n *model.Notification) error

	// ListByUser は指定ユーザーの通知一覧をcreated_at降順で返す。
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error)

	// MarkRead は指定ユーザーの通知を既読にする。
	// 対象が存在し更新された場合のみtrueを返す。
	MarkRead(ctx context.Context, userID, notificationID string) (bool, error)
}

// SessionRepository はセッションデータの読み取りインターフェース。
// セッションの発行・削除は外部の認証コラボレータが行うため、検索のみを提供する。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// UserRepository はユーザーデータの読み取りインターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}
