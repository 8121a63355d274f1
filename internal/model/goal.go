// Package model はドメインモデルを定義する。
package model

import "time"

// Goal はユーザーが追跡する目標を表す。
// owner は作成時に認証済みユーザーから設定され、以後変更されない。
type Goal struct {
	ID               string
	OwnerID          string
	Title            string
	Deadline         time.Time
	TargetDate       time.Time // 未指定の場合はDeadlineと同値
	Status           GoalStatus
	NotificationSent bool // 期限接近アラートの送信済みラッチ
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// GoalStatus は目標の状態を表す。
type GoalStatus string

const (
	// GoalStatusActive は進行中の目標状態。作成時の初期値。
	GoalStatusActive GoalStatus = "Active"
	// GoalStatusCompleted は達成済みの目標状態。Activeへ戻すことができる。
	GoalStatusCompleted GoalStatus = "Completed"
)

// IsValid はGoalStatusが定義済みの値かどうかを返す。
func (s GoalStatus) IsValid() bool {
	return s == GoalStatusActive || s == GoalStatusCompleted
}

// Toggled はActive/Completedを反転した状態を返す。
func (s GoalStatus) Toggled() GoalStatus {
	if s == GoalStatusActive {
		return GoalStatusCompleted
	}
	return GoalStatusActive
}

// GoalUpdateKind は目標更新リクエストの種別を表す。
type GoalUpdateKind string

const (
	// GoalUpdateSetStatus は状態を指定値に設定する更新。
	GoalUpdateSetStatus GoalUpdateKind = "set_status"
	// GoalUpdateEditDetails はタイトル・期限・目標日を部分更新する更新。
	GoalUpdateEditDetails GoalUpdateKind = "edit_details"
	// GoalUpdateToggle は状態をActive/Completed間で反転する更新。
	GoalUpdateToggle GoalUpdateKind = "toggle"
)

// GoalUpdate は目標更新の明示的なリクエスト種別を表す。
// どのフィールドが空かによる暗黙の分岐を避けるため、呼び出し側が
// 種別を決定してサービス層へ渡す。
type GoalUpdate struct {
	Kind GoalUpdateKind

	// Kind == GoalUpdateSetStatus の場合に使用する。
	Status GoalStatus

	// Kind == GoalUpdateEditDetails の場合に使用する。nilのフィールドは変更しない。
	Title      *string
	Deadline   *time.Time
	TargetDate *time.Time
}

// SetStatus は状態設定の更新リクエストを生成する。
func SetStatus(status GoalStatus) GoalUpdate {
	return GoalUpdate{Kind: GoalUpdateSetStatus, Status: status}
}

// EditDetails は詳細編集の更新リクエストを生成する。
func EditDetails(title *string, deadline, targetDate *time.Time) GoalUpdate {
	return GoalUpdate{
		Kind:       GoalUpdateEditDetails,
		Title:      title,
		Deadline:   deadline,
		TargetDate: targetDate,
	}
}

// ToggleStatus は状態反転の更新リクエストを生成する。
func ToggleStatus() GoalUpdate {
	return GoalUpdate{Kind: GoalUpdateToggle}
}
