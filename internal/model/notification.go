// Package model はドメインモデルを定義する。
package model

import "time"

// Notification は期限接近アラートのアプリ内通知レコードを表す。
// DeadlineScannerがクレーム成功後にStoreSink経由で作成する。
type Notification struct {
	ID        string
	UserID    string
	GoalID    string
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
}
