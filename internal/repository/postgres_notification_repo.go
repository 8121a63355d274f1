package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/goalkeep/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用したアプリ内通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Insert は通知レコードを作成する。
func (r *PostgresNotificationRepo) Insert(ctx context.Context, n *model.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, goal_id, title, body, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())`,
		n.ID, n.UserID, n.GoalID, n.Title, n.Body, n.Read,
	)
	if err != nil {
		return fmt.Errorf("通知の作成に失敗しました: %w", err)
	}
	return nil
}

// ListByUser は指定ユーザーの通知一覧をcreated_at降順で返す。
func (r *PostgresNotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, goal_id, title, body, read, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.GoalID, &n.Title, &n.Body, &n.Read, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("通知の読み取りに失敗しました: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("通知の走査に失敗しました: %w", err)
	}

	return notifications, nil
}

// MarkRead は指定ユーザーの通知を既読にする。
// user_idを常に条件に含め、他ユーザーの通知を操作できないことを
// リポジトリ層で強制する。
func (r *PostgresNotificationRepo) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true
		 WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("通知の既読化に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("通知既読化の更新行数取得に失敗しました: %w", err)
	}

	return affected > 0, nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
