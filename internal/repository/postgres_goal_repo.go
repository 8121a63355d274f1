package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/goalkeep/internal/model"
)

// PostgresGoalRepo はPostgreSQLを使用した目標リポジトリ。
type PostgresGoalRepo struct {
	db *sql.DB
}

// NewPostgresGoalRepo はPostgresGoalRepoを生成する。
func NewPostgresGoalRepo(db *sql.DB) *PostgresGoalRepo {
	return &PostgresGoalRepo{db: db}
}

const goalColumns = `id, owner_id, title, deadline, target_date, status,
		        notification_sent, created_at, updated_at`

// Insert は目標を作成する。
func (r *PostgresGoalRepo) Insert(ctx context.Context, goal *model.Goal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (id, owner_id, title, deadline, target_date, status,
		                    notification_sent, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`,
		goal.ID, goal.OwnerID, goal.Title, goal.Deadline, goal.TargetDate,
		goal.Status, goal.NotificationSent,
	)
	if err != nil {
		return fmt.Errorf("目標の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの目標を取得する。見つからない場合はnilを返す。
func (r *PostgresGoalRepo) FindByID(ctx context.Context, id string) (*model.Goal, error) {
	goal := &model.Goal{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = $1`,
		id,
	).Scan(
		&goal.ID, &goal.OwnerID, &goal.Title, &goal.Deadline, &goal.TargetDate,
		&goal.Status, &goal.NotificationSent, &goal.CreatedAt, &goal.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("目標の取得に失敗しました: %w", err)
	}

	return goal, nil
}

// ListByOwner は指定ユーザーの目標一覧をcreated_at降順で返す。
func (r *PostgresGoalRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals
		 WHERE owner_id = $1
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("目標一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanGoals(rows)
}

// ListDueUnnotified はスキャン対象の目標を取得する。
// status = 'Active' かつ notification_sent = false かつ
// from <= deadline < to を満たす目標をdeadline昇順で返す。
func (r *PostgresGoalRepo) ListDueUnnotified(ctx context.Context, from, to time.Time) ([]*model.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals
		 WHERE status = 'Active'
		   AND notification_sent = false
		   AND deadline >= $1
		   AND deadline < $2
		 ORDER BY deadline ASC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("スキャン対象目標の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanGoals(rows)
}

// ConditionalSetNotified はnotification_sentをfalseからtrueへ条件付きで遷移させる。
// WHERE句のnotification_sent = falseがcompare-and-setの条件であり、
// 更新行数が1の場合のみこの呼び出しがクレームに成功したことを意味する。
// 複数スキャナインスタンスが並行実行しても、ストアが単一の真実の源となる。
func (r *PostgresGoalRepo) ConditionalSetNotified(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE goals SET notification_sent = true, updated_at = now()
		 WHERE id = $1 AND notification_sent = false`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("通知クレームに失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("通知クレームの更新行数取得に失敗しました: %w", err)
	}

	return affected == 1, nil
}

// ClearNotified はnotification_sentをfalseへ戻す。
func (r *PostgresGoalRepo) ClearNotified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE goals SET notification_sent = false, updated_at = now()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("通知ラッチの再オープンに失敗しました: %w", err)
	}
	return nil
}

// Update は目標のタイトル・期限・目標日・状態を更新し、updated_atを更新する。
// owner_idとnotification_sentはこのメソッドでは変更しない。
func (r *PostgresGoalRepo) Update(ctx context.Context, goal *model.Goal) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE goals SET
		    title = $2, deadline = $3, target_date = $4, status = $5,
		    updated_at = now()
		 WHERE id = $1`,
		goal.ID, goal.Title, goal.Deadline, goal.TargetDate, goal.Status,
	)
	if err != nil {
		return fmt.Errorf("目標の更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの目標を削除する。
func (r *PostgresGoalRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM goals WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("目標の削除に失敗しました: %w", err)
	}
	return nil
}

// scanGoals は行セットからGoalのスライスを読み取る。
func scanGoals(rows *sql.Rows) ([]*model.Goal, error) {
	var goals []*model.Goal
	for rows.Next() {
		goal := &model.Goal{}
		if err := rows.Scan(
			&goal.ID, &goal.OwnerID, &goal.Title, &goal.Deadline, &goal.TargetDate,
			&goal.Status, &goal.NotificationSent, &goal.CreatedAt, &goal.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("目標の読み取りに失敗しました: %w", err)
		}
		goals = append(goals, goal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("目標の走査に失敗しました: %w", err)
	}

	return goals, nil
}

// compile-time interface check
var _ GoalRepository = (*PostgresGoalRepo)(nil)
