// Package goal は目標管理のドメインロジックを提供する。
package goal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/goalkeep/internal/model"
	"github.com/hitoshi/goalkeep/internal/repository"
)

// Service は目標管理のサービス層。
// 所有者チェックとバリデーションを強制し、一覧・作成・更新・削除を提供する。
// リトライは行わず、エラーは呼び出し側へそのまま返す。
type Service struct {
	goalRepo repository.GoalRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(goalRepo repository.GoalRepository) *Service {
	return &Service{goalRepo: goalRepo}
}

// List は指定ユーザーの目標一覧を作成日時の新しい順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Goal, error) {
	goals, err := s.goalRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("目標一覧の取得に失敗しました: %w", err)
	}
	return goals, nil
}

// Create は新しい目標を作成する。
// titleとdeadlineは必須。targetDateがゼロ値の場合はdeadlineを使用する。
// 作成された目標はstatus=Active、notificationSent=falseで初期化される。
func (s *Service) Create(ctx context.Context, userID, title string, deadline, targetDate time.Time) (*model.Goal, error) {
	if strings.TrimSpace(title) == "" {
		return nil, model.NewValidationError("title")
	}
	if deadline.IsZero() {
		return nil, model.NewValidationError("deadline")
	}

	if targetDate.IsZero() {
		targetDate = deadline
	}

	goal := &model.Goal{
		ID:               uuid.New().String(),
		OwnerID:          userID,
		Title:            title,
		Deadline:         deadline,
		TargetDate:       targetDate,
		Status:           model.GoalStatusActive,
		NotificationSent: false,
	}

	if err := s.goalRepo.Insert(ctx, goal); err != nil {
		return nil, fmt.Errorf("目標の作成に失敗しました: %w", err)
	}

	// ストアが設定したタイムスタンプを含めて返す
	created, err := s.goalRepo.FindByID(ctx, goal.ID)
	if err != nil {
		return nil, fmt.Errorf("作成した目標の再取得に失敗しました: %w", err)
	}
	if created == nil {
		return goal, nil
	}
	return created, nil
}

// Update は目標を更新する。
// updateの種別ごとに、状態設定・詳細編集・状態反転のいずれかを適用する。
// 詳細編集で期限が格納済みの期限より後ろへ移動した場合は、
// 通知ラッチを再オープンして新しい期限ウィンドウで再通知できるようにする。
func (s *Service) Update(ctx context.Context, userID, goalID string, update model.GoalUpdate) (*model.Goal, error) {
	goal, err := s.findOwned(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	reopenLatch := false

	switch update.Kind {
	case model.GoalUpdateSetStatus:
		// 現在状態との整合チェックは行わない。Active→Activeも許容する。
		if !update.Status.IsValid() {
			return nil, model.NewInvalidStatusError(string(update.Status))
		}
		goal.Status = update.Status

	case model.GoalUpdateEditDetails:
		if update.Title != nil {
			if strings.TrimSpace(*update.Title) == "" {
				return nil, model.NewValidationError("title")
			}
			goal.Title = *update.Title
		}
		if update.Deadline != nil {
			if goal.NotificationSent && update.Deadline.After(goal.Deadline) {
				// 期限の後ろ倒しは新しい期限ウィンドウを開くため、
				// 通知済みラッチを再オープンする
				reopenLatch = true
			}
			goal.Deadline = *update.Deadline
		}
		if update.TargetDate != nil {
			goal.TargetDate = *update.TargetDate
		}

	case model.GoalUpdateToggle:
		goal.Status = goal.Status.Toggled()

	default:
		return nil, fmt.Errorf("未知の更新種別です: %q", update.Kind)
	}

	if err := s.goalRepo.Update(ctx, goal); err != nil {
		return nil, fmt.Errorf("目標の更新に失敗しました: %w", err)
	}

	if reopenLatch {
		if err := s.goalRepo.ClearNotified(ctx, goal.ID); err != nil {
			return nil, fmt.Errorf("通知ラッチの再オープンに失敗しました: %w", err)
		}
		goal.NotificationSent = false
	}

	// ストアが更新したupdated_atを含めて返す
	updated, err := s.goalRepo.FindByID(ctx, goal.ID)
	if err != nil {
		return nil, fmt.Errorf("更新した目標の再取得に失敗しました: %w", err)
	}
	if updated == nil {
		return goal, nil
	}
	return updated, nil
}

// Delete は目標を削除し、削除した目標のIDを返す。
func (s *Service) Delete(ctx context.Context, userID, goalID string) (string, error) {
	goal, err := s.findOwned(ctx, userID, goalID)
	if err != nil {
		return "", err
	}

	if err := s.goalRepo.Delete(ctx, goal.ID); err != nil {
		return "", fmt.Errorf("目標の削除に失敗しました: %w", err)
	}

	return goal.ID, nil
}

// findOwned は目標を取得し、存在と所有者を検証する。
func (s *Service) findOwned(ctx context.Context, userID, goalID string) (*model.Goal, error) {
	goal, err := s.goalRepo.FindByID(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("目標の取得に失敗しました: %w", err)
	}
	if goal == nil {
		return nil, model.NewGoalNotFoundError(goalID)
	}
	if goal.OwnerID != userID {
		return nil, model.NewNotGoalOwnerError()
	}
	return goal, nil
}
