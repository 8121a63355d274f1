package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/goalkeep/internal/model"
)

// PostgresGoalRepoはGoalRepositoryインターフェースを満たすことを検証
func TestPostgresGoalRepo_ImplementsInterface(t *testing.T) {
	var _ GoalRepository = (*PostgresGoalRepo)(nil)
}

// NewPostgresGoalRepoが正しく初期化されることを検証
func TestNewPostgresGoalRepo_Initializes(t *testing.T) {
	repo := NewPostgresGoalRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Goalモデルのフィールドが正しく構築されることを検証
func TestPostgresGoalRepo_GoalModel_Fields(t *testing.T) {
	now := time.Now()
	goal := &model.Goal{
		ID:         "goal-id-1",
		OwnerID:    "user-id-1",
		Title:      "テスト目標",
		Deadline:   now.Add(48 * time.Hour),
		TargetDate: now.Add(24 * time.Hour),
		Status:     model.GoalStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if goal.ID != "goal-id-1" {
		t.Errorf("goal.ID = %q, want %q", goal.ID, "goal-id-1")
	}
	if goal.Status != model.GoalStatusActive {
		t.Errorf("goal.Status = %q, want %q", goal.Status, model.GoalStatusActive)
	}
	if goal.NotificationSent {
		t.Error("notification_sent should be false by default")
	}
}
