package scan

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/goalkeep/internal/model"
	"github.com/hitoshi/goalkeep/internal/notify"
)

// --- テスト用フェイク ---

// fakeGoalRepo はGoalRepositoryのインメモリ実装。
// ConditionalSetNotifiedはミューテックスで保護したcompare-and-setとして
// 動作し、並行呼び出しでも各目標の遷移は最大1回になる。
type fakeGoalRepo struct {
	mu    sync.Mutex
	goals map[string]*model.Goal

	listErr  error
	claimErr error
}

func newFakeGoalRepo(goals ...*model.Goal) *fakeGoalRepo {
	m := make(map[string]*model.Goal, len(goals))
	for _, g := range goals {
		copied := *g
		m[g.ID] = &copied
	}
	return &fakeGoalRepo{goals: m}
}

func (f *fakeGoalRepo) Insert(ctx context.Context, goal *model.Goal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *goal
	f.goals[goal.ID] = &copied
	return nil
}

func (f *fakeGoalRepo) FindByID(ctx context.Context, id string) (*model.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	if !ok {
		return nil, nil
	}
	copied := *g
	return &copied, nil
}

func (f *fakeGoalRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Goal, error) {
	return nil, nil
}

func (f *fakeGoalRepo) ListDueUnnotified(ctx context.Context, from, to time.Time) ([]*model.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var result []*model.Goal
	for _, g := range f.goals {
		if g.Status != model.GoalStatusActive || g.NotificationSent {
			continue
		}
		if g.Deadline.Before(from) || !g.Deadline.Before(to) {
			continue
		}
		copied := *g
		result = append(result, &copied)
	}
	return result, nil
}

func (f *fakeGoalRepo) ConditionalSetNotified(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return false, f.claimErr
	}
	g, ok := f.goals[id]
	if !ok || g.NotificationSent {
		return false, nil
	}
	g.NotificationSent = true
	return true, nil
}

func (f *fakeGoalRepo) ClearNotified(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.goals[id]; ok {
		g.NotificationSent = false
	}
	return nil
}

func (f *fakeGoalRepo) Update(ctx context.Context, goal *model.Goal) error {
	return f.Insert(ctx, goal)
}

func (f *fakeGoalRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.goals, id)
	return nil
}

// mockSink はNotificationSinkのテスト用モック。配送回数を数える。
type mockSink struct {
	notifyFn func(ctx context.Context, payload notify.Payload) error
	count    atomic.Int64
}

func (m *mockSink) Notify(ctx context.Context, payload notify.Payload) error {
	m.count.Add(1)
	if m.notifyFn != nil {
		return m.notifyFn(ctx, payload)
	}
	return nil
}

// spyRecorder はScanRecorderの呼び出しを記録する。
type spyRecorder struct {
	mu               sync.Mutex
	cycles           int
	candidates       int
	cycleFailures    int
	notified         int
	claimConflicts   int
	claimFailures    int
	deliveryFailures int
}

func (s *spyRecorder) RecordCycle(candidates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
	s.candidates += candidates
}
func (s *spyRecorder) RecordCycleFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycleFailures++
}
func (s *spyRecorder) RecordNotified() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified++
}
func (s *spyRecorder) RecordClaimConflict() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimConflicts++
}
func (s *spyRecorder) RecordClaimFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimFailures++
}
func (s *spyRecorder) RecordDeliveryFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveryFailures++
}
func (s *spyRecorder) RecordCycleLatency(time.Duration) {}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

var baseTime = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func activeGoal(id string, deadline time.Time) *model.Goal {
	return &model.Goal{
		ID:       id,
		OwnerID:  "user-1",
		Title:    "目標 " + id,
		Deadline: deadline,
		Status:   model.GoalStatusActive,
	}
}

// fixedClock はスキャナの時刻を固定する。
func fixedClock(s *Scanner, at time.Time) {
	s.now = func() time.Time { return at }
}

// --- スキャナのテスト ---

// TestScanner_RunOnce_NotifiesDueGoal はウィンドウ内の目標が通知されることを検証する。
func TestScanner_RunOnce_NotifiesDueGoal(t *testing.T) {
	var buf bytes.Buffer
	repo := newFakeGoalRepo(activeGoal("goal-1", baseTime.Add(2*time.Hour)))
	sink := &mockSink{}

	s := NewScanner(repo, sink, newTestLogger(&buf), nil, 24*time.Hour)
	fixedClock(s, baseTime)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := sink.count.Load(); got != 1 {
		t.Errorf("notify count = %d, want 1", got)
	}

	g, _ := repo.FindByID(context.Background(), "goal-1")
	if !g.NotificationSent {
		t.Error("NotificationSent should be true after notification")
	}
}

// TestScanner_RunOnce_SkipsGoalOutsideWindow は24時間より先の期限が対象外になることを検証する。
func TestScanner_RunOnce_SkipsGoalOutsideWindow(t *testing.T) {
	var buf bytes.Buffer
	repo := newFakeGoalRepo(activeGoal("goal-far", baseTime.Add(48*time.Hour)))
	sink := &mockSink{}

	s := NewScanner(repo, sink, newTestLogger(&buf), nil, 24*time.Hour)
	fixedClock(s, baseTime)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := sink.count.Load(); got != 0 {
		t.Errorf("notify count = %d, want 0", got)
	}
}

// TestScanner_RunOnce_NotifiesAfterTimeAdvances は時刻が進んで期限がウィンドウに
// 入った後のサイクルで通知されることを検証する。
func TestScanner_RunOnce_NotifiesAfterTimeAdvances(t *testing.T) {
	var buf bytes.Buffer
	repo := newFakeGoalRepo(activeGoal("goal-far", baseTime.Add(48*time.Hour)))
	sink := &mockSink{}

	s := NewScanner(repo, sink, newTestLogger(&buf), nil, 24*time.Hour)

	// 1回目: ウィンドウ外
	fixedClock(s, baseTime)
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := sink.count.Load(); got != 0 {
		t.Fatalf("notify count = %d, want 0 before window", got)
	}

	// 2回目: 25時間後、期限まで残り23時間
	fixedClock(s, baseTime.Add(25*time.Hour))
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := sink.count.Load(); got != 1 {
		t.Errorf("notify count = %d, want 1 after window opens", got)
	}
}

// TestScanner_RunOnce_SkipsCompletedGoal は達成済みの目標が対象外になることを検証する。
func TestScanner_RunOnce_SkipsCompletedGoal(t *testing.T) {
	var buf bytes.Buffer
	completed := activeGoal("goal-done", baseTime.Add(2*time.Hour))
	completed.Status = model.GoalStatusCompleted
	repo := newFakeGoalRepo(completed)
	sink := &mockSink{}

	s := NewScanner(repo, sink, newTestLogger(&buf), nil, 24*time.Hour)
	fixedClock(s, baseTime)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := sink.count.Load(); got != 0 {
		t.Errorf("notify count = %d, want 0", got)
	}
}

// TestScanner_RunOnce_SecondCycleNotifiesNothing は同じ目標が2回目のサイクルで
// 再通知されないことを検証する。
func TestScanner_RunOnce_SecondCycleNotifiesNothing(t *testing.T) {
	var buf bytes.Buffer
	repo := newFakeGoalRepo(activeGoal("goal-1", baseTime.Add(2*time.Hour)))
	sink := &mockSink{}

	s := NewScanner(repo, sink, newTestLogger(&buf), nil, 24*time.Hour)
	fixedClock(s, baseTime)

	for i := 0; i < 2; i++ {
		if err := s.RunOnce(context.Background()); err != nil {
			t.Fatalf("cycle %d: expected no error, got %v", i+1, err)
		}
	}

	if got := sink.count.Load(); got != 1 {
		t.Errorf("notify count = %d, want 1 (at most once)", got)
	}
}

// TestScanner_ConcurrentCycles_NotifyAtMostOnce は複数スキャナの並行実行でも
// 通知が最大1回に保たれることを検証する。
func TestScanner_ConcurrentCycles_NotifyAtMostOnce(t *testing.T) {
	var buf bytes.Buffer
	repo := newFakeGoalRepo(
		activeGoal("goal-1", baseTime.Add(2*time.Hour)),
		activeGoal("goal-2", baseTime.Add(10*time.Hour)),
	)
	sink := &mockSink{}

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		s := NewScanner(repo, sink, newTestLogger(&buf), nil, 24*time.Hour)
		fixedClock(s, baseTime)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.RunOnce(context.Background()); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		}()
	}
	wg.Wait()

	// 目標2件に対して通知は合計2回まで
	if got := sink.count.Load(); got != 2 {
		t.Errorf("notify count = %d, want 2 (one per goal)", got)
	}
}

// TestScanner_RunOnce_ClaimConflict_SkipsSilently はクレーム競合時に
// 通知せずスキップすることを検証する。
func TestScanner_RunOnce_ClaimConflict_SkipsSilently(t *testing.T) {
	var buf bytes.Buffer
	repo := newFakeGoalRepo(activeGoal("goal-1", baseTime.Add(2*time.Hour)))
	sink := &mockSink{}
	recorder := &spyRecorder{}

	s := NewScanner(repo, sink, newTestLogger(&buf), recorder, 24*time.Hour)
	fixedClock(s, baseTime)

	// 一覧取得後・クレーム前に他インスタンスが先にクレームした状況を再現
	if claimed, err := repo.ConditionalSetNotified(context.Background(), "goal-1"); err != nil || !claimed {
		t.Fatalf("precondition claim failed: claimed=%v err=%v", claimed, err)
	}

	// 一覧フィルタを迂回し、古い候補スナップショットを直接処理する
	goal := activeGoal("goal-1", baseTime.Add(2*time.Hour))
	if s.processGoal(context.Background(), goal) {
		t.Error("processGoal should not notify on claim conflict")
	}

	if got := sink.count.Load(); got != 0 {
		t.Errorf("notify count = %d, want 0", got)
	}
	if recorder.claimConflicts != 1 {
		t.Errorf("claimConflicts = %d, want 1", recorder.claimConflicts)
	}
}

// TestScanner_RunOnce_DeliveryFailure_KeepsClaim は配送失敗後もクレームが
// 維持され、再通知されないことを検証する。
func TestScanner_RunOnce_DeliveryFailure_KeepsClaim(t *testing.T) {
	var buf bytes.Buffer
	repo := newFakeGoalRepo(activeGoal("goal-1", baseTime.Add(2*time.Hour)))
	sink := &mockSink{
		notifyFn: func(ctx context.Context, payload notify.Payload) error {
			return errors.New("sink unavailable")
		},
	}
	recorder := &spyRecorder{}

	s := NewScanner(repo, sink, newTestLogger(&buf), recorder, 24*time.Hour)
	fixedClock(s, baseTime)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	g, _ := repo.FindByID(context.Background(), "goal-1")
	if !g.NotificationSent {
		t.Error("claim should stand after delivery failure")
	}
	if recorder.deliveryFailures != 1 {
		t.Errorf("deliveryFailures = %d, want 1", recorder.deliveryFailures)
	}

	// 次のサイクルでは候補に含まれず、再配送は試みられない
	before := sink.count.Load()
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := sink.count.Load(); got != before {
		t.Errorf("notify count changed from %d to %d, want unchanged", before, got)
	}
}

// TestScanner_RunOnce_QueryFailure_AbortsCycle はクエリ失敗でサイクル全体が
// 中断しエラーが返ることを検証する。
func TestScanner_RunOnce_QueryFailure_AbortsCycle(t *testing.T) {
	var buf bytes.Buffer
	repo := newFakeGoalRepo(activeGoal("goal-1", baseTime.Add(2*time.Hour)))
	repo.listErr = errors.New("connection refused")
	sink := &mockSink{}
	recorder := &spyRecorder{}

	s := NewScanner(repo, sink, newTestLogger(&buf), recorder, 24*time.Hour)
	fixedClock(s, baseTime)

	if err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	if got := sink.count.Load(); got != 0 {
		t.Errorf("notify count = %d, want 0", got)
	}
	if recorder.cycleFailures != 1 {
		t.Errorf("cycleFailures = %d, want 1", recorder.cycleFailures)
	}
}

// TestScanner_RunOnce_ClaimFailure_ContinuesOtherGoals はクレームのストア障害が
// 他の目標の処理を妨げないことを検証する。
func TestScanner_RunOnce_ClaimFailure_ContinuesOtherGoals(t *testing.T) {
	var buf bytes.Buffer
	repo := newFakeGoalRepo(activeGoal("goal-1", baseTime.Add(2*time.Hour)))
	repo.claimErr = errors.New("deadlock detected")
	sink := &mockSink{}
	recorder := &spyRecorder{}

	s := NewScanner(repo, sink, newTestLogger(&buf), recorder, 24*time.Hour)
	fixedClock(s, baseTime)

	// クレーム失敗はサイクルを中断しない
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := sink.count.Load(); got != 0 {
		t.Errorf("notify count = %d, want 0", got)
	}
	if recorder.claimFailures != 1 {
		t.Errorf("claimFailures = %d, want 1", recorder.claimFailures)
	}
	if recorder.cycles != 1 {
		t.Errorf("cycles = %d, want 1 (cycle should complete)", recorder.cycles)
	}
}

// TestScanner_RunOnce_WindowBoundaries はウィンドウ境界 [now, now+lookahead) の
// 包含関係を検証する。
func TestScanner_RunOnce_WindowBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		deadline   time.Time
		wantNotify bool
	}{
		{"期限がちょうど今", baseTime, true},
		{"期限が過去", baseTime.Add(-time.Minute), false},
		{"期限がウィンドウ終端ちょうど", baseTime.Add(24 * time.Hour), false},
		{"期限がウィンドウ終端の直前", baseTime.Add(24*time.Hour - time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			repo := newFakeGoalRepo(activeGoal("goal-1", tt.deadline))
			sink := &mockSink{}

			s := NewScanner(repo, sink, newTestLogger(&buf), nil, 24*time.Hour)
			fixedClock(s, baseTime)

			if err := s.RunOnce(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			notified := sink.count.Load() > 0
			if notified != tt.wantNotify {
				t.Errorf("notified = %v, want %v", notified, tt.wantNotify)
			}
		})
	}
}

// TestNewScanner_DefaultLookahead は0以下のlookaheadがデフォルト値になることを検証する。
func TestNewScanner_DefaultLookahead(t *testing.T) {
	var buf bytes.Buffer
	s := NewScanner(newFakeGoalRepo(), &mockSink{}, newTestLogger(&buf), nil, 0)
	if s.lookahead != DefaultLookahead {
		t.Errorf("lookahead = %v, want %v", s.lookahead, DefaultLookahead)
	}
}
