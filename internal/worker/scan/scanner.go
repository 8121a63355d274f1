// Package scan は目標期限のバックグラウンドスキャン処理を提供する。
// スケジューラとスキャナを含み、期限接近中の目標を検出して
// ちょうど1回だけ通知することを保証する。
package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/goalkeep/internal/metrics"
	"github.com/hitoshi/goalkeep/internal/model"
	"github.com/hitoshi/goalkeep/internal/notify"
	"github.com/hitoshi/goalkeep/internal/repository"
)

// DefaultLookahead は期限接近と判定するデフォルトの先読みウィンドウ幅。
const DefaultLookahead = 24 * time.Hour

// Scanner は1回のスキャンサイクルを実行する。
// クレームはストア側のcompare-and-setで行うため、複数インスタンスが
// 並行実行しても各目標の通知は最大1回に保たれる。
type Scanner struct {
	goalRepo  repository.GoalRepository
	sink      notify.Sink
	logger    *slog.Logger
	recorder  metrics.ScanRecorder
	lookahead time.Duration

	// テストで時刻を固定するためのフック。通常はtime.Now。
	now func() time.Time
}

// NewScanner はScannerの新しいインスタンスを生成する。
// lookaheadが0以下の場合はDefaultLookahead（24時間）を使用する。
// recorderはnilを許容する（メトリクス収集なしで動作する）。
func NewScanner(
	goalRepo repository.GoalRepository,
	sink notify.Sink,
	logger *slog.Logger,
	recorder metrics.ScanRecorder,
	lookahead time.Duration,
) *Scanner {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Scanner{
		goalRepo:  goalRepo,
		sink:      sink,
		logger:    logger,
		recorder:  recorder,
		lookahead: lookahead,
		now:       time.Now,
	}
}

// RunOnce は1回のスキャンサイクルを実行する。
// ウィンドウ [now, now+lookahead) 内に期限を迎えるActiveかつ未通知の
// 目標を取得し、目標ごとにアトミックにクレームしてから通知を配送する。
//
// クエリ失敗はサイクル全体を中断してエラーを返す（次のサイクルで再試行）。
// 目標単位のクレーム失敗・配送失敗はその目標をスキップして継続する。
// 配送失敗後もクレームは取り消さない（最大1回配送のポリシー）。
func (s *Scanner) RunOnce(ctx context.Context) error {
	start := s.now()
	windowEnd := start.Add(s.lookahead)

	goals, err := s.goalRepo.ListDueUnnotified(ctx, start, windowEnd)
	if err != nil {
		s.recorder.RecordCycleFailure()
		return err
	}

	if len(goals) == 0 {
		s.logger.Info("期限接近中の目標はありません")
		s.recorder.RecordCycle(0)
		s.recorder.RecordCycleLatency(time.Since(start))
		return nil
	}

	s.logger.Info("スキャンサイクルを開始します",
		slog.Int("candidate_count", len(goals)),
		slog.Time("window_start", start),
		slog.Time("window_end", windowEnd),
	)

	notified := 0
	for _, goal := range goals {
		if s.processGoal(ctx, goal) {
			notified++
		}
	}

	duration := time.Since(start)
	s.recorder.RecordCycle(len(goals))
	s.recorder.RecordCycleLatency(duration)
	s.logger.Info("スキャンサイクルが完了しました",
		slog.Int("candidate_count", len(goals)),
		slog.Int("notified_count", notified),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// processGoal は1件の目標に対するクレームと通知配送を行う。
// 通知を配送した場合にtrueを返す。
func (s *Scanner) processGoal(ctx context.Context, goal *model.Goal) bool {
	claimed, err := s.goalRepo.ConditionalSetNotified(ctx, goal.ID)
	if err != nil {
		s.recorder.RecordClaimFailure()
		s.logger.Error("通知クレームに失敗しました",
			slog.String("goal_id", goal.ID),
			slog.String("error", err.Error()),
		)
		return false
	}
	if !claimed {
		// 他サイクルまたは他インスタンスがクレーム済み。通知しない。
		s.recorder.RecordClaimConflict()
		return false
	}

	payload := notify.Payload{
		GoalID:   goal.ID,
		OwnerID:  goal.OwnerID,
		Title:    goal.Title,
		Deadline: goal.Deadline,
	}

	if err := s.sink.Notify(ctx, payload); err != nil {
		// クレームは取り消さない。この目標は再通知されない。
		s.recorder.RecordDeliveryFailure()
		s.logger.Error("通知の配送に失敗しました",
			slog.String("goal_id", goal.ID),
			slog.String("title", goal.Title),
			slog.String("error", err.Error()),
		)
		return false
	}

	s.recorder.RecordNotified()
	s.logger.Info("期限接近通知を配送しました",
		slog.String("goal_id", goal.ID),
		slog.String("owner_id", goal.OwnerID),
		slog.Time("deadline", goal.Deadline),
	)

	return true
}

// nopRecorder はメトリクス収集を行わないScanRecorder実装。
type nopRecorder struct{}

func (nopRecorder) RecordCycle(int)                  {}
func (nopRecorder) RecordCycleFailure()              {}
func (nopRecorder) RecordNotified()                  {}
func (nopRecorder) RecordClaimConflict()             {}
func (nopRecorder) RecordClaimFailure()              {}
func (nopRecorder) RecordDeliveryFailure()           {}
func (nopRecorder) RecordCycleLatency(time.Duration) {}
