package scan

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DeadlineScannerService はスキャンサイクルの実行インターフェース。
type DeadlineScannerService interface {
	// RunOnce は1回のスキャンサイクルを実行する。
	RunOnce(ctx context.Context) error
}

// Scheduler は固定間隔のティッカーでスキャンサイクルを繰り返し実行する。
// リクエスト処理とは独立したタイマーで駆動され、プロセスの起動シーケンスが
// 1回だけ構築して所有する。グローバルなタイマー変数は持たない。
type Scheduler struct {
	scanner DeadlineScannerService
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(scanner DeadlineScannerService, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scanner: scanner,
		logger:  logger,
	}
}

// Start はスケジューラをバックグラウンドで起動する。
// 起動直後に1回サイクルを実行し、以後はinterval間隔で実行する。
// 親コンテキストのキャンセルまたはStop呼び出しで停止する。
// 既に起動済みの場合は何もしない。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, interval, s.done)
}

// Stop はスケジューラを停止し、実行中のループが終了するまで待機する。
// 実行中のサイクルは短時間かつ冪等であるため強制中断は行わない。
// 未起動の場合は何もしない。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// run はティッカー駆動のメインループ。
func (s *Scheduler) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("期限スキャンスケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.scanner.RunOnce(ctx); err != nil {
		s.logger.Error("スキャンサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("期限スキャンスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.scanner.RunOnce(ctx); err != nil {
				s.logger.Error("スキャンサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
