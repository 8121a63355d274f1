package notify

import (
	"context"
	"log/slog"
)

// LogSink は通知をログに記録するSink実装。
// 外部配送チャネルを持たない環境でのデフォルト実装。
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink はLogSinkを生成する。
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify は通知内容をログに出力する。失敗しない。
func (s *LogSink) Notify(ctx context.Context, p Payload) error {
	s.logger.Info("目標の期限が近づいています",
		slog.String("goal_id", p.GoalID),
		slog.String("owner_id", p.OwnerID),
		slog.String("title", p.Title),
		slog.Time("deadline", p.Deadline),
	)
	return nil
}

// compile-time interface check
var _ Sink = (*LogSink)(nil)
