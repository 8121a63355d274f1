package notify

import (
	"context"
	"log/slog"
)

// FallbackSink はプライマリSinkの配送失敗時にフォールバックSinkへ
// 配送を委譲するSink実装。ストア障害時でも通知内容が
// 少なくともログに残ることを保証する。
type FallbackSink struct {
	primary  Sink
	fallback Sink
	logger   *slog.Logger
}

// NewFallbackSink はFallbackSinkを生成する。
func NewFallbackSink(primary, fallback Sink, logger *slog.Logger) *FallbackSink {
	return &FallbackSink{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Notify はプライマリへ配送し、失敗時はフォールバックへ委譲する。
// プライマリの失敗はログに記録する。両方失敗した場合のみエラーを返す。
func (s *FallbackSink) Notify(ctx context.Context, p Payload) error {
	err := s.primary.Notify(ctx, p)
	if err == nil {
		return nil
	}

	s.logger.Warn("プライマリSinkへの配送に失敗したためフォールバックします",
		slog.String("goal_id", p.GoalID),
		slog.String("error", err.Error()),
	)

	return s.fallback.Notify(ctx, p)
}

// compile-time interface check
var _ Sink = (*FallbackSink)(nil)
