package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/goalkeep/internal/model"
	"github.com/hitoshi/goalkeep/internal/repository"
)

// StoreSink は通知をアプリ内通知レコードとして永続化するSink実装。
// ユーザーはAPI経由で通知一覧を取得できる。
type StoreSink struct {
	notificationRepo repository.NotificationRepository
}

// NewStoreSink はStoreSinkを生成する。
func NewStoreSink(notificationRepo repository.NotificationRepository) *StoreSink {
	return &StoreSink{notificationRepo: notificationRepo}
}

// Notify は通知レコードを作成する。
// 挿入失敗はエラーとして返すが、呼び出し側でクレームが取り消されることはない。
func (s *StoreSink) Notify(ctx context.Context, p Payload) error {
	n := &model.Notification{
		ID:     uuid.New().String(),
		UserID: p.OwnerID,
		GoalID: p.GoalID,
		Title:  fmt.Sprintf("「%s」の期限が近づいています", p.Title),
		Body: fmt.Sprintf("期限: %s",
			p.Deadline.Format(time.RFC3339)),
		Read: false,
	}

	if err := s.notificationRepo.Insert(ctx, n); err != nil {
		return fmt.Errorf("通知レコードの作成に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Sink = (*StoreSink)(nil)
