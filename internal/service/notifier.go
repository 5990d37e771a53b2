package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/grand-thief-cash/voltify/infra/application/components/logging"
	"github.com/grand-thief-cash/voltify/infra/application/core"
	"github.com/grand-thief-cash/voltify/internal/consts"
	"github.com/grand-thief-cash/voltify/internal/telegram"
)

// Notifier 推送到预先配置的单个会话; 返回的错误调用方只记录不传播
type Notifier interface {
	NotifyCreated(ctx context.Context, title, description string) error
	NotifyCompleted(ctx context.Context, title, description string) error
	NotifyDigest(ctx context.Context, summary string) error
}

type NotificationService struct {
	*core.BaseComponent
	Sender telegram.Sender `infra:"dep:telegram_client"`

	chatID string
}

func NewNotificationService(chatID string) *NotificationService {
	return &NotificationService{
		BaseComponent: core.NewBaseComponent(consts.COMP_SVC_NOTIFY),
		chatID:        chatID,
	}
}

func (s *NotificationService) NotifyCreated(ctx context.Context, title, description string) error {
	return s.send(ctx, string(EventTaskCreated), fmt.Sprintf(consts.MsgTaskCreatedFmt, title, description), true)
}

func (s *NotificationService) NotifyCompleted(ctx context.Context, title, description string) error {
	return s.send(ctx, string(EventTaskCompleted), fmt.Sprintf(consts.MsgTaskCompletedFmt, title, description), true)
}

func (s *NotificationService) NotifyDigest(ctx context.Context, summary string) error {
	return s.send(ctx, string(EventDigest), fmt.Sprintf(consts.MsgDigestFmt, summary), true)
}

// SendText 纯文本, ping-bot 使用
func (s *NotificationService) SendText(ctx context.Context, text string) error {
	return s.send(ctx, "text", text, false)
}

func (s *NotificationService) send(ctx context.Context, kind, text string, markdown bool) error {
	if s.Sender == nil {
		return &NotificationError{Kind: kind, Err: fmt.Errorf("telegram sender not configured")}
	}
	if err := s.Sender.SendMessage(ctx, s.chatID, text, markdown); err != nil {
		return &NotificationError{Kind: kind, Err: err}
	}
	logging.Debug(ctx, "notification sent", zap.String("kind", kind))
	return nil
}
