package notification

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Push push-уведомление получателю
type Push struct {
	Template      string
	Data          map[string]any
	Receiver      int64
	ChatID        *int64
	TemplateObjID string
	Text          string
}

// Pusher отправка push-уведомлений
type Pusher interface {
	PublishEvent(ctx context.Context, push Push) error
}

// MessageSender часть API бота, нужная для отправки сообщений
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramPusher доставляет push-уведомления сообщением в Telegram
type TelegramPusher struct {
	sender MessageSender
	logger *zap.Logger
}

// NewTelegramBot создаёт клиента бота без обращения к getMe при старте
func NewTelegramBot(token string) (*bot.Bot, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return b, nil
}

func NewTelegramPusher(sender MessageSender, logger *zap.Logger) *TelegramPusher {
	return &TelegramPusher{sender: sender, logger: logger}
}

func (p *TelegramPusher) PublishEvent(ctx context.Context, push Push) error {
	if push.ChatID == nil {
		p.logger.Debug("Receiver has no telegram chat, push skipped",
			zap.Int64("receiver", push.Receiver),
			zap.String("template", push.Template))
		return nil
	}

	_, err := p.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *push.ChatID,
		Text:   push.Text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}

// LogPusher пишет push-уведомления в лог, когда бот не настроен
type LogPusher struct {
	logger *zap.Logger
}

func NewLogPusher(logger *zap.Logger) *LogPusher {
	return &LogPusher{logger: logger}
}

func (p *LogPusher) PublishEvent(_ context.Context, push Push) error {
	p.logger.Info("Push (not sent, pusher disabled)",
		zap.Int64("receiver", push.Receiver),
		zap.String("template", push.Template),
		zap.String("template_obj_id", push.TemplateObjID))
	return nil
}
