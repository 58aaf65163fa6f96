package notify

import (
	"context"
	"fmt"

	"microearn/internal/model"
	"microearn/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type TelegramConfig struct {
	BotToken     string  `mapstructure:"botToken"`
	AdminChatIDs []int64 `mapstructure:"adminChatIDs"`
	Debug        bool    `mapstructure:"debug"`
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram forwards withdrawal events to the admin chats. Publish only
// enqueues; Run does the sending.
type Telegram struct {
	bot     sender
	chatIDs []int64
	queue   chan model.Event
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}
	bot.Debug = cfg.Debug

	return newTelegram(bot, cfg.AdminChatIDs), nil
}

func newTelegram(bot sender, chatIDs []int64) *Telegram {
	return &Telegram{
		bot:     bot,
		chatIDs: chatIDs,
		queue:   make(chan model.Event, 64),
	}
}

func (t *Telegram) Publish(event model.Event) {
	if event.Type != model.EventWithdrawalCreated && event.Type != model.EventWithdrawalUpdated {
		return
	}

	select {
	case t.queue <- event:
	default:
		logger.Named("telegram").Warn("telegram queue full, dropping notification",
			zap.String("type", string(event.Type)))
	}
}

func (t *Telegram) Run(ctx context.Context) {
	for {
		select {
		case event := <-t.queue:
			t.send(event)
		case <-ctx.Done():
			return
		}
	}
}

func (t *Telegram) send(event model.Event) {
	text, ok := withdrawalMessage(event)
	if !ok {
		return
	}

	for _, chatID := range t.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := t.bot.Send(msg); err != nil {
			logger.Named("telegram").Error("failed to send admin notification",
				zap.Int64("chat_id", chatID),
				zap.Error(err))
		}
	}
}

func withdrawalMessage(event model.Event) (string, bool) {
	request, ok := event.Payload.(model.WithdrawalRequest)
	if !ok {
		return "", false
	}

	switch event.Type {
	case model.EventWithdrawalCreated:
		return fmt.Sprintf("New withdrawal request %s\nUser: %s (%s)\nAmount: ₹%d via %s\nDetails: %s",
			request.ID, request.UserName, request.UserPhone, request.Amount, request.Method, request.Details), true
	case model.EventWithdrawalUpdated:
		return fmt.Sprintf("Withdrawal %s for %s is now %s (₹%d)",
			request.ID, request.UserName, request.Status, request.Amount), true
	}
	return "", false
}
