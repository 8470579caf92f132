package operator

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// BotAPI is the part of *tgbotapi.BotAPI the command bot uses.
type BotAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Controller is what the bot commands act on.
type Controller interface {
	Start(ctx context.Context) (bool, error)
	Stop() bool
	StatusText() string
}

const helpText = "Commands:\n/start - start trading\n/stop - stop after the current tick\n/status - bankroll, daily loss and position"

// TelegramBot maps chat commands onto a Controller.
type TelegramBot struct {
	api    BotAPI
	ctrl   Controller
	chatID int64 // only this chat is served; 0 serves any chat
	log    *zap.Logger
}

func NewTelegramBot(api BotAPI, ctrl Controller, chatID int64, log *zap.Logger) *TelegramBot {
	if log == nil {
		log = zap.NewNop()
	}
	return &TelegramBot{api: api, ctrl: ctrl, chatID: chatID, log: log}
}

// Run long-polls for updates until ctx is done.
func (b *TelegramBot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, up)
		}
	}
}

func (b *TelegramBot) handleUpdate(ctx context.Context, up tgbotapi.Update) {
	msg := up.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}
	if b.chatID != 0 && msg.Chat.ID != b.chatID {
		b.log.Warn("command from unknown chat ignored", zap.Int64("chat_id", msg.Chat.ID), zap.String("command", msg.Command()))
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, b.Handle(ctx, msg.Command()))
	reply.ReplyToMessageID = msg.MessageID
	if _, err := b.api.Send(reply); err != nil {
		b.log.Error("telegram reply", zap.Error(err))
	}
}

// Handle executes one command and returns the reply text.
func (b *TelegramBot) Handle(ctx context.Context, command string) string {
	switch strings.ToLower(command) {
	case "start":
		started, err := b.ctrl.Start(ctx)
		switch {
		case err != nil:
			return fmt.Sprintf("Could not start: %v", err)
		case started:
			return "Bot started!"
		}
		return "Bot is already running!"
	case "stop":
		if b.ctrl.Stop() {
			return "Bot stopped!"
		}
		return "Bot is already stopped!"
	case "status":
		return b.ctrl.StatusText()
	case "help":
		return helpText
	}
	return "Unknown command. Try /help"
}
