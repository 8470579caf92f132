package operator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/futuresbot/runner"
)

type fakeLoop struct {
	mu   sync.Mutex
	runs int
	halt chan struct{} // closing it makes Run return ErrHalted
}

func newFakeLoop() *fakeLoop { return &fakeLoop{halt: make(chan struct{})} }

func (f *fakeLoop) Run(ctx context.Context) error {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil
	case <-f.halt:
		return runner.ErrHalted
	}
}

func (f *fakeLoop) Status() runner.Status {
	return runner.Status{Bankroll: 100, Available: 99, DailyLoss: 1, TradesToday: 3}
}

func (f *fakeLoop) Runs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

func TestServiceStartStop(t *testing.T) {
	t.Parallel()
	loop := newFakeLoop()
	svc := NewService(loop, nil)
	ctx := context.Background()

	assert.False(t, svc.Stop(), "nothing to stop yet")

	started, err := svc.Start(ctx)
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, svc.Running())
	assert.True(t, svc.Status().Running)

	started, err = svc.Start(ctx)
	require.NoError(t, err)
	assert.False(t, started)

	assert.True(t, svc.Stop())
	require.NoError(t, svc.Wait(ctx))
	assert.False(t, svc.Running())
	assert.False(t, svc.Stop())
	assert.Contains(t, svc.StatusText(), "Running: false")
	assert.Contains(t, svc.StatusText(), "Trades Today: 3")

	started, err = svc.Start(ctx)
	require.NoError(t, err)
	assert.True(t, started, "restart after stop")
	svc.Stop()
	require.NoError(t, svc.Wait(ctx))
	assert.Equal(t, 2, loop.Runs())
}

func TestServiceRecordsHalt(t *testing.T) {
	t.Parallel()
	loop := newFakeLoop()
	svc := NewService(loop, nil)

	_, err := svc.Start(context.Background())
	require.NoError(t, err)
	close(loop.halt)

	assert.ErrorIs(t, svc.Wait(context.Background()), runner.ErrHalted)
	assert.False(t, svc.Running())
}

func TestServiceStartCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started, err := NewService(newFakeLoop(), nil).Start(ctx)
	assert.False(t, started)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeController struct {
	running  bool
	startErr error
}

func (f *fakeController) Start(context.Context) (bool, error) {
	if f.startErr != nil {
		return false, f.startErr
	}
	if f.running {
		return false, nil
	}
	f.running = true
	return true, nil
}

func (f *fakeController) Stop() bool {
	was := f.running
	f.running = false
	return was
}

func (f *fakeController) StatusText() string { return "Bot Status" }

func TestHandleCommands(t *testing.T) {
	t.Parallel()
	ctrl := &fakeController{}
	bot := NewTelegramBot(nil, ctrl, 0, nil)
	ctx := context.Background()

	steps := []struct {
		command string
		want    string
	}{
		{"stop", "Bot is already stopped!"},
		{"start", "Bot started!"},
		{"start", "Bot is already running!"},
		{"status", "Bot Status"},
		{"STOP", "Bot stopped!"},
		{"help", helpText},
		{"buy", "Unknown command. Try /help"},
	}
	for _, s := range steps {
		assert.Equal(t, s.want, bot.Handle(ctx, s.command), s.command)
	}

	ctrl.startErr = errors.New("feed missing")
	assert.Equal(t, "Could not start: feed missing", bot.Handle(ctx, "start"))
}

type fakeBotAPI struct {
	updates chan tgbotapi.Update
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	stopped bool
}

func (f *fakeBotAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeBotAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func (f *fakeBotAPI) Sent() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func command(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 7,
		Text:      text,
		Chat:      &tgbotapi.Chat{ID: chatID},
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func TestTelegramBotRun(t *testing.T) {
	t.Parallel()
	api := &fakeBotAPI{updates: make(chan tgbotapi.Update, 4)}
	bot := NewTelegramBot(api, &fakeController{}, 42, nil)

	api.updates <- command(42, "/start")
	api.updates <- command(99, "/stop") // foreign chat
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 42}}}
	api.updates <- command(42, "/status")
	close(api.updates)

	require.NoError(t, bot.Run(context.Background()))

	sent := api.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, int64(42), sent[0].ChatID)
	assert.Equal(t, "Bot started!", sent[0].Text)
	assert.Equal(t, 7, sent[0].ReplyToMessageID)
	assert.Equal(t, "Bot Status", sent[1].Text)
	assert.True(t, api.stopped)
}

func TestTelegramBotStopsOnCancel(t *testing.T) {
	t.Parallel()
	api := &fakeBotAPI{updates: make(chan tgbotapi.Update)}
	bot := NewTelegramBot(api, &fakeController{}, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
}
