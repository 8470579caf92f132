package notify

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSink struct {
	mu    sync.Mutex
	texts []string
	fails int // fail this many sends before succeeding
}

func (r *recordingSink) Send(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fails > 0 {
		r.fails--
		return errors.New("unavailable")
	}
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingSink) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func testConfig(capacity int, o Overflow) QueueConfig {
	return QueueConfig{Capacity: capacity, Overflow: o, Attempts: 3}
}

func TestQueueDropOldest(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.WarnLevel)
	sink := &recordingSink{}
	q := NewQueue(sink, testConfig(2, DropOldest), zap.New(core))
	ctx := context.Background()

	for _, s := range []string{"a", "b", "c", "d"} {
		require.NoError(t, q.Notify(ctx, s))
	}
	assert.Equal(t, 2, q.Len())
	assert.EqualValues(t, 2, q.Dropped())
	assert.Equal(t, 2, logs.FilterMessage("notification dropped").Len())

	q.Flush(ctx)
	assert.Equal(t, []string{"c", "d"}, sink.Texts())
}

func TestQueueReject(t *testing.T) {
	t.Parallel()
	q := NewQueue(&recordingSink{}, testConfig(1, Reject), nil)
	ctx := context.Background()

	require.NoError(t, q.Notify(ctx, "a"))
	assert.ErrorIs(t, q.Notify(ctx, "b"), ErrQueueFull)
	assert.EqualValues(t, 1, q.Dropped())
	assert.Equal(t, 1, q.Len())
}

func TestQueueBlockHonoursContext(t *testing.T) {
	t.Parallel()
	q := NewQueue(&recordingSink{}, testConfig(1, Block), nil)
	require.NoError(t, q.Notify(context.Background(), "a"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Notify(ctx, "b"), context.DeadlineExceeded)
	assert.Zero(t, q.Dropped())
}

func TestQueueBlockEnqueuesWithRoomAfterCancel(t *testing.T) {
	t.Parallel()
	q := NewQueue(&recordingSink{}, testConfig(2, Block), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 20; i++ {
		q.Flush(context.Background())
		require.NoError(t, q.Notify(ctx, "a"))
	}
	assert.Equal(t, 1, q.Len())
}

func TestQueueRunDeliversInOrder(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	q := NewQueue(sink, testConfig(8, Block), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()
	for _, s := range []string{"one", "two", "three"} {
		require.NoError(t, q.Notify(ctx, s))
	}

	require.Eventually(t, func() bool { return len(sink.Texts()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"one", "two", "three"}, sink.Texts())
	assert.EqualValues(t, 3, q.Delivered())

	cancel()
	<-done
}

func TestQueueRetries(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{fails: 2}
	q := NewQueue(sink, testConfig(4, DropOldest), nil)
	require.NoError(t, q.Notify(context.Background(), "retry me"))
	q.Flush(context.Background())
	assert.Equal(t, []string{"retry me"}, sink.Texts())
	assert.Zero(t, q.Failed())

	sink = &recordingSink{fails: 5}
	q = NewQueue(sink, testConfig(4, DropOldest), nil)
	require.NoError(t, q.Notify(context.Background(), "lost"))
	q.Flush(context.Background())
	assert.Empty(t, sink.Texts())
	assert.EqualValues(t, 1, q.Failed())
}

func TestParseOverflow(t *testing.T) {
	t.Parallel()
	for _, o := range []Overflow{DropOldest, Block, Reject} {
		got, err := ParseOverflow(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
	got, err := ParseOverflow("")
	require.NoError(t, err)
	assert.Equal(t, DropOldest, got)
	_, err = ParseOverflow("spill")
	assert.Error(t, err)
}

func TestConsoleAndMulti(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	rec := &recordingSink{fails: 1}
	m := Multi{NewConsoleWriter(&buf), rec}

	err := m.Send(context.Background(), "hello")
	assert.Error(t, err)
	assert.Equal(t, "hello\n\n", buf.String())

	require.NoError(t, m.Send(context.Background(), "again"))
	assert.Equal(t, []string{"again"}, rec.Texts())
}

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegramSink(t *testing.T) {
	t.Parallel()
	bot := &fakeBot{}
	tg := NewTelegramSender(bot, 42)

	require.NoError(t, tg.Send(context.Background(), "Bot Status"))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Equal(t, "Bot Status", bot.sent[0].Text)

	bot.err = errors.New("forbidden")
	assert.ErrorContains(t, tg.Send(context.Background(), "x"), "forbidden")
}
