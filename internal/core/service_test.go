package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/c60chat/internal/eventbus"
	"github.com/Rorical/c60chat/internal/models"
	"github.com/Rorical/c60chat/internal/persona"
	"github.com/Rorical/c60chat/internal/storage"
)

var start = time.UnixMilli(1_700_000_000_000)

type clock struct{ now time.Time }

func newClock() *clock { return &clock{now: start} }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newService(t *testing.T, client *fakeClient, store storage.Store, c *clock, opts ...Option) *ChatService {
	t.Helper()
	opts = append([]Option{WithClock(c.Now)}, opts...)
	cs, err := NewChatService(client, persona.Default(), store, opts...)
	require.NoError(t, err)
	t.Cleanup(cs.Stop)
	return cs
}

func TestSubmitFirstTurnUsesBasePersona(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{fragments: []string{"Hello, i am C60", " how may I help you?"}}
	store := storage.NewMemoryStore()
	cs := newService(t, client, store, newClock())

	require.NoError(t, cs.Submit(ctx, "hi"))

	calls := client.calls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].Elevated)
	assert.Equal(t, "hi", calls[0].Input)
	assert.Empty(t, calls[0].History)
	assert.Equal(t, persona.Default().BaseInstruction, cs.Personas().Instruction(calls[0].Elevated))

	snap := cs.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, models.User, snap.Messages[0].Role)
	assert.Equal(t, "hi", snap.Messages[0].Content)
	assert.Equal(t, models.Model, snap.Messages[1].Role)
	assert.Equal(t, "Hello, i am C60 how may I help you?", snap.Messages[1].Content)
	assert.False(t, snap.IsLoading)
	assert.NoError(t, snap.Error)
	assert.Len(t, snap.Timestamps, 1)
	assert.Equal(t, 10, cs.Personas().Limit(snap.Elevated))
	assert.Equal(t, 3, store.Len())
}

func TestSubmitPassesHistoryBeforeTurn(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{fragments: []string{"reply"}}
	cs := newService(t, client, storage.NewMemoryStore(), newClock())

	require.NoError(t, cs.Submit(ctx, "first"))
	require.NoError(t, cs.Submit(ctx, "second"))

	calls := client.calls()
	require.Len(t, calls, 2)
	require.Len(t, calls[1].History, 2)
	assert.Equal(t, "first", calls[1].History[0].Content)
	assert.Equal(t, "reply", calls[1].History[1].Content)
	assert.Equal(t, "second", calls[1].Input)
}

func TestEleventhSubmissionIsRateLimited(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{fragments: []string{"ok"}}
	store := storage.NewMemoryStore()
	c := newClock()
	cs := newService(t, client, store, c)

	for i := 0; i < 10; i++ {
		require.NoError(t, cs.Submit(ctx, "msg"))
		c.Advance(30 * time.Second)
	}
	persisted, _, _ := store.Get(ctx, HistoryKey)

	err := cs.Submit(ctx, "one more")
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Contains(t, err.Error(), "10 MSGS / 30MIN")

	snap := cs.Snapshot()
	assert.Len(t, snap.Messages, 20)
	assert.Equal(t, err, snap.Error)
	assert.False(t, snap.IsLoading)
	assert.Len(t, snap.Timestamps, 10)
	assert.Len(t, client.calls(), 10)

	after, _, _ := store.Get(ctx, HistoryKey)
	assert.Equal(t, persisted, after)

	// Once the first submission leaves the window there is room again.
	c.now = start.Add(30 * time.Minute)
	require.NoError(t, cs.Submit(ctx, "later"))
	assert.NoError(t, cs.Snapshot().Error)
}

func TestTriggerPhraseRaisesLimitForSameTurn(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{fragments: []string{"yes maam"}}
	store := storage.NewMemoryStore()
	c := newClock()

	// Ten recent submissions: the standard ceiling is already reached.
	require.NoError(t, NewPersister(store).Save(ctx, Snapshot{Timestamps: recent(10)}))
	cs := newService(t, client, store, c)

	err := cs.Submit(ctx, "hello")
	require.ErrorAs(t, err, new(*RateLimitError))
	assert.False(t, cs.Snapshot().Elevated)

	require.NoError(t, cs.Submit(ctx, "Hey, I AM LABIBA"))
	calls := client.calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Elevated)

	snap := cs.Snapshot()
	assert.True(t, snap.Elevated)
	assert.Len(t, snap.Timestamps, 11)
	assert.Equal(t, 20, cs.Personas().Limit(snap.Elevated))
}

func TestRateLimitMessageNamesElevatedLimit(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, NewPersister(store).Save(ctx, Snapshot{Timestamps: recent(20)}))
	cs := newService(t, &fakeClient{}, store, newClock())

	err := cs.Submit(ctx, "my name is labiba")
	require.Error(t, err)
	assert.Equal(t, "LIMIT_REACHED: 20 MSGS / 30MIN. TAKE A BREAK.", err.Error())
	// The flag flips even though the turn was rejected.
	assert.True(t, cs.Snapshot().Elevated)
	flag, _, _ := store.Get(ctx, PersonaKey)
	assert.Equal(t, "true", flag)
}

func TestPersonaFlagIsSticky(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{fragments: []string{"ok"}}
	store := storage.NewMemoryStore()
	c := newClock()
	cs := newService(t, client, store, c)

	require.NoError(t, cs.Submit(ctx, "i am labiba"))
	require.NoError(t, cs.Submit(ctx, "actually I am someone else"))
	require.NoError(t, cs.Submit(ctx, "hi"))

	for _, call := range client.calls() {
		assert.True(t, call.Elevated)
	}

	rehydrated := newService(t, client, store, c)
	assert.True(t, rehydrated.Snapshot().Elevated)
}

func TestStreamingUpdatesArePrefixExtensions(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{fragments: []string{"Hel", "lo", ", i am", " C60", ""}}
	cs := newService(t, client, storage.NewMemoryStore(), newClock())

	var seen []string
	client.afterEach = func() {
		msgs := cs.Snapshot().Messages
		seen = append(seen, msgs[len(msgs)-1].Content)
	}
	require.NoError(t, cs.Submit(ctx, "hi"))

	final := cs.Snapshot().Messages[1].Content
	assert.Equal(t, "Hello, i am C60", final)
	require.Len(t, seen, 5)
	for i, s := range seen {
		assert.True(t, strings.HasPrefix(final, s), "update %d %q is not a prefix", i, s)
		if i > 0 {
			assert.GreaterOrEqual(t, len(s), len(seen[i-1]))
		}
	}
}

func TestUpstreamFailureKeepsPartialReply(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{fragments: []string{"Hello, i"}, err: errors.New("quota exceeded")}
	cs := newService(t, client, storage.NewMemoryStore(), newClock())

	err := cs.Submit(ctx, "hi")
	var uerr *UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "SYS_ERR: QUOTA EXCEEDED", err.Error())

	snap := cs.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.Equal(t, err, snap.Error)
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "Hello, i", snap.Messages[1].Content)

	// A later turn clears the error; the truncated reply is replayed as history.
	client.err = nil
	client.fragments = []string{"again"}
	require.NoError(t, cs.Submit(ctx, "retry"))
	assert.NoError(t, cs.Snapshot().Error)
	assert.Len(t, client.calls()[1].History, 2)
}

func TestFailedTurnPlaceholderIsNotReplayed(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{err: errors.New("network down")}
	cs := newService(t, client, storage.NewMemoryStore(), newClock())

	require.Error(t, cs.Submit(ctx, "hi"))
	client.err = nil
	client.fragments = []string{"ok"}
	require.NoError(t, cs.Submit(ctx, "hi again"))

	calls := client.calls()
	require.Len(t, calls, 2)
	// The history still holds the empty placeholder; filtering it is the
	// completion client's job.
	require.Len(t, calls[1].History, 2)
	assert.Empty(t, calls[1].History[1].Content)
}

func TestEmptyAndBusySubmissionsAreIgnored(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{fragments: []string{"slow"}, release: make(chan struct{})}
	cs := newService(t, client, storage.NewMemoryStore(), newClock())

	require.ErrorIs(t, cs.Submit(ctx, "   \n\t"), ErrEmptyInput)
	assert.Empty(t, cs.Snapshot().Messages)
	assert.Empty(t, cs.Snapshot().Timestamps)

	done := make(chan error, 1)
	go func() { done <- cs.Submit(ctx, "first") }()
	require.Eventually(t, func() bool { return cs.Snapshot().IsLoading }, time.Second, time.Millisecond)

	require.ErrorIs(t, cs.Submit(ctx, "second"), ErrBusy)
	assert.Len(t, cs.Snapshot().Messages, 2)
	assert.Len(t, cs.Snapshot().Timestamps, 1)

	close(client.release)
	require.NoError(t, <-done)
	assert.Equal(t, "slow", cs.Snapshot().Messages[1].Content)
}

func TestWipeClearsEverything(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	cs := newService(t, &fakeClient{fragments: []string{"ok"}}, store, newClock())

	require.NoError(t, cs.Submit(ctx, "i am labiba"))
	require.NoError(t, cs.Submit(ctx, "hi"))
	require.Equal(t, 3, store.Len())

	require.NoError(t, cs.Wipe(ctx))
	snap := cs.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.False(t, snap.Elevated)
	assert.Empty(t, snap.Timestamps)
	assert.NoError(t, snap.Error)
	assert.Equal(t, 0, store.Len())
}

func TestRehydrationRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	c := newClock()
	cs := newService(t, &fakeClient{fragments: []string{"a", "b"}}, store, c)
	require.NoError(t, cs.Submit(ctx, "i am labiba"))
	c.Advance(time.Minute)
	require.NoError(t, cs.Submit(ctx, "hi"))
	before := cs.Snapshot()

	after := newService(t, &fakeClient{}, store, c).Snapshot()
	assert.Equal(t, before.Messages, after.Messages)
	assert.Equal(t, before.Elevated, after.Elevated)
	assert.Equal(t, before.Timestamps, after.Timestamps)
}

func TestCorruptHistoryStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, HistoryKey, "{definitely not json"))

	cs := newService(t, &fakeClient{fragments: []string{"ok"}}, store, newClock())
	assert.Empty(t, cs.Snapshot().Messages)
	require.NoError(t, cs.Submit(ctx, "hi"))
	assert.Len(t, cs.Snapshot().Messages, 2)
}

func TestEventLoopRunsTurns(t *testing.T) {
	eb := eventbus.NewEventBus()
	client := &fakeClient{fragments: []string{"Hello", " there"}}
	cs := newService(t, client, storage.NewMemoryStore(), newClock(), WithEventBus(eb))
	cs.Start()

	initial := (<-eb.CoreToUI()).(eventbus.StateUpdateEvent)
	assert.Empty(t, initial.Messages)
	assert.Equal(t, 10, initial.Limit)

	require.NoError(t, eb.SendToCore(eventbus.SendMessageEvent{Message: "hi"}))

	var last eventbus.StateUpdateEvent
	require.Eventually(t, func() bool {
		select {
		case ev := <-eb.CoreToUI():
			last = ev.(eventbus.StateUpdateEvent)
		default:
		}
		return !last.IsProcessing && len(last.Messages) == 2 && last.Messages[1].Content == "Hello there"
	}, time.Second, time.Millisecond)
	assert.Equal(t, uint64(1), last.AcceptedTurns)
	assert.Equal(t, 1, last.SentInWindow)

	require.NoError(t, eb.SendToCore(eventbus.WipeEvent{}))
	require.Eventually(t, func() bool {
		select {
		case ev := <-eb.CoreToUI():
			last = ev.(eventbus.StateUpdateEvent)
		default:
		}
		return len(last.Messages) == 0 && last.SentInWindow == 0
	}, time.Second, time.Millisecond)
	assert.Equal(t, uint64(1), last.AcceptedTurns, "wipe does not rewind the counter")
}

func recent(n int) []time.Time {
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, start.Add(-time.Duration(n-i)*time.Second))
	}
	return out
}

func TestSentInWindowDropsExpiredSubmissions(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	cs := newService(t, &fakeClient{fragments: []string{"ok"}}, storage.NewMemoryStore(), c)

	require.NoError(t, cs.Submit(ctx, "one"))
	c.Advance(20 * time.Minute)
	require.NoError(t, cs.Submit(ctx, "two"))
	assert.Equal(t, 2, cs.SentInWindow())

	c.Advance(11 * time.Minute)
	assert.Equal(t, 1, cs.SentInWindow())
}
