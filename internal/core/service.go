package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rorical/c60chat/internal/completion"
	"github.com/Rorical/c60chat/internal/eventbus"
	"github.com/Rorical/c60chat/internal/models"
	"github.com/Rorical/c60chat/internal/persona"
	"github.com/Rorical/c60chat/internal/ratelimit"
	"github.com/Rorical/c60chat/internal/storage"
)

type ChatService struct {
	client   completion.Client
	personas *persona.Catalogue
	limiter  *ratelimit.Limiter
	persist  *Persister
	state    *ChatState
	eventBus *eventbus.EventBus
	now      func() time.Time
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// persistMu orders snapshot writes against wipes.
	persistMu sync.Mutex

	turnMu    sync.Mutex
	streaming *turn // set while a reply streams
}

type Option func(*ChatService)

// WithClock replaces time.Now for the service and its rate limiter.
func WithClock(now func() time.Time) Option {
	return func(cs *ChatService) {
		cs.now = now
	}
}

// WithEventBus makes the service push snapshots to the UI and serve UI
// events once started. Without one the service is driven through Submit/Wipe.
func WithEventBus(eb *eventbus.EventBus) Option {
	return func(cs *ChatService) {
		cs.eventBus = eb
	}
}

// NewChatService rehydrates the session from store and returns a service
// ready to run turns.
func NewChatService(client completion.Client, personas *persona.Catalogue, store storage.Store, opts ...Option) (*ChatService, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cs := &ChatService{
		client:   client,
		personas: personas,
		persist:  NewPersister(store),
		state:    NewChatState(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(cs)
	}
	cs.limiter = ratelimit.NewLimiter(personas.Limits.Window, ratelimit.WithClock(cs.now))

	snap, err := cs.persist.Load(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("rehydrating session: %w", err)
	}
	cs.state.Restore(snap)
	return cs, nil
}

// Start runs the core logic in a goroutine
func (cs *ChatService) Start() {
	// Send initial state to UI immediately
	cs.pushStateToUI()
	cs.wg.Add(1)
	go func() {
		defer cs.wg.Done()
		cs.eventLoop()
	}()
}

// Stop cancels the event loop and any reply still streaming, and waits for them.
func (cs *ChatService) Stop() {
	cs.cancel()
	cs.wg.Wait()
}

func (cs *ChatService) eventLoop() {
	if cs.eventBus == nil {
		return
	}
	for {
		select {
		case <-cs.ctx.Done():
			return
		case event, ok := <-cs.eventBus.UIToCore():
			if !ok {
				return
			}
			cs.handleUIEvent(event)
		}
	}
}

func (cs *ChatService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.SendMessageEvent:
		t, err := cs.begin(e.Message)
		if err != nil {
			log.Debug().Err(err).Msg("Submission not started")
			return
		}
		cs.wg.Add(1)
		go func() {
			defer cs.wg.Done()
			_ = cs.stream(cs.ctx, t)
		}()
	case eventbus.WipeEvent:
		if err := cs.Wipe(cs.ctx); err != nil {
			log.Error().Err(err).Msg("Failed to wipe session")
		}
	}
}

// turn carries what the streaming half of a submission needs.
type turn struct {
	placeholderID string
	history       []models.Message
	input         string
	elevated      bool
	epoch         int
	cancel        context.CancelFunc
}

// Submit runs one complete turn and returns once the reply has finished
// streaming. It returns ErrEmptyInput, ErrBusy, a *RateLimitError or an
// *UpstreamError; the last two are also recorded as the state's error.
func (cs *ChatService) Submit(ctx context.Context, input string) error {
	t, err := cs.begin(input)
	if err != nil {
		return err
	}
	return cs.stream(ctx, t)
}

// begin validates a submission and hands it to ChatState.StartTurn, which
// applies persona activation and the rate limit and appends the user message
// and reply placeholder.
func (cs *ChatService) begin(input string) (*turn, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	adm, err := cs.state.StartTurn(TurnRequest{
		Input:   input,
		Trigger: cs.personas.Triggered(input),
		Limiter: cs.limiter,
		Limit:   cs.personas.Limit,
	})
	if adm.Activated {
		log.Info().Msg("Elevated persona activated")
	}
	var rateErr *RateLimitError
	switch {
	case errors.As(err, &rateErr):
		log.Info().Int("limit", rateErr.Limit).Int("count", len(adm.Decision.Kept)).Msg("Submission rate limited")
		cs.commit(adm.Epoch)
		return nil, err
	case err != nil:
		return nil, err
	}
	cs.commit(adm.Epoch)

	log.Debug().
		Str("turn_id", adm.PlaceholderID).
		Bool("elevated", adm.Elevated).
		Int("history", len(adm.History)).
		Msg("Turn started")

	return &turn{
		placeholderID: adm.PlaceholderID,
		history:       adm.History,
		input:         input,
		elevated:      adm.Elevated,
		epoch:         adm.Epoch,
	}, nil
}

// track makes t cancellable from Wipe while it streams. A turn whose
// session was already wiped is cancelled at once.
func (cs *ChatService) track(t *turn) {
	cs.turnMu.Lock()
	defer cs.turnMu.Unlock()
	if cs.state.Epoch() != t.epoch {
		t.cancel()
		return
	}
	cs.streaming = t
}

func (cs *ChatService) untrack(t *turn) {
	cs.turnMu.Lock()
	defer cs.turnMu.Unlock()
	if cs.streaming == t {
		cs.streaming = nil
	}
}

// stream feeds reply fragments into the placeholder. Each update replaces
// the placeholder content with everything received so far.
func (cs *ChatService) stream(ctx context.Context, t *turn) error {
	ctx, t.cancel = context.WithCancel(ctx)
	defer t.cancel()
	cs.track(t)
	defer cs.untrack(t)

	var acc strings.Builder
	var streamErr error

	req := completion.Request{
		History:  t.history,
		Input:    t.input,
		Elevated: t.elevated,
	}
	for fragment, err := range cs.client.Stream(ctx, req) {
		if err != nil {
			streamErr = err
			break
		}
		acc.WriteString(fragment)
		if cs.state.ReplaceContent(t.placeholderID, acc.String()) {
			cs.commit(t.epoch)
		}
	}

	if streamErr != nil {
		uerr := &UpstreamError{Err: streamErr}
		if cs.state.FinishProcessingWithError(t.epoch, uerr) {
			log.Error().Err(streamErr).Str("turn_id", t.placeholderID).Int("received", acc.Len()).Msg("Completion failed")
			cs.commit(t.epoch)
		} else {
			log.Debug().Err(streamErr).Str("turn_id", t.placeholderID).Msg("Turn abandoned after wipe")
		}
		return uerr
	}

	log.Debug().Str("turn_id", t.placeholderID).Int("length", acc.Len()).Msg("Turn finished")
	if cs.state.FinishProcessing(t.epoch) {
		cs.commit(t.epoch)
	}
	return nil
}

// Wipe resets all in-memory state and deletes every persisted entry.
func (cs *ChatService) Wipe(ctx context.Context) error {
	cs.persistMu.Lock()
	cs.state.Reset()
	err := cs.persist.Wipe(ctx)
	cs.persistMu.Unlock()

	// The reply still streaming belongs to the erased conversation.
	cs.turnMu.Lock()
	if cs.streaming != nil {
		cs.streaming.cancel()
		cs.streaming = nil
	}
	cs.turnMu.Unlock()

	cs.pushStateToUI()
	if err != nil {
		return err
	}
	log.Info().Msg("Session wiped")
	return nil
}

// commit persists the full snapshot and pushes it to the UI, unless the
// session was wiped after epoch began.
func (cs *ChatService) commit(epoch int) {
	cs.persistMu.Lock()
	if cs.state.Epoch() != epoch {
		cs.persistMu.Unlock()
		return
	}
	snap := cs.state.Snapshot()
	if err := cs.persist.Save(context.Background(), snap); err != nil {
		log.Error().Err(err).Msg("Failed to persist session")
	}
	cs.persistMu.Unlock()

	cs.push(snap)
}

func (cs *ChatService) pushStateToUI() {
	cs.push(cs.state.Snapshot())
}

func (cs *ChatService) push(snap Snapshot) {
	if cs.eventBus == nil {
		return
	}
	err := cs.eventBus.SendToUI(eventbus.StateUpdateEvent{
		Messages:      snap.Messages,
		IsProcessing:  snap.IsLoading,
		Error:         snap.Error,
		Elevated:      snap.Elevated,
		SentInWindow:  cs.sentInWindow(snap.Timestamps),
		Limit:         cs.personas.Limit(snap.Elevated),
		AcceptedTurns: snap.Accepted,
	})
	if err != nil && !errors.Is(err, eventbus.ErrClosed) {
		log.Warn().Err(err).Msg("Error sending state to UI")
	}
}

// SentInWindow counts the submissions still inside the rate window.
func (cs *ChatService) SentInWindow() int {
	return cs.sentInWindow(cs.state.Timestamps())
}

func (cs *ChatService) sentInWindow(stamps []time.Time) int {
	return len(ratelimit.Prune(stamps, cs.now(), cs.limiter.Window()))
}

// Snapshot returns a copy of the current state.
func (cs *ChatService) Snapshot() Snapshot {
	return cs.state.Snapshot()
}

func (cs *ChatService) IsReady() bool {
	return cs.client != nil
}

func (cs *ChatService) Personas() *persona.Catalogue {
	return cs.personas
}
