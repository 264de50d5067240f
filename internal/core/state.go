package core

import (
	"sync"
	"time"

	"github.com/Rorical/c60chat/internal/models"
	"github.com/Rorical/c60chat/internal/ratelimit"
)

// Snapshot is a deep copy of the conversation state. It is what gets
// persisted and pushed to the UI.
type Snapshot struct {
	Messages   []models.Message
	IsLoading  bool
	Error      error
	Elevated   bool
	Timestamps []time.Time
	Accepted   uint64 // turns admitted since the process started
}

// ChatState manages the conversation state for event-driven architecture
type ChatState struct {
	mu           sync.RWMutex
	messages     []models.Message // Single source of truth for conversation
	isProcessing bool
	lastError    error
	elevated     bool        // Sticky until Reset
	timestamps   []time.Time // Submission times inside the rate window
	epoch        int         // Bumped by Reset so stale turns stop persisting
	accepted     uint64      // Monotonic, survives Reset
}

func NewChatState() *ChatState {
	return &ChatState{
		messages:   make([]models.Message, 0),
		timestamps: make([]time.Time, 0),
	}
}

// Restore replaces the persisted parts of the state with snap.
func (cs *ChatState) Restore(snap Snapshot) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.messages = append(make([]models.Message, 0, len(snap.Messages)), snap.Messages...)
	cs.elevated = snap.Elevated
	cs.timestamps = append(make([]time.Time, 0, len(snap.Timestamps)), snap.Timestamps...)
}

func (cs *ChatState) Snapshot() Snapshot {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return Snapshot{
		Messages:   append(make([]models.Message, 0, len(cs.messages)), cs.messages...),
		IsLoading:  cs.isProcessing,
		Error:      cs.lastError,
		Elevated:   cs.elevated,
		Timestamps: append(make([]time.Time, 0, len(cs.timestamps)), cs.timestamps...),
		Accepted:   cs.accepted,
	}
}

func (cs *ChatState) GetMessages() []models.Message {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	result := make([]models.Message, len(cs.messages))
	copy(result, cs.messages)
	return result
}

func (cs *ChatState) IsProcessing() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.isProcessing
}

func (cs *ChatState) SetError(err error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.lastError = err
}

func (cs *ChatState) GetLastError() error {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.lastError
}

func (cs *ChatState) IsElevated() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.elevated
}

func (cs *ChatState) Timestamps() []time.Time {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	result := make([]time.Time, len(cs.timestamps))
	copy(result, cs.timestamps)
	return result
}

func (cs *ChatState) Epoch() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.epoch
}

// TurnRequest is a submission offered to StartTurn.
type TurnRequest struct {
	Input   string
	Trigger bool // input carried a persona trigger phrase
	Limiter *ratelimit.Limiter
	Limit   func(elevated bool) int
}

// Admission describes a turn StartTurn let through, or the state a
// rejected one was measured against.
type Admission struct {
	History       []models.Message // conversation before this turn
	PlaceholderID string
	Epoch         int
	Elevated      bool
	Activated     bool // this submission switched the persona flag on
	Decision      ratelimit.Decision
}

// StartTurn runs the whole admission of a submission under one lock: the
// busy check, persona activation, pruning and the rate check, then the
// append of the user message and empty reply placeholder. A permitted turn
// marks the state loading, clears the last error and records its timestamp.
// It returns ErrBusy while a turn is in flight, or a *RateLimitError, which
// is also stored as the last error.
func (cs *ChatState) StartTurn(req TurnRequest) (Admission, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.isProcessing {
		return Admission{Epoch: cs.epoch}, ErrBusy
	}

	adm := Admission{Epoch: cs.epoch}
	// The flag flips before the rate check, so the triggering turn is
	// already measured against the elevated ceiling.
	if req.Trigger && !cs.elevated {
		cs.elevated = true
		adm.Activated = true
	}
	adm.Elevated = cs.elevated

	decision := req.Limiter.Check(cs.timestamps, req.Limit(cs.elevated))
	adm.Decision = decision
	cs.timestamps = decision.Kept
	if !decision.Allowed {
		err := &RateLimitError{Limit: decision.Limit, Window: decision.Window}
		cs.lastError = err
		return adm, err
	}

	now := models.Millis(decision.Now)
	user := models.NewMessage(models.User, req.Input, now)
	placeholder := models.NewMessage(models.Model, "", now.Add(time.Millisecond))

	adm.History = make([]models.Message, len(cs.messages))
	copy(adm.History, cs.messages)
	adm.PlaceholderID = placeholder.ID

	cs.messages = append(cs.messages, user, placeholder)
	cs.isProcessing = true
	cs.lastError = nil
	cs.timestamps = ratelimit.Record(decision.Kept, now)
	cs.accepted++
	return adm, nil
}

// ReplaceContent sets the content of message id. It reports false when the
// message no longer exists, e.g. after a wipe.
func (cs *ChatState) ReplaceContent(id, content string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for i := len(cs.messages) - 1; i >= 0; i-- {
		if cs.messages[i].ID == id {
			cs.messages[i].Content = content
			return true
		}
	}
	return false
}

// FinishProcessing clears the loading flag of the turn started in epoch.
// It reports false if the state was reset since.
func (cs *ChatState) FinishProcessing(epoch int) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.epoch != epoch {
		return false
	}
	cs.isProcessing = false
	return true
}

func (cs *ChatState) FinishProcessingWithError(epoch int, err error) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.epoch != epoch {
		return false
	}
	cs.isProcessing = false
	cs.lastError = err
	return true
}

// Reset empties messages, error, persona flag and timestamps. A turn that is
// still streaming keeps running but can no longer touch the new state.
func (cs *ChatState) Reset() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.messages = make([]models.Message, 0)
	cs.isProcessing = false
	cs.lastError = nil
	cs.elevated = false
	cs.timestamps = make([]time.Time, 0)
	cs.epoch++
}
