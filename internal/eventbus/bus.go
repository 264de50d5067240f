package eventbus

import (
	"errors"
	"sync"
	"time"

	"github.com/Rorical/c60chat/internal/models"
)

// UIEvent represents events sent from UI to Core
type UIEvent interface {
	UIEvent()
}

// CoreEvent represents events sent from Core to UI
type CoreEvent interface {
	CoreEvent()
}

// SendMessageEvent - UI asks core to run a turn with this input
type SendMessageEvent struct {
	Message string
}

func (e SendMessageEvent) UIEvent() {}

// WipeEvent - UI confirmed erasing history, persona flag and rate-limit data
type WipeEvent struct{}

func (e WipeEvent) UIEvent() {}

// StateUpdateEvent - Core pushes a full state snapshot to UI
type StateUpdateEvent struct {
	Messages      []models.Message
	IsProcessing  bool
	Error         error
	Elevated      bool
	SentInWindow  int
	Limit         int
	AcceptedTurns uint64 // grows by one per admitted submission; never reset
}

func (e StateUpdateEvent) CoreEvent() {}

// EventBusError represents errors in event processing
type EventBusError struct {
	Operation string
	Err       error
	Timestamp time.Time
}

func (e EventBusError) Error() string {
	return e.Operation + ": " + e.Err.Error()
}

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	ErrCoreFull    = errors.New("UI to Core channel is full")
	ErrClosed      = errors.New("event bus is closed")
)

// CircuitBreakerState represents the state of circuit breaker
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker stops accepting UI events after repeated delivery failures
// until resetTimeout has passed.
type CircuitBreaker struct {
	mu              sync.Mutex
	maxFailures     int
	resetTimeout    time.Duration
	failureCount    int
	lastFailureTime time.Time
	state           CircuitBreakerState
	now             func() time.Time
}

func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
		now:          time.Now,
	}
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
		cb.state = CircuitHalfOpen
	}
	return cb.state == CircuitOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.state = CircuitClosed
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailureTime = cb.now()
	if cb.failureCount >= cb.maxFailures {
		cb.state = CircuitOpen
	}
}

func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// EventBus carries UI events to core and state snapshots back.
type EventBus struct {
	mu             sync.Mutex
	closed         bool
	uiToCore       chan UIEvent
	coreToUI       chan CoreEvent
	errorCallback  func(EventBusError)
	circuitBreaker *CircuitBreaker
}

func NewEventBus() *EventBus {
	return &EventBus{
		uiToCore:       make(chan UIEvent, 100),
		coreToUI:       make(chan CoreEvent, 100),
		circuitBreaker: NewCircuitBreaker(5, 30*time.Second),
	}
}

func (eb *EventBus) SetErrorCallback(callback func(EventBusError)) {
	eb.errorCallback = callback
}

func (eb *EventBus) reportError(operation string, err error) {
	eb.circuitBreaker.RecordFailure()
	if eb.errorCallback != nil {
		eb.errorCallback(EventBusError{
			Operation: operation,
			Err:       err,
			Timestamp: time.Now(),
		})
	}
}

func (eb *EventBus) SendToCore(event UIEvent) error {
	if eb.circuitBreaker.IsOpen() {
		eb.reportError("SendToCore", ErrCircuitOpen)
		return ErrCircuitOpen
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return ErrClosed
	}
	select {
	case eb.uiToCore <- event:
		eb.circuitBreaker.RecordSuccess()
		return nil
	default:
		eb.reportError("SendToCore", ErrCoreFull)
		return ErrCoreFull
	}
}

// SendToUI never blocks. Snapshots are complete, so when the UI falls behind
// the oldest queued one is dropped in favour of the newest.
func (eb *EventBus) SendToUI(event CoreEvent) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return ErrClosed
	}
	for {
		select {
		case eb.coreToUI <- event:
			return nil
		default:
		}
		select {
		case <-eb.coreToUI:
		default:
		}
	}
}

func (eb *EventBus) UIToCore() <-chan UIEvent {
	return eb.uiToCore
}

func (eb *EventBus) CoreToUI() <-chan CoreEvent {
	return eb.coreToUI
}

func (eb *EventBus) GetCircuitBreakerState() CircuitBreakerState {
	return eb.circuitBreaker.State()
}

func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	close(eb.uiToCore)
	close(eb.coreToUI)
}
