package dispatcher

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/Rorical/c60chat/internal/eventbus"
)

// CoreEventMsg wraps core events for Bubble Tea
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// BusClosedMsg is delivered once the core-to-UI channel has been closed.
type BusClosedMsg struct{}

// EventDispatcher handles routing events between core and UI
type EventDispatcher struct {
	eventBus *eventbus.EventBus
}

func NewEventDispatcher(eventBus *eventbus.EventBus) *EventDispatcher {
	eventBus.SetErrorCallback(func(err eventbus.EventBusError) {
		log.Warn().Err(err.Err).Str("operation", err.Operation).Msg("Event bus delivery failed")
	})
	return &EventDispatcher{eventBus: eventBus}
}

// ListenForUIEvents waits for the next core event. The model re-issues it
// after every CoreEventMsg so exactly one listener is pending at a time.
func (ed *EventDispatcher) ListenForUIEvents() tea.Cmd {
	ch := ed.eventBus.CoreToUI()
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return BusClosedMsg{}
		}
		return CoreEventMsg{Event: event}
	}
}

// Send forwards a UI event to core.
func (ed *EventDispatcher) Send(event eventbus.UIEvent) error {
	return ed.eventBus.SendToCore(event)
}

func (ed *EventDispatcher) GetEventBus() *eventbus.EventBus {
	return ed.eventBus
}
