package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/c60chat/internal/core"
	"github.com/Rorical/c60chat/internal/dispatcher"
	"github.com/Rorical/c60chat/internal/eventbus"
	"github.com/Rorical/c60chat/internal/models"
	"github.com/Rorical/c60chat/ui/components"
)

// Application manages the complete application lifecycle
type Application struct {
	session    *Session
	eventBus   *eventbus.EventBus
	dispatcher *dispatcher.EventDispatcher
	model      *AppModel
}

func NewApplication(opts Options) (*Application, error) {
	// Create event bus
	eb := eventbus.NewEventBus()

	session, err := OpenSession(opts, core.WithEventBus(eb))
	if err != nil {
		eb.Close()
		return nil, err
	}

	// Create dispatcher
	disp := dispatcher.NewEventDispatcher(eb)

	return &Application{
		session:    session,
		eventBus:   eb,
		dispatcher: disp,
		model:      NewAppModel(models.NewAppModel(session.Service.IsReady()), disp),
	}, nil
}

func (app *Application) Start() error {
	// Start background services; the first snapshot is queued before the UI runs
	app.session.Service.Start()

	// Run UI
	p := tea.NewProgram(app.model, tea.WithAltScreen())
	_, err := p.Run()

	return err
}

func (app *Application) Stop() {
	app.session.Service.Stop()
	app.eventBus.Close()
	app.session.Close()
}

// NewAppModel wraps the UI state for Bubble Tea.
func NewAppModel(state models.AppModel, disp *dispatcher.EventDispatcher) *AppModel {
	return &AppModel{
		appModel:   state,
		dispatcher: disp,
		markdown:   &components.Markdown{},
	}
}
