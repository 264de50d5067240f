package update

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/c60chat/internal/dispatcher"
	"github.com/Rorical/c60chat/internal/eventbus"
	"github.com/Rorical/c60chat/internal/models"
)

// Sender delivers UI events to core.
type Sender interface {
	Send(event eventbus.UIEvent) error
}

func HandleUpdate(appModel *models.AppModel, msg tea.Msg, sender Sender) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return HandleKeyMsg(appModel, msg, sender)
	case tea.WindowSizeMsg:
		HandleWindowSizeMsg(appModel, msg)
		return nil
	case spinner.TickMsg:
		return HandleSpinnerTick(appModel, msg)
	case dispatcher.CoreEventMsg:
		return HandleCoreEvent(appModel, msg)
	case dispatcher.BusClosedMsg:
		return tea.Quit
	}

	var cmd tea.Cmd
	appModel.Input, cmd = appModel.Input.Update(msg)
	return cmd
}
