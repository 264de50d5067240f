package update

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/c60chat/internal/dispatcher"
	"github.com/Rorical/c60chat/internal/eventbus"
	"github.com/Rorical/c60chat/internal/models"
)

// Rows taken by everything except the conversation pane.
const chromeHeight = 7

// HandleKeyMsg handles keyboard input. While the wipe prompt is open only
// y, n and esc mean anything.
func HandleKeyMsg(appModel *models.AppModel, keyMsg tea.KeyMsg, sender Sender) tea.Cmd {
	if keyMsg.String() == "ctrl+c" {
		return tea.Quit
	}

	if appModel.ConfirmWipe {
		switch strings.ToLower(keyMsg.String()) {
		case "y":
			appModel.ConfirmWipe = false
			if err := sender.Send(eventbus.WipeEvent{}); err != nil {
				appModel.Status = "Error sending wipe: " + err.Error()
			}
		case "n", "esc":
			appModel.ConfirmWipe = false
		}
		return nil
	}

	switch keyMsg.String() {
	case "esc":
		return tea.Quit
	case "ctrl+x":
		appModel.ConfirmWipe = true
		return nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		appModel.Viewport, cmd = appModel.Viewport.Update(keyMsg)
		return cmd
	case "enter":
		input := appModel.Input.Value()
		if strings.TrimSpace(input) == "" || appModel.Loading {
			return nil
		}
		if !appModel.ChatServiceReady {
			appModel.Status = "Chat service not available"
			return nil
		}
		// The field is cleared when core reports the input consumed, so a
		// rate-limited message stays put.
		if err := sender.Send(eventbus.SendMessageEvent{Message: input}); err != nil {
			appModel.Status = "Error sending message: " + err.Error()
		}
		return nil
	}

	var cmd tea.Cmd
	appModel.Input, cmd = appModel.Input.Update(keyMsg)
	return cmd
}

// HandleCoreEvent processes events from the core
func HandleCoreEvent(appModel *models.AppModel, coreEventMsg dispatcher.CoreEventMsg) tea.Cmd {
	event, ok := coreEventMsg.Event.(eventbus.StateUpdateEvent)
	if !ok {
		return nil
	}

	wasLoading := appModel.Loading
	appModel.Messages = event.Messages
	appModel.Loading = event.IsProcessing
	appModel.Elevated = event.Elevated
	appModel.SentInWindow = event.SentInWindow
	appModel.Limit = event.Limit
	appModel.Error = ""
	if event.Error != nil {
		appModel.Error = event.Error.Error()
	}
	// Snapshots may be coalesced, so acceptance is read from the counter
	// rather than from any single event.
	if event.AcceptedTurns > appModel.AcceptedTurns {
		appModel.AcceptedTurns = event.AcceptedTurns
		appModel.Input.Reset()
	}

	if event.IsProcessing {
		appModel.Status = "Processing"
	} else {
		appModel.Status = "Ready"
	}

	if event.IsProcessing && !wasLoading {
		return appModel.Spinner.Tick
	}
	return nil
}

func HandleWindowSizeMsg(appModel *models.AppModel, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height
	appModel.Viewport.Width = sizeMsg.Width
	appModel.Viewport.Height = max(sizeMsg.Height-chromeHeight, 3)
	appModel.Input.Width = max(sizeMsg.Width-10, 10)
}

// HandleSpinnerTick animates the spinner only while a reply is in flight.
func HandleSpinnerTick(appModel *models.AppModel, tick spinner.TickMsg) tea.Cmd {
	if !appModel.Loading {
		return nil
	}
	var cmd tea.Cmd
	appModel.Spinner, cmd = appModel.Spinner.Update(tick)
	return cmd
}
