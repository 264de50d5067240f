package models

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
)

// AppModel represents the UI state - only local UI concerns
type AppModel struct {
	Messages         []Message       // Snapshot of the conversation pushed by core
	Input            textinput.Model // User input field
	Viewport         viewport.Model  // Scrollable conversation pane
	Spinner          spinner.Model   // Shown while a reply streams
	Status           string          // Status bar text
	Error            string          // Inline error from the last turn
	Loading          bool            // Loading state from core
	Elevated         bool            // Persona flag from core, drives the theme
	SentInWindow     int             // Submissions inside the rate window
	Limit            int             // Effective rate ceiling
	Width            int             // Terminal width
	Height           int             // Terminal height
	ChatServiceReady bool            // Whether chat service is available
	ConfirmWipe      bool            // Wipe confirmation prompt is open
	AcceptedTurns    uint64          // Last admitted-turn count seen from core
}

// NewAppModel returns the UI state before core has pushed its first snapshot.
func NewAppModel(chatServiceReady bool) AppModel {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.CharLimit = 4000
	input.Focus()

	return AppModel{
		Messages:         make([]Message, 0), // Start empty, core will send messages
		Input:            input,
		Viewport:         viewport.New(80, 20),
		Spinner:          spinner.New(spinner.WithSpinner(spinner.Dot)),
		Status:           "Ready",
		ChatServiceReady: chatServiceReady,
	}
}
