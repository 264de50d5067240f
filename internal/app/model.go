package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/c60chat/internal/dispatcher"
	"github.com/Rorical/c60chat/internal/models"
	"github.com/Rorical/c60chat/internal/update"
	"github.com/Rorical/c60chat/ui/components"
	"github.com/Rorical/c60chat/ui/styles"
)

type AppModel struct {
	appModel   models.AppModel
	dispatcher *dispatcher.EventDispatcher
	markdown   *components.Markdown
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.dispatcher.ListenForUIEvents(),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := update.HandleUpdate(&m.appModel, msg, m.dispatcher)

	switch msg.(type) {
	case dispatcher.CoreEventMsg:
		// Handle core events and continue listening
		m.refresh()
		return m, tea.Batch(cmd, m.dispatcher.ListenForUIEvents())
	case tea.WindowSizeMsg, spinner.TickMsg:
		m.refresh()
	}
	return m, cmd
}

// refresh re-renders the conversation into the viewport and follows the tail.
func (m *AppModel) refresh() {
	s := &m.appModel
	theme := styles.ThemeFor(s.Elevated)
	content := components.RenderMessages(s.Messages, m.markdown, theme, s.Viewport.Width, s.Loading, s.Spinner.View())
	s.Viewport.SetContent(content)
	s.Viewport.GotoBottom()
}

func (m *AppModel) View() string {
	s := &m.appModel
	theme := styles.ThemeFor(s.Elevated)
	width := s.Width
	if width == 0 {
		width = s.Viewport.Width
	}

	var b strings.Builder
	b.WriteString(components.RenderHeader(theme, width))
	b.WriteString("\n")
	b.WriteString(s.Viewport.View())
	b.WriteString("\n")
	b.WriteString(components.RenderInput(s.Input.View(), s.ConfirmWipe, theme, width))
	b.WriteString("\n")
	b.WriteString(components.RenderStatus(s.Status, s.Error, s.SentInWindow, s.Limit, theme, width))

	return b.String()
}
