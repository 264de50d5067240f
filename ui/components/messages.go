package components

import (
	"strings"

	"github.com/Rorical/c60chat/internal/models"
	"github.com/Rorical/c60chat/ui/styles"
)

const emptyHint = "Say something. ctrl+x wipes memory, esc quits."

// RenderMessages draws the conversation. The model reply still streaming
// (empty while loading) is shown as a spinner frame.
func RenderMessages(messages []models.Message, md *Markdown, theme styles.Theme, width int, loading bool, spinner string) string {
	if len(messages) == 0 {
		return styles.StatusStyle(theme, width).UnsetBackground().Render(emptyHint)
	}

	userStyle := styles.UserStyle(theme)
	modelStyle := styles.ModelStyle(theme)
	label := styles.LabelStyle(theme)
	inner := max(width-8, 20)

	var b strings.Builder
	for i, msg := range messages {
		switch msg.Role {
		case models.User:
			b.WriteString(label.Render("YOU") + "\n")
			b.WriteString(userStyle.Width(inner).Render(msg.Content) + "\n\n")
		default:
			b.WriteString(label.Render("C60") + "\n")
			content := msg.Content
			last := i == len(messages)-1
			if content == "" && loading && last {
				content = spinner
			} else if md != nil {
				content = md.Render(content, inner)
			}
			b.WriteString(modelStyle.Render(content) + "\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
