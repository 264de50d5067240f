package components

import (
	"fmt"

	"github.com/Rorical/c60chat/ui/styles"
)

// RenderStatus is the bottom bar: status text and the rate-limit counter,
// with the last turn's error above it when there is one.
func RenderStatus(status, errText string, sent, limit int, theme styles.Theme, width int) string {
	bar := styles.StatusStyle(theme, width).Render(fmt.Sprintf("%s  %d/%d", status, sent, limit))
	if errText == "" {
		return bar
	}
	return styles.ErrorStyle(theme).Render(errText) + "\n" + bar
}

// RenderHeader is the title line.
func RenderHeader(theme styles.Theme, width int) string {
	return styles.HeaderStyle(theme, width).Render(theme.Title)
}
