package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Markdown renders model replies, keeping one glamour renderer per wrap width.
type Markdown struct {
	mu       sync.Mutex
	width    int
	renderer *glamour.TermRenderer
}

// Render returns content formatted for a pane of the given width, or the
// content unchanged if glamour fails.
func (md *Markdown) Render(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return content
	}
	md.mu.Lock()
	defer md.mu.Unlock()

	if md.renderer == nil || md.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(max(width, 20)),
		)
		if err != nil {
			return content
		}
		md.renderer, md.width = r, width
	}

	out, err := md.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
