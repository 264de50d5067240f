package components

import (
	"github.com/Rorical/c60chat/ui/styles"
)

const wipePrompt = "WIPE MEMORY? (y/n)"

// RenderInput shows the text field, or the wipe confirmation while it is open.
func RenderInput(input string, confirmWipe bool, theme styles.Theme, width int) string {
	if confirmWipe {
		return styles.InputStyle(theme, width).Render(styles.PromptStyle(theme).Render(wipePrompt))
	}
	return styles.InputStyle(theme, width).Render(input)
}
