package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the palette for one persona value.
type Theme struct {
	Accent lipgloss.Color
	Muted  lipgloss.Color
	Error  lipgloss.Color
	Title  string
}

var (
	standardTheme = Theme{
		Accent: lipgloss.Color("208"),
		Muted:  lipgloss.Color("241"),
		Error:  lipgloss.Color("196"),
		Title:  "C60 // ATMOSPHERE",
	}
	elevatedTheme = Theme{
		Accent: lipgloss.Color("205"),
		Muted:  lipgloss.Color("182"),
		Error:  lipgloss.Color("197"),
		Title:  "C60 // LABIBA MODE",
	}
)

func ThemeFor(elevated bool) Theme {
	if elevated {
		return elevatedTheme
	}
	return standardTheme
}

func HeaderStyle(t Theme, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true).
		Padding(0, 1).
		Width(width)
}

func InputStyle(t Theme, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent).
		Padding(0, 1).
		Width(max(width-4, 10))
}

func StatusStyle(t Theme, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Muted).
		Background(lipgloss.Color("235")).
		Padding(0, 1).
		Width(width)
}

func ErrorStyle(t Theme) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Error).
		Bold(true).
		Padding(0, 2)
}

func UserStyle(t Theme) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(t.Muted).
		Padding(0, 1).
		MarginLeft(2)
}

func ModelStyle(t Theme) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(t.Accent).
		Padding(0, 1).
		MarginLeft(2)
}

func LabelStyle(t Theme) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true).
		MarginLeft(2)
}

func PromptStyle(t Theme) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.Error).
		Bold(true).
		Padding(0, 1).
		Align(lipgloss.Center)
}
