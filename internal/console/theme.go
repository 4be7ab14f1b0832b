package console

import "github.com/charmbracelet/lipgloss"

// Theme defines all colors used by the console.
// Use DarkTheme() or LightTheme() to get a pre-built theme,
// or construct a custom Theme.
type Theme struct {
	Primary         lipgloss.Color // warm accent — title, input prompt
	Secondary       lipgloss.Color // cool accent — mode badge
	Accent          lipgloss.Color // profile names
	Error           lipgloss.Color // failed dispatches
	Warning         lipgloss.Color // pick countdown, pending state
	Success         lipgloss.Color // delivered dispatches
	Info            lipgloss.Color // strategy names
	Text            lipgloss.Color // primary text
	TextMuted       lipgloss.Color // secondary text — hints, timestamps
	BackgroundPanel lipgloss.Color // panel background
	BackgroundElem  lipgloss.Color // highlighted element background
	Border          lipgloss.Color // separators, borders
}

// DarkTheme returns the default dark theme.
func DarkTheme() Theme {
	return Theme{
		Primary:         lipgloss.Color("#fab283"),
		Secondary:       lipgloss.Color("#5c9cf5"),
		Accent:          lipgloss.Color("#9d7cd8"),
		Error:           lipgloss.Color("#e06c75"),
		Warning:         lipgloss.Color("#f5a742"),
		Success:         lipgloss.Color("#7fd88f"),
		Info:            lipgloss.Color("#56b6c2"),
		Text:            lipgloss.Color("#eeeeee"),
		TextMuted:       lipgloss.Color("#808080"),
		BackgroundPanel: lipgloss.Color("#141414"),
		BackgroundElem:  lipgloss.Color("#1e1e1e"),
		Border:          lipgloss.Color("#484848"),
	}
}

// LightTheme returns a light theme for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:         lipgloss.Color("#b35c00"),
		Secondary:       lipgloss.Color("#0550ae"),
		Accent:          lipgloss.Color("#6639ba"),
		Error:           lipgloss.Color("#cf222e"),
		Warning:         lipgloss.Color("#bf8700"),
		Success:         lipgloss.Color("#116329"),
		Info:            lipgloss.Color("#0969da"),
		Text:            lipgloss.Color("#1f2328"),
		TextMuted:       lipgloss.Color("#656d76"),
		BackgroundPanel: lipgloss.Color("#ffffff"),
		BackgroundElem:  lipgloss.Color("#f6f8fa"),
		Border:          lipgloss.Color("#d0d7de"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

// styles holds all lipgloss styles derived from a Theme.
// Constructed once from a Theme and stored in consoleModel.
type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	ok       lipgloss.Style
	fail     lipgloss.Style
	pending  lipgloss.Style
	dim      lipgloss.Style
	text     lipgloss.Style
	mode     lipgloss.Style
	profile  lipgloss.Style
	strategy lipgloss.Style
	status   lipgloss.Style
}

// newStyles builds all styles from a theme.
func newStyles(t Theme) styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		header:   lipgloss.NewStyle().Foreground(t.Border),
		ok:       lipgloss.NewStyle().Foreground(t.Success),
		fail:     lipgloss.NewStyle().Foreground(t.Error),
		pending:  lipgloss.NewStyle().Foreground(t.Warning),
		dim:      lipgloss.NewStyle().Foreground(t.TextMuted),
		text:     lipgloss.NewStyle().Foreground(t.Text),
		mode:     lipgloss.NewStyle().Bold(true).Foreground(t.Secondary),
		profile:  lipgloss.NewStyle().Foreground(t.Accent),
		strategy: lipgloss.NewStyle().Foreground(t.Info),
		status:   lipgloss.NewStyle().Foreground(t.TextMuted),
	}
}
