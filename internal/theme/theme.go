package theme

import "github.com/charmbracelet/lipgloss"

type HeaderSegmentStyle struct {
	Background lipgloss.Color
	Border     lipgloss.Color
	Foreground lipgloss.Color
	Accent     lipgloss.Color
}

type Theme struct {
	AppFrame       lipgloss.Style
	Header         lipgloss.Style
	HeaderBrand    lipgloss.Style
	HeaderSegments []HeaderSegmentStyle
	LogBorder      lipgloss.Style
	Prompt         lipgloss.Style
	PromptText     lipgloss.Style
	Suggestion     lipgloss.Style
	StatusBar      lipgloss.Style
	StatusBarKey   lipgloss.Style
	StatusBarValue lipgloss.Style
	CommandBarHint lipgloss.Style
	EventName      lipgloss.Style
	EventMeta      lipgloss.Style
	Timestamp      lipgloss.Style
	Notification   lipgloss.Style
	Error          lipgloss.Style
	Warn           lipgloss.Style
	Success        lipgloss.Style
	Muted          lipgloss.Style
}

func DefaultTheme() Theme {
	accent := lipgloss.Color("#7D56F4")

	return Theme{
		AppFrame: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#403B59")),
		Header: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E1FF")),
		HeaderBrand: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1A1020")).
			Background(lipgloss.Color("#FBC859")).
			Bold(true).
			Padding(0, 1),
		HeaderSegments: []HeaderSegmentStyle{
			{
				Background: lipgloss.Color("#7D56F4"),
				Border:     lipgloss.Color("#A58CFF"),
				Foreground: lipgloss.Color("#F5F2FF"),
				Accent:     lipgloss.Color("#FFFFFF"),
			},
			{
				Background: lipgloss.Color("#15AABF"),
				Border:     lipgloss.Color("#2EC6D6"),
				Foreground: lipgloss.Color("#EFFDFF"),
				Accent:     lipgloss.Color("#FFFFFF"),
			},
			{
				Background: lipgloss.Color("#33C481"),
				Border:     lipgloss.Color("#5EE0A0"),
				Foreground: lipgloss.Color("#052817"),
				Accent:     lipgloss.Color("#06331D"),
			},
		},
		LogBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5FB3B3")),
		Prompt:         lipgloss.NewStyle().Foreground(accent).Bold(true),
		PromptText:     lipgloss.NewStyle().Foreground(lipgloss.Color("#EAEAEA")),
		Suggestion:     lipgloss.NewStyle().Foreground(lipgloss.Color("#5E5A72")),
		StatusBar:      lipgloss.NewStyle().Foreground(lipgloss.Color("#A6A1BB")).Padding(0, 1),
		StatusBarKey:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8B39")).Bold(true),
		StatusBarValue: lipgloss.NewStyle().Foreground(lipgloss.Color("#EAEAEA")),
		CommandBarHint: lipgloss.NewStyle().Foreground(accent).Bold(true),
		EventName:      lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Bold(true),
		EventMeta:      lipgloss.NewStyle().Foreground(lipgloss.Color("#867CC1")),
		Timestamp:      lipgloss.NewStyle().Foreground(lipgloss.Color("#5E5A72")),
		Notification:   lipgloss.NewStyle().Foreground(lipgloss.Color("#E0DEF4")).Background(lipgloss.Color("#433C59")).Padding(0, 1),
		Error:          lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6E6E")),
		Warn:           lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB61E")),
		Success:        lipgloss.NewStyle().Foreground(lipgloss.Color("#6EF17E")),
		Muted:          lipgloss.NewStyle().Foreground(lipgloss.Color("#A6A1BB")),
	}
}

func (t Theme) HeaderSegment(idx int) HeaderSegmentStyle {
	if len(t.HeaderSegments) == 0 {
		return HeaderSegmentStyle{
			Background: lipgloss.Color("#3B355D"),
			Border:     lipgloss.Color("#5F5689"),
			Foreground: lipgloss.Color("#F5F2FF"),
			Accent:     lipgloss.Color("#FFFFFF"),
		}
	}
	return t.HeaderSegments[idx%len(t.HeaderSegments)]
}

// SegmentStyle renders a header pill for the segment at idx.
func (t Theme) SegmentStyle(idx int) lipgloss.Style {
	seg := t.HeaderSegment(idx)
	return lipgloss.NewStyle().
		Foreground(seg.Foreground).
		Background(seg.Background).
		Padding(0, 1)
}
