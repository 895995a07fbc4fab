package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
)

// Color palette
var (
	Primary   = lipgloss.Color("#E4572E") // Rust orange - brand color
	Secondary = lipgloss.Color("#00D4AA") // Teal

	// Severity colors
	Critical = lipgloss.Color("#B00020")
	High     = lipgloss.Color("#FF3838")
	Medium   = lipgloss.Color("#FFB800")
	Low      = lipgloss.Color("#4D96FF")
	Info     = lipgloss.Color("#6B7280")

	// Status colors
	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")
)

// Pre-configured styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	BannerStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	VersionStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Width(12)

	ValueStyle = lipgloss.NewStyle().Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	BracketStyle = lipgloss.NewStyle().
			Foreground(Muted)

	CategoryStyle = lipgloss.NewStyle().
			Foreground(Secondary)

	DividerStyle = lipgloss.NewStyle().
			Foreground(Muted)

	URLStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Underline(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)
)

// SeverityStyle returns the badge style for a severity level.
func SeverityStyle(s finding.Severity) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case finding.Critical:
		return base.Foreground(Critical)
	case finding.High:
		return base.Foreground(High)
	case finding.Medium:
		return base.Foreground(Medium)
	case finding.Low:
		return base.Foreground(Low)
	case finding.Info:
		return base.Foreground(Info)
	default:
		return base.Foreground(Muted)
	}
}

// StatusStyle returns the style for a plugin outcome status.
func StatusStyle(s aggregator.Status) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case aggregator.StatusOK:
		return base.Foreground(Success)
	case aggregator.StatusTimedOut:
		return base.Foreground(Warning)
	default:
		return base.Foreground(Error)
	}
}

// StateStyle returns the style for a scan state.
func StateStyle(s aggregator.State) lipgloss.Style {
	switch s {
	case aggregator.StateCompleted:
		return SuccessStyle
	case aggregator.StatePartiallyFailed:
		return lipgloss.NewStyle().Foreground(Warning).Bold(true)
	case aggregator.StateAborted:
		return ErrorStyle
	default:
		return ValueStyle
	}
}
