package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/triadhq/trio/internal/phase"
	"github.com/triadhq/trio/internal/schema"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrYellow    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrMagenta   = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#C4B5FD"}
	clrWhite     = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle    = lipgloss.NewStyle().Foreground(clrDim)
	subtleStyle = lipgloss.NewStyle().Foreground(clrSubtle)
	errorStyle  = lipgloss.NewStyle().Foreground(clrRed).Bold(true)

	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(clrWhite)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

var phaseStyles = map[schema.Phase]lipgloss.Style{
	schema.PhasePlanning:       lipgloss.NewStyle().Bold(true).Foreground(clrMagenta),
	schema.PhaseImplementation: lipgloss.NewStyle().Bold(true).Foreground(clrBlue),
	schema.PhaseReview:         lipgloss.NewStyle().Bold(true).Foreground(clrYellow),
	schema.PhaseApproved:       lipgloss.NewStyle().Bold(true).Foreground(clrGreen),
	schema.PhaseRejected:       lipgloss.NewStyle().Bold(true).Foreground(clrRed),
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.record == nil {
		return dimStyle.Render("Loading context...")
	}

	var b strings.Builder

	// Header.
	header := titleStyle.Render("trio") +
		dimStyle.Render(" — "+m.record.ProjectName)
	rightHelp := footerKeyStyle.Render("r") + footerDescStyle.Render(" refresh  ") +
		footerKeyStyle.Render("q") + footerDescStyle.Render(" quit")
	headerLine := header
	if m.width > 0 {
		pad := m.width - lipgloss.Width(header) - lipgloss.Width(rightHelp)
		if pad > 0 {
			headerLine = header + strings.Repeat(" ", pad) + rightHelp
		}
	}
	b.WriteString(headerLine + "\n\n")

	// Phase line.
	phStyle, ok := phaseStyles[m.record.GlobalPhase]
	if !ok {
		phStyle = dimStyle
	}
	b.WriteString(sectionStyle.Render("Phase: ") + phStyle.Render(string(m.record.GlobalPhase)))
	if role := phase.ActiveRole(m.record.GlobalPhase); role != "" {
		b.WriteString(subtleStyle.Render("  active: " + string(role)))
	}
	if m.record.CurrentTask != "" {
		b.WriteString(subtleStyle.Render("  task: " + m.record.CurrentTask))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Updated %s by %s",
		m.record.LastUpdatedAt.Local().Format("15:04:05"), m.record.LastUpdatedBy)))
	b.WriteString("\n\n")

	// Task queue.
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Queue (%d)", len(m.record.TaskQueue))) + "\n")
	if len(m.record.TaskQueue) == 0 {
		b.WriteString(dimStyle.Render("  empty") + "\n")
	} else {
		b.WriteString(m.queue.View() + "\n")
	}
	b.WriteString("\n")

	// Completed and known issues.
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Completed: %d", len(m.record.CompletedTasks))))
	if n := len(m.record.KnownIssues); n > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("   Known issues: %d", n)))
	}
	b.WriteString("\n\n")

	// Log tail.
	b.WriteString(sectionStyle.Render("Recent activity") + "\n")
	logs := m.record.ReasoningLogs
	const tail = 5
	if len(logs) > tail {
		logs = logs[len(logs)-tail:]
	}
	if len(logs) == 0 {
		b.WriteString(dimStyle.Render("  no entries") + "\n")
	}
	for _, e := range logs {
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			dimStyle.Render(e.Timestamp.Local().Format("15:04:05")),
			subtleStyle.Render(fmt.Sprintf("%-11s", e.Role)),
			e.Summary))
	}

	// Status bar.
	if m.statusMsg != "" {
		b.WriteString("\n" + errorStyle.Render(m.statusMsg) + "\n")
	}

	return b.String()
}
