package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/scan-io-git/scanio-audit/internal/findings"
	"github.com/scan-io-git/scanio-audit/internal/workflow"
)

const (
	codeScrollStep = 10
	filePaneWidth  = 34
	minCodeHeight  = 6
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	removedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	addedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	paneStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	activePane    = paneStyle.BorderForeground(lipgloss.Color("63"))
)

func (m Model) View() string {
	parts := []string{m.renderHeader()}
	if m.inputActive {
		parts = append(parts, m.input.View())
	}
	parts = append(parts,
		lipgloss.JoinHorizontal(lipgloss.Top, m.renderFiles(), m.renderDetail()),
	)
	if msgs := m.renderMessages(); msgs != "" {
		parts = append(parts, msgs)
	}
	parts = append(parts, m.help.ShortHelpView(m.keys.hints(m.snap.State, m.inputActive)))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	header := titleStyle.Render("scanio-audit")
	if m.snap.Source != "" {
		header += " " + mutedStyle.Render(m.snap.Source)
	}
	activity := m.activity()
	if activity != "" {
		header += "  " + m.spin.View() + " " + activity
	}
	return header
}

func (m Model) activity() string {
	switch {
	case m.pending != "":
		return m.pending
	case m.snap.State == workflow.Scanning:
		return "Scanning..."
	case m.snap.State == workflow.FixRequested:
		return "Generating fix..."
	case m.snap.State == workflow.Applying:
		return "Applying fix..."
	case m.verifying > 0:
		return "Verifying..."
	}
	return ""
}

func (m Model) renderFiles() string {
	var b strings.Builder
	title := fmt.Sprintf("Files (%d)", len(m.snap.Visible))
	if m.snap.ErrorsOnly {
		title += " errors only"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if len(m.snap.Visible) == 0 {
		b.WriteString(mutedStyle.Render("No files."))
	}
	for i, v := range m.snap.Visible {
		line := fmt.Sprintf("%s %s", truncate(v.Name, filePaneWidth-8), renderBadge(v.Badge))
		switch {
		case v.Index == m.snap.SelectedFile:
			line = selectedStyle.Render("> " + line)
		case i == m.fileCursor && m.focus == paneFiles:
			line = "> " + line
		default:
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.snap.SelectedHidden {
		b.WriteString(mutedStyle.Render("active file is hidden by the filter"))
	}

	style := paneStyle
	if m.focus == paneFiles {
		style = activePane
	}
	return style.Width(filePaneWidth).Render(strings.TrimRight(b.String(), "\n"))
}

func renderBadge(n int) string {
	if n == 0 {
		return okStyle.Render("✓")
	}
	return errorStyle.Render(fmt.Sprintf("[%d]", n))
}

func (m Model) detailWidth() int {
	w := m.width - filePaneWidth - 8
	if w < 40 {
		return 80
	}
	return w
}

func (m Model) renderDetail() string {
	style := paneStyle
	if m.focus == paneFindings {
		style = activePane
	}

	active, ok := m.snap.ActiveFile()
	if !ok {
		return style.Width(m.detailWidth()).Render(mutedStyle.Render("Select a file to view its findings."))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(active.Path))
	b.WriteString("\n")

	switch m.snap.State {
	case workflow.FixRequested, workflow.FixReady, workflow.Applying:
		b.WriteString(m.renderProposal())
	default:
		b.WriteString(m.renderFindings(active))
		if f, ok := m.currentFinding(); ok {
			b.WriteString("\n")
			b.WriteString(m.renderCode(active.Content, f.Line))
		}
	}
	return style.Width(m.detailWidth()).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderFindings(active findings.AnalyzedFile) string {
	if len(active.Findings) == 0 {
		return okStyle.Render("No findings in this file.") + "\n"
	}
	var b strings.Builder
	for i, f := range active.Findings {
		line := fmt.Sprintf("L%-4d %-8s %s", f.Line, strings.ToUpper(f.Severity), f.Kind)
		if i == m.findingCursor && m.focus == paneFindings {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// renderCode shows the file around line with the line marked.
func (m Model) renderCode(content string, line int) string {
	if content == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	numbered := make([]string, len(lines))
	for i, l := range lines {
		marker := "  "
		if i+1 == line {
			marker = errorStyle.Render(">>")
		}
		numbered[i] = fmt.Sprintf("%s %4d  %s", marker, i+1, l)
	}

	height := m.height - 16
	if height < minCodeHeight {
		height = minCodeHeight
	}
	view := viewport.New(m.detailWidth(), height)
	view.SetContent(strings.Join(numbered, "\n"))

	offset := line - 1 - height/2 + m.codeOffset
	maxOffset := len(lines) - height
	if offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}
	view.SetYOffset(offset)
	return view.View()
}

func (m Model) renderProposal() string {
	var b strings.Builder
	if f := m.snap.SelectedFinding; f != nil {
		fmt.Fprintf(&b, "%s at line %d\n\n", f.Kind, f.Line)
	}
	p := m.snap.Proposal
	if p == nil {
		b.WriteString(mutedStyle.Render("Waiting for the proposed fix..."))
		return b.String()
	}
	for _, l := range strings.Split(p.OriginalSnippet, "\n") {
		b.WriteString(removedStyle.Render("- " + l))
		b.WriteString("\n")
	}
	for _, l := range strings.Split(p.FixedSnippet, "\n") {
		b.WriteString(addedStyle.Render("+ " + l))
		b.WriteString("\n")
	}
	if p.Explanation != "" {
		b.WriteString("\n")
		b.WriteString(p.Explanation)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderMessages() string {
	var lines []string
	if m.snap.Notice != "" {
		lines = append(lines, noticeStyle.Render(m.snap.Notice))
	}
	if w := m.snap.Warning; w != nil && !w.Empty() {
		lines = append(lines, noticeStyle.Render("Ingestion: "+w.String()))
	}
	if o := m.snap.Outcome; o != nil {
		lines = append(lines, okStyle.Render(o.Summary()))
	}
	if m.snap.Err != nil {
		lines = append(lines, errorStyle.Render(m.snap.Err.Error()))
	}
	if v := m.verify; v != nil {
		if v.err != nil {
			lines = append(lines, errorStyle.Render("Verification failed: "+v.err.Error()))
		} else {
			lines = append(lines, v.result.Summary(), "Reasoning: "+v.result.Reasoning)
		}
	}
	if m.status != "" {
		lines = append(lines, errorStyle.Render(m.status))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
