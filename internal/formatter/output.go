package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v2"

	"github.com/scan-io-git/scanio-audit/internal/findings"
	"github.com/scan-io-git/scanio-audit/internal/git"
	"github.com/scan-io-git/scanio-audit/internal/ingest"
	internalsarif "github.com/scan-io-git/scanio-audit/internal/sarif"
	"github.com/scan-io-git/scanio-audit/internal/workflow"
)

// Output formats.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatSARIF = "sarif"
)

// ValidateFormat checks format against the formats a command accepts.
func ValidateFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unsupported output format %q, expected one of: %s", format, strings.Join(allowed, ", "))
}

// ScanReport is the result of a scan command.
type ScanReport struct {
	Source     string                  `json:"source" yaml:"source"`
	Repository *git.RepositoryMetadata `json:"repository,omitempty" yaml:"repository,omitempty"`
	Summary    map[string]int          `json:"summary" yaml:"summary"`
	Warning    *ingest.Warning         `json:"warning,omitempty" yaml:"warning,omitempty"`
	Files      []findings.AnalyzedFile `json:"files" yaml:"files"`
}

// NewScanReport summarizes files scanned from d.
func NewScanReport(d ingest.Descriptor, files []findings.AnalyzedFile) ScanReport {
	r := ScanReport{
		Source:  d.String(),
		Summary: findings.CollectSeverityInfo(files),
		Files:   files,
	}
	if !d.Warning.Empty() {
		r.Warning = d.Warning
	}
	return r
}

// FixReport is the result of a fix command.
type FixReport struct {
	File     string                 `json:"file" yaml:"file"`
	Finding  findings.Finding       `json:"finding" yaml:"finding"`
	Proposal findings.FixProposal   `json:"proposal" yaml:"proposal"`
	Applied  bool                   `json:"applied" yaml:"applied"`
	Outcome  *workflow.ApplyOutcome `json:"outcome,omitempty" yaml:"outcome,omitempty"`
}

// VerifyReport is the result of a verify command.
type VerifyReport struct {
	Finding findings.Finding      `json:"finding" yaml:"finding"`
	Result  findings.VerifyResult `json:"result" yaml:"result"`
}

// WriteScan renders r in format. SARIF uses opts, the other formats ignore it.
func WriteScan(w io.Writer, format string, r ScanReport, opts internalsarif.ReportOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	case FormatSARIF:
		opts.Repository = r.Repository
		return internalsarif.WriteReport(w, r.Files, opts)
	default:
		displayScan(w, r)
		return nil
	}
}

// WriteFix renders r in format.
func WriteFix(w io.Writer, format string, r FixReport) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	default:
		displayFix(w, r)
		return nil
	}
}

// WriteVerify renders r in format.
func WriteVerify(w io.Writer, format string, r VerifyReport) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	default:
		displayVerify(w, r)
		return nil
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func writeYAML(w io.Writer, v interface{}) error {
	output, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(output)
	return err
}

func displayScan(w io.Writer, r ScanReport) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	cyan.Fprintf(w, "🔍 Scan results for %s\n", r.Source)
	if r.Repository != nil {
		fmt.Fprintf(w, "📍 Repository: %s\n", r.Repository.Describe())
	}
	if r.Warning != nil {
		yellow.Fprintf(w, "⚠️  Ingestion: %s\n", r.Warning.String())
	}
	fmt.Fprintln(w)

	if len(r.Files) == 0 {
		yellow.Fprintln(w, workflow.NoticeEmptyResult)
		return
	}

	for _, file := range r.Files {
		if len(file.Findings) == 0 {
			fmt.Fprintf(w, "%s %s\n", green.Sprint("✓"), file.Path)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", color.RedString("[%d]", len(file.Findings)), file.Path)
		for _, f := range file.Findings {
			fmt.Fprintf(w, "   %s %-8s L%-4d %s %s\n",
				severityIcon(f.Severity),
				severityColor(f.Severity).Sprint(strings.ToUpper(f.Severity)),
				f.Line, f.Kind, color.HiBlackString("(%s)", f.ID))
			if content := strings.TrimSpace(f.Content); content != "" {
				fmt.Fprintf(w, "      %s\n", color.YellowString(content))
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "📊 %d findings in %d files%s\n", r.Summary["total"], len(r.Files), severityBreakdown(r.Summary))
	fmt.Fprintln(w, strings.Repeat("─", 80))
	fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run with -o json, -o yaml or -o sarif for machine-readable output"))
}

func displayFix(w io.Writer, r FixReport) {
	cyan := color.New(color.FgCyan, color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)

	cyan.Fprintf(w, "🛠  %s at %s:%d\n\n", r.Finding.Kind, r.File, r.Finding.Line)
	for _, l := range strings.Split(r.Proposal.OriginalSnippet, "\n") {
		red.Fprintf(w, "- %s\n", l)
	}
	for _, l := range strings.Split(r.Proposal.FixedSnippet, "\n") {
		green.Fprintf(w, "+ %s\n", l)
	}
	if r.Proposal.Explanation != "" {
		fmt.Fprintf(w, "\n%s\n", wrapText(r.Proposal.Explanation, 80, "   "))
	}
	fmt.Fprintln(w)

	switch {
	case r.Outcome != nil:
		green.Fprintf(w, "✅ Fix applied. %s\n", r.Outcome.Summary())
		for _, m := range r.Outcome.Persisting {
			for _, n := range m.New {
				moved := ""
				if n.Line != m.Known.Line {
					moved = fmt.Sprintf(" (was line %d)", m.Known.Line)
				}
				fmt.Fprintf(w, "   • still reported: %s at line %d%s\n", n.Kind, n.Line, moved)
			}
		}
	case r.Applied:
		green.Fprintln(w, "✅ Fix applied.")
	default:
		fmt.Fprintf(w, "💡 %s\n", color.HiBlackString("Run again with --apply to write the fix"))
	}
}

func displayVerify(w io.Writer, r VerifyReport) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, r.Result.Summary())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Reasoning:")
	fmt.Fprintln(w, wrapText(r.Result.Reasoning, 80, "   "))
}

func severityBreakdown(summary map[string]int) string {
	var keys []string
	for k, v := range summary {
		if k != "total" && v > 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Slice(keys, func(i, j int) bool {
		return severityRank(keys[i]) < severityRank(keys[j])
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %d", k, summary[k])
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func severityRank(severity string) int {
	switch strings.ToLower(severity) {
	case "critical":
		return 0
	case "high":
		return 1
	case "medium":
		return 2
	case "low":
		return 3
	default:
		return 4
	}
}

func severityColor(severity string) *color.Color {
	switch strings.ToLower(severity) {
	case "critical":
		return color.New(color.FgRed, color.Bold)
	case "high":
		return color.New(color.FgRed)
	case "medium":
		return color.New(color.FgYellow)
	case "low":
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgWhite)
	}
}

func severityIcon(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "🔴"
	case "high":
		return "🟠"
	case "medium":
		return "🟡"
	case "low":
		return "🟢"
	default:
		return "⚪"
	}
}

func wrapText(text string, width int, indent string) string {
	var result strings.Builder
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}

		current := indent
		for _, word := range words {
			switch {
			case len(current)+len(word)+1 > width && current != indent:
				result.WriteString(current + "\n")
				current = indent + word
			case current == indent:
				current += word
			default:
				current += " " + word
			}
		}
		result.WriteString(current + "\n")
	}
	return strings.TrimSuffix(result.String(), "\n")
}
