package findings

import (
	"fmt"
	"strings"
)

// Finding is one potential security issue reported by the scan service at a specific line.
// Findings are immutable once produced by the service.
type Finding struct {
	ID       string `json:"id" yaml:"id"`
	Line     int    `json:"line" yaml:"line"`
	Content  string `json:"content" yaml:"content"`
	Kind     string `json:"type" yaml:"type"`
	Severity string `json:"severity" yaml:"severity"`
}

// AnalyzedFile is a scanned file together with its ordered findings.
type AnalyzedFile struct {
	Name     string    `json:"filename" yaml:"filename"`
	Path     string    `json:"filepath" yaml:"filepath"`
	Content  string    `json:"content" yaml:"-"`
	Findings []Finding `json:"vulnerabilities" yaml:"vulnerabilities"`
}

// FindingByID returns the finding with the given id.
func (f AnalyzedFile) FindingByID(id string) (Finding, bool) {
	for _, finding := range f.Findings {
		if finding.ID == id {
			return finding, true
		}
	}
	return Finding{}, false
}

// FixProposal is a proposed before/after snippet pair with rationale for one finding.
type FixProposal struct {
	OriginalSnippet string `json:"original_snippet" yaml:"original_snippet"`
	FixedSnippet    string `json:"fixed_snippet" yaml:"fixed_snippet"`
	Explanation     string `json:"explanation" yaml:"explanation"`
}

// VerifyResult is the backend's opinion on whether a finding is a false positive.
type VerifyResult struct {
	IsFalsePositive bool    `json:"is_false_positive" yaml:"is_false_positive"`
	Confidence      float64 `json:"confidence" yaml:"confidence"`
	Reasoning       string  `json:"reasoning" yaml:"reasoning"`
}

// Title returns the human label for the verdict.
func (r VerifyResult) Title() string {
	if r.IsFalsePositive {
		return "Likely False Positive"
	}
	return "True Positive"
}

// Summary renders the verdict headline with its confidence as a percentage.
func (r VerifyResult) Summary() string {
	emoji := "🔴"
	if r.IsFalsePositive {
		emoji = "🟢"
	}
	return fmt.Sprintf("%s %s (Confidence: %.1f%%)", emoji, r.Title(), r.Confidence*100)
}

// CountFindings returns the total number of findings across files.
func CountFindings(files []AnalyzedFile) int {
	total := 0
	for _, f := range files {
		total += len(f.Findings)
	}
	return total
}

// CollectSeverityInfo counts findings per lower-cased severity plus a "total" entry.
func CollectSeverityInfo(files []AnalyzedFile) map[string]int {
	info := map[string]int{"total": 0}
	for _, f := range files {
		for _, finding := range f.Findings {
			info[strings.ToLower(finding.Severity)]++
			info["total"]++
		}
	}
	return info
}

// Validate checks the data model invariants of a scan result: every file has a
// path, paths are unique, finding ids are unique within a file and lines are positive.
func Validate(files []AnalyzedFile) error {
	paths := make(map[string]struct{}, len(files))
	for i, f := range files {
		if strings.TrimSpace(f.Path) == "" {
			return fmt.Errorf("file #%d has no path", i)
		}
		if _, dup := paths[f.Path]; dup {
			return fmt.Errorf("duplicate file path %q", f.Path)
		}
		paths[f.Path] = struct{}{}

		ids := make(map[string]struct{}, len(f.Findings))
		for _, finding := range f.Findings {
			if finding.ID == "" {
				return fmt.Errorf("file %q: finding without id", f.Path)
			}
			if _, dup := ids[finding.ID]; dup {
				return fmt.Errorf("file %q: duplicate finding id %q", f.Path, finding.ID)
			}
			ids[finding.ID] = struct{}{}
			if finding.Line <= 0 {
				return fmt.Errorf("file %q: finding %q has non-positive line %d", f.Path, finding.ID, finding.Line)
			}
		}
	}
	return nil
}
