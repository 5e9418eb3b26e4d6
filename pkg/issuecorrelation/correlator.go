package issuecorrelation

import (
	"sort"

	"github.com/scan-io-git/scanio-audit/internal/findings"
)

// IssueMetadata describes the minimal metadata required to correlate findings
// across two scans of the same source.
// Fields:
//   - IssueID: finding id in its scan, not used by correlation logic since ids are not stable across scans.
//   - Kind: vulnerability type reported by the backend.
//   - Filename, Line: location inside a file.
//   - SnippetHash: fingerprint of the flagged code used for stronger matching.
type IssueMetadata struct {
	IssueID     string
	Kind        string
	Severity    string
	Filename    string
	Line        int
	SnippetHash string
}

// Match groups a known issue with the new issues that correlate to it.
// A new issue may appear in multiple Match.New slices if it correlates to
// multiple known issues.
type Match struct {
	Known IssueMetadata
	New   []IssueMetadata
}

// Correlator accepts slices of new and known issues and computes correlations
// between them. Use NewCorrelator to create an instance and call Process() to
// compute matches. After processing, use Matches(), UnmatchedNew() and
// UnmatchedKnown() to inspect results. The correlator preserves many-to-many
// relationships: a known issue may match multiple new issues and vice versa.
type Correlator struct {
	NewIssues   []IssueMetadata
	KnownIssues []IssueMetadata

	knownToNew map[int][]int
	newToKnown map[int][]int

	processed bool
}

// NewCorrelator constructs a Correlator with the provided slices of new and
// known issues. The correlator is inert until Process() is called.
func NewCorrelator(newIssues, knownIssues []IssueMetadata) *Correlator {
	return &Correlator{
		NewIssues:   newIssues,
		KnownIssues: knownIssues,
	}
}

// Process computes correlations between every known and every new issue using
// three ordered stages. Once a known or new issue has been matched in an
// earlier stage it is excluded from later stages. The stages are:
// 1) kind+filename+line+snippethash
// 2) kind+filename+snippethash (the flagged code moved)
// 3) kind+filename+line (the flagged code changed in place)
// Process is idempotent.
func (c *Correlator) Process() {
	if c.processed {
		return
	}
	c.knownToNew = make(map[int][]int)
	c.newToKnown = make(map[int][]int)

	// matched* track indices matched in earlier stages; matches within the
	// same stage may still be many-to-many.
	matchedKnown := make(map[int]bool)
	matchedNew := make(map[int]bool)

	for _, stage := range []int{1, 2, 3} {
		matchedKnownThis := make(map[int]bool)
		matchedNewThis := make(map[int]bool)

		for ki, k := range c.KnownIssues {
			if matchedKnown[ki] {
				continue
			}
			for ni, n := range c.NewIssues {
				if matchedNew[ni] {
					continue
				}

				if matchStage(k, n, stage) {
					c.knownToNew[ki] = append(c.knownToNew[ki], ni)
					c.newToKnown[ni] = append(c.newToKnown[ni], ki)
					matchedKnownThis[ki] = true
					matchedNewThis[ni] = true
				}
			}
		}

		for ki := range matchedKnownThis {
			matchedKnown[ki] = true
		}
		for ni := range matchedNewThis {
			matchedNew[ni] = true
		}
	}

	c.processed = true
}

// matchStage reports whether two issues match under the given stage rules.
// Kind and Filename must agree in every stage.
func matchStage(a, b IssueMetadata, stage int) bool {
	if a.Kind == "" || b.Kind == "" {
		return false
	}
	if a.Kind != b.Kind || a.Filename != b.Filename {
		return false
	}

	hashed := a.SnippetHash != "" && b.SnippetHash != ""
	switch stage {
	case 1:
		return hashed && a.Line == b.Line && a.SnippetHash == b.SnippetHash
	case 2:
		return hashed && a.SnippetHash == b.SnippetHash
	case 3:
		return a.Line == b.Line
	default:
		return false
	}
}

// UnmatchedNew returns the subset of new issues that were not correlated to
// any known issue. If Process() has not yet been run it will be invoked.
func (c *Correlator) UnmatchedNew() []IssueMetadata {
	if !c.processed {
		c.Process()
	}

	var out []IssueMetadata
	for ni, n := range c.NewIssues {
		if len(c.newToKnown[ni]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// UnmatchedKnown returns the subset of known issues that were not correlated
// to any new issue. If Process() has not yet been run it will be invoked.
func (c *Correlator) UnmatchedKnown() []IssueMetadata {
	if !c.processed {
		c.Process()
	}

	var out []IssueMetadata
	for ki, k := range c.KnownIssues {
		if len(c.knownToNew[ki]) == 0 {
			out = append(out, k)
		}
	}
	return out
}

// Matches returns one Match per known issue that had at least one correlated
// new issue, in known-issue order.
func (c *Correlator) Matches() []Match {
	if !c.processed {
		c.Process()
	}

	known := make([]int, 0, len(c.knownToNew))
	for ki := range c.knownToNew {
		known = append(known, ki)
	}
	sort.Ints(known)

	var out []Match
	for _, ki := range known {
		newIdxs := c.knownToNew[ki]
		if len(newIdxs) == 0 {
			continue
		}
		m := Match{Known: c.KnownIssues[ki], New: make([]IssueMetadata, 0, len(newIdxs))}
		for _, ni := range newIdxs {
			m.New = append(m.New, c.NewIssues[ni])
		}
		out = append(out, m)
	}
	return out
}

// FromFiles converts the findings of files into correlation metadata. When
// path is not empty only the file with that path is considered.
func FromFiles(files []findings.AnalyzedFile, path string) []IssueMetadata {
	var out []IssueMetadata
	for _, f := range files {
		if path != "" && f.Path != path {
			continue
		}
		for _, finding := range f.Findings {
			hash := SnippetHashOf(finding.Content)
			if hash == "" {
				hash = ComputeSnippetHash(f.Content, finding.Line, finding.Line)
			}
			out = append(out, IssueMetadata{
				IssueID:     finding.ID,
				Kind:        finding.Kind,
				Severity:    finding.Severity,
				Filename:    f.Path,
				Line:        finding.Line,
				SnippetHash: hash,
			})
		}
	}
	return out
}
