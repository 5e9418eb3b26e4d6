package workflow

import (
	stderrors "errors"
	"fmt"

	"github.com/scan-io-git/scanio-audit/internal/findings"
	"github.com/scan-io-git/scanio-audit/internal/ingest"
	"github.com/scan-io-git/scanio-audit/pkg/issuecorrelation"
)

// State is a phase of the audit workflow.
type State int

const (
	Empty State = iota
	Scanning
	Loaded
	FixRequested
	FixReady
	Applying
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Scanning:
		return "scanning"
	case Loaded:
		return "loaded"
	case FixRequested:
		return "fix-requested"
	case FixReady:
		return "fix-ready"
	case Applying:
		return "applying"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// InFlight reports whether an exchange with the backend is outstanding.
func (s State) InFlight() bool {
	return s == Scanning || s == FixRequested || s == Applying
}

var (
	// ErrBusy rejects a fix or apply while another one is outstanding.
	ErrBusy = stderrors.New("a fix operation is already in progress")
	// ErrInvalidTransition rejects an event that is not valid in the current state.
	ErrInvalidTransition = stderrors.New("action not available in the current state")
	// ErrUnknownFinding rejects a finding id that is not part of the active file.
	ErrUnknownFinding = stderrors.New("finding not found in the selected file")
	// ErrSuperseded is returned to the caller of a scan that a newer scan replaced.
	ErrSuperseded = stderrors.New("scan superseded by a newer scan")
)

// User facing notices.
const (
	NoticeEmptyResult = "No supported files found in directory."
	NoticeFixApplied  = "Fix applied! Refreshing results..."
	NoticeScanFailed  = "Failed to scan path. Ensure the path exists and the backend has access."
	NoticeFixFailed   = "Failed to generate fix"
	NoticeApplyFailed = "Failed to apply fix"
)

// ApplyOutcome compares the findings of a fixed file before and after the
// automatic re-scan.
type ApplyOutcome struct {
	FilePath   string
	Line       int
	Resolved   []issuecorrelation.IssueMetadata
	Introduced []issuecorrelation.IssueMetadata
	// Persisting pairs each finding reported before the fix with the
	// findings that still carry it after the re-scan.
	Persisting []issuecorrelation.Match
	Remaining  int
}

// Summary is a one-line description of the outcome.
func (o ApplyOutcome) Summary() string {
	return fmt.Sprintf("%s: %d resolved, %d introduced, %d remaining",
		o.FilePath, len(o.Resolved), len(o.Introduced), o.Remaining)
}

// Snapshot is an immutable view of the session published after every
// transition. Slices are shared with the coordinator and must not be modified.
type Snapshot struct {
	Version uint64
	State   State

	Files        []findings.AnalyzedFile
	Visible      []VisibleFile
	SelectedFile int
	// SelectedHidden is set when the errors-only filter hides the active file.
	SelectedHidden bool
	ErrorsOnly     bool

	SelectedFinding *findings.Finding
	Proposal        *findings.FixProposal

	Source  string
	Warning *ingest.Warning
	Outcome *ApplyOutcome

	Notice string
	Err    error
}

// ActiveFile returns the selected file.
func (s Snapshot) ActiveFile() (findings.AnalyzedFile, bool) {
	if s.SelectedFile < 0 || s.SelectedFile >= len(s.Files) {
		return findings.AnalyzedFile{}, false
	}
	return s.Files[s.SelectedFile], true
}
