package workflow

import (
	"context"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-audit/internal/auditclient"
	"github.com/scan-io-git/scanio-audit/internal/findings"
	"github.com/scan-io-git/scanio-audit/internal/ingest"
	"github.com/scan-io-git/scanio-audit/pkg/issuecorrelation"
)

// Scanner runs the scan exchange for a descriptor. *ingest.Session implements it.
type Scanner interface {
	Submit(ctx context.Context, d ingest.Descriptor) ([]findings.AnalyzedFile, error)
}

// Fixer runs the per-finding exchanges. *auditclient.Client implements it.
type Fixer interface {
	GenerateFix(ctx context.Context, finding findings.Finding) (findings.FixProposal, error)
	ApplyFix(ctx context.Context, filePath string, line int, newContent string) (auditclient.ApplyResult, error)
	Verify(ctx context.Context, finding findings.Finding) (findings.VerifyResult, error)
}

// pendingApply remembers what an applied fix targeted until the re-scan lands.
type pendingApply struct {
	filePath string
	line     int
	before   []issuecorrelation.IssueMetadata
}

// Coordinator owns the session state and is the only writer of it. Every
// event is a method that moves the state into its in-flight phase under the
// lock, runs the exchange without the lock and applies the completion under
// the lock again. Methods block until their exchange resolves.
type Coordinator struct {
	scanner Scanner
	fixer   Fixer
	logger  hclog.Logger

	mu         sync.Mutex
	state      State
	files      []findings.AnalyzedFile
	hasResult  bool
	selection  Selection
	finding    *findings.Finding
	proposal   *findings.FixProposal
	source     *ingest.Descriptor
	scanning   *ingest.Descriptor
	scanSeq    uint64
	applied    *pendingApply
	outcome    *ApplyOutcome
	notice     string
	lastErr    error
	version    uint64

	notifyMu    sync.Mutex
	delivered   uint64
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// NewCoordinator creates a Coordinator in the Empty state.
func NewCoordinator(scanner Scanner, fixer Fixer, logger hclog.Logger) *Coordinator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Coordinator{
		scanner:     scanner,
		fixer:       fixer,
		logger:      logger,
		selection:   NewSelection(),
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn to receive a snapshot after every transition, in
// version order. fn must not block for long. The returned function removes it.
func (c *Coordinator) Subscribe(fn func(Snapshot)) func() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	return func() {
		c.notifyMu.Lock()
		defer c.notifyMu.Unlock()
		delete(c.subscribers, id)
	}
}

// Snapshot returns the current session view.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SubmitScan scans d and replaces the file collection with the result. It is
// accepted with no session, with a loaded session and while another scan is
// running, in which case the older scan's result is discarded. On failure a
// previously loaded collection is kept.
func (c *Coordinator) SubmitScan(ctx context.Context, d ingest.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	switch c.state {
	case Empty, Loaded, Scanning:
	case FixRequested, Applying:
		c.mu.Unlock()
		return ErrBusy
	default:
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	if c.state == Scanning {
		c.logger.Info("superseding in-flight scan", "source", d.String())
	}
	c.applied = nil
	c.outcome = nil
	c.notice = ""
	seq := c.startScanLocked(d)
	c.commit()

	return c.runScan(ctx, seq, d)
}

// startScanLocked moves to Scanning with a fresh sequence number.
func (c *Coordinator) startScanLocked(d ingest.Descriptor) uint64 {
	c.scanSeq++
	stored := d
	c.scanning = &stored
	c.state = Scanning
	c.finding = nil
	c.proposal = nil
	c.lastErr = nil
	return c.scanSeq
}

func (c *Coordinator) runScan(ctx context.Context, seq uint64, d ingest.Descriptor) error {
	files, err := c.scanner.Submit(ctx, d)

	c.mu.Lock()
	if seq != c.scanSeq || c.state != Scanning {
		c.mu.Unlock()
		c.logger.Debug("discarding stale scan result", "source", d.String(), "seq", seq)
		return ErrSuperseded
	}

	if err != nil {
		c.logger.Error("scan failed", "source", d.String(), "error", err)
		if c.hasResult {
			c.state = Loaded
		} else {
			c.state = Empty
		}
		c.scanning = nil
		c.applied = nil
		c.lastErr = err
		c.notice = NoticeScanFailed
		c.commit()
		return err
	}

	c.files = files
	c.hasResult = true
	c.source = c.scanning
	c.scanning = nil
	c.state = Loaded
	c.notice = ""
	if len(files) > 0 {
		_ = c.selection.Select(0, len(files))
	} else {
		c.selection.Clear()
		c.notice = NoticeEmptyResult
	}

	if c.applied != nil {
		outcome := correlate(*c.applied, files)
		c.outcome = &outcome
		c.applied = nil
		c.logger.Info("fix outcome", "file", outcome.FilePath, "resolved", len(outcome.Resolved), "introduced", len(outcome.Introduced))
	}
	c.commit()
	return nil
}

// SelectFile makes file i active.
func (c *Coordinator) SelectFile(i int) error {
	c.mu.Lock()
	switch c.state {
	case Loaded:
	case FixRequested, Applying:
		c.mu.Unlock()
		return ErrBusy
	default:
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	if err := c.selection.Select(i, len(c.files)); err != nil {
		c.mu.Unlock()
		return err
	}
	c.commit()
	return nil
}

// SetFilter toggles the errors-only view. It is valid in every state and never
// changes the file collection or the selection.
func (c *Coordinator) SetFilter(errorsOnly bool) {
	c.mu.Lock()
	c.selection.SetFilter(errorsOnly)
	c.commit()
}

// ClickFinding requests a fix proposal for finding id of the active file.
// Only one fix or apply may be outstanding at a time.
func (c *Coordinator) ClickFinding(ctx context.Context, id string) error {
	c.mu.Lock()
	switch c.state {
	case Loaded:
	case FixRequested, Applying:
		c.mu.Unlock()
		return ErrBusy
	default:
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	idx, ok := c.selection.FileIndex()
	if !ok || idx >= len(c.files) {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	finding, ok := c.files[idx].FindingByID(id)
	if !ok {
		c.mu.Unlock()
		return ErrUnknownFinding
	}
	c.state = FixRequested
	c.finding = &finding
	c.lastErr = nil
	c.notice = ""
	c.commit()

	proposal, err := c.fixer.GenerateFix(ctx, finding)

	c.mu.Lock()
	if err != nil {
		c.logger.Error("fix generation failed", "finding", id, "error", err)
		c.state = Loaded
		c.finding = nil
		c.lastErr = err
		c.notice = NoticeFixFailed
		c.commit()
		return err
	}
	c.state = FixReady
	c.proposal = &proposal
	c.commit()
	return nil
}

// Cancel discards the proposal under review.
func (c *Coordinator) Cancel() error {
	c.mu.Lock()
	switch c.state {
	case FixReady:
	case FixRequested, Applying:
		c.mu.Unlock()
		return ErrBusy
	default:
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.state = Loaded
	c.finding = nil
	c.proposal = nil
	c.lastErr = nil
	c.commit()
	return nil
}

// Apply writes the proposal under review and, on success, re-scans the stored
// descriptor. A failed apply keeps the proposal for another attempt.
func (c *Coordinator) Apply(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case FixReady:
	case FixRequested, Applying:
		c.mu.Unlock()
		return ErrBusy
	default:
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	idx, ok := c.selection.FileIndex()
	if !ok || idx >= len(c.files) || c.finding == nil || c.proposal == nil || c.source == nil {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	file := c.files[idx]
	target := pendingApply{
		filePath: file.Path,
		line:     c.finding.Line,
		before:   issuecorrelation.FromFiles(c.files, file.Path),
	}
	fixed := c.proposal.FixedSnippet
	c.state = Applying
	c.lastErr = nil
	c.commit()

	res, err := c.fixer.ApplyFix(ctx, target.filePath, target.line, fixed)

	c.mu.Lock()
	if err != nil {
		c.logger.Error("apply failed", "file", target.filePath, "line", target.line, "error", err)
		c.state = FixReady
		c.lastErr = err
		c.notice = NoticeApplyFailed
		c.commit()
		return err
	}
	c.logger.Info("fix applied", "file", target.filePath, "line", target.line, "message", res.Message)

	d := *c.source
	c.notice = NoticeFixApplied
	c.applied = &target
	c.outcome = nil
	seq := c.startScanLocked(d)
	c.commit()

	return c.runScan(ctx, seq, d)
}

// Verify asks the backend whether finding is a false positive. It is valid in
// every state and never changes the session.
func (c *Coordinator) Verify(ctx context.Context, finding findings.Finding) (findings.VerifyResult, error) {
	return c.fixer.Verify(ctx, finding)
}

// Reset drops the loaded session and returns to Empty.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	switch c.state {
	case Empty, Loaded:
	case Scanning, FixRequested, Applying:
		c.mu.Unlock()
		return ErrBusy
	default:
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.state = Empty
	c.files = nil
	c.hasResult = false
	c.selection.Clear()
	c.finding = nil
	c.proposal = nil
	c.source = nil
	c.outcome = nil
	c.notice = ""
	c.lastErr = nil
	c.commit()
	return nil
}

// commit publishes the current state and releases c.mu. Callers must hold c.mu.
func (c *Coordinator) commit() {
	c.version++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Coordinator) notify(snap Snapshot) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if snap.Version <= c.delivered {
		return
	}
	c.delivered = snap.Version
	for _, fn := range c.subscribers {
		fn(snap)
	}
}

func (c *Coordinator) snapshotLocked() Snapshot {
	idx, ok := c.selection.FileIndex()
	if !ok {
		idx = -1
	}
	snap := Snapshot{
		Version:        c.version,
		State:          c.state,
		Files:          c.files,
		Visible:        c.selection.Visible(c.files),
		SelectedFile:   idx,
		SelectedHidden: c.selection.Hidden(c.files),
		ErrorsOnly:     c.selection.ErrorsOnly(),
		Outcome:        c.outcome,
		Notice:         c.notice,
		Err:            c.lastErr,
	}
	if c.finding != nil {
		f := *c.finding
		snap.SelectedFinding = &f
	}
	if c.proposal != nil {
		p := *c.proposal
		snap.Proposal = &p
	}
	src := c.source
	if c.scanning != nil {
		src = c.scanning
	}
	if src != nil {
		snap.Source = src.String()
		snap.Warning = src.Warning
	}
	return snap
}

// correlate compares the fixed file's findings before and after the re-scan.
func correlate(p pendingApply, after []findings.AnalyzedFile) ApplyOutcome {
	now := issuecorrelation.FromFiles(after, p.filePath)
	corr := issuecorrelation.NewCorrelator(now, p.before)
	corr.Process()
	return ApplyOutcome{
		FilePath:   p.filePath,
		Line:       p.line,
		Resolved:   corr.UnmatchedKnown(),
		Introduced: corr.UnmatchedNew(),
		Persisting: corr.Matches(),
		Remaining:  len(now),
	}
}
