package workflow

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-audit/internal/auditclient"
	"github.com/scan-io-git/scanio-audit/internal/findings"
	"github.com/scan-io-git/scanio-audit/internal/ingest"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
)

type scanReply struct {
	files []findings.AnalyzedFile
	err   error
	gate  chan struct{}
}

type fakeScanner struct {
	mu      sync.Mutex
	replies []scanReply
	calls   []ingest.Descriptor
}

func (s *fakeScanner) Submit(ctx context.Context, d ingest.Descriptor) ([]findings.AnalyzedFile, error) {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	var r scanReply
	if len(s.replies) > 0 {
		r = s.replies[0]
		s.replies = s.replies[1:]
	}
	s.mu.Unlock()

	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.files, r.err
}

func (s *fakeScanner) queue(replies ...scanReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
}

func (s *fakeScanner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fakeFixer struct {
	mu         sync.Mutex
	fixCalls   int
	applyCalls []applyCall
	fixGate    chan struct{}
	proposal   findings.FixProposal
	fixErr     error
	applyErr   error
	verify     findings.VerifyResult
}

type applyCall struct {
	path    string
	line    int
	content string
}

func (f *fakeFixer) GenerateFix(ctx context.Context, _ findings.Finding) (findings.FixProposal, error) {
	f.mu.Lock()
	f.fixCalls++
	gate := f.fixGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.proposal, f.fixErr
}

func (f *fakeFixer) ApplyFix(_ context.Context, path string, line int, content string) (auditclient.ApplyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls = append(f.applyCalls, applyCall{path, line, content})
	if f.applyErr != nil {
		return auditclient.ApplyResult{}, f.applyErr
	}
	return auditclient.ApplyResult{Status: "success", Message: "ok"}, nil
}

func (f *fakeFixer) Verify(context.Context, findings.Finding) (findings.VerifyResult, error) {
	return f.verify, nil
}

func sampleFiles() []findings.AnalyzedFile {
	return []findings.AnalyzedFile{
		{Name: "db.py", Path: "/src/db.py", Content: "import db\ncursor.execute(q)\n", Findings: []findings.Finding{
			{ID: "v1", Line: 2, Kind: "SQL Injection", Severity: "HIGH", Content: "cursor.execute(q)"},
			{ID: "v2", Line: 1, Kind: "Weak Import", Severity: "LOW", Content: "import db"},
		}},
		{Name: "ok.py", Path: "/src/ok.py"},
		{Name: "web.js", Path: "/src/web.js", Findings: []findings.Finding{
			{ID: "v3", Line: 5, Kind: "XSS", Severity: "MEDIUM", Content: "el.innerHTML = x"},
		}},
	}
}

func loaded(t *testing.T) (*Coordinator, *fakeScanner, *fakeFixer) {
	t.Helper()
	scanner := &fakeScanner{}
	fixer := &fakeFixer{proposal: findings.FixProposal{
		OriginalSnippet: "cursor.execute(q)",
		FixedSnippet:    "cursor.execute(q, params)",
		Explanation:     "Use parameters.",
	}}
	c := NewCoordinator(scanner, fixer, nil)
	scanner.queue(scanReply{files: sampleFiles()})
	require.NoError(t, c.SubmitScan(context.Background(), ingest.Descriptor{Path: "/src"}))
	require.Equal(t, Loaded, c.Snapshot().State)
	return c, scanner, fixer
}

func waitForState(t *testing.T, c *Coordinator, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return c.Snapshot().State == want }, 2*time.Second, time.Millisecond)
}

func TestSubmitScanSelectsFirstFile(t *testing.T) {
	c, _, _ := loaded(t)
	snap := c.Snapshot()

	assert.Len(t, snap.Files, 3)
	assert.Equal(t, 0, snap.SelectedFile)
	assert.Equal(t, "/src", snap.Source)
	assert.Empty(t, snap.Notice)
	assert.NoError(t, snap.Err)

	active, ok := snap.ActiveFile()
	require.True(t, ok)
	assert.Equal(t, "db.py", active.Name)
}

func TestSubmitScanEmptyResult(t *testing.T) {
	scanner := &fakeScanner{}
	scanner.queue(scanReply{files: []findings.AnalyzedFile{}})
	c := NewCoordinator(scanner, &fakeFixer{}, nil)

	require.NoError(t, c.SubmitScan(context.Background(), ingest.Descriptor{Path: "/empty"}))
	snap := c.Snapshot()
	assert.Equal(t, Loaded, snap.State)
	assert.Equal(t, -1, snap.SelectedFile)
	assert.Equal(t, NoticeEmptyResult, snap.Notice)
}

func TestSubmitScanRejectsInvalidDescriptor(t *testing.T) {
	scanner := &fakeScanner{}
	c := NewCoordinator(scanner, &fakeFixer{}, nil)

	err := c.SubmitScan(context.Background(), ingest.Descriptor{})
	var vErr *errors.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, Empty, c.Snapshot().State)
	assert.Zero(t, scanner.callCount())
}

func TestFirstScanFailureReturnsToEmpty(t *testing.T) {
	scanner := &fakeScanner{}
	cause := errors.NewOperationError(errors.OpScan, stderrors.New("connection refused"))
	scanner.queue(scanReply{err: cause})
	c := NewCoordinator(scanner, &fakeFixer{}, nil)

	err := c.SubmitScan(context.Background(), ingest.Descriptor{Path: "/src"})
	assert.ErrorIs(t, err, cause)

	snap := c.Snapshot()
	assert.Equal(t, Empty, snap.State)
	assert.Empty(t, snap.Files)
	assert.Equal(t, NoticeScanFailed, snap.Notice)
	assert.ErrorIs(t, snap.Err, cause)
}

func TestRescanFailureKeepsLoadedFiles(t *testing.T) {
	c, scanner, _ := loaded(t)
	require.NoError(t, c.SelectFile(2))
	before := c.Snapshot()

	scanner.queue(scanReply{err: stderrors.New("backend down")})
	assert.Error(t, c.SubmitScan(context.Background(), ingest.Descriptor{Path: "/other"}))

	after := c.Snapshot()
	assert.Equal(t, Loaded, after.State)
	assert.Equal(t, before.Files, after.Files)
	assert.Equal(t, 2, after.SelectedFile)
	assert.Equal(t, "/src", after.Source)
}

func TestSelectFile(t *testing.T) {
	c, _, _ := loaded(t)

	require.NoError(t, c.SelectFile(1))
	assert.Equal(t, 1, c.Snapshot().SelectedFile)

	err := c.SelectFile(3)
	var vErr *errors.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, 1, c.Snapshot().SelectedFile)
}

func TestFilterRoundTripAndBadges(t *testing.T) {
	c, _, _ := loaded(t)
	original := c.Snapshot().Visible
	require.Len(t, original, 3)

	require.NoError(t, c.SelectFile(1))
	c.SetFilter(true)
	filtered := c.Snapshot()
	assert.Equal(t, []VisibleFile{
		{Index: 0, Name: "db.py", Path: "/src/db.py", Badge: 2},
		{Index: 2, Name: "web.js", Path: "/src/web.js", Badge: 1},
	}, filtered.Visible)
	// The hidden file stays selected.
	assert.Equal(t, 1, filtered.SelectedFile)
	assert.True(t, filtered.SelectedHidden)
	assert.Len(t, filtered.Files, 3)

	c.SetFilter(false)
	restored := c.Snapshot()
	assert.Equal(t, original, restored.Visible)
	assert.False(t, restored.SelectedHidden)
}

func TestClickFindingThenCancel(t *testing.T) {
	c, _, fixer := loaded(t)
	before := c.Snapshot()

	require.NoError(t, c.ClickFinding(context.Background(), "v1"))
	ready := c.Snapshot()
	assert.Equal(t, FixReady, ready.State)
	require.NotNil(t, ready.SelectedFinding)
	assert.Equal(t, "v1", ready.SelectedFinding.ID)
	require.NotNil(t, ready.Proposal)
	assert.Equal(t, fixer.proposal, *ready.Proposal)

	require.NoError(t, c.Cancel())
	after := c.Snapshot()
	assert.Equal(t, Loaded, after.State)
	assert.Nil(t, after.Proposal)
	assert.Nil(t, after.SelectedFinding)
	assert.Equal(t, before.Files, after.Files)
	assert.Equal(t, before.SelectedFile, after.SelectedFile)
}

func TestClickFindingUnknownID(t *testing.T) {
	c, _, fixer := loaded(t)

	assert.ErrorIs(t, c.ClickFinding(context.Background(), "v3"), ErrUnknownFinding)
	assert.Equal(t, Loaded, c.Snapshot().State)
	assert.Zero(t, fixer.fixCalls)
}

func TestFixFailureReturnsToLoaded(t *testing.T) {
	c, _, fixer := loaded(t)
	fixer.fixErr = errors.NewOperationError(errors.OpGenerateFix, stderrors.New("model timeout"))

	err := c.ClickFinding(context.Background(), "v1")
	assert.True(t, errors.IsOp(err, errors.OpGenerateFix))

	snap := c.Snapshot()
	assert.Equal(t, Loaded, snap.State)
	assert.Nil(t, snap.SelectedFinding)
	assert.Equal(t, NoticeFixFailed, snap.Notice)
}

func TestSecondClickWhileFixInFlightIsRejected(t *testing.T) {
	c, _, fixer := loaded(t)
	gate := make(chan struct{})
	fixer.fixGate = gate

	done := make(chan error, 1)
	go func() { done <- c.ClickFinding(context.Background(), "v1") }()
	waitForState(t, c, FixRequested)

	assert.ErrorIs(t, c.ClickFinding(context.Background(), "v2"), ErrBusy)
	assert.ErrorIs(t, c.Apply(context.Background()), ErrBusy)
	assert.ErrorIs(t, c.SelectFile(2), ErrBusy)
	assert.ErrorIs(t, c.SubmitScan(context.Background(), ingest.Descriptor{Path: "/src"}), ErrBusy)

	close(gate)
	require.NoError(t, <-done)

	snap := c.Snapshot()
	assert.Equal(t, FixReady, snap.State)
	assert.Equal(t, "v1", snap.SelectedFinding.ID)
	fixer.mu.Lock()
	assert.Equal(t, 1, fixer.fixCalls)
	fixer.mu.Unlock()
}

func TestApplyRescansStoredDescriptor(t *testing.T) {
	c, scanner, fixer := loaded(t)
	require.NoError(t, c.ClickFinding(context.Background(), "v1"))

	rescanned := []findings.AnalyzedFile{
		{Name: "db.py", Path: "/src/db.py", Content: "import db\ncursor.execute(q, params)\n", Findings: []findings.Finding{
			{ID: "n1", Line: 1, Kind: "Weak Import", Severity: "LOW", Content: "import db"},
		}},
		{Name: "ok.py", Path: "/src/ok.py"},
		{Name: "web.js", Path: "/src/web.js", Findings: []findings.Finding{{ID: "v3", Line: 5, Kind: "XSS"}}},
	}
	scanner.queue(scanReply{files: rescanned})

	var notices []string
	var mu sync.Mutex
	unsubscribe := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		notices = append(notices, s.Notice)
		mu.Unlock()
	})
	defer unsubscribe()

	require.NoError(t, c.Apply(context.Background()))

	assert.Equal(t, []applyCall{{path: "/src/db.py", line: 2, content: "cursor.execute(q, params)"}}, fixer.applyCalls)
	require.Equal(t, 2, scanner.callCount())
	assert.Equal(t, scanner.calls[0], scanner.calls[1])

	snap := c.Snapshot()
	assert.Equal(t, Loaded, snap.State)
	assert.Equal(t, rescanned, snap.Files)
	// Zero-finding files survive the re-scan.
	assert.Equal(t, "ok.py", snap.Files[1].Name)
	assert.Nil(t, snap.Proposal)
	assert.Nil(t, snap.SelectedFinding)

	require.NotNil(t, snap.Outcome)
	assert.Equal(t, "/src/db.py", snap.Outcome.FilePath)
	require.Len(t, snap.Outcome.Resolved, 1)
	assert.Equal(t, "v1", snap.Outcome.Resolved[0].IssueID)
	assert.Empty(t, snap.Outcome.Introduced)
	require.Len(t, snap.Outcome.Persisting, 1)
	assert.Equal(t, "v2", snap.Outcome.Persisting[0].Known.IssueID)
	require.Len(t, snap.Outcome.Persisting[0].New, 1)
	assert.Equal(t, "n1", snap.Outcome.Persisting[0].New[0].IssueID)
	assert.Equal(t, 1, snap.Outcome.Remaining)

	mu.Lock()
	assert.Contains(t, notices, NoticeFixApplied)
	mu.Unlock()
}

func TestApplyFailureKeepsProposal(t *testing.T) {
	c, scanner, fixer := loaded(t)
	require.NoError(t, c.ClickFinding(context.Background(), "v1"))
	fixer.applyErr = errors.NewOperationError(errors.OpApplyFix, stderrors.New("line out of range"))

	err := c.Apply(context.Background())
	assert.True(t, errors.IsOp(err, errors.OpApplyFix))

	snap := c.Snapshot()
	assert.Equal(t, FixReady, snap.State)
	require.NotNil(t, snap.Proposal)
	assert.Equal(t, NoticeApplyFailed, snap.Notice)
	assert.Equal(t, 1, scanner.callCount())

	// A second attempt is allowed once the first one resolved.
	fixer.applyErr = nil
	scanner.queue(scanReply{files: sampleFiles()})
	require.NoError(t, c.Apply(context.Background()))
	assert.Equal(t, Loaded, c.Snapshot().State)
}

func TestApplyRescanFailureKeepsFiles(t *testing.T) {
	c, scanner, _ := loaded(t)
	require.NoError(t, c.ClickFinding(context.Background(), "v1"))
	scanner.queue(scanReply{err: stderrors.New("scanner crashed")})

	assert.Error(t, c.Apply(context.Background()))
	snap := c.Snapshot()
	assert.Equal(t, Loaded, snap.State)
	assert.Equal(t, sampleFiles(), snap.Files)
	assert.Nil(t, snap.Outcome)
}

func TestNewerScanSupersedesStaleScan(t *testing.T) {
	c, scanner, _ := loaded(t)
	gate := make(chan struct{})
	stale := []findings.AnalyzedFile{{Name: "stale.py", Path: "/stale.py"}}
	fresh := []findings.AnalyzedFile{{Name: "fresh.py", Path: "/fresh.py"}}
	scanner.queue(scanReply{files: stale, gate: gate}, scanReply{files: fresh})

	staleDone := make(chan error, 1)
	go func() { staleDone <- c.SubmitScan(context.Background(), ingest.Descriptor{Path: "/stale"}) }()
	require.Eventually(t, func() bool { return scanner.callCount() == 2 }, 2*time.Second, time.Millisecond)

	require.NoError(t, c.SubmitScan(context.Background(), ingest.Descriptor{Path: "/fresh"}))
	close(gate)
	assert.ErrorIs(t, <-staleDone, ErrSuperseded)

	snap := c.Snapshot()
	assert.Equal(t, Loaded, snap.State)
	assert.Equal(t, fresh, snap.Files)
	assert.Equal(t, "/fresh", snap.Source)
}

func TestVerifyDoesNotMutate(t *testing.T) {
	c, _, fixer := loaded(t)
	fixer.verify = findings.VerifyResult{IsFalsePositive: true, Confidence: 0.9, Reasoning: "test data"}
	before := c.Snapshot()

	res, err := c.Verify(context.Background(), sampleFiles()[0].Findings[0])
	require.NoError(t, err)
	assert.True(t, res.IsFalsePositive)
	assert.Equal(t, before, c.Snapshot())
}

func TestInvalidTransitionsFromEmpty(t *testing.T) {
	c := NewCoordinator(&fakeScanner{}, &fakeFixer{}, nil)

	assert.ErrorIs(t, c.SelectFile(0), ErrInvalidTransition)
	assert.ErrorIs(t, c.ClickFinding(context.Background(), "v1"), ErrInvalidTransition)
	assert.ErrorIs(t, c.Cancel(), ErrInvalidTransition)
	assert.ErrorIs(t, c.Apply(context.Background()), ErrInvalidTransition)
	assert.NoError(t, c.Reset())
	assert.Equal(t, Empty, c.Snapshot().State)
}

func TestInvalidTransitionsFromLoaded(t *testing.T) {
	c, _, _ := loaded(t)
	before := c.Snapshot()

	assert.ErrorIs(t, c.Cancel(), ErrInvalidTransition)
	assert.ErrorIs(t, c.Apply(context.Background()), ErrInvalidTransition)
	assert.Equal(t, before, c.Snapshot())
}

func TestReset(t *testing.T) {
	c, _, _ := loaded(t)
	require.NoError(t, c.ClickFinding(context.Background(), "v1"))
	assert.ErrorIs(t, c.Reset(), ErrInvalidTransition)

	require.NoError(t, c.Cancel())
	require.NoError(t, c.Reset())

	snap := c.Snapshot()
	assert.Equal(t, Empty, snap.State)
	assert.Empty(t, snap.Files)
	assert.Equal(t, -1, snap.SelectedFile)
	assert.Empty(t, snap.Source)
}

func TestSubscribersReceiveOrderedSnapshots(t *testing.T) {
	c := NewCoordinator(&fakeScanner{}, &fakeFixer{}, nil)

	var mu sync.Mutex
	var versions []uint64
	unsubscribe := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		versions = append(versions, s.Version)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(on bool) {
			defer wg.Done()
			c.SetFilter(on)
		}(i%2 == 0)
	}
	wg.Wait()

	mu.Lock()
	assert.IsIncreasing(t, versions)
	mu.Unlock()

	unsubscribe()
	c.SetFilter(true)
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, len(versions), 50)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fix-ready", FixReady.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.True(t, Applying.InFlight())
	assert.False(t, Loaded.InFlight())
}
