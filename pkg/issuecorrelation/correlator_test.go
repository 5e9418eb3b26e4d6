package issuecorrelation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-audit/internal/findings"
)

func TestCorrelator_SnippetHashMatch(t *testing.T) {
	known := []IssueMetadata{{Kind: "XSS", Filename: "a.js", Line: 4, SnippetHash: "h1"}}
	new := []IssueMetadata{{Kind: "XSS", Filename: "a.js", Line: 4, SnippetHash: "h1"}}

	c := NewCorrelator(new, known)
	c.Process()

	matches := c.Matches()
	require.Len(t, matches, 1)
	assert.Len(t, matches[0].New, 1)
	assert.Empty(t, c.UnmatchedNew())
	assert.Empty(t, c.UnmatchedKnown())
}

func TestCorrelator_MovedSnippet(t *testing.T) {
	// Same code, shifted by an inserted import: stage 2.
	known := []IssueMetadata{{Kind: "SQL Injection", Filename: "db.py", Line: 10, SnippetHash: "sh5"}}
	new := []IssueMetadata{{Kind: "SQL Injection", Filename: "db.py", Line: 11, SnippetHash: "sh5"}}

	c := NewCorrelator(new, known)
	require.Len(t, c.Matches(), 1)
	assert.Empty(t, c.UnmatchedKnown())
}

func TestCorrelator_ChangedInPlace(t *testing.T) {
	known := []IssueMetadata{{Kind: "SQL Injection", Filename: "db.py", Line: 10, SnippetHash: "old"}}
	new := []IssueMetadata{{Kind: "SQL Injection", Filename: "db.py", Line: 10, SnippetHash: "new"}}

	c := NewCorrelator(new, known)
	assert.Len(t, c.Matches(), 1)
}

func TestCorrelator_Unmatched(t *testing.T) {
	known := []IssueMetadata{{Kind: "XSS", Filename: "x.js", Line: 1}}
	new := []IssueMetadata{{Kind: "Path Traversal", Filename: "x.js", Line: 1}, {Kind: "XSS", Filename: "y.js", Line: 1}}

	c := NewCorrelator(new, known)
	c.Process()

	assert.Len(t, c.UnmatchedNew(), 2)
	assert.Len(t, c.UnmatchedKnown(), 1)
	assert.Empty(t, c.Matches())
}

func TestCorrelator_EarlierStageWins(t *testing.T) {
	// The hash match must claim the new issue before the line-only rule can
	// pair it with the other known issue.
	known := []IssueMetadata{
		{IssueID: "k1", Kind: "XSS", Filename: "a.js", Line: 5, SnippetHash: "other"},
		{IssueID: "k2", Kind: "XSS", Filename: "a.js", Line: 9, SnippetHash: "h"},
	}
	new := []IssueMetadata{{IssueID: "n1", Kind: "XSS", Filename: "a.js", Line: 5, SnippetHash: "h"}}

	c := NewCorrelator(new, known)
	matches := c.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, "k2", matches[0].Known.IssueID)
	require.Len(t, c.UnmatchedKnown(), 1)
	assert.Equal(t, "k1", c.UnmatchedKnown()[0].IssueID)
}

func TestCorrelator_MissingKind(t *testing.T) {
	c := NewCorrelator([]IssueMetadata{{Filename: "a", Line: 1}}, []IssueMetadata{{Filename: "a", Line: 1}})
	assert.Empty(t, c.Matches())
}

func TestFromFiles(t *testing.T) {
	files := []findings.AnalyzedFile{
		{
			Path:    "/src/a.py",
			Content: "import os\nos.system(cmd)\n",
			Findings: []findings.Finding{
				{ID: "v1", Line: 2, Kind: "Command Injection", Severity: "HIGH", Content: "  os.system(cmd)"},
				{ID: "v2", Line: 2, Kind: "Command Injection"},
			},
		},
		{Path: "/src/b.py", Findings: []findings.Finding{{ID: "v3", Line: 1, Kind: "XSS"}}},
	}

	all := FromFiles(files, "")
	require.Len(t, all, 3)
	assert.Equal(t, IssueMetadata{
		IssueID: "v1", Kind: "Command Injection", Severity: "HIGH", Filename: "/src/a.py", Line: 2,
		SnippetHash: SnippetHashOf("os.system(cmd)"),
	}, all[0])
	// Without finding content the hash comes from the file line.
	assert.Equal(t, all[0].SnippetHash, all[1].SnippetHash)
	assert.Empty(t, all[2].SnippetHash)

	only := FromFiles(files, "/src/b.py")
	require.Len(t, only, 1)
	assert.Equal(t, "v3", only[0].IssueID)
}
