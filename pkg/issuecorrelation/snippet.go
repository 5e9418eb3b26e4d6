package issuecorrelation

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ComputeSnippetHash returns the SHA256 hex string of the given 1-based line
// range of content, ignoring surrounding whitespace. Returns an empty string
// when the inputs are invalid.
func ComputeSnippetHash(content string, line, endLine int) string {
	if content == "" || line <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	start := line
	end := line
	if endLine > line {
		end = endLine
	}
	if start > len(lines) {
		return ""
	}
	if end > len(lines) {
		end = len(lines)
	}
	return SnippetHashOf(strings.Join(lines[start-1:end], "\n"))
}

// SnippetHashOf fingerprints a snippet. Indentation changes do not alter the hash.
func SnippetHashOf(snippet string) string {
	lines := strings.Split(snippet, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	normalized := strings.TrimSpace(strings.Join(lines, "\n"))
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", sum[:])
}
