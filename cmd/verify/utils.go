package verify

import (
	"fmt"
	"os"
	"strings"

	"github.com/scan-io-git/scanio-audit/internal/findings"
)

// buildFinding assembles the finding to verify from the flags.
func buildFinding(opts *RunOptions) (findings.Finding, error) {
	content := opts.Content
	if opts.ContentFile != "" {
		data, err := os.ReadFile(opts.ContentFile)
		if err != nil {
			return findings.Finding{}, fmt.Errorf("failed to read content file: %w", err)
		}
		content = string(data)
	}
	return findings.Finding{
		Kind:    strings.TrimSpace(opts.Kind),
		Content: strings.TrimRight(content, "\r\n"),
	}, nil
}
