package fix

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-audit/internal/config"
	"github.com/scan-io-git/scanio-audit/internal/findings"
	"github.com/scan-io-git/scanio-audit/internal/ingest"
)

func buildDescriptor(ctx context.Context, cfg *config.Config, options *RunOptions, target string, logger hclog.Logger) (ingest.Descriptor, error) {
	if options.Upload {
		return ingest.NewLocal(cfg.Ingestion, logger).Directory(ctx, target)
	}
	return ingest.FromPath(target)
}

// locateFinding finds the file index and finding for id. When file is empty
// the id must be unique across all files.
func locateFinding(files []findings.AnalyzedFile, file, id string) (int, findings.Finding, error) {
	matched := -1
	var found findings.Finding
	for i, f := range files {
		if file != "" && !matchesFile(f, file) {
			continue
		}
		finding, ok := f.FindingByID(id)
		if !ok {
			continue
		}
		if matched >= 0 {
			return -1, findings.Finding{}, fmt.Errorf("finding %q is reported in several files, use the 'file' flag", id)
		}
		matched, found = i, finding
	}
	if matched < 0 {
		if file != "" {
			return -1, findings.Finding{}, fmt.Errorf("finding %q not found in %q", id, file)
		}
		return -1, findings.Finding{}, fmt.Errorf("finding %q not found", id)
	}
	return matched, found, nil
}

func matchesFile(f findings.AnalyzedFile, file string) bool {
	want := filepath.ToSlash(filepath.Clean(file))
	got := filepath.ToSlash(f.Path)
	return got == want || f.Name == file || strings.HasSuffix(got, "/"+want)
}
