package scan

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-audit/internal/config"
	"github.com/scan-io-git/scanio-audit/internal/git"
	"github.com/scan-io-git/scanio-audit/internal/ingest"
)

// buildDescriptor turns validated arguments into a scan source.
func buildDescriptor(ctx context.Context, cfg *config.Config, options *RunOptions, args []string, logger hclog.Logger) (ingest.Descriptor, error) {
	switch {
	case len(options.Files) > 0:
		return ingest.NewLocal(cfg.Ingestion, logger).Files(ctx, options.Files)
	case options.Upload:
		return ingest.NewLocal(cfg.Ingestion, logger).Directory(ctx, args[0])
	default:
		return ingest.FromPath(args[0])
	}
}

// localRoot returns the absolute target folder when it exists on this host.
func localRoot(options *RunOptions, args []string) string {
	if len(options.Files) > 0 || len(args) == 0 {
		return ""
	}
	info, err := os.Stat(args[0])
	if err != nil || !info.IsDir() {
		return ""
	}
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return ""
	}
	return abs
}

// collectMetadata returns repository details for root, or nil outside a repository.
func collectMetadata(root string, logger hclog.Logger) *git.RepositoryMetadata {
	md, err := git.CollectRepositoryMetadata(root)
	if err != nil {
		logger.Debug("repository metadata unavailable", "path", root, "error", err)
		return nil
	}
	return md
}
