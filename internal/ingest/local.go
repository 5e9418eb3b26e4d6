package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-audit/internal/config"
	"github.com/scan-io-git/scanio-audit/internal/treewalk"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
)

// Local builds upload descriptors from the local filesystem.
type Local struct {
	walkOpts []treewalk.Option
	readOpts []Option
}

// NewLocal configures walking and reading from the ingestion section of cfg.
func NewLocal(cfg config.Ingestion, logger hclog.Logger) *Local {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Local{
		walkOpts: []treewalk.Option{
			treewalk.WithConcurrency(cfg.WalkConcurrency),
			treewalk.WithSkipDirs(cfg.SkipDirs...),
			treewalk.WithLogger(logger.Named("treewalk")),
		},
		readOpts: []Option{
			WithReadConcurrency(cfg.ReadConcurrency),
			WithMaxFileSize(cfg.MaxFileSize),
			WithLogger(logger),
		},
	}
}

// Directory walks every entry below dir. Relative paths start below dir and
// the skip list applies from its first level on.
func (l *Local) Directory(ctx context.Context, dir string) (Descriptor, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Descriptor{}, errors.NewValidationError("path", err.Error())
	}
	if !info.IsDir() {
		return Descriptor{}, errors.NewValidationError("path", fmt.Sprintf("%q is not a directory", dir))
	}

	roots, err := treewalk.FromFS(os.DirFS(dir), ".")
	if err != nil {
		return Descriptor{}, errors.NewValidationError("path", err.Error())
	}
	opts := append([]treewalk.Option{treewalk.WithSkipRoots()}, l.walkOpts...)
	res, err := treewalk.Walk(ctx, roots, opts...)
	if err != nil {
		return Descriptor{}, err
	}
	return Materialize(ctx, res, l.readOpts...)
}

// Files materializes a flat selection of files, each named by its base name.
func (l *Local) Files(ctx context.Context, paths []string) (Descriptor, error) {
	entries := make([]treewalk.Entry, 0, len(paths))
	for _, p := range paths {
		found, err := treewalk.FromFS(os.DirFS(filepath.Dir(p)), filepath.Base(p))
		if err != nil {
			return Descriptor{}, errors.NewValidationError("files", err.Error())
		}
		entries = append(entries, found...)
	}
	return FromFiles(ctx, entries, l.readOpts...)
}
