package ingest

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/scan-io-git/scanio-audit/internal/treewalk"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
)

// SourceFile is one materialized file of a dropped selection.
type SourceFile struct {
	RelPath string
	Content []byte
}

// Warning reports a partially ingested selection. It never blocks a scan.
type Warning struct {
	Unreadable int      `json:"unreadable" yaml:"unreadable"`
	TooLarge   []string `json:"too_large,omitempty" yaml:"too_large,omitempty"`
	Duplicates []string `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
}

// Empty reports whether nothing was lost during ingestion.
func (w *Warning) Empty() bool {
	return w == nil || (w.Unreadable == 0 && len(w.TooLarge) == 0 && len(w.Duplicates) == 0)
}

func (w *Warning) String() string {
	if w.Empty() {
		return ""
	}
	var parts []string
	if w.Unreadable > 0 {
		parts = append(parts, fmt.Sprintf("%d unreadable", w.Unreadable))
	}
	if len(w.TooLarge) > 0 {
		parts = append(parts, fmt.Sprintf("%d too large", len(w.TooLarge)))
	}
	if len(w.Duplicates) > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicate", len(w.Duplicates)))
	}
	return "skipped " + strings.Join(parts, ", ") + " entries"
}

// Descriptor is the input of a scan: either a path the backend resolves itself
// or a set of materialized files. It is kept verbatim so a scan can be repeated.
type Descriptor struct {
	Path    string
	Files   []SourceFile
	Warning *Warning
}

// String describes the source for logs and status lines.
func (d Descriptor) String() string {
	if d.Path != "" {
		return d.Path
	}
	if len(d.Files) == 1 {
		return d.Files[0].RelPath
	}
	return fmt.Sprintf("%d files", len(d.Files))
}

// Validate checks that exactly one source kind is set and file paths are relative, clean and unique.
func (d Descriptor) Validate() error {
	hasPath := strings.TrimSpace(d.Path) != ""
	switch {
	case hasPath && len(d.Files) > 0:
		return errors.NewValidationError("source", "path and files are mutually exclusive")
	case !hasPath && len(d.Files) == 0:
		return errors.NewValidationError("source", "no path or files given")
	case hasPath:
		return nil
	}

	seen := make(map[string]struct{}, len(d.Files))
	for _, f := range d.Files {
		if err := validateRelPath(f.RelPath); err != nil {
			return err
		}
		if _, dup := seen[f.RelPath]; dup {
			return errors.NewValidationError("files", fmt.Sprintf("duplicate path %q", f.RelPath))
		}
		seen[f.RelPath] = struct{}{}
	}
	return nil
}

func validateRelPath(p string) error {
	switch {
	case p == "":
		return errors.NewValidationError("files", "empty relative path")
	case strings.HasPrefix(p, "/"):
		return errors.NewValidationError("files", fmt.Sprintf("path %q is absolute", p))
	case path.Clean(p) != p || p == ".." || strings.HasPrefix(p, "../"):
		return errors.NewValidationError("files", fmt.Sprintf("path %q is not a clean relative path", p))
	}
	return nil
}

// FromPath describes a server-resolvable path.
func FromPath(p string) (Descriptor, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return Descriptor{}, errors.NewValidationError("path", "must not be empty")
	}
	return Descriptor{Path: p}, nil
}

type options struct {
	concurrency int
	maxFileSize int64
	logger      hclog.Logger
}

// Option configures materialization.
type Option func(*options)

// WithReadConcurrency bounds the number of files read at once.
func WithReadConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxFileSize skips files larger than n bytes. Zero disables the limit.
func WithMaxFileSize(n int64) Option {
	return func(o *options) {
		o.maxFileSize = n
	}
}

// WithLogger sets the logger used for skipped files.
func WithLogger(logger hclog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// FromFiles materializes a flat selection of files without recursion. Each file
// keeps its own name as relative path.
func FromFiles(ctx context.Context, entries []treewalk.Entry, opts ...Option) (Descriptor, error) {
	if len(entries) == 0 {
		return Descriptor{}, errors.NewValidationError("files", "no files selected")
	}

	res := treewalk.Result{}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		file, ok := e.(treewalk.File)
		if e.IsDir() || !ok {
			return Descriptor{}, errors.NewValidationError("files", fmt.Sprintf("%q is not a file", e.Name()))
		}
		if _, dup := seen[e.Name()]; dup {
			res.Duplicates = append(res.Duplicates, e.Name())
			continue
		}
		seen[e.Name()] = struct{}{}
		res.Leaves = append(res.Leaves, treewalk.Leaf{RelPath: e.Name(), File: file})
	}
	return Materialize(ctx, res, opts...)
}

// Materialize reads every leaf of a walk concurrently. Leaves that cannot be
// read are skipped and reported in the descriptor's Warning together with the
// walk's own losses.
func Materialize(ctx context.Context, res treewalk.Result, opts ...Option) (Descriptor, error) {
	o := options{concurrency: 8, logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	warn := &Warning{
		Unreadable: res.Unreadable,
		Duplicates: append([]string(nil), res.Duplicates...),
	}

	contents := make([][]byte, len(res.Leaves))
	status := make([]readStatus, len(res.Leaves))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, leaf := range res.Leaves {
		i, leaf := i, leaf
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, st, err := readLeaf(leaf.File, o.maxFileSize)
			if err != nil {
				o.logger.Warn("skipping unreadable file", "path", leaf.RelPath, "error", err)
			}
			contents[i], status[i] = data, st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{Files: make([]SourceFile, 0, len(res.Leaves))}
	for i, leaf := range res.Leaves {
		switch status[i] {
		case readOK:
			d.Files = append(d.Files, SourceFile{RelPath: leaf.RelPath, Content: contents[i]})
		case readTooLarge:
			warn.TooLarge = append(warn.TooLarge, leaf.RelPath)
		default:
			warn.Unreadable++
		}
	}

	if len(d.Files) == 0 {
		return Descriptor{}, errors.NewValidationError("files", "no readable files in selection")
	}
	if !warn.Empty() {
		d.Warning = warn
	}
	return d, d.Validate()
}

type readStatus int

const (
	readFailed readStatus = iota
	readOK
	readTooLarge
)

func readLeaf(file treewalk.File, maxSize int64) ([]byte, readStatus, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, readFailed, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if maxSize > 0 {
		r = io.LimitReader(rc, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, readFailed, err
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, readTooLarge, nil
	}
	return data, readOK, nil
}
