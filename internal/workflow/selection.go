package workflow

import (
	"fmt"

	"github.com/scan-io-git/scanio-audit/internal/findings"
	"github.com/scan-io-git/scanio-audit/pkg/shared/errors"
)

// VisibleFile is one row of the file list under the current filter.
type VisibleFile struct {
	Index int
	Name  string
	Path  string
	Badge int
}

// Selection tracks the active file and the errors-only view filter. It never
// modifies the file collection it is applied to.
type Selection struct {
	fileIndex  int
	errorsOnly bool
}

// NewSelection returns a Selection with no active file and no filter.
func NewSelection() Selection {
	return Selection{fileIndex: -1}
}

// SetFilter toggles the errors-only view. The active file is kept even when
// the filter hides it.
func (s *Selection) SetFilter(errorsOnly bool) {
	s.errorsOnly = errorsOnly
}

// ErrorsOnly reports whether the errors-only filter is on.
func (s Selection) ErrorsOnly() bool {
	return s.errorsOnly
}

// Visible returns the files shown under the current filter, in collection
// order, each with its finding count as badge.
func (s Selection) Visible(files []findings.AnalyzedFile) []VisibleFile {
	out := make([]VisibleFile, 0, len(files))
	for i, f := range files {
		if s.errorsOnly && len(f.Findings) == 0 {
			continue
		}
		out = append(out, VisibleFile{Index: i, Name: f.Name, Path: f.Path, Badge: len(f.Findings)})
	}
	return out
}

// Select makes file i of a collection of n files active.
func (s *Selection) Select(i, n int) error {
	if i < 0 || i >= n {
		return errors.NewValidationError("file index", fmt.Sprintf("%d out of range [0,%d)", i, n))
	}
	s.fileIndex = i
	return nil
}

// Clear drops the active file.
func (s *Selection) Clear() {
	s.fileIndex = -1
}

// FileIndex returns the active file index.
func (s Selection) FileIndex() (int, bool) {
	return s.fileIndex, s.fileIndex >= 0
}

// Hidden reports whether the active file is filtered out of files.
func (s Selection) Hidden(files []findings.AnalyzedFile) bool {
	i, ok := s.FileIndex()
	if !ok || i >= len(files) {
		return false
	}
	return s.errorsOnly && len(files[i].Findings) == 0
}
