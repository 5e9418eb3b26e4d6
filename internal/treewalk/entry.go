package treewalk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
)

// Entry is a node of a file system graph: either a File or a Dir.
type Entry interface {
	Name() string
	IsDir() bool
}

// File is a leaf entry whose content can be read.
type File interface {
	Entry
	Open() (io.ReadCloser, error)
}

// Dir is an entry whose children are listed in batches.
type Dir interface {
	Entry
	List() (Lister, error)
}

// Lister yields the children of a directory. Next returns successive batches
// and io.EOF once the listing is exhausted. A Lister is used by one goroutine.
type Lister interface {
	Next(ctx context.Context) ([]Entry, error)
}

const defaultBatchSize = 64

// FromFS adapts paths of fsys into walkable entries. The root "." expands to
// its top-level children so relative paths do not carry a "./" prefix.
func FromFS(fsys fs.FS, roots ...string) ([]Entry, error) {
	var entries []Entry
	for _, root := range roots {
		root = path.Clean(root)
		if root == "." {
			children, err := fs.ReadDir(fsys, ".")
			if err != nil {
				return nil, fmt.Errorf("read root: %w", err)
			}
			for _, child := range children {
				entries = append(entries, newFSEntry(fsys, child.Name(), child.IsDir()))
			}
			continue
		}

		info, err := fs.Stat(fsys, root)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", root, err)
		}
		entries = append(entries, newFSEntry(fsys, root, info.IsDir()))
	}
	return entries, nil
}

func newFSEntry(fsys fs.FS, name string, dir bool) Entry {
	e := fsEntry{fsys: fsys, path: name}
	if dir {
		return fsDir{e}
	}
	return fsFile{e}
}

type fsEntry struct {
	fsys fs.FS
	path string
}

func (e fsEntry) Name() string { return path.Base(e.path) }

type fsFile struct{ fsEntry }

func (fsFile) IsDir() bool { return false }

func (f fsFile) Open() (io.ReadCloser, error) {
	return f.fsys.Open(f.path)
}

type fsDir struct{ fsEntry }

func (fsDir) IsDir() bool { return true }

func (d fsDir) List() (Lister, error) {
	f, err := d.fsys.Open(d.path)
	if err != nil {
		return nil, err
	}
	if rdf, ok := f.(fs.ReadDirFile); ok {
		return &fsLister{dir: d, file: rdf}, nil
	}
	_ = f.Close()

	children, err := fs.ReadDir(d.fsys, d.path)
	if err != nil {
		return nil, err
	}
	return &sliceLister{batch: d.convert(children)}, nil
}

func (d fsDir) convert(children []fs.DirEntry) []Entry {
	batch := make([]Entry, 0, len(children))
	for _, child := range children {
		batch = append(batch, newFSEntry(d.fsys, path.Join(d.path, child.Name()), child.IsDir()))
	}
	return batch
}

type fsLister struct {
	dir  fsDir
	file fs.ReadDirFile
	done bool
}

func (l *fsLister) Next(ctx context.Context) ([]Entry, error) {
	if l.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		l.close()
		return nil, err
	}

	children, err := l.file.ReadDir(defaultBatchSize)
	if len(children) > 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			l.close()
			return nil, err
		}
		return l.dir.convert(children), nil
	}
	l.close()
	if err == nil || errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	return nil, err
}

func (l *fsLister) close() {
	l.done = true
	_ = l.file.Close()
}

type sliceLister struct {
	batch []Entry
	done  bool
}

func (l *sliceLister) Next(context.Context) ([]Entry, error) {
	if l.done {
		return nil, io.EOF
	}
	l.done = true
	if len(l.batch) == 0 {
		return nil, io.EOF
	}
	return l.batch, nil
}
