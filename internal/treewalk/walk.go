package treewalk

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

// Leaf is a file discovered by a walk together with its path relative to the
// dropped roots, joined with "/".
type Leaf struct {
	RelPath string
	File    File
}

// Result is the flattened outcome of a walk. Leaves are sorted by RelPath and
// unique by it; Duplicates lists the paths seen more than once.
type Result struct {
	Leaves     []Leaf
	Unreadable int
	Duplicates []string
}

// Paths returns the relative paths of the leaves.
func (r Result) Paths() []string {
	paths := make([]string, 0, len(r.Leaves))
	for _, leaf := range r.Leaves {
		paths = append(paths, leaf.RelPath)
	}
	return paths
}

type options struct {
	concurrency int
	skipDirs    map[string]struct{}
	skipRoots   bool
	logger      hclog.Logger
}

// Option configures Walk.
type Option func(*options)

// WithConcurrency bounds the number of entries processed at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithSkipDirs ignores directories below the roots whose name matches, case-insensitively.
func WithSkipDirs(names ...string) Option {
	return func(o *options) {
		for _, name := range names {
			o.skipDirs[strings.ToLower(name)] = struct{}{}
		}
	}
}

// WithSkipRoots applies the skip list to the roots as well. Use it when the
// roots are the children of a scanned folder rather than entries the user picked.
func WithSkipRoots() Option {
	return func(o *options) { o.skipRoots = true }
}

// WithLogger sets the logger used for skipped and unreadable entries.
func WithLogger(logger hclog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// node is a directory awaiting its descendants. pending counts unresolved
// children plus one guard held while the directory is still being listed.
type node struct {
	parent  *node
	pending int
}

type task struct {
	entry  Entry
	path   string
	parent *node
	root   bool
}

type walker struct {
	opts options

	mu         sync.Mutex
	queue      []task
	leaves     map[string]Leaf
	duplicates []string
	unreadable int

	wake chan struct{}
	done chan struct{}
}

// Walk flattens roots into their leaf files. Directories are listed and their
// children processed concurrently by a bounded pool; the walk resolves once
// every root has resolved. Unreadable entries are skipped and counted. The only
// error returned is the context's.
func Walk(ctx context.Context, roots []Entry, opts ...Option) (Result, error) {
	o := options{
		concurrency: 8,
		skipDirs:    map[string]struct{}{},
		logger:      hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if len(roots) == 0 {
		return Result{}, ctx.Err()
	}

	w := &walker{
		opts:   o,
		leaves: make(map[string]Leaf),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	top := &node{pending: len(roots)}
	for _, root := range roots {
		w.push(task{entry: root, path: root.Name(), parent: top, root: true})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

dispatch:
	for {
		if t, ok := w.pop(); ok {
			g.Go(func() error {
				return w.process(gctx, t)
			})
			continue
		}
		select {
		case <-w.wake:
		case <-w.done:
			break dispatch
		case <-gctx.Done():
			break dispatch
		}
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	return w.result(), nil
}

func (w *walker) push(t task) {
	w.mu.Lock()
	w.queue = append(w.queue, t)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *walker) pop() (task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return task{}, false
	}
	t := w.queue[len(w.queue)-1]
	w.queue = w.queue[:len(w.queue)-1]
	return t, true
}

func (w *walker) process(ctx context.Context, t task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !t.entry.IsDir() {
		file, ok := t.entry.(File)
		if !ok {
			w.skipUnreadable(t, errors.New("entry is not readable"))
			return nil
		}
		w.addLeaf(Leaf{RelPath: t.path, File: file})
		w.resolve(t.parent)
		return nil
	}

	if !t.root || w.opts.skipRoots {
		if _, skip := w.opts.skipDirs[strings.ToLower(t.entry.Name())]; skip {
			w.opts.logger.Debug("skipping directory", "path", t.path)
			w.resolve(t.parent)
			return nil
		}
	}

	dir, ok := t.entry.(Dir)
	if !ok {
		w.skipUnreadable(t, errors.New("directory cannot be listed"))
		return nil
	}
	lister, err := dir.List()
	if err != nil {
		w.skipUnreadable(t, err)
		return nil
	}

	n := &node{parent: t.parent, pending: 1}
	for {
		batch, err := lister.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			w.opts.logger.Warn("directory listing interrupted", "path", t.path, "error", err)
			w.countUnreadable()
			break
		}
		for _, child := range batch {
			w.mu.Lock()
			n.pending++
			w.mu.Unlock()
			w.push(task{entry: child, path: t.path + "/" + child.Name(), parent: n})
		}
	}

	// Release the listing guard; an empty directory resolves here.
	w.resolve(n)
	return nil
}

// resolve marks one child of n as finished and propagates completion upwards.
func (w *walker) resolve(n *node) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for n != nil {
		n.pending--
		if n.pending > 0 {
			return
		}
		if n.parent == nil {
			close(w.done)
			return
		}
		n = n.parent
	}
}

func (w *walker) addLeaf(leaf Leaf) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, dup := w.leaves[leaf.RelPath]; dup {
		w.duplicates = append(w.duplicates, leaf.RelPath)
		return
	}
	w.leaves[leaf.RelPath] = leaf
}

func (w *walker) skipUnreadable(t task, err error) {
	w.opts.logger.Warn("skipping unreadable entry", "path", t.path, "error", err)
	w.countUnreadable()
	w.resolve(t.parent)
}

func (w *walker) countUnreadable() {
	w.mu.Lock()
	w.unreadable++
	w.mu.Unlock()
}

func (w *walker) result() Result {
	w.mu.Lock()
	defer w.mu.Unlock()

	res := Result{
		Leaves:     make([]Leaf, 0, len(w.leaves)),
		Unreadable: w.unreadable,
	}
	for _, leaf := range w.leaves {
		res.Leaves = append(res.Leaves, leaf)
	}
	sort.Slice(res.Leaves, func(i, j int) bool {
		return res.Leaves[i].RelPath < res.Leaves[j].RelPath
	})
	if len(w.duplicates) > 0 {
		res.Duplicates = append([]string(nil), w.duplicates...)
		sort.Strings(res.Duplicates)
	}
	return res
}
