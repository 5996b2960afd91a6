// Package filetree keeps a lazily expanded view of a repository's directory
// structure, loading one folder at a time through a Loader.
package filetree

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"ghimport/internal/github"
)

// DefaultConcurrency bounds parallel folder loads in LoadAll.
const DefaultConcurrency = 8

// Loader lists the entries of one directory; "" is the repository root.
type Loader interface {
	List(ctx context.Context, path string) ([]github.Content, error)
}

type LoaderFunc func(ctx context.Context, path string) ([]github.Content, error)

func (f LoaderFunc) List(ctx context.Context, path string) ([]github.Content, error) {
	return f(ctx, path)
}

type Node struct {
	github.Content
	Children []*Node `json:"children"`
	Expanded bool    `json:"expanded"`
	Loading  bool    `json:"loading"`
}

type Options struct {
	// Root is the directory shown at the top level; "" is the repository root.
	Root        string
	OnFileClick func(*Node)
	Concurrency int
}

type Tree struct {
	loader Loader
	opts   Options

	mu       sync.Mutex
	nodes    []*Node
	loading  bool
	err      string
	expanded map[string]struct{}
}

func New(loader Loader, opts Options) *Tree {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Tree{loader: loader, opts: opts, expanded: map[string]struct{}{}}
}

// Nodes returns the top-level entries.
func (t *Tree) Nodes() []*Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nodes
}

// Err is the message of the last failed root load.
func (t *Tree) Err() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Tree) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// Expanded returns the sorted paths of expanded folders.
func (t *Tree) Expanded() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.expanded))
	for p := range t.expanded {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// LoadRoot replaces the top level. On failure the tree is left empty and
// the error is also recorded for Err.
func (t *Tree) LoadRoot(ctx context.Context) error {
	t.mu.Lock()
	t.loading = true
	t.err = ""
	t.mu.Unlock()

	contents, err := t.loader.List(ctx, t.opts.Root)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.loading = false
	if err != nil {
		t.nodes = []*Node{}
		t.err = err.Error()
		return err
	}
	t.nodes = toNodes(contents)
	return nil
}

// LoadFolder fetches a folder's children and expands it. File nodes are
// ignored. A failed load leaves the folder collapsed with its previous
// children.
func (t *Tree) LoadFolder(ctx context.Context, n *Node) error {
	if n == nil || !n.IsDir() {
		return nil
	}
	t.mu.Lock()
	n.Loading = true
	t.mu.Unlock()

	contents, err := t.loader.List(ctx, n.Path)

	t.mu.Lock()
	defer t.mu.Unlock()
	n.Loading = false
	if err != nil {
		return err
	}
	n.Children = toNodes(contents)
	n.Expanded = true
	t.expanded[n.Path] = struct{}{}
	return nil
}

// Toggle collapses an expanded folder, otherwise expands it, loading the
// children first when none are known.
func (t *Tree) Toggle(ctx context.Context, n *Node) error {
	if n == nil || !n.IsDir() {
		return nil
	}
	t.mu.Lock()
	if n.Expanded {
		n.Expanded = false
		delete(t.expanded, n.Path)
		t.mu.Unlock()
		return nil
	}
	if len(n.Children) > 0 {
		n.Expanded = true
		t.expanded[n.Path] = struct{}{}
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()
	return t.LoadFolder(ctx, n)
}

// Click toggles folders and hands files to OnFileClick.
func (t *Tree) Click(ctx context.Context, n *Node) error {
	if n == nil {
		return nil
	}
	switch {
	case n.IsDir():
		return t.Toggle(ctx, n)
	case n.IsFile() && t.opts.OnFileClick != nil:
		t.opts.OnFileClick(n)
	}
	return nil
}

// LoadAll loads the root and expands every folder down to maxDepth levels
// below it, one level at a time. maxDepth 0 loads only the root listing.
func (t *Tree) LoadAll(ctx context.Context, maxDepth int) error {
	if err := t.LoadRoot(ctx); err != nil {
		return err
	}
	level := t.Nodes()
	for depth := 0; depth < maxDepth && len(level) > 0; depth++ {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(t.opts.Concurrency)
		var dirs []*Node
		for _, n := range level {
			if !n.IsDir() {
				continue
			}
			n := n
			dirs = append(dirs, n)
			g.Go(func() error { return t.LoadFolder(gctx, n) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
		var next []*Node
		for _, n := range dirs {
			next = append(next, n.Children...)
		}
		level = next
	}
	return nil
}

func toNodes(contents []github.Content) []*Node {
	out := make([]*Node, 0, len(contents))
	for _, c := range contents {
		out = append(out, &Node{Content: c, Children: []*Node{}})
	}
	return out
}
