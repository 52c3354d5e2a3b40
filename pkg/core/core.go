// Package core is the public entry point for embedding kvtree: it turns
// loaded documents into a session holding the tree forest, the flattened
// view and the selection controller.
package core

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/kvtree/internal/flatten"
	"github.com/oakwood-commons/kvtree/internal/formatter"
	"github.com/oakwood-commons/kvtree/internal/search"
	"github.com/oakwood-commons/kvtree/internal/selection"
	"github.com/oakwood-commons/kvtree/internal/tree"
	"github.com/oakwood-commons/kvtree/pkg/loader"
	"github.com/oakwood-commons/kvtree/pkg/logger"
	"github.com/oakwood-commons/kvtree/pkg/settings"
)

// Session is an opened set of documents. All methods must be called from the
// goroutine that owns the session.
type Session struct {
	Documents  []*loader.Document
	Roots      []*tree.Node
	View       *flatten.View
	Controller *selection.Controller

	maxDepth        int
	autoExpandLimit int
	expandAll       bool
	log             logr.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithMaxDepth bounds how deep nodes materialize.
func WithMaxDepth(n int) Option {
	return func(s *Session) {
		s.maxDepth = n
	}
}

// WithAutoExpandLimit sets the child count above which roots start collapsed.
func WithAutoExpandLimit(n int) Option {
	return func(s *Session) {
		s.autoExpandLimit = n
	}
}

// WithExpandAll expands every node once the forest is built.
func WithExpandAll(expand bool) Option {
	return func(s *Session) {
		s.expandAll = expand
	}
}

// WithLogger overrides the logger taken from the context.
func WithLogger(log logr.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithSettings applies the tree settings of a run.
func WithSettings(r *settings.Run) Option {
	return func(s *Session) {
		if r == nil {
			return
		}
		s.maxDepth = r.Tree.MaxDepth
		s.autoExpandLimit = r.Tree.AutoExpandLimit
		s.expandAll = r.Tree.ExpandAll
	}
}

// Result is delivered by OpenAsync.
type Result struct {
	Session *Session
	Err     error
}

// Open builds a session over docs. When exactly one document is given its
// raw text is attached to the controller so selections map to text ranges.
func Open(ctx context.Context, docs []*loader.Document, opts ...Option) (*Session, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents to open")
	}
	s := &Session{
		Documents:       docs,
		maxDepth:        settings.DefaultMaxDepth,
		autoExpandLimit: settings.DefaultAutoExpandLimit,
		log:             *logger.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(s)
	}

	start := time.Now()
	for _, doc := range docs {
		if doc == nil {
			return nil, fmt.Errorf("document is nil")
		}
		for _, r := range doc.Roots {
			s.Roots = append(s.Roots, tree.NewRoot(r, s.rootOptions(doc)...))
		}
	}
	s.View = flatten.New(s.Roots, flatten.WithLogger(s.log))
	ctrlOpts := []selection.Option{selection.WithLogger(s.log)}
	if len(docs) == 1 {
		ctrlOpts = append(ctrlOpts, selection.WithText(docs[0].Text))
	}
	s.Controller = selection.New(s.View, ctrlOpts...)
	if s.expandAll {
		s.ExpandAll()
	}
	s.log.V(1).Info("session opened",
		"documents", len(docs),
		"roots", len(s.Roots),
		"visible", s.View.Count(),
		"duration", time.Since(start).String())
	return s, nil
}

func (s *Session) rootOptions(doc *loader.Document) []tree.Option {
	opts := []tree.Option{
		tree.WithMaxDepth(s.maxDepth),
		tree.WithAutoExpandLimit(s.autoExpandLimit),
	}
	if len(s.Documents) > 1 && doc.Name != "" {
		opts = append(opts, tree.WithName(filepath.Base(doc.Name)))
	}
	return opts
}

// OpenFiles loads paths concurrently and opens them as one session.
func OpenFiles(ctx context.Context, paths []string, lopts loader.Options, opts ...Option) (*Session, error) {
	docs, err := loader.LoadFiles(ctx, paths, lopts)
	if err != nil {
		return nil, err
	}
	return Open(ctx, docs, opts...)
}

// OpenReader loads r and opens it.
func OpenReader(ctx context.Context, r io.Reader, lopts loader.Options, opts ...Option) (*Session, error) {
	doc, err := loader.Load(ctx, r, lopts)
	if err != nil {
		return nil, err
	}
	return Open(ctx, []*loader.Document{doc}, opts...)
}

// OpenObject opens an already parsed Go value.
func OpenObject(ctx context.Context, name string, value any, opts ...Option) (*Session, error) {
	doc, err := loader.FromObject(ctx, name, value)
	if err != nil {
		return nil, err
	}
	return Open(ctx, []*loader.Document{doc}, opts...)
}

// OpenAsync reads and parses r on a background goroutine and delivers
// exactly one Result. The session is complete when delivered and the
// receiver becomes its owner.
func OpenAsync(ctx context.Context, r io.Reader, lopts loader.Options, opts ...Option) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		res := <-loader.LoadAsync(ctx, r, lopts)
		if res.Err != nil {
			out <- Result{Err: res.Err}
			return
		}
		s, err := Open(ctx, []*loader.Document{res.Document}, opts...)
		out <- Result{Session: s, Err: err}
	}()
	return out
}

// ExpandAll expands every node of the forest and invalidates the view once.
func (s *Session) ExpandAll() {
	tree.Walk(s.Roots, func(n *tree.Node) bool {
		n.SetExpanded(true)
		return true
	})
	s.View.Invalidate()
}

// CollapseAll collapses every materialized node except the roots.
func (s *Session) CollapseAll() {
	tree.Walk(s.Roots, func(n *tree.Node) bool {
		if n.Depth() > 0 {
			n.SetExpanded(false)
		}
		return n.Materialized()
	})
	s.View.Invalidate()
}

// Outline renders the visible rows.
func (s *Session) Outline(opts formatter.OutlineOptions) (string, error) {
	return formatter.RenderOutline(s.View, opts)
}

// Tree renders the forest as an ASCII tree.
func (s *Session) Tree(opts formatter.TreeOptions) string {
	return formatter.FormatAsTree(s.Roots, opts)
}

// Search selects the next node after the selection matching expr.
func (s *Session) Search(expr string) (*tree.Node, error) {
	return s.Controller.Search(expr)
}

// FindAll returns every node matching expr in pre-order.
func (s *Session) FindAll(expr string) ([]*tree.Node, error) {
	m, err := search.Compile(expr)
	if err != nil {
		return nil, err
	}
	return search.All(s.Roots, m)
}

// Reveal selects the node at path, expanding its ancestors.
func (s *Session) Reveal(path string) (*tree.Node, error) {
	return s.Controller.RevealPath(path)
}

// Text returns the raw text attached to the controller, or "" when the
// session spans several documents.
func (s *Session) Text() string {
	if len(s.Documents) != 1 {
		return ""
	}
	return s.Documents[0].Text
}
