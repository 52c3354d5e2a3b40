// Package navigator resolves dotted paths against a forest of tree nodes and
// renders node locations back as paths.
package navigator

import (
	"errors"
	"fmt"

	"github.com/oakwood-commons/kvtree/internal/tree"
)

var (
	// ErrNotFound is returned when a path segment matches no child.
	ErrNotFound = errors.New("path not found")
	// ErrEmptyForest is returned when there is nothing to navigate.
	ErrEmptyForest = errors.New("no documents loaded")
)

// Resolve walks path from the first root and returns every node on the way,
// root first. With several roots, a leading index selects the root.
// Children are materialized along the path only.
func Resolve(roots []*tree.Node, path string) ([]*tree.Node, error) {
	if len(roots) == 0 {
		return nil, ErrEmptyForest
	}
	segs, err := ParsePath(NormalizePath(path))
	if err != nil {
		return nil, err
	}

	cur := roots[0]
	if idx, ok := leadingIndex(segs); ok && len(roots) > 1 {
		if idx >= len(roots) {
			return nil, fmt.Errorf("%w: document %d of %d", ErrNotFound, idx, len(roots))
		}
		cur = roots[idx]
		segs = segs[1:]
	}

	out := []*tree.Node{cur}
	for i, seg := range segs {
		next := step(cur, seg)
		if next == nil {
			return nil, fmt.Errorf("%w: %s under %q", ErrNotFound, seg, formatSegments(segs[:i]))
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}

// Find resolves path and returns only the target node.
func Find(roots []*tree.Node, path string) (*tree.Node, error) {
	nodes, err := Resolve(roots, path)
	if err != nil {
		return nil, err
	}
	return nodes[len(nodes)-1], nil
}

func leadingIndex(segs []Segment) (int, bool) {
	if len(segs) == 0 {
		return 0, false
	}
	a, ok := segs[0].(ArrayIndex)
	return a.Index, ok
}

// step returns the child of n matching seg. A numeric field name also matches
// an index, so "items.0" and "items[0]" agree.
func step(n *tree.Node, seg Segment) *tree.Node {
	kids := n.Children()
	for _, c := range kids {
		if seg.matches(c.Name()) {
			return c
		}
	}
	if f, ok := seg.(Field); ok {
		alt := "[" + f.Name + "]"
		for _, c := range kids {
			if c.Name() == alt {
				return c
			}
		}
	}
	return nil
}

func formatSegments(segs []Segment) string {
	names := make([]string, len(segs))
	for i, s := range segs {
		switch v := s.(type) {
		case QuotedKey:
			names[i] = v.Name
		default:
			names[i] = v.String()
		}
	}
	return FormatPath(names)
}

// PathOf returns the path of target below its root, or false when target is
// not reachable through materialized children. With several roots the path
// starts with the root's index.
func PathOf(roots []*tree.Node, target *tree.Node) (string, bool) {
	nodes := tree.PathTo(roots, target)
	if nodes == nil {
		return "", false
	}
	names := make([]string, 0, len(nodes))
	if len(roots) > 1 {
		for i, r := range roots {
			if r == nodes[0] {
				names = append(names, fmt.Sprintf("[%d]", i))
				break
			}
		}
	}
	for _, n := range nodes[1:] {
		names = append(names, n.Name())
	}
	return FormatPath(names), true
}
