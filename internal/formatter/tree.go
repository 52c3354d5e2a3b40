package formatter

import (
	"github.com/xlab/treeprint"

	"github.com/oakwood-commons/kvtree/internal/tree"
)

// TreeOptions controls tree output formatting.
type TreeOptions struct {
	// NoValues hides display strings (structure only).
	NoValues bool
	// MaxDepth limits rendered depth below each root (0 = the nodes' own
	// max depth).
	MaxDepth int
	// ExpandedOnly renders only what is expanded in the tree, like the
	// outline does.
	ExpandedOnly bool
	// MaxStringLen truncates labels to this many cells (0 = unlimited).
	MaxStringLen int
}

// FormatAsTree renders a forest as an ASCII tree. Containers become branches
// labelled with their name and summary; leaves show "name: value".
func FormatAsTree(roots []*tree.Node, opts TreeOptions) string {
	t := treeprint.New()
	for _, r := range roots {
		addNode(t, r, opts)
	}
	return t.String()
}

func treeLabel(n *tree.Node, opts TreeOptions) string {
	label := n.Label()
	if opts.NoValues {
		label = n.Name()
		if label == "" {
			label = n.TypeName()
		}
	}
	if label == "" {
		label = "(item)"
	}
	return truncate(label, opts.MaxStringLen)
}

func addNode(branch treeprint.Tree, n *tree.Node, opts TreeOptions) {
	label := treeLabel(n, opts)
	if !n.HasChildren() || (opts.ExpandedOnly && !n.Expanded()) {
		branch.AddNode(label)
		return
	}
	if opts.MaxDepth > 0 && n.Depth() >= opts.MaxDepth {
		branch.AddNode(label + " ...")
		return
	}
	kids := n.Children()
	if len(kids) == 0 {
		branch.AddNode(label)
		return
	}
	child := branch.AddBranch(label)
	for _, k := range kids {
		addNode(child, k, opts)
	}
}
