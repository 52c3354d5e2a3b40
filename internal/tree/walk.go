package tree

// Walk visits every node of the forest in pre-order, materializing children
// as it goes. Returning false from fn skips the node's children.
func Walk(roots []*Node, fn func(n *Node) bool) {
	stack := make([]*Node, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || !fn(n) {
			continue
		}
		kids := n.Children()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// PathTo returns the nodes from a root down to target, inclusive, searching
// only children that are already materialized. It returns nil when target is
// not reachable that way.
func PathTo(roots []*Node, target *Node) []*Node {
	if target == nil {
		return nil
	}
	var path []*Node
	var find func(n *Node) bool
	find = func(n *Node) bool {
		path = append(path, n)
		if n == target {
			return true
		}
		if n.materialized && target.depth > n.depth {
			for _, c := range n.children {
				if find(c) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		return false
	}
	for _, r := range roots {
		if find(r) {
			return path
		}
	}
	return nil
}

// Parent returns target's parent, or nil for roots and unreachable nodes.
func Parent(roots []*Node, target *Node) *Node {
	path := PathTo(roots, target)
	if len(path) < 2 {
		return nil
	}
	return path[len(path)-2]
}

// NextVisible returns the node that follows n in outline order, or nil when n
// is the last visible node or is not reachable from roots.
func NextVisible(roots []*Node, n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.Expanded() {
		if kids := n.Children(); len(kids) > 0 {
			return kids[0]
		}
	}
	path := PathTo(roots, n)
	if path == nil {
		return nil
	}
	for i := len(path) - 1; i >= 0; i-- {
		siblings := roots
		if i > 0 {
			siblings = path[i-1].children
		}
		if j := indexOf(siblings, path[i]); j >= 0 && j+1 < len(siblings) {
			return siblings[j+1]
		}
	}
	return nil
}

// PrevVisible returns the node that precedes n in outline order, or nil when
// n is the first root or is not reachable from roots.
func PrevVisible(roots []*Node, n *Node) *Node {
	path := PathTo(roots, n)
	if path == nil {
		return nil
	}
	siblings := roots
	if len(path) > 1 {
		siblings = path[len(path)-2].children
	}
	j := indexOf(siblings, n)
	if j <= 0 {
		if len(path) > 1 {
			return path[len(path)-2]
		}
		return nil
	}
	return LastVisible(siblings[j-1])
}

// LastVisible returns the deepest last visible descendant of n, or n itself.
func LastVisible(n *Node) *Node {
	for n != nil && n.Expanded() {
		kids := n.Children()
		if len(kids) == 0 {
			break
		}
		n = kids[len(kids)-1]
	}
	return n
}

func indexOf(nodes []*Node, n *Node) int {
	for i, c := range nodes {
		if c == n {
			return i
		}
	}
	return -1
}
