package tagtree

import (
	"slices"
	"sort"
)

// Node is one tag in the hierarchy. Children keep their insertion order.
type Node struct {
	Name     string
	Children []*Node
}

// Tree is the root of a tag hierarchy. Tag names are unique across the whole
// tree, not just among siblings.
type Tree struct {
	Roots []*Node
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// PruneMode controls what happens to still-current descendants of a pruned tag.
type PruneMode string

const (
	// PrunePromote re-attaches current descendants of a removed tag at the root.
	PrunePromote PruneMode = "promote"
	// PruneDiscard drops the whole subtree of a removed tag.
	PruneDiscard PruneMode = "discard"
)

// ValidPruneMode reports whether m is a known prune mode.
func ValidPruneMode(m PruneMode) bool {
	return m == PrunePromote || m == PruneDiscard
}

// MoveResult describes how a move request was resolved.
type MoveResult int

const (
	MoveApplied MoveResult = iota
	MoveOntoSelf
	MoveAlreadyBelow // dragged is already somewhere under target
	MoveIntoOwnSubtree
	MoveTargetMissing
	MoveDraggedMissing
)

func (r MoveResult) String() string {
	switch r {
	case MoveApplied:
		return "applied"
	case MoveOntoSelf:
		return "dropped onto itself"
	case MoveAlreadyBelow:
		return "already nested under target"
	case MoveIntoOwnSubtree:
		return "target is inside the dragged subtree"
	case MoveTargetMissing:
		return "target not found"
	case MoveDraggedMissing:
		return "dragged tag not found"
	default:
		return "unknown"
	}
}

// Applied reports whether the move changed the tree.
func (r MoveResult) Applied() bool { return r == MoveApplied }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Child returns the direct child with the given name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (n *Node) clone() *Node {
	out := &Node{Name: n.Name}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.clone()
		}
	}
	return out
}

// Find searches the whole tree depth-first and returns the first node with
// the given name.
func (t *Tree) Find(name string) *Node {
	return find(t.Roots, name)
}

func find(nodes []*Node, name string) *Node {
	for _, n := range nodes {
		if n.Name == name {
			return n
		}
		if found := find(n.Children, name); found != nil {
			return found
		}
	}
	return nil
}

// Contains reports whether any node in the tree has the given name.
func (t *Tree) Contains(name string) bool {
	return t.Find(name) != nil
}

// Names returns every tag name in depth-first order.
func (t *Tree) Names() []string {
	var out []string
	t.Walk(func(n *Node, _ int) bool {
		out = append(out, n.Name)
		return true
	})
	return out
}

// Duplicates returns the names that occur more than once, in order of their
// second occurrence.
func (t *Tree) Duplicates() []string {
	seen := make(map[string]int)
	var out []string
	t.Walk(func(n *Node, _ int) bool {
		seen[n.Name]++
		if seen[n.Name] == 2 {
			out = append(out, n.Name)
		}
		return true
	})
	return out
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	count := 0
	t.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}

// Walk visits nodes depth-first. Returning false from fn skips the node's children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	walk(t.Roots, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(*Node, int) bool) {
	for _, n := range nodes {
		if fn(n, depth) {
			walk(n.Children, depth+1, fn)
		}
	}
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	out := &Tree{}
	if len(t.Roots) > 0 {
		out.Roots = make([]*Node, len(t.Roots))
		for i, n := range t.Roots {
			out.Roots[i] = n.clone()
		}
	}
	return out
}

// Equal reports whether both trees have the same names, nesting and order.
func (t *Tree) Equal(other *Tree) bool {
	return equalNodes(t.Roots, other.Roots)
}

func equalNodes(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !equalNodes(a[i].Children, b[i].Children) {
			return false
		}
	}
	return true
}

// IsDescendant reports whether name sits anywhere below ancestor.
func (t *Tree) IsDescendant(ancestor, name string) bool {
	a := t.Find(ancestor)
	if a == nil {
		return false
	}
	return find(a.Children, name) != nil
}

// Merge inserts every tag not already present anywhere in the tree as a new
// top-level leaf. Tags are processed in lexicographic order. Existing tags are
// never moved. It returns the names that were added.
func (t *Tree) Merge(tags []string) []string {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)

	var added []string
	for _, tag := range sorted {
		if tag == "" || t.Contains(tag) {
			continue
		}
		t.Roots = append(t.Roots, &Node{Name: tag})
		added = append(added, tag)
	}
	return added
}

// Prune removes every node whose name is not in current, at every level.
// With PrunePromote, current tags found below a removed node are re-attached
// at the root in the order they are met. It returns the removed names.
func (t *Tree) Prune(current map[string]struct{}, mode PruneMode) []string {
	var removed, orphans []*Node
	promote := mode != PruneDiscard
	t.Roots = prune(t.Roots, current, promote, &removed, &orphans)
	t.Roots = append(t.Roots, orphans...)

	names := make([]string, len(removed))
	for i, n := range removed {
		names[i] = n.Name
	}
	return names
}

func prune(nodes []*Node, current map[string]struct{}, promote bool, removed, orphans *[]*Node) []*Node {
	kept := nodes[:0]
	for _, n := range nodes {
		if _, ok := current[n.Name]; ok {
			n.Children = prune(n.Children, current, promote, removed, orphans)
			kept = append(kept, n)
			continue
		}
		*removed = append(*removed, n)
		if promote {
			// Deeper orphans are appended during the recursion; this node's
			// surviving children go in front of them.
			at := len(*orphans)
			sub := prune(n.Children, current, promote, removed, orphans)
			*orphans = slices.Insert(*orphans, at, sub...)
		} else {
			collectRemoved(n.Children, removed)
		}
	}
	for i := len(kept); i < len(nodes); i++ {
		nodes[i] = nil
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func collectRemoved(nodes []*Node, removed *[]*Node) {
	for _, n := range nodes {
		*removed = append(*removed, n)
		collectRemoved(n.Children, removed)
	}
}

// Remove detaches the first node named name, together with its subtree.
func (t *Tree) Remove(name string) (*Node, bool) {
	var n *Node
	t.Roots, n = remove(t.Roots, name)
	return n, n != nil
}

func remove(nodes []*Node, name string) ([]*Node, *Node) {
	for i, n := range nodes {
		if n.Name == name {
			rest := append(nodes[:i:i], nodes[i+1:]...)
			if len(rest) == 0 {
				rest = nil
			}
			return rest, n
		}
		var found *Node
		n.Children, found = remove(n.Children, name)
		if found != nil {
			return nodes, found
		}
	}
	return nodes, nil
}

// Move re-parents dragged (with its subtree) under target.
func (t *Tree) Move(dragged, target string) MoveResult {
	if dragged == target {
		return MoveOntoSelf
	}
	dst := t.Find(target)
	if dst == nil {
		return MoveTargetMissing
	}
	src := t.Find(dragged)
	if src == nil {
		return MoveDraggedMissing
	}
	if find(dst.Children, dragged) != nil {
		return MoveAlreadyBelow
	}
	if find(src.Children, target) != nil {
		return MoveIntoOwnSubtree
	}

	node, _ := t.Remove(dragged)
	dst.Children = append(dst.Children, node)
	return MoveApplied
}

// Unnest detaches name and re-inserts it at the end of the top level.
func (t *Tree) Unnest(name string) bool {
	node, ok := t.Remove(name)
	if !ok {
		return false
	}
	t.Roots = append(t.Roots, node)
	return true
}

// Sorted returns a copy of the tree with siblings ordered by name.
// The receiver is left untouched.
func (t *Tree) Sorted(desc bool) *Tree {
	out := t.Clone()
	sortNodes(out.Roots, desc)
	return out
}

func sortNodes(nodes []*Node, desc bool) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if desc {
			return nodes[i].Name > nodes[j].Name
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, n := range nodes {
		sortNodes(n.Children, desc)
	}
}
