package tree

// Prune returns a copy of the tree with absent entries removed. A directory
// left with no children and no self pair collapses to absent. Pruning an
// already pruned tree is a no-op.
func Prune(n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.Kind == File {
		return n
	}
	out := NewDir(n.Self)
	for name, child := range n.Children {
		if kept := Prune(child); kept != nil {
			out.Children[name] = kept
		}
	}
	if len(out.Children) == 0 && out.Self == nil {
		return nil
	}
	return out
}
