package tree

import (
	"fmt"
	"strings"

	"code.cloudfoundry.org/bytefmt"
)

// Render draws the tree as indented text with guide glyphs, one entry per
// line, children in sorted order. File leaves show their size.
func Render(label string, n *Node) string {
	var b strings.Builder
	b.WriteString(label)
	if n != nil && n.Kind == File {
		fmt.Fprintf(&b, " (%s)", bytefmt.ByteSize(uint64(n.Size)))
	}
	b.WriteString("\n")
	renderChildren(&b, n, "")
	return b.String()
}

func renderChildren(b *strings.Builder, n *Node, prefix string) {
	if n == nil || n.Kind != Dir {
		return
	}
	names := n.Names()
	for i, name := range names {
		child := n.Children[name]
		last := i == len(names)-1
		guide, indent := "├── ", "│   "
		if last {
			guide, indent = "└── ", "    "
		}
		b.WriteString(prefix)
		b.WriteString(guide)
		b.WriteString(name)
		if child != nil && child.Kind == File {
			fmt.Fprintf(b, " (%s)", bytefmt.ByteSize(uint64(child.Size)))
		}
		if child != nil && child.Kind == Dir {
			b.WriteString("/")
		}
		b.WriteString("\n")
		renderChildren(b, child, prefix+indent)
	}
}
