package tree

import (
	"sort"
	"time"
)

// Kind distinguishes the two concrete node types. Absence is a nil *Node.
type Kind int

const (
	File Kind = iota
	Dir
)

func (k Kind) String() string {
	if k == Dir {
		return "directory"
	}
	return "file"
}

// Times is an access/modify timestamp pair at minute resolution.
type Times struct {
	Access time.Time
	Modify time.Time
}

// Node is one entry of a filesystem snapshot. A File node carries its own
// Times and Size; a Dir node carries named children plus an optional Self
// pair. Self is nil when the directory is only a container for deeper
// entries and must not itself be created or removed.
type Node struct {
	Kind     Kind
	Times    Times
	Size     int64
	Self     *Times
	Children map[string]*Node
}

// NewFile builds a file leaf.
func NewFile(times Times, size int64) *Node {
	return &Node{Kind: File, Times: times, Size: size}
}

// NewDir builds a directory node with the given self pair (may be nil).
func NewDir(self *Times) *Node {
	return &Node{Kind: Dir, Self: self, Children: make(map[string]*Node)}
}

// Minute truncates a timestamp to 60-second resolution, the finest
// granularity the remote listing format can express.
func Minute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// Names returns the node's child names in sorted order. Safe on nil and
// file nodes.
func (n *Node) Names() []string {
	if n == nil || n.Kind != Dir {
		return nil
	}
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats counts the file leaves and their total byte size.
func Stats(n *Node) (files int, bytes int64) {
	if n == nil {
		return 0, 0
	}
	if n.Kind == File {
		return 1, n.Size
	}
	for _, child := range n.Children {
		f, b := Stats(child)
		files += f
		bytes += b
	}
	return files, bytes
}

// Equal compares two trees structurally, using time.Equal for timestamps.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == File {
		return a.Size == b.Size && timesEqual(a.Times, b.Times)
	}
	if (a.Self == nil) != (b.Self == nil) {
		return false
	}
	if a.Self != nil && !timesEqual(*a.Self, *b.Self) {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for name, ac := range a.Children {
		if !Equal(ac, b.Children[name]) {
			return false
		}
	}
	return true
}

func timesEqual(a, b Times) bool {
	return a.Access.Equal(b.Access) && a.Modify.Equal(b.Modify)
}
