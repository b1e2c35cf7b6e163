package sync

import (
	"fmt"

	"github.com/gautamajay52/adbclone/pkg/fs"
	"github.com/gautamajay52/adbclone/pkg/logging"
	"github.com/gautamajay52/adbclone/pkg/tree"
)

// CompareMode selects when an existing destination file is overwritten.
type CompareMode string

const (
	// CompareMtime overwrites only when the source modify time is newer.
	CompareMtime CompareMode = "mtime"
	// CompareMtimeSize additionally overwrites when the sizes differ.
	CompareMtimeSize CompareMode = "mtime-size"
)

// Partitions are the five disjoint outcomes of a diff. Each concrete path
// appears in at most one of them. Delete and Copy drive the transfer;
// Unaccounted is what --del removes; the excluded pair records what the
// patterns kept out on either side.
type Partitions struct {
	Delete         *tree.Node
	Copy           *tree.Node
	ExcludedSource *tree.Node
	Unaccounted    *tree.Node
	ExcludedDest   *tree.Node
}

// Prune collapses all five partitions.
func (p *Partitions) Prune() {
	p.Delete = tree.Prune(p.Delete)
	p.Copy = tree.Prune(p.Copy)
	p.ExcludedSource = tree.Prune(p.ExcludedSource)
	p.Unaccounted = tree.Prune(p.Unaccounted)
	p.ExcludedDest = tree.Prune(p.ExcludedDest)
}

// TypeConflictError reports a file/directory collision the engine refuses
// to resolve on its own.
type TypeConflictError struct {
	SourcePath      string
	SourceKind      tree.Kind
	DestinationPath string
	DestinationKind tree.Kind
}

func (e *TypeConflictError) Error() string {
	return fmt.Sprintf("refusing to overwrite %s %s with %s %s (use --force)",
		e.DestinationKind, e.DestinationPath, e.SourceKind, e.SourcePath)
}

// Differ classifies a source/destination snapshot pair. Inputs are never
// mutated; the outputs share leaf nodes with the inputs but their
// directory spines are freshly built. Exclusion is decided on the
// destination-side path before anything else, so an excluded directory is
// taken whole without recursion.
type Differ struct {
	SourceFS fs.PathOps
	DestFS   fs.PathOps
	Exclude  *Matcher
	Compare  CompareMode
	// Overwrite permits type-changing overwrites instead of failing.
	Overwrite bool
	Logger    *logging.Logger
}

// Diff classifies the pair rooted at the given paths.
func (d *Differ) Diff(src, dst *tree.Node, srcPath, dstPath string) (Partitions, error) {
	var out Partitions
	excluded := d.Exclude.Match(dstPath)

	switch {
	case src == nil && dst == nil:

	case src == nil && dst.Kind == tree.File:
		if excluded {
			out.ExcludedDest = dst
		} else {
			out.Unaccounted = dst
		}

	case src == nil && dst.Kind == tree.Dir:
		if excluded {
			out.ExcludedDest = dst
		} else {
			unacc := tree.NewDir(dst.Self)
			excl := tree.NewDir(nil)
			for _, name := range dst.Names() {
				sub, err := d.Diff(nil, dst.Children[name],
					d.SourceFS.Join(srcPath, name), d.DestFS.Join(dstPath, name))
				if err != nil {
					return Partitions{}, err
				}
				setChild(unacc, name, sub.Unaccounted)
				setChild(excl, name, sub.ExcludedDest)
			}
			out.Unaccounted = unacc
			out.ExcludedDest = excl
		}

	case dst == nil && src.Kind == tree.File:
		if excluded {
			out.ExcludedSource = src
		} else {
			out.Copy = src
		}

	case dst == nil && src.Kind == tree.Dir:
		if excluded {
			out.ExcludedSource = src
		} else {
			cp, excl, err := d.copyNewDir(src, srcPath, dstPath)
			if err != nil {
				return Partitions{}, err
			}
			out.Copy = cp
			out.ExcludedSource = excl
		}

	case src.Kind == tree.File && dst.Kind == tree.File:
		if excluded {
			out.ExcludedSource = src
			out.ExcludedDest = dst
		} else if d.overwriteFile(src, dst) {
			out.Delete = dst
			out.Copy = src
		}

	case src.Kind == tree.File && dst.Kind == tree.Dir:
		if excluded {
			out.ExcludedSource = src
			out.ExcludedDest = dst
		} else {
			if err := d.typeConflict(src, dst, srcPath, dstPath); err != nil {
				return Partitions{}, err
			}
			out.Delete = dst
			out.Copy = src
		}

	case src.Kind == tree.Dir && dst.Kind == tree.File:
		if excluded {
			out.ExcludedSource = src
			out.ExcludedDest = dst
		} else {
			if err := d.typeConflict(src, dst, srcPath, dstPath); err != nil {
				return Partitions{}, err
			}
			cp, excl, err := d.copyNewDir(src, srcPath, dstPath)
			if err != nil {
				return Partitions{}, err
			}
			out.Delete = dst
			out.Copy = cp
			out.ExcludedSource = excl
		}

	case src.Kind == tree.Dir && dst.Kind == tree.Dir:
		if excluded {
			out.ExcludedSource = src
			out.ExcludedDest = dst
		} else {
			del := tree.NewDir(nil)
			cp := tree.NewDir(nil)
			exclSrc := tree.NewDir(nil)
			unacc := tree.NewDir(nil)
			exclDst := tree.NewDir(nil)
			for _, name := range src.Names() {
				sub, err := d.Diff(src.Children[name], dst.Children[name],
					d.SourceFS.Join(srcPath, name), d.DestFS.Join(dstPath, name))
				if err != nil {
					return Partitions{}, err
				}
				setChild(del, name, sub.Delete)
				setChild(cp, name, sub.Copy)
				setChild(exclSrc, name, sub.ExcludedSource)
				setChild(unacc, name, sub.Unaccounted)
				setChild(exclDst, name, sub.ExcludedDest)
			}
			for _, name := range dst.Names() {
				if _, seen := src.Children[name]; seen {
					continue
				}
				sub, err := d.Diff(nil, dst.Children[name],
					d.SourceFS.Join(srcPath, name), d.DestFS.Join(dstPath, name))
				if err != nil {
					return Partitions{}, err
				}
				setChild(unacc, name, sub.Unaccounted)
				setChild(exclDst, name, sub.ExcludedDest)
			}
			out.Delete = del
			out.Copy = cp
			out.ExcludedSource = exclSrc
			out.Unaccounted = unacc
			out.ExcludedDest = exclDst
		}
	}
	return out, nil
}

// copyNewDir classifies a source directory with nothing at the destination:
// everything not excluded becomes copy.
func (d *Differ) copyNewDir(src *tree.Node, srcPath, dstPath string) (cp, excluded *tree.Node, err error) {
	cp = tree.NewDir(src.Self)
	excluded = tree.NewDir(nil)
	for _, name := range src.Names() {
		sub, err := d.Diff(src.Children[name], nil,
			d.SourceFS.Join(srcPath, name), d.DestFS.Join(dstPath, name))
		if err != nil {
			return nil, nil, err
		}
		setChild(cp, name, sub.Copy)
		setChild(excluded, name, sub.ExcludedSource)
	}
	return cp, excluded, nil
}

func (d *Differ) overwriteFile(src, dst *tree.Node) bool {
	if src.Times.Modify.After(dst.Times.Modify) {
		return true
	}
	return d.Compare == CompareMtimeSize && src.Size != dst.Size
}

func (d *Differ) typeConflict(src, dst *tree.Node, srcPath, dstPath string) error {
	if !d.Overwrite {
		return &TypeConflictError{
			SourcePath:      srcPath,
			SourceKind:      src.Kind,
			DestinationPath: dstPath,
			DestinationKind: dst.Kind,
		}
	}
	d.Logger.Warn("overwriting across types",
		"destination", dstPath, "destination_kind", dst.Kind.String(),
		"source", srcPath, "source_kind", src.Kind.String())
	return nil
}

func setChild(parent *tree.Node, name string, child *tree.Node) {
	if child != nil {
		parent.Children[name] = child
	}
}

// ProtectExcludedParents strips the self pair from unaccounted directories
// that also appear in the excluded destination tree, so a directory kept
// alive only as the parent of excluded entries is never offered for
// deletion. The result needs pruning.
func ProtectExcludedParents(unaccounted, excluded *tree.Node) *tree.Node {
	if unaccounted == nil || excluded == nil {
		return unaccounted
	}
	if unaccounted.Kind != tree.Dir {
		return unaccounted
	}
	out := tree.NewDir(nil)
	for name, child := range unaccounted.Children {
		out.Children[name] = ProtectExcludedParents(child, dirChild(excluded, name))
	}
	return out
}

func dirChild(n *tree.Node, name string) *tree.Node {
	if n == nil || n.Kind != tree.Dir {
		return nil
	}
	return n.Children[name]
}
