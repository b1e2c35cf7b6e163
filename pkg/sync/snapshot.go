package sync

import (
	"fmt"

	"github.com/gautamajay52/adbclone/pkg/fs"
	"github.com/gautamajay52/adbclone/pkg/logging"
	"github.com/gautamajay52/adbclone/pkg/tree"
	"github.com/gautamajay52/adbclone/pkg/ui"
)

// Builder walks a filesystem subtree into a comparable snapshot, keeping
// running folder/file/byte tallies for the scan display. Timestamps are
// truncated to minute resolution before they enter the tree.
type Builder struct {
	FS          fs.FileSystem
	Logger      *logging.Logger
	Counter     ui.Counter
	FollowLinks bool

	Folders int
	Files   int
	Bytes   int64
}

// BuildTree snapshots the subtree rooted at path. Errors on the root
// propagate so the caller can decide what a missing root means; entries
// that vanish or turn unreadable mid-walk are logged and skipped. A root
// symlink without FollowLinks yields a nil tree.
func (b *Builder) BuildTree(path string) (*tree.Node, error) {
	meta, err := b.FS.Lstat(path)
	if err != nil {
		return nil, err
	}
	return b.build(path, meta)
}

func (b *Builder) build(path string, meta fs.FileMeta) (*tree.Node, error) {
	switch meta.Kind {
	case fs.KindSymlink:
		if !b.FollowLinks {
			b.Logger.Warn("ignoring symlink", "path", path)
			return nil, nil
		}
		b.Logger.Debug("following symlink", "path", path)
		real, err := b.FS.RealPath(path)
		if err != nil {
			if fs.Skippable(err) {
				b.Logger.Warn("skipping broken symlink", "path", path, "err", err)
				return nil, nil
			}
			return nil, err
		}
		realMeta, err := b.FS.Lstat(real)
		if err != nil {
			if fs.Skippable(err) {
				b.Logger.Warn("skipping broken symlink", "path", path, "err", err)
				return nil, nil
			}
			return nil, err
		}
		return b.build(real, realMeta)

	case fs.KindDirectory:
		b.Folders++
		self := tree.Times{
			Access: tree.Minute(meta.AccessTime),
			Modify: tree.Minute(meta.ModTime),
		}
		node := tree.NewDir(&self)
		children, err := b.FS.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if child.Name == "" {
				// A nameless entry cannot even be addressed, let alone
				// copied; the remote listing yields these for symlinks.
				b.Logger.Warn("ignoring nameless entry", "dir", path, "kind", child.Kind.String())
				continue
			}
			childPath := b.FS.Join(path, child.Name)
			childNode, err := b.build(childPath, child)
			if err != nil {
				if fs.Skippable(err) {
					b.Logger.Warn("skipping entry", "path", childPath, "err", err)
					continue
				}
				return nil, err
			}
			if childNode != nil {
				node.Children[child.Name] = childNode
			}
		}
		return node, nil

	case fs.KindRegular:
		b.Files++
		b.Bytes += meta.Size
		if b.Counter != nil {
			b.Counter.Count(b.Folders, b.Files, b.Bytes)
		}
		times := tree.Times{
			Access: tree.Minute(meta.AccessTime),
			Modify: tree.Minute(meta.ModTime),
		}
		return tree.NewFile(times, meta.Size), nil

	default:
		return nil, fmt.Errorf("%s: cannot sync a %s", path, meta.Kind)
	}
}
