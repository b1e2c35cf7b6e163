package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gautamajay52/adbclone/pkg/fs"
	"github.com/gautamajay52/adbclone/pkg/logging"
	"github.com/gautamajay52/adbclone/pkg/tree"
	"github.com/gautamajay52/adbclone/pkg/ui"
)

// Executor applies classified trees against the destination filesystem. In
// dry-run mode every action is logged but nothing is touched.
type Executor struct {
	Source   fs.FileSystem
	Dest     fs.FileSystem
	Logger   *logging.Logger
	Progress ui.Progress
	DryRun   bool

	CopiedFiles    int
	CopiedBytes    int64
	DeletedEntries int
}

// RemoveTree deletes entries bottom-up, children before their directory. A
// directory is removed only when it carries its self pair; bare containers
// exist only to reach deeper entries.
func (e *Executor) RemoveTree(ctx context.Context, root string, t *tree.Node) error {
	if t == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Kind == tree.File {
		if e.DryRun {
			e.Logger.Info("would remove", "path", root)
		} else {
			e.Logger.Info("removing", "path", root)
			if err := e.Dest.Unlink(root); err != nil {
				return err
			}
		}
		e.DeletedEntries++
		return nil
	}
	for _, name := range t.Names() {
		if err := e.RemoveTree(ctx, e.Dest.Join(root, name), t.Children[name]); err != nil {
			return err
		}
	}
	if t.Self != nil {
		if e.DryRun {
			e.Logger.Info("would remove folder", "path", root)
		} else {
			e.Logger.Info("removing folder", "path", root)
			if err := e.Dest.RemoveAll(root); err != nil {
				return err
			}
		}
		e.DeletedEntries++
	}
	return nil
}

// PushTree copies entries top-down, creating directories before descending
// into them. File timestamps are restored after the bytes land.
func (e *Executor) PushTree(ctx context.Context, sourceRoot, destRoot string, t *tree.Node) error {
	if t == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.Kind == tree.File {
		return e.pushFile(ctx, sourceRoot, destRoot, t)
	}
	if t.Self != nil {
		if e.DryRun {
			e.Logger.Info("would create folder", "path", destRoot)
		} else {
			e.Logger.Debug("creating folder", "path", destRoot)
			if err := e.Dest.MkdirAll(destRoot); err != nil {
				return err
			}
		}
	}
	for _, name := range t.Names() {
		if err := e.PushTree(ctx, e.Source.Join(sourceRoot, name), e.Dest.Join(destRoot, name), t.Children[name]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) pushFile(ctx context.Context, source, dest string, t *tree.Node) error {
	if e.Progress != nil {
		e.Progress.NextFile(dest, t.Size)
	}
	if e.DryRun {
		e.Logger.Info("would copy", "source", source, "destination", dest, "size", t.Size)
		if e.Progress != nil {
			e.Progress.AddBytes(t.Size)
		}
	} else {
		e.Logger.Info("copying", "source", source, "destination", dest, "size", t.Size)
		var advance func(int64)
		if e.Progress != nil {
			advance = e.Progress.AddBytes
		}
		if err := e.Dest.TransferFile(ctx, source, dest, t.Size, advance); err != nil {
			return err
		}
		if err := e.Dest.Chtimes(dest, t.Times.Access, t.Times.Modify); err != nil {
			return err
		}
	}
	e.CopiedFiles++
	e.CopiedBytes += t.Size
	return nil
}

// FixedDestinationPath applies trailing-slash copy semantics. When the
// destination is an existing directory, a source file or a source
// directory named without a trailing slash nests under its base name; a
// slash-terminated source directory copies its contents into the
// destination itself. A symlink destination is refused outright.
func FixedDestinationPath(source, dest fs.FileSystem, sourceArg, destPath string) (string, error) {
	dstMeta, err := dest.Lstat(destPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return destPath, nil
		}
		return "", err
	}
	if dstMeta.Kind == fs.KindSymlink {
		return "", fmt.Errorf("destination %s is a symlink", destPath)
	}
	if dstMeta.Kind != fs.KindDirectory {
		return destPath, nil
	}

	trailing := strings.HasSuffix(sourceArg, "/") || strings.HasSuffix(sourceArg, `\`)
	srcMeta, err := source.Lstat(source.Clean(sourceArg))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return destPath, nil
		}
		return "", err
	}
	if srcMeta.Kind == fs.KindRegular || (srcMeta.Kind == fs.KindDirectory && !trailing) {
		_, base := source.Split(source.Clean(sourceArg))
		return dest.Join(destPath, base), nil
	}
	return destPath, nil
}
