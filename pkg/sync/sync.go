package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"code.cloudfoundry.org/bytefmt"

	"github.com/gautamajay52/adbclone/pkg/fs"
	"github.com/gautamajay52/adbclone/pkg/logging"
	"github.com/gautamajay52/adbclone/pkg/tree"
	"github.com/gautamajay52/adbclone/pkg/ui"
)

// Run executes one full sync: connect, snapshot both sides, classify, then
// delete and copy per the options.
func Run(ctx context.Context, opts *Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	var progress ui.Progress = ui.NoopProgress{}
	newCounter := func(string) ui.Counter { return ui.NoopCounter{} }
	out := io.Writer(os.Stdout)
	if opts.ShowProgress {
		bar := ui.NewBarProgress(os.Stdout)
		progress = bar
		out = bar.WrapWriter(os.Stdout)
		newCounter = func(label string) ui.Counter { return ui.NewScanCounter(os.Stdout, label) }
	}

	logWriters := []io.Writer{out}
	if opts.LogFile != "" {
		file, err := os.Create(opts.LogFile)
		if err != nil {
			return fmt.Errorf("create log file: %w", err)
		}
		logWriters = append(logWriters, file)
	}
	logger, err := logging.New(opts.LogLevel, logWriters...)
	if err != nil {
		return err
	}
	defer logger.Close()

	dev := fs.NewDevice(opts.ADBBin, opts.ADBFlags, opts.ADBOptions)
	android, err := fs.NewAndroidFS(dev, logger)
	if err != nil {
		return err
	}
	defer android.Close()
	local := fs.NewLocalFS(dev, logger)
	defer local.Close()

	if err := android.TestConnection(); err != nil {
		return err
	}
	logger.Debug("device reachable", "adb", dev.Bin)

	var srcFS, dstFS fs.FileSystem
	var sourceArg, destPath string
	if opts.Direction == DirectionPush {
		srcFS, sourceArg = local, opts.Local
		dstFS, destPath = android, opts.Android
	} else {
		srcFS, sourceArg = android, opts.Android
		dstFS, destPath = local, opts.Local
	}

	destPath, err = FixedDestinationPath(srcFS, dstFS, sourceArg, dstFS.Clean(destPath))
	if err != nil {
		return err
	}
	sourcePath := srcFS.Clean(sourceArg)
	destPath = dstFS.Clean(destPath)
	logger.Info("syncing", "direction", string(opts.Direction), "source", sourcePath, "destination", destPath)

	srcCounter := newCounter("scanning source")
	srcBuilder := &Builder{FS: srcFS, Logger: logger, Counter: srcCounter, FollowLinks: opts.CopyLinks}
	srcTree, err := srcBuilder.BuildTree(sourcePath)
	srcCounter.Done()
	if err != nil {
		return fmt.Errorf("scan source %s: %w", sourcePath, err)
	}
	logger.Info("source scanned",
		"folders", srcBuilder.Folders, "files", srcBuilder.Files,
		"size", bytefmt.ByteSize(uint64(srcBuilder.Bytes)))

	dstCounter := newCounter("scanning destination")
	dstBuilder := &Builder{FS: dstFS, Logger: logger, Counter: dstCounter, FollowLinks: opts.CopyLinks}
	dstTree, err := dstBuilder.BuildTree(destPath)
	dstCounter.Done()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("scan destination %s: %w", destPath, err)
		}
		dstTree = nil
		logger.Debug("destination does not exist yet", "path", destPath)
	} else {
		logger.Info("destination scanned",
			"folders", dstBuilder.Folders, "files", dstBuilder.Files,
			"size", bytefmt.ByteSize(uint64(dstBuilder.Bytes)))
	}

	// Trees print when requested, otherwise they still reach the logger at
	// debug so a -v run records what the classification saw.
	showTree := func(label string, node *tree.Node) {
		if node == nil {
			return
		}
		if opts.ShowTree {
			fmt.Fprint(out, tree.Render(label, node))
			return
		}
		logger.Tree(slog.LevelDebug, tree.Render(label, node))
	}
	showTree("source "+sourcePath, srcTree)
	showTree("destination "+destPath, dstTree)

	patterns := rootedExcludes(dstFS, destPath, srcTree, opts.Excludes)
	matcher, err := NewMatcher(patterns)
	if err != nil {
		return err
	}
	if len(patterns) > 0 {
		logger.Debug("exclude patterns", "rooted", patterns)
	}

	differ := &Differ{
		SourceFS:  srcFS,
		DestFS:    dstFS,
		Exclude:   matcher,
		Compare:   opts.Compare,
		Overwrite: opts.Force || opts.DryRun,
		Logger:    logger,
	}
	parts, err := differ.Diff(srcTree, dstTree, sourcePath, destPath)
	if err != nil {
		return err
	}
	parts.Prune()
	protected := tree.Prune(ProtectExcludedParents(parts.Unaccounted, parts.ExcludedDest))

	if parts.Delete != nil {
		fmt.Fprint(out, tree.Render("replaced entries to delete under "+destPath, parts.Delete))
	}
	showTree("to copy to "+destPath, parts.Copy)
	showTree("unaccounted under "+destPath, parts.Unaccounted)
	showTree("excluded under "+sourcePath, parts.ExcludedSource)
	showTree("excluded under "+destPath, parts.ExcludedDest)
	showTree("deletable unaccounted under "+destPath, protected)

	executor := &Executor{Source: srcFS, Dest: dstFS, Logger: logger, Progress: progress, DryRun: opts.DryRun}

	if err := executor.RemoveTree(ctx, destPath, parts.Delete); err != nil {
		return err
	}
	for _, phase := range deletePhases(opts.Delete, opts.DeleteExcluded, &parts, protected) {
		if err := executor.RemoveTree(ctx, destPath, phase); err != nil {
			return err
		}
	}

	if parts.Copy != nil {
		if !opts.DryRun {
			target := destPath
			if parts.Copy.Kind == tree.File {
				target, _ = dstFS.Split(destPath)
			}
			if err := dstFS.MkdirAll(target); err != nil {
				return err
			}
		}
		files, totalBytes := tree.Stats(parts.Copy)
		progress.Start(files, totalBytes)
		pushErr := executor.PushTree(ctx, sourcePath, destPath, parts.Copy)
		progress.Finish()
		if pushErr != nil {
			return pushErr
		}
	} else {
		logger.Info("nothing to copy")
	}

	logger.Info("sync complete",
		"copied_files", executor.CopiedFiles,
		"copied", bytefmt.ByteSize(uint64(executor.CopiedBytes)),
		"deleted_entries", executor.DeletedEntries,
		"dry_run", opts.DryRun)
	return nil
}

// deletePhases picks which classified trees the delete flags remove, in
// order. --del alone removes the protected tree, sparing directories that
// exist only to hold excluded entries. With --delete-excluded those
// entries go first, so the raw unaccounted tree follows unshielded.
func deletePhases(del, delExcluded bool, parts *Partitions, protected *tree.Node) []*tree.Node {
	switch {
	case del && delExcluded:
		return []*tree.Node{parts.ExcludedDest, parts.Unaccounted}
	case delExcluded:
		return []*tree.Node{parts.ExcludedDest}
	case del:
		return []*tree.Node{protected}
	}
	return nil
}

// rootedExcludes anchors user patterns under the destination root. For a
// directory source a pattern names entries below the root; for a single
// file source it extends the destination path itself.
func rootedExcludes(dst fs.PathOps, destPath string, sourceTree *tree.Node, patterns []string) []string {
	rooted := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if sourceTree != nil && sourceTree.Kind == tree.Dir {
			rooted = append(rooted, dst.Clean(dst.Join(destPath, p)))
		} else {
			rooted = append(rooted, dst.Clean(destPath+p))
		}
	}
	return rooted
}
