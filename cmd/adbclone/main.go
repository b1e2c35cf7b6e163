package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gautamajay52/adbclone/pkg/config"
	"github.com/gautamajay52/adbclone/pkg/logging"
	"github.com/gautamajay52/adbclone/pkg/sync"
)

const version = "0.1.0"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "adbclone: %v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	dryRun         bool
	copyLinks      bool
	excludes       []string
	excludeFrom    []string
	del            bool
	deleteExcluded bool
	force          bool
	showProgress   bool
	showTree       bool
	compare        string
	adbBin         string
	adbFlags       []string
	adbOptions     []string
	configPath     string
	logFile        string
	verbose        int
	quiet          int
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	cmd := &cobra.Command{
		Use:           "adbclone",
		Short:         "Synchronize files between a computer and an Android device over adb",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&flags.dryRun, "dry-run", "n", false, "show what would be transferred without touching anything")
	pf.BoolVarP(&flags.copyLinks, "copy-links", "L", false, "follow symlinks on the source instead of skipping them")
	pf.StringArrayVarP(&flags.excludes, "exclude", "e", nil, "fnmatch pattern to exclude, repeatable")
	pf.StringArrayVarP(&flags.excludeFrom, "exclude-from", "E", nil, "file with one exclude pattern per line, repeatable")
	pf.BoolVar(&flags.del, "del", false, "delete destination entries absent from the source")
	pf.BoolVar(&flags.deleteExcluded, "delete-excluded", false, "also delete excluded destination entries")
	pf.BoolVar(&flags.force, "force", false, "allow replacing a file with a folder or vice versa")
	pf.BoolVar(&flags.showProgress, "show-progress", false, "show scan counters and a transfer progress bar")
	pf.BoolVar(&flags.showTree, "show-tree", false, "print the classified trees before transferring")
	pf.StringVar(&flags.compare, "compare", string(sync.CompareMtime), "overwrite policy: mtime / mtime-size")
	pf.StringVar(&flags.adbBin, "adb-bin", "adb", "adb binary to run")
	pf.StringArrayVar(&flags.adbFlags, "adb-flag", nil, "single-letter adb flag such as d or e, repeatable")
	pf.StringArrayVar(&flags.adbOptions, "adb-option", nil, "adb KEY=VALUE option such as s=SERIAL, repeatable")
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/"+config.FileName+")")
	pf.StringVar(&flags.logFile, "log-file", "", "also write the log to this file")
	pf.CountVarP(&flags.verbose, "verbose", "v", "more logging; -v shows debug output")
	pf.CountVarP(&flags.quiet, "quiet", "q", "less logging; -q warnings, -qq errors, -qqq nothing")

	cmd.AddCommand(newPushCmd(flags), newPullCmd(flags))
	return cmd
}

func newPushCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "push LOCAL ANDROID",
		Short: "Copy computer files to the device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, flags, sync.DirectionPush, args[0], args[1])
		},
	}
}

func newPullCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pull ANDROID LOCAL",
		Short: "Copy device files to the computer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, flags, sync.DirectionPull, args[1], args[0])
		},
	}
}

// runSync folds the config file under the typed flags and starts the run.
// A flag the user actually set always beats the file; file excludes are
// prepended so flag patterns are matched last.
func runSync(cmd *cobra.Command, flags *cliFlags, direction sync.Direction, local, android string) error {
	cfg, err := config.Resolve(flags.configPath)
	if err != nil {
		return err
	}

	set := cmd.Flags()
	adbBin := flags.adbBin
	if cfg.ADB.Bin != "" && !set.Changed("adb-bin") {
		adbBin = cfg.ADB.Bin
	}
	adbFlags := flags.adbFlags
	if len(cfg.ADB.Flags) > 0 && !set.Changed("adb-flag") {
		adbFlags = cfg.ADB.Flags
	}
	compare := flags.compare
	if cfg.Compare != "" && !set.Changed("compare") {
		compare = cfg.Compare
	}

	options, err := parseADBOptions(flags.adbOptions)
	if err != nil {
		return err
	}
	if len(options) == 0 {
		options = sortedOptions(cfg.ADB.Options)
	}

	logLevel := logging.LevelFromCounts(flags.verbose, flags.quiet)
	if cfg.LogLevel != "" && !set.Changed("verbose") && !set.Changed("quiet") {
		logLevel = cfg.LogLevel
	}

	excludes := append([]string{}, cfg.Exclude...)
	excludes = append(excludes, flags.excludes...)
	for _, path := range flags.excludeFrom {
		patterns, err := config.ReadPatternFile(path)
		if err != nil {
			return fmt.Errorf("read exclude file: %w", err)
		}
		excludes = append(excludes, patterns...)
	}

	opts := &sync.Options{
		Direction:      direction,
		Local:          local,
		Android:        android,
		DryRun:         flags.dryRun,
		CopyLinks:      flags.copyLinks,
		Excludes:       excludes,
		Delete:         flags.del,
		DeleteExcluded: flags.deleteExcluded,
		Force:          flags.force,
		Compare:        sync.CompareMode(compare),
		ShowProgress:   flags.showProgress,
		ShowTree:       flags.showTree,
		ADBBin:         adbBin,
		ADBFlags:       adbFlags,
		ADBOptions:     options,
		LogLevel:       logLevel,
		LogFile:        flags.logFile,
	}
	return sync.Run(cmd.Context(), opts)
}

func parseADBOptions(pairs []string) ([][2]string, error) {
	var options [][2]string
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("adb option %q is not KEY=VALUE", pair)
		}
		options = append(options, [2]string{key, value})
	}
	return options, nil
}

func sortedOptions(m map[string]string) [][2]string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	options := make([][2]string, 0, len(keys))
	for _, key := range keys {
		options = append(options, [2]string{key, m[key]})
	}
	return options
}
