package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/hashwalk/pkg/hashwalk/config"
	"github.com/jamesainslie/hashwalk/pkg/hashwalk/engine"
	"github.com/jamesainslie/hashwalk/pkg/hashwalk/logging"
	"github.com/jamesainslie/hashwalk/pkg/hashwalk/watch"
)

// watchIDBase is where watcher-allocated operation identifiers start, leaving
// the low range to the initial per-argument operations.
const watchIDBase = 1 << 32

var watchCmd = &cobra.Command{
	Use:   "watch [dir]...",
	Short: "Hash trees, then re-hash files as they change",
	Long: `Watch hashes each directory tree once, then keeps watching it and re-hashes
changed files, printing a fresh result line for every (re)computed digest.
Runs until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// runWatch performs the initial hash of each tree, then streams re-hash
// results until interrupted.
func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := configForRun()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	eng, cleanup, err := buildEngine(cfg)
	if err != nil {
		printError("%v", err)
		return err
	}
	defer cleanup()

	if code := eng.Init(); code != engine.Ok {
		err := fmt.Errorf("engine init failed: %s", code)
		printError("%v", err)
		return err
	}
	defer eng.Terminate()

	w, err := watch.New(eng, watchIDBase)
	if err != nil {
		printError("creating watcher: %v", err)
		return err
	}
	defer w.Close()

	var ids []engine.OperationID
	var id engine.OperationID
	for _, dir := range args {
		id++
		if code := eng.HashDirectory(dir, id); code != engine.Ok {
			printError("%s: %s", dir, code)
			continue
		}
		if err := w.Watch(dir); err != nil {
			printError("watching %s: %v", dir, err)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return fmt.Errorf("no directory could be watched")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() { _ = w.Run(ctx) }()

	printInfo("watching %d tree(s), ^C to stop", len(ids))

	// Stream result lines until interrupted.
	for {
		line, code := eng.ReadNextLogLine()
		if code == engine.Ok {
			fmt.Println(line)
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(pollInterval):
		}
	}
}

// configForRun builds the configuration from the flag-bound viper and
// initializes logging for a command run. initConfig has already layered
// defaults, config file, and environment under the flags.
func configForRun() (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		printError("%v", err)
		return nil, err
	}
	if err := setupLogging(cfg); err != nil {
		printError("initializing logging: %v", err)
		return nil, err
	}
	return cfg, nil
}
