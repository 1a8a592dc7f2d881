package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/hashwalk/pkg/hashwalk/config"
	"github.com/jamesainslie/hashwalk/pkg/hashwalk/digest"
	"github.com/jamesainslie/hashwalk/pkg/hashwalk/engine"
	"github.com/jamesainslie/hashwalk/pkg/hashwalk/hashcache"
	"github.com/jamesainslie/hashwalk/pkg/hashwalk/logging"
)

// pollInterval is how often the drain loop re-checks operation status and an
// empty queue.
const pollInterval = 10 * time.Millisecond

// setupLogging initializes the diagnostic log from the loaded config.
func setupLogging(cfg *config.Config) error {
	maxSize, err := humanize.ParseBytes(cfg.Logging.Rotation.MaxSize)
	if err != nil {
		maxSize = 0 // fall back to the writer's default
	}

	level := cfg.Logging.Level
	if getVerbose() {
		level = "debug"
	}

	logCfg := logging.Config{
		Level: level,
		Path:  cfg.Logging.Path,
		Rotation: logging.RotationConfig{
			MaxSize:    int64(maxSize),
			MaxAge:     cfg.Logging.Rotation.MaxAge,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
		},
		Components: cfg.Logging.Components,
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}

	return logging.Init(logCfg)
}

// openCache opens the digest cache unless disabled by config or flag.
func openCache(cfg *config.Config) *hashcache.Cache {
	if !cfg.Cache.Enabled || viper.GetBool("no_cache") {
		return nil
	}

	path := cfg.Cache.Path
	if path == "" {
		path = config.DefaultCachePath()
	}

	cache, err := hashcache.Open(path)
	if err != nil {
		logging.Get("cli").Warn("digest cache unavailable, hashing without it", "path", path, "error", err)
		return nil
	}
	return cache
}

// buildEngine assembles an engine from the loaded config. The returned
// cleanup closes the cache; call it after Terminate.
func buildEngine(cfg *config.Config) (*engine.Engine, func(), error) {
	provider, err := digest.ByName(cfg.Digest)
	if err != nil {
		return nil, nil, err
	}

	cache := openCache(cfg)
	eng := engine.New(engine.Config{
		Digest:       provider,
		FileWorkers:  cfg.Workers.File,
		MaxOpenFiles: cfg.MaxOpenFiles,
		Cache:        cache,
	})

	cleanup := func() {
		if cache != nil {
			_ = cache.Close()
		}
	}
	return eng, cleanup, nil
}

// runHash hashes each argument tree and streams result lines to stdout.
func runHash(cmd *cobra.Command, args []string) error {
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

	started := time.Now()

	var ids []engine.OperationID
	var id engine.OperationID
	for _, dir := range args {
		id++
		if code := eng.HashDirectory(dir, id); code != engine.Ok {
			printError("%s: %s", dir, code)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return fmt.Errorf("no directory could be hashed")
	}

	drainUntilDone(eng, ids)

	if !getQuiet() {
		stats := eng.Stats()
		printInfo("hashed %s files (%s) in %s, %s cache hits",
			humanize.Comma(stats.FilesHashed),
			humanize.Bytes(uint64(stats.BytesHashed)),
			time.Since(started).Round(time.Millisecond),
			humanize.Comma(stats.CacheHits))
	}
	return nil
}

// drainUntilDone prints queue lines until every operation has settled and the
// queue is empty.
func drainUntilDone(eng *engine.Engine, ids []engine.OperationID) {
	for {
		line, code := eng.ReadNextLogLine()
		if code == engine.Ok {
			fmt.Println(line)
			continue
		}

		if !anyRunning(eng, ids) {
			// Queue was empty after all operations settled: one final
			// sweep to catch lines pushed between the two checks.
			for {
				line, code := eng.ReadNextLogLine()
				if code != engine.Ok {
					return
				}
				fmt.Println(line)
			}
		}
		time.Sleep(pollInterval)
	}
}

// anyRunning reports whether any of the given operations is still in flight.
func anyRunning(eng *engine.Engine, ids []engine.OperationID) bool {
	for _, id := range ids {
		if running, code := eng.Status(id); code == engine.Ok && running {
			return true
		}
	}
	return false
}
