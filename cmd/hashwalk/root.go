package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/hashwalk/pkg/hashwalk/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "hashwalk [dir]...",
		Short: "Hash every file under directory trees",
		Long: `Hashwalk walks directory trees and computes a content digest for every
regular file, printing one "<algo> <path> <digest>" line per file.

Trees are hashed concurrently by a bounded worker pool; unchanged files are
served from a persistent digest cache.

Examples:
  hashwalk .                   # Hash the current directory tree
  hashwalk dirA dirB           # Hash two trees concurrently
  hashwalk -a blake3 ~/photos  # Use BLAKE3 instead of MD5
  hashwalk --no-cache .        # Force re-reading every file
  hashwalk watch ~/docs        # Re-hash files as they change`,
		Args: cobra.MinimumNArgs(1),
		RunE: runHash,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/hashwalk/config.yaml)")
	rootCmd.PersistentFlags().StringP("algo", "a", "", "digest algorithm (md5, blake3)")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "hashing worker count (0=auto)")
	rootCmd.PersistentFlags().Int("max-open-files", 0, "bound on concurrently open file handles (0=default)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "bypass the digest cache, re-read every file")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress the summary, print result lines only")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Bind flags to viper
	_ = viper.BindPFlag("digest", rootCmd.PersistentFlags().Lookup("algo"))
	_ = viper.BindPFlag("workers.file", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("max_open_files", rootCmd.PersistentFlags().Lookup("max-open-files"))
	_ = viper.BindPFlag("no_cache", rootCmd.PersistentFlags().Lookup("no-cache"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		// Add config paths in order of precedence
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "hashwalk"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "hashwalk"))
		}
	}

	viper.SetEnvPrefix("HASHWALK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
