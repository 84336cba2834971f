// Package cli implements the command-line interface for cocokit.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/kilupskalvis/cocokit/internal/config"
	"github.com/kilupskalvis/cocokit/internal/core"
	"github.com/kilupskalvis/cocokit/internal/imagestore"
	"github.com/kilupskalvis/cocokit/internal/store"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Store  *store.Store // nil outside a project
	Fs     afero.Fs
	Images *imagestore.FS
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// loadConfig returns the project configuration, or the defaults when the
// working directory is not inside a project.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err == nil {
		return cfg
	}
	if err != config.ErrNoProject {
		exitError("%v", err)
	}
	return config.Default()
}

// initContext loads config and, inside a project, opens the run log.
func initContext() *cmdContext {
	cfg := loadConfig()
	fs := afero.NewOsFs()
	c := &cmdContext{Config: cfg, Fs: fs, Images: imagestore.NewFS(fs)}

	if cfg.InProject() {
		st, err := store.Open(cfg.RunLogPath())
		if err != nil {
			exitError("failed to open run log: %v", err)
		}
		c.Store = st
	}
	return c
}

// requireStore exits unless the command runs inside a project.
func (c *cmdContext) requireStore() *store.Store {
	if c.Store == nil {
		exitError("%v", config.ErrNoProject)
	}
	return c.Store
}

var (
	flagLogLevel  string
	flagLogFormat string
	flagWorkers   int
)

var rootCmd = &cobra.Command{
	Use:   "cocokit",
	Short: "COCO dataset consistency toolkit",
	Long: `cocokit loads COCO annotation files, repairs and reshapes them, converts
to and from line-label formats, and merges several datasets into one corpus.

Every transform writes a new annotation file whose references are consistent.
Inside a project (see 'cocokit init') each change is recorded in a run log.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		level, format := cfg.LogLevel, cfg.LogFormat
		if cmd.Flags().Changed("log-level") {
			level = flagLogLevel
		}
		if cmd.Flags().Changed("log-format") {
			format = flagLogFormat
		}
		slog.SetDefault(newLogger(level, format))

		core.Workers = cfg.Workers
		if cmd.Flags().Changed("workers") {
			core.Workers = flagWorkers
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	pf.StringVar(&flagLogFormat, "log-format", "text", "Log format (text|json)")
	pf.IntVar(&flagWorkers, "workers", 4, "Concurrent image reads and writes")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(relocateCmd)
	rootCmd.AddCommand(renumberCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(toYoloCmd)
	rootCmd.AddCommand(fromYoloCmd)
	rootCmd.AddCommand(detectionsCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(masksCmd)
	rootCmd.AddCommand(resizeCmd)
	rootCmd.AddCommand(grayCmd)
	rootCmd.AddCommand(cropCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(serveCmd)
}

// newLogger builds the slog logger for the given level and format. Logs
// go to stderr so command output stays pipeable.
func newLogger(levelName, format string) *slog.Logger {
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// parseIDs parses "1,2,3" into ids.
func parseIDs(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
