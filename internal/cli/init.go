package cli

import (
	"fmt"
	"os"

	"github.com/kilupskalvis/cocokit/internal/config"
	"github.com/kilupskalvis/cocokit/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a new cocokit project",
	Long: `Initialize a new cocokit project in the given directory (default: current).
This creates a .cocokit directory holding the project configuration and the
run log.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runInit,
}

var (
	initImageDir string
	initLabelDir string
	initCatalog  string
)

func init() {
	initCmd.Flags().StringVar(&initImageDir, "image-dir", "", "Default image directory")
	initCmd.Flags().StringVar(&initLabelDir, "label-dir", "", "Default line-label directory")
	initCmd.Flags().StringVar(&initCatalog, "catalog", "", "Class catalog file (YAML)")
}

func runInit(cmd *cobra.Command, args []string) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		exitError("failed to create %s: %v", dir, err)
	}

	cfg, err := config.Initialize(dir)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	changed := false
	for _, f := range []struct {
		val string
		dst *string
	}{
		{initImageDir, &cfg.ImageDir},
		{initLabelDir, &cfg.LabelDir},
		{initCatalog, &cfg.Catalog},
	} {
		if f.val != "" {
			*f.dst = f.val
			changed = true
		}
	}
	if changed {
		if err := cfg.Save(); err != nil {
			exitError("failed to save config: %v", err)
		}
	}

	st, err := store.Open(cfg.RunLogPath())
	if err != nil {
		exitError("failed to create run log: %v", err)
	}
	st.Close()

	fmt.Printf("Initialized empty cocokit project in %s\n", cfg.Path())
	fmt.Printf("Images: %s\nLabels: %s\nCatalog: %s\n", cfg.ImageDir, cfg.LabelDir, cfg.Catalog)
}
