package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kilupskalvis/cocokit/internal/index"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <annotation.json>",
	Short: "Load a dataset into a SQLite index and report statistics",
	Long: `Import categories, images and annotations into a SQLite database (by default
the project's index.db) and print per-category counts together with images
that have no annotations and boxes larger than their image.`,
	Args: cobra.ExactArgs(1),
	Run:  runIndex,
}

var (
	indexDB       string
	indexImageDir string
)

func init() {
	indexCmd.Flags().StringVar(&indexDB, "db", "", "Index database path (default: project index.db)")
	indexCmd.Flags().StringVar(&indexImageDir, "image-dir", "", "Directory relative image names resolve against")
}

func runIndex(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	ctx := context.Background()

	dbPath := indexDB
	if dbPath == "" {
		if !c.Config.InProject() {
			exitError("--db is required outside a project")
		}
		dbPath = c.Config.IndexPath()
	}

	ds := c.loadDataset(args[0], indexImageDir)

	idx, err := index.Open(dbPath)
	if err != nil {
		exitError("%v", err)
	}
	defer idx.Close()

	if err := idx.Initialize(ctx); err != nil {
		exitError("%v", err)
	}
	if err := idx.Import(ctx, ds); err != nil {
		printIntegrityError(err)
		exitError("import failed")
	}

	counts, err := idx.CategoryCounts(ctx)
	if err != nil {
		exitError("%v", err)
	}
	fmt.Printf("%-6s %-24s %12s %10s %14s\n", "ID", "CATEGORY", "ANNOTATIONS", "IMAGES", "MEAN AREA")
	for _, cc := range counts {
		fmt.Printf("%-6d %-24s %12s %10s %14s\n", cc.ID, cc.Name,
			humanize.Comma(int64(cc.Annotations)), humanize.Comma(int64(cc.Images)),
			humanize.CommafWithDigits(cc.MeanArea, 1))
	}

	unlabeled, err := idx.ImagesWithoutAnnotations(ctx)
	if err != nil {
		exitError("%v", err)
	}
	oversized, err := idx.AnnotationsLargerThanImage(ctx)
	if err != nil {
		exitError("%v", err)
	}
	if len(unlabeled) > 0 {
		color.New(color.FgYellow).Printf("%d images without annotations: %s\n", len(unlabeled), joinInts(unlabeled))
	}
	if len(oversized) > 0 {
		color.New(color.FgRed).Printf("%d annotations larger than their image: %s\n", len(oversized), joinInts(oversized))
	}

	fmt.Printf("Indexed into %s\n", dbPath)
	c.record(runRecord{Operation: "index", Args: args, Input: args[0], Output: dbPath, Before: ds, Report: counts})
}
