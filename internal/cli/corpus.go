package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kilupskalvis/cocokit/internal/corpus"
	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/spf13/cobra"
)

// ==================== merge ====================

var mergeCmd = &cobra.Command{
	Use:   "merge <dir>...",
	Short: "Combine the labeled images of several datasets",
	Long: `Load the annotation file of each directory (the first .json by name), keep
the labeled images (or those showing --category), and write one annotation
file with ids continuing across inputs. Image file names become paths that
include the source directory.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runMerge,
}

var (
	mergeRoot       string
	mergeCategories string
	mergeOutput     string
)

func init() {
	f := mergeCmd.Flags()
	f.StringVar(&mergeRoot, "root", ".", "Directory the dataset directories live in")
	f.StringVar(&mergeCategories, "category", "", "Comma-separated category ids to keep (default: all)")
	f.StringVarP(&mergeOutput, "output", "o", "", "Output file name inside the project (default: output_name)")
}

func runMerge(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ids, err := parseIDs(mergeCategories)
	if err != nil {
		exitError("%v", err)
	}

	rows, err := corpus.Collect(context.Background(), c.Fs, mergeRoot, args, ids)
	if err != nil {
		exitError("%v", err)
	}

	projectDir := c.Config.Root()
	if projectDir == "" {
		projectDir = "."
	}
	merged, path, err := corpus.WriteDataset(c.Fs, rows, projectDir, outputOr(mergeOutput, c.Config.OutputName))
	if err != nil {
		exitError("%v", err)
	}

	perSource := make(map[string]int)
	var order []string
	annotations := 0
	for _, r := range rows {
		if _, ok := perSource[r.Source]; !ok {
			order = append(order, r.Source)
		}
		perSource[r.Source]++
		annotations += len(r.Annotations)
	}
	for _, src := range order {
		fmt.Printf("  %-50s %s images\n", src, humanize.Comma(int64(perSource[src])))
	}
	color.New(color.FgGreen).Printf("Wrote %s: %s images, %s annotations\n", path,
		humanize.Comma(int64(len(rows))), humanize.Comma(int64(annotations)))

	c.record(runRecord{Operation: "merge", Args: args, Input: mergeRoot, Output: path, After: merged, Report: mergeSummary(rows)})
}

type mergedImage struct {
	Source     string `json:"source"`
	OldImageID int    `json:"old_image_id"`
	NewImageID int    `json:"new_image_id"`
}

func mergeSummary(rows []corpus.Row) []mergedImage {
	out := make([]mergedImage, len(rows))
	for i, r := range rows {
		out[i] = mergedImage{Source: r.Source, OldImageID: r.OldImageID, NewImageID: r.NewImageID}
	}
	return out
}

// ==================== copy ====================

var copyCmd = &cobra.Command{
	Use:   "copy <annotation.json> <dir>",
	Short: "Copy referenced images into one training directory",
	Long: `Copy every image into <dir> as <stem>_<parent directory><ext>, skipping files
that already exist, and write the annotation file with the new names into
<dir> (or -o).`,
	Args: cobra.ExactArgs(2),
	Run:  runCopy,
}

var (
	copyOutput   string
	copyImageDir string
)

func init() {
	copyCmd.Flags().StringVarP(&copyOutput, "output", "o", "", "Output annotation file (default: <dir>/<input name>)")
	copyCmd.Flags().StringVar(&copyImageDir, "image-dir", "", "Directory relative image names resolve against")
}

func runCopy(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ds := c.loadDataset(args[0], copyImageDir)
	out, report, err := corpus.CopyToDirectory(context.Background(), ds, c.Images, args[1])
	if err != nil {
		exitError("%v", err)
	}

	dst := outputOr(copyOutput, dataset.ResolvePath(args[1], filepath.Base(args[0])))
	c.saveDataset(out, dst)

	skipped := len(report.Entries) - report.Copied()
	fmt.Printf("Copied %s images to %s", humanize.Comma(int64(report.Copied())), args[1])
	if skipped > 0 {
		color.New(color.FgYellow).Printf(" (%d already existed)", skipped)
	}
	fmt.Println()

	c.record(runRecord{Operation: "copy", Args: args, Input: args[0], Output: dst, Before: ds, After: out, Report: report})
}
