package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kilupskalvis/cocokit/internal/core"
	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	transformOutput   string
	transformImageDir string
)

// addTransformFlags registers -o and --image-dir on a command that rewrites
// an annotation file.
func addTransformFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&transformOutput, "output", "o", "", "Output file (default: overwrite input)")
	cmd.Flags().StringVar(&transformImageDir, "image-dir", "", "Directory relative image names resolve against")
}

// ==================== filter ====================

var filterCmd = &cobra.Command{
	Use:   "filter <annotation.json>",
	Short: "Keep selected categories and the images that show them",
	Long: `Keep the given categories, their annotations and the images holding at least
one kept annotation. With --labeled every category is kept and only images
without annotations are dropped.`,
	Args: cobra.ExactArgs(1),
	Run:  runFilter,
}

var (
	filterCategories string
	filterLabeled    bool
)

func init() {
	addTransformFlags(filterCmd)
	filterCmd.Flags().StringVar(&filterCategories, "category", "", "Comma-separated category ids to keep")
	filterCmd.Flags().BoolVar(&filterLabeled, "labeled", false, "Keep all categories, drop unlabeled images")
}

func runFilter(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ids, err := parseIDs(filterCategories)
	if err != nil {
		exitError("%v", err)
	}
	if filterLabeled == (len(ids) > 0) {
		exitError("pass exactly one of --category or --labeled")
	}

	ds := c.loadDataset(args[0], transformImageDir)
	var out *dataset.Dataset
	var report *core.FilterReport
	if filterLabeled {
		out, report = core.SelectLabeled(ds)
	} else {
		out, report = core.FilterByCategory(ds, ids)
	}

	dst := outputOr(transformOutput, args[0])
	c.saveDataset(out, dst)

	fmt.Printf("Kept %d categories, %s images, %s annotations\n",
		len(out.Categories), humanize.Comma(int64(len(out.Images))), humanize.Comma(int64(len(out.Annotations))))
	printRemoved("images", len(report.RemovedImages))
	printRemoved("annotations", report.RemovedAnnotations)
	printRemoved("annotations without an image", len(report.OrphanAnnotations))

	c.record(runRecord{Operation: "filter", Args: args, Input: args[0], Output: dst, Before: ds, After: out, Report: report})
}

// ==================== rename ====================

var renameCmd = &cobra.Command{
	Use:   "rename <annotation.json> <name>...",
	Short: "Rename categories positionally",
	Long: `Replace category names in file order: the first name goes to the first
category and so on. The number of names must equal the number of categories.`,
	Args: cobra.MinimumNArgs(2),
	Run:  runRename,
}

func init() {
	addTransformFlags(renameCmd)
}

func runRename(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ds := c.loadDataset(args[0], transformImageDir)
	out := ds.Clone()
	if err := out.SetCategoryNames(args[1:]); err != nil {
		exitError("%v", err)
	}

	dst := outputOr(transformOutput, args[0])
	c.saveDataset(out, dst)

	for i, cat := range out.Categories {
		if ds.Categories[i].Name != cat.Name {
			fmt.Printf("  %d: %s -> %s\n", cat.ID, ds.Categories[i].Name, cat.Name)
		}
	}
	c.record(runRecord{Operation: "rename", Args: args, Input: args[0], Output: dst, Before: ds, After: out, Report: out.CategoryNames()})
}

// ==================== relocate ====================

var relocateCmd = &cobra.Command{
	Use:   "relocate <annotation.json> <image-dir>",
	Short: "Point every image file name at a new directory",
	Args:  cobra.ExactArgs(2),
	Run:   runRelocate,
}

func init() {
	addTransformFlags(relocateCmd)
}

func runRelocate(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ds := c.loadDataset(args[0], transformImageDir)
	out := ds.Clone()
	out.ReplaceImageDirectory(args[1])

	dst := outputOr(transformOutput, args[0])
	c.saveDataset(out, dst)

	fmt.Printf("Relocated %s images to %s\n", humanize.Comma(int64(len(out.Images))), args[1])
	c.record(runRecord{Operation: "relocate", Args: args, Input: args[0], Output: dst, Before: ds, After: out})
}

// ==================== renumber ====================

var renumberCmd = &cobra.Command{
	Use:   "renumber <annotation.json>",
	Short: "Renumber categories, images and annotations densely from 1",
	Args:  cobra.ExactArgs(1),
	Run:   runRenumber,
}

func init() {
	addTransformFlags(renumberCmd)
}

func runRenumber(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ds := c.loadDataset(args[0], transformImageDir)
	out, report, err := core.RenumberIDs(ds)
	if err != nil {
		printIntegrityError(err)
		exitError("renumber refused: dataset is not consistent (run 'cocokit reset' first)")
	}

	dst := outputOr(transformOutput, args[0])
	c.saveDataset(out, dst)

	fmt.Printf("Renumbered %d categories, %s images, %s annotations\n",
		len(report.Categories), humanize.Comma(int64(len(report.Images))), humanize.Comma(int64(len(report.Annotations))))
	c.record(runRecord{Operation: "renumber", Args: args, Input: args[0], Output: dst, Before: ds, After: out, Report: report})
}

// ==================== reset ====================

var resetCmd = &cobra.Command{
	Use:   "reset <annotation.json>",
	Short: "Repair a dataset after images were deleted or edited",
	Long: `Drop images whose files are missing, drop annotations that point at no image,
refresh stored image sizes from the files and renumber everything densely.`,
	Args: cobra.ExactArgs(1),
	Run:  runReset,
}

func init() {
	addTransformFlags(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ds := c.loadDataset(args[0], transformImageDir)
	out, report, err := core.ResetAnnotation(context.Background(), ds, c.Images)
	if err != nil {
		exitError("reset failed: %v", err)
	}

	dst := outputOr(transformOutput, args[0])
	c.saveDataset(out, dst)

	red := color.New(color.FgRed)
	for _, row := range report.Rows {
		name := row.FileName
		if name == "" {
			name = "(no image record)"
		}
		red.Printf("  removed image %d %s", row.ImageID, name)
		fmt.Printf(" with %d annotations\n", len(row.AnnotationIDs))
	}
	for _, ch := range report.Resized {
		color.New(color.FgCyan).Printf("  resized image %d: %dx%d -> %dx%d\n",
			ch.ImageID, ch.OldWidth, ch.OldHeight, ch.Width, ch.Height)
	}
	fmt.Printf("Removed %d images and %d annotations, %s images remain\n",
		len(report.Rows), report.RemovedAnnotations(), humanize.Comma(int64(len(out.Images))))

	c.record(runRecord{Operation: "reset", Args: args, Input: args[0], Output: dst, Before: ds, After: out, Report: report})
}

// ==================== check ====================

var checkCmd = &cobra.Command{
	Use:   "check <annotation.json>",
	Short: "Verify references, ids and image files",
	Long: `Check that every annotation references an existing image and category, that
ids are unique, and (with --files) that every image file exists with the
recorded size. Exits non-zero when a problem is found.`,
	Args: cobra.ExactArgs(1),
	Run:  runCheck,
}

var (
	checkImageDir string
	checkFiles    bool
)

func init() {
	checkCmd.Flags().StringVar(&checkImageDir, "image-dir", "", "Directory relative image names resolve against")
	checkCmd.Flags().BoolVar(&checkFiles, "files", false, "Also check image files on disk")
}

func runCheck(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ds := c.loadDataset(args[0], checkImageDir)
	problems := 0

	if err := core.CheckIntegrity(ds); err != nil {
		problems++
		printIntegrityError(err)
	}

	if checkFiles {
		ctx := context.Background()
		_, pruned, err := core.PruneMissingImages(ctx, ds, c.Images)
		if err != nil {
			exitError("%v", err)
		}
		for _, img := range pruned.Removed {
			problems++
			color.New(color.FgRed).Printf("  missing file: image %d %s\n", img.ID, img.FileName)
		}
		_, refreshed, err := core.RefreshImageDimensions(ctx, ds, c.Images)
		if err != nil {
			exitError("%v", err)
		}
		for _, ch := range refreshed.Changed {
			problems++
			color.New(color.FgYellow).Printf("  size mismatch: image %d recorded %dx%d, file %dx%d\n",
				ch.ImageID, ch.OldWidth, ch.OldHeight, ch.Width, ch.Height)
		}
	}

	if problems > 0 {
		exitError("%d problem(s) found", problems)
	}
	color.New(color.FgGreen).Println("ok")
}

// printIntegrityError lists dangling references and duplicate ids.
func printIntegrityError(err error) {
	var ie *dataset.IntegrityError
	if !errors.As(err, &ie) {
		fmt.Printf("  %v\n", err)
		return
	}
	red := color.New(color.FgRed)
	for _, d := range ie.Dangling {
		red.Printf("  annotation %d: %s %d does not exist\n", d.AnnotationID, d.Field, d.Target)
	}
	for _, d := range ie.Duplicates {
		red.Printf("  %s id %d appears %d times\n", d.Collection, d.ID, d.Count)
	}
}

func printRemoved(what string, n int) {
	if n > 0 {
		color.New(color.FgRed).Printf("Removed %s %s\n", humanize.Comma(int64(n)), what)
	}
}
