package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/store"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [annotation.json]",
	Short: "Summarize a dataset",
	Long: `Show category names, image sizes and counts of an annotation file. Inside a
project the file defaults to the output of the latest run.`,
	Args: cobra.MaximumNArgs(1),
	Run:   runInfo,
}

var (
	infoImageDir string
	infoJSON     bool
)

func init() {
	infoCmd.Flags().StringVar(&infoImageDir, "image-dir", "", "Directory relative image names resolve against")
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Print the summary as JSON")
}

func runInfo(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		last, err := c.requireStore().GetValue(store.KeyLastOutput)
		if err != nil {
			exitError("%v", err)
		}
		if last == "" {
			exitError("no annotation file given and no runs recorded")
		}
		path = last
	}

	ds := c.loadDataset(path, infoImageDir)
	info := ds.Describe()

	if infoJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(info); err != nil {
			exitError("%v", err)
		}
		return
	}

	bold := color.New(color.Bold)
	bold.Printf("%s\n", info.FileName)
	fmt.Printf("Name:        %s\n", info.Name)
	fmt.Printf("Image dir:   %s\n", info.ImageDir)
	fmt.Printf("Images:      %s\n", humanize.Comma(int64(info.ImageCount)))
	fmt.Printf("Annotations: %s\n", humanize.Comma(int64(info.AnnotationCount)))
	if size, err := os.Stat(path); err == nil {
		fmt.Printf("File size:   %s\n", humanize.Bytes(uint64(size.Size())))
	}

	w, h, err := ds.MostFrequentImageSize()
	switch {
	case err == nil:
		fmt.Printf("Common size: %dx%d\n", w, h)
	case !errors.Is(err, dataset.ErrNotFound):
		exitError("%v", err)
	}

	unlabeled := len(ds.Images) - len(ds.LabeledImageIDs())
	if unlabeled > 0 {
		color.New(color.FgYellow).Printf("Unlabeled:   %s images\n", humanize.Comma(int64(unlabeled)))
	}

	fmt.Printf("\nCategories (%d):\n", len(ds.Categories))
	perCat := make(map[int]int)
	for _, a := range ds.Annotations {
		perCat[a.CategoryID]++
	}
	for _, cat := range ds.Categories {
		super := ""
		if cat.Supercategory != "" {
			super = " (" + cat.Supercategory + ")"
		}
		fmt.Printf("  %4d  %-20s %s%s\n", cat.ID, cat.Name,
			humanize.Comma(int64(perCat[cat.ID])), super)
	}
	if len(info.Widths) > 1 || len(info.Heights) > 1 {
		fmt.Printf("\nWidths:  %s\n", joinInts(info.Widths))
		fmt.Printf("Heights: %s\n", joinInts(info.Heights))
	}
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
