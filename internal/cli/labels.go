package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kilupskalvis/cocokit/internal/convert"
	"github.com/spf13/cobra"
)

// ==================== to-yolo ====================

var toYoloCmd = &cobra.Command{
	Use:   "to-yolo <annotation.json>",
	Short: "Export line-label files, one per image",
	Long: `Write a <image stem>.txt file per image holding one normalized polygon per
annotation. Class numbers are category id minus one. With --catalog the
category names are written as a YOLO data file.`,
	Args: cobra.ExactArgs(1),
	Run:  runToYolo,
}

var (
	toYoloLabels   string
	toYoloCatalog  string
	toYoloImageDir string
)

func init() {
	toYoloCmd.Flags().StringVar(&toYoloLabels, "labels", "", "Output label directory (default: project label_dir)")
	toYoloCmd.Flags().StringVar(&toYoloCatalog, "catalog", "", "Also write the class catalog to this file")
	toYoloCmd.Flags().StringVar(&toYoloImageDir, "image-dir", "", "Directory relative image names resolve against")
}

func runToYolo(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	ctx := context.Background()

	ds := c.loadDataset(args[0], toYoloImageDir)
	labelDir := outputOr(toYoloLabels, c.Config.Resolve(c.Config.LabelDir))

	written, err := convert.ExportLineLabels(ctx, ds, c.Images, labelDir)
	if err != nil {
		exitError("%v", err)
	}

	if toYoloCatalog != "" {
		data, err := convert.MarshalCatalog(convert.Catalog(ds.CategoryNames()))
		if err != nil {
			exitError("%v", err)
		}
		if err := c.Images.WriteFile(ctx, toYoloCatalog, data); err != nil {
			exitError("%v", err)
		}
	}

	fmt.Printf("Wrote %s label files to %s\n", humanize.Comma(int64(len(written))), labelDir)
	c.record(runRecord{Operation: "to-yolo", Args: args, Input: args[0], Output: labelDir, Before: ds, Report: written})
}

// ==================== from-yolo ====================

var fromYoloCmd = &cobra.Command{
	Use:   "from-yolo",
	Short: "Build an annotation file from images and line-label files",
	Long: `Pair every image with the .txt file of the same stem and build a COCO
annotation file. Polygon lines become category class+1; box lines keep the
class number as category id. Category names come from the catalog, so
box labels of class 0 need a catalog map with key -1.`,
	Args: cobra.NoArgs,
	Run:  runFromYolo,
}

var (
	fromYoloImages  string
	fromYoloLabels  string
	fromYoloCatalog string
	fromYoloNames   []string
	fromYoloOutput  string
)

func init() {
	f := fromYoloCmd.Flags()
	f.StringVar(&fromYoloImages, "images", "", "Image directory (default: project image_dir)")
	f.StringVar(&fromYoloLabels, "labels", "", "Label directory (default: project label_dir)")
	f.StringVar(&fromYoloCatalog, "catalog", "", "Class catalog YAML (default: project catalog)")
	f.StringSliceVar(&fromYoloNames, "names", nil, "Class names numbered from 1, instead of a catalog file")
	f.StringVarP(&fromYoloOutput, "output", "o", "", "Output annotation file (default: project output_name)")
}

func runFromYolo(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	ctx := context.Background()
	cfg := c.Config

	imageDir := outputOr(fromYoloImages, cfg.Resolve(cfg.ImageDir))
	labelDir := outputOr(fromYoloLabels, cfg.Resolve(cfg.LabelDir))
	dst := outputOr(fromYoloOutput, cfg.Resolve(cfg.OutputName))

	var catalog convert.Catalog
	if len(fromYoloNames) > 0 {
		catalog = convert.CatalogFromNames(fromYoloNames)
	} else {
		var err error
		catalog, err = convert.LoadCatalog(ctx, c.Images, outputOr(fromYoloCatalog, cfg.Resolve(cfg.Catalog)))
		if err != nil {
			exitError("%v", err)
		}
	}

	ds, report, err := convert.FromDirectoryPair(ctx, c.Images, imageDir, labelDir, catalog)
	if err != nil {
		exitError("%v", err)
	}
	c.saveDataset(ds, dst)

	fmt.Printf("Built %s with %s images and %s annotations\n", dst,
		humanize.Comma(int64(report.Images)), humanize.Comma(int64(report.Annotations)))
	if n := len(report.Unlabeled); n > 0 {
		color.New(color.FgYellow).Printf("%d images have no label file\n", n)
	}
	if n := len(report.OrphanLabels); n > 0 {
		color.New(color.FgYellow).Printf("%d label files have no image\n", n)
	}
	c.record(runRecord{Operation: "from-yolo", Args: []string{imageDir, labelDir}, Input: labelDir, Output: dst, After: ds, Report: report})
}

// ==================== detections ====================

var detectionsCmd = &cobra.Command{
	Use:   "detections <in-dir> <out-dir>",
	Short: "Convert detector output files and filter classes",
	Long: `Rewrite every .txt file of detector output. --format xyxy writes
"class x1 y1 x2 y2 [conf]", cls-conf-xyxy writes "class conf x1 y1 x2 y2",
none leaves coordinates alone. --keep drops lines of other classes and
--remap rewrites class numbers (e.g. 0:3,1:4).`,
	Args: cobra.ExactArgs(2),
	Run:  runDetections,
}

var (
	detectionsFormat string
	detectionsKeep   string
	detectionsRemap  string
)

func init() {
	f := detectionsCmd.Flags()
	f.StringVar(&detectionsFormat, "format", "xyxy", "Output format (xyxy|cls-conf-xyxy|none)")
	f.StringVar(&detectionsKeep, "keep", "", "Comma-separated class numbers to keep")
	f.StringVar(&detectionsRemap, "remap", "", "Class renumbering as old:new pairs")
}

func runDetections(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	var format *convert.DetectionFormat
	if detectionsFormat != "none" {
		f, err := convert.ParseDetectionFormat(detectionsFormat)
		if err != nil {
			exitError("%v", err)
		}
		format = &f
	}
	keep, err := parseIDs(detectionsKeep)
	if err != nil {
		exitError("%v", err)
	}
	remap, err := parseRemap(detectionsRemap)
	if err != nil {
		exitError("%v", err)
	}

	written, err := convert.TransformDirectory(context.Background(), c.Images, args[0], args[1],
		func(lines []string) ([]string, error) {
			if keep != nil {
				lines = convert.FilterLineLabels(lines, keep)
			}
			if format != nil {
				var err error
				if lines, err = convert.ConvertDetections(lines, *format); err != nil {
					return nil, err
				}
			}
			if remap != nil {
				lines = convert.RemapLineLabels(lines, remap)
			}
			return lines, nil
		})
	if err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Wrote %s files to %s\n", humanize.Comma(int64(len(written))), filepath.Clean(args[1]))
	c.record(runRecord{Operation: "detections", Args: args, Input: args[0], Output: args[1], Report: written})
}

// parseRemap parses "0:3,1:4" into a class mapping.
func parseRemap(s string) (map[int]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	m := make(map[int]int)
	for _, pair := range strings.Split(s, ",") {
		from, to, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, fmt.Errorf("invalid remap pair %q", pair)
		}
		a, err := strconv.Atoi(from)
		if err != nil {
			return nil, fmt.Errorf("invalid remap pair %q", pair)
		}
		b, err := strconv.Atoi(to)
		if err != nil {
			return nil, fmt.Errorf("invalid remap pair %q", pair)
		}
		m[a] = b
	}
	return m, nil
}
