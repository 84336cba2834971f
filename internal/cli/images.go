package cli

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kilupskalvis/cocokit/internal/core"
	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/models"
	"github.com/spf13/cobra"
)

// ==================== masks ====================

var masksCmd = &cobra.Command{
	Use:   "masks <annotation.json> <out-dir>",
	Short: "Render one mask PNG per image",
	Long: `Rasterize the annotations of every image into <out-dir>/<image stem>.png.
--kind union writes a binary mask, index numbers instances from 1 in file
order (16-bit) and semantic writes category ids (16-bit).`,
	Args: cobra.ExactArgs(2),
	Run:  runMasks,
}

var (
	masksKind       string
	masksCategories string
	masksImageDir   string
)

func init() {
	f := masksCmd.Flags()
	f.StringVar(&masksKind, "kind", "union", "Mask kind (union|index|semantic)")
	f.StringVar(&masksCategories, "category", "", "Comma-separated category ids to draw (default: all)")
	f.StringVar(&masksImageDir, "image-dir", "", "Directory relative image names resolve against")
}

func runMasks(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	ctx := context.Background()

	render, err := maskRenderer(masksKind)
	if err != nil {
		exitError("%v", err)
	}
	cats, err := parseIDs(masksCategories)
	if err != nil {
		exitError("%v", err)
	}

	ds := c.loadDataset(args[0], masksImageDir)
	if err := c.Images.MkdirAll(ctx, args[1]); err != nil {
		exitError("%v", err)
	}

	var written []string
	for _, img := range ds.Images {
		if img.Width <= 0 || img.Height <= 0 {
			color.New(color.FgYellow).Printf("  skipped image %d: no recorded size\n", img.ID)
			continue
		}
		out, err := render(ds.AnnotationsOf(img.ID, cats...), img.Height, img.Width)
		if err != nil {
			exitError("image %d: %v", img.ID, err)
		}
		stem := strings.TrimSuffix(filepath.Base(img.FileName), filepath.Ext(img.FileName))
		dst := filepath.Join(args[1], stem+".png")
		if err := c.Images.Write(ctx, dst, out); err != nil {
			exitError("%v", err)
		}
		written = append(written, dst)
	}

	fmt.Printf("Wrote %s %s masks to %s\n", humanize.Comma(int64(len(written))), masksKind, args[1])
	c.record(runRecord{Operation: "masks", Args: args, Input: args[0], Output: args[1], Before: ds, Report: written})
}

type maskFunc func(anns []*models.Annotation, height, width int) (image.Image, error)

func maskRenderer(kind string) (maskFunc, error) {
	switch kind {
	case "union":
		return func(anns []*models.Annotation, h, w int) (image.Image, error) {
			m, err := dataset.UnionMask(anns, h, w)
			if err != nil {
				return nil, err
			}
			return m.Gray(255), nil
		}, nil
	case "index":
		return func(anns []*models.Annotation, h, w int) (image.Image, error) {
			lm, err := dataset.InstanceIndexMap(anns, h, w)
			if err != nil {
				return nil, err
			}
			return lm.Gray16(), nil
		}, nil
	case "semantic":
		return func(anns []*models.Annotation, h, w int) (image.Image, error) {
			lm, err := dataset.SemanticMap(anns, h, w)
			if err != nil {
				return nil, err
			}
			return lm.Gray16(), nil
		}, nil
	}
	return nil, fmt.Errorf("unknown mask kind %q (want union, index or semantic)", kind)
}

// ==================== resize ====================

var resizeCmd = &cobra.Command{
	Use:   "resize <annotation.json>",
	Short: "Resize images in place and scale their annotations",
	Long: `Rewrite every referenced image at --width x --height and scale boxes,
polygons and masks to match. Passing only one of the two keeps the aspect
ratio.`,
	Args: cobra.ExactArgs(1),
	Run:  runResize,
}

var (
	resizeWidth  int
	resizeHeight int
)

func init() {
	addTransformFlags(resizeCmd)
	resizeCmd.Flags().IntVar(&resizeWidth, "width", 0, "Target width in pixels")
	resizeCmd.Flags().IntVar(&resizeHeight, "height", 0, "Target height in pixels")
}

func runResize(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ds := c.loadDataset(args[0], transformImageDir)
	out, report, err := core.ResizeImages(context.Background(), ds, c.Images, resizeWidth, resizeHeight)
	if err != nil && out == nil {
		exitError("%v", err)
	}

	dst := outputOr(transformOutput, args[0])
	c.saveDataset(out, dst)
	if err != nil {
		// Some files were rewritten; keep the annotation file in step with them.
		c.record(runRecord{Operation: "resize", Args: args, Input: args[0], Output: dst, Before: ds, After: out, Report: report})
		exitError("resized %d images before failing: %v", len(report.Changed), err)
	}

	fmt.Printf("Resized %s of %s images\n", humanize.Comma(int64(len(report.Changed))), humanize.Comma(int64(len(out.Images))))
	c.record(runRecord{Operation: "resize", Args: args, Input: args[0], Output: dst, Before: ds, After: out, Report: report})
}

// ==================== gray ====================

var grayCmd = &cobra.Command{
	Use:   "gray <annotation.json>",
	Short: "Convert referenced images to grayscale in place",
	Args:  cobra.ExactArgs(1),
	Run:   runGray,
}

var grayImageDir string

func init() {
	grayCmd.Flags().StringVar(&grayImageDir, "image-dir", "", "Directory relative image names resolve against")
}

func runGray(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ds := c.loadDataset(args[0], grayImageDir)
	report, err := core.ConvertToGray(context.Background(), ds, c.Images)
	if err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Converted %s images to grayscale\n", humanize.Comma(int64(len(report.Changed))))
	c.record(runRecord{Operation: "gray", Args: args, Input: args[0], Before: ds, Report: report.Paths()})
}

// ==================== crop ====================

var cropCmd = &cobra.Command{
	Use:   "crop <annotation.json> <out-dir>",
	Short: "Cut every annotated instance out of its image",
	Long: `Write the bounding box of every annotation as
<out-dir>/<image stem>_<annotation id>.png, optionally padded and resized.`,
	Args: cobra.ExactArgs(2),
	Run:  runCrop,
}

var (
	cropPadding    float64
	cropWidth      int
	cropHeight     int
	cropCategories string
	cropImageDir   string
)

func init() {
	f := cropCmd.Flags()
	f.Float64Var(&cropPadding, "padding", 0, "Pixels added on every side of the box")
	f.IntVar(&cropWidth, "width", 0, "Resize crops to this width (with --height)")
	f.IntVar(&cropHeight, "height", 0, "Resize crops to this height (with --width)")
	f.StringVar(&cropCategories, "category", "", "Comma-separated category ids to crop (default: all)")
	f.StringVar(&cropImageDir, "image-dir", "", "Directory relative image names resolve against")
}

func runCrop(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	cats, err := parseIDs(cropCategories)
	if err != nil {
		exitError("%v", err)
	}

	ds := c.loadDataset(args[0], cropImageDir)
	report, err := core.CropInstances(context.Background(), ds, c.Images, args[1], core.CropOptions{
		Padding:     cropPadding,
		Width:       cropWidth,
		Height:      cropHeight,
		CategoryIDs: cats,
	})
	if err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Wrote %s crops to %s\n", humanize.Comma(int64(len(report.Crops))), args[1])
	if n := len(report.Skipped); n > 0 {
		color.New(color.FgYellow).Printf("Skipped %d annotations with empty boxes\n", n)
	}
	c.record(runRecord{Operation: "crop", Args: args, Input: args[0], Output: args[1], Before: ds, Report: report})
}
