package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/rasterpipe/internal/stitch"
	"github.com/kiesman99/rasterpipe/pkg/tile"
)

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Assemble a region of an image and write it as PNG, JPEG or raw RGB",
	Long: `Export pulls the tiles covering a region through the tile cache, copies
them into one image and encodes it. Without --region the whole image is
exported.

Examples:
  rasterpipe export scene.jp2 -o scene.png
  rasterpipe export scene.jp2 --region 1024,1024,512,512 -f jpeg -o crop.jpg
  rasterpipe export scene.jp2 --scale 0.25 --workers 8 -w -o preview.png`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	// Output options
	exportCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringP("format", "f", "png", "output format (png|jpeg|raw)")
	exportCmd.Flags().Int("quality", 90, "JPEG quality")
	exportCmd.Flags().BoolP("worldfile", "w", false, "write world file")

	// Region options
	exportCmd.Flags().String("region", "", "region as 'x,y,width,height' in pixels")
	exportCmd.Flags().Float64("scale", 1, "scale factor in (0, 1]")
	exportCmd.Flags().Int("workers", stitch.DefaultWorkers, "concurrent tile fetches per row")

	// Bind flags to viper
	viper.BindPFlag("export.output", exportCmd.Flags().Lookup("output"))
	viper.BindPFlag("export.format", exportCmd.Flags().Lookup("format"))
	viper.BindPFlag("export.quality", exportCmd.Flags().Lookup("quality"))
	viper.BindPFlag("export.worldfile", exportCmd.Flags().Lookup("worldfile"))
	viper.BindPFlag("export.region", exportCmd.Flags().Lookup("region"))
	viper.BindPFlag("export.scale", exportCmd.Flags().Lookup("scale"))
	viper.BindPFlag("export.workers", exportCmd.Flags().Lookup("workers"))
}

func runExport(cmd *cobra.Command, args []string) error {
	output := viper.GetString("export.output")

	// Check if output is to terminal
	if output == "" {
		if stat, _ := os.Stdout.Stat(); (stat.Mode() & os.ModeCharDevice) != 0 {
			return fmt.Errorf("didn't specify output file and standard output is a terminal")
		}
	}

	format, err := parseFormat(viper.GetString("export.format"))
	if err != nil {
		return err
	}

	region, err := parseRegion(viper.GetString("export.region"))
	if err != nil {
		return err
	}

	scale := viper.GetFloat64("export.scale")
	if scale <= 0 || scale > 1 {
		return fmt.Errorf("scale must be in (0, 1], got %g", scale)
	}

	writeWorldFile := viper.GetBool("export.worldfile")
	if writeWorldFile && output == "" {
		return fmt.Errorf("world file needs an output file (use -o)")
	}

	l, err := newLoader()
	if err != nil {
		return err
	}

	img, err := l.Open(args[0])
	if err != nil {
		return err
	}
	defer img.Close()

	m := img.Meta()
	fmt.Fprintf(cmd.ErrOrStderr(), "==Driver: %s\n", m.Driver)
	fmt.Fprintf(cmd.ErrOrStderr(), "==Image Size: %dx%d, %d source bands (%s)\n", m.Width, m.Height, m.SourceBands, m.SampleType)
	fmt.Fprintf(cmd.ErrOrStderr(), "==Tile Size: %dx%d\n", m.TileWidth, m.TileHeight)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := stitch.New(img).Stitch(ctx, &stitch.Options{
		Region:            region,
		Scale:             scale,
		OutputFormat:      format,
		Quality:           viper.GetInt("export.quality"),
		Workers:           viper.GetInt("export.workers"),
		GenerateWorldFile: writeWorldFile,
	})
	if err != nil {
		var tileErr *stitch.TileError
		if errors.As(err, &tileErr) {
			for _, ft := range tileErr.FailedTiles {
				fmt.Fprintf(cmd.ErrOrStderr(), "Can't read tile %s: %v\n", ft.Address, ft.Err)
			}
		}
		return err
	}

	r := result.Region
	fmt.Fprintf(cmd.ErrOrStderr(), "==Region: %d,%d %dx%d\n", r.Min.X, r.Min.Y, r.Dx(), r.Dy())
	fmt.Fprintf(cmd.ErrOrStderr(), "==Raster Size: %dx%d\n", result.Width, result.Height)
	fmt.Fprintf(cmd.ErrOrStderr(), "==Pixel Size: x:%.17g y:%.17g\n", result.PixelSizeX, result.PixelSizeY)

	st := img.Stats()
	fmt.Fprintf(cmd.ErrOrStderr(), "==Tiles: %d decoded, %d hits, %d evicted\n", st.Decodes, st.Hits, st.Evictions)

	if err := tile.WriteOutput(output, result.ImageData); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if writeWorldFile {
		if err := tile.WriteOutput(worldFileName(output), result.WorldFileData); err != nil {
			return fmt.Errorf("failed to write world file: %w", err)
		}
	}

	return nil
}

func parseFormat(s string) (int, error) {
	switch s {
	case "png":
		return tile.FormatPNG, nil
	case "jpeg", "jpg":
		return tile.FormatJPEG, nil
	case "raw":
		return tile.FormatRaw, nil
	}
	return 0, fmt.Errorf("unknown format: %s", s)
}

// parseRegion parses "x,y,width,height". The empty string selects the whole
// image.
func parseRegion(s string) (image.Rectangle, error) {
	if s == "" {
		return image.Rectangle{}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("region must be in format 'x,y,width,height'")
	}

	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("invalid region value %q: %v", p, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("region width and height must be positive")
	}

	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

// worldFileName derives the world file name from the image name: the first
// and last letter of the extension followed by "w" (scene.png -> scene.pgw).
func worldFileName(output string) string {
	ext := filepath.Ext(output)
	base := strings.TrimSuffix(output, ext)
	if len(ext) < 3 {
		return base + ".wld"
	}
	return base + "." + ext[1:2] + ext[len(ext)-1:] + "w"
}
