package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/rasterpipe/internal/drivers"
	"github.com/kiesman99/rasterpipe/pkg/loader"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rasterpipe",
	Short: "Decode tiled rasters into RGB tiles on demand",
	Long: `rasterpipe reads block-oriented raster files (JPEG 2000, TIFF, PNG, JPEG,
WebP, BMP) and serves their first three bands as packed 8-bit RGB tiles.
Tiles are decoded when first requested and cached while they are in use.

Examples:
  # Check whether a file can be opened
  rasterpipe probe scene.jp2

  # Print the published image description
  rasterpipe header scene.jp2

  # Export a region as PNG, scaled to half size
  rasterpipe export scene.jp2 --region 0,0,4096,4096 --scale 0.5 -o preview.png

  # Use band 4 as red, 3 as green, 2 as blue
  rasterpipe export scene.tif --bands 4,3,2 -o falsecolor.png

  # Serve every raster in a directory over HTTP
  rasterpipe serve --root ./data --port 8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(viper.GetString("log-level"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rasterpipe.yaml)")
	rootCmd.PersistentFlags().Int("block-size", drivers.DefaultBlockSize, "block edge for formats without a native tile grid")
	rootCmd.PersistentFlags().IntSlice("bands", []int{1, 2, 3}, "source bands (1-based) used as red, green and blue")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")

	// Bind flags to viper
	viper.BindPFlag("block-size", rootCmd.PersistentFlags().Lookup("block-size"))
	viper.BindPFlag("bands", rootCmd.PersistentFlags().Lookup("bands"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".rasterpipe" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".rasterpipe")
	}

	viper.SetEnvPrefix("RASTERPIPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setupLogging routes library logs to stderr at the given level.
func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	loader.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// newLoader builds a loader from the configured block size and band map.
func newLoader() (*loader.Loader, error) {
	bands := viper.GetIntSlice("bands")
	if len(bands) != 3 {
		return nil, fmt.Errorf("--bands needs exactly 3 entries, got %d", len(bands))
	}

	bandMap := make([]int, len(bands))
	for i, b := range bands {
		if b < 1 {
			return nil, fmt.Errorf("band numbers start at 1, got %d", b)
		}
		bandMap[i] = b - 1
	}

	return loader.New(loader.Options{
		BlockSize: viper.GetInt("block-size"),
		BandMap:   bandMap,
	}), nil
}
