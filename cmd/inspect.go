package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe FILE...",
	Short: "Report whether files can be opened as rasters",
	Long: `Probe tries every driver on each file and prints whether one of them
accepts it. The command fails if any file is rejected.

A file that probes successfully may still be unusable for tile reads, for
example when it has fewer than three bands; use header to check.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProbe,
}

var headerCmd = &cobra.Command{
	Use:   "header FILE",
	Short: "Print the image description as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runHeader,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(headerCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	l, err := newLoader()
	if err != nil {
		return err
	}

	rejected := 0
	for _, path := range args {
		ok := l.Probe(path)
		if !ok {
			rejected++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%t\n", path, ok)
	}

	if rejected > 0 {
		return fmt.Errorf("%d of %d files cannot be opened", rejected, len(args))
	}
	return nil
}

func runHeader(cmd *cobra.Command, args []string) error {
	l, err := newLoader()
	if err != nil {
		return err
	}

	meta, err := l.ReadHeader(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
