package main

import (
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/city-locator/internal/adapter/device"
	"github.com/spf13/cobra"
)

var replayInterval time.Duration

var replayCmd = &cobra.Command{
	Use:   "replay <fixes.csv>",
	Short: "Convert recorded fixes to a FIXES_FILE replay",
	Long: `Reads a CSV with lat and lon columns (accuracy and batch are optional)
and writes the YAML replay document read by the static provider.

$ locate replay --interval 500ms fixes.csv > fixes.yaml
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		replay, err := device.ReplayFromCSV(f, replayInterval)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return device.WriteReplay(cmd.OutOrStdout(), replay)
	},
}

func init() {
	replayCmd.Flags().DurationVar(&replayInterval, "interval", 0, "delay before each batch")
	rootCmd.AddCommand(replayCmd)
}
