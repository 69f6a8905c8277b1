package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"headway.dev/transit"
)

var bboxCmd = &cobra.Command{
	Use:   "bbox <archive.zip>...",
	Short: "Prints the bounding box covered by GTFS archives, as \"left bottom right top\"",
	Args:  cobra.MinimumNArgs(1),
	RunE:  computeBBox,
}

func init() {
	rootCmd.AddCommand(bboxCmd)
}

func computeBBox(cmd *cobra.Command, args []string) error {
	archives := [][]byte{}
	for _, path := range args {
		buf, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		archives = append(archives, buf)
	}

	rect, err := transit.ComputeBounds(archives)
	if err != nil {
		return err
	}

	log.Debug().Int("points", rect.Points()).Msg("computed bounds")

	fmt.Fprintln(cmd.OutOrStdout(), rect.String())
	return nil
}
