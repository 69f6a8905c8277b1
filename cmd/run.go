package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"headway.dev/transit"
	"headway.dev/transit/catalog"
)

// Names of files written by run, next to the archives.
const (
	FilteredCatalogFile = "sources.filtered.csv"
	RouterConfigFile    = "router-config.json"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Selects, downloads and normalizes feeds, and generates router config, in one go",
	Args:  cobra.NoArgs,
	RunE:  run,
}

func init() {
	addBatchFlags(runCmd)
	addRealtimeFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) error {
	applyBatchFlags()

	area, err := cfg.ParsedArea()
	if err != nil {
		return err
	}
	if err := cfg.ValidateBatch(); err != nil {
		return err
	}

	r, err := openCatalog(cmd.Context())
	if err != nil {
		return err
	}

	selector := transit.NewSelector(r, area, transit.WantedKinds(realtimeOptions()))
	selected, err := selector.ReadAll()
	if err != nil {
		return err
	}
	log.Info().Int("seen", selector.Seen).Int("kept", selector.Kept).Msg("selected feeds")

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(cfg.OutputDir, FilteredCatalogFile))
	if err != nil {
		return fmt.Errorf("creating filtered catalog: %w", err)
	}
	defer f.Close()
	w := catalog.NewWriter(f, r.Header())
	for _, d := range selected {
		if err := w.Write(d); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing filtered catalog: %w", err)
	}

	// Router config first. It's cheap, and a bad realtime row is a
	// configuration error best reported before any downloading.
	if err := writeRouterConfig(selected, filepath.Join(cfg.OutputDir, RouterConfigFile)); err != nil {
		return err
	}

	return normalizeAll(cmd, selected)
}
