package main

import (
	"io"

	"github.com/spf13/cobra"

	"headway.dev/transit"
	"headway.dev/transit/catalog"
)

var selectOutput string

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Filters the catalog down to feeds covering the area of interest",
	Args:  cobra.NoArgs,
	RunE:  selectFeeds,
}

func init() {
	selectCmd.Flags().StringVarP(&selectOutput, "output", "o", "", "Write filtered catalog here instead of stdout")
	addRealtimeFlags(selectCmd)
	rootCmd.AddCommand(selectCmd)
}

func selectFeeds(cmd *cobra.Command, args []string) error {
	area, err := cfg.ParsedArea()
	if err != nil {
		return err
	}

	r, err := openCatalog(cmd.Context())
	if err != nil {
		return err
	}

	out, err := createOutput(selectOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	selector := transit.NewSelector(r, area, transit.WantedKinds(realtimeOptions()))
	w := catalog.NewWriter(out, r.Header())

	for {
		d, err := selector.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := w.Write(d); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}

	log.Info().
		Int("seen", selector.Seen).
		Int("kept", selector.Kept).
		Msg("selected feeds")

	if selectOutput != "" {
		return out.Close()
	}
	return nil
}

