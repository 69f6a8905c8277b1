package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"headway.dev/transit"
)

var probeSourceIDs []string

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Fetches the realtime feeds of a (filtered) catalog and checks they carry what they claim to",
	Args:  cobra.NoArgs,
	RunE:  probe,
}

func init() {
	probeCmd.Flags().StringSliceVarP(&probeSourceIDs, "source-id", "s", []string{}, "Only probe these mdb_source_ids")
	rootCmd.AddCommand(probeCmd)
}

func probe(cmd *cobra.Command, args []string) error {
	r, err := openCatalog(cmd.Context())
	if err != nil {
		return err
	}

	descs, err := r.ReadAll()
	if err != nil {
		return err
	}

	wanted := map[string]bool{}
	for _, id := range probeSourceIDs {
		wanted[id] = true
	}

	d := newDownloader()
	out := cmd.OutOrStdout()
	failures := 0

	for _, desc := range descs {
		if !desc.Kind.IsRealtime() {
			continue
		}
		if len(wanted) > 0 && !wanted[desc.SourceID] {
			continue
		}

		result, err := transit.Probe(cmd.Context(), d, desc, cfg.Download.Headers)
		if err != nil {
			var feedErr *transit.FeedError
			if !errors.As(err, &feedErr) {
				return err
			}
			failures++
			fmt.Fprintf(out, "%s\t%s\tERROR\t%v\n", desc.SourceID, desc.Kind, feedErr.Err)
			continue
		}

		status := "ok"
		if !result.Matches {
			status = "MISMATCH"
			log.Warn().
				Str("source_id", desc.SourceID).
				Str("kind", string(desc.Kind)).
				Msg("realtime feed lacks entities of its declared kind")
		}

		s := result.Summary
		fmt.Fprintf(
			out,
			"%s\t%s\t%s\tentities=%d alerts=%d trip_updates=%d vehicles=%d timestamp=%d\n",
			desc.SourceID, desc.Kind, status,
			s.NumEntities, s.NumAlerts, s.NumTripUpdates, s.NumVehiclePositions, s.Timestamp,
		)
	}

	if failures > 0 {
		return fmt.Errorf("%d realtime feeds could not be probed", failures)
	}
	return nil
}

