package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"headway.dev/transit"
	"headway.dev/transit/storage"
)

var (
	historyRunID  string
	historyFeedID string
	historyStatus string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists feeds processed by previous runs, as CSV",
	Args:  cobra.NoArgs,
	RunE:  history,
}

func init() {
	historyCmd.Flags().StringVarP(&historyRunID, "run", "", "", "Only include this run")
	historyCmd.Flags().StringVarP(&historyFeedID, "feed", "", "", "Only include this feed ID")
	historyCmd.Flags().StringVarP(&historyStatus, "status", "", "", "Only include ok or failed feeds")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 100, "Maximum number of records (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func history(cmd *cobra.Command, args []string) error {
	if historyStatus != "" && historyStatus != string(storage.StatusOK) && historyStatus != string(storage.StatusFailed) {
		return fmt.Errorf("status must be %q or %q", storage.StatusOK, storage.StatusFailed)
	}

	s, err := openStorage()
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer s.Close()

	records, err := s.ListFeedRecords(storage.ListFeedRecordsFilter{
		RunID:  historyRunID,
		FeedID: historyFeedID,
		Status: storage.Status(historyStatus),
		Limit:  historyLimit,
	})
	if err != nil {
		return err
	}

	return transit.WriteReport(cmd.OutOrStdout(), records)
}
