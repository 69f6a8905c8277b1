package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"headway.dev/transit"
	"headway.dev/transit/model"
)

var (
	outputDir     string
	failurePolicy string
	workers       int
	assumeBikes   bool
	reportPath    string
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Downloads and normalizes the static feeds of a (filtered) catalog",
	Args:  cobra.NoArgs,
	RunE:  download,
}

func init() {
	addBatchFlags(downloadCmd)
	rootCmd.AddCommand(downloadCmd)
}

func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory to write <feed id>.gtfs.zip files to")
	cmd.Flags().StringVarP(&failurePolicy, "failure-policy", "", "", "What to do when a feed fails: continue or abort")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Feeds to process concurrently")
	cmd.Flags().BoolVarP(&assumeBikes, "assume-bikes-allowed", "", false, "Mark trips without bikes_allowed as allowing bikes")
	cmd.Flags().StringVarP(&reportPath, "report", "", "", "Write a CSV report of the run here")
}

func applyBatchFlags() {
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if failurePolicy != "" {
		cfg.FailurePolicy = failurePolicy
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if assumeBikes {
		cfg.AssumeBikesAllowed = true
	}
}

func download(cmd *cobra.Command, args []string) error {
	applyBatchFlags()
	if err := cfg.ValidateBatch(); err != nil {
		return err
	}

	r, err := openCatalog(cmd.Context())
	if err != nil {
		return err
	}

	descs, err := r.ReadAll()
	if err != nil {
		return err
	}

	return normalizeAll(cmd, descs)
}

// Runs the batch manager over the static descriptors in descs.
func normalizeAll(cmd *cobra.Command, descs []*model.FeedDescriptor) error {
	if err := cfg.ValidateBatch(); err != nil {
		return err
	}
	policy, err := transit.ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		return err
	}

	s, err := openStorage()
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer s.Close()

	m := transit.NewManager(newNormalizer(), s)
	m.OutputDir = cfg.OutputDir
	m.FailurePolicy = policy
	m.Workers = cfg.Workers
	m.Logger = log

	static := []*model.FeedDescriptor{}
	for _, d := range descs {
		if d.Kind == model.FeedKindStatic {
			static = append(static, d)
		}
	}

	report, runErr := m.NormalizeAll(cmd.Context(), static)

	if reportPath != "" {
		if err := writeRunReport(m); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}

	for _, fe := range report.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s\n", fe)
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d feeds failed (run %s)", len(report.Failed), len(static), report.RunID)
	}

	return nil
}

func writeRunReport(m *transit.Manager) error {
	records, err := m.History()
	if err != nil {
		return fmt.Errorf("listing run history: %w", err)
	}

	out, err := createOutput(reportPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := transit.WriteReport(out, records); err != nil {
		return err
	}
	return out.Close()
}
