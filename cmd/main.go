package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"headway.dev/transit"
	"headway.dev/transit/catalog"
	"headway.dev/transit/config"
	"headway.dev/transit/downloader"
	"headway.dev/transit/logger"
	"headway.dev/transit/model"
	"headway.dev/transit/storage"
)

var rootCmd = &cobra.Command{
	Use:               "transitfeeds",
	Short:             "Transit feed selection and normalization",
	Long:              "Selects GTFS feeds covering an area from the Mobility Database catalog, normalizes them for OpenTripPlanner and generates its realtime updater config",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	configPath    string
	bbox          string
	catalogSource string
	logLevel      string
	headers       []string

	serviceAlerts    bool
	tripUpdates      bool
	vehiclePositions bool

	cfg *config.Config
	log zerolog.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&bbox, "bbox", "", "", "Area of interest, as \"<west> <south> <east> <north>\"")
	rootCmd.PersistentFlags().StringVarP(&catalogSource, "catalog", "", "", "Catalog path or URL ('-' for stdin)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "", "", "Log level")
	rootCmd.PersistentFlags().StringSliceVarP(
		&headers,
		"header",
		"",
		[]string{},
		"HTTP header sent with downloads, on form <key>:<value>",
	)
}

// Realtime kind flags, for commands that select.
func addRealtimeFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&serviceAlerts, "gtfs-rt-service-alerts", "", false, "Include GTFS-rt service alerts")
	cmd.Flags().BoolVarP(&tripUpdates, "gtfs-rt-trip-updates", "", false, "Include GTFS-rt trip updates")
	cmd.Flags().BoolVarP(&vehiclePositions, "gtfs-rt-vehicle-positions", "", false, "Include GTFS-rt vehicle positions")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Loads config and applies flags on top.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	if bbox != "" {
		cfg.Area = bbox
	}
	if catalogSource != "" {
		cfg.Catalog = catalogSource
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if cmd.Flags().Lookup("gtfs-rt-service-alerts") != nil {
		cfg.Realtime.ServiceAlerts = cfg.Realtime.ServiceAlerts || serviceAlerts
		cfg.Realtime.TripUpdates = cfg.Realtime.TripUpdates || tripUpdates
		cfg.Realtime.VehiclePositions = cfg.Realtime.VehiclePositions || vehiclePositions
	}

	parsed, err := parseHeaders(headers)
	if err != nil {
		return fmt.Errorf("%w: invalid header: %v", model.ErrConfig, err)
	}
	if cfg.Download.Headers == nil {
		cfg.Download.Headers = map[string]string{}
	}
	for k, v := range parsed {
		cfg.Download.Headers[k] = v
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err = logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfig, err)
	}

	return nil
}

func parseHeaders(headers []string) (map[string]string, error) {
	parsed := map[string]string{}
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("'%s' is not on form <key>:<value>", header)
		}
		parsed[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return parsed, nil
}

func newDownloader() downloader.Downloader {
	return downloader.NewFilesystem("")
}

// Opens the configured catalog. Read in full up front, so that
// a bad header is reported before any feed is touched.
func openCatalog(ctx context.Context) (*catalog.Reader, error) {
	var r io.Reader
	if cfg.Catalog == "-" {
		r = os.Stdin
	} else {
		body, err := newDownloader().Get(ctx, cfg.Catalog, nil, downloader.GetOptions{
			Timeout: 120 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("fetching catalog %s: %w", cfg.Catalog, err)
		}
		r = bytes.NewReader(body)
	}

	return catalog.NewReader(r)
}

func realtimeOptions() transit.RealtimeOptions {
	return transit.RealtimeOptions{
		ServiceAlerts:    cfg.Realtime.ServiceAlerts,
		TripUpdates:      cfg.Realtime.TripUpdates,
		VehiclePositions: cfg.Realtime.VehiclePositions,
	}
}

func newNormalizer() *transit.Normalizer {
	n := transit.NewNormalizer(newDownloader())
	n.Timeout = time.Duration(cfg.Download.TimeoutSec) * time.Second
	n.MaxSize = cfg.Download.MaxSizeMB << 20
	n.MaxUnpackedSize = int64(cfg.Download.MaxUnpackedMB) << 20
	n.Headers = cfg.Download.Headers
	n.TempDir = cfg.Download.TempDir
	n.AssumeBikesAllowed = cfg.AssumeBikesAllowed
	n.Logger = log
	return n
}

func openStorage() (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		return storage.NewSQLiteStorage(storage.SQLiteConfig{OnDisk: true, Directory: cfg.Storage.Directory})
	case "postgres":
		return storage.NewPSQLStorage(cfg.Storage.PostgresURL, false)
	default:
		return storage.NewMemoryStorage(), nil
	}
}

// Creates a file, or returns stdout for "" and "-".
func createOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
