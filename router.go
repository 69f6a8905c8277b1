package transit

import (
	"encoding/json"
	"fmt"
	"io"

	"headway.dev/transit/model"
)

// Polling frequencies for each realtime updater type, in seconds.
const (
	AlertsFrequencySec           = 300
	TripUpdatesFrequencySec      = 60
	VehiclePositionsFrequencySec = 60
)

// EmitUpdaters maps realtime descriptors to updater configs, one per
// descriptor, in input order. Any descriptor of a kind without an
// updater type fails the whole call.
func EmitUpdaters(descs []*model.FeedDescriptor) ([]model.UpdaterConfig, error) {
	updaters := make([]model.UpdaterConfig, 0, len(descs))

	for _, d := range descs {
		var updaterType model.UpdaterType
		var frequency int

		switch d.Kind {
		case model.FeedKindRealtimeServiceAlerts:
			updaterType = model.UpdaterTypeAlerts
			frequency = AlertsFrequencySec
		case model.FeedKindRealtimeTripUpdates:
			updaterType = model.UpdaterTypeStopTimes
			frequency = TripUpdatesFrequencySec
		case model.FeedKindRealtimeVehiclePositions:
			updaterType = model.UpdaterTypeVehiclePositions
			frequency = VehiclePositionsFrequencySec
		default:
			return nil, fmt.Errorf(
				"%w: source %s: no updater for data_type %q entity_type %q",
				model.ErrConfig, d.SourceID, d.DataType, d.EntityType,
			)
		}

		updaters = append(updaters, model.UpdaterConfig{
			FeedID:       d.FeedID(),
			Type:         updaterType,
			FrequencySec: frequency,
			URL:          d.URL,
		})
	}

	return updaters, nil
}

type routerConfig struct {
	Updaters []model.UpdaterConfig `json:"updaters"`
}

// WriteRouterConfig writes the trip planner's router config document.
func WriteRouterConfig(w io.Writer, updaters []model.UpdaterConfig) error {
	if updaters == nil {
		updaters = []model.UpdaterConfig{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(routerConfig{Updaters: updaters}); err != nil {
		return fmt.Errorf("encoding router config: %w", err)
	}
	return nil
}
