package model

import (
	"errors"
)

// Holds all external facing types and constants.

// Every configuration error wraps this. Configuration errors are
// fatal and never retried.
var ErrConfig = errors.New("configuration error")

// Prefix applied to catalog source IDs to form feed IDs. Keeps
// normalized feeds from colliding with IDs from other namespaces.
const FeedIDPrefix = "headway-"

// FeedID returns the feed identifier for a catalog source ID. Static
// archives and the realtime updaters augmenting them both use this,
// so the trip planner can join on it.
func FeedID(sourceID string) string {
	return FeedIDPrefix + sourceID
}

// Values of the catalog's data_type column.
const (
	DataTypeStatic   = "gtfs"
	DataTypeRealtime = "gtfs-rt"
)

// Values of the catalog's entity_type column, for realtime feeds.
const (
	EntityTypeServiceAlerts    = "sa"
	EntityTypeTripUpdates      = "tu"
	EntityTypeVehiclePositions = "vp"
)

type FeedKind string

const (
	FeedKindUnknown                  FeedKind = "unknown"
	FeedKindStatic                   FeedKind = "static-schedule"
	FeedKindRealtimeServiceAlerts    FeedKind = "realtime-service-alerts"
	FeedKindRealtimeTripUpdates      FeedKind = "realtime-trip-updates"
	FeedKindRealtimeVehiclePositions FeedKind = "realtime-vehicle-positions"
)

// KindOf maps a catalog row's data_type and entity_type to a
// FeedKind. Unrecognized combinations yield FeedKindUnknown.
func KindOf(dataType string, entityType string) FeedKind {
	switch dataType {
	case DataTypeStatic:
		return FeedKindStatic
	case DataTypeRealtime:
		switch entityType {
		case EntityTypeServiceAlerts:
			return FeedKindRealtimeServiceAlerts
		case EntityTypeTripUpdates:
			return FeedKindRealtimeTripUpdates
		case EntityTypeVehiclePositions:
			return FeedKindRealtimeVehiclePositions
		}
	}
	return FeedKindUnknown
}

func (k FeedKind) IsRealtime() bool {
	switch k {
	case FeedKindRealtimeServiceAlerts, FeedKindRealtimeTripUpdates, FeedKindRealtimeVehiclePositions:
		return true
	}
	return false
}

type KindSet map[FeedKind]bool

func NewKindSet(kinds ...FeedKind) KindSet {
	s := KindSet{}
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

func (s KindSet) Contains(k FeedKind) bool {
	return s[k]
}

// Axis aligned bounding box, in degrees.
type BoundingBox struct {
	MinLon float64
	MaxLon float64
	MinLat float64
	MaxLat float64
}

// NewBoundingBox returns nil unless all four coordinates are
// present. A nil box means the coverage area is unknown.
func NewBoundingBox(minLon, maxLon, minLat, maxLat *float64) *BoundingBox {
	if minLon == nil || maxLon == nil || minLat == nil || maxLat == nil {
		return nil
	}
	return &BoundingBox{
		MinLon: *minLon,
		MaxLon: *maxLon,
		MinLat: *minLat,
		MaxLat: *maxLat,
	}
}

// A deployment's area of interest.
type Area struct {
	West  float64
	South float64
	East  float64
	North float64
}

// One row of the feed catalog.
type FeedDescriptor struct {
	Provider        string
	SourceID        string
	DataType        string
	EntityType      string
	Kind            FeedKind
	Bounds          *BoundingBox
	URL             string
	StaticReference string

	// Raw row, aligned with the catalog header.
	Record []string
}

// FeedID is the identifier the descriptor's data will be published
// under. Realtime feeds take the ID of the static feed they augment.
func (d *FeedDescriptor) FeedID() string {
	if d.Kind.IsRealtime() {
		return FeedID(d.StaticReference)
	}
	return FeedID(d.SourceID)
}

// The single feed_info.txt record of a normalized archive.
type FeedInfo struct {
	ID            string
	PublisherName string
	PublisherURL  string
	Lang          string
	StartDate     string
	EndDate       string
	Version       string
}

type UpdaterType string

const (
	UpdaterTypeAlerts           UpdaterType = "real-time-alerts"
	UpdaterTypeStopTimes        UpdaterType = "stop-time-updater"
	UpdaterTypeVehiclePositions UpdaterType = "vehicle-positions"
)

// A realtime updater entry in the trip planner's router config.
type UpdaterConfig struct {
	FeedID       string      `json:"feedId"`
	Type         UpdaterType `json:"type"`
	FrequencySec int         `json:"frequencySec"`
	URL          string      `json:"url"`
}
