package parse

import (
	"fmt"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	proto "google.golang.org/protobuf/proto"
)

// Key figures of a GTFS Realtime feed message.
type RealtimeSummary struct {
	Version        string
	Timestamp      uint64
	Incrementality string

	NumEntities         int
	NumAlerts           int
	NumTripUpdates      int
	NumVehiclePositions int
	NumDeleted          int
}

// SummarizeRealtime decodes a GTFS Realtime FeedMessage and counts
// its entities by kind. An entity can carry more than one kind.
func SummarizeRealtime(feed []byte) (*RealtimeSummary, error) {
	f := &gtfsproto.FeedMessage{}
	err := proto.Unmarshal(feed, f)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling protobuf: %w", err)
	}

	header := f.GetHeader()
	if header == nil {
		return nil, fmt.Errorf("missing feed header")
	}

	version := header.GetGtfsRealtimeVersion()
	if version != "2.0" && version != "1.0" {
		return nil, fmt.Errorf("version %s not supported", version)
	}

	summary := &RealtimeSummary{
		Version:        version,
		Timestamp:      header.GetTimestamp(),
		Incrementality: header.GetIncrementality().String(),
	}

	for _, entity := range f.GetEntity() {
		summary.NumEntities++
		if entity.GetIsDeleted() {
			summary.NumDeleted++
		}
		if entity.Alert != nil {
			summary.NumAlerts++
		}
		if entity.TripUpdate != nil {
			summary.NumTripUpdates++
		}
		if entity.Vehicle != nil {
			summary.NumVehiclePositions++
		}
	}

	return summary, nil
}
