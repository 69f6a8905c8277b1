package transit

import (
	"io"

	"headway.dev/transit/geom"
	"headway.dev/transit/model"
)

// Realtime kinds are opt-in. Static schedules are always wanted.
type RealtimeOptions struct {
	ServiceAlerts    bool
	TripUpdates      bool
	VehiclePositions bool
}

// WantedKinds returns the set of kinds to keep.
func WantedKinds(opts RealtimeOptions) model.KindSet {
	kinds := model.NewKindSet(model.FeedKindStatic)
	if opts.ServiceAlerts {
		kinds[model.FeedKindRealtimeServiceAlerts] = true
	}
	if opts.TripUpdates {
		kinds[model.FeedKindRealtimeTripUpdates] = true
	}
	if opts.VehiclePositions {
		kinds[model.FeedKindRealtimeVehiclePositions] = true
	}
	return kinds
}

// Keeps descriptors of a wanted kind whose bounds intersect area.
// Input order is preserved, and nothing is deduplicated.
func Select(descs []*model.FeedDescriptor, area model.Area, kinds model.KindSet) []*model.FeedDescriptor {
	selected := []*model.FeedDescriptor{}
	for _, d := range descs {
		if keep(d, area, kinds) {
			selected = append(selected, d)
		}
	}
	return selected
}

func keep(d *model.FeedDescriptor, area model.Area, kinds model.KindSet) bool {
	return kinds.Contains(d.Kind) && geom.Intersects(d.Bounds, area)
}

// A source of descriptors, such as a catalog.Reader. Read returns
// io.EOF when exhausted.
type DescriptorSource interface {
	Read() (*model.FeedDescriptor, error)
}

// Selector filters a DescriptorSource lazily, so large catalogs never
// need to be held in memory.
type Selector struct {
	src   DescriptorSource
	area  model.Area
	kinds model.KindSet

	// Counts of descriptors seen and kept so far.
	Seen int
	Kept int
}

func NewSelector(src DescriptorSource, area model.Area, kinds model.KindSet) *Selector {
	return &Selector{
		src:   src,
		area:  area,
		kinds: kinds,
	}
}

// Read returns the next selected descriptor, or io.EOF.
func (s *Selector) Read() (*model.FeedDescriptor, error) {
	for {
		d, err := s.src.Read()
		if err != nil {
			return nil, err
		}
		s.Seen++
		if keep(d, s.area, s.kinds) {
			s.Kept++
			return d, nil
		}
	}
}

// ReadAll drains the selector.
func (s *Selector) ReadAll() ([]*model.FeedDescriptor, error) {
	selected := []*model.FeedDescriptor{}
	for {
		d, err := s.Read()
		if err == io.EOF {
			return selected, nil
		}
		if err != nil {
			return nil, err
		}
		selected = append(selected, d)
	}
}
