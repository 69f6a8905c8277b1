package transit_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headway.dev/transit"
	"headway.dev/transit/catalog"
	"headway.dev/transit/model"
)

func desc(id string, kind model.FeedKind, bounds *model.BoundingBox) *model.FeedDescriptor {
	return &model.FeedDescriptor{SourceID: id, Kind: kind, Bounds: bounds}
}

func box(minLon, maxLon, minLat, maxLat float64) *model.BoundingBox {
	return &model.BoundingBox{MinLon: minLon, MaxLon: maxLon, MinLat: minLat, MaxLat: maxLat}
}

func ids(descs []*model.FeedDescriptor) []string {
	out := []string{}
	for _, d := range descs {
		out = append(out, d.SourceID)
	}
	return out
}

func TestWantedKinds(t *testing.T) {
	kinds := transit.WantedKinds(transit.RealtimeOptions{})
	assert.Equal(t, model.NewKindSet(model.FeedKindStatic), kinds)

	kinds = transit.WantedKinds(transit.RealtimeOptions{ServiceAlerts: true})
	assert.True(t, kinds.Contains(model.FeedKindStatic))
	assert.True(t, kinds.Contains(model.FeedKindRealtimeServiceAlerts))
	assert.False(t, kinds.Contains(model.FeedKindRealtimeTripUpdates))

	kinds = transit.WantedKinds(transit.RealtimeOptions{
		ServiceAlerts:    true,
		TripUpdates:      true,
		VehiclePositions: true,
	})
	assert.Equal(t, 4, len(kinds))
	assert.False(t, kinds.Contains(model.FeedKindUnknown))
}

func TestSelect(t *testing.T) {
	area := model.Area{West: -10, South: -10, East: 10, North: 10}
	all := transit.WantedKinds(transit.RealtimeOptions{ServiceAlerts: true, TripUpdates: true, VehiclePositions: true})

	descs := []*model.FeedDescriptor{
		desc("inside", model.FeedKindStatic, box(-1, 1, -1, 1)),
		desc("outside", model.FeedKindStatic, box(20, 21, 20, 21)),
		desc("unknown-bounds", model.FeedKindStatic, nil),
		desc("too-big", model.FeedKindStatic, box(-9, 9, -9, 9)),
		desc("touching", model.FeedKindStatic, box(10, 12, 0, 1)),
		desc("alerts", model.FeedKindRealtimeServiceAlerts, box(-1, 1, -1, 1)),
		desc("trips", model.FeedKindRealtimeTripUpdates, box(-1, 1, -1, 1)),
		desc("weird", model.FeedKindUnknown, box(-1, 1, -1, 1)),
		desc("inside", model.FeedKindStatic, box(-2, 2, -2, 2)),
	}

	// Duplicates and order survive
	assert.Equal(t,
		[]string{"inside", "touching", "inside"},
		ids(transit.Select(descs, area, transit.WantedKinds(transit.RealtimeOptions{}))),
	)

	assert.Equal(t,
		[]string{"inside", "touching", "alerts", "trips", "inside"},
		ids(transit.Select(descs, area, all)),
	)

	assert.Equal(t,
		[]string{"alerts"},
		ids(transit.Select(descs, area, model.NewKindSet(model.FeedKindRealtimeServiceAlerts))),
	)

	// Nothing in, nothing out
	assert.Equal(t, []string{}, ids(transit.Select(nil, area, all)))
	assert.Equal(t, []string{}, ids(transit.Select(descs, area, model.KindSet{})))
}

func TestSelectorOverCatalog(t *testing.T) {
	cat := `mdb_source_id,data_type,entity_type,provider,static_reference,urls.direct_download,urls.latest,location.bounding_box.minimum_latitude,location.bounding_box.maximum_latitude,location.bounding_box.minimum_longitude,location.bounding_box.maximum_longitude
1,gtfs,,Near,,https://near/direct.zip,https://near/latest.zip,-1,1,-1,1
2,gtfs,,Far,,https://far/direct.zip,,50,51,50,51
3,gtfs-rt,vp,Near RT,1,https://near/vp.pb,,-1,1,-1,1
4,gtfs,,Nowhere,,https://nowhere.zip,,,,,
5,gtfs-rt,sa,Near RT,1,https://near/sa.pb,,-1,1,-1,1
`
	r, err := catalog.NewReader(bytes.NewBufferString(cat))
	require.NoError(t, err)

	area := model.Area{West: -10, South: -10, East: 10, North: 10}
	s := transit.NewSelector(r, area, transit.WantedKinds(transit.RealtimeOptions{ServiceAlerts: true}))

	selected, err := s.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "5"}, ids(selected))
	assert.Equal(t, 5, s.Seen)
	assert.Equal(t, 2, s.Kept)

	// The filtered catalog keeps the input's columns
	out := &bytes.Buffer{}
	w := catalog.NewWriter(out, r.Header())
	for _, d := range selected {
		require.NoError(t, w.Write(d))
	}
	require.NoError(t, w.Flush())
	assert.Equal(t, `mdb_source_id,data_type,entity_type,provider,static_reference,urls.direct_download,urls.latest,location.bounding_box.minimum_latitude,location.bounding_box.maximum_latitude,location.bounding_box.minimum_longitude,location.bounding_box.maximum_longitude
1,gtfs,,Near,,https://near/direct.zip,https://near/latest.zip,-1,1,-1,1
5,gtfs-rt,sa,Near RT,1,https://near/sa.pb,,-1,1,-1,1
`, out.String())
}
