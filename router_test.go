package transit_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headway.dev/transit"
	"headway.dev/transit/model"
)

func realtimeDesc(sourceID, entityType, staticRef, url string) *model.FeedDescriptor {
	return &model.FeedDescriptor{
		SourceID:        sourceID,
		DataType:        model.DataTypeRealtime,
		EntityType:      entityType,
		Kind:            model.KindOf(model.DataTypeRealtime, entityType),
		StaticReference: staticRef,
		URL:             url,
	}
}

func TestEmitUpdaters(t *testing.T) {
	updaters, err := transit.EmitUpdaters([]*model.FeedDescriptor{
		realtimeDesc("10", "vp", "1", "https://rt/vp.pb"),
		realtimeDesc("11", "sa", "1", "https://rt/sa.pb"),
		realtimeDesc("12", "tu", "2", "https://rt/tu.pb"),
	})
	require.NoError(t, err)
	assert.Equal(t, []model.UpdaterConfig{
		{FeedID: "headway-1", Type: model.UpdaterTypeVehiclePositions, FrequencySec: 60, URL: "https://rt/vp.pb"},
		{FeedID: "headway-1", Type: model.UpdaterTypeAlerts, FrequencySec: 300, URL: "https://rt/sa.pb"},
		{FeedID: "headway-2", Type: model.UpdaterTypeStopTimes, FrequencySec: 60, URL: "https://rt/tu.pb"},
	}, updaters)

	// Empty input is fine
	updaters, err = transit.EmitUpdaters(nil)
	require.NoError(t, err)
	assert.Equal(t, []model.UpdaterConfig{}, updaters)
}

func TestEmitUpdatersUnknownKind(t *testing.T) {
	for _, tc := range []struct {
		name string
		desc *model.FeedDescriptor
	}{
		{"unknown entity type", realtimeDesc("10", "xx", "1", "https://rt/xx.pb")},
		{"combined entity type", realtimeDesc("10", "tu|vp", "1", "https://rt/all.pb")},
		{"static", &model.FeedDescriptor{SourceID: "1", DataType: "gtfs", Kind: model.FeedKindStatic}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			updaters, err := transit.EmitUpdaters([]*model.FeedDescriptor{
				realtimeDesc("11", "sa", "1", "https://rt/sa.pb"),
				tc.desc,
			})
			assert.True(t, errors.Is(err, model.ErrConfig))
			assert.Nil(t, updaters)
		})
	}
}

func TestWriteRouterConfig(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, transit.WriteRouterConfig(buf, []model.UpdaterConfig{
		{FeedID: "headway-1", Type: model.UpdaterTypeAlerts, FrequencySec: 300, URL: "https://rt/sa.pb?key=a&b=c"},
	}))
	assert.Equal(t, `{
  "updaters": [
    {
      "feedId": "headway-1",
      "type": "real-time-alerts",
      "frequencySec": 300,
      "url": "https://rt/sa.pb?key=a&b=c"
    }
  ]
}
`, buf.String())

	buf.Reset()
	require.NoError(t, transit.WriteRouterConfig(buf, nil))
	assert.Equal(t, "{\n  \"updaters\": []\n}\n", buf.String())
}
