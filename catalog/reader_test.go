package catalog

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headway.dev/transit/model"
)

const header = "mdb_source_id,data_type,entity_type,provider,static_reference,urls.direct_download,urls.latest,location.bounding_box.minimum_latitude,location.bounding_box.maximum_latitude,location.bounding_box.minimum_longitude,location.bounding_box.maximum_longitude,status"

func catalogText(rows ...string) string {
	return strings.Join(append([]string{header}, rows...), "\n")
}

func TestReadStaticAndRealtime(t *testing.T) {
	r, err := NewReader(strings.NewReader(catalogText(
		`1007,gtfs,,"TMB, Barcelona",,https://tmb/direct.zip,https://mdb/latest.zip,41.2,41.6,1.9,2.4,active`,
		`1852,gtfs-rt,tu,TMB,1007,https://tmb/rt,,,,,,active`,
		`1853,gtfs-rt,sa,TMB,1007,,https://tmb/alerts-latest,,,,,`,
	)))
	require.NoError(t, err)

	descriptors, err := r.ReadAll()
	require.NoError(t, err)
	require.Equal(t, 3, len(descriptors))

	static := descriptors[0]
	assert.Equal(t, "1007", static.SourceID)
	assert.Equal(t, "TMB, Barcelona", static.Provider)
	assert.Equal(t, model.FeedKindStatic, static.Kind)
	assert.Equal(t, "https://mdb/latest.zip", static.URL)
	assert.Equal(t, &model.BoundingBox{MinLon: 1.9, MaxLon: 2.4, MinLat: 41.2, MaxLat: 41.6}, static.Bounds)
	assert.Equal(t, "headway-1007", static.FeedID())

	tripUpdates := descriptors[1]
	assert.Equal(t, model.FeedKindRealtimeTripUpdates, tripUpdates.Kind)
	assert.Equal(t, "https://tmb/rt", tripUpdates.URL)
	assert.Equal(t, "1007", tripUpdates.StaticReference)
	assert.Nil(t, tripUpdates.Bounds)
	assert.Equal(t, "headway-1007", tripUpdates.FeedID())

	alerts := descriptors[2]
	assert.Equal(t, model.FeedKindRealtimeServiceAlerts, alerts.Kind)
	assert.Equal(t, "https://tmb/alerts-latest", alerts.URL)
}

func TestReadPermissiveNumbers(t *testing.T) {
	for _, tc := range []struct {
		name   string
		row    string
		bounds *model.BoundingBox
	}{
		{"all present", "1,gtfs,,P,,,u,1,2,3,4,", &model.BoundingBox{MinLat: 1, MaxLat: 2, MinLon: 3, MaxLon: 4}},
		{"blank cell", "1,gtfs,,P,,,u,1,,3,4,", nil},
		{"garbage cell", "1,gtfs,,P,,,u,1,2,north,4,", nil},
		{"nan cell", "1,gtfs,,P,,,u,1,2,NaN,4,", nil},
		{"inf cell", "1,gtfs,,P,,,u,1,2,3,+Inf,", nil},
		{"whitespace padded", "1,gtfs,,P,,,u, 1 ,2,3 ,4,", &model.BoundingBox{MinLat: 1, MaxLat: 2, MinLon: 3, MaxLon: 4}},
		{"short row", "1,gtfs,,P,,,u,1,2", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewReader(strings.NewReader(catalogText(tc.row)))
			require.NoError(t, err)

			d, err := r.Read()
			require.NoError(t, err)
			assert.Equal(t, tc.bounds, d.Bounds)

			_, err = r.Read()
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestReadShortRow(t *testing.T) {
	r, err := NewReader(strings.NewReader(catalogText("42,gtfs,,Short Provider")))
	require.NoError(t, err)

	d, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "42", d.SourceID)
	assert.Equal(t, "Short Provider", d.Provider)
	assert.Equal(t, "", d.URL)
	assert.Equal(t, "", d.StaticReference)
	assert.Nil(t, d.Bounds)
	assert.Equal(t, len(r.Header()), len(d.Record))
}

func TestReadUnknownColumnsIgnored(t *testing.T) {
	r, err := NewReader(strings.NewReader(strings.Join([]string{
		"note,provider,extra,data_type,mdb_source_id",
		"hello,P,x,gtfs,5",
	}, "\n")))
	require.NoError(t, err)

	d, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "5", d.SourceID)
	assert.Equal(t, "P", d.Provider)
	assert.Equal(t, model.FeedKindStatic, d.Kind)
	assert.Equal(t, []string{"hello", "P", "x", "gtfs", "5"}, d.Record)
}

func TestReadMissingRequiredColumns(t *testing.T) {
	for _, h := range []string{
		"mdb_source_id,data_type",
		"provider,data_type",
		"provider,mdb_source_id",
		"",
	} {
		_, err := NewReader(strings.NewReader(h + "\n"))
		require.Error(t, err, h)
		assert.True(t, errors.Is(err, model.ErrConfig), h)
	}
}

func TestReadUnknownKinds(t *testing.T) {
	r, err := NewReader(strings.NewReader(catalogText(
		"1,gtfs-rt,xyz,P,9,https://rt,,,,,,",
		"2,gbfs,,P,,,https://gbfs,,,,,",
	)))
	require.NoError(t, err)

	descriptors, err := r.ReadAll()
	require.NoError(t, err)
	require.Equal(t, 2, len(descriptors))
	assert.Equal(t, model.FeedKindUnknown, descriptors[0].Kind)
	assert.Equal(t, model.FeedKindUnknown, descriptors[1].Kind)
}

func TestReadStripsBOMAndBlankLines(t *testing.T) {
	text := "\xef\xbb\xbf" + catalogText(
		"1,gtfs,,P,,,u,1,2,3,4,",
		"",
		"   ",
		"2,gtfs,,Q,,,v,1,2,3,4,",
	) + "\n"

	r, err := NewReader(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, "mdb_source_id", r.Header()[0])

	descriptors, err := r.ReadAll()
	require.NoError(t, err)
	require.Equal(t, 2, len(descriptors))
	assert.Equal(t, "1", descriptors[0].SourceID)
	assert.Equal(t, "2", descriptors[1].SourceID)
}

func TestWriterRoundTrip(t *testing.T) {
	input := catalogText(
		`1007,gtfs,,"TMB, Barcelona",,,https://mdb/latest.zip,41.2,41.6,1.9,2.4,active`,
		`1,gtfs,,Short`,
	)

	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)
	descriptors, err := r.ReadAll()
	require.NoError(t, err)

	out := &bytes.Buffer{}
	w := NewWriter(out, r.Header())
	for _, d := range descriptors {
		require.NoError(t, w.Write(d))
	}
	require.NoError(t, w.Flush())

	assert.Equal(t, strings.Join([]string{
		header,
		`1007,gtfs,,"TMB, Barcelona",,,https://mdb/latest.zip,41.2,41.6,1.9,2.4,active`,
		`1,gtfs,,Short,,,,,,,,`,
		"",
	}, "\n"), out.String())

	// Output can be read again, yielding the same descriptors.
	r2, err := NewReader(out)
	require.NoError(t, err)
	again, err := r2.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, descriptors, again)
}

func TestWriterHeaderOnly(t *testing.T) {
	out := &bytes.Buffer{}
	w := NewWriter(out, []string{"provider", "mdb_source_id", "data_type"})
	require.NoError(t, w.Flush())
	assert.Equal(t, "provider,mdb_source_id,data_type\n", out.String())
}
