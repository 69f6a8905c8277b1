package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spkg/bom"

	"headway.dev/transit/model"
)

// Column names of the Mobility Database sources.csv.
const (
	ColumnProvider        = "provider"
	ColumnSourceID        = "mdb_source_id"
	ColumnDataType        = "data_type"
	ColumnEntityType      = "entity_type"
	ColumnStaticReference = "static_reference"
	ColumnURLLatest       = "urls.latest"
	ColumnURLDirect       = "urls.direct_download"
	ColumnMinLon          = "location.bounding_box.minimum_longitude"
	ColumnMaxLon          = "location.bounding_box.maximum_longitude"
	ColumnMinLat          = "location.bounding_box.minimum_latitude"
	ColumnMaxLat          = "location.bounding_box.maximum_latitude"
)

// Without these there is no sensible way to interpret a row.
var RequiredColumns = []string{ColumnProvider, ColumnSourceID, ColumnDataType}

// Reader reads feed descriptors from a catalog, one row at a
// time. Rows are matched to the header by column name.
type Reader struct {
	csv    *csv.Reader
	header []string
	index  map[string]int
	line   int
}

// NewReader reads the catalog header from r. A catalog missing any of
// the RequiredColumns is rejected with a configuration error.
func NewReader(r io.Reader) (*Reader, error) {
	// Sloppy quoting and ragged rows are common. Short rows are
	// handled by leaving the missing fields absent.
	c := csv.NewReader(bom.NewReader(r))
	c.LazyQuotes = true
	c.FieldsPerRecord = -1
	c.ReuseRecord = false

	header, err := c.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: catalog is empty", model.ErrConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		if _, found := index[name]; !found {
			index[name] = i
		}
	}

	missing := []string{}
	for _, col := range RequiredColumns {
		if _, found := index[col]; !found {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: catalog missing required columns: %s", model.ErrConfig, strings.Join(missing, ", "))
	}

	return &Reader{
		csv:    c,
		header: header,
		index:  index,
		line:   1,
	}, nil
}

// Header returns the catalog's column names, in input order.
func (r *Reader) Header() []string {
	return r.header
}

// Read returns the next descriptor, or io.EOF when the catalog is
// exhausted.
func (r *Reader) Read() (*model.FeedDescriptor, error) {
	for {
		record, err := r.csv.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("reading catalog (line %d): %w", r.line+1, err)
		}
		r.line++

		// Blank lines are skipped by encoding/csv, but a line
		// with only whitespace gives a single empty field.
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		return r.descriptor(record), nil
	}
}

// ReadAll reads all remaining descriptors.
func (r *Reader) ReadAll() ([]*model.FeedDescriptor, error) {
	descriptors := []*model.FeedDescriptor{}
	for {
		d, err := r.Read()
		if errors.Is(err, io.EOF) {
			return descriptors, nil
		}
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
}

func (r *Reader) descriptor(record []string) *model.FeedDescriptor {
	// Pad (or trim) to the header so the record can be written
	// back with the same schema.
	aligned := make([]string, len(r.header))
	copy(aligned, record)

	d := &model.FeedDescriptor{
		Provider:        r.field(aligned, ColumnProvider),
		SourceID:        r.field(aligned, ColumnSourceID),
		DataType:        r.field(aligned, ColumnDataType),
		EntityType:      r.field(aligned, ColumnEntityType),
		StaticReference: r.field(aligned, ColumnStaticReference),
		Record:          aligned,
	}
	d.Kind = model.KindOf(d.DataType, d.EntityType)

	latest := r.field(aligned, ColumnURLLatest)
	direct := r.field(aligned, ColumnURLDirect)
	if d.Kind.IsRealtime() {
		d.URL = firstNonEmpty(direct, latest)
	} else {
		d.URL = firstNonEmpty(latest, direct)
	}

	d.Bounds = model.NewBoundingBox(
		r.float(aligned, ColumnMinLon),
		r.float(aligned, ColumnMaxLon),
		r.float(aligned, ColumnMinLat),
		r.float(aligned, ColumnMaxLat),
	)

	return d
}

// Value of a named column. Blank if the column doesn't exist.
func (r *Reader) field(record []string, column string) string {
	i, found := r.index[column]
	if !found || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// Value of a named column parsed as a float. Blank, malformed and
// non-finite values are all reported as absent.
func (r *Reader) float(record []string, column string) *float64 {
	s := r.field(record, column)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
