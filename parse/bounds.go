package parse

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spkg/bom"

	"headway.dev/transit/geom"
)

const (
	ShapesFile = "shapes.txt"
	StopsFile  = "stops.txt"
)

type ShapePointCSV struct {
	Lat string `csv:"shape_pt_lat"`
	Lon string `csv:"shape_pt_lon"`
}

type StopCSV struct {
	Lat string `csv:"stop_lat"`
	Lon string `csv:"stop_lon"`
}

var csvReaderOnce sync.Once

func setCSVReader() {
	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	csvReaderOnce.Do(func() {
		gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
			return gocsv.LazyCSVReader(bom.NewReader(in))
		})
	})
}

// ShapeBounds expands rect with every point in shapes.txt.
func ShapeBounds(rect *geom.Rect, data io.Reader) error {
	setCSVReader()

	data, empty := peek(data)
	if empty {
		return nil
	}

	err := gocsv.UnmarshalToCallback(data, func(p *ShapePointCSV) {
		expand(rect, p.Lat, p.Lon)
	})
	if err != nil {
		return errors.Wrap(err, "unmarshaling shapes csv")
	}
	return nil
}

// StopBounds expands rect with every located stop in stops.txt.
func StopBounds(rect *geom.Rect, data io.Reader) error {
	setCSVReader()

	data, empty := peek(data)
	if empty {
		return nil
	}

	err := gocsv.UnmarshalToCallback(data, func(s *StopCSV) {
		expand(rect, s.Lat, s.Lon)
	})
	if err != nil {
		return errors.Wrap(err, "unmarshaling stops csv")
	}
	return nil
}

// gocsv refuses empty files. An empty file simply has no points.
func peek(data io.Reader) (io.Reader, bool) {
	br := bufio.NewReader(data)
	_, err := br.Peek(1)
	return br, err != nil
}

// Points lacking either coordinate are skipped. Some location types
// in stops.txt don't require them.
func expand(rect *geom.Rect, latStr, lonStr string) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return
	}
	rect.Expand(lat, lon)
}
