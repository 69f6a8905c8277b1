package geom

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"headway.dev/transit/model"
)

// Feeds spanning more than this are assumed to declare a bounding
// box covering "everywhere" rather than their actual service area.
const (
	MaxLatSpan = 18.0
	MaxLonSpan = 16.0
)

// Intersects reports whether a candidate feed's bounding box overlaps
// the area of interest.
//
// A nil candidate (unknown coverage) never matches, and neither do
// candidates spanning more than MaxLatSpan or MaxLonSpan degrees.
// Boxes sharing only a boundary coordinate are considered
// intersecting.
func Intersects(candidate *model.BoundingBox, area model.Area) bool {
	if candidate == nil {
		return false
	}

	if candidate.MaxLat-candidate.MinLat > MaxLatSpan ||
		candidate.MaxLon-candidate.MinLon > MaxLonSpan {
		return false
	}

	if candidate.MaxLon < area.West || candidate.MinLon > area.East {
		return false
	}
	if candidate.MaxLat < area.South || candidate.MinLat > area.North {
		return false
	}

	return true
}

// ParseArea parses "west south east north" as four whitespace
// separated floats.
func ParseArea(s string) (model.Area, error) {
	parts := strings.Fields(s)
	if len(parts) != 4 {
		return model.Area{}, fmt.Errorf("%w: area must be 4 numbers on form <west> <south> <east> <north>, got %q", model.ErrConfig, s)
	}

	values := [4]float64{}
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return model.Area{}, fmt.Errorf("%w: parsing area coordinate %q: %v", model.ErrConfig, part, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.Area{}, fmt.Errorf("%w: area coordinate %q is not a finite number", model.ErrConfig, part)
		}
		values[i] = v
	}

	area := model.Area{
		West:  values[0],
		South: values[1],
		East:  values[2],
		North: values[3],
	}

	for _, lon := range []float64{area.West, area.East} {
		if lon < -180 || lon > 180 {
			return model.Area{}, fmt.Errorf("%w: area %q has longitude outside [-180, 180]", model.ErrConfig, s)
		}
	}
	for _, lat := range []float64{area.South, area.North} {
		if lat < -90 || lat > 90 {
			return model.Area{}, fmt.Errorf("%w: area %q has latitude outside [-90, 90]", model.ErrConfig, s)
		}
	}

	if area.West > area.East || area.South > area.North {
		return model.Area{}, fmt.Errorf("%w: area %q has west > east or south > north", model.ErrConfig, s)
	}

	return area, nil
}

// FormatArea is the inverse of ParseArea.
func FormatArea(area model.Area) string {
	return fmt.Sprintf(
		"%s %s %s %s",
		strconv.FormatFloat(area.West, 'f', -1, 64),
		strconv.FormatFloat(area.South, 'f', -1, 64),
		strconv.FormatFloat(area.East, 'f', -1, 64),
		strconv.FormatFloat(area.North, 'f', -1, 64),
	)
}

// Rect accumulates points into a bounding rectangle. The zero value
// is empty.
type Rect struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64

	points int
}

func (r *Rect) Expand(lat, lon float64) {
	if r.points == 0 {
		r.MinLon, r.MaxLon = lon, lon
		r.MinLat, r.MaxLat = lat, lat
	} else {
		r.MinLon = min(r.MinLon, lon)
		r.MaxLon = max(r.MaxLon, lon)
		r.MinLat = min(r.MinLat, lat)
		r.MaxLat = max(r.MaxLat, lat)
	}
	r.points++
}

// Merge expands r to also cover o.
func (r *Rect) Merge(o *Rect) {
	if o == nil || o.points == 0 {
		return
	}
	r.Expand(o.MinLat, o.MinLon)
	r.Expand(o.MaxLat, o.MaxLon)
	r.points += o.points - 2
}

func (r *Rect) Empty() bool {
	return r.points == 0
}

// Number of points seen.
func (r *Rect) Points() int {
	return r.points
}

func (r *Rect) Area() model.Area {
	return model.Area{
		West:  r.MinLon,
		South: r.MinLat,
		East:  r.MaxLon,
		North: r.MaxLat,
	}
}

// String formats the rectangle as "left bottom right top", the same
// form ParseArea accepts.
func (r *Rect) String() string {
	return FormatArea(r.Area())
}
