package transit

import (
	"bytes"
	"errors"
	"fmt"

	"headway.dev/transit/archive"
	"headway.dev/transit/geom"
	"headway.dev/transit/parse"
)

var ErrNoPoints = errors.New("no coordinates found")

// ComputeBounds returns the rectangle covering every shape point in
// the given archives. Archives without shapes.txt contribute their
// stop locations instead.
func ComputeBounds(archives [][]byte) (*geom.Rect, error) {
	rect := &geom.Rect{}

	for i, buf := range archives {
		shapes, found, err := archive.ReadFile(buf, parse.ShapesFile)
		if err != nil {
			return nil, fmt.Errorf("archive %d: %w", i, err)
		}

		if found {
			shapeRect := &geom.Rect{}
			if err := parse.ShapeBounds(shapeRect, bytes.NewReader(shapes)); err != nil {
				return nil, fmt.Errorf("archive %d: %w", i, err)
			}
			if !shapeRect.Empty() {
				rect.Merge(shapeRect)
				continue
			}
		}

		stops, found, err := archive.ReadFile(buf, parse.StopsFile)
		if err != nil {
			return nil, fmt.Errorf("archive %d: %w", i, err)
		}
		if !found {
			continue
		}
		if err := parse.StopBounds(rect, bytes.NewReader(stops)); err != nil {
			return nil, fmt.Errorf("archive %d: %w", i, err)
		}
	}

	if rect.Empty() {
		return nil, ErrNoPoints
	}

	return rect, nil
}
