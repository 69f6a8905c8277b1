package parse

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spkg/bom"
)

const TripsFile = "trips.txt"

const (
	BikesAllowedUnknown   = "0"
	BikesAllowedAllowed   = "1"
	BikesAllowedForbidden = "2"
)

// AssumeBikesAllowed copies trips.txt from in to out, marking every
// trip without bikes_allowed information as allowing bikes. Trips
// explicitly forbidding bikes are left alone. Returns the number of
// trips changed.
func AssumeBikesAllowed(in io.Reader, out io.Writer) (int, error) {
	r := csv.NewReader(bom.NewReader(in))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	w := csv.NewWriter(out)

	header, err := r.Read()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "reading trips header")
	}

	idx := -1
	for i, col := range header {
		if strings.TrimSpace(col) == "bikes_allowed" {
			idx = i
			break
		}
	}
	if idx < 0 {
		header = append(header, "bikes_allowed")
		idx = len(header) - 1
	}

	if err := w.Write(header); err != nil {
		return 0, errors.Wrap(err, "writing trips header")
	}

	changed := 0
	for i := 0; ; i++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return changed, errors.Wrapf(err, "reading trips (row %d)", i+1)
		}

		for len(record) <= idx {
			record = append(record, "")
		}

		switch strings.TrimSpace(record[idx]) {
		case "", BikesAllowedUnknown:
			record[idx] = BikesAllowedAllowed
			changed++
		}

		if err := w.Write(record); err != nil {
			return changed, errors.Wrapf(err, "writing trips (row %d)", i+1)
		}
	}

	w.Flush()
	return changed, errors.Wrap(w.Error(), "flushing trips")
}
