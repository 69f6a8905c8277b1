package catalog

import (
	"encoding/csv"
	"fmt"
	"io"

	"headway.dev/transit/model"
)

// Writer writes descriptors back out with the schema of the catalog
// they were read from.
type Writer struct {
	csv    *csv.Writer
	header []string
	wrote  bool
}

func NewWriter(w io.Writer, header []string) *Writer {
	return &Writer{
		csv:    csv.NewWriter(w),
		header: header,
	}
}

// Write writes a descriptor's raw record. The header is written
// ahead of the first record, or by Flush if there are none.
func (w *Writer) Write(d *model.FeedDescriptor) error {
	if err := w.writeHeader(); err != nil {
		return err
	}

	record := make([]string, len(w.header))
	copy(record, d.Record)

	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("writing catalog row for source %s: %w", d.SourceID, err)
	}

	return nil
}

func (w *Writer) Flush() error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flushing catalog: %w", err)
	}
	return nil
}

func (w *Writer) writeHeader() error {
	if w.wrote {
		return nil
	}
	w.wrote = true
	if err := w.csv.Write(w.header); err != nil {
		return fmt.Errorf("writing catalog header: %w", err)
	}
	return nil
}
