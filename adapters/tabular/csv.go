// Package tabular implements the CSV/XLSX tabular reader and the CSV sink
// fieldforge's core consumes.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// CSVSource reads a header row and value rows from a comma-delimited,
// double-quoted, UTF-8 CSV file.
type CSVSource struct {
	path string
}

// NewCSVSource builds a CSVSource over path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Read opens path and returns its header row and all subsequent rows.
func (s *CSVSource) Read() (header []string, rows [][]string, err error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv %q: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // rows may be short or long; the parser absorbs this

	first, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("csv %q: empty file, no header row", s.path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header %q: %w", s.path, err)
	}
	header = first

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv row %q: %w", s.path, err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// CSVSink writes records to a comma-delimited CSV file. It implements
// parser.Sink.
type CSVSink struct {
	f *os.File
	w *csv.Writer
}

// NewCSVSink creates (or truncates) path and returns a sink writing to it.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv %q: %w", path, err)
	}
	return &CSVSink{f: f, w: csv.NewWriter(f)}, nil
}

// WriteRecord writes one row of fields.
func (s *CSVSink) WriteRecord(fields []string) error {
	if err := s.w.Write(fields); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	return nil
}

// Flush flushes the underlying writer and closes the file.
func (s *CSVSink) Flush() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return s.f.Close()
}
