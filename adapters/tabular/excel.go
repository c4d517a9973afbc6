package tabular

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelSource reads a header row and value rows from Sheet1 of an .xlsx
// workbook. It is read-only: fieldforge never writes .xlsx, only CSV,
// since the sink contract is defined against a plain record stream.
type ExcelSource struct {
	path string
}

// NewExcelSource builds an ExcelSource over path.
func NewExcelSource(path string) *ExcelSource {
	return &ExcelSource{path: path}
}

// Read opens path and returns Sheet1's header row and all subsequent rows.
func (s *ExcelSource) Read() (header []string, rows [][]string, err error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx %q: %w", s.path, err)
	}
	defer f.Close()

	raw, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, nil, fmt.Errorf("read Sheet1 of %q: %w", s.path, err)
	}
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("xlsx %q: Sheet1 has no header row", s.path)
	}
	return raw[0], raw[1:], nil
}

// NewSource dispatches to CSVSource or ExcelSource based on path's
// extension.
func NewSource(path string) Source {
	if strings.ToLower(filepath.Ext(path)) == ".xlsx" {
		return NewExcelSource(path)
	}
	return NewCSVSource(path)
}

// Source is the common tabular-input contract both CSVSource and
// ExcelSource satisfy.
type Source interface {
	Read() (header []string, rows [][]string, err error)
}
