package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVSinkThenSourceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	sink, err := NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.WriteRecord([]string{"name", "note"}))
	require.NoError(t, sink.WriteRecord([]string{"O'Brien, H", `say "hi"`}))
	require.NoError(t, sink.Flush())

	header, rows, err := NewCSVSource(path).Read()
	require.NoError(t, err)
	require.Equal(t, []string{"name", "note"}, header)
	require.Len(t, rows, 1)
	require.Equal(t, []string{"O'Brien, H", `say "hi"`}, rows[0])
}

func TestCSVSourceKeepsRaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	content := "a,b,c\nx,y\n1,2,3,4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	header, rows, err := NewCSVSource(path).Read()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, header)
	require.Len(t, rows, 2)
	require.Len(t, rows[0], 2)
	require.Len(t, rows[1], 4)
}

func TestCSVSourceRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, _, err := NewCSVSource(path).Read()
	require.Error(t, err)
}

func TestNewSourceDispatchesOnExtension(t *testing.T) {
	if _, ok := NewSource("fixtures.xlsx").(*ExcelSource); !ok {
		t.Fatal("NewSource(.xlsx) should return an ExcelSource")
	}
	if _, ok := NewSource("fixtures.csv").(*CSVSource); !ok {
		t.Fatal("NewSource(.csv) should return a CSVSource")
	}
	if _, ok := NewSource("fixtures").(*CSVSource); !ok {
		t.Fatal("NewSource without an extension should default to CSV")
	}
}
