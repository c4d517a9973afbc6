package archive

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fieldforge/domain/pattern"
	"fieldforge/internal/parser"
)

func trainSample(t *testing.T) *parser.Parser {
	t.Helper()
	classifier := pattern.NewClassifier("")
	p := parser.New(classifier)
	header := []string{"name", "status"}
	rows := [][]string{
		{"Smith", "OK"},
		{"Jones", "OK"},
		{"Brown", "FAIL"},
		{"Davis", "OK"},
		{"Wilson", "FAIL"},
	}
	_, err := p.AnalyzeStream(header, rows, parser.Options{})
	require.NoError(t, err)
	return p
}

func TestArchiveRejectsUnknownVersion(t *testing.T) {
	data := []byte(`{"version": 99, "tag_alphabet": {}, "fields": [], "profiles": {}}`)
	classifier := pattern.NewClassifier("")
	_, err := FromArchive(data, classifier)
	require.Error(t, err)
}

func TestArchiveRejectsMalformedJSON(t *testing.T) {
	classifier := pattern.NewClassifier("")
	_, err := FromArchive([]byte("not json"), classifier)
	require.Error(t, err)
}

func TestArchiveRoundTripMatchesGeneration(t *testing.T) {
	p := trainSample(t)
	data, err := ToArchive(p)
	require.NoError(t, err)

	classifier := pattern.NewClassifier("")
	restored, err := FromArchive(data, classifier)
	require.NoError(t, err)
	require.Equal(t, p.FieldNames(), restored.FieldNames())

	for _, seed := range []int64{1, 2, 3, 42} {
		rngOrig := rand.New(rand.NewSource(seed))
		rngRestored := rand.New(rand.NewSource(seed))
		origRecord, err := p.GenerateRecord(rngOrig)
		require.NoError(t, err)
		restoredRecord, err := restored.GenerateRecord(rngRestored)
		require.NoError(t, err)
		require.Equal(t, origRecord, restoredRecord, "seed %d", seed)
	}
}

func TestArchiveContainsNoRawValues(t *testing.T) {
	p := trainSample(t)
	data, err := ToArchive(p)
	require.NoError(t, err)

	content := string(data)
	for _, raw := range []string{"Smith", "Jones", "Brown", "Davis", "Wilson"} {
		require.NotContains(t, content, raw)
	}
	require.True(t, strings.Contains(content, `"version"`))
}
