package report

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fieldforge/domain/pattern"
	"fieldforge/internal/parser"
)

func trainedParser(t *testing.T) *parser.Parser {
	t.Helper()
	p := parser.New(pattern.NewClassifier(""))
	header := []string{"name", "code"}
	rows := [][]string{
		{"Smith", "12345"},
		{"Jones", "67890"},
		{"Brown", "24680"},
	}
	_, err := p.AnalyzeStream(header, rows, parser.Options{})
	require.NoError(t, err)
	return p
}

func TestBuildReportsEveryFieldInOrder(t *testing.T) {
	p := trainedParser(t)
	rng := rand.New(rand.NewSource(42))
	reports, err := Build(p, rng, 50)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.Equal(t, "name", reports[0].Name)
	require.Equal(t, "code", reports[1].Name)

	// Every training value has length 5, so every sampled length does too.
	require.Equal(t, 50, reports[1].SampleCount)
	require.Equal(t, 5.0, reports[1].Mean)
	require.Equal(t, 0.0, reports[1].StdDev)
}

func TestBuildHandlesEmptyField(t *testing.T) {
	p := parser.New(pattern.NewClassifier(""))
	_, err := p.AnalyzeStream([]string{"a"}, nil, parser.Options{})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	reports, err := Build(p, rng, 10)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, 0, reports[0].SampleCount)
}

func TestRenderMarkdownListsFields(t *testing.T) {
	p := trainedParser(t)
	rng := rand.New(rand.NewSource(42))
	reports, err := Build(p, rng, 20)
	require.NoError(t, err)

	md := string(RenderMarkdown(reports))
	require.Contains(t, md, "## name")
	require.Contains(t, md, "## code")
	require.Contains(t, md, "average realism score")
}

func TestRenderHTMLProducesMarkup(t *testing.T) {
	p := trainedParser(t)
	rng := rand.New(rand.NewSource(42))
	reports, err := Build(p, rng, 20)
	require.NoError(t, err)

	html := string(RenderHTML(reports))
	if !strings.Contains(html, "<h2") {
		t.Fatalf("expected rendered headings, got: %s", html)
	}
}
