package parser

import (
	"errors"
	"math/rand"
	"testing"

	"fieldforge/domain/pattern"
	"fieldforge/internal/apperr"
)

func newTestParser() *Parser {
	return New(pattern.NewClassifier(""))
}

type recordingSink struct {
	rows    [][]string
	flushed bool
}

func (s *recordingSink) WriteRecord(fields []string) error {
	row := make([]string, len(fields))
	copy(row, fields)
	s.rows = append(s.rows, row)
	return nil
}

func (s *recordingSink) Flush() error {
	s.flushed = true
	return nil
}

type failingSink struct{ failAfter int }

func (s *failingSink) WriteRecord(fields []string) error {
	if s.failAfter == 0 {
		return errors.New("boom")
	}
	s.failAfter--
	return nil
}
func (s *failingSink) Flush() error { return nil }

func TestEmptyInputRows(t *testing.T) {
	p := newTestParser()
	n, err := p.AnalyzeStream([]string{"a", "b"}, nil, Options{})
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	if n != 0 {
		t.Fatalf("AnalyzeStream count = %d, want 0", n)
	}

	rng := rand.New(rand.NewSource(1))
	record, err := p.GenerateRecord(rng)
	if err != nil {
		t.Fatalf("GenerateRecord: %v", err)
	}
	want := []string{"", ""}
	if len(record) != len(want) || record[0] != want[0] || record[1] != want[1] {
		t.Fatalf("GenerateRecord() = %v, want %v", record, want)
	}
}

func TestTruncatedRowSetsIssuesAndPadsMissingField(t *testing.T) {
	p := newTestParser()
	n, err := p.AnalyzeStream([]string{"a", "b", "c"}, [][]string{{"x", "y"}}, Options{})
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	if n != 1 {
		t.Fatalf("AnalyzeStream count = %d, want 1", n)
	}
	if !p.Issues() {
		t.Fatal("Issues() = false, want true for a short row")
	}
	if got := p.Profiles()[2].EmptyCount(); got != 1 {
		t.Fatalf("field c EmptyCount() = %d, want 1 (padded empty value)", got)
	}
}

func TestLongRowIsTruncatedAndFlagged(t *testing.T) {
	p := newTestParser()
	n, err := p.AnalyzeStream([]string{"a", "b"}, [][]string{{"x", "y", "z"}}, Options{})
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	if n != 1 {
		t.Fatalf("AnalyzeStream count = %d, want 1", n)
	}
	if !p.Issues() {
		t.Fatal("Issues() = false, want true for an over-long row")
	}
}

func TestDuplicateHeaderRejectsWithoutConsumingRows(t *testing.T) {
	p := newTestParser()
	n, err := p.AnalyzeStream([]string{"a", "a"}, [][]string{{"1", "2"}}, Options{})
	if n != 0 {
		t.Fatalf("AnalyzeStream count = %d, want 0 on DuplicateField", n)
	}
	if !errors.Is(err, apperr.ErrDuplicateField) {
		t.Fatalf("AnalyzeStream err = %v, want ErrDuplicateField", err)
	}
}

func TestUnknownFieldGeneration(t *testing.T) {
	p := newTestParser()
	if _, err := p.AnalyzeStream([]string{"a"}, [][]string{{"x"}}, Options{}); err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	if _, err := p.GenerateByField(rng, "nope"); !errors.Is(err, apperr.ErrUnknownField) {
		t.Fatalf("GenerateByField err = %v, want ErrUnknownField", err)
	}
}

func TestFieldNamesPreservesFirstSeenOrder(t *testing.T) {
	p := newTestParser()
	header := []string{"zeta", "alpha", "mid"}
	if _, err := p.AnalyzeStream(header, [][]string{{"1", "2", "3"}}, Options{}); err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	got := p.FieldNames()
	for i, name := range header {
		if got[i] != name {
			t.Fatalf("FieldNames()[%d] = %q, want %q", i, got[i], name)
		}
	}
}

func TestGenerateTablePropagatesSinkError(t *testing.T) {
	p := newTestParser()
	if _, err := p.AnalyzeStream([]string{"a"}, [][]string{{"x"}}, Options{}); err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	err := p.GenerateTable(rng, 3, &failingSink{failAfter: 0})
	if !errors.Is(err, apperr.ErrSinkError) {
		t.Fatalf("GenerateTable err = %v, want ErrSinkError", err)
	}
}

func TestGenerateTableWritesHeaderThenRows(t *testing.T) {
	p := newTestParser()
	if _, err := p.AnalyzeStream([]string{"a", "b"}, [][]string{{"1", "2"}, {"3", "4"}}, Options{}); err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	rng := rand.New(rand.NewSource(1))
	sink := &recordingSink{}
	if err := p.GenerateTable(rng, 2, sink); err != nil {
		t.Fatalf("GenerateTable: %v", err)
	}
	if !sink.flushed {
		t.Fatal("GenerateTable did not flush the sink")
	}
	if len(sink.rows) != 3 {
		t.Fatalf("sink received %d rows, want 3 (header + 2 data rows)", len(sink.rows))
	}
	if sink.rows[0][0] != "a" || sink.rows[0][1] != "b" {
		t.Fatalf("header row = %v, want [a b]", sink.rows[0])
	}
}

func TestMalformedUTF8FieldIsAbsorbed(t *testing.T) {
	p := newTestParser()
	bad := string([]byte{0xff, 0xfe})
	n, err := p.AnalyzeStream([]string{"a", "b"}, [][]string{{bad, "ok"}}, Options{})
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	if n != 1 {
		t.Fatalf("AnalyzeStream count = %d, want 1", n)
	}
	if !p.Issues() {
		t.Fatal("Issues() = false, want true for a malformed UTF-8 field")
	}
	// The malformed field is skipped, the rest of the row still trains.
	if got := p.Profiles()[1].Patterns().Total(); got != 1 {
		t.Fatalf("field b patterns.Total() = %d, want 1", got)
	}
	if got := p.Profiles()[0].Patterns().Total(); got != 0 {
		t.Fatalf("field a patterns.Total() = %d, want 0 (malformed value skipped)", got)
	}
}

func TestColumnWithNoValuesSetsIssues(t *testing.T) {
	p := newTestParser()
	_, err := p.AnalyzeStream([]string{"a", "b"}, [][]string{{"x", ""}, {"y", ""}}, Options{})
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	if !p.Issues() {
		t.Fatal("Issues() = false, want true when a field saw no values")
	}
}

func TestParallelTrainingMatchesSequentialTotals(t *testing.T) {
	header := []string{"code"}
	rows := make([][]string, 0, 40)
	for i := 0; i < 40; i++ {
		rows = append(rows, []string{"12345"})
	}

	seq := newTestParser()
	if _, err := seq.AnalyzeStream(header, rows, Options{}); err != nil {
		t.Fatalf("sequential AnalyzeStream: %v", err)
	}
	par := newTestParser()
	if _, err := par.AnalyzeStream(header, rows, Options{Concurrency: 4}); err != nil {
		t.Fatalf("parallel AnalyzeStream: %v", err)
	}

	seqTotal := seq.Profiles()[0].Patterns().Total()
	parTotal := par.Profiles()[0].Patterns().Total()
	if seqTotal != parTotal {
		t.Fatalf("patterns.Total() sequential=%d parallel=%d, want equal", seqTotal, parTotal)
	}
}
