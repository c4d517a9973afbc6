// Package parser implements the dataset-level orchestrator: it maps field
// names to Profiles, drives training across a tabular stream, and drives
// generation of new records once every Profile is finalized.
package parser

import (
	"math/rand"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"fieldforge/domain/pattern"
	"fieldforge/domain/profiling"
	"fieldforge/internal/apperr"
)

// Sink is the tabular output contract GenerateTable writes through. Errors
// propagate unchanged.
type Sink interface {
	WriteRecord(fields []string) error
	Flush() error
}

// Parser owns an ordered field-name -> Profile mapping and the punctuation
// classifier shared by every Profile it creates.
type Parser struct {
	classifier *pattern.Classifier

	names    []string
	index    map[string]int
	profiles []*profiling.Profile

	issues    bool
	finalized bool
}

// New builds an empty Parser. classifier governs how every field's values
// are reduced to patterns; callers typically share one classifier built
// from config.Punctuation across every Parser in a process.
func New(classifier *pattern.Classifier) *Parser {
	return &Parser{
		classifier: classifier,
		index:      make(map[string]int),
	}
}

// Issues reports whether any anomaly was absorbed during AnalyzeStream: a
// row with the wrong field count, a malformed UTF-8 field, or (after a
// non-empty stream) a field that saw no non-empty value.
func (p *Parser) Issues() bool { return p.issues }

// FieldNames returns header names in first-seen order.
func (p *Parser) FieldNames() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Options configures AnalyzeStream's optional parallel training path.
type Options struct {
	// Concurrency, when > 1, fans rows out across a worker pool. Each
	// worker accumulates into its own scratch Profile set, folded into the
	// owning Profiles after the stream ends. Because Frequency Table
	// counts are commutative under addition, the result is identical to
	// the sequential path regardless of worker count or row order.
	Concurrency int
}

// AnalyzeStream registers a Profile per header name (DuplicateField on a
// repeated name) and feeds every row's fields to their column's Profile.
// Rows shorter than the header are padded with "", longer rows are
// truncated and flagged via Issues(). After rows is exhausted, PreGenerate
// runs on every Profile. Returns the number of rows consumed.
func (p *Parser) AnalyzeStream(header []string, rows [][]string, opts Options) (int, error) {
	if err := p.registerHeader(header); err != nil {
		return 0, err
	}

	var count int
	if opts.Concurrency > 1 {
		var err error
		count, err = p.analyzeParallel(rows, opts.Concurrency)
		if err != nil {
			return count, err
		}
	} else {
		count = p.analyzeSequential(rows)
	}

	for _, prof := range p.profiles {
		// A field that never saw a non-empty value is flagged, not fatal:
		// its profile still finalizes and generates the empty string.
		if count > 0 && prof.Patterns().Total() == 0 {
			p.issues = true
		}
		prof.PreGenerate()
	}
	p.finalized = true
	return count, nil
}

// RegisterFields sets up one empty Profile per name, without training or
// finalizing them. Used by the archive loader, which restores Profile
// statistics directly rather than replaying analyze() calls.
func (p *Parser) RegisterFields(header []string) error {
	return p.registerHeader(header)
}

// MarkFinalized records that every registered Profile has been finalized
// by some path other than AnalyzeStream (the archive loader's restore
// path). Safe to call only once every Profile's own PreGenerate has run.
func (p *Parser) MarkFinalized() {
	p.finalized = true
}

func (p *Parser) registerHeader(header []string) error {
	p.names = p.names[:0]
	p.index = make(map[string]int, len(header))
	p.profiles = p.profiles[:0]
	for _, name := range header {
		if _, dup := p.index[name]; dup {
			return apperr.Wrap(apperr.ErrDuplicateField, "field %q", name)
		}
		p.index[name] = len(p.names)
		p.names = append(p.names, name)
		p.profiles = append(p.profiles, profiling.New(p.classifier))
	}
	return nil
}

func (p *Parser) analyzeSequential(rows [][]string) int {
	n := len(p.profiles)
	count := 0
	for _, row := range rows {
		p.analyzeRow(row, n)
		count++
	}
	return count
}

// analyzeRow routes one row's fields to their column's Profile, padding or
// truncating against the header width and flagging the truncation anomaly.
func (p *Parser) analyzeRow(row []string, width int) {
	if len(row) > width {
		p.issues = true
		row = row[:width]
	}
	for i := 0; i < width; i++ {
		var value string
		if i < len(row) {
			value = row[i]
		} else if len(row) < width {
			p.issues = true
		}
		if !utf8.ValidString(value) {
			// A malformed field is absorbed: the rest of the row still
			// trains, the anomaly is only flagged.
			p.issues = true
			continue
		}
		// Analyze never fails here: the profile is still in the learning
		// phase for the whole stream.
		_ = p.profiles[i].Analyze(value)
	}
}

// analyzeParallel fans rows out across Concurrency workers, each training a
// private scratch Parser-shaped set of Profiles, then folds every worker's
// Frequency Tables into the owning Profiles in batch order once every worker
// has finished; that order has no bearing on the finalized counts.
func (p *Parser) analyzeParallel(rows [][]string, concurrency int) (int, error) {
	n := len(p.names)
	if len(rows) == 0 {
		return 0, nil
	}

	batches := splitRows(rows, concurrency)
	scratch := make([]*Parser, len(batches))
	batchLens := make([]int, len(batches))

	g := new(errgroup.Group)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			sp := New(p.classifier)
			sp.profiles = make([]*profiling.Profile, n)
			for j := range sp.profiles {
				sp.profiles[j] = profiling.New(p.classifier)
			}
			batchLens[i] = sp.analyzeSequential(batch)
			scratch[i] = sp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	count := 0
	for i, sp := range scratch {
		if sp.issues {
			p.issues = true
		}
		for j, prof := range sp.profiles {
			p.profiles[j].MergeFrom(prof)
		}
		count += batchLens[i]
	}
	return count, nil
}

func splitRows(rows [][]string, workers int) [][][]string {
	if workers < 1 {
		workers = 1
	}
	total := len(rows)
	batchSize := (total + workers - 1) / workers
	if batchSize < 1 {
		batchSize = 1
	}
	var batches [][][]string
	for i := 0; i < total; i += batchSize {
		end := i + batchSize
		if end > total {
			end = total
		}
		batches = append(batches, rows[i:end])
	}
	return batches
}

// GenerateByField returns one sampled value for name. UnknownField if name
// was never registered.
func (p *Parser) GenerateByField(rng *rand.Rand, name string) (string, error) {
	i, ok := p.index[name]
	if !ok {
		return "", apperr.Wrap(apperr.ErrUnknownField, "field %q", name)
	}
	return p.profiles[i].Generate(rng)
}

// GenerateRecord samples one value per field, in header order. Fields are
// sampled independently; there is no cross-field constraint.
func (p *Parser) GenerateRecord(rng *rand.Rand) ([]string, error) {
	out := make([]string, len(p.profiles))
	for i, prof := range p.profiles {
		v, err := prof.Generate(rng)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// GenerateTable writes n synthetic rows, preceded by the header row, to
// sink. Sink errors abort immediately and propagate as SinkError.
func (p *Parser) GenerateTable(rng *rand.Rand, n int, sink Sink) error {
	if err := sink.WriteRecord(p.FieldNames()); err != nil {
		return apperr.Wrap(apperr.ErrSinkError, "write header: %v", err)
	}
	for i := 0; i < n; i++ {
		record, err := p.GenerateRecord(rng)
		if err != nil {
			return err
		}
		if err := sink.WriteRecord(record); err != nil {
			return apperr.Wrap(apperr.ErrSinkError, "write row %d: %v", i, err)
		}
	}
	if err := sink.Flush(); err != nil {
		return apperr.Wrap(apperr.ErrSinkError, "flush: %v", err)
	}
	return nil
}

// Profiles exposes the ordered Profile slice for archival.
func (p *Parser) Profiles() []*profiling.Profile { return p.profiles }

// Classifier exposes the punctuation classifier, needed by the archive
// loader to rebuild a Parser with matching encoding behavior.
func (p *Parser) Classifier() *pattern.Classifier { return p.classifier }
