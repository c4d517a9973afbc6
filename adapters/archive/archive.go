// Package archive implements fieldforge's save/load codec as versioned JSON.
// No raw analyzed value ever appears in the archive, only counted
// statistics.
package archive

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"fieldforge/domain/pattern"
	"fieldforge/domain/profiling"
	"fieldforge/internal/apperr"
	"fieldforge/internal/parser"
)

// CurrentVersion is the only archive format version this build writes or
// accepts.
const CurrentVersion = 1

type document struct {
	Version     int                        `json:"version"`
	TagAlphabet map[string]string          `json:"tag_alphabet"`
	RunID       string                     `json:"run_id"`
	Fields      []string                   `json:"fields"`
	Profiles    map[string]profileDocument `json:"profiles"`
}

type profileDocument struct {
	Patterns     map[string]uint64            `json:"patterns"`
	Lengths      map[string]uint64            `json:"lengths"`
	LeadingChars map[string]uint64            `json:"leading_chars"`
	Facts        map[string]map[string]uint64 `json:"facts"`
	Finalized    bool                         `json:"finalized"`
}

func tagAlphabet() map[string]string {
	m := make(map[string]string, len(pattern.Alphabet))
	for _, t := range pattern.Alphabet {
		m[t.Name()] = t.String()
	}
	return m
}

// ToArchive serializes p as versioned JSON. run_id is a freshly stamped
// UUIDv7, used purely as an opaque provenance tag. It never derives from
// or encodes any analyzed value.
func ToArchive(p *parser.Parser) ([]byte, error) {
	runID, err := uuid.NewV7()
	if err != nil {
		runID = uuid.New()
	}

	doc := document{
		Version:     CurrentVersion,
		TagAlphabet: tagAlphabet(),
		RunID:       runID.String(),
		Fields:      p.FieldNames(),
		Profiles:    make(map[string]profileDocument, len(p.FieldNames())),
	}

	for i, name := range p.FieldNames() {
		doc.Profiles[name] = encodeProfile(p.Profiles()[i])
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal archive: %w", err)
	}
	return data, nil
}

func encodeProfile(prof *profiling.Profile) profileDocument {
	pd := profileDocument{
		Patterns:     countsOf(prof.Patterns()),
		Lengths:      intCountsOf(prof.Lengths()),
		LeadingChars: runeCountsOf(prof.LeadingChars()),
		Facts:        make(map[string]map[string]uint64),
		Finalized:    prof.Finalized(),
	}
	for tag, table := range prof.Facts() {
		m := make(map[string]uint64, table.Len())
		for _, key := range table.Keys() {
			m[encodeFactKey(key)] = table.Count(key)
		}
		pd.Facts[tag.Name()] = m
	}
	return pd
}

func countsOf(t *profiling.Table[string]) map[string]uint64 {
	m := make(map[string]uint64, t.Len())
	for _, k := range t.Keys() {
		m[k] = t.Count(k)
	}
	return m
}

func intCountsOf(t *profiling.Table[int]) map[string]uint64 {
	m := make(map[string]uint64, t.Len())
	for _, k := range t.Keys() {
		m[strconv.Itoa(k)] = t.Count(k)
	}
	return m
}

func runeCountsOf(t *profiling.Table[rune]) map[string]uint64 {
	m := make(map[string]uint64, t.Len())
	for _, k := range t.Keys() {
		m[string(k)] = t.Count(k)
	}
	return m
}

// encodeFactKey renders a FactKey as a JSON-encoded 3-tuple string, rather
// than the bare "(prior,bucket,char)" notation, so that a literal comma or
// parenthesis in the trained punctuation set round-trips unambiguously.
func encodeFactKey(k profiling.FactKey) string {
	prior := string(k.Prior)
	if k.Prior == profiling.Sentinel {
		prior = "\x00sentinel"
	}
	raw, _ := json.Marshal([3]string{prior, string(k.Bucket), string(k.Char)})
	return string(raw)
}

func decodeFactKey(s string) (profiling.FactKey, error) {
	var triple [3]string
	if err := json.Unmarshal([]byte(s), &triple); err != nil {
		return profiling.FactKey{}, fmt.Errorf("%w: fact key %q", apperr.ErrArchiveMalformed, s)
	}
	prior := profiling.Sentinel
	if triple[0] != "\x00sentinel" {
		r := []rune(triple[0])
		if len(r) != 1 {
			return profiling.FactKey{}, fmt.Errorf("%w: fact key prior %q", apperr.ErrArchiveMalformed, triple[0])
		}
		prior = r[0]
	}
	charRunes := []rune(triple[2])
	if len(charRunes) != 1 {
		return profiling.FactKey{}, fmt.Errorf("%w: fact key char %q", apperr.ErrArchiveMalformed, triple[2])
	}
	return profiling.FactKey{
		Prior:  prior,
		Bucket: profiling.PositionBucket(triple[1]),
		Char:   charRunes[0],
	}, nil
}

// FromArchive deserializes data into a Parser ready for generation.
// classifier must match the punctuation set the archive was trained with:
// generation classifies each sampled leading character with it to decide
// whether the draw fits the pattern's first tag, so a mismatched
// punctuation set can change the generated values.
func FromArchive(data []byte, classifier *pattern.Classifier) (*parser.Parser, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrArchiveMalformed, err)
	}
	if doc.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", apperr.ErrArchiveVersion, doc.Version, CurrentVersion)
	}
	if doc.Fields == nil || doc.Profiles == nil {
		return nil, fmt.Errorf("%w: missing fields or profiles", apperr.ErrArchiveMalformed)
	}

	p := parser.New(classifier)
	if err := p.RegisterFields(doc.Fields); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrArchiveMalformed, err)
	}

	for i, name := range doc.Fields {
		pd, ok := doc.Profiles[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing profile for field %q", apperr.ErrArchiveMalformed, name)
		}
		prof := p.Profiles()[i]
		if err := decodeProfile(prof, pd); err != nil {
			return nil, err
		}
	}
	p.MarkFinalized()
	return p, nil
}

func decodeProfile(prof *profiling.Profile, pd profileDocument) error {
	for value, count := range pd.Patterns {
		prof.RestorePattern(value, count)
	}
	for lengthStr, count := range pd.Lengths {
		length, err := strconv.Atoi(lengthStr)
		if err != nil {
			return fmt.Errorf("%w: length key %q", apperr.ErrArchiveMalformed, lengthStr)
		}
		prof.RestoreLength(length, count)
	}
	for charStr, count := range pd.LeadingChars {
		r := []rune(charStr)
		if len(r) != 1 {
			return fmt.Errorf("%w: leading char key %q", apperr.ErrArchiveMalformed, charStr)
		}
		prof.RestoreLeadingChar(r[0], count)
	}
	for tagName, counts := range pd.Facts {
		tag, ok := tagByName(tagName)
		if !ok {
			return fmt.Errorf("%w: unknown tag %q", apperr.ErrArchiveMalformed, tagName)
		}
		for keyStr, count := range counts {
			key, err := decodeFactKey(keyStr)
			if err != nil {
				return err
			}
			prof.RestoreFact(tag, key, count)
		}
	}
	prof.PreGenerate()
	return nil
}

func tagByName(name string) (pattern.Tag, bool) {
	for _, t := range pattern.Alphabet {
		if t.Name() == name {
			return t, true
		}
	}
	return 0, false
}
