package profiling

import (
	"math/rand"

	"fieldforge/domain/pattern"
	"fieldforge/internal/apperr"
)

// FactCondition is the (prior_char, position_bucket) pair a facts lookup is
// conditioned on before the progressive-relaxation fallback chain in
// Generate kicks in.
type FactCondition struct {
	Prior  rune
	Bucket PositionBucket
}

// Profile is the per-field learner and generator: four Frequency Tables
// (patterns, lengths, leading_chars, and one facts table per class tag) plus
// the derived lookup structures Generate needs once training is finalized.
type Profile struct {
	classifier *pattern.Classifier

	patterns      *Table[string]
	patternsByLen map[int]*Table[string]
	lengths       *Table[int]
	leadingChars  *Table[rune]
	facts         map[pattern.Tag]*Table[FactKey]
	factsByCond   map[pattern.Tag]map[FactCondition]*Table[rune]
	factsByPrior  map[pattern.Tag]map[rune]*Table[rune]
	factsUncond   map[pattern.Tag]*Table[rune]

	emptyCount int
	finalized  bool
}

// New builds an empty, LEARNING-phase Profile using classifier to encode
// values into patterns and classify individual characters.
func New(classifier *pattern.Classifier) *Profile {
	facts := make(map[pattern.Tag]*Table[FactKey])
	for _, tag := range pattern.Alphabet {
		facts[tag] = NewTable[FactKey](FactKeyLess)
	}
	return &Profile{
		classifier:    classifier,
		patterns:      NewTable[string](StringLess),
		patternsByLen: make(map[int]*Table[string]),
		lengths:       NewTable[int](IntLess),
		leadingChars:  NewTable[rune](runeLess),
		facts:         facts,
	}
}

func runeLess(a, b rune) bool { return a < b }

// Finalized reports whether pre_generate has run.
func (p *Profile) Finalized() bool { return p.finalized }

// EmptyCount returns the number of analyzed values ignored for being empty.
func (p *Profile) EmptyCount() int { return p.emptyCount }

// Analyze updates statistics from one value. Empty values are ignored and
// tallied rather than counted as an error. Must be called only before
// PreGenerate.
func (p *Profile) Analyze(value string) error {
	if p.finalized {
		return apperr.ErrPhaseViolation
	}
	if value == "" {
		p.emptyCount++
		return nil
	}

	enc := p.classifier.Encode(value)
	p.patterns.Add(enc)

	runes := []rune(value)
	length := len(runes)
	p.lengths.Add(length)

	byLen, ok := p.patternsByLen[length]
	if !ok {
		byLen = NewTable[string](StringLess)
		p.patternsByLen[length] = byLen
	}
	byLen.Add(enc)

	p.leadingChars.Add(runes[0])

	for _, fact := range factsFromValue(value, p.classifier.ClassifyRune) {
		p.facts[fact.CharClass].Add(FactKey{
			Prior:  fact.PriorChar,
			Bucket: bucketFor(fact.IndexFromStart, fact.IndexFromEnd),
			Char:   fact.CharValue,
		})
	}
	return nil
}

// MergeFrom folds another profile's raw, not-yet-finalized counts into p.
// Used to combine per-worker scratch profiles from parallel training; since
// every underlying Frequency Table is a commutative counter, the result is
// independent of merge order.
func (p *Profile) MergeFrom(other *Profile) {
	p.emptyCount += other.emptyCount
	p.patterns.Merge(other.patterns)
	p.lengths.Merge(other.lengths)
	p.leadingChars.Merge(other.leadingChars)

	for length, t := range other.patternsByLen {
		dst, ok := p.patternsByLen[length]
		if !ok {
			dst = NewTable[string](StringLess)
			p.patternsByLen[length] = dst
		}
		dst.Merge(t)
	}
	for tag, t := range other.facts {
		p.facts[tag].Merge(t)
	}
}

// PreGenerate finalizes all Frequency Tables, derives the conditioned
// lookup tables Generate needs, and marks the profile read-only. Idempotent.
func (p *Profile) PreGenerate() {
	p.patterns.Finalize()
	p.lengths.Finalize()
	p.leadingChars.Finalize()
	for _, t := range p.patternsByLen {
		t.Finalize()
	}
	p.deriveFactIndexes()
	p.finalized = true
}

// deriveFactIndexes rebuilds the prior+bucket, prior-only, and unconditional
// per-class char lookup tables from each class's canonical facts table. It
// is also the reconstruction path used after loading an archive: the
// archive only stores the canonical facts[tag] counts, so the derived
// tables are rebuilt from those rather than re-serialized.
func (p *Profile) deriveFactIndexes() {
	p.factsByCond = make(map[pattern.Tag]map[FactCondition]*Table[rune])
	p.factsByPrior = make(map[pattern.Tag]map[rune]*Table[rune])
	p.factsUncond = make(map[pattern.Tag]*Table[rune])

	for tag, table := range p.facts {
		table.Finalize()
		byCond := make(map[FactCondition]*Table[rune])
		byPrior := make(map[rune]*Table[rune])
		uncond := NewTable[rune](runeLess)

		for _, key := range table.Keys() {
			count := table.Count(key)

			cond := FactCondition{Prior: key.Prior, Bucket: key.Bucket}
			ct, ok := byCond[cond]
			if !ok {
				ct = NewTable[rune](runeLess)
				byCond[cond] = ct
			}
			ct.AddN(key.Char, count)

			pt, ok := byPrior[key.Prior]
			if !ok {
				pt = NewTable[rune](runeLess)
				byPrior[key.Prior] = pt
			}
			pt.AddN(key.Char, count)

			uncond.AddN(key.Char, count)
		}

		for _, ct := range byCond {
			ct.Finalize()
		}
		for _, pt := range byPrior {
			pt.Finalize()
		}
		uncond.Finalize()

		p.factsByCond[tag] = byCond
		p.factsByPrior[tag] = byPrior
		p.factsUncond[tag] = uncond
	}
}

// RestoreFact bulk-loads a single (tag, key) count pair, used when rebuilding
// a Profile from an archive. Callers must call PreGenerate afterward to
// derive the lookup tables and mark the profile finalized.
func (p *Profile) RestoreFact(tag pattern.Tag, key FactKey, count uint64) {
	p.facts[tag].AddN(key, count)
}

// RestorePattern bulk-loads a pattern count, used by the archive loader.
func (p *Profile) RestorePattern(value string, count uint64) {
	p.patterns.AddN(value, count)
	length := len([]rune(value))
	byLen, ok := p.patternsByLen[length]
	if !ok {
		byLen = NewTable[string](StringLess)
		p.patternsByLen[length] = byLen
	}
	byLen.AddN(value, count)
}

// RestoreLength bulk-loads a length count, used by the archive loader.
func (p *Profile) RestoreLength(length int, count uint64) {
	p.lengths.AddN(length, count)
}

// RestoreLeadingChar bulk-loads a leading-character count, used by the
// archive loader.
func (p *Profile) RestoreLeadingChar(r rune, count uint64) {
	p.leadingChars.AddN(r, count)
}

// Patterns, Lengths, LeadingChars and Facts expose the finalized Frequency
// Tables for archival. Callers must not mutate the returned tables.
func (p *Profile) Patterns() *Table[string]               { return p.patterns }
func (p *Profile) Lengths() *Table[int]                   { return p.lengths }
func (p *Profile) LeadingChars() *Table[rune]             { return p.leadingChars }
func (p *Profile) Facts() map[pattern.Tag]*Table[FactKey] { return p.facts }

// Generate produces one synthetic value. Must be called only after
// PreGenerate.
func (p *Profile) Generate(rng *rand.Rand) (string, error) {
	if !p.finalized {
		return "", apperr.ErrPhaseViolation
	}
	if p.patterns.Total() == 0 {
		return "", nil
	}

	length, err := p.lengths.Sample(rng)
	if err != nil {
		return "", nil
	}

	encoded, err := p.samplePattern(rng, length)
	if err != nil {
		return "", nil
	}
	patRunes := []rune(encoded)
	if len(patRunes) == 0 {
		return "", nil
	}

	out := make([]rune, len(patRunes))
	out[0] = p.sampleLeading(rng, pattern.Tag(patRunes[0]))

	prev := out[0]
	for i := 1; i < len(patRunes); i++ {
		bucket := BucketMiddle
		if i == len(patRunes)-1 {
			bucket = BucketEnd
		}
		c := p.sampleFact(rng, pattern.Tag(patRunes[i]), prev, bucket)
		out[i] = c
		prev = c
	}
	return string(out), nil
}

// samplePattern prefers a pattern sampled from the length-conditioned index;
// if that index is empty, it samples from the unconditioned patterns table
// and lets the sampled pattern's actual length win over the requested one.
func (p *Profile) samplePattern(rng *rand.Rand, length int) (string, error) {
	if byLen, ok := p.patternsByLen[length]; ok && byLen.Total() > 0 {
		return byLen.Sample(rng)
	}
	return p.patterns.Sample(rng)
}

// sampleLeading prefers a leading_chars draw when it matches the target
// class, else falls back to facts[class] at the start bucket.
func (p *Profile) sampleLeading(rng *rand.Rand, class pattern.Tag) rune {
	if c, err := p.leadingChars.Sample(rng); err == nil {
		if p.classifier.ClassifyRune(c) == class {
			return c
		}
	}
	return p.sampleFact(rng, class, Sentinel, BucketStart)
}

// sampleFact draws a character for class with progressive relaxation: exact
// (prior, bucket) match, then prior-only, then unconditional within the
// class, then a literal representative if the class has no facts at all.
func (p *Profile) sampleFact(rng *rand.Rand, class pattern.Tag, prior rune, bucket PositionBucket) rune {
	if byCond, ok := p.factsByCond[class]; ok {
		if t, ok := byCond[FactCondition{Prior: prior, Bucket: bucket}]; ok {
			if c, err := t.Sample(rng); err == nil {
				return c
			}
		}
	}
	if byPrior, ok := p.factsByPrior[class]; ok {
		if t, ok := byPrior[prior]; ok {
			if c, err := t.Sample(rng); err == nil {
				return c
			}
		}
	}
	if uncond, ok := p.factsUncond[class]; ok {
		if c, err := uncond.Sample(rng); err == nil {
			return c
		}
	}
	return pattern.Literal(class)
}
