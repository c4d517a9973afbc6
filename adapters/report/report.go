// Package report renders a per-field descriptive statistics report after
// training: length-distribution shape (mean/stddev/min/max/median via
// montanaflynn/stats, skewness/kurtosis via local helpers, normality via
// gonum's Chi-squared distribution) plus
// an average realism score between freshly generated samples. Every number
// here derives from already-finalized frequency tables, never from a raw
// value, so the learn-and-discard property holds.
package report

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"

	"github.com/gomarkdown/markdown"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"fieldforge/domain/profiling"
	"fieldforge/internal/parser"
	"fieldforge/internal/realism"
)

// FieldReport is one field's descriptive statistics.
type FieldReport struct {
	Name        string
	SampleCount int
	Mean        float64
	StdDev      float64
	Min         float64
	Max         float64
	Median      float64
	Skewness    float64
	Kurtosis    float64
	IsNormal    bool
	ShapiroP    float64
	AvgRealism  float64
}

// Build profiles every field's length distribution from the lengths of
// sampleSize freshly generated values, then draws another sampleSize values
// and averages the realism score of each consecutive pair. The raw training
// values are gone by design, so realism measures the generator's
// self-consistency rather than fidelity to the training sample.
func Build(p *parser.Parser, rng *rand.Rand, sampleSize int) ([]FieldReport, error) {
	names := p.FieldNames()
	out := make([]FieldReport, 0, len(names))
	for i, name := range names {
		prof := p.Profiles()[i]
		fr, err := buildField(name, prof, rng, sampleSize)
		if err != nil {
			return nil, fmt.Errorf("report field %q: %w", name, err)
		}
		out = append(out, fr)
	}
	return out, nil
}

func buildField(name string, prof *profiling.Profile, rng *rand.Rand, sampleSize int) (FieldReport, error) {
	fr := FieldReport{Name: name}
	if prof.Patterns().Total() == 0 {
		// An untrained field generates only empty strings; report it as
		// having no samples rather than a degenerate all-zero distribution.
		return fr, nil
	}
	lengths := lengthSamples(prof, rng, sampleSize)
	fr.SampleCount = len(lengths)
	if len(lengths) == 0 {
		return fr, nil
	}

	mean, err := stats.Mean(lengths)
	if err != nil {
		return fr, err
	}
	stdDev, err := stats.StandardDeviation(lengths)
	if err != nil {
		return fr, err
	}
	min, err := stats.Min(lengths)
	if err != nil {
		return fr, err
	}
	max, err := stats.Max(lengths)
	if err != nil {
		return fr, err
	}
	median, err := stats.Median(lengths)
	if err != nil {
		return fr, err
	}

	skew := calculateSkewness(lengths, mean, stdDev)
	kurt := calculateKurtosis(lengths, mean, stdDev)
	isNormal, pValue := testNormality(lengths, skew, kurt)

	fr.Mean, fr.StdDev, fr.Min, fr.Max, fr.Median = mean, stdDev, min, max, median
	fr.Skewness, fr.Kurtosis, fr.IsNormal, fr.ShapiroP = skew, kurt, isNormal, pValue
	fr.AvgRealism = averageRealism(prof, rng, sampleSize)
	return fr, nil
}

func lengthSamples(prof *profiling.Profile, rng *rand.Rand, n int) []float64 {
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		v, err := prof.Generate(rng)
		if err != nil {
			break
		}
		out = append(out, float64(len([]rune(v))))
	}
	return out
}

// averageRealism draws n samples and scores each consecutive pair; since
// the training sample itself is unreachable after training, this measures
// self-consistency of the generator rather than fidelity to a specific
// retained value.
func averageRealism(prof *profiling.Profile, rng *rand.Rand, n int) float64 {
	if n == 0 {
		return 0
	}
	var total float64
	var count int
	var prev string
	for i := 0; i < n; i++ {
		v, err := prof.Generate(rng)
		if err != nil {
			break
		}
		if i > 0 {
			total += realism.Score(prev, v)
			count++
		}
		prev = v
	}
	if count == 0 {
		return 100
	}
	return total / float64(count)
}

// calculateSkewness computes sample skewness using the adjusted
// Fisher-Pearson coefficient.
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d
	}
	skewness := sum / n
	correction := math.Sqrt(n*(n-1)) / (n - 2)
	return skewness * correction
}

// calculateKurtosis computes sample kurtosis with bias correction.
func calculateKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d * d
	}
	kurtosis := sum/n - 3
	if n > 3 {
		correction := (n - 1) / ((n - 2) * (n - 3))
		kurtosis = kurtosis*correction + 6/(n+1)
	}
	return kurtosis + 3
}

// testNormality approximates a Shapiro-Wilk-style test from skewness and
// kurtosis via a Chi-squared CDF.
func testNormality(data []float64, skewness, kurtosis float64) (isNormal bool, pValue float64) {
	if len(data) < 3 {
		return false, 1.0
	}
	testStat := math.Abs(skewness) + math.Abs(kurtosis-3)/2
	chiDist := distuv.ChiSquared{K: 2.0}
	pValue = 1 - chiDist.CDF(testStat*testStat)
	isNormal = pValue > 0.05
	return isNormal, pValue
}

// RenderMarkdown writes a human-readable Markdown report, fields ordered as
// given (header order).
func RenderMarkdown(reports []FieldReport) []byte {
	var buf bytes.Buffer
	buf.WriteString("# fieldforge descriptive report\n\n")
	for _, r := range reports {
		fmt.Fprintf(&buf, "## %s\n\n", r.Name)
		if r.SampleCount == 0 {
			buf.WriteString("_no values analyzed for this field_\n\n")
			continue
		}
		fmt.Fprintf(&buf, "- sample size: %d\n", r.SampleCount)
		fmt.Fprintf(&buf, "- length mean/stddev: %.2f / %.2f\n", r.Mean, r.StdDev)
		fmt.Fprintf(&buf, "- length min/median/max: %.0f / %.0f / %.0f\n", r.Min, r.Median, r.Max)
		fmt.Fprintf(&buf, "- skewness/kurtosis: %.3f / %.3f\n", r.Skewness, r.Kurtosis)
		fmt.Fprintf(&buf, "- normal-ish (p=%.3f): %v\n", r.ShapiroP, r.IsNormal)
		fmt.Fprintf(&buf, "- average realism score: %.1f\n\n", r.AvgRealism)
	}
	return buf.Bytes()
}

// RenderHTML converts the Markdown report to HTML via gomarkdown.
func RenderHTML(reports []FieldReport) []byte {
	md := RenderMarkdown(reports)
	return markdown.ToHTML(md, nil, nil)
}
