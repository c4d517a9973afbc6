// Command fieldforge trains a per-field statistical model from a tabular
// sample and emits synthetic rows that resemble it, without retaining any
// raw value.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"fieldforge/adapters/archive"
	"fieldforge/adapters/report"
	"fieldforge/adapters/rng"
	"fieldforge/adapters/tabular"
	"fieldforge/domain/pattern"
	"fieldforge/internal/config"
	"fieldforge/internal/obslog"
	"fieldforge/internal/parser"
)

// rngSource is the process-wide ports.RNGPort adapter. Every generating verb
// derives its RNG stream from it, keyed by the verb name, so that "load" and
// "report" run against the same archive never share a draw sequence even
// when invoked with the same --seed.
var rngSource = rng.New()

func newRNG(name string, seed int64) *rand.Rand {
	r, err := rngSource.Stream(context.Background(), name, seed)
	if err != nil {
		// Stream never actually fails for the math/rand-backed adapter; a
		// fresh unmixed source is a safe, deterministic fallback.
		return rand.New(rand.NewSource(seed))
	}
	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := obslog.New(obslog.ParseLevel(cfg.LogLevel), cfg.LogFormat, os.Stderr)

	root := newRootCmd(cfg, log)
	if err := root.Execute(); err != nil {
		code := 1
		var usage *usageErr
		if errors.As(err, &usage) {
			code = 2
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(code)
	}
}

func newRootCmd(cfg *config.Config, log obslog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "fieldforge",
		Short:         "Train a field profiler from tabular data and generate synthetic rows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newAnalyzeCmd(cfg, log),
		newSaveCmd(cfg, log),
		newLoadCmd(cfg, log),
		newReportCmd(cfg, log),
	)
	return root
}

func newAnalyzeCmd(cfg *config.Config, log obslog.Logger) *cobra.Command {
	var seed int64
	cmd := &cobra.Command{
		Use:   "analyze <input> <output> <rows>",
		Short: "Train a Parser from input, then write rows synthetic rows to output",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, output, rowsStr := args[0], args[1], args[2]
			n, err := parseRowCount(rowsStr)
			if err != nil {
				return usageError(err)
			}
			if seed == 0 {
				seed = cfg.Seed
			}

			p, err := trainFromFile(cfg, input)
			if err != nil {
				return err
			}
			log.Info("trained parser", obslog.String("input", input), obslog.Int("fields", len(p.FieldNames())))

			sink, err := tabular.NewCSVSink(output)
			if err != nil {
				return err
			}
			gen := newRNG("analyze", seed)
			if err := p.GenerateTable(gen, n, sink); err != nil {
				return err
			}
			log.Info("wrote synthetic rows", obslog.String("output", output), obslog.Int("rows", n))
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed (defaults to FIELDFORGE_SEED)")
	return cmd
}

func newSaveCmd(cfg *config.Config, log obslog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <input> <archive>",
		Short: "Train a Parser from input and write its archive",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, archivePath := args[0], args[1]
			p, err := trainFromFile(cfg, input)
			if err != nil {
				return err
			}
			data, err := archive.ToArchive(p)
			if err != nil {
				return err
			}
			if err := os.WriteFile(archivePath, data, 0o644); err != nil {
				return fmt.Errorf("write archive %q: %w", archivePath, err)
			}
			log.Info("wrote archive", obslog.String("archive", archivePath))
			return nil
		},
	}
	return cmd
}

func newLoadCmd(cfg *config.Config, log obslog.Logger) *cobra.Command {
	var seed int64
	cmd := &cobra.Command{
		Use:   "load <archive> <output> <rows>",
		Short: "Load a Parser from archive and generate rows rows to output",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			archivePath, output, rowsStr := args[0], args[1], args[2]
			n, err := parseRowCount(rowsStr)
			if err != nil {
				return usageError(err)
			}
			if seed == 0 {
				seed = cfg.Seed
			}

			data, err := os.ReadFile(archivePath)
			if err != nil {
				return fmt.Errorf("read archive %q: %w", archivePath, err)
			}
			classifier := pattern.NewClassifier(cfg.Punctuation)
			p, err := archive.FromArchive(data, classifier)
			if err != nil {
				return err
			}

			sink, err := tabular.NewCSVSink(output)
			if err != nil {
				return err
			}
			gen := newRNG("load", seed)
			if err := p.GenerateTable(gen, n, sink); err != nil {
				return err
			}
			log.Info("wrote synthetic rows from archive", obslog.String("archive", archivePath), obslog.Int("rows", n))
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed (defaults to FIELDFORGE_SEED)")
	return cmd
}

func newReportCmd(cfg *config.Config, log obslog.Logger) *cobra.Command {
	var out string
	var seed int64
	var sampleSize int
	cmd := &cobra.Command{
		Use:   "report <input|archive>",
		Short: "Profile a source or archive and render a descriptive report",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			if seed == 0 {
				seed = cfg.Seed
			}

			var p *parser.Parser
			var err error
			if isArchivePath(source) {
				data, readErr := os.ReadFile(source)
				if readErr != nil {
					return fmt.Errorf("read archive %q: %w", source, readErr)
				}
				classifier := pattern.NewClassifier(cfg.Punctuation)
				p, err = archive.FromArchive(data, classifier)
			} else {
				p, err = trainFromFile(cfg, source)
			}
			if err != nil {
				return err
			}

			gen := newRNG("report", seed)
			reports, err := report.Build(p, gen, sampleSize)
			if err != nil {
				return err
			}

			html := report.RenderHTML(reports)
			if out == "" {
				out = "report.html"
			}
			if err := os.WriteFile(out, html, 0o644); err != nil {
				return fmt.Errorf("write report %q: %w", out, err)
			}
			log.Info("wrote report", obslog.String("out", out))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output path (default report.html)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed (defaults to FIELDFORGE_SEED)")
	cmd.Flags().IntVar(&sampleSize, "samples", 200, "synthetic samples drawn per field for the report")
	return cmd
}

// exactArgs wraps cobra.ExactArgs so a wrong argument count surfaces as a
// usageErr, giving the CLI its exit-code-2 argument-error path.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

func trainFromFile(cfg *config.Config, path string) (*parser.Parser, error) {
	src := tabular.NewSource(path)
	header, rows, err := src.Read()
	if err != nil {
		return nil, err
	}
	classifier := pattern.NewClassifier(cfg.Punctuation)
	p := parser.New(classifier)
	if _, err := p.AnalyzeStream(header, rows, parser.Options{Concurrency: cfg.Concurrency}); err != nil {
		return nil, err
	}
	return p, nil
}

func parseRowCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid row count %q: must be a non-negative integer", s)
	}
	return n, nil
}

func isArchivePath(path string) bool {
	return len(path) > 5 && path[len(path)-5:] == ".json"
}

// usageErr marks an error as an argument/usage problem so main exits with
// code 2 instead of 1.
type usageErr struct{ inner error }

func (e *usageErr) Error() string { return e.inner.Error() }
func (e *usageErr) Unwrap() error { return e.inner }

func usageError(err error) error {
	return &usageErr{inner: err}
}
