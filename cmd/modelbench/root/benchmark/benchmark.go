// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package benchmark

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/asa1997/modelbench"
	benchmarks "github.com/asa1997/modelbench/benchmark"
	"github.com/asa1997/modelbench/cache"
	"github.com/asa1997/modelbench/cmd/modelbench/root"
	"github.com/asa1997/modelbench/hazard"
	"github.com/asa1997/modelbench/record"
	"github.com/asa1997/modelbench/runner"
	"github.com/asa1997/modelbench/secrets"
	"github.com/asa1997/modelbench/standards"
	"github.com/asa1997/modelbench/sut"
	"github.com/asa1997/modelbench/telemetry"
)

// ErrNoPairsCompleted means every (benchmark, SUT) pair failed; the command
// exits non-zero without writing any record.
var ErrNoPairsCompleted = errors.New("benchmark: no (benchmark, SUT) pair completed")

type benchmarkFlags struct {
	version         string
	locale          string
	promptSet       string
	suts            []string
	maxInstances    int
	outputDir       string
	anonymize       int64
	secretsPath     string
	dataDir         string
	manifestPath    string
	noCache         bool
	parallelism     int
	itemParallelism int
	retryFailed     bool
	otelToCloud     bool
	debug           bool
}

var Flags benchmarkFlags

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Score SUTs against the general purpose AI chat benchmark.",
	Long: `Runs the versioned safety benchmark against each SUT, grades every
hazard against the calibrated reference standards, and writes one benchmark
record file per benchmark into the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Flags.run(cmd.Context(), cmd.Flags().Changed("anonymize"))
	},
}

func init() {
	root.RootCmd.AddCommand(benchmarkCmd)

	f := benchmarkCmd.Flags()
	f.StringVar(&Flags.version, "version", modelbench.Version, "Benchmark version to run (only 1.0 is supported)")
	f.StringVar(&Flags.locale, "locale", "en_us", "Benchmark locale: en_us, fr_fr, zh_cn, hi_in")
	f.StringVar(&Flags.promptSet, "prompt-set", "practice", "Prompt set: practice or official")
	f.StringArrayVar(&Flags.suts, "sut", nil, "UID of a SUT to benchmark (repeatable)")
	f.IntVarP(&Flags.maxInstances, "max-instances", "m", 0, "Cap prompts per test, 0 means no cap")
	f.StringVar(&Flags.outputDir, "output-dir", "run/records", "Directory for benchmark records and the run journal")
	f.Int64Var(&Flags.anonymize, "anonymize", 0, "Anonymize SUT UIDs in records using this seed")
	f.StringVar(&Flags.secretsPath, "secrets", "config/secrets.yaml", "Path to the secrets file")
	f.StringVar(&Flags.dataDir, "data-dir", "run/data", "Directory for downloaded prompt corpora")
	f.StringVar(&Flags.manifestPath, "corpus-manifest", "", "Override the embedded corpus manifest")
	f.BoolVar(&Flags.noCache, "no-cache", false, "Disable the SUT response cache")
	f.IntVar(&Flags.parallelism, "parallelism", 4, "Concurrently running (benchmark, SUT) pairs")
	f.IntVar(&Flags.itemParallelism, "item-parallelism", 8, "Concurrent prompts per test")
	f.BoolVar(&Flags.retryFailed, "retry-failed-tests", false, "Retry a failed test once before recording it as an exception")
	f.BoolVar(&Flags.otelToCloud, "otel-to-cloud", false, "Export traces to Google Cloud")
	f.BoolVar(&Flags.debug, "debug", false, "Verbose logging")
}

func (f *benchmarkFlags) run(ctx context.Context, anonymize bool) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if f.debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Usage validation happens before anything touches the network.
	if f.version != modelbench.Version {
		return fmt.Errorf("%w: unsupported benchmark version %q, only %s is supported", runner.ErrUsage, f.version, modelbench.Version)
	}
	locale, err := modelbench.ParseLocale(f.locale)
	if err != nil {
		return fmt.Errorf("%w: %v", runner.ErrUsage, err)
	}
	promptSet, err := modelbench.ParsePromptSet(f.promptSet)
	if err != nil {
		return fmt.Errorf("%w: %v", runner.ErrUsage, err)
	}
	if len(f.suts) == 0 {
		return fmt.Errorf("%w: at least one --sut is required", runner.ErrUsage)
	}

	registry := sut.NewRegistry()
	if err := registerSUTs(registry); err != nil {
		return err
	}
	for _, uid := range f.suts {
		if !registry.IsRegistered(uid) {
			return fmt.Errorf("%w: unknown SUT %q, known SUTs: %s",
				runner.ErrUsage, uid, strings.Join(registry.ListUIDs(), ", "))
		}
	}

	sec := secrets.Empty()
	if _, err := os.Stat(f.secretsPath); err == nil {
		sec, err = secrets.Load(f.secretsPath)
		if err != nil {
			return err
		}
	}

	std, err := standards.New()
	if err != nil {
		return err
	}

	corpus := hazard.CorpusConfig{DataDir: f.dataDir}
	if f.manifestPath != "" {
		data, err := os.ReadFile(f.manifestPath)
		if err != nil {
			return fmt.Errorf("reading corpus manifest: %w", err)
		}
		corpus.Manifest, err = hazard.ParseManifest(data)
		if err != nil {
			return err
		}
	}
	bench, err := benchmarks.NewGeneralChatV1(locale, promptSet, corpus)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(f.outputDir, 0755); err != nil {
		return err
	}
	runID := uuid.NewString()
	journal, err := runner.NewJournal(runner.JournalPath(f.outputDir, runID))
	if err != nil {
		return err
	}
	defer journal.Close()

	var respCache *cache.Cache
	if !f.noCache {
		respCache, err = cache.Open(filepath.Join(f.outputDir, "cache.sqlite"))
		if err != nil {
			return err
		}
		defer respCache.Close()
	}

	if f.otelToCloud {
		tel, err := telemetry.New(ctx, telemetry.WithOtelToCloud(true))
		if err != nil {
			return err
		}
		tel.SetGlobalOtelProviders()
		defer tel.Shutdown(context.WithoutCancel(ctx))
	}

	bar := progressbar.Default(int64(len(f.suts)), "scoring pairs")
	r, err := runner.New(runner.Config{
		Registry:         registry,
		Secrets:          sec,
		Cache:            respCache,
		Journal:          journal,
		RunID:            runID,
		MaxInstances:     f.maxInstances,
		Parallelism:      f.parallelism,
		ItemParallelism:  f.itemParallelism,
		RetryFailedTests: f.retryFailed,
		OnPairDone: func(*runner.PairResult) {
			bar.Add(1)
		},
	})
	if err != nil {
		return err
	}

	run, err := r.Run(ctx, []benchmarks.Definition{bench}, f.suts)
	bar.Finish()
	if err != nil {
		return err
	}

	printSummary(run, bench, std, locale)

	rec, err := record.FromRun(run, bench)
	switch {
	case errors.Is(err, record.ErrNoCompletedPairs):
		// No record for a fully failed benchmark.
	case err != nil:
		return err
	default:
		if anonymize {
			rec.Anonymize(f.anonymize)
		}
		if err := rec.Write(f.outputDir); err != nil {
			return err
		}
		fmt.Println("Wrote", filepath.Join(f.outputDir, record.Filename(bench.UID())))
	}

	if run.Completed() == 0 {
		return ErrNoPairsCompleted
	}
	return nil
}

func printSummary(run *runner.Run, bench benchmarks.Definition, std *standards.Store, locale modelbench.Locale) {
	fmt.Println()
	fmt.Println(bench.UID())
	for _, pair := range run.Pairs(bench.UID()) {
		fmt.Printf("  %-40s %s\n", pair.SUTUID, pair.State)
		if pair.State != runner.StateComplete {
			if pair.Err != "" {
				fmt.Printf("    %s\n", pair.Err)
			}
			continue
		}
		for _, hs := range pair.Score.HazardScores {
			if !hs.Defined() {
				fmt.Printf("    %-50s undefined (%d exceptions)\n", hs.HazardUID, hs.Exceptions)
				continue
			}
			line := fmt.Sprintf("%.3f [%.3f, %.3f] over %d samples",
				hs.Estimate.Estimate, hs.Estimate.Lower, hs.Estimate.Upper, hs.Estimate.Samples)
			if grade, err := benchmarks.GradeHazard(hs, std, locale, bench.Version()); err == nil {
				line += ", " + grade.String()
			}
			fmt.Printf("    %-50s %s\n", hs.HazardUID, line)
		}
	}
	fmt.Println()
}
