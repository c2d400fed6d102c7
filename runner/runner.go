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

// Package runner orchestrates benchmarks across SUTs. Each (benchmark, SUT)
// pair moves PENDING → RUNNING → {COMPLETE, FAILED} independently: a failed
// or hung pair never blocks the others, and results always read back in
// input order regardless of completion order.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/asa1997/modelbench"
	"github.com/asa1997/modelbench/benchmark"
	"github.com/asa1997/modelbench/cache"
	"github.com/asa1997/modelbench/hazard"
	"github.com/asa1997/modelbench/secrets"
	"github.com/asa1997/modelbench/sut"
)

// ErrUsage indicates invalid run inputs, detected before any network
// activity. Callers translate it to a usage-error exit.
var ErrUsage = errors.New("runner: invalid usage")

// Config is used to create a [Runner].
type Config struct {
	// Registry resolves SUT UIDs to constructed instances.
	Registry *sut.Registry

	// Secrets supplies adapter and data-source credentials. Nil means an
	// empty store.
	Secrets *secrets.Store

	// Cache, when set, is consulted before each adapter call and filled
	// after. Cache hits count as real responses.
	Cache *cache.Cache

	// Journal, when set, receives run events.
	Journal *Journal

	// RunID names the run. Empty means a fresh UUID.
	RunID string

	// MaxInstances caps prompts per test by deterministic prefix
	// truncation. Zero means no cap.
	MaxInstances int

	// Parallelism bounds concurrently running pairs. Zero or less means 1.
	Parallelism int

	// ItemParallelism bounds concurrent adapter calls within one test.
	// Zero or less means 1.
	ItemParallelism int

	// RetryFailedTests re-runs a failed test once before counting it as an
	// exception. Off by default.
	RetryFailedTests bool

	// OnPairDone, when set, is called after each pair reaches COMPLETE or
	// FAILED. Called from worker goroutines.
	OnPairDone func(*PairResult)
}

// New creates a new [Runner].
func New(cfg Config) (*Runner, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("runner: registry is required")
	}
	if cfg.Secrets == nil {
		cfg.Secrets = secrets.Empty()
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.ItemParallelism <= 0 {
		cfg.ItemParallelism = 1
	}
	return &Runner{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/asa1997/modelbench/runner"),
	}, nil
}

// Runner drives benchmarks against SUTs and materializes their scores into
// a [Run].
type Runner struct {
	cfg    Config
	tracer trace.Tracer
}

// Run validates its inputs, then scores every (benchmark, SUT) pair.
// Unknown SUT UIDs and benchmarks without hazards fail fast with ErrUsage
// before any network activity. Pair failures are isolated: the returned Run
// carries per-pair state, and the only error returned alongside a started
// run is the context's.
func (r *Runner) Run(ctx context.Context, benchmarks []benchmark.Definition, sutUIDs []string) (*Run, error) {
	if len(benchmarks) == 0 {
		return nil, fmt.Errorf("%w: no benchmarks requested", ErrUsage)
	}
	if len(sutUIDs) == 0 {
		return nil, fmt.Errorf("%w: no SUTs requested", ErrUsage)
	}
	for _, bench := range benchmarks {
		if len(bench.Hazards()) == 0 {
			return nil, fmt.Errorf("%w: benchmark %s has no hazards", ErrUsage, bench.UID())
		}
	}

	// Resolve every SUT up front. Unknown UIDs abort the run; a
	// constructor failure (typically a missing secret) fails only that
	// SUT's pairs and lets the others proceed.
	resolved := make([]modelbench.TextPromptSUT, len(sutUIDs))
	resolveErrs := make([]error, len(sutUIDs))
	for i, uid := range sutUIDs {
		s, err := r.cfg.Registry.Resolve(ctx, uid, r.cfg.Secrets)
		if err != nil {
			if errors.Is(err, sut.ErrUnknownSUT) {
				return nil, fmt.Errorf("%w: %v", ErrUsage, err)
			}
			resolveErrs[i] = err
			continue
		}
		textSUT, ok := s.(modelbench.TextPromptSUT)
		if !ok {
			return nil, fmt.Errorf("%w: SUT %s does not accept text prompts", ErrUsage, uid)
		}
		resolved[i] = textSUT
	}

	run := newRun(r.cfg.RunID, benchmarks, sutUIDs)
	ctx, span := r.tracer.Start(ctx, "modelbench.run",
		trace.WithAttributes(attribute.String("run.id", run.ID)))
	defer span.End()

	log.Info().
		Str("run_id", run.ID).
		Int("benchmarks", len(benchmarks)).
		Int("suts", len(sutUIDs)).
		Msg("run started")
	r.cfg.Journal.Write("run_started", map[string]any{
		"run_id":        run.ID,
		"suts":          sutUIDs,
		"max_instances": r.cfg.MaxInstances,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallelism)
	for _, bench := range benchmarks {
		for i := range sutUIDs {
			bench, i := bench, i
			g.Go(func() error {
				r.runPair(gctx, run, bench, i, resolved[i], resolveErrs[i])
				// Pair failures are recorded, never returned: one pair
				// must not cancel the others.
				return nil
			})
		}
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		r.cfg.Journal.Write("run_cancelled", map[string]any{"run_id": run.ID})
		return run, err
	}

	log.Info().
		Str("run_id", run.ID).
		Int("completed", run.Completed()).
		Int("failed", run.Failed()).
		Msg("run finished")
	r.cfg.Journal.Write("run_finished", map[string]any{
		"run_id":    run.ID,
		"completed": run.Completed(),
		"failed":    run.Failed(),
	})
	return run, nil
}

func (r *Runner) runPair(ctx context.Context, run *Run, bench benchmark.Definition, sutIndex int, s modelbench.TextPromptSUT, resolveErr error) {
	sutUID := run.sutUIDs[sutIndex]
	ctx, span := r.tracer.Start(ctx, "modelbench.pair",
		trace.WithAttributes(
			attribute.String("benchmark.uid", bench.UID()),
			attribute.String("sut.uid", sutUID),
		))
	defer span.End()

	pair := &PairResult{
		BenchmarkUID: bench.UID(),
		SUTUID:       sutUID,
		SUTIndex:     sutIndex,
		State:        StateRunning,
		StartedAt:    time.Now().UTC(),
	}
	run.setPair(pair)
	r.cfg.Journal.Write("pair_started", map[string]any{
		"benchmark": bench.UID(),
		"sut":       sutUID,
	})

	fail := func(err error) {
		log.Warn().
			Str("benchmark", bench.UID()).
			Str("sut", sutUID).
			Err(err).
			Msg("pair failed")
		failed := *pair
		failed.State = StateFailed
		failed.Err = err.Error()
		failed.FinishedAt = time.Now().UTC()
		run.setPair(&failed)
		r.cfg.Journal.Write("pair_failed", map[string]any{
			"benchmark": bench.UID(),
			"sut":       sutUID,
			"error":     err.Error(),
		})
		if r.cfg.OnPairDone != nil {
			r.cfg.OnPairDone(&failed)
		}
	}

	if resolveErr != nil {
		fail(resolveErr)
		return
	}

	hazardScores := make([]*hazard.Score, 0, len(bench.Hazards()))
	var prompted, usable int
	for _, hz := range bench.Hazards() {
		if err := ctx.Err(); err != nil {
			fail(err)
			return
		}

		tests, err := hz.Tests(ctx, r.cfg.Secrets)
		if err != nil {
			fail(fmt.Errorf("constructing tests for %s: %w", hz.UID(), err))
			return
		}

		records := make(map[string]*modelbench.TestRecord, len(tests))
		for _, t := range tests {
			record, err := r.runTest(ctx, s, t)
			if err != nil && r.cfg.RetryFailedTests {
				log.Warn().Str("test", t.UID()).Err(err).Msg("retrying failed test")
				record, err = r.runTest(ctx, s, t)
			}
			if err != nil {
				// The missing record becomes an exception in the hazard
				// score rather than aborting the pair.
				log.Warn().
					Str("test", t.UID()).
					Str("sut", sutUID).
					Err(err).
					Msg("test failed")
				r.cfg.Journal.Write("test_failed", map[string]any{
					"test":  t.UID(),
					"sut":   sutUID,
					"error": err.Error(),
				})
				continue
			}
			records[t.UID()] = record
			prompted += len(record.Items)
			for _, item := range record.Items {
				if item.Err == "" {
					usable++
				}
			}
			r.cfg.Journal.Write("test_finished", map[string]any{
				"test":       t.UID(),
				"sut":        sutUID,
				"items":      len(record.Items),
				"exceptions": record.Exceptions,
			})
		}

		score, err := hz.Score(records)
		if err != nil {
			fail(fmt.Errorf("scoring %s: %w", hz.UID(), err))
			return
		}
		hazardScores = append(hazardScores, score)
	}

	// A SUT that was prompted but never produced one usable response is a
	// failed pair. Hazards whose corpora were unavailable issue no prompts
	// and complete with undefined estimates instead.
	if prompted > 0 && usable == 0 {
		fail(fmt.Errorf("SUT %s produced no usable response over %d prompts", sutUID, prompted))
		return
	}

	now := time.Now().UTC()
	complete := *pair
	complete.State = StateComplete
	complete.FinishedAt = now
	complete.Score = &benchmark.Score{
		BenchmarkUID: bench.UID(),
		SUTUID:       sutUID,
		HazardScores: hazardScores,
		EndTime:      &now,
	}
	run.setPair(&complete)

	log.Info().
		Str("benchmark", bench.UID()).
		Str("sut", sutUID).
		Msg("pair complete")
	r.cfg.Journal.Write("pair_complete", map[string]any{
		"benchmark": bench.UID(),
		"sut":       sutUID,
	})
	if r.cfg.OnPairDone != nil {
		r.cfg.OnPairDone(&complete)
	}
}

// runTest issues a test's prompts against one SUT and assembles the trace.
// Per-item failures are recorded on the item and counted as exceptions;
// only failures to obtain the item list at all fail the test.
func (r *Runner) runTest(ctx context.Context, s modelbench.TextPromptSUT, t modelbench.Test) (*modelbench.TestRecord, error) {
	items, err := t.Items(ctx)
	if err != nil {
		return nil, err
	}
	// Deterministic prefix truncation keeps reduced runs comparable.
	if max := r.cfg.MaxInstances; max > 0 && len(items) > max {
		items = items[:max]
	}

	record := &modelbench.TestRecord{
		TestUID:   t.UID(),
		SUTUID:    s.UID(),
		Items:     make([]modelbench.ItemResult, len(items)),
		StartedAt: time.Now().UTC(),
	}

	g := &errgroup.Group{}
	g.SetLimit(r.cfg.ItemParallelism)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			record.Items[i] = r.runItem(ctx, s, t, item)
			return nil
		})
	}
	g.Wait()

	for _, item := range record.Items {
		if item.Err != "" {
			record.Exceptions++
		}
	}
	record.FinishedAt = time.Now().UTC()
	return record, nil
}

func (r *Runner) runItem(ctx context.Context, s modelbench.TextPromptSUT, t modelbench.Test, item modelbench.TestItem) modelbench.ItemResult {
	result := modelbench.ItemResult{
		ItemID: item.ID,
		Prompt: item.Prompt.Text,
	}

	resp, cached, err := r.evaluate(ctx, s, item.Prompt)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	result.Cached = cached
	result.Response = resp.Completions[0].Text

	passed, err := t.Grade(ctx, item, resp)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	result.Passed = passed
	return result
}

// evaluate drives one prompt through the adapter protocol, consulting the
// cache on the way in and filling it on the way out.
func (r *Runner) evaluate(ctx context.Context, s modelbench.TextPromptSUT, prompt *modelbench.Prompt) (*modelbench.SUTResponse, bool, error) {
	if resp, ok, err := r.cfg.Cache.Get(s.UID(), prompt); err != nil {
		log.Warn().Str("sut", s.UID()).Err(err).Msg("cache read failed")
	} else if ok && resp != nil && len(resp.Completions) > 0 {
		// An entry with no completions is a miss, not a response.
		return resp, true, nil
	}

	req, err := s.TranslateTextPrompt(prompt)
	if err != nil {
		return nil, false, err
	}
	raw, err := s.Evaluate(ctx, req)
	if err != nil {
		return nil, false, err
	}
	resp, err := s.TranslateResponse(req, raw)
	if err != nil {
		return nil, false, err
	}
	if resp == nil || len(resp.Completions) == 0 {
		return nil, false, fmt.Errorf("runner: %s returned no completions", s.UID())
	}

	if err := r.cfg.Cache.Put(s.UID(), prompt, resp); err != nil {
		log.Warn().Str("sut", s.UID()).Err(err).Msg("cache write failed")
	}
	return resp, false, nil
}
