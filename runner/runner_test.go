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

package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/asa1997/modelbench"
	"github.com/asa1997/modelbench/benchmark"
	"github.com/asa1997/modelbench/cache"
	"github.com/asa1997/modelbench/hazard"
	"github.com/asa1997/modelbench/secrets"
	"github.com/asa1997/modelbench/sut"
)

type testBenchmark struct {
	uid     string
	hazards []hazard.Definition
}

func (b *testBenchmark) UID() string                     { return b.uid }
func (b *testBenchmark) Name() string                    { return "Test Benchmark" }
func (b *testBenchmark) Version() string                 { return "1.0" }
func (b *testBenchmark) Locale() modelbench.Locale       { return modelbench.LocaleEnUS }
func (b *testBenchmark) PromptSet() modelbench.PromptSet { return modelbench.PromptSetPractice }
func (b *testBenchmark) Hazards() []hazard.Definition    { return b.hazards }

func staticItems(n int) []modelbench.TestItem {
	items := make([]modelbench.TestItem, n)
	for i := range items {
		items[i] = modelbench.TestItem{
			ID:     fmt.Sprintf("item-%d", i),
			Prompt: &modelbench.Prompt{Text: fmt.Sprintf("prompt %d", i)},
		}
	}
	return items
}

func passingBenchmark(uid string, items int) *testBenchmark {
	return &testBenchmark{
		uid: uid,
		hazards: []hazard.Definition{
			&hazard.Static{
				HazardUID: uid + "-hazard",
				TestList: []modelbench.Test{
					&hazard.StaticTest{TestUID: uid + "-test", ItemList: staticItems(items)},
				},
			},
		},
	}
}

// registerFakes registers one fake per UID and returns them so tests can
// inspect call counts.
func registerFakes(t *testing.T, r *sut.Registry, uids ...string) map[string]*sut.Fake {
	t.Helper()
	fakes := make(map[string]*sut.Fake, len(uids))
	for _, uid := range uids {
		fake := sut.NewFake(uid, "I cannot help with that.")
		fakes[uid] = fake
		err := r.Register(uid, func(ctx context.Context, uid string, sec *secrets.Store) (modelbench.SUT, error) {
			return fakes[uid], nil
		})
		if err != nil {
			t.Fatalf("Register(%s) failed: %v", uid, err)
		}
	}
	return fakes
}

func newTestRunner(t *testing.T, cfg Config) *Runner {
	t.Helper()
	cfg.Parallelism = 4
	cfg.ItemParallelism = 4
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return r
}

func TestRunCompletesAllPairs(t *testing.T) {
	registry := sut.NewRegistry()
	fakes := registerFakes(t, registry, "sut-a", "sut-b")
	r := newTestRunner(t, Config{Registry: registry})

	bench := passingBenchmark("bench-1", 3)
	run, err := r.Run(t.Context(), []benchmark.Definition{bench}, []string{"sut-a", "sut-b"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if run.Completed() != 2 || run.Failed() != 0 {
		t.Fatalf("completed/failed = %d/%d, want 2/0", run.Completed(), run.Failed())
	}
	for _, uid := range []string{"sut-a", "sut-b"} {
		if got := fakes[uid].Calls(); got != 3 {
			t.Errorf("%s saw %d calls, want 3", uid, got)
		}
	}

	scores := run.Scores(bench.UID())
	if len(scores) != 2 {
		t.Fatalf("got %d scores, want 2", len(scores))
	}
	for _, score := range scores {
		if score.EndTime == nil {
			t.Errorf("score for %s has nil EndTime", score.SUTUID)
		}
		if len(score.HazardScores) != 1 || !score.HazardScores[0].Defined() {
			t.Errorf("score for %s = %+v, want one defined hazard score", score.SUTUID, score.HazardScores)
		}
	}
}

func TestRunIsolatesFailingSUT(t *testing.T) {
	registry := sut.NewRegistry()
	fakes := registerFakes(t, registry, "sut-good", "sut-broken", "sut-also-good")
	fakes["sut-broken"].Err = errors.New("vendor rejects every call")
	r := newTestRunner(t, Config{Registry: registry})

	bench := passingBenchmark("bench-1", 2)
	run, err := r.Run(t.Context(), []benchmark.Definition{bench}, []string{"sut-good", "sut-broken", "sut-also-good"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	// An adapter that never produces a usable response fails its pair
	// without touching the others.
	if run.Completed() != 2 || run.Failed() != 1 {
		t.Fatalf("completed/failed = %d/%d, want 2/1", run.Completed(), run.Failed())
	}
	pair, ok := run.Pair(bench.UID(), 1)
	if !ok || pair.State != StateFailed {
		t.Fatalf("broken pair state = %v, want FAILED", pair)
	}
	if pair.Err == "" {
		t.Error("failed pair carries no error")
	}
	if pair.Score != nil {
		t.Errorf("failed pair carries a score: %+v", pair.Score)
	}

	// The good SUTs are untouched by the broken one.
	for _, idx := range []int{0, 2} {
		pair, _ := run.Pair(bench.UID(), idx)
		if pair.State != StateComplete || !pair.Score.HazardScores[0].Defined() {
			t.Errorf("pair %d = %v, want COMPLETE with a defined estimate", idx, pair.State)
		}
	}
}

func TestRunPartialItemFailuresStayComplete(t *testing.T) {
	registry := sut.NewRegistry()
	registerFakes(t, registry, "sut-a")
	r := newTestRunner(t, Config{Registry: registry})

	bench := &testBenchmark{
		uid: "bench-1",
		hazards: []hazard.Definition{
			&hazard.Static{
				HazardUID: "hazard-1",
				TestList: []modelbench.Test{
					&hazard.StaticTest{
						TestUID:  "test-1",
						ItemList: staticItems(3),
						GradeFunc: func(item modelbench.TestItem, response *modelbench.SUTResponse) (bool, error) {
							if item.ID == "item-1" {
								return false, errors.New("annotator unavailable")
							}
							return true, nil
						},
					},
				},
			},
		},
	}
	run, err := r.Run(t.Context(), []benchmark.Definition{bench}, []string{"sut-a"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	// One bad item is an exception inside a complete pair, not a failure.
	pair, _ := run.Pair(bench.UID(), 0)
	if pair.State != StateComplete {
		t.Fatalf("pair state = %v, want COMPLETE", pair.State)
	}
	hs := pair.Score.HazardScores[0]
	if !hs.Defined() || hs.Estimate.Samples != 2 {
		t.Errorf("hazard score = %+v, want an estimate over the 2 graded items", hs)
	}
	if hs.Exceptions != 1 {
		t.Errorf("exceptions = %d, want 1", hs.Exceptions)
	}
}

func TestRunConstructorFailureFailsOnlyThatSUT(t *testing.T) {
	registry := sut.NewRegistry()
	fakes := registerFakes(t, registry, "sut-good")
	err := registry.Register("sut-secretless", func(ctx context.Context, uid string, sec *secrets.Store) (modelbench.SUT, error) {
		return nil, &secrets.MissingSecretError{Missing: []secrets.Description{{Scope: "vendor", Key: "api_key"}}}
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	r := newTestRunner(t, Config{Registry: registry})

	bench := passingBenchmark("bench-1", 2)
	run, err := r.Run(t.Context(), []benchmark.Definition{bench}, []string{"sut-good", "sut-secretless"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if run.Completed() != 1 || run.Failed() != 1 {
		t.Fatalf("completed/failed = %d/%d, want 1/1", run.Completed(), run.Failed())
	}
	pair, _ := run.Pair(bench.UID(), 1)
	if pair.State != StateFailed || pair.Err == "" {
		t.Errorf("secretless pair = %+v, want FAILED with an error", pair)
	}
	if fakes["sut-good"].Calls() != 2 {
		t.Errorf("sut-good saw %d calls, want 2", fakes["sut-good"].Calls())
	}
}

func TestRunNoUsableTestsYieldsUndefinedEstimates(t *testing.T) {
	registry := sut.NewRegistry()
	registerFakes(t, registry, "sut-a", "sut-b", "sut-c")
	r := newTestRunner(t, Config{Registry: registry})

	bench := &testBenchmark{
		uid: "bench-1",
		hazards: []hazard.Definition{
			&hazard.Static{
				HazardUID: "hazard-unavailable",
				TestList: []modelbench.Test{
					&hazard.StaticTest{TestUID: "test-1", ItemsErr: errors.New("corpus host is down")},
				},
			},
		},
	}
	suts := []string{"sut-a", "sut-b", "sut-c"}
	run, err := r.Run(t.Context(), []benchmark.Definition{bench}, suts)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	scores := run.Scores(bench.UID())
	if len(scores) != len(suts) {
		t.Fatalf("got %d scores, want %d", len(scores), len(suts))
	}
	for _, score := range scores {
		hs := score.HazardScores[0]
		if hs.Estimate != nil {
			t.Errorf("%s estimate = %v, want nil, never a fabricated number", score.SUTUID, hs.Estimate)
		}
		if hs.Exceptions == 0 {
			t.Errorf("%s exceptions = 0, want the unusable test counted", score.SUTUID)
		}
	}
}

func TestRunResultsInInputOrder(t *testing.T) {
	registry := sut.NewRegistry()
	registerFakes(t, registry, "sut-z", "sut-a", "sut-m")
	r := newTestRunner(t, Config{Registry: registry})

	bench := passingBenchmark("bench-1", 1)
	suts := []string{"sut-z", "sut-a", "sut-m"}
	run, err := r.Run(t.Context(), []benchmark.Definition{bench}, suts)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	scores := run.Scores(bench.UID())
	for i, score := range scores {
		if score.SUTUID != suts[i] {
			t.Errorf("scores[%d].SUTUID = %q, want %q, input order", i, score.SUTUID, suts[i])
		}
	}
}

func TestRunHazardScoresInDeclaredOrder(t *testing.T) {
	registry := sut.NewRegistry()
	registerFakes(t, registry, "sut-a")
	r := newTestRunner(t, Config{Registry: registry})

	bench := &testBenchmark{
		uid: "bench-1",
		hazards: []hazard.Definition{
			&hazard.Static{HazardUID: "hazard-A", TestList: []modelbench.Test{
				&hazard.StaticTest{TestUID: "test-A", ItemList: staticItems(4)},
			}},
			&hazard.Static{HazardUID: "hazard-B", TestList: []modelbench.Test{
				&hazard.StaticTest{TestUID: "test-B", ItemList: staticItems(2)},
			}},
		},
	}
	run, err := r.Run(t.Context(), []benchmark.Definition{bench}, []string{"sut-a"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	score := run.Scores(bench.UID())[0]
	if len(score.HazardScores) != 2 {
		t.Fatalf("got %d hazard scores, want 2", len(score.HazardScores))
	}
	if score.HazardScores[0].HazardUID != "hazard-A" || score.HazardScores[1].HazardUID != "hazard-B" {
		t.Errorf("hazard order = %q, %q, want declared order A, B",
			score.HazardScores[0].HazardUID, score.HazardScores[1].HazardUID)
	}
	if score.EndTime == nil {
		t.Error("EndTime is nil, want the completion timestamp")
	}
}

func TestRunMaxInstancesTruncates(t *testing.T) {
	registry := sut.NewRegistry()
	fakes := registerFakes(t, registry, "sut-a")
	r := newTestRunner(t, Config{Registry: registry, MaxInstances: 2})

	bench := passingBenchmark("bench-1", 5)
	run, err := r.Run(t.Context(), []benchmark.Definition{bench}, []string{"sut-a"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if got := fakes["sut-a"].Calls(); got != 2 {
		t.Errorf("sut-a saw %d calls, want the first 2 items only", got)
	}
	hs := run.Scores(bench.UID())[0].HazardScores[0]
	if hs.Estimate.Samples != 2 {
		t.Errorf("Samples = %d, want 2", hs.Estimate.Samples)
	}
}

func TestRunUsageErrors(t *testing.T) {
	registry := sut.NewRegistry()
	fakes := registerFakes(t, registry, "sut-a")
	r := newTestRunner(t, Config{Registry: registry})
	bench := passingBenchmark("bench-1", 1)

	testCases := []struct {
		name       string
		benchmarks []benchmark.Definition
		suts       []string
	}{
		{name: "no benchmarks", benchmarks: nil, suts: []string{"sut-a"}},
		{name: "no suts", benchmarks: []benchmark.Definition{bench}, suts: nil},
		{
			name:       "unknown sut",
			benchmarks: []benchmark.Definition{bench},
			suts:       []string{"sut-a", "sut-unregistered"},
		},
		{
			name:       "benchmark without hazards",
			benchmarks: []benchmark.Definition{&testBenchmark{uid: "empty"}},
			suts:       []string{"sut-a"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Run(t.Context(), tc.benchmarks, tc.suts)
			if !errors.Is(err, ErrUsage) {
				t.Fatalf("Run() error = %v, want ErrUsage", err)
			}
		})
	}

	// Usage errors must be detected before any evaluation happens.
	if got := fakes["sut-a"].Calls(); got != 0 {
		t.Errorf("sut-a saw %d calls, want 0 across all usage errors", got)
	}
}

func TestRunUsesCache(t *testing.T) {
	registry := sut.NewRegistry()
	fakes := registerFakes(t, registry, "sut-a")

	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.sqlite"))
	if err != nil {
		t.Fatalf("cache.Open() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	r := newTestRunner(t, Config{Registry: registry, Cache: c})
	bench := passingBenchmark("bench-1", 3)

	if _, err := r.Run(t.Context(), []benchmark.Definition{bench}, []string{"sut-a"}); err != nil {
		t.Fatalf("first Run() failed: %v", err)
	}
	if got := fakes["sut-a"].Calls(); got != 3 {
		t.Fatalf("first run saw %d calls, want 3", got)
	}

	run, err := r.Run(t.Context(), []benchmark.Definition{bench}, []string{"sut-a"})
	if err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}
	if got := fakes["sut-a"].Calls(); got != 3 {
		t.Errorf("second run grew calls to %d, want all 3 served from cache", got)
	}
	if !run.Scores(bench.UID())[0].HazardScores[0].Defined() {
		t.Error("cached run should still produce a defined estimate")
	}
}

func TestRunTreatsEmptyCacheEntryAsMiss(t *testing.T) {
	registry := sut.NewRegistry()
	fakes := registerFakes(t, registry, "sut-a")

	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.sqlite"))
	if err != nil {
		t.Fatalf("cache.Open() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	bench := passingBenchmark("bench-1", 1)
	// A cached entry with no completions must be re-evaluated, never
	// dereferenced.
	prompt := &modelbench.Prompt{Text: "prompt 0"}
	if err := c.Put("sut-a", prompt, &modelbench.SUTResponse{}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	r := newTestRunner(t, Config{Registry: registry, Cache: c})
	run, err := r.Run(t.Context(), []benchmark.Definition{bench}, []string{"sut-a"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if got := fakes["sut-a"].Calls(); got != 1 {
		t.Errorf("sut-a saw %d calls, want 1 fresh evaluation", got)
	}
	pair, _ := run.Pair(bench.UID(), 0)
	if pair.State != StateComplete || !pair.Score.HazardScores[0].Defined() {
		t.Errorf("pair = %v, want COMPLETE with a defined estimate", pair.State)
	}
}

func TestNewRequiresRegistry(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New() without a registry should fail")
	}
}
