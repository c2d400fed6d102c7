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
	"sync"
	"time"

	"github.com/google/uuid"
	"rsc.io/omap"
	"rsc.io/ordered"

	"github.com/asa1997/modelbench/benchmark"
)

// State is one (benchmark, SUT) pair's position in the run.
type State int

const (
	StatePending State = iota
	StateRunning
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateRunning:
		return "RUNNING"
	case StateComplete:
		return "COMPLETE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// PairResult is the bookkeeping for one (benchmark, SUT) pair. Score is set
// only in StateComplete; Err only in StateFailed.
type PairResult struct {
	BenchmarkUID string
	SUTUID       string
	SUTIndex     int

	State State
	Score *benchmark.Score
	Err   string

	StartedAt  time.Time
	FinishedAt time.Time
}

// Run is the mutable orchestration state for one invocation. Pairs live in
// an ordered map keyed by (benchmark UID, input SUT index), so results read
// back in input order regardless of completion order. Each pair writes a
// disjoint key; the mutex is the run's single synchronization point.
type Run struct {
	ID        string
	StartedAt time.Time

	benchmarks []benchmark.Definition
	sutUIDs    []string

	mu    sync.Mutex
	pairs omap.Map[string, *PairResult]
}

func newRun(id string, benchmarks []benchmark.Definition, sutUIDs []string) *Run {
	if id == "" {
		id = uuid.NewString()
	}
	r := &Run{
		ID:         id,
		StartedAt:  time.Now().UTC(),
		benchmarks: benchmarks,
		sutUIDs:    sutUIDs,
	}
	for _, bench := range benchmarks {
		for i, uid := range sutUIDs {
			r.setPair(&PairResult{
				BenchmarkUID: bench.UID(),
				SUTUID:       uid,
				SUTIndex:     i,
				State:        StatePending,
			})
		}
	}
	return r
}

func pairKey(benchmarkUID string, sutIndex int) string {
	return string(ordered.Encode(benchmarkUID, int64(sutIndex)))
}

func (r *Run) setPair(p *PairResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs.Set(pairKey(p.BenchmarkUID, p.SUTIndex), p)
}

// Benchmarks returns the run's benchmark definitions in input order.
func (r *Run) Benchmarks() []benchmark.Definition {
	return r.benchmarks
}

// SUTUIDs returns the run's SUT UIDs in input order.
func (r *Run) SUTUIDs() []string {
	return r.sutUIDs
}

// Pair returns the result slot for one (benchmark, SUT index) pair.
func (r *Run) Pair(benchmarkUID string, sutIndex int) (*PairResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pairs.Get(pairKey(benchmarkUID, sutIndex))
}

// Pairs returns a benchmark's pair results in input SUT order.
func (r *Run) Pairs(benchmarkUID string) []*PairResult {
	if len(r.sutUIDs) == 0 {
		return nil
	}
	lo := pairKey(benchmarkUID, 0)
	hi := pairKey(benchmarkUID, len(r.sutUIDs)-1)

	r.mu.Lock()
	defer r.mu.Unlock()

	var results []*PairResult
	for _, p := range r.pairs.Scan(lo, hi) {
		results = append(results, p)
	}
	return results
}

// Scores returns a benchmark's completed scores in input SUT order.
func (r *Run) Scores(benchmarkUID string) []*benchmark.Score {
	var scores []*benchmark.Score
	for _, p := range r.Pairs(benchmarkUID) {
		if p.State == StateComplete {
			scores = append(scores, p.Score)
		}
	}
	return scores
}

// Completed counts pairs in StateComplete across all benchmarks.
func (r *Run) Completed() int {
	return r.countState(StateComplete)
}

// Failed counts pairs in StateFailed across all benchmarks.
func (r *Run) Failed() int {
	return r.countState(StateFailed)
}

func (r *Run) countState(s State) int {
	count := 0
	for _, bench := range r.benchmarks {
		for _, p := range r.Pairs(bench.UID()) {
			if p.State == s {
				count++
			}
		}
	}
	return count
}
