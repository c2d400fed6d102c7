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

// Package record persists completed benchmark scores as immutable JSON
// artifacts, one file per benchmark UID. Writes are all-or-nothing: the
// record lands via temp file and rename, and a benchmark with no completed
// pair produces no record at all.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/asa1997/modelbench/benchmark"
	"github.com/asa1997/modelbench/runner"
)

// SchemaVersion identifies the record layout.
const SchemaVersion = "1.0"

// ErrNoCompletedPairs indicates a benchmark where every pair failed; such
// benchmarks get no record.
var ErrNoCompletedPairs = errors.New("record: no completed pairs")

// Record is the persisted artifact for one benchmark within one run.
type Record struct {
	SchemaVersion string `json:"schema_version"`
	RunID         string `json:"run_id"`

	BenchmarkUID  string `json:"benchmark_uid"`
	BenchmarkName string `json:"benchmark_name"`
	Version       string `json:"version"`
	Locale        string `json:"locale"`
	PromptSet     string `json:"prompt_set"`

	StartedAt   time.Time `json:"started_at"`
	GeneratedAt time.Time `json:"generated_at"`

	// Scores holds one entry per completed pair, in input SUT order.
	Scores []*benchmark.Score `json:"scores"`
}

// FromRun materializes the record for one of the run's benchmarks. Only
// completed pairs are included; a benchmark with none yields
// ErrNoCompletedPairs.
func FromRun(run *runner.Run, bench benchmark.Definition) (*Record, error) {
	scores := run.Scores(bench.UID())
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w for benchmark %s", ErrNoCompletedPairs, bench.UID())
	}

	return &Record{
		SchemaVersion: SchemaVersion,
		RunID:         run.ID,
		BenchmarkUID:  bench.UID(),
		BenchmarkName: bench.Name(),
		Version:       bench.Version(),
		Locale:        bench.Locale().String(),
		PromptSet:     bench.PromptSet().String(),
		StartedAt:     run.StartedAt,
		GeneratedAt:   time.Now().UTC(),
		Scores:        scores,
	}, nil
}

// Filename names the artifact for a benchmark UID.
func Filename(benchmarkUID string) string {
	return fmt.Sprintf("benchmark_record-%s.json", benchmarkUID)
}

// Write persists the record into dir. The write goes through a temp file in
// the same directory and a rename, so a crash never leaves a partial record
// at the final path.
func (r *Record) Write(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("record: creating %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("record: marshaling record for %s: %w", r.BenchmarkUID, err)
	}

	final := filepath.Join(dir, Filename(r.BenchmarkUID))
	tmp, err := os.CreateTemp(dir, Filename(r.BenchmarkUID)+".tmp-*")
	if err != nil {
		return fmt.Errorf("record: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("record: writing record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("record: closing record: %w", err)
	}
	return os.Rename(tmp.Name(), final)
}

// Load reads a record back from disk.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("record: parsing %s: %w", path, err)
	}
	return &r, nil
}

// Anonymize deterministically replaces SUT UIDs with "sut-<n>" labels. The
// same seed and SUT set always produce the same mapping, so records from
// one run stay cross-referenceable after anonymization.
func (r *Record) Anonymize(seed int64) {
	uidSet := make(map[string]bool)
	for _, score := range r.Scores {
		uidSet[score.SUTUID] = true
	}
	uids := make([]string, 0, len(uidSet))
	for uid := range uidSet {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(uids), func(i, j int) {
		uids[i], uids[j] = uids[j], uids[i]
	})

	mapping := make(map[string]string, len(uids))
	for i, uid := range uids {
		mapping[uid] = fmt.Sprintf("sut-%d", i+1)
	}
	for _, score := range r.Scores {
		score.SUTUID = mapping[score.SUTUID]
	}
}
