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
	"bufio"
	"encoding/json"
	"os"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func readJournal(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening journal: %v", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("creating zstd reader: %v", err)
	}
	defer zr.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(zr)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("decoding journal line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning journal: %v", err)
	}
	return entries
}

func TestJournalRoundTrip(t *testing.T) {
	path := JournalPath(t.TempDir(), "test-run")
	j, err := NewJournal(path)
	if err != nil {
		t.Fatalf("NewJournal() failed: %v", err)
	}

	j.Write("run_started", map[string]any{"run_id": "test-run", "suts": []string{"sut-a"}})
	j.Write("pair_complete", map[string]any{"benchmark": "bench-1", "sut": "sut-a"})
	if err := j.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	entries := readJournal(t, path)
	if len(entries) != 2 {
		t.Fatalf("journal has %d entries, want 2", len(entries))
	}
	if entries[0]["message"] != "run_started" || entries[1]["message"] != "pair_complete" {
		t.Errorf("messages = %v, %v, want write order preserved", entries[0]["message"], entries[1]["message"])
	}
	for i, entry := range entries {
		if entry["timestamp"] == "" || entry["timestamp"] == nil {
			t.Errorf("entry %d has no timestamp", i)
		}
	}
	if entries[0]["run_id"] != "test-run" {
		t.Errorf("run_id = %v, want the written field", entries[0]["run_id"])
	}
}

func TestJournalNilSafe(t *testing.T) {
	var j *Journal
	j.Write("ignored", nil)
	if err := j.Close(); err != nil {
		t.Errorf("nil Close() = %v, want nil", err)
	}
}

func TestJournalPath(t *testing.T) {
	got := JournalPath("run/records", "abc-123")
	want := "run/records/journal-run-abc-123.jsonl.zst"
	if got != want {
		t.Errorf("JournalPath() = %q, want %q", got, want)
	}
}
