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
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// Journal records run events as zstd-compressed JSON lines, one object per
// event. It is a single-writer log guarded by a mutex; a nil Journal
// discards everything.
type Journal struct {
	mu  sync.Mutex
	f   *os.File
	zw  *zstd.Encoder
	enc *json.Encoder
}

// JournalPath names the journal file for a run ID inside an output dir.
func JournalPath(dir, runID string) string {
	return fmt.Sprintf("%s/journal-run-%s.jsonl.zst", dir, runID)
}

// NewJournal creates the journal file, truncating any previous one.
func NewJournal(path string) (*Journal, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("runner: creating journal %s: %w", path, err)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("runner: creating journal writer: %w", err)
	}
	return &Journal{f: f, zw: zw, enc: json.NewEncoder(zw)}, nil
}

// Write appends one event. Journal failures are logged, never propagated;
// the journal is diagnostic, not part of the run's correctness.
func (j *Journal) Write(message string, fields map[string]any) {
	if j == nil {
		return
	}

	entry := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["message"] = message

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(entry); err != nil {
		log.Warn().Err(err).Str("message", message).Msg("journal write failed")
	}
}

// Close flushes and closes the journal.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.zw.Close(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}
