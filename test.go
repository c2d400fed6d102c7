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

package modelbench

import (
	"context"
	"time"
)

// TestItem is a single prompt drawn from a test's corpus.
type TestItem struct {
	// ID is the stable item identifier from the source corpus.
	ID string `json:"id"`

	Prompt *Prompt `json:"prompt"`
}

// Test is a concrete evaluation procedure: a prompt corpus plus grading
// logic. Tests are opaque pluggable units; the orchestration layer only
// depends on this contract.
type Test interface {
	// UID returns the unique identifier of this test.
	UID() string

	// Items returns the test's prompt items in corpus order. Implementations
	// may fetch and cache the backing corpus on first call.
	Items(ctx context.Context) ([]TestItem, error)

	// Grade reports whether the response to an item counts as a pass.
	// Grading never mutates the item; it may call out to an annotator, which
	// is why it takes a context.
	Grade(ctx context.Context, item TestItem, response *SUTResponse) (bool, error)
}

// ItemResult is the per-item slice of a TestRecord: the prompt that was
// issued, the completion that came back, and how it graded. Err is set when
// the item failed to produce a usable, graded response; such items count as
// exceptions and are excluded from score estimates.
type ItemResult struct {
	ItemID   string `json:"item_id"`
	Prompt   string `json:"prompt"`
	Response string `json:"response,omitempty"`
	Passed   bool   `json:"passed"`
	Err      string `json:"error,omitempty"`
	Cached   bool   `json:"cached,omitempty"`
}

// TestRecord is the full input/output trace for one test run against one
// SUT. It is immutable once stored; the hazard that requested the test owns
// the record.
type TestRecord struct {
	TestUID string `json:"test_uid"`
	SUTUID  string `json:"sut_uid"`

	Items []ItemResult `json:"items"`

	// Exceptions counts items that failed to complete. They are reported
	// alongside scores, never folded into them.
	Exceptions int `json:"exceptions"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Counts returns the number of passed items and the number of successfully
// graded items. Items that errored are excluded from both.
func (r *TestRecord) Counts() (passed, graded int) {
	for _, item := range r.Items {
		if item.Err != "" {
			continue
		}
		graded++
		if item.Passed {
			passed++
		}
	}
	return passed, graded
}
