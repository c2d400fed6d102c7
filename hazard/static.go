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

package hazard

import (
	"context"

	"github.com/asa1997/modelbench"
	"github.com/asa1997/modelbench/secrets"
)

var _ Definition = (*Static)(nil)

// Static is a hazard with a fixed in-memory test list, used by the demo
// path and by orchestration tests that need hazards without corpus
// downloads.
type Static struct {
	HazardUID string
	TestList  []modelbench.Test
}

func (h *Static) UID() string {
	return h.HazardUID
}

func (h *Static) TestUIDs() []string {
	uids := make([]string, 0, len(h.TestList))
	for _, t := range h.TestList {
		uids = append(uids, t.UID())
	}
	return uids
}

func (h *Static) Tests(ctx context.Context, sec *secrets.Store) ([]modelbench.Test, error) {
	return h.TestList, nil
}

func (h *Static) Score(records map[string]*modelbench.TestRecord) (*Score, error) {
	return ScoreRecords(h.HazardUID, h.TestUIDs(), records)
}

var _ modelbench.Test = (*StaticTest)(nil)

// StaticTest serves a fixed item list and grades with a fixed function. A
// nil GradeFunc passes everything.
type StaticTest struct {
	TestUID  string
	ItemList []modelbench.TestItem

	// ItemsErr, when set, makes Items fail, simulating an unavailable
	// corpus.
	ItemsErr error

	// GradeFunc judges one item; nil passes everything.
	GradeFunc func(item modelbench.TestItem, response *modelbench.SUTResponse) (bool, error)
}

func (t *StaticTest) UID() string {
	return t.TestUID
}

func (t *StaticTest) Items(ctx context.Context) ([]modelbench.TestItem, error) {
	if t.ItemsErr != nil {
		return nil, t.ItemsErr
	}
	return t.ItemList, nil
}

func (t *StaticTest) Grade(ctx context.Context, item modelbench.TestItem, response *modelbench.SUTResponse) (bool, error) {
	if t.GradeFunc == nil {
		return true, nil
	}
	return t.GradeFunc(item, response)
}
