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
	"fmt"

	"github.com/asa1997/modelbench"
	"github.com/asa1997/modelbench/secrets"
)

// SafeHazardKeysV1 is the fixed v1.0 hazard taxonomy, in benchmark order.
var SafeHazardKeysV1 = []string{
	"vcr", // violent crimes
	"ncr", // non-violent crimes
	"src", // sex-related crimes
	"cse", // child sexual exploitation
	"dfm", // defamation
	"spc", // specialized advice
	"prv", // privacy
	"ipv", // intellectual property violations
	"iwp", // indiscriminate weapons
	"hte", // hate
	"ssh", // suicide and self-harm
	"sxc", // sexual content
}

// CorpusConfig tells a hazard where its test corpus comes from and how to
// grade it.
type CorpusConfig struct {
	// Manifest resolves corpus locations; nil means the embedded default.
	Manifest *Manifest

	// DataDir is where downloaded corpora land.
	DataDir string

	// Annotator grades completions; nil means the refusal heuristic.
	Annotator Annotator
}

var _ Definition = (*SafeHazardV1)(nil)

// SafeHazardV1 is one v1.0 hazard: a hazard key scoped to a locale and
// prompt set, backed by a single safe test over the shared corpus.
type SafeHazardV1 struct {
	key       string
	locale    modelbench.Locale
	promptSet modelbench.PromptSet
	corpus    CorpusConfig
}

// NewSafeHazardV1 builds one hazard definition. The key must be one of
// SafeHazardKeysV1.
func NewSafeHazardV1(key string, locale modelbench.Locale, promptSet modelbench.PromptSet, corpus CorpusConfig) (*SafeHazardV1, error) {
	known := false
	for _, k := range SafeHazardKeysV1 {
		if k == key {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("hazard: unknown v1.0 hazard key %q", key)
	}
	return &SafeHazardV1{key: key, locale: locale, promptSet: promptSet, corpus: corpus}, nil
}

// AllSafeHazardsV1 builds the full v1.0 hazard list for a locale and prompt
// set, in taxonomy order.
func AllSafeHazardsV1(locale modelbench.Locale, promptSet modelbench.PromptSet, corpus CorpusConfig) ([]Definition, error) {
	hazards := make([]Definition, 0, len(SafeHazardKeysV1))
	for _, key := range SafeHazardKeysV1 {
		h, err := NewSafeHazardV1(key, locale, promptSet, corpus)
		if err != nil {
			return nil, err
		}
		hazards = append(hazards, h)
	}
	return hazards, nil
}

// UID encodes the hazard key, locale, and prompt set, matching the keys in
// the standards file.
func (h *SafeHazardV1) UID() string {
	return fmt.Sprintf("safe_hazard-%s-%s-%s-%s", modelbench.Version, h.key, h.locale, h.promptSet)
}

// Key returns the bare taxonomy key, e.g. "dfm".
func (h *SafeHazardV1) Key() string {
	return h.key
}

func (h *SafeHazardV1) TestUIDs() []string {
	return []string{SafeTestUID(h.key, h.locale, h.promptSet)}
}

// Tests constructs the hazard's safe test over the configured corpus.
func (h *SafeHazardV1) Tests(ctx context.Context, sec *secrets.Store) ([]modelbench.Test, error) {
	manifest := h.corpus.Manifest
	if manifest == nil {
		var err error
		manifest, err = DefaultManifest()
		if err != nil {
			return nil, err
		}
	}

	location, err := manifest.Location(h.promptSet, h.locale)
	if err != nil {
		return nil, err
	}
	source, err := SourceFor(location, sec)
	if err != nil {
		return nil, err
	}

	test := NewSafeTest(h.key, h.locale, h.promptSet, source, h.corpus.DataDir, manifest.Options, h.corpus.Annotator)
	return []modelbench.Test{test}, nil
}

// Score aggregates the hazard's test records for one SUT.
func (h *SafeHazardV1) Score(records map[string]*modelbench.TestRecord) (*Score, error) {
	return ScoreRecords(h.UID(), h.TestUIDs(), records)
}
