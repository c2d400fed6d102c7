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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/asa1997/modelbench"
	"github.com/asa1997/modelbench/externaldata"
)

// SafeTestUID names the safe test for one hazard key, locale, and prompt
// set, e.g. "safe-dfm-en_us-practice-1.0".
func SafeTestUID(key string, locale modelbench.Locale, promptSet modelbench.PromptSet) string {
	return fmt.Sprintf("safe-%s-%s-%s-%s", key, locale, promptSet, modelbench.Version)
}

var _ modelbench.Test = (*SafeTest)(nil)

// SafeTest is the concrete evaluation procedure behind each v1.0 safe
// hazard: the hazard's slice of the shared prompt corpus, graded through an
// annotator. The corpus is fetched and parsed once on first Items call and
// shared by later calls.
type SafeTest struct {
	uid       string
	key       string
	locale    modelbench.Locale
	promptSet modelbench.PromptSet

	source    externaldata.Source
	dataDir   string
	options   modelbench.SUTOptions
	annotator Annotator

	loadOnce sync.Once
	items    []modelbench.TestItem
	loadErr  error
}

// NewSafeTest builds the safe test for one hazard key. A nil annotator
// falls back to the offline refusal heuristic.
func NewSafeTest(key string, locale modelbench.Locale, promptSet modelbench.PromptSet,
	source externaldata.Source, dataDir string, options modelbench.SUTOptions, annotator Annotator) *SafeTest {
	if annotator == nil {
		annotator = RefusalAnnotator{}
	}
	return &SafeTest{
		uid:       SafeTestUID(key, locale, promptSet),
		key:       key,
		locale:    locale,
		promptSet: promptSet,
		source:    source,
		dataDir:   dataDir,
		options:   options,
		annotator: annotator,
	}
}

func (t *SafeTest) UID() string {
	return t.uid
}

// Items downloads the corpus on first call, decompresses it if needed, and
// returns this hazard's prompts in corpus order.
func (t *SafeTest) Items(ctx context.Context) ([]modelbench.TestItem, error) {
	t.loadOnce.Do(func() {
		t.items, t.loadErr = t.load(ctx)
	})
	return t.items, t.loadErr
}

func (t *SafeTest) load(ctx context.Context) ([]modelbench.TestItem, error) {
	dest := filepath.Join(t.dataDir, fmt.Sprintf("%s_%s_prompts", t.promptSet, t.locale)+corpusExt(t.source.Description()))
	if err := externaldata.Ensure(ctx, t.source, dest); err != nil {
		return nil, fmt.Errorf("hazard: fetching corpus for %s: %w", t.uid, err)
	}
	path, err := externaldata.Decompress(dest)
	if err != nil {
		return nil, fmt.Errorf("hazard: decompressing corpus for %s: %w", t.uid, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hazard: opening corpus: %w", err)
	}
	defer f.Close()

	return t.parse(f)
}

func corpusExt(location string) string {
	if strings.HasSuffix(location, ".zst") {
		return ".csv.zst"
	}
	return ".csv"
}

// parse reads the corpus CSV and keeps this hazard's rows. The corpus
// carries all hazards and locales in one file; rows are matched on the
// hazard column's key prefix and the locale column, case-insensitively.
func (t *SafeTest) parse(r io.Reader) ([]modelbench.TestItem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("hazard: reading corpus header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	minFields := 0
	for _, required := range []string{"release_prompt_id", "prompt_text", "hazard", "locale"} {
		idx, ok := col[required]
		if !ok {
			return nil, fmt.Errorf("hazard: corpus is missing column %q", required)
		}
		if idx+1 > minFields {
			minFields = idx + 1
		}
	}

	var items []modelbench.TestItem
	for rowNum := 2; ; rowNum++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("hazard: reading corpus row: %w", err)
		}
		// The corpus is downloaded data; a ragged row is a parse error, not
		// a panic.
		if len(row) < minFields {
			return nil, fmt.Errorf("hazard: corpus row %d has %d fields, need at least %d", rowNum, len(row), minFields)
		}

		hazardKey := strings.ToLower(strings.TrimSpace(row[col["hazard"]]))
		rowLocale := strings.ToLower(strings.TrimSpace(row[col["locale"]]))
		if !strings.HasPrefix(hazardKey, t.key) || rowLocale != t.locale.String() {
			continue
		}

		items = append(items, modelbench.TestItem{
			ID: row[col["release_prompt_id"]],
			Prompt: &modelbench.Prompt{
				Text:    row[col["prompt_text"]],
				Options: t.options,
			},
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("hazard: corpus has no %s prompts for locale %s", t.key, t.locale)
	}
	return items, nil
}

// Grade judges the first completion through the annotator.
func (t *SafeTest) Grade(ctx context.Context, item modelbench.TestItem, response *modelbench.SUTResponse) (bool, error) {
	if response == nil || len(response.Completions) == 0 {
		return false, fmt.Errorf("hazard: no completions to grade for item %s", item.ID)
	}
	return t.annotator.Annotate(ctx, item.Prompt.Text, response.Completions[0].Text)
}
