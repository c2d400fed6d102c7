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
	_ "embed"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/asa1997/modelbench"
	"github.com/asa1997/modelbench/externaldata"
	"github.com/asa1997/modelbench/secrets"
)

//go:embed corpus.yaml
var embeddedManifest []byte

// CorpusTokenSecret authorizes downloads from the hosted prompt corpus.
var CorpusTokenSecret = secrets.Description{
	Scope:        "modellab_files",
	Key:          "token",
	Instructions: "request a corpus download token from mlcommons.org",
}

// Manifest names the corpus file for each (prompt set, locale) pair and the
// generation options every corpus prompt is issued with.
type Manifest struct {
	// PromptSets maps prompt set -> locale -> location. Locations may be
	// https URLs, gs://bucket/object, drive:<file-id>, or local paths.
	PromptSets map[string]map[string]string

	// Options is the options bag applied to every prompt.
	Options modelbench.SUTOptions
}

// manifestDoc is the YAML shape; the options bag arrives untyped and is
// decoded through mapstructure so operators can write plain scalars.
type manifestDoc struct {
	PromptSets map[string]map[string]string `yaml:"prompt_sets"`
	Options    map[string]any               `yaml:"options"`
}

// DefaultManifest returns the manifest embedded in the binary.
func DefaultManifest() (*Manifest, error) {
	return ParseManifest(embeddedManifest)
}

// ParseManifest builds a Manifest from raw YAML bytes.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc manifestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("hazard: parsing corpus manifest: %w", err)
	}
	if len(doc.PromptSets) == 0 {
		return nil, fmt.Errorf("hazard: corpus manifest has no prompt_sets mapping")
	}

	m := &Manifest{PromptSets: doc.PromptSets}
	if doc.Options != nil {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &m.Options,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(doc.Options); err != nil {
			return nil, fmt.Errorf("hazard: decoding corpus options: %w", err)
		}
	}
	return m, nil
}

// Location returns the corpus location for a prompt set and locale.
func (m *Manifest) Location(promptSet modelbench.PromptSet, locale modelbench.Locale) (string, error) {
	locales, ok := m.PromptSets[promptSet.String()]
	if !ok {
		return "", fmt.Errorf("hazard: corpus manifest has no prompt set %q", promptSet)
	}
	location, ok := locales[locale.String()]
	if !ok {
		return "", fmt.Errorf("hazard: corpus manifest has no %s corpus for locale %s", promptSet, locale)
	}
	return location, nil
}

// SourceFor turns a manifest location into a download source. Web locations
// send the corpus token when the store has one.
func SourceFor(location string, sec *secrets.Store) (externaldata.Source, error) {
	switch {
	case strings.HasPrefix(location, "gs://"):
		rest := strings.TrimPrefix(location, "gs://")
		bucket, object, ok := strings.Cut(rest, "/")
		if !ok {
			return nil, fmt.Errorf("hazard: malformed GCS location %q", location)
		}
		return &externaldata.GCSSource{Bucket: bucket, Object: object}, nil
	case strings.HasPrefix(location, "drive:"):
		return &externaldata.DriveSource{
			FileID:  strings.TrimPrefix(location, "drive:"),
			Secrets: sec,
		}, nil
	case strings.HasPrefix(location, "https://"), strings.HasPrefix(location, "http://"):
		src := &externaldata.WebSource{URL: location, Secrets: sec}
		if _, ok := sec.Optional(CorpusTokenSecret); ok {
			src.HeaderSecret = &CorpusTokenSecret
		}
		return src, nil
	default:
		return &externaldata.LocalSource{Path: location}, nil
	}
}
