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

// Package secrets loads operator credentials from a YAML file and hands
// them to SUT adapters and data sources. A missing required secret is fatal
// for the component that needs it and nothing else.
//
// The file maps scopes to key/value pairs:
//
//	google_ai:
//	  api_key: your-key
//	hugging_face:
//	  token: hf-your-token
package secrets

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Description identifies one secret and tells the operator how to obtain it.
type Description struct {
	Scope        string
	Key          string
	Instructions string
}

func (d Description) String() string {
	return d.Scope + "." + d.Key
}

// MissingSecretError reports required secrets that are absent from the
// store, including acquisition instructions for each.
type MissingSecretError struct {
	Missing []Description
}

func (e *MissingSecretError) Error() string {
	var b strings.Builder
	b.WriteString("secrets: missing required secrets:\n")
	for _, d := range e.Missing {
		fmt.Fprintf(&b, "scope=%q key=%q", d.Scope, d.Key)
		if d.Instructions != "" {
			fmt.Fprintf(&b, " (obtain it at/via: %s)", d.Instructions)
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Store holds raw secret values keyed by scope and key. A nil Store behaves
// as an empty one.
type Store struct {
	values map[string]map[string]string
}

// Load reads a YAML secrets file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	return Parse(data)
}

// Parse builds a Store from raw YAML bytes.
func Parse(data []byte) (*Store, error) {
	values := make(map[string]map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("secrets: parsing secrets file: %w", err)
	}
	return &Store{values: values}, nil
}

// Empty returns a Store with no values, for runs that need none.
func Empty() *Store {
	return &Store{values: map[string]map[string]string{}}
}

// Required returns the value for a secret, or a MissingSecretError carrying
// the description's instructions when the value is absent or blank.
func (s *Store) Required(d Description) (string, error) {
	if value, ok := s.lookup(d); ok {
		return value, nil
	}
	return "", &MissingSecretError{Missing: []Description{d}}
}

// Optional returns the value for a secret and whether it was present.
func (s *Store) Optional(d Description) (string, bool) {
	return s.lookup(d)
}

func (s *Store) lookup(d Description) (string, bool) {
	if s == nil || s.values == nil {
		return "", false
	}
	scope, ok := s.values[d.Scope]
	if !ok {
		return "", false
	}
	value, ok := scope[d.Key]
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
