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

package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixture = `
google_ai:
  api_key: fake-google-key
hugging_face:
  token: hf-fake-token
`

func TestLoadAndRequired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	if err := os.WriteFile(path, []byte(fixture), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got, err := s.Required(Description{Scope: "google_ai", Key: "api_key"})
	if err != nil {
		t.Fatalf("Required() error = %v", err)
	}
	if got != "fake-google-key" {
		t.Errorf("Required() = %q, want %q", got, "fake-google-key")
	}
}

func TestRequiredMissingCarriesInstructions(t *testing.T) {
	s, err := Parse([]byte(fixture))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	desc := Description{
		Scope:        "together",
		Key:          "api_key",
		Instructions: "https://api.together.ai/settings/api-keys",
	}
	_, err = s.Required(desc)

	var missing *MissingSecretError
	if !errors.As(err, &missing) {
		t.Fatalf("Required() error = %v, want MissingSecretError", err)
	}
	if len(missing.Missing) != 1 || missing.Missing[0] != desc {
		t.Errorf("MissingSecretError.Missing = %v, want [%v]", missing.Missing, desc)
	}
	if !strings.Contains(err.Error(), desc.Instructions) {
		t.Errorf("error %q does not include the acquisition instructions", err)
	}
}

func TestOptional(t *testing.T) {
	s, err := Parse([]byte(fixture))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got, ok := s.Optional(Description{Scope: "hugging_face", Key: "token"}); !ok || got != "hf-fake-token" {
		t.Errorf("Optional(present) = %q, %v", got, ok)
	}
	if _, ok := s.Optional(Description{Scope: "absent", Key: "nope"}); ok {
		t.Error("Optional(absent) reported a value")
	}
}

func TestNilStoreIsEmpty(t *testing.T) {
	var s *Store
	if _, ok := s.Optional(Description{Scope: "a", Key: "b"}); ok {
		t.Error("nil store returned a value")
	}
	if _, err := s.Required(Description{Scope: "a", Key: "b"}); err == nil {
		t.Error("nil store Required() succeeded")
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("scope:\n  - not-a-map")); err == nil {
		t.Error("Parse() on malformed YAML succeeded, want error")
	}
}
