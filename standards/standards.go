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

// Package standards holds the calibrated reference values hazard scores are
// compared against. The store is read-only for the lifetime of a run;
// reloading happens only between runs. A separate calibrate workflow writes
// the underlying file, never this package.
package standards

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/asa1997/modelbench"
)

//go:embed standards.json
var embedded []byte

var (
	// ErrNoReferenceValues indicates no reference standard matched the
	// requested locale.
	ErrNoReferenceValues = errors.New("standards: no reference values found")
)

// MissingStandardError indicates a hazard UID with no calibrated reference
// value yet.
type MissingStandardError struct {
	UID string
}

func (e *MissingStandardError) Error() string {
	return fmt.Sprintf("standards: no standard yet for %s, run `modelbench calibrate --update` to add one", e.UID)
}

// document is the on-disk shape: a versioned JSON file with a top-level
// standards.reference_standards mapping.
type document struct {
	Standards struct {
		ReferenceStandards map[string]float64 `json:"reference_standards"`
	} `json:"standards"`
}

// Store holds reference standards keyed by hazard UID. The UID encodes the
// hazard key, locale, and prompt set, e.g.
// "safe_hazard-1.0-dfm-en_us-practice".
type Store struct {
	mu   sync.RWMutex
	path string
	refs map[string]float64
}

// New returns a Store backed by the embedded reference standards.
func New() (*Store, error) {
	s := &Store{}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load returns a Store backed by a standards file on disk.
func Load(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing data. Call it only between runs; during a run
// the store is shared read-only across all workers.
func (s *Store) Reload() error {
	data := embedded
	if s.path != "" {
		var err error
		data, err = os.ReadFile(s.path)
		if err != nil {
			return fmt.Errorf("standards: %w", err)
		}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("standards: parsing %s: %w", s.source(), err)
	}
	if doc.Standards.ReferenceStandards == nil {
		return fmt.Errorf("standards: %s has no standards.reference_standards mapping", s.source())
	}

	s.mu.Lock()
	s.refs = doc.Standards.ReferenceStandards
	s.mu.Unlock()
	return nil
}

func (s *Store) source() string {
	if s.path != "" {
		return s.path
	}
	return "embedded standards"
}

// ReferenceStandardFor returns the calibrated reference value for a hazard
// UID. Unknown UIDs return a MissingStandardError instructing the operator
// to recalibrate.
func (s *Store) ReferenceStandardFor(uid string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.refs[uid]
	if !ok {
		return 0, &MissingStandardError{UID: uid}
	}
	return value, nil
}

// AverageStandardAcrossReferences returns the mean of every reference value
// whose key contains the locale (case-insensitive), used as the locale-level
// bar. Only version "1.0" is defined.
func (s *Store) AverageStandardAcrossReferences(locale modelbench.Locale, version string) (float64, error) {
	if version != modelbench.Version {
		return 0, fmt.Errorf("standards: only version %q is supported, got %q", modelbench.Version, version)
	}
	if locale == "" {
		return 0, fmt.Errorf("standards: locale is required for v%s scoring", version)
	}
	needle := strings.ToLower(locale.String())

	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum float64
	var count int
	for key, value := range s.refs {
		if strings.Contains(strings.ToLower(key), needle) {
			sum += value
			count++
		}
	}
	if count == 0 {
		return 0, fmt.Errorf("%w for locale %s", ErrNoReferenceValues, locale)
	}
	return sum / float64(count), nil
}
