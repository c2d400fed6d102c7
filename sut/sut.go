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

// Package sut maps SUT UIDs to constructors and the secrets they need.
// Vendor adapters live in subpackages; each registers a constructor so that
// the runner can resolve the UIDs the operator asked for before any network
// activity happens.
package sut

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/asa1997/modelbench"
	"github.com/asa1997/modelbench/secrets"
)

// ErrUnknownSUT indicates a UID with no registered constructor.
var ErrUnknownSUT = fmt.Errorf("sut: unknown SUT")

// Constructor builds a SUT instance, pulling any credentials it needs from
// the secrets store. Constructors must not perform network I/O; adapters
// defer that to their first Evaluate call.
type Constructor func(ctx context.Context, uid string, sec *secrets.Store) (modelbench.SUT, error)

// Registry manages available SUT constructors by UID.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	construct Constructor
	required  []secrets.Description
}

// NewRegistry creates an empty SUT registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// Register registers a constructor for a UID. Required secret descriptions
// are advisory; MissingSecrets exposes them so operators can be told what to
// provision before a run.
func (r *Registry) Register(uid string, construct Constructor, required ...secrets.Description) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[uid]; exists {
		return fmt.Errorf("sut: constructor already registered for %s", uid)
	}

	r.entries[uid] = entry{construct: construct, required: required}
	return nil
}

// Resolve constructs the SUT registered under uid. Unknown UIDs return
// ErrUnknownSUT; constructors may additionally fail with a
// secrets.MissingSecretError when a required credential is absent.
func (r *Registry) Resolve(ctx context.Context, uid string, sec *secrets.Store) (modelbench.SUT, error) {
	r.mu.RLock()
	e, exists := r.entries[uid]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSUT, uid)
	}
	return e.construct(ctx, uid, sec)
}

// IsRegistered checks whether a constructor exists for a UID.
func (r *Registry) IsRegistered(uid string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.entries[uid]
	return exists
}

// ListUIDs returns all registered UIDs, sorted.
func (r *Registry) ListUIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uids := make([]string, 0, len(r.entries))
	for uid := range r.entries {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// MissingSecrets returns the declared secret descriptions for uid that the
// store cannot satisfy.
func (r *Registry) MissingSecrets(uid string, sec *secrets.Store) []secrets.Description {
	r.mu.RLock()
	e, exists := r.entries[uid]
	r.mu.RUnlock()

	if !exists {
		return nil
	}
	var missing []secrets.Description
	for _, d := range e.required {
		if _, ok := sec.Optional(d); !ok {
			missing = append(missing, d)
		}
	}
	return missing
}

// DefaultRegistry is the registry the stock adapters register into.
var DefaultRegistry = NewRegistry()

// Register registers a constructor in the default registry.
func Register(uid string, construct Constructor, required ...secrets.Description) error {
	return DefaultRegistry.Register(uid, construct, required...)
}
