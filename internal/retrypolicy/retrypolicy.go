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

// Package retrypolicy wraps fallible calls in a bounded exponential backoff
// schedule. Adapters and data sources compose a Policy around their raw
// network call; callers above them treat the wrapped call as atomic.
package retrypolicy

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes one collaborator's retry behavior: how many attempts, how
// the delay grows, and which errors are worth retrying at all.
type Policy struct {
	// MaxAttempts caps total tries, including the first one.
	MaxAttempts uint

	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// Multiplier grows the delay between consecutive retries.
	Multiplier float64

	// MaxInterval caps the delay between retries. Zero means one minute.
	MaxInterval time.Duration

	// Retryable reports whether an error is transient. A nil predicate
	// treats every error as transient.
	Retryable func(error) bool
}

// Default is the policy most collaborators use: five attempts starting at
// one second.
func Default() Policy {
	return Policy{
		MaxAttempts:     5,
		InitialInterval: time.Second,
		Multiplier:      2,
	}
}

// Do runs op under the policy, sleeping between attempts, until it succeeds,
// exhausts MaxAttempts, hits a non-retryable error, or the context ends. The
// last error is returned unwrapped of any retry bookkeeping.
func (p Policy) Do(ctx context.Context, op func() error) error {
	maxInterval := p.MaxInterval
	if maxInterval == 0 {
		maxInterval = time.Minute
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          p.Multiplier,
		MaxInterval:         maxInterval,
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(p.MaxAttempts))
	return err
}
