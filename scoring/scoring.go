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

// Package scoring provides the statistical primitive all benchmark scores
// are built from: a point estimate of a proportion with a two-sided
// confidence interval over a number of Bernoulli trials.
package scoring

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInsufficientSamples indicates an estimate was requested over zero
	// (or negative) trials.
	ErrInsufficientSamples = errors.New("scoring: insufficient samples")

	// ErrInvalidEstimate indicates a proportion outside [0, 1].
	ErrInvalidEstimate = errors.New("scoring: estimate outside [0, 1]")
)

// z97_5 is the normal quantile for a two-sided 95% interval.
const z97_5 = 1.959963984540054

// ValueEstimate is a point estimate with a confidence interval, summarizing
// a proportion of successful outcomes over Samples independent trials.
// Invariant: 0 <= Lower <= Estimate <= Upper <= 1 and Samples >= 1.
// Construct via Make or Combine; never mutate after construction.
type ValueEstimate struct {
	Lower    float64 `json:"lower"`
	Estimate float64 `json:"estimate"`
	Upper    float64 `json:"upper"`
	Samples  int     `json:"samples"`
}

// Make computes a ValueEstimate for a measured proportion over samples
// trials using the Wilson score interval. The interval always contains the
// raw proportion, so the ordering invariant holds without adjustment.
func Make(estimate float64, samples int) (*ValueEstimate, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("%w: got %d trials", ErrInsufficientSamples, samples)
	}
	if estimate < 0 || estimate > 1 || math.IsNaN(estimate) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidEstimate, estimate)
	}

	n := float64(samples)
	z := z97_5
	denom := 1 + z*z/n
	center := (estimate + z*z/(2*n)) / denom
	margin := z / denom * math.Sqrt(estimate*(1-estimate)/n+z*z/(4*n*n))

	return &ValueEstimate{
		Lower:    math.Max(0, center-margin),
		Estimate: estimate,
		Upper:    math.Min(1, center+margin),
		Samples:  samples,
	}, nil
}

// Combine merges estimates into one, weighting each contribution by its
// sample count, and re-derives the interval over the pooled trials.
func Combine(estimates []*ValueEstimate) (*ValueEstimate, error) {
	if len(estimates) == 0 {
		return nil, fmt.Errorf("%w: nothing to combine", ErrInsufficientSamples)
	}

	var weighted float64
	var total int
	for _, e := range estimates {
		if e == nil || e.Samples <= 0 {
			return nil, fmt.Errorf("%w: combine requires sampled estimates", ErrInsufficientSamples)
		}
		weighted += e.Estimate * float64(e.Samples)
		total += e.Samples
	}

	return Make(weighted/float64(total), total)
}

// String renders the estimate for logs, e.g. "0.812 [0.790, 0.835] n=1250".
func (e *ValueEstimate) String() string {
	return fmt.Sprintf("%.3f [%.3f, %.3f] n=%d", e.Estimate, e.Lower, e.Upper, e.Samples)
}
