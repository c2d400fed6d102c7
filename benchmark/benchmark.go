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

// Package benchmark defines benchmark definitions (fixed, versioned,
// locale-scoped hazard lists) and the scores they produce per SUT.
package benchmark

import (
	"fmt"
	"time"

	"github.com/asa1997/modelbench"
	"github.com/asa1997/modelbench/hazard"
)

// Definition is a fixed, versioned, locale- and prompt-set-scoped list of
// hazards. The hazard list is immutable after construction; its order is
// the order scores are reported in.
type Definition interface {
	// UID identifies the benchmark, scoped to version, locale, and prompt
	// set.
	UID() string

	// Name is the human-readable benchmark name.
	Name() string

	Version() string
	Locale() modelbench.Locale
	PromptSet() modelbench.PromptSet

	// Hazards returns the owned hazard definitions in declared order.
	Hazards() []hazard.Definition
}

// Score is the outcome of one benchmark against one SUT: one hazard score
// per declared hazard, in declared order. EndTime is nil while the pair is
// still running.
type Score struct {
	BenchmarkUID string          `json:"benchmark_uid"`
	SUTUID       string          `json:"sut_uid"`
	HazardScores []*hazard.Score `json:"hazard_scores"`
	EndTime      *time.Time      `json:"end_time"`
}

var _ Definition = (*GeneralChatV1)(nil)

// GeneralChatV1 is the 1.0 general-purpose AI chat benchmark: the full safe
// hazard taxonomy for one locale and prompt set.
type GeneralChatV1 struct {
	locale    modelbench.Locale
	promptSet modelbench.PromptSet
	hazards   []hazard.Definition
}

// NewGeneralChatV1 builds the benchmark for a locale and prompt set.
func NewGeneralChatV1(locale modelbench.Locale, promptSet modelbench.PromptSet, corpus hazard.CorpusConfig) (*GeneralChatV1, error) {
	hazards, err := hazard.AllSafeHazardsV1(locale, promptSet, corpus)
	if err != nil {
		return nil, err
	}
	return &GeneralChatV1{locale: locale, promptSet: promptSet, hazards: hazards}, nil
}

func (b *GeneralChatV1) UID() string {
	return fmt.Sprintf("general_purpose_ai_chat_benchmark-%s-%s-%s", modelbench.Version, b.locale, b.promptSet)
}

func (b *GeneralChatV1) Name() string {
	return "General Purpose AI Chat Benchmark"
}

func (b *GeneralChatV1) Version() string {
	return modelbench.Version
}

func (b *GeneralChatV1) Locale() modelbench.Locale {
	return b.locale
}

func (b *GeneralChatV1) PromptSet() modelbench.PromptSet {
	return b.promptSet
}

func (b *GeneralChatV1) Hazards() []hazard.Definition {
	return b.hazards
}
