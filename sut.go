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

package modelbench

import "context"

// Request is a vendor-specific request shape produced by a SUT's
// TranslateTextPrompt. It is opaque to the orchestration layer.
type Request any

// Response is a vendor-specific raw response shape returned by a SUT's
// Evaluate. It is opaque to the orchestration layer.
type Response any

// SUTOptions carries the generation options attached to a Prompt.
// Nil fields are unset and must be omitted from outgoing vendor payloads
// so that vendor defaults apply.
type SUTOptions struct {
	StopSequences    []string `json:"stop_sequences,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	TopKPerToken     *int     `json:"top_k_per_token,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
}

// Prompt is an immutable piece of text plus generation options, produced by
// test corpora and consumed once per evaluation.
type Prompt struct {
	Text    string     `json:"text"`
	Options SUTOptions `json:"options"`
}

// SUTCompletion is one completion extracted from a vendor response.
type SUTCompletion struct {
	Text string `json:"text"`
}

// SUTResponse is the normalized completion list, the only response shape the
// scoring layer understands. It is non-empty unless the adapter returned an
// error instead.
type SUTResponse struct {
	Completions []SUTCompletion `json:"completions"`
}

// SUT is a system under test. Implementations are constructed once per run
// and reused across all hazards and tests in that run; the only mid-run
// mutation permitted is a lazily cached vendor client handle.
type SUT interface {
	// UID returns the unique identifier this SUT is registered under.
	UID() string
}

// TextPromptSUT is the capability implemented by SUTs that accept plain text
// prompts. Each vendor adapter provides the three-step protocol:
//
//	TranslateTextPrompt -> Evaluate -> TranslateResponse
//
// TranslateTextPrompt and TranslateResponse are pure data transforms.
// Evaluate is the only method permitted to perform I/O; it lazily creates
// the vendor client on first use and returns a distinguishable error on
// non-success statuses rather than partial data. Transient-failure retry is
// the adapter's own concern; callers treat an adapter call as atomic.
type TextPromptSUT interface {
	SUT

	// TranslateTextPrompt converts a Prompt into the vendor request shape.
	TranslateTextPrompt(prompt *Prompt) (Request, error)

	// Evaluate performs the network call for a previously translated request.
	Evaluate(ctx context.Context, request Request) (Response, error)

	// TranslateResponse extracts the normalized completions from a raw vendor
	// response. It fails loudly when the vendor shape is missing expected
	// fields instead of defaulting to empty text.
	TranslateResponse(request Request, response Response) (*SUTResponse, error)
}
