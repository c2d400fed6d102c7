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

// Package gemini implements the SUT adapter protocol backed by Gemini
// models on the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/asa1997/modelbench"
	"github.com/asa1997/modelbench/internal/retrypolicy"
	"github.com/asa1997/modelbench/secrets"
	"github.com/asa1997/modelbench/sut"
)

// APIKeySecret describes the credential this adapter needs.
var APIKeySecret = secrets.Description{
	Scope:        "google_ai",
	Key:          "api_key",
	Instructions: "https://aistudio.google.com/apikey",
}

var _ modelbench.TextPromptSUT = (*SUT)(nil)

// Request pairs the model name with the translated contents and config so
// that Evaluate stays a pure dispatch of a previously built request.
type Request struct {
	Model    string
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// SUT drives one Gemini model. The genai client is created lazily on the
// first Evaluate call; a failed construction is sticky.
type SUT struct {
	uid    string
	model  string
	apiKey string
	retry  retrypolicy.Policy

	clientOnce sync.Once
	client     *genai.Client
	clientErr  error
}

// New builds the adapter, failing early when the API key is absent.
func New(uid, model string, sec *secrets.Store) (*SUT, error) {
	apiKey, err := sec.Required(APIKeySecret)
	if err != nil {
		return nil, err
	}
	return &SUT{uid: uid, model: model, apiKey: apiKey, retry: retrypolicy.Default()}, nil
}

// Register registers a constructor for one Gemini model.
func Register(r *sut.Registry, uid, model string) error {
	return r.Register(uid, func(ctx context.Context, uid string, sec *secrets.Store) (modelbench.SUT, error) {
		return New(uid, model, sec)
	}, APIKeySecret)
}

func (s *SUT) UID() string {
	return s.uid
}

// TranslateTextPrompt builds the generate-content request. Unset options
// stay nil in the config so the API's defaults apply.
func (s *SUT) TranslateTextPrompt(prompt *modelbench.Prompt) (modelbench.Request, error) {
	if prompt == nil {
		return nil, fmt.Errorf("gemini: prompt must not be nil")
	}

	config := &genai.GenerateContentConfig{}
	opts := prompt.Options
	if opts.MaxTokens != nil {
		config.MaxOutputTokens = int32(*opts.MaxTokens)
	}
	if opts.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*opts.Temperature))
	}
	if opts.TopP != nil {
		config.TopP = genai.Ptr(float32(*opts.TopP))
	}
	if opts.TopKPerToken != nil {
		config.TopK = genai.Ptr(float32(*opts.TopKPerToken))
	}
	if opts.PresencePenalty != nil {
		config.PresencePenalty = genai.Ptr(float32(*opts.PresencePenalty))
	}
	if opts.FrequencyPenalty != nil {
		config.FrequencyPenalty = genai.Ptr(float32(*opts.FrequencyPenalty))
	}
	if len(opts.StopSequences) > 0 {
		config.StopSequences = opts.StopSequences
	}

	return &Request{
		Model:    s.model,
		Contents: genai.Text(prompt.Text),
		Config:   config,
	}, nil
}

// Evaluate issues the generate-content call, creating the client on first
// use and retrying transient failures under the adapter's policy.
func (s *SUT) Evaluate(ctx context.Context, request modelbench.Request) (modelbench.Response, error) {
	req, ok := request.(*Request)
	if !ok {
		return nil, fmt.Errorf("gemini: unexpected request type %T", request)
	}

	s.clientOnce.Do(func() {
		s.client, s.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  s.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if s.clientErr != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", s.clientErr)
	}

	var resp *genai.GenerateContentResponse
	err := s.retry.Do(ctx, func() error {
		var err error
		resp, err = s.client.Models.GenerateContent(ctx, req.Model, req.Contents, req.Config)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: request to %s failed: %w", req.Model, err)
	}
	return resp, nil
}

// TranslateResponse extracts one completion per candidate. Empty candidate
// lists and text-less candidates are errors, never silent empty completions.
func (s *SUT) TranslateResponse(request modelbench.Request, response modelbench.Response) (*modelbench.SUTResponse, error) {
	resp, ok := response.(*genai.GenerateContentResponse)
	if !ok {
		return nil, fmt.Errorf("gemini: unexpected response type %T", response)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: empty response")
	}

	completions := make([]modelbench.SUTCompletion, 0, len(resp.Candidates))
	for i, candidate := range resp.Candidates {
		if candidate.Content == nil {
			return nil, fmt.Errorf("gemini: candidate %d has no content", i)
		}
		var text string
		for _, part := range candidate.Content.Parts {
			text += part.Text
		}
		if text == "" {
			return nil, fmt.Errorf("gemini: candidate %d has no text (finish reason %s)", i, candidate.FinishReason)
		}
		completions = append(completions, modelbench.SUTCompletion{Text: text})
	}

	return &modelbench.SUTResponse{Completions: completions}, nil
}
