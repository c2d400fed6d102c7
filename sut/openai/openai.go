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

// Package openai implements the SUT adapter protocol for OpenAI and
// OpenAI-compatible chat-completion endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/asa1997/modelbench"
	"github.com/asa1997/modelbench/internal/retrypolicy"
	"github.com/asa1997/modelbench/secrets"
	"github.com/asa1997/modelbench/sut"
)

// APIKeySecret describes the credential this adapter needs.
var APIKeySecret = secrets.Description{
	Scope:        "openai",
	Key:          "api_key",
	Instructions: "https://platform.openai.com/api-keys",
}

var _ modelbench.TextPromptSUT = (*SUT)(nil)

// SUT drives one model behind a chat-completion endpoint. BaseURL may point
// at any OpenAI-compatible server; empty means api.openai.com. The client is
// created lazily on first Evaluate and reused afterwards.
type SUT struct {
	uid     string
	model   string
	baseURL string
	apiKey  string
	retry   retrypolicy.Policy

	clientOnce sync.Once
	client     *openai.Client
}

// New builds the adapter, failing early when the API key is absent.
func New(uid, model, baseURL string, sec *secrets.Store) (*SUT, error) {
	apiKey, err := sec.Required(APIKeySecret)
	if err != nil {
		return nil, err
	}
	return &SUT{
		uid:     uid,
		model:   model,
		baseURL: baseURL,
		apiKey:  apiKey,
		retry:   transientPolicy(),
	}, nil
}

// Register registers a constructor for one model behind an OpenAI-compatible
// endpoint.
func Register(r *sut.Registry, uid, model, baseURL string) error {
	return r.Register(uid, func(ctx context.Context, uid string, sec *secrets.Store) (modelbench.SUT, error) {
		return New(uid, model, baseURL, sec)
	}, APIKeySecret)
}

func transientPolicy() retrypolicy.Policy {
	p := retrypolicy.Default()
	p.Retryable = func(err error) bool {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
		}
		// Transport-level failures (timeouts, resets) come through as
		// plain errors and are worth retrying.
		return true
	}
	return p
}

func (s *SUT) UID() string {
	return s.uid
}

// TranslateTextPrompt builds the chat-completion request. Unset options keep
// their zero value, which the client omits from the payload, so the server's
// defaults apply. Top-k has no chat-completion equivalent and is dropped.
func (s *SUT) TranslateTextPrompt(prompt *modelbench.Prompt) (modelbench.Request, error) {
	if prompt == nil {
		return nil, fmt.Errorf("openai: prompt must not be nil")
	}

	req := &openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt.Text,
			},
		},
	}

	opts := prompt.Options
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	if opts.Temperature != nil {
		req.Temperature = float32(*opts.Temperature)
	}
	if opts.TopP != nil {
		req.TopP = float32(*opts.TopP)
	}
	if opts.PresencePenalty != nil {
		req.PresencePenalty = float32(*opts.PresencePenalty)
	}
	if opts.FrequencyPenalty != nil {
		req.FrequencyPenalty = float32(*opts.FrequencyPenalty)
	}
	if len(opts.StopSequences) > 0 {
		req.Stop = opts.StopSequences
	}
	return req, nil
}

// Evaluate issues the chat-completion call, retrying transient failures
// under the adapter's policy.
func (s *SUT) Evaluate(ctx context.Context, request modelbench.Request) (modelbench.Response, error) {
	req, ok := request.(*openai.ChatCompletionRequest)
	if !ok {
		return nil, fmt.Errorf("openai: unexpected request type %T", request)
	}

	s.clientOnce.Do(func() {
		cfg := openai.DefaultConfig(s.apiKey)
		if s.baseURL != "" {
			cfg.BaseURL = s.baseURL
		}
		s.client = openai.NewClientWithConfig(cfg)
	})

	var resp openai.ChatCompletionResponse
	err := s.retry.Do(ctx, func() error {
		var err error
		resp, err = s.client.CreateChatCompletion(ctx, *req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("openai: request to %s failed: %w", s.model, err)
	}
	return &resp, nil
}

// TranslateResponse extracts one completion per choice. An empty choice list
// is an error, never a silent empty completion.
func (s *SUT) TranslateResponse(request modelbench.Request, response modelbench.Response) (*modelbench.SUTResponse, error) {
	resp, ok := response.(*openai.ChatCompletionResponse)
	if !ok {
		return nil, fmt.Errorf("openai: unexpected response type %T", response)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: response %s has no choices", resp.ID)
	}

	completions := make([]modelbench.SUTCompletion, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		completions = append(completions, modelbench.SUTCompletion{Text: choice.Message.Content})
	}
	return &modelbench.SUTResponse{Completions: completions}, nil
}
