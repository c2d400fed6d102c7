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

// Package anthropic implements the SUT adapter protocol backed by Claude
// models on the Anthropic API.
package anthropic

import (
	"context"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/asa1997/modelbench"
	"github.com/asa1997/modelbench/secrets"
	"github.com/asa1997/modelbench/sut"
)

// The Messages API requires an explicit output cap; this applies when the
// prompt options leave max tokens unset.
const defaultMaxTokens = 4096

// APIKeySecret describes the credential this adapter needs.
var APIKeySecret = secrets.Description{
	Scope:        "anthropic",
	Key:          "api_key",
	Instructions: "https://console.anthropic.com/settings/keys",
}

var _ modelbench.TextPromptSUT = (*SUT)(nil)

// SUT drives one Claude model through the Messages API. The SDK client is
// created lazily on the first Evaluate call and reused afterwards; a failed
// construction is sticky so later calls fail the same way. Transient-failure
// retry is delegated to the SDK's own bounded retry policy.
type SUT struct {
	uid    string
	model  string
	apiKey string

	clientOnce sync.Once
	client     anthropic.Client
	clientErr  error
}

// New builds the adapter, failing early when the API key is absent.
func New(uid, model string, sec *secrets.Store) (*SUT, error) {
	apiKey, err := sec.Required(APIKeySecret)
	if err != nil {
		return nil, err
	}
	return &SUT{uid: uid, model: model, apiKey: apiKey}, nil
}

// Register registers a constructor for one Claude model.
func Register(r *sut.Registry, uid, model string) error {
	return r.Register(uid, func(ctx context.Context, uid string, sec *secrets.Store) (modelbench.SUT, error) {
		return New(uid, model, sec)
	}, APIKeySecret)
}

func (s *SUT) UID() string {
	return s.uid
}

// TranslateTextPrompt builds the Messages request. Unset options stay unset
// in the params so the API's defaults apply; options the API has no
// equivalent for (presence and frequency penalties) are dropped.
func (s *SUT) TranslateTextPrompt(prompt *modelbench.Prompt) (modelbench.Request, error) {
	if prompt == nil {
		return nil, fmt.Errorf("anthropic: prompt must not be nil")
	}

	params := &anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.Text)),
		},
	}

	opts := prompt.Options
	if opts.MaxTokens != nil {
		params.MaxTokens = int64(*opts.MaxTokens)
	}
	if opts.Temperature != nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}
	if opts.TopP != nil {
		params.TopP = anthropic.Float(*opts.TopP)
	}
	if opts.TopKPerToken != nil {
		params.TopK = anthropic.Int(int64(*opts.TopKPerToken))
	}
	if len(opts.StopSequences) > 0 {
		params.StopSequences = opts.StopSequences
	}
	return params, nil
}

// Evaluate issues the Messages.New call, creating the client on first use.
func (s *SUT) Evaluate(ctx context.Context, request modelbench.Request) (modelbench.Response, error) {
	params, ok := request.(*anthropic.MessageNewParams)
	if !ok {
		return nil, fmt.Errorf("anthropic: unexpected request type %T", request)
	}

	s.clientOnce.Do(func() {
		if s.apiKey == "" {
			s.clientErr = fmt.Errorf("anthropic: API key must be provided")
			return
		}
		s.client = anthropic.NewClient(
			option.WithAPIKey(s.apiKey),
			option.WithMaxRetries(3),
		)
	})
	if s.clientErr != nil {
		return nil, s.clientErr
	}

	msg, err := s.client.Messages.New(ctx, *params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: request to %s failed: %w", s.model, err)
	}
	return msg, nil
}

// TranslateResponse extracts the text blocks from the message. A message
// with no text content is an error, never an empty completion.
func (s *SUT) TranslateResponse(request modelbench.Request, response modelbench.Response) (*modelbench.SUTResponse, error) {
	msg, ok := response.(*anthropic.Message)
	if !ok {
		return nil, fmt.Errorf("anthropic: unexpected response type %T", response)
	}

	var text string
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += v.Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("anthropic: message %s has no text content", msg.ID)
	}

	return &modelbench.SUTResponse{
		Completions: []modelbench.SUTCompletion{{Text: text}},
	}, nil
}
