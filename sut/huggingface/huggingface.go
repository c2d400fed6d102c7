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

// Package huggingface implements the SUT adapter protocol for models served
// by the Hugging Face serverless inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/asa1997/modelbench"
	"github.com/asa1997/modelbench/internal/retrypolicy"
	"github.com/asa1997/modelbench/secrets"
	"github.com/asa1997/modelbench/sut"
)

const defaultBaseURL = "https://api-inference.huggingface.co/models"

// TokenSecret describes the credential this adapter needs.
var TokenSecret = secrets.Description{
	Scope:        "hugging_face",
	Key:          "token",
	Instructions: "https://huggingface.co/settings/tokens",
}

// StatusError is returned by Evaluate on a non-2xx API status, carrying the
// status code and response body so callers can tell failures apart.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("huggingface: status %d: %s", e.Code, e.Body)
}

// Request is the text-generation payload. Unset parameters carry nil
// pointers and are omitted from the JSON so the service's defaults apply.
type Request struct {
	Inputs     string      `json:"inputs"`
	Parameters *Parameters `json:"parameters,omitempty"`
}

// Parameters mirrors the text-generation options the service accepts.
type Parameters struct {
	MaxNewTokens      *int     `json:"max_new_tokens,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	TopK              *int     `json:"top_k,omitempty"`
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty"`
	Stop              []string `json:"stop,omitempty"`
	ReturnFullText    bool     `json:"return_full_text"`
}

// generation is one element of the response array.
type generation struct {
	GeneratedText *string `json:"generated_text"`
}

var _ modelbench.TextPromptSUT = (*SUT)(nil)

// SUT drives one model through the serverless inference endpoint. The HTTP
// client is created lazily on first Evaluate; 503 responses (model cold
// start) and other transient statuses are retried under the adapter policy.
type SUT struct {
	uid     string
	model   string
	baseURL string
	token   string
	retry   retrypolicy.Policy

	clientOnce sync.Once
	client     *http.Client
}

// New builds the adapter, failing early when the token is absent.
func New(uid, model string, sec *secrets.Store) (*SUT, error) {
	token, err := sec.Required(TokenSecret)
	if err != nil {
		return nil, err
	}
	return &SUT{
		uid:     uid,
		model:   model,
		baseURL: defaultBaseURL,
		token:   token,
		retry:   transientPolicy(),
	}, nil
}

// Register registers a constructor for one serverless-inference model.
func Register(r *sut.Registry, uid, model string) error {
	return r.Register(uid, func(ctx context.Context, uid string, sec *secrets.Store) (modelbench.SUT, error) {
		return New(uid, model, sec)
	}, TokenSecret)
}

func transientPolicy() retrypolicy.Policy {
	p := retrypolicy.Default()
	p.Retryable = func(err error) bool {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return statusErr.Code == 429 || statusErr.Code >= 500
		}
		return true
	}
	return p
}

func (s *SUT) UID() string {
	return s.uid
}

// TranslateTextPrompt builds the text-generation payload. Unset options are
// omitted entirely; presence penalty has no equivalent here and is dropped,
// frequency penalty maps to repetition penalty.
func (s *SUT) TranslateTextPrompt(prompt *modelbench.Prompt) (modelbench.Request, error) {
	if prompt == nil {
		return nil, fmt.Errorf("huggingface: prompt must not be nil")
	}

	req := &Request{Inputs: prompt.Text}
	opts := prompt.Options
	if opts.MaxTokens != nil || opts.Temperature != nil || opts.TopP != nil ||
		opts.TopKPerToken != nil || opts.FrequencyPenalty != nil || len(opts.StopSequences) > 0 {
		req.Parameters = &Parameters{
			MaxNewTokens:      opts.MaxTokens,
			Temperature:       opts.Temperature,
			TopP:              opts.TopP,
			TopK:              opts.TopKPerToken,
			RepetitionPenalty: opts.FrequencyPenalty,
			Stop:              opts.StopSequences,
		}
	}
	return req, nil
}

// Evaluate POSTs the payload to the model endpoint. Non-2xx statuses become
// a StatusError rather than silently returning partial data.
func (s *SUT) Evaluate(ctx context.Context, request modelbench.Request) (modelbench.Response, error) {
	req, ok := request.(*Request)
	if !ok {
		return nil, fmt.Errorf("huggingface: unexpected request type %T", request)
	}

	s.clientOnce.Do(func() {
		s.client = &http.Client{Timeout: 2 * time.Minute}
	})

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("huggingface: encoding request: %w", err)
	}
	url := s.baseURL + "/" + s.model

	var body []byte
	err = s.retry.Do(ctx, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{Code: resp.StatusCode, Body: string(body)}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("huggingface: request to %s failed: %w", s.model, err)
	}
	return body, nil
}

// TranslateResponse decodes the generation array. A missing generated_text
// field is an error, never a silent empty completion.
func (s *SUT) TranslateResponse(request modelbench.Request, response modelbench.Response) (*modelbench.SUTResponse, error) {
	body, ok := response.([]byte)
	if !ok {
		return nil, fmt.Errorf("huggingface: unexpected response type %T", response)
	}

	var generations []generation
	if err := json.Unmarshal(body, &generations); err != nil {
		return nil, fmt.Errorf("huggingface: decoding response: %w", err)
	}
	if len(generations) == 0 {
		return nil, fmt.Errorf("huggingface: response has no generations")
	}

	completions := make([]modelbench.SUTCompletion, 0, len(generations))
	for i, g := range generations {
		if g.GeneratedText == nil {
			return nil, fmt.Errorf("huggingface: generation %d is missing generated_text", i)
		}
		completions = append(completions, modelbench.SUTCompletion{Text: *g.GeneratedText})
	}
	return &modelbench.SUTResponse{Completions: completions}, nil
}
