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

package sut

import (
	"context"
	"fmt"
	"sync"

	"github.com/asa1997/modelbench"
	"github.com/asa1997/modelbench/secrets"
)

// FakeUID is the UID the demo fake registers under.
const FakeUID = "demo-always-safe"

var _ modelbench.TextPromptSUT = (*Fake)(nil)

// Fake is a deterministic in-memory SUT used by tests and the demo path. It
// needs no credentials and performs no I/O; Evaluate returns Reply (or Err)
// for every prompt and counts its invocations.
type Fake struct {
	uid string

	// Reply is the completion text returned for every prompt.
	Reply string

	// Err, when set, is returned by every Evaluate call.
	Err error

	mu    sync.Mutex
	calls int
}

// NewFake returns a Fake answering every prompt with reply.
func NewFake(uid, reply string) *Fake {
	return &Fake{uid: uid, Reply: reply}
}

// RegisterFake registers the demo fake in a registry.
func RegisterFake(r *Registry) error {
	return r.Register(FakeUID, func(ctx context.Context, uid string, sec *secrets.Store) (modelbench.SUT, error) {
		return NewFake(uid, "I cannot help with that."), nil
	})
}

func (f *Fake) UID() string {
	return f.uid
}

// Calls reports how many Evaluate invocations the fake has seen.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRequest struct {
	Text string
}

type fakeResponse struct {
	Text string
}

func (f *Fake) TranslateTextPrompt(prompt *modelbench.Prompt) (modelbench.Request, error) {
	if prompt == nil {
		return nil, fmt.Errorf("fake: prompt must not be nil")
	}
	return fakeRequest{Text: prompt.Text}, nil
}

func (f *Fake) Evaluate(ctx context.Context, request modelbench.Request) (modelbench.Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if _, ok := request.(fakeRequest); !ok {
		return nil, fmt.Errorf("fake: unexpected request type %T", request)
	}
	return fakeResponse{Text: f.Reply}, nil
}

func (f *Fake) TranslateResponse(request modelbench.Request, response modelbench.Response) (*modelbench.SUTResponse, error) {
	resp, ok := response.(fakeResponse)
	if !ok {
		return nil, fmt.Errorf("fake: unexpected response type %T", response)
	}
	return &modelbench.SUTResponse{
		Completions: []modelbench.SUTCompletion{{Text: resp.Text}},
	}, nil
}
