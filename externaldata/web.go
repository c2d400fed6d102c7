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

package externaldata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/asa1997/modelbench/internal/retrypolicy"
	"github.com/asa1997/modelbench/secrets"
)

// StatusError reports a non-2xx download status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("externaldata: GET %s returned status %d", e.URL, e.Code)
}

// WebSource downloads over plain HTTP(S). When HeaderSecret is set, the
// named secret is sent as the Authorization header (the way the prompt
// corpus service authenticates downloads).
type WebSource struct {
	URL          string
	HeaderSecret *secrets.Description
	Secrets      *secrets.Store

	// Policy defaults to WebPolicy when zero.
	Policy retrypolicy.Policy

	// Client defaults to http.DefaultClient.
	Client *http.Client
}

func (s *WebSource) Description() string {
	return s.URL
}

func (s *WebSource) Download(ctx context.Context, dest string) error {
	var token string
	if s.HeaderSecret != nil {
		var err error
		token, err = s.Secrets.Required(*s.HeaderSecret)
		if err != nil {
			return err
		}
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	policy := s.Policy
	if policy.MaxAttempts == 0 {
		policy = WebPolicy()
	}
	policy.Retryable = func(err error) bool {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return statusErr.Code == 429 || statusErr.Code >= 500
		}
		return true
	}

	return policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Read and discard so the connection can be reused.
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return &StatusError{URL: s.URL, Code: resp.StatusCode}
		}
		return writeFile(dest, resp.Body)
	})
}

// LocalSource copies a file already on disk, for corpora shipped alongside
// the binary and for tests.
type LocalSource struct {
	Path string
}

func (s *LocalSource) Description() string {
	return s.Path
}

func (s *LocalSource) Download(ctx context.Context, dest string) error {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return fmt.Errorf("externaldata: reading %s: %w", s.Path, err)
	}
	return writeFile(dest, bytes.NewReader(data))
}
