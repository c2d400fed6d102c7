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
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asa1997/modelbench/internal/retrypolicy"
	"github.com/asa1997/modelbench/secrets"
)

// fastPolicy keeps retry tests quick.
func fastPolicy(attempts uint) retrypolicy.Policy {
	return retrypolicy.Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		Multiplier:      1,
	}
}

func TestWebSourceDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("corpus bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "corpus.csv")
	src := &WebSource{URL: srv.URL, Policy: fastPolicy(3)}
	if err := src.Download(t.Context(), dest); err != nil {
		t.Fatalf("Download() failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading dest: %v", err)
	}
	if string(data) != "corpus bytes" {
		t.Errorf("downloaded %q, want %q", data, "corpus bytes")
	}
}

func TestWebSourceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("eventually"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "corpus.csv")
	src := &WebSource{URL: srv.URL, Policy: fastPolicy(5)}
	if err := src.Download(t.Context(), dest); err != nil {
		t.Fatalf("Download() failed after transient errors: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestWebSourceNotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "corpus.csv")
	src := &WebSource{URL: srv.URL, Policy: fastPolicy(5)}

	err := src.Download(t.Context(), dest)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("Download() error = %v, want a 404 StatusError", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1, a 404 is not transient", got)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("dest should not exist after a failed download")
	}
}

func TestWebSourceSendsToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	tokenSecret := secrets.Description{Scope: "modellab_files", Key: "token"}
	sec, err := secrets.Parse([]byte("modellab_files:\n  token: tok-123\n"))
	if err != nil {
		t.Fatalf("secrets.Parse() failed: %v", err)
	}

	src := &WebSource{
		URL:          srv.URL,
		HeaderSecret: &tokenSecret,
		Secrets:      sec,
		Policy:       fastPolicy(3),
	}
	if err := src.Download(t.Context(), filepath.Join(t.TempDir(), "c.csv")); err != nil {
		t.Fatalf("Download() failed: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want the bearer token", gotAuth)
	}
}

func TestWebSourceMissingToken(t *testing.T) {
	tokenSecret := secrets.Description{Scope: "modellab_files", Key: "token"}
	src := &WebSource{
		URL:          "https://example.com/corpus",
		HeaderSecret: &tokenSecret,
		Secrets:      secrets.Empty(),
	}

	err := src.Download(t.Context(), filepath.Join(t.TempDir(), "c.csv"))
	var missing *secrets.MissingSecretError
	if !errors.As(err, &missing) {
		t.Fatalf("Download() error = %v, want MissingSecretError before any request", err)
	}
}

func TestWebSourceEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	src := &WebSource{URL: srv.URL, Policy: fastPolicy(2)}
	if err := src.Download(t.Context(), filepath.Join(t.TempDir(), "c.csv")); err == nil {
		t.Fatal("Download() of an empty body should fail")
	}
}

func TestLocalSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src.csv")
	if err := os.WriteFile(path, []byte("local data"), 0644); err != nil {
		t.Fatalf("writing source: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "dest.csv")
	src := &LocalSource{Path: path}
	if err := src.Download(t.Context(), dest); err != nil {
		t.Fatalf("Download() failed: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "local data" {
		t.Errorf("dest = (%q, %v), want the copied file", data, err)
	}
}

func TestEnsureSkipsExisting(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "dest.csv")
	if err := os.WriteFile(dest, []byte("already here"), 0644); err != nil {
		t.Fatalf("seeding dest: %v", err)
	}

	// The missing source path would make Download fail, so a nil error
	// proves Ensure never called it.
	src := &LocalSource{Path: filepath.Join(t.TempDir(), "does-not-exist")}
	if err := Ensure(t.Context(), src, dest); err != nil {
		t.Fatalf("Ensure() with existing dest failed: %v", err)
	}
}
