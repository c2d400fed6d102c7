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

// Package externaldata fetches test corpora from remote locations. Each
// source carries its own bounded-backoff retry policy; on success the
// destination file exists and is non-empty, on failure the error names a
// human-readable cause. Writes go through a temp file and rename so a
// half-downloaded corpus is never observed at the destination path.
package externaldata

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/asa1997/modelbench/internal/retrypolicy"
)

// Source fetches one remote object to a local path.
type Source interface {
	// Description names the source for logs and errors.
	Description() string

	// Download fetches the object to dest, retrying transient failures
	// under the source's policy.
	Download(ctx context.Context, dest string) error
}

// WebPolicy is the retry schedule for plain HTTP sources: five attempts
// starting at one second.
func WebPolicy() retrypolicy.Policy {
	return retrypolicy.Policy{
		MaxAttempts:     5,
		InitialInterval: time.Second,
		Multiplier:      2,
	}
}

// DrivePolicy is the retry schedule for Google Drive, which throttles much
// harder than plain web hosts: five attempts starting at fifteen seconds.
func DrivePolicy() retrypolicy.Policy {
	return retrypolicy.Policy{
		MaxAttempts:     5,
		InitialInterval: 15 * time.Second,
		Multiplier:      3,
	}
}

// writeFile streams r to dest via a temp file in the same directory, then
// renames. An empty payload is an error.
func writeFile(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("externaldata: creating %s: %w", filepath.Dir(dest), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("externaldata: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("externaldata: writing %s: %w", dest, err)
	}
	if n == 0 {
		return fmt.Errorf("externaldata: %s downloaded empty", dest)
	}
	return os.Rename(tmp.Name(), dest)
}

// Ensure downloads from src to dest only when dest does not already exist.
func Ensure(ctx context.Context, src Source, dest string) error {
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return nil
	}
	return src.Download(ctx, dest)
}
