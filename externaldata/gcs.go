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
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSSource downloads one object from a Google Cloud Storage bucket using
// application default credentials.
type GCSSource struct {
	Bucket string
	Object string
}

func (s *GCSSource) Description() string {
	return fmt.Sprintf("gs://%s/%s", s.Bucket, s.Object)
}

func (s *GCSSource) Download(ctx context.Context, dest string) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("externaldata: creating storage client: %w", err)
	}
	defer client.Close()

	policy := WebPolicy()
	policy.Retryable = func(err error) bool {
		// The object not existing will not fix itself by waiting.
		return !errors.Is(err, storage.ErrObjectNotExist)
	}

	return policy.Do(ctx, func() error {
		r, err := client.Bucket(s.Bucket).Object(s.Object).NewReader(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotExist) {
				return fmt.Errorf("externaldata: %s not found in bucket index: %w", s.Description(), err)
			}
			return fmt.Errorf("externaldata: opening %s: %w", s.Description(), err)
		}
		defer r.Close()
		return writeFile(dest, r)
	})
}
