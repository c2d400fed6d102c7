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

	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/asa1997/modelbench/secrets"
)

// CredentialsSecret holds the service-account JSON used for Drive-hosted
// corpora.
var CredentialsSecret = secrets.Description{
	Scope:        "google_drive",
	Key:          "service_account_json",
	Instructions: "create a service account with read access to the shared corpus folder",
}

// DriveSource downloads one file from Google Drive by file ID, authenticating
// with a service account. Drive throttles aggressively, hence the slower
// DrivePolicy schedule.
type DriveSource struct {
	FileID  string
	Secrets *secrets.Store
}

func (s *DriveSource) Description() string {
	return "drive file " + s.FileID
}

func (s *DriveSource) Download(ctx context.Context, dest string) error {
	credsJSON, err := s.Secrets.Required(CredentialsSecret)
	if err != nil {
		return err
	}

	creds, err := google.CredentialsFromJSON(ctx, []byte(credsJSON), drive.DriveReadonlyScope)
	if err != nil {
		return fmt.Errorf("externaldata: parsing drive credentials: %w", err)
	}
	svc, err := drive.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return fmt.Errorf("externaldata: creating drive service: %w", err)
	}

	policy := DrivePolicy()
	policy.Retryable = func(err error) bool {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return apiErr.Code == 429 || apiErr.Code >= 500
		}
		return true
	}

	return policy.Do(ctx, func() error {
		resp, err := svc.Files.Get(s.FileID).Context(ctx).Download()
		if err != nil {
			if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == 404 {
				return fmt.Errorf("externaldata: %s not found in remote index: %w", s.Description(), err)
			}
			return fmt.Errorf("externaldata: downloading %s: %w", s.Description(), err)
		}
		defer resp.Body.Close()
		return writeFile(dest, resp.Body)
	})
}
