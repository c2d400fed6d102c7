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
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Decompress expands a zstd-compressed download next to itself, returning
// the decompressed path. Paths without a .zst suffix are returned unchanged,
// so callers can always hand downloads through this.
func Decompress(path string) (string, error) {
	if !strings.HasSuffix(path, ".zst") {
		return path, nil
	}
	out := strings.TrimSuffix(path, ".zst")

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("externaldata: opening %s: %w", path, err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("externaldata: reading %s: %w", path, err)
	}
	defer dec.Close()

	if err := writeFile(out, dec.IOReadCloser()); err != nil {
		return "", err
	}
	return out, nil
}
