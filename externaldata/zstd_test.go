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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestDecompress(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("creating encoder: %v", err)
	}
	if _, err := enc.Write([]byte("id,text\n1,hello\n")); err != nil {
		t.Fatalf("compressing: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing encoder: %v", err)
	}

	path := filepath.Join(t.TempDir(), "corpus.csv.zst")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing compressed file: %v", err)
	}

	out, err := Decompress(path)
	if err != nil {
		t.Fatalf("Decompress() failed: %v", err)
	}
	if !strings.HasSuffix(out, "corpus.csv") {
		t.Errorf("Decompress() = %q, want the .zst suffix trimmed", out)
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "id,text\n1,hello\n" {
		t.Errorf("decompressed = (%q, %v), want the original bytes", data, err)
	}
}

func TestDecompressPassthrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.csv")
	if err := os.WriteFile(path, []byte("plain"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	out, err := Decompress(path)
	if err != nil {
		t.Fatalf("Decompress() failed: %v", err)
	}
	if out != path {
		t.Errorf("Decompress() = %q, want the path unchanged", out)
	}
}
