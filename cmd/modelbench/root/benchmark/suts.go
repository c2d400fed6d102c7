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

package benchmark

import (
	"github.com/asa1997/modelbench/sut"
	"github.com/asa1997/modelbench/sut/anthropic"
	"github.com/asa1997/modelbench/sut/gemini"
	"github.com/asa1997/modelbench/sut/huggingface"
	"github.com/asa1997/modelbench/sut/openai"
)

// registerSUTs fills the registry with the benchmarkable SUT catalogue.
// Registration is cheap: no constructor runs and no secret is read until a
// UID is actually resolved for a run.
func registerSUTs(r *sut.Registry) error {
	if err := sut.RegisterFake(r); err != nil {
		return err
	}

	for uid, model := range map[string]string{
		"gemini-2.0-flash": "gemini-2.0-flash",
		"gemini-1.5-pro":   "gemini-1.5-pro",
	} {
		if err := gemini.Register(r, uid, model); err != nil {
			return err
		}
	}

	for uid, model := range map[string]string{
		"claude-3-5-sonnet-20241022": "claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022":  "claude-3-5-haiku-20241022",
	} {
		if err := anthropic.Register(r, uid, model); err != nil {
			return err
		}
	}

	for uid, model := range map[string]string{
		"gpt-4o":      "gpt-4o",
		"gpt-4o-mini": "gpt-4o-mini",
	} {
		if err := openai.Register(r, uid, model, ""); err != nil {
			return err
		}
	}

	for uid, model := range map[string]string{
		"olmo-2-1124-7b-instruct-hf": "allenai/OLMo-2-1124-7B-Instruct",
		"qwen2-5-7b-instruct-hf":     "Qwen/Qwen2.5-7B-Instruct",
	} {
		if err := huggingface.Register(r, uid, model); err != nil {
			return err
		}
	}

	return nil
}
