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

// Package modelbench defines the shared contracts for benchmarking AI
// systems under test (SUTs) against safety and behavior hazards.
//
// # Core Concepts
//
// SUT: a system under test, addressed by a unique UID and driven through a
// uniform translate-evaluate-translate protocol
//
// Prompt: immutable text plus a generation options bag; unset options are
// omitted from vendor payloads so vendor defaults apply
//
// Test: a concrete evaluation procedure (a prompt corpus plus grading logic)
// producing a TestRecord per SUT
//
// TestRecord: the full input/output trace for one test run against one SUT,
// including per-item grades and an exception count
//
// Hazards, benchmarks, scoring, and orchestration are built on these
// contracts by the hazard, benchmark, scoring, and runner packages. Vendor
// adapters live under sut/.
package modelbench
