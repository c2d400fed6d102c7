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

package root

import (
	"context"

	"github.com/spf13/cobra"
)

// RootCmd is the modelbench command root. Subcommands attach themselves in
// their init functions.
var RootCmd = &cobra.Command{
	Use:   "modelbench",
	Short: "Score AI systems against safety benchmarks.",
	Long: `modelbench runs versioned safety benchmarks against AI systems under
test and writes the scores as benchmark record files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns the command's error for the caller to
// map onto an exit code.
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}
