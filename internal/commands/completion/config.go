// Copyright 2025 Tom Barlow
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

package completion

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	"github.com/mibo-ai/mibo-cli/internal/config"
)

// CheckFilePermissions verifies that a file has secure permissions (mode <= 0600).
// Returns true if permissions are acceptable, false if too permissive.
func CheckFilePermissions(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		// Missing files are handled by the config loader.
		return true
	}
	return info.Mode().Perm() <= 0600
}

// LoadConfigForCompletion loads configuration for completion contexts. A
// config file readable by others is refused, since it may hold an API key.
func LoadConfigForCompletion() (*config.Config, error) {
	path := config.ResolvePath(shared.GetConfigPath())
	if path != "" && !CheckFilePermissions(path) {
		return nil, fmt.Errorf("config file %s has insecure permissions", path)
	}
	return config.Load(path)
}

// SafeCompletionWrapper wraps a completion function with panic recovery.
// Returns empty completion list on panic or error.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	results = []string{}
	directive = cobra.ShellCompDirectiveNoFileComp

	defer func() {
		if r := recover(); r != nil {
			results = []string{}
			directive = cobra.ShellCompDirectiveNoFileComp
		}
	}()

	results, directive = fn()
	if results == nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return results, directive
}
