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
	"strings"

	"github.com/spf13/cobra"

	"github.com/mibo-ai/mibo-cli/internal/config"
)

// CompleteEnvironments provides completion for --environment flag values.
func CompleteEnvironments(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		return []string{
			"production\tLive traffic",
			"staging\tPre-release testing",
			"development\tLocal development",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompletePIIKeys completes a comma-separated --pii-keys value one key at a
// time, offering the default keys not already listed.
func CompletePIIKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		prefix := ""
		seen := map[string]bool{}
		if i := strings.LastIndex(toComplete, ","); i >= 0 {
			prefix = toComplete[:i+1]
			for _, k := range strings.Split(toComplete[:i], ",") {
				seen[strings.TrimSpace(k)] = true
			}
		}

		var out []string
		for _, k := range strings.Split(config.DefaultPIIKeys, ",") {
			k = strings.TrimSpace(k)
			if k != "" && !seen[k] {
				out = append(out, prefix+k)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	})
}
