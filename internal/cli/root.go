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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/mibo-ai/mibo-cli/internal/commands/auth"
	"github.com/mibo-ai/mibo-cli/internal/commands/completion"
	configcmd "github.com/mibo-ai/mibo-cli/internal/commands/config"
	"github.com/mibo-ai/mibo-cli/internal/commands/health"
	"github.com/mibo-ai/mibo-cli/internal/commands/history"
	"github.com/mibo-ai/mibo-cli/internal/commands/redact"
	"github.com/mibo-ai/mibo-cli/internal/commands/send"
	"github.com/mibo-ai/mibo-cli/internal/commands/serve"
	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	versioncmd "github.com/mibo-ai/mibo-cli/internal/commands/version"
)

// Command groups shown in help output.
const (
	GroupDelivery = "delivery"
	GroupSetup    = "setup"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command with global flags only.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mibo",
		Short: "Mibo - ship workflow traces to Mibo Testing",
		Long: `mibo delivers batches of workflow records to Mibo Testing as traces.

Each batch becomes one trace: records are optionally stripped of PII, wrapped
with workflow and execution metadata, and sent in a single request. Records
come back annotated with the outcome under "_miboTrace".

Run 'mibo auth login' to store your API key, then 'mibo health' to check it.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	verbose, quiet, json, config := shared.RegisterFlagPointers()

	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to config file (default: ~/.config/mibo/config.yaml)")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	return cmd
}

// NewApp builds the full command tree.
func NewApp() *cobra.Command {
	root := NewRootCommand()
	root.AddGroup(
		&cobra.Group{ID: GroupDelivery, Title: "Delivery Commands:"},
		&cobra.Group{ID: GroupSetup, Title: "Setup Commands:"},
	)

	for _, c := range []*cobra.Command{send.NewCommand(), redact.NewCommand(), serve.NewCommand()} {
		c.GroupID = GroupDelivery
		root.AddCommand(c)
	}
	for _, c := range []*cobra.Command{auth.NewCommand(), configcmd.NewConfigCommand(), health.NewCommand(), history.NewCommand()} {
		c.GroupID = GroupSetup
		root.AddCommand(c)
	}
	root.AddCommand(completion.NewCommand(), versioncmd.NewVersionCommand())

	root.CompletionOptions.DisableDefaultCmd = true
	root.SetHelpCommand(NewHelpCommand(root))
	return root
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
