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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
)

const docsURL = "https://docs.mibo-ai.com/cli/"

// CommandMetadata describes one command for `mibo help --json`.
type CommandMetadata struct {
	Name        string         `json:"name"`
	Path        string         `json:"path"`
	Short       string         `json:"short"`
	Long        string         `json:"long,omitempty"`
	Usage       string         `json:"usage"`
	Flags       []FlagMetadata `json:"flags,omitempty"`
	Examples    string         `json:"examples,omitempty"`
	Subcommands []string       `json:"subcommands,omitempty"`
	Group       string         `json:"group,omitempty"`
	Aliases     []string       `json:"aliases,omitempty"`
}

type FlagMetadata struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Usage     string `json:"usage"`
	Default   string `json:"default,omitempty"`
	Required  bool   `json:"required"`
}

// HelpResponse carries either the whole command tree (Commands) or a
// single command (Command).
type HelpResponse struct {
	shared.JSONResponse
	Commands    []CommandMetadata `json:"commands,omitempty"`
	Command     *CommandMetadata  `json:"command,omitempty"`
	GlobalFlags []FlagMetadata    `json:"global_flags,omitempty"`
	DocsURL     string            `json:"docs_url"`
}

// NewHelpCommand replaces cobra's help command with one that also speaks JSON.
func NewHelpCommand(rootCmd *cobra.Command) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "help [command]",
		Short: "Help about any command",
		Long: `Help provides detailed information about commands and their usage.

Run 'mibo help' to see all available commands.
Run 'mibo help <command>' to see detailed help for a specific command.
Use --json for machine-readable output, including nested commands such as
'history list'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			useJSON := shared.GetJSON() || jsonOutput

			if len(args) == 0 {
				if useJSON {
					return emitHelp(cmd, rootCmd, "help", &HelpResponse{Commands: commandTree(rootCmd)})
				}
				return rootCmd.Help()
			}

			target, rest, err := rootCmd.Find(args)
			if err == nil && target == rootCmd && len(rest) > 0 {
				err = fmt.Errorf("no such command")
			}
			if err != nil {
				return shared.NewInputError(fmt.Sprintf("unknown command %q", args[0]), err)
			}

			if useJSON {
				meta := describe(target)
				return emitHelp(cmd, rootCmd, "help "+target.CommandPath(), &HelpResponse{Command: &meta})
			}
			return target.Help()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func emitHelp(cmd, rootCmd *cobra.Command, name string, resp *HelpResponse) error {
	resp.JSONResponse = shared.JSONResponse{Version: "1.0", Command: name, Success: true}
	resp.GlobalFlags = visibleFlags(rootCmd.PersistentFlags())
	resp.DocsURL = docsURL
	return shared.EmitJSON(cmd.OutOrStdout(), resp)
}

// commandTree lists every visible command below root, depth first, so
// `history` is followed by `history list` and `history prune`.
func commandTree(root *cobra.Command) []CommandMetadata {
	var out []CommandMetadata
	var walk func(*cobra.Command)
	walk = func(parent *cobra.Command) {
		for _, c := range parent.Commands() {
			if c.Hidden || !c.IsAvailableCommand() {
				continue
			}
			out = append(out, describe(c))
			walk(c)
		}
	}
	walk(root)
	return out
}

func describe(cmd *cobra.Command) CommandMetadata {
	meta := CommandMetadata{
		Name:     cmd.Name(),
		Path:     cmd.CommandPath(),
		Short:    cmd.Short,
		Long:     cmd.Long,
		Usage:    cmd.UseLine(),
		Examples: cmd.Example,
		Aliases:  cmd.Aliases,
		Group:    cmd.GroupID,
		Flags:    visibleFlags(cmd.LocalFlags()),
	}
	for _, sub := range cmd.Commands() {
		if !sub.Hidden {
			meta.Subcommands = append(meta.Subcommands, sub.Name())
		}
	}
	return meta
}

func visibleFlags(fs *pflag.FlagSet) []FlagMetadata {
	var flags []FlagMetadata
	fs.VisitAll(func(flag *pflag.Flag) {
		if flag.Hidden {
			return
		}
		_, required := flag.Annotations[cobra.BashCompOneRequiredFlag]
		flags = append(flags, FlagMetadata{
			Name:      flag.Name,
			Shorthand: flag.Shorthand,
			Usage:     flag.Usage,
			Default:   flag.DefValue,
			Required:  required,
		})
	})
	return flags
}
