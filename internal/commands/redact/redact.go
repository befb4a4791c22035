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

// Package redact implements `mibo redact`, a local preview of PII masking.
package redact

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mibo-ai/mibo-cli/internal/commands/completion"
	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	tracingredact "github.com/mibo-ai/mibo-cli/internal/tracing/redact"
)

// NewCommand creates the redact command.
func NewCommand() *cobra.Command {
	var (
		keys       string
		selectExpr string
		ndjson     bool
	)

	cmd := &cobra.Command{
		Use:   "redact [file|-]",
		Short: "Mask PII fields in records without sending anything",
		Long: `Replace the value of every field whose name exactly matches one of the
given keys with "[REDACTED]", at any depth. Matching is case-sensitive.
Nothing is sent over the network.

Without --keys the pii_keys from the config file are used.`,
		Example: `  mibo redact records.json --keys "email,password"
  cat records.ndjson | mibo redact --ndjson`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := shared.LoadRuntime()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("keys") {
				keys = rt.Config.Trace.PIIKeys
			}

			records, err := shared.ReadRecords(cmd, args, selectExpr)
			if err != nil {
				return err
			}

			keySet := tracingredact.ParseKeys(keys)
			out, masked, err := tracingredact.NewRedactor(keySet).Records(records)
			if err != nil {
				return shared.NewInputError("failed to redact records", err)
			}

			if err := shared.WriteRecords(cmd.OutOrStdout(), out, ndjson); err != nil {
				return err
			}
			if !shared.GetQuiet() {
				fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderOK(
					fmt.Sprintf("%d field(s) redacted in %d record(s)", masked, len(out))))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&keys, "keys", "", "Comma-separated field names to redact (default: config pii_keys)")
	cmd.Flags().StringVar(&selectExpr, "select", "", "jq expression selecting records from each input document")
	cmd.Flags().BoolVar(&ndjson, "ndjson", false, "Print one record per line")
	_ = cmd.RegisterFlagCompletionFunc("keys", completion.CompletePIIKeys)
	return cmd
}
