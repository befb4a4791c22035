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

// Package send implements `mibo send`.
package send

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mibo-ai/mibo-cli/internal/commands/completion"
	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	"github.com/mibo-ai/mibo-cli/internal/config"
	"github.com/mibo-ai/mibo-cli/internal/delivery"
	"github.com/mibo-ai/mibo-cli/internal/trace"
)

type options struct {
	workflowID   string
	workflowName string
	executionID  string

	platformID       string
	externalID       string
	serverURL        string
	timeout          int
	cleanPII         bool
	piiKeys          string
	includeMetadata  bool
	environment      string
	metadataVersion  string
	additionalFields string
	continueOnFail   bool

	selectExpr string
	ndjson     bool
	dryRun     bool
}

// NewCommand creates the send command.
func NewCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "send [file|-]",
		Short: "Send a batch of records to Mibo Testing",
		Long: `Read JSON records from a file or stdin, optionally redact PII fields,
deliver them as one trace and print every record annotated with _miboTrace.

Input may be a JSON array of objects, a single object, or a stream of
newline-delimited objects. Use --select to pick records out of a larger
document with a jq expression.`,
		Example: `  mibo send records.json --workflow-id wf-1 --workflow-name "Checkout"
  cat records.ndjson | mibo send --clean-pii --pii-keys "email,ssn"
  mibo send response.json --select '.items[]' --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.workflowID, "workflow-id", "", "Workflow identifier (default \"unknown\")")
	f.StringVar(&opts.workflowName, "workflow-name", "", "Workflow display name (default \"Unnamed Workflow\")")
	f.StringVar(&opts.executionID, "execution-id", "", "Execution identifier (default: a new UUID)")
	f.StringVar(&opts.platformID, "platform-id", "", "Mibo platform identifier")
	f.StringVar(&opts.externalID, "external-id", "", "External identifier for the batch")
	f.StringVar(&opts.serverURL, "server-url", "", "Override the collector URL")
	f.IntVar(&opts.timeout, "timeout", 0, "Request timeout in seconds")
	f.BoolVar(&opts.cleanPII, "clean-pii", false, "Redact PII fields before sending")
	f.StringVar(&opts.piiKeys, "pii-keys", "", "Comma-separated field names to redact")
	f.BoolVar(&opts.includeMetadata, "include-metadata", false, "Include environment, version and additional fields")
	f.StringVar(&opts.environment, "environment", "", "Metadata environment")
	f.StringVar(&opts.metadataVersion, "metadata-version", "", "Metadata version")
	f.StringVar(&opts.additionalFields, "additional-fields", "", "Extra metadata as a JSON object")
	f.BoolVar(&opts.continueOnFail, "continue-on-fail", false, "Annotate records instead of failing when delivery fails")
	f.StringVar(&opts.selectExpr, "select", "", "jq expression selecting records from each input document")
	f.BoolVar(&opts.ndjson, "ndjson", false, "Print one record per line")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Print the trace payload instead of sending it")

	_ = cmd.RegisterFlagCompletionFunc("workflow-id", completion.CompleteWorkflowIDs)
	_ = cmd.RegisterFlagCompletionFunc("pii-keys", completion.CompletePIIKeys)
	_ = cmd.RegisterFlagCompletionFunc("environment", completion.CompleteEnvironments)

	return cmd
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet, opts *options) error {
	if flags.Changed("server-url") {
		cfg.Options.ServerURL = opts.serverURL
	}
	if flags.Changed("platform-id") {
		cfg.Trace.PlatformID = opts.platformID
	}
	if flags.Changed("external-id") {
		cfg.Trace.ExternalID = opts.externalID
	}
	if flags.Changed("timeout") {
		cfg.Options.Timeout = opts.timeout
	}
	if flags.Changed("clean-pii") {
		cfg.Trace.CleanPII = opts.cleanPII
	}
	if flags.Changed("pii-keys") {
		cfg.Trace.PIIKeys = opts.piiKeys
	}
	if flags.Changed("include-metadata") {
		cfg.Trace.IncludeMetadata = opts.includeMetadata
	}
	if flags.Changed("environment") {
		cfg.Trace.Metadata.Environment = opts.environment
	}
	if flags.Changed("metadata-version") {
		cfg.Trace.Metadata.Version = opts.metadataVersion
	}
	if flags.Changed("additional-fields") {
		cfg.Trace.Metadata.AdditionalFields = opts.additionalFields
	}
	if flags.Changed("continue-on-fail") {
		cfg.Options.ContinueOnFail = opts.continueOnFail
	}
	return cfg.Validate()
}

func run(cmd *cobra.Command, args []string, opts *options) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := shared.LoadRuntime()
	if err != nil {
		return err
	}
	if err := applyFlags(rt.Config, cmd.Flags(), opts); err != nil {
		return shared.NewConfigurationExitError(err)
	}

	records, err := shared.ReadRecords(cmd, args, opts.selectExpr)
	if err != nil {
		return err
	}

	executionID := opts.executionID
	if executionID == "" {
		executionID = uuid.NewString()
	}
	batch := &delivery.Batch{
		Records:     records,
		Workflow:    trace.Workflow{ID: opts.workflowID, Name: opts.workflowName},
		ExecutionID: executionID,
		RedactKeys:  rt.Config.RedactKeys(),
		Metadata:    rt.Config.MetadataFields(),
		PlatformID:  rt.Config.Trace.PlatformID,
		ExternalID:  rt.Config.Trace.ExternalID,
	}

	if opts.dryRun {
		return preview(cmd, rt, batch)
	}

	apiKey, _, err := rt.ResolveAPIKey(ctx)
	if err != nil {
		return shared.NewConfigurationExitError(err)
	}
	pipeline, _, closeFn, err := rt.NewPipeline(ctx, apiKey)
	if err != nil {
		return err
	}
	defer closeFn()

	out, err := pipeline.Run(ctx, batch, rt.Config.DeliveryOptions())
	if err != nil {
		return shared.WrapRunError(err)
	}
	return shared.WriteRecords(cmd.OutOrStdout(), out, opts.ndjson)
}

func preview(cmd *cobra.Command, rt *shared.Runtime, batch *delivery.Batch) error {
	p := &delivery.Pipeline{Logger: rt.Logger}
	payload, err := p.Preview(batch)
	if err != nil {
		return shared.WrapRunError(err)
	}
	body, err := payload.Encode()
	if err != nil {
		return err
	}
	digest, err := trace.DigestJSON(body)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, string(body))
	if !shared.GetQuiet() {
		errw := cmd.ErrOrStderr()
		fmt.Fprintln(errw, shared.RenderKV("POST", rt.Config.ResolveServerURL("")+"/traces"))
		fmt.Fprintln(errw, shared.RenderKV("Idempotency", digest))
		if err := trace.Validate(payload); err != nil {
			fmt.Fprintln(errw, shared.RenderWarn(err.Error()))
		}
	}
	return nil
}
