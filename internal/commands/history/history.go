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

// Package history implements `mibo history`, a view over the local log of
// delivery attempts.
package history

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mibo-ai/mibo-cli/internal/commands/completion"
	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	store "github.com/mibo-ai/mibo-cli/internal/history"
)

// EntryJSON is one attempt in --json output.
type EntryJSON struct {
	ID            string    `json:"id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	WorkflowID    string    `json:"workflow_id,omitempty"`
	ExecutionID   string    `json:"execution_id,omitempty"`
	PlatformID    string    `json:"platform_id,omitempty"`
	TraceID       string    `json:"trace_id,omitempty"`
	Sent          bool      `json:"sent"`
	Error         string    `json:"error,omitempty"`
	Records       int       `json:"records"`
	Digest        string    `json:"digest,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListResponse is the --json output of `history list`.
type ListResponse struct {
	shared.JSONResponse
	Attempts []EntryJSON `json:"attempts"`
}

// NewCommand creates the history command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past delivery attempts",
		Long: `Inspect the local log of delivery attempts.

Every batch sent by 'mibo send' or 'mibo serve' is recorded with its outcome,
record count and the trace id assigned by Mibo Testing. The log is kept for
history.retention (30 days by default) and is never replayed.`,
	}
	cmd.AddCommand(newListCommand(), newPruneCommand())
	return cmd
}

func newListCommand() *cobra.Command {
	var (
		limit    int
		failed   bool
		workflow string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent delivery attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.List(ctx, store.Filter{Limit: limit, FailedOnly: failed, WorkflowID: workflow})
			if err != nil {
				return fmt.Errorf("failed to list history: %w", err)
			}

			if shared.GetJSON() {
				resp := ListResponse{
					JSONResponse: shared.JSONResponse{Version: "1.0", Command: "history list", Success: true},
					Attempts:     make([]EntryJSON, 0, len(entries)),
				}
				for _, e := range entries {
					resp.Attempts = append(resp.Attempts, toJSON(e))
				}
				return shared.EmitJSON(cmd.OutOrStdout(), resp)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, shared.Muted.Render("No delivery attempts recorded"))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tWORKFLOW\tEXECUTION\tRECORDS\tSTATUS\tTRACE ID\tDURATION")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					formatTime(e.CreatedAt),
					orDash(e.WorkflowID),
					truncateID(orDash(e.ExecutionID)),
					e.Records,
					status(e),
					orDash(e.TraceID),
					e.Duration.Round(time.Millisecond),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum attempts to show")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only show attempts that were not delivered")
	cmd.Flags().StringVar(&workflow, "workflow", "", "Filter by workflow ID")
	_ = cmd.RegisterFlagCompletionFunc("workflow", completion.CompleteWorkflowIDs)
	return cmd
}

func newPruneCommand() *cobra.Command {
	var olderThan string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete attempts older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			rt, err := shared.LoadRuntime()
			if err != nil {
				return err
			}

			age := rt.Config.History.Retention
			if olderThan != "" {
				age, err = ParseAge(olderThan)
				if err != nil {
					return shared.NewInputError("invalid --older-than", err)
				}
			}

			s, err := openStoreWith(ctx, rt)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.DeleteOlderThan(ctx, time.Now().Add(-age))
			if err != nil {
				return fmt.Errorf("failed to prune history: %w", err)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), struct {
					shared.JSONResponse
					Removed int64 `json:"removed"`
				}{shared.JSONResponse{Version: "1.0", Command: "history prune", Success: true}, n})
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK(fmt.Sprintf("removed %d attempt(s)", n)))
			return nil
		},
	}

	cmd.Flags().StringVar(&olderThan, "older-than", "", "Age cutoff, e.g. 72h or 7d (default: history.retention)")
	return cmd
}

// ParseAge parses a Go duration, also accepting a whole number of days ("7d").
func ParseAge(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative")
	}
	return d, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func openStore(ctx context.Context) (*store.Store, error) {
	rt, err := shared.LoadRuntime()
	if err != nil {
		return nil, err
	}
	return openStoreWith(ctx, rt)
}

func openStoreWith(ctx context.Context, rt *shared.Runtime) (*store.Store, error) {
	s, err := rt.OpenHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	if s == nil {
		return nil, shared.NewConfigurationExitError(fmt.Errorf("history is disabled (history.enabled: false)"))
	}
	return s, nil
}

func toJSON(e store.Entry) EntryJSON {
	return EntryJSON{
		ID:            e.ID,
		CorrelationID: e.CorrelationID,
		WorkflowID:    e.WorkflowID,
		ExecutionID:   e.ExecutionID,
		PlatformID:    e.PlatformID,
		TraceID:       e.TraceID,
		Sent:          e.Sent,
		Error:         e.Error,
		Records:       e.Records,
		Digest:        e.Digest,
		DurationMS:    e.Duration.Milliseconds(),
		CreatedAt:     e.CreatedAt,
	}
}

func status(e store.Entry) string {
	if e.Sent {
		return shared.StatusOK.Render("sent")
	}
	return shared.StatusError.Render("failed")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func formatTime(t time.Time) string {
	t = t.Local()
	if time.Since(t) < 24*time.Hour {
		return t.Format("15:04:05")
	}
	return t.Format("2006-01-02 15:04")
}
