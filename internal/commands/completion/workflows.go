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
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mibo-ai/mibo-cli/internal/history"
)

const (
	workflowCacheTTL = 2 * time.Second
	historyTimeout   = 500 * time.Millisecond
	historyScanLimit = 500
)

type workflowCacheEntry struct {
	ids       []string
	expiresAt time.Time
}

var (
	workflowCache   *workflowCacheEntry
	workflowCacheMu sync.Mutex
)

// CompleteWorkflowIDs completes workflow IDs seen in recent delivery
// attempts, most recent first. Results are cached for two seconds.
func CompleteWorkflowIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		ids, err := recentWorkflowIDs()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	})
}

func recentWorkflowIDs() ([]string, error) {
	workflowCacheMu.Lock()
	defer workflowCacheMu.Unlock()

	if workflowCache != nil && time.Now().Before(workflowCache.expiresAt) {
		return workflowCache.ids, nil
	}

	cfg, err := LoadConfigForCompletion()
	if err != nil || !cfg.History.Enabled {
		return nil, err
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	store, err := history.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	entries, err := store.List(ctx, history.Filter{Limit: historyScanLimit})
	if err != nil {
		return nil, err
	}

	ids := uniqueWorkflowIDs(entries)
	workflowCache = &workflowCacheEntry{ids: ids, expiresAt: time.Now().Add(workflowCacheTTL)}
	return ids, nil
}

// uniqueWorkflowIDs keeps the first occurrence of each ID. Entries arrive
// newest first, so the result is ordered by recency.
func uniqueWorkflowIDs(entries []history.Entry) []string {
	seen := map[string]bool{}
	var ids []string
	for _, e := range entries {
		if e.WorkflowID == "" || seen[e.WorkflowID] {
			continue
		}
		seen[e.WorkflowID] = true
		ids = append(ids, e.WorkflowID)
	}
	return ids
}

// resetCache clears cached completions.
func resetCache() {
	workflowCacheMu.Lock()
	workflowCache = nil
	workflowCacheMu.Unlock()
}
