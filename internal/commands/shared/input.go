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

package shared

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mibo-ai/mibo-cli/internal/input"
	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
)

// openInput returns the reader for args: a file path, "-" or nothing for stdin.
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, NewInputError("failed to open input", err)
	}
	return f, nil
}

// ReadRecords reads the records named by args, applying selectExpr when set.
// Failures carry ExitInputError.
func ReadRecords(cmd *cobra.Command, args []string, selectExpr string) ([]*jsonvalue.Object, error) {
	in, err := openInput(cmd, args)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	records, err := input.Read(in, input.Options{Select: strings.TrimSpace(selectExpr)})
	if err != nil {
		return nil, NewInputError("failed to read records", err)
	}
	return records, nil
}
