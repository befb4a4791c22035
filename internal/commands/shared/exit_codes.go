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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mibo-ai/mibo-cli/internal/delivery"
	pkgerrors "github.com/mibo-ai/mibo-cli/pkg/errors"
)

// Exit codes for mibo commands
const (
	ExitSuccess        = 0
	ExitDeliveryFailed = 1
	ExitConfigError    = 2
	ExitInputError     = 3
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewDeliveryExitError creates an error for a batch that could not be delivered
func NewDeliveryExitError(cause error) *ExitError {
	return &ExitError{Code: ExitDeliveryFailed, Cause: cause}
}

// NewConfigurationExitError creates an error for invalid configuration
func NewConfigurationExitError(cause error) *ExitError {
	return &ExitError{Code: ExitConfigError, Cause: cause}
}

// NewInputError creates an error for unreadable or malformed input records
func NewInputError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitInputError, Message: msg, Cause: cause}
}

// ExitCode maps an error to the process exit code. Errors that are not an
// ExitError are classified by type: configuration errors exit 2, everything
// else 1.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if pkgerrors.IsConfiguration(err) {
		return ExitConfigError
	}
	return ExitDeliveryFailed
}

// WrapRunError converts a pipeline error into an ExitError with the right code.
func WrapRunError(err error) error {
	if err == nil {
		return nil
	}
	var delErr *delivery.DeliveryError
	switch {
	case pkgerrors.IsConfiguration(err):
		return NewConfigurationExitError(err)
	case errors.As(err, &delErr):
		return NewDeliveryExitError(err)
	default:
		return err
	}
}

// PrintError writes "Error: <msg>" and any user-visible suggestion to w.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, RenderError("Error: "+err.Error()))
	if s := pkgerrors.SuggestionOf(err); s != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", s)
	}
}

// HandleExitError prints err to stderr and exits with the mapped code.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	PrintError(os.Stderr, err)
	os.Exit(ExitCode(err))
}
