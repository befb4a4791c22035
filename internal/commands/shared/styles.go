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
	"github.com/charmbracelet/lipgloss"
)

// Palette for human-readable command output. JSON output never uses it.
var (
	StatusOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	StatusWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	StatusError = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	Muted       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	// Header titles a block of health or validation output.
	Header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

	kvLabel = lipgloss.NewStyle().Width(kvLabelWidth)
)

const kvLabelWidth = 14

const (
	SymbolOK    = "✓"
	SymbolWarn  = "⚠"
	SymbolError = "✗"
)

func renderStatus(style lipgloss.Style, symbol, msg string) string {
	return style.Render(symbol) + " " + msg
}

// RenderOK prefixes msg with a green check, e.g. "✓ trace delivered".
func RenderOK(msg string) string { return renderStatus(StatusOK, SymbolOK, msg) }

func RenderWarn(msg string) string { return renderStatus(StatusWarn, SymbolWarn, msg) }

func RenderError(msg string) string { return renderStatus(StatusError, SymbolError, msg) }

// RenderKV renders "label: value" with a muted label padded to a fixed column,
// so consecutive lines of health and auth status output align.
func RenderKV(label, value string) string {
	return Muted.Render(kvLabel.Render(label+":")) + " " + value
}
