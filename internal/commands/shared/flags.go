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

// globals holds the persistent flags bound by the root command.
type globals struct {
	verbose    bool
	quiet      bool
	json       bool
	configPath string
}

// build is stamped by cmd/mibo from -ldflags.
type build struct {
	version string
	commit  string
	date    string
}

var (
	flags globals
	info  = build{version: "dev", commit: "unknown", date: "unknown"}
)

// RegisterFlagPointers returns the verbose, quiet, json and config
// destinations for the root command's persistent flags.
func RegisterFlagPointers() (*bool, *bool, *bool, *string) {
	return &flags.verbose, &flags.quiet, &flags.json, &flags.configPath
}

// SetVersion records the build stamp.
func SetVersion(v, c, b string) {
	info = build{version: v, commit: c, date: b}
}

// GetVersion returns version, commit and build date.
func GetVersion() (string, string, string) {
	return info.version, info.commit, info.date
}

// UserAgent identifies this build to the collector.
func UserAgent() string {
	return "mibo-cli/" + info.version
}

func GetVerbose() bool { return flags.verbose }

func GetQuiet() bool { return flags.quiet }

// GetJSON reports whether --json was given.
func GetJSON() bool { return flags.json }

// GetConfigPath returns --config, or "" to use MIBO_CONFIG or the XDG default.
func GetConfigPath() string { return flags.configPath }

// SetConfigPathForTest points --config at path.
func SetConfigPathForTest(path string) {
	flags.configPath = path
}
