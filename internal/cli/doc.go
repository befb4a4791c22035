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

/*
Package cli provides the root command and command tree for the mibo CLI.

This package creates the main Cobra command tree and handles global concerns like
version information, persistent flags, and error handling. Individual commands
are implemented in the internal/commands subpackages.

# Command Tree

	mibo
	├── send          Deliver a batch of records as one trace
	├── redact        Mask PII keys in records locally
	├── serve         Accept batches over HTTP
	├── health        Check collector reachability and the API key
	├── history       Inspect past delivery attempts
	├── auth          Manage the API key in the OS keychain
	├── config        Show, initialise and validate configuration
	├── completion    Generate shell completion scripts
	├── version       Show version
	└── help          Show help

# Global Flags

	--verbose, -v   Debug logging
	--quiet, -q     Errors only
	--json          Machine-readable output where supported
	--config        Config file (default ~/.config/mibo/config.yaml)

# Exit Codes

	0  success
	1  delivery failed
	2  configuration error
	3  input error
*/
package cli
