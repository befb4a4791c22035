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

package version

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/mibo-ai/mibo-cli/internal/commands/shared"
	"github.com/mibo-ai/mibo-cli/internal/delivery"
)

// VersionInfo is the build stamp plus what this build sends to the collector.
type VersionInfo struct {
	Version          string `json:"version"`
	Commit           string `json:"commit"`
	BuildDate        string `json:"build_date"`
	GoVersion        string `json:"go_version"`
	Platform         string `json:"platform"`
	UserAgent        string `json:"user_agent"`
	DefaultServerURL string `json:"default_server_url"`
}

// Current collects the running build's VersionInfo.
func Current() VersionInfo {
	v, c, b := shared.GetVersion()
	return VersionInfo{
		Version:          v,
		Commit:           c,
		BuildDate:        b,
		GoVersion:        runtime.Version(),
		Platform:         runtime.GOOS + "/" + runtime.GOARCH,
		UserAgent:        shared.UserAgent(),
		DefaultServerURL: delivery.DefaultServerURL,
	}
}

func NewVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display version, commit hash, build date and the User-Agent sent to Mibo Testing.

Use --short to print only the version number, e.g. in install scripts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := Current()
			out := cmd.OutOrStdout()

			switch {
			case shared.GetJSON():
				return shared.EmitJSON(out, info)
			case short:
				cmd.Println(info.Version)
				return nil
			}

			cmd.Printf("mibo version %s\n", info.Version)
			for _, kv := range [][2]string{
				{"commit", info.Commit},
				{"build date", info.BuildDate},
				{"go", info.GoVersion + " (" + info.Platform + ")"},
				{"collector", info.DefaultServerURL},
			} {
				cmd.Println("  " + shared.RenderKV(kv[0], kv[1]))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}
