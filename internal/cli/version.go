package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// VersionInfo is the version command output.
type VersionInfo struct {
	Version string `json:"version"`
	Go      string `json:"go"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{Version: Version, Go: runtime.Version()}
			return rootOpts.formatter(cmd).Success(info, []Field{
				{"aad", info.Version},
				{"go", info.Go},
			})
		},
	}
}
