package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the timesplit command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "timesplit",
		Short:         "Time entry service that splits a base amount across minutes worked",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var configPath string
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("TIMESPLIT_CONFIG"),
		"TOML config file layered under the environment (default $TIMESPLIT_CONFIG)")

	root.AddCommand(
		newServeCmd(&configPath),
		newWorkerCmd(&configPath),
		newVersionCmd(version),
	)
	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "timesplit "+version)
			return err
		},
	}
}
