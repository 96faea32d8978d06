package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

const espudpctlVersion = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the espudpctl version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "espudpctl version %s (%s)\n", espudpctlVersion, runtime.Version())
			return nil
		},
	}
}
