package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crowd-dev/crowd-api/pkg/defaults"
)

func newPolicyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the built-in casbin policy lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, line := range defaults.Policies() {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}
