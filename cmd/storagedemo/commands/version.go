/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	storagegateway "github.com/suparena/storagegateway"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := storagegateway.GetVersionInfo()
			fmt.Fprintln(a.out, a.styles.title.Render("storagedemo "+info.Version))
			fmt.Fprintf(a.out, "Git commit: %s\n", info.GitCommit)
			fmt.Fprintf(a.out, "Build date: %s\n", info.BuildDate)
			fmt.Fprintf(a.out, "Go version: %s\n", info.GoVersion)
			return nil
		},
	}
}
