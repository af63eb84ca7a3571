package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	// VersionMajor is the major number in entree's version
	VersionMajor = 0
	// VersionMinor is the minor number in entree's version
	VersionMinor = 10
	// VersionPatch is the patch number in entree's version
	VersionPatch = 3
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of entree",
		Long:  `All software has versions. This is entree's`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("entree v%d.%d.%d\n", VersionMajor, VersionMinor, VersionPatch)
		},
	}
}
