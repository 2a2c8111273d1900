package cmd

import (
	"github.com/spf13/cobra"
)

var (
	DbPath string
)

// RegisterCommands adds all subcommands to the root command
func RegisterCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(watchCmd())
}
