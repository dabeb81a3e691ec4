// Command tsugu-cli drives the bot from a terminal without Iris.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagUser  string
	flagGroup string
	flagJSON  bool
)

var rootCmd = &cobra.Command{
	Use:           "tsugu-cli",
	Short:         "Developer tools for the Tsugu bot",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "cli", "sender user id")
	rootCmd.PersistentFlags().StringVar(&flagGroup, "group", "cli", "group id")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print raw JSON")
	rootCmd.AddCommand(askCmd, roomsCmd, prefCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
