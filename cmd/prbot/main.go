// Package main is the entry point of the pull request integration bot.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "prbot",
	Short: "Integrate and backport pull requests on behalf of their authors",
	Long: `prbot runs the /integrate and /backport pull request commands.

Examples:
  prbot serve                                         # accept commands over HTTP
  prbot integrate openjdk/jdk 42 --user gh-alice      # integrate pull request 42
  prbot backport openjdk/jdk <hash> jdk17u --user gh-alice
  prbot migrate                                       # prepare the lock store`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (yaml, toml or json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(integrateCmd)
	rootCmd.AddCommand(backportCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
