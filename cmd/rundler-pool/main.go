// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rundler-pool",
	Short: "UserOperation pool core for an ERC-4337 bundler",
	Long:  `rundler-pool runs the EntryPoint-scoped UserOperation pool core, exposing a Handle over an internal actor loop for bundler RPC and builder processes to share.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a YAML pool configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level")
	rootCmd.AddCommand(newRunCmd())
}

func main() {
	Execute()
}
