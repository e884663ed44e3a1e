package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "authctl",
	Short: "Operator tooling for the bazaar auth gateway",
	Long: `authctl generates token signing keys and password hashes for the
auth gateway and prepares the identity event topic. Key output is written in
.env format so it can be appended to the gateway's environment file.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
