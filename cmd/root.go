package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "contact",
	Short: "Portfolio contact service",
	Long:  "A contact-form service that delivers visitor messages to the site owner over a transactional email API with an SMTP relay fallback, via HTTP and gRPC.",
}

// Execute runs the root Cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
