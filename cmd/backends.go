package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/vibast-solutions/ms-go-contact/app/provider"
	"github.com/vibast-solutions/ms-go-contact/config"

	"github.com/spf13/cobra"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Print the configured delivery chain",
	Long:  "Print the email backends that would be tried for a submission, in order, without sending anything.",
	Run:   runBackends,
}

// init registers the backends command.
func init() {
	rootCmd.AddCommand(backendsCmd)
}

func runBackends(cmd *cobra.Command, _ []string) {
	cfg, logger := loadConfig()

	backends, err := buildBackends(context.Background(), cfg)
	if err != nil {
		logger.Fatalf("Failed to build email backends: %v", err)
	}
	printBackends(cmd.OutOrStdout(), cfg, backends)
}

func printBackends(w io.Writer, cfg *config.Config, backends []provider.EmailBackend) {
	fmt.Fprintf(w, "recipient: %s\n", cfg.RecipientEmail)
	fmt.Fprintf(w, "retry: %d attempts, %s backoff step\n", cfg.MaxAttempts, cfg.BackoffStep)
	if len(backends) == 0 {
		fmt.Fprintln(w, "no backend configured: submissions are recorded in the operator log only")
		return
	}
	for i, b := range backends {
		fmt.Fprintf(w, "%d. %s (%s)\n", i+1, b.Kind(), b.Name())
	}
}
