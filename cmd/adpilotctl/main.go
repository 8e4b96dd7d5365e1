package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adpilot/pkg/progressclient"

	"github.com/spf13/cobra"
)

var (
	apiURL  string
	userID  string
	timeout time.Duration
)

// rootCmd is the adpilot operator CLI.
var rootCmd = &cobra.Command{
	Use:   "adpilotctl",
	Short: "Submit and follow campaign launches",
	Long: `adpilotctl talks to the adpilot API.

Launches run asynchronously: submit returns a job id at once and watch
follows the job's progress timeline until it finishes.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("ADPILOT_API_URL", "http://localhost:8080"), "adpilot API base URL")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", os.Getenv("ADPILOT_USER"), "acting user id (X-User-Id)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "timeout for single requests")

	draftCmd.AddCommand(draftGetCmd)
	draftCmd.AddCommand(draftUpdateCmd)

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(draftCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *progressclient.Client {
	client := progressclient.NewClient(apiURL, userID)
	client.HTTPClient.Timeout = timeout
	return client
}

func envOr(name string, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
