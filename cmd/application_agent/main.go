// Package main provides the application_agent CLI: one-shot document
// generation, the HTTP API server and user management.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "application_agent",
	Short: "Job application document generator",
	Long: `application_agent writes cover letters and cold emails, tailors resumes and suggests resume improvements for a job posting.

Research stages gather company information and GitHub projects, writing stages draft the document and review stages score it before delivery.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
