package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/application-agent/internal/config"
	"github.com/jonathan/application-agent/internal/db"
)

var (
	userDBURL      string
	userName       string
	userEmail      string
	userResumeFile string
	userGitHubName string
	userGitHubKey  string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage stored users",
	Long:  `Create users and attach the resume and GitHub account the generators read.`,
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user and print it as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if userName == "" || userEmail == "" {
			return fmt.Errorf("--name and --email are required")
		}
		return withDatabase(cmd, func(ctx context.Context, database *db.DB) error {
			u, err := database.CreateUser(ctx, userName, userEmail)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(u)
		})
	},
}

var userResumeCmd = &cobra.Command{
	Use:   "set-resume <user-id>",
	Short: "Store the resume text for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if userResumeFile == "" {
			return fmt.Errorf("--file is required")
		}
		data, err := os.ReadFile(userResumeFile)
		if err != nil {
			return fmt.Errorf("failed to read resume: %w", err)
		}
		return withDatabase(cmd, func(ctx context.Context, database *db.DB) error {
			return database.SetResumeText(ctx, args[0], string(data))
		})
	},
}

var userGitHubCmd = &cobra.Command{
	Use:   "link-github <user-id>",
	Short: "Link a GitHub account to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if userGitHubName == "" || userGitHubKey == "" {
			return fmt.Errorf("--username and --token are required")
		}
		return withDatabase(cmd, func(ctx context.Context, database *db.DB) error {
			return database.SetGitHub(ctx, args[0], userGitHubName, userGitHubKey)
		})
	},
}

func init() {
	userCmd.PersistentFlags().StringVar(&userDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	userCreateCmd.Flags().StringVar(&userName, "name", "", "Full name")
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Email address")
	userResumeCmd.Flags().StringVarP(&userResumeFile, "file", "f", "", "Path to resume text file")
	userGitHubCmd.Flags().StringVar(&userGitHubName, "username", "", "GitHub username")
	userGitHubCmd.Flags().StringVar(&userGitHubKey, "token", "", "GitHub personal access token")

	userCmd.AddCommand(userCreateCmd, userResumeCmd, userGitHubCmd)
	rootCmd.AddCommand(userCmd)
}

// withDatabase connects, makes sure the schema exists and runs fn.
func withDatabase(cmd *cobra.Command, fn func(ctx context.Context, database *db.DB) error) error {
	cfg := config.Config{DatabaseURL: userDBURL}
	if err := cfg.ApplyEnv(nil); err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("a database is required (--db-url or DATABASE_URL)")
	}

	ctx := cmd.Context()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}
	return fn(ctx, database)
}
