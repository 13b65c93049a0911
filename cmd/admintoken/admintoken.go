package main

import (
	"fmt"
	"os"
	"time"

	"ai-tutor-backend/internal/auth"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	subject string
	ttl     time.Duration
)

// admintoken prints a bearer token for the admin endpoints, signed with
// ADMIN_JWT_SECRET.
var rootCmd = &cobra.Command{
	Use:          "admintoken --subject <who>",
	Short:        "Issue an admin bearer token",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load .env file if exists
		if _, err := os.Stat(".env"); err == nil {
			if err := godotenv.Load(); err != nil {
				return fmt.Errorf("error loading .env file: %w", err)
			}
		}

		secret := os.Getenv("ADMIN_JWT_SECRET")
		if secret == "" {
			return fmt.Errorf("ADMIN_JWT_SECRET is not set; the admin API is disabled without it")
		}

		token, exp, err := auth.IssueAdminToken(secret, subject, ttl)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "Issued to %s, expires %s\n", subject, exp.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&subject, "subject", "", "who the token is issued to (e.g. an operator email)")
	rootCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = rootCmd.MarkFlagRequired("subject")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
