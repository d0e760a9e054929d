package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmdatafocus/sync_backend/models"
	"github.com/mmdatafocus/sync_backend/utils"
)

func tokenCmd() *cobra.Command {
	var role, username, subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with API_SECRET",
		Long: `Issue a bearer token for a device or operator.

The lifetime comes from TOKEN_HOUR_LIFESPAN and the signing key from API_SECRET,
the same variables the service validates with.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := models.ParseRole(role)
			if err != nil {
				return fmt.Errorf("role %q: %w", role, err)
			}
			if strings.TrimSpace(username) == "" {
				return errors.New("--username is required")
			}
			if subject == "" {
				subject = username
			}
			token, err := utils.JwtGenerate(subject, username, string(parsed))
			if err != nil {
				return fmt.Errorf("generate token (is TOKEN_HOUR_LIFESPAN set?): %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "Admin, Office or Terminal")
	cmd.Flags().StringVar(&username, "username", "", "username carried in the token")
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (defaults to the username)")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
