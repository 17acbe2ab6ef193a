package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backoffice/internal/session"
	"github.com/mesh-intelligence/backoffice/pkg/types"
)

func (a *app) tokenCmd() *cobra.Command {
	var (
		user  string
		email string
		role  string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token",
		Long: `Token signs a session token with the configured auth_secret. Pass it with
--token or set BACKOFFICE_TOKEN.

Roles: admin (every command), user (everything except import and reorder).

Example:
  export BACKOFFICE_TOKEN=$(backoffice token --user ada --role admin --ttl 8h)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.settings.AuthSecret == "" {
				return errors.New("auth_secret is not configured")
			}
			if role != types.RoleAdmin && role != types.RoleUser {
				return fmt.Errorf("unknown role %q (valid: %s, %s)", role, types.RoleAdmin, types.RoleUser)
			}
			tok, err := session.Issue(a.settings.AuthSecret, types.Session{UserID: user, Email: email, Role: role}, ttl)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"token": tok, "user_id": user, "role": role})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id (required)")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&role, "role", types.RoleUser, "role: admin or user")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "lifetime; 0 never expires")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
