package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/crowd-dev/crowd-api/pkg/configuration"
	"github.com/crowd-dev/crowd-api/pkg/defaults"
	"github.com/crowd-dev/crowd-api/pkg/token"
)

type tokenOptions struct {
	TenantID string
	UserID   string
	Roles    []string
	TTL      time.Duration
}

func newTokenCmd() *cobra.Command {
	var opts tokenOptions

	cmd := &cobra.Command{
		Use:   "token --tenant <uuid> [--role admin]",
		Short: "Issue an API bearer token for local use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.TenantID) == "" {
				return errors.New("--tenant is required")
			}
			tenantID, err := uuid.Parse(opts.TenantID)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			userID := uuid.New()
			if opts.UserID != "" {
				if userID, err = uuid.Parse(opts.UserID); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}

			conf := configuration.Use()
			signer := token.NewSigner(conf.Security.TokenSecret)
			raw, err := signer.Sign(&token.APIClaims{
				TenantID: tenantID,
				UserID:   userID,
				Roles:    opts.Roles,
			}, opts.TTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.TenantID, "tenant", "", "tenant UUID")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "user UUID (random when empty)")
	cmd.Flags().StringSliceVar(&opts.Roles, "role", []string{defaults.RoleAdmin}, "roles to grant")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
