package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/crowd-dev/crowd-api/modules/settings/domain/aggregates/attribute"
	"github.com/crowd-dev/crowd-api/modules/settings/infrastructure/persistence"
	"github.com/crowd-dev/crowd-api/modules/settings/services"
	"github.com/crowd-dev/crowd-api/pkg/authz"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/configuration"
)

type seedAttributesOptions struct {
	TenantID  string
	Platforms []string
}

func newSeedAttributesCmd() *cobra.Command {
	var opts seedAttributesOptions

	cmd := &cobra.Command{
		Use:   "seed-attributes --tenant <uuid> [--platform discord,github]",
		Short: "Create the predefined member attributes for a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.TenantID) == "" {
				return errors.New("--tenant is required")
			}
			tenantID, err := uuid.Parse(opts.TenantID)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			platforms := opts.Platforms
			if len(platforms) == 0 {
				for p := range attribute.Predefined {
					platforms = append(platforms, p)
				}
				sort.Strings(platforms)
			}

			conf := configuration.Use()
			pool, err := openPool(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := composables.WithPool(cmd.Context(), pool)
			ctx = composables.WithTenantID(ctx, tenantID)
			svc := services.NewAttributeService(
				persistence.NewAttributeRepository(),
				authz.AllowAll{},
				composables.NewTxManager(),
				services.CanDeletePolicy(conf.CanDeletePolicy),
			)

			logger := conf.Logger().WithField("tenant", tenantID)
			for _, platform := range platforms {
				list, ok := attribute.Predefined[platform]
				if !ok {
					return fmt.Errorf("unknown platform %q", platform)
				}
				created, err := svc.CreatePredefined(ctx, append([]attribute.CreateDTO(nil), list...))
				if err != nil {
					return fmt.Errorf("seed %s: %w", platform, err)
				}
				logger.WithField("platform", platform).Infof("%d attributes ensured", len(created))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.TenantID, "tenant", "", "tenant UUID")
	cmd.Flags().StringSliceVar(&opts.Platforms, "platform", nil, "platforms to seed (default: all)")

	return cmd
}
