package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crowd-dev/crowd-api/modules/core/domain/entities/tenant"
	"github.com/crowd-dev/crowd-api/modules/core/infrastructure/persistence"
	"github.com/crowd-dev/crowd-api/modules/core/services"
	"github.com/crowd-dev/crowd-api/pkg/authz"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/configuration"
)

type tenantCreateOptions struct {
	Name string
	Plan string
}

func newTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Create and list tenants",
	}
	cmd.AddCommand(newTenantCreateCmd(), newTenantListCmd())
	return cmd
}

func newTenantCreateCmd() *cobra.Command {
	var opts tenantCreateOptions

	cmd := &cobra.Command{
		Use:   "create --name <name> [--plan essential|growth]",
		Short: "Create a tenant and print its id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.Name) == "" {
				return errors.New("--name is required")
			}
			return withTenantService(cmd.Context(), func(ctx context.Context, svc *services.TenantService) error {
				t, err := svc.Create(ctx, opts.Name, opts.Plan)
				if err != nil {
					return err
				}
				fmt.Println(t.ID())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "tenant name")
	cmd.Flags().StringVar(&opts.Plan, "plan", tenant.PlanEssential, "billing plan")

	return cmd
}

func newTenantListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withTenantService(cmd.Context(), func(ctx context.Context, svc *services.TenantService) error {
				list, err := svc.List(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tPLAN")
				for _, t := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID(), t.Name(), t.Plan())
				}
				return w.Flush()
			})
		},
	}
}

func withTenantService(ctx context.Context, fn func(context.Context, *services.TenantService) error) error {
	conf := configuration.Use()
	pool, err := openPool(ctx, conf)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := services.NewTenantService(persistence.NewTenantRepository(), authz.AllowAll{}, composables.NewTxManager())
	return fn(composables.WithPool(ctx, pool), svc)
}
