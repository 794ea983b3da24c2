package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type smokeOptions struct {
	BaseURL  string
	TenantID string
	Token    string
}

func newSmokeCmd() *cobra.Command {
	var opts smokeOptions

	cmd := &cobra.Command{
		Use:   "smoke --base-url <url> --tenant <uuid> --token <jwt>",
		Short: "Check /health and one filtered member list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(map[string]string{
				"--base-url": opts.BaseURL,
				"--tenant":   opts.TenantID,
				"--token":    opts.Token,
			}); err != nil {
				return err
			}

			client := newHTTPClient()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			h, err := smokeCheck(ctx, client, opts.BaseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "health: %s\n", h.Status)

			res := doRequest(ctx, client, runOptions{
				BaseURL:  opts.BaseURL,
				TenantID: opts.TenantID,
				Token:    opts.Token,
			}, readTargets[1])
			if res.Err != nil {
				return res.Err
			}
			if res.StatusCode/100 != 2 {
				return fmt.Errorf("%s failed: status=%d", res.Endpoint, res.StatusCode)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %dms\n", res.Endpoint, res.DurationMS)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "http://localhost:3200", "server base URL")
	cmd.Flags().StringVar(&opts.TenantID, "tenant", "", "tenant UUID")
	cmd.Flags().StringVar(&opts.Token, "token", "", "bearer token")

	return cmd
}

type healthPayload struct {
	Status string `json:"status"`
	Checks map[string]struct {
		Status       string `json:"status"`
		ResponseTime string `json:"responseTime"`
	} `json:"checks"`
}

func smokeCheck(ctx context.Context, client *http.Client, baseURL string) (*healthPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/health", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("health check failed: status=%d", resp.StatusCode)
	}
	var h healthPayload
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, err
	}
	return &h, nil
}
