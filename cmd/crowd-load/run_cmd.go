package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type runOptions struct {
	BaseURL    string
	TenantID   string
	Token      string
	Profile    string
	OutPath    string
	P99LimitMS int
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run --profile <name> --base-url <url> --tenant <uuid> --token <jwt> --out <path>",
		Short: "Run a load profile and write a JSON report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(map[string]string{
				"--base-url": opts.BaseURL,
				"--tenant":   opts.TenantID,
				"--token":    opts.Token,
				"--profile":  opts.Profile,
				"--out":      opts.OutPath,
			}); err != nil {
				return err
			}

			p, err := builtinProfile(opts.Profile)
			if err != nil {
				return err
			}

			client := newHTTPClient()
			if _, err := smokeCheck(cmd.Context(), client, opts.BaseURL); err != nil {
				return err
			}

			startedAt := time.Now().UTC()
			stats := newStats()

			ctx, cancel := context.WithTimeout(cmd.Context(), p.Duration)
			defer cancel()

			wg := sync.WaitGroup{}
			wg.Add(p.VUs)
			for i := 0; i < p.VUs; i++ {
				go func(workerID int) {
					defer wg.Done()
					r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
					for {
						select {
						case <-ctx.Done():
							return
						default:
						}
						stats.record(doRequest(ctx, client, opts, pickTarget(r, p.Targets)))
					}
				}(i)
			}
			wg.Wait()

			report := loadReportV1{
				SchemaVersion: 1,
				RunID:         uuid.NewString(),
				StartedAt:     startedAt.Format(time.RFC3339),
				FinishedAt:    time.Now().UTC().Format(time.RFC3339),
				Results:       stats.results(),
			}
			report.Target.BaseURL = opts.BaseURL
			report.Target.TenantID = opts.TenantID
			report.Profile.Name = p.Name
			report.Profile.VUs = p.VUs
			report.Profile.DurationSeconds = int(p.Duration.Seconds())
			if h, err := smokeCheck(cmd.Context(), client, opts.BaseURL); err == nil {
				report.Server.Status = h.Status
				report.Server.DatabaseTime = h.Checks["database"].ResponseTime
			}

			p99Limit := opts.P99LimitMS
			if p99Limit <= 0 {
				p99Limit = p.DefaultP99MS
			}
			report.Thresholds = []loadReportThreshold{
				{Name: "p99_ms", Limit: p99Limit, OK: stats.p99All() <= p99Limit},
			}

			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			return os.WriteFile(opts.OutPath, data, 0o644)
		},
	}

	cmd.Flags().StringVar(&opts.Profile, "profile", "", "profile name (read_small|read_large|mix_read_write)")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "http://localhost:3200", "server base URL")
	cmd.Flags().StringVar(&opts.TenantID, "tenant", "", "tenant UUID")
	cmd.Flags().StringVar(&opts.Token, "token", "", "bearer token (see crowd-api token)")
	cmd.Flags().StringVar(&opts.OutPath, "out", "", "output report path")
	cmd.Flags().IntVar(&opts.P99LimitMS, "p99-limit-ms", 0, "p99 latency threshold in milliseconds (default per profile)")

	return cmd
}

func requireFlags(flags map[string]string) error {
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.TrimSpace(flags[name]) == "" {
			return errors.New(name + " is required")
		}
	}
	return nil
}

type requestResult struct {
	Endpoint   string
	DurationMS int
	StatusCode int
	Err        error
}

func doRequest(ctx context.Context, client *http.Client, opts runOptions, t target) requestResult {
	var body []byte
	if t.Body != nil {
		var err error
		if body, err = t.Body(); err != nil {
			return requestResult{Endpoint: t.Endpoint, Err: err}
		}
	}

	u := strings.TrimRight(opts.BaseURL, "/") + t.Path(opts.TenantID)
	req, err := http.NewRequestWithContext(ctx, t.Method, u, bytes.NewReader(body))
	if err != nil {
		return requestResult{Endpoint: t.Endpoint, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+opts.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := int(time.Since(start).Milliseconds())
	if err != nil {
		return requestResult{Endpoint: t.Endpoint, DurationMS: elapsed, Err: err}
	}
	_ = resp.Body.Close()
	return requestResult{Endpoint: t.Endpoint, DurationMS: elapsed, StatusCode: resp.StatusCode}
}

func pickTarget(r *rand.Rand, targets []target) target {
	total := 0
	for _, t := range targets {
		total += t.Weight
	}
	x := r.Intn(total)
	for _, t := range targets {
		x -= t.Weight
		if x < 0 {
			return t
		}
	}
	return targets[len(targets)-1]
}

type endpointStats struct {
	count     int
	errors    int
	latencies []int
}

type stats struct {
	mu        sync.Mutex
	endpoints map[string]*endpointStats
}

func newStats() *stats {
	return &stats{endpoints: map[string]*endpointStats{}}
}

func (s *stats) record(res requestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es := s.endpoints[res.Endpoint]
	if es == nil {
		es = &endpointStats{latencies: make([]int, 0, 1024)}
		s.endpoints[res.Endpoint] = es
	}
	es.count++
	if res.Err != nil || res.StatusCode >= 400 {
		es.errors++
	}
	if res.DurationMS > 0 {
		es.latencies = append(es.latencies, res.DurationMS)
	}
}

func (s *stats) results() []loadReportResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]loadReportResult, 0, len(s.endpoints))
	for endpoint, es := range s.endpoints {
		p50, p95, p99 := percentiles(es.latencies)
		out = append(out, loadReportResult{
			Endpoint: endpoint,
			Count:    es.count,
			Errors:   es.errors,
			P50MS:    p50,
			P95MS:    p95,
			P99MS:    p99,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out
}

func (s *stats) p99All() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]int, 0, 4096)
	for _, es := range s.endpoints {
		all = append(all, es.latencies...)
	}
	_, _, p99 := percentiles(all)
	return p99
}

func percentiles(ms []int) (int, int, int) {
	if len(ms) == 0 {
		return 0, 0, 0
	}
	cp := append([]int(nil), ms...)
	sort.Ints(cp)
	at := func(q float64) int { return cp[int(float64(len(cp)-1)*q)] }
	return at(0.50), at(0.95), at(0.99)
}
