package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/crowd-dev/crowd-api/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files from the working directory. When none of
// them exist there, the nearest parent directory holding go.mod is tried.
func LoadEnv(envFiles []string) (int, error) {
	existing := existingFiles("", envFiles)
	if len(existing) == 0 {
		if root, ok := findModuleRoot(); ok {
			existing = existingFiles(root, envFiles)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func existingFiles(dir string, files []string) []string {
	out := make([]string, 0, len(files))
	for _, file := range files {
		path := file
		if dir != "" {
			path = filepath.Join(dir, file)
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			out = append(out, path)
		}
	}
	return out
}

func findModuleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"crowd"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"10"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type LogOptions struct {
	Level string `env:"LOG_LEVEL" envDefault:"error"`
	Path  string `env:"LOG_PATH"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/metrics"`
}

type AuthzOptions struct {
	ModelPath      string `env:"AUTHZ_MODEL_PATH" envDefault:"config/access/model.conf"`
	PolicyPath     string `env:"AUTHZ_POLICY_PATH" envDefault:"config/access/policy.csv"`
	FlagConfigPath string `env:"AUTHZ_FLAG_CONFIG" envDefault:"config/access/authz_flags.yaml"`
	Mode           string `env:"AUTHZ_MODE" envDefault:"shadow"`
}

type RedisOptions struct {
	URL      string `env:"REDIS_URL" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"crowd-api"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
}

type RateLimitOptions struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	// memory or redis
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"50"`
}

func (o *RateLimitOptions) Validate() error {
	if !o.Enabled {
		return nil
	}
	switch o.Storage {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid RATE_LIMIT_STORAGE=%q (expected memory|redis)", o.Storage)
	}
	if o.GlobalRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_GLOBAL_RPS must be positive")
	}
	return nil
}

type AnalyticsOptions struct {
	Enabled   bool          `env:"ANALYTICS_ENABLED" envDefault:"false"`
	URL       string        `env:"ANALYTICS_URL" envDefault:"https://api.segment.io/v1/track"`
	WriteKey  string        `env:"ANALYTICS_WRITE_KEY"`
	QueueSize int           `env:"ANALYTICS_QUEUE_SIZE" envDefault:"1024"`
	Workers   int           `env:"ANALYTICS_WORKERS" envDefault:"2"`
	Timeout   time.Duration `env:"ANALYTICS_TIMEOUT" envDefault:"5s"`
}

func (a *AnalyticsOptions) Validate() error {
	if !a.Enabled {
		return nil
	}
	if a.URL == "" {
		return fmt.Errorf("ANALYTICS_URL is required when analytics is enabled")
	}
	if a.QueueSize <= 0 || a.Workers <= 0 {
		return fmt.Errorf("analytics queue size and workers must be positive, got %d/%d", a.QueueSize, a.Workers)
	}
	return nil
}

type EnrichmentOptions struct {
	Enabled bool          `env:"ENRICHMENT_ENABLED" envDefault:"false"`
	URL     string        `env:"ENRICHMENT_URL" envDefault:"https://company.clearbit.com"`
	APIKey  string        `env:"ENRICHMENT_API_KEY"`
	RPS     float64       `env:"ENRICHMENT_RPS" envDefault:"5"`
	Burst   int           `env:"ENRICHMENT_BURST" envDefault:"5"`
	Timeout time.Duration `env:"ENRICHMENT_TIMEOUT" envDefault:"10s"`
}

func (e *EnrichmentOptions) Validate() error {
	if !e.Enabled {
		return nil
	}
	if e.APIKey == "" {
		return fmt.Errorf("ENRICHMENT_API_KEY is required when enrichment is enabled")
	}
	if e.RPS <= 0 || e.Burst <= 0 {
		return fmt.Errorf("enrichment rps and burst must be positive")
	}
	return nil
}

type FeatureFlagOptions struct {
	// static or redis
	Backend      string        `env:"FEATURE_FLAGS_BACKEND" envDefault:"static"`
	Enabled      string        `env:"FEATURE_FLAGS_ENABLED" envDefault:"automations"`
	PollInterval time.Duration `env:"FEATURE_FLAGS_POLL_INTERVAL" envDefault:"500ms"`
	MaxAttempts  int           `env:"FEATURE_FLAGS_MAX_ATTEMPTS" envDefault:"10"`
}

func (f *FeatureFlagOptions) Validate() error {
	if f.Backend != "static" && f.Backend != "redis" {
		return fmt.Errorf("FEATURE_FLAGS_BACKEND must be 'static' or 'redis', got '%s'", f.Backend)
	}
	if f.MaxAttempts <= 0 {
		return fmt.Errorf("FEATURE_FLAGS_MAX_ATTEMPTS must be positive, got %d", f.MaxAttempts)
	}
	return nil
}

// EnabledFlags returns the comma separated FEATURE_FLAGS_ENABLED list.
func (f *FeatureFlagOptions) EnabledFlags() []string {
	return splitList(f.Enabled)
}

type OAuthClientOptions struct {
	ClientID     string
	ClientSecret string
}

type OAuthOptions struct {
	RedirectBase        string `env:"OAUTH_REDIRECT_BASE" envDefault:"http://localhost:3200/api"`
	DiscordClientID     string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	SlackClientID       string `env:"SLACK_CLIENT_ID"`
	SlackClientSecret   string `env:"SLACK_CLIENT_SECRET"`
	GithubClientID      string `env:"GITHUB_CLIENT_ID"`
	GithubClientSecret  string `env:"GITHUB_CLIENT_SECRET"`
	TwitterClientID     string `env:"TWITTER_CLIENT_ID"`
	TwitterClientSecret string `env:"TWITTER_CLIENT_SECRET"`
}

// Client returns the credentials registered for a platform.
func (o *OAuthOptions) Client(platform string) (OAuthClientOptions, bool) {
	var c OAuthClientOptions
	switch platform {
	case "discord":
		c = OAuthClientOptions{o.DiscordClientID, o.DiscordClientSecret}
	case "slack":
		c = OAuthClientOptions{o.SlackClientID, o.SlackClientSecret}
	case "github":
		c = OAuthClientOptions{o.GithubClientID, o.GithubClientSecret}
	case "twitter":
		c = OAuthClientOptions{o.TwitterClientID, o.TwitterClientSecret}
	default:
		return c, false
	}
	return c, c.ClientID != ""
}

type SecurityOptions struct {
	StateSecret string        `env:"OAUTH_STATE_SECRET" envDefault:"change-me-state"`
	StateTTL    time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`
	TokenSecret string        `env:"API_TOKEN_SECRET" envDefault:"change-me-token"`
}

func (s *SecurityOptions) Validate(environment string) error {
	if environment != Production {
		return nil
	}
	if strings.HasPrefix(s.StateSecret, "change-me") || strings.HasPrefix(s.TokenSecret, "change-me") {
		return fmt.Errorf("OAUTH_STATE_SECRET and API_TOKEN_SECRET must be set in production")
	}
	return nil
}

type HydrationOptions struct {
	// api, integrations, microservices
	ServiceRole      string `env:"SERVICE_ROLE" envDefault:"api"`
	PopulateRelation bool   `env:"HYDRATE_RELATIONS" envDefault:"true"`
}

// PopulateRelations reports whether repositories should load full relation
// objects. Internal service roles only need id-level references.
func (h HydrationOptions) PopulateRelations() bool {
	switch h.ServiceRole {
	case "integrations", "microservices":
		return false
	}
	return h.PopulateRelation
}

type Configuration struct {
	Database      DatabaseOptions
	Log           LogOptions
	Prometheus    PrometheusOptions
	Authz         AuthzOptions
	Redis         RedisOptions
	RateLimit     RateLimitOptions
	OpenTelemetry OpenTelemetryOptions
	Analytics     AnalyticsOptions
	Enrichment    EnrichmentOptions
	FeatureFlag   FeatureFlagOptions
	OAuth         OAuthOptions
	Security      SecurityOptions
	Hydration     HydrationOptions

	MigrationsDir    string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	FrontendURL      string `env:"FRONTEND_URL" envDefault:"http://localhost:8081"`
	CORSOrigins      string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:8081"`
	PageSize         int    `env:"PAGE_SIZE" envDefault:"50"`
	MaxPageSize      int    `env:"MAX_PAGE_SIZE" envDefault:"200"`
	// silent or reject
	CanDeletePolicy string `env:"ATTRIBUTE_CAN_DELETE_POLICY" envDefault:"silent"`
	// disabled or enforce
	RLSEnforce      string `env:"RLS_ENFORCE" envDefault:"disabled"`
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	RealIPHeader    string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.Log.Level {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

// AllowedOrigins returns the CORS origins as a list.
func (c *Configuration) AllowedOrigins() []string {
	return splitList(c.CORSOrigins)
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.Log.Path)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

func (c *Configuration) validate() error {
	if err := c.Analytics.Validate(); err != nil {
		return fmt.Errorf("analytics configuration error: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.Enrichment.Validate(); err != nil {
		return fmt.Errorf("enrichment configuration error: %w", err)
	}
	if err := c.FeatureFlag.Validate(); err != nil {
		return fmt.Errorf("feature flag configuration error: %w", err)
	}
	if err := c.Security.Validate(c.GoAppEnvironment); err != nil {
		return fmt.Errorf("security configuration error: %w", err)
	}
	switch c.CanDeletePolicy {
	case "silent", "reject":
	default:
		return fmt.Errorf("invalid ATTRIBUTE_CAN_DELETE_POLICY=%q (expected silent|reject)", c.CanDeletePolicy)
	}
	if c.PageSize <= 0 || c.MaxPageSize < c.PageSize {
		return fmt.Errorf("invalid page sizes PAGE_SIZE=%d MAX_PAGE_SIZE=%d", c.PageSize, c.MaxPageSize)
	}
	return c.validateRLS()
}

func (c *Configuration) validateRLS() error {
	mode := strings.ToLower(strings.TrimSpace(c.RLSEnforce))
	if mode == "" {
		mode = "disabled"
	}
	switch mode {
	case "disabled", "enforce":
	default:
		return fmt.Errorf("invalid RLS_ENFORCE=%q (expected disabled|enforce)", c.RLSEnforce)
	}
	if mode == "enforce" && strings.EqualFold(strings.TrimSpace(c.Database.User), "postgres") {
		return fmt.Errorf("RLS_ENFORCE=enforce requires a non-superuser DB_USER (postgres will bypass RLS)")
	}
	c.RLSEnforce = mode
	return nil
}

func splitList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("failed to close log file: %v", err)
		}
		c.logFile = nil
	}
}
