package itf

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crowd-dev/crowd-api/migrations"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/configuration"
	"github.com/crowd-dev/crowd-api/pkg/repo"
)

// CanDialPostgres skips tb when the configured database is not reachable.
func CanDialPostgres(tb testing.TB) {
	tb.Helper()
	c := configuration.Use()
	addr := net.JoinHostPort(c.Database.Host, c.Database.Port)
	conn, err := (&net.Dialer{Timeout: 250 * time.Millisecond}).Dial("tcp", addr)
	if err != nil {
		tb.Skipf("postgres not reachable at %s: %v", addr, err)
		return
	}
	_ = conn.Close()
}

func NewPool(dbOpts string) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	config, err := pgxpool.ParseConfig(dbOpts)
	if err != nil {
		panic(err)
	}
	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = time.Minute * 5
	config.MaxConnIdleTime = time.Second * 30

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		panic(fmt.Errorf("failed to create database pool: %w", err))
	}
	return pool
}

func DefaultParams() *composables.Params {
	return &composables.Params{
		IP:        "127.0.0.1",
		UserAgent: "itf",
		RequestID: uuid.NewString(),
	}
}

// CreateTestTenant inserts a tenant on the given plan, "essential" when empty.
func CreateTestTenant(ctx context.Context, db repo.Tx, plan string) (*composables.Tenant, error) {
	if plan == "" {
		plan = "essential"
	}
	tenantID := uuid.New()
	t := &composables.Tenant{
		ID:   tenantID,
		Name: "Test Tenant " + tenantID.String()[:8],
		Plan: plan,
	}
	_, err := db.Exec(ctx,
		"INSERT INTO tenants (id, name, plan) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING",
		t.ID, t.Name, t.Plan,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}
	return t, nil
}

const (
	maxDBNameLength  = 63
	hashSuffixLength = 9
)

var dbNameReplacer = strings.NewReplacer(
	"/", "_", " ", "_", "-", "_", ".", "_",
	"(", "_", ")", "_", "[", "_", "]", "_",
)

// sanitizeDBName lowercases a test name into a valid identifier that fits
// the Postgres 63 byte limit.
func sanitizeDBName(name string) string {
	sanitized := dbNameReplacer.Replace(strings.ToLower(name))
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		sanitized = "test_db"
	}
	if len(sanitized) <= maxDBNameLength {
		return sanitized
	}
	return truncateWithHash(sanitized, name)
}

func truncateWithHash(sanitized, original string) string {
	sum := sha256.Sum256([]byte(original))
	hash := fmt.Sprintf("%x", sum)[:8]
	return sanitized[:maxDBNameLength-hashSuffixLength] + "_" + hash
}

func adminConnString() string {
	c := configuration.Use()
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=postgres password=%s sslmode=disable",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password,
	)
}

// CreateDB drops and recreates a throwaway database.
func CreateDB(ctx context.Context, name string) error {
	conn, err := pgx.Connect(ctx, adminConnString())
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()

	ident := pgx.Identifier{sanitizeDBName(name)}.Sanitize()
	if _, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS "+ident+" WITH (FORCE)"); err != nil {
		return err
	}
	_, err = conn.Exec(ctx, "CREATE DATABASE "+ident)
	return err
}

// DropDB removes a database created by CreateDB.
func DropDB(ctx context.Context, name string) error {
	conn, err := pgx.Connect(ctx, adminConnString())
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()
	_, err = conn.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{sanitizeDBName(name)}.Sanitize()+" WITH (FORCE)")
	return err
}

func DbOpts(name string) string {
	c := configuration.Use()
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		c.Database.Host, c.Database.Port, c.Database.User, sanitizeDBName(name), c.Database.Password,
	)
}

// Migrate applies the embedded schema to the pool's database.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return migrations.Up(ctx, pool)
}
