package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("tenant not found")

// Billing plans. Plan decides which feature flags the billing system turns
// on for the tenant.
const (
	PlanEssential = "essential"
	PlanGrowth    = "growth"
)

type Tenant struct {
	id        uuid.UUID
	name      string
	plan      string
	createdAt time.Time
	updatedAt time.Time
}

type Option func(*Tenant)

func WithID(id uuid.UUID) Option {
	return func(t *Tenant) {
		t.id = id
	}
}

func WithPlan(plan string) Option {
	return func(t *Tenant) {
		t.plan = plan
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(t *Tenant) {
		t.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(t *Tenant) {
		t.updatedAt = updatedAt
	}
}

func New(name string, opts ...Option) *Tenant {
	t := &Tenant{
		id:        uuid.New(),
		name:      name,
		plan:      PlanEssential,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tenant) ID() uuid.UUID {
	return t.id
}

func (t *Tenant) Name() string {
	return t.name
}

func (t *Tenant) Plan() string {
	return t.plan
}

func (t *Tenant) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Tenant) UpdatedAt() time.Time {
	return t.updatedAt
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	Create(ctx context.Context, t *Tenant) (*Tenant, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, plan string) error
	List(ctx context.Context) ([]*Tenant, error)
}
