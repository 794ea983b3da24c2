package automation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("automation not found")

type Type string

const (
	TypeWebhook Type = "webhook"
	TypeSlack   Type = "slack"
)

type Trigger string

const (
	TriggerNewActivity Trigger = "new_activity"
	TriggerNewMember   Trigger = "new_member"
)

type State string

const (
	StateActive   State = "active"
	StateDisabled State = "disabled"
)

// Automation fires an action of Type whenever Trigger happens in the tenant.
// Settings is opaque to the API and interpreted by the worker.
type Automation struct {
	ID          uuid.UUID      `json:"id"`
	TenantID    uuid.UUID      `json:"tenantId"`
	Type        Type           `json:"type"`
	Trigger     Trigger        `json:"trigger"`
	Settings    map[string]any `json:"settings"`
	State       State          `json:"state"`
	CreatedByID *uuid.UUID     `json:"createdById"`
	UpdatedByID *uuid.UUID     `json:"updatedById"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
