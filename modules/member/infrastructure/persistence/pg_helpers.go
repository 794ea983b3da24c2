package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/crowd-dev/crowd-api/modules/member/domain/aggregates/member"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

// actorRef is the acting user for created/updated-by columns, nil for
// system callers.
func actorRef(ctx context.Context) *uuid.UUID {
	id := composables.UseUserID(ctx)
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func notFound(id uuid.UUID) error {
	return serrors.NotFound("Member", id).WithCause(member.ErrNotFound)
}

func jsonObject(v map[string]any) map[string]any {
	if v == nil {
		return map[string]any{}
	}
	return v
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

func without(ids []uuid.UUID, self uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}
