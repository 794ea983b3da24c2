package member

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/crowd-dev/crowd-api/pkg/constants"
	"github.com/crowd-dev/crowd-api/pkg/intl"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

type CreateDTO struct {
	Username   map[string]string `json:"username" validate:"required,min=1,dive,keys,required,endkeys,required"`
	Info       map[string]any    `json:"info"`
	CrowdInfo  map[string]any    `json:"crowdInfo"`
	Type       *string           `json:"type" validate:"omitempty,max=32"`
	Email      *string           `json:"email" validate:"omitempty,email"`
	Score      *int              `json:"score"`
	Bio        *string           `json:"bio"`
	Location   *string           `json:"location"`
	Signals    *string           `json:"signals"`
	Reach      map[string]int    `json:"reach"`
	JoinedAt   *time.Time        `json:"joinedAt"`
	ImportHash *string           `json:"importHash" validate:"omitempty,max=255"`

	Activities    []uuid.UUID `json:"activities"`
	Tags          []uuid.UUID `json:"tags"`
	Organizations []uuid.UUID `json:"organizations"`
	ToMerge       []uuid.UUID `json:"toMerge"`
	NoMerge       []uuid.UUID `json:"noMerge"`
}

// UpdateDTO changes only the fields that are set. Relation slices replace
// the stored links when non-nil.
type UpdateDTO struct {
	Username   map[string]string `json:"username" validate:"omitempty,min=1,dive,keys,required,endkeys,required"`
	Info       map[string]any    `json:"info"`
	CrowdInfo  map[string]any    `json:"crowdInfo"`
	Type       *string           `json:"type" validate:"omitempty,max=32"`
	Email      *string           `json:"email" validate:"omitempty,email"`
	Score      *int              `json:"score"`
	Bio        *string           `json:"bio"`
	Location   *string           `json:"location"`
	Signals    *string           `json:"signals"`
	Reach      map[string]int    `json:"reach"`
	JoinedAt   *time.Time        `json:"joinedAt"`
	ImportHash *string           `json:"importHash" validate:"omitempty,max=255"`

	Activities    *[]uuid.UUID `json:"activities"`
	Tags          *[]uuid.UUID `json:"tags"`
	Organizations *[]uuid.UUID `json:"organizations"`
	ToMerge       *[]uuid.UUID `json:"toMerge"`
	NoMerge       *[]uuid.UUID `json:"noMerge"`
}

// NormalizeUsername fills crowdUsername from the first platform handle, in
// platform order, when the caller did not set it.
func NormalizeUsername(username map[string]string) map[string]string {
	if len(username) == 0 {
		return username
	}
	out := make(map[string]string, len(username)+1)
	platforms := make([]string, 0, len(username))
	for k, v := range username {
		out[k] = strings.TrimSpace(v)
		platforms = append(platforms, k)
	}
	if _, ok := out[CrowdUsername]; !ok {
		sort.Strings(platforms)
		out[CrowdUsername] = out[platforms[0]]
	}
	return out
}

func (d *CreateDTO) Normalize() {
	d.Username = NormalizeUsername(d.Username)
}

func (d *UpdateDTO) Normalize() {
	d.Username = NormalizeUsername(d.Username)
}

func fieldLocaleKey(field string) string {
	return fmt.Sprintf("Member.Fields.%s", field)
}

func validate(ctx context.Context, dto any) (map[string]string, bool) {
	errs := constants.Validate.Struct(dto)
	if errs == nil {
		return map[string]string{}, true
	}
	validatorErrs, ok := errs.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": errs.Error()}, false
	}
	l, _ := intl.UseLocalizer(ctx)
	return serrors.LocalizeValidationErrors(serrors.ProcessValidatorErrors(validatorErrs, fieldLocaleKey), l), false
}

func (d *CreateDTO) Ok(ctx context.Context) (map[string]string, bool) {
	d.Normalize()
	return validate(ctx, d)
}

func (d *UpdateDTO) Ok(ctx context.Context) (map[string]string, bool) {
	d.Normalize()
	return validate(ctx, d)
}
