package serrors

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// TranslateUnique converts a unique violation into a Conflict keyed by the
// entity name. Any other error is returned unchanged.
func TranslateUnique(err error, entity string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	return Conflict(entity, uniqueField(pgErr)).WithCause(err)
}

// uniqueField derives the offending column from pg details such as
// "Key (tenant_id, url)=(...) already exists." and falls back to the
// constraint name.
func uniqueField(pgErr *pgconn.PgError) string {
	detail := pgErr.Detail
	if open := strings.Index(detail, "("); open >= 0 {
		if end := strings.Index(detail[open:], ")"); end > 0 {
			cols := strings.Split(detail[open+1:open+end], ",")
			return strings.TrimSpace(cols[len(cols)-1])
		}
	}
	if pgErr.ConstraintName != "" {
		return pgErr.ConstraintName
	}
	return "value"
}
