package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

// PathID parses a uuid route variable.
func PathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, serrors.Validation("invalidId", "invalid id "+strconv.Quote(raw)).WithCause(err)
	}
	return id, nil
}

// QueryIDs reads ids from repeated or comma separated parameters, accepting
// both "ids" and "ids[]".
func QueryIDs(r *http.Request, name string) ([]uuid.UUID, error) {
	q := r.URL.Query()
	raw := append(q[name], q[name+"[]"]...)
	out := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return nil, serrors.Validation("invalidId", "invalid id "+strconv.Quote(part)).WithCause(err)
			}
			out = append(out, id)
		}
	}
	return out, nil
}

// QueryInt reads a non-negative integer parameter, or def when absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, serrors.Validation("invalidFilter", name+" must be a non-negative integer")
	}
	return n, nil
}
