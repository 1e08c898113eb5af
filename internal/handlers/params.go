package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tassosgomes/GestAuto-sub000/internal/models"
)

// pathUUID reads a uuid route variable
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, models.NewValidationError(name, models.ValidationReasonInvalidFormat, "not a uuid")
	}
	return id, nil
}

func queryUUID(q url.Values, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, models.NewValidationError(name, models.ValidationReasonInvalidFormat, "not a uuid")
	}
	return &id, nil
}

// queryTime accepts RFC 3339 timestamps
func queryTime(q url.Values, name string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, models.NewValidationError(name, models.ValidationReasonInvalidFormat, "expected RFC 3339 timestamp")
	}
	return &t, nil
}

func queryInt(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, models.NewValidationError(name, models.ValidationReasonInvalidFormat, "expected a non-negative integer")
	}
	return n, nil
}

// queryList splits repeated and comma-separated values
func queryList(q url.Values, name string) []string {
	var out []string
	for _, raw := range q[name] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseList parses every label with parse
func parseList[T any](labels []string, parse func(string) (T, error)) ([]T, error) {
	out := make([]T, 0, len(labels))
	for _, label := range labels {
		v, err := parse(label)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// paging reads limit and offset
func paging(q url.Values) (limit, offset int, err error) {
	if limit, err = queryInt(q, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(q, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}
