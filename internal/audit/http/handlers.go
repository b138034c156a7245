package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/meridian-hq/meridian-admin/internal/audit"
	"github.com/meridian-hq/meridian-admin/internal/shared"
)

// ListService defines the business contract for audit listings.
type ListService interface {
	List(ctx context.Context, filters audit.Filters) (audit.Result, error)
}

// Handler menangani permintaan daftar audit log.
type Handler struct {
	logger  *slog.Logger
	service ListService
}

// NewHandler membuat handler audit baru.
func NewHandler(logger *slog.Logger, service ListService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	result, err := h.service.List(r.Context(), filters)
	if err != nil {
		if shared.KindOf(err) == shared.KindInternal {
			h.logger.Error("list audit logs", slog.Any("error", err))
		}
		shared.RespondError(w, err)
		return
	}
	shared.RespondData(w, http.StatusOK, result)
}

func parseFilters(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	filters := audit.Filters{
		Action:   strings.TrimSpace(q.Get("action")),
		Resource: strings.TrimSpace(q.Get("resource")),
	}
	fields := make(map[string]string)

	if raw := q.Get("actor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fields["actor_id"] = "must be an integer"
		} else {
			filters.ActorID = &id
		}
	}
	if raw := q.Get("resource_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fields["resource_id"] = "must be an integer"
		} else {
			filters.ResourceID = &id
		}
	}
	if raw := q.Get("from"); raw != "" {
		at, _, err := parseDate(raw)
		if err != nil {
			fields["from"] = "must be an RFC 3339 timestamp or YYYY-MM-DD date"
		} else {
			filters.From = at
		}
	}
	if raw := q.Get("to"); raw != "" {
		at, dateOnly, err := parseDate(raw)
		if err != nil {
			fields["to"] = "must be an RFC 3339 timestamp or YYYY-MM-DD date"
		} else {
			// A date-only upper bound covers that whole day.
			if dateOnly {
				at = at.AddDate(0, 0, 1).Add(-time.Nanosecond)
			}
			filters.To = at
		}
	}
	if raw := q.Get("page"); raw != "" {
		filters.Page, _ = strconv.Atoi(raw)
	}
	if raw := q.Get("page_size"); raw != "" {
		filters.PageSize, _ = strconv.Atoi(raw)
	}
	filters.SortAsc = strings.EqualFold(q.Get("sort"), "asc")

	if len(fields) > 0 {
		return audit.Filters{}, shared.ValidationError(fields)
	}
	return filters, nil
}

func parseDate(raw string) (time.Time, bool, error) {
	if at, err := time.Parse(time.RFC3339, raw); err == nil {
		return at, false, nil
	}
	at, err := time.Parse("2006-01-02", raw)
	return at, err == nil, err
}
