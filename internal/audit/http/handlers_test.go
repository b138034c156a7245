package audithttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meridian-hq/meridian-admin/internal/audit"
)

type stubListService struct {
	result      audit.Result
	lastFilters audit.Filters
}

func (s *stubListService) List(ctx context.Context, filters audit.Filters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func TestListParsesFilters(t *testing.T) {
	svc := &stubListService{}
	handler := NewHandler(nil, svc)

	req := httptest.NewRequest(http.MethodGet, "/audit?actor_id=4&action=update&resource=roles&from=2025-03-01&to=2025-03-31&sort=asc&page=2&page_size=10", nil)
	rr := httptest.NewRecorder()
	handler.list(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.lastFilters.ActorID == nil || *svc.lastFilters.ActorID != 4 {
		t.Fatalf("expected actor filter 4, got %v", svc.lastFilters.ActorID)
	}
	if svc.lastFilters.Action != "update" || svc.lastFilters.Resource != "roles" {
		t.Fatalf("unexpected filters: %+v", svc.lastFilters)
	}
	if !svc.lastFilters.SortAsc {
		t.Fatalf("expected ascending sort")
	}
	if svc.lastFilters.Page != 2 || svc.lastFilters.PageSize != 10 {
		t.Fatalf("unexpected paging: %+v", svc.lastFilters)
	}
}

func TestListDateOnlyToCoversWholeDay(t *testing.T) {
	svc := &stubListService{}
	handler := NewHandler(nil, svc)

	req := httptest.NewRequest(http.MethodGet, "/audit?from=2025-03-01&to=2025-03-31", nil)
	rr := httptest.NewRecorder()
	handler.list(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	wantFrom := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !svc.lastFilters.From.Equal(wantFrom) {
		t.Fatalf("expected from %v, got %v", wantFrom, svc.lastFilters.From)
	}
	wantTo := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
	if !svc.lastFilters.To.Equal(wantTo) {
		t.Fatalf("expected date-only to bound %v, got %v", wantTo, svc.lastFilters.To)
	}
}

func TestListTimestampToStaysExact(t *testing.T) {
	svc := &stubListService{}
	handler := NewHandler(nil, svc)

	req := httptest.NewRequest(http.MethodGet, "/audit?to=2025-03-31T12:30:00Z", nil)
	rr := httptest.NewRecorder()
	handler.list(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	wantTo := time.Date(2025, 3, 31, 12, 30, 0, 0, time.UTC)
	if !svc.lastFilters.To.Equal(wantTo) {
		t.Fatalf("expected exact to bound %v, got %v", wantTo, svc.lastFilters.To)
	}
}

func TestListRejectsBadActorID(t *testing.T) {
	handler := NewHandler(nil, &stubListService{})

	req := httptest.NewRequest(http.MethodGet, "/audit?actor_id=abc", nil)
	rr := httptest.NewRecorder()
	handler.list(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	var envelope struct {
		Success bool              `json:"success"`
		Errors  map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Success {
		t.Fatalf("expected failure envelope")
	}
	if envelope.Errors["actor_id"] == "" {
		t.Fatalf("expected actor_id field error, got %v", envelope.Errors)
	}
}
