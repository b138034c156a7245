package shared

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondErrorKeepsFieldsWhenWrapped(t *testing.T) {
	base := ValidationError(map[string]string{"name": "is required"})
	wrapped := fmt.Errorf("create role: %w", base)

	rr := httptest.NewRecorder()
	RespondError(rr, wrapped)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success {
		t.Fatalf("expected failure envelope")
	}
	if env.Errors["name"] != "is required" {
		t.Fatalf("expected field map to survive wrapping, got %v", env.Errors)
	}
}

func TestRespondErrorStatusTaxonomy(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrUnauthenticated, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrNotFound, http.StatusNotFound},
		{E(KindDuplicateEmail, "email already taken"), http.StatusConflict},
		{ErrRateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		if rr.Code != tc.want {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.want, rr.Code)
		}
	}
}
