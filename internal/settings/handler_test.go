package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-hq/meridian-admin/internal/audit"
)

type discardSink struct{}

func (discardSink) Insert(context.Context, audit.Entry) error { return nil }

func newTestHandler(t *testing.T) (*Handler, *memorySettingsRepo) {
	t.Helper()
	store, repo, _ := newTestStore(t)
	return NewHandler(nil, store, audit.NewRecorder(discardSink{}, nil)), repo
}

func putSettings(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.update(rr, req)
	return rr
}

func TestUpdateAppliesBatch(t *testing.T) {
	h, repo := newTestHandler(t)

	rr := putSettings(h, `{"company_name":"Acme","items_per_page":"50"}`)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Acme", repo.values[KeyCompanyName].Value)
	assert.Equal(t, "50", repo.values[KeyItemsPerPage].Value)
}

func TestUpdateRejectsBatchWithoutPartialWrite(t *testing.T) {
	h, repo := newTestHandler(t)

	rr := putSettings(h, `{"company_name":"Acme","items_per_page":"abc"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assert.Empty(t, repo.values, "a rejected batch must not persist any key")

	var envelope struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Errors[KeyItemsPerPage])
}

func TestUpdateRejectsUnknownKeyWholeBatch(t *testing.T) {
	h, repo := newTestHandler(t)

	rr := putSettings(h, `{"company_name":"Acme","favorite_color":"blue"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assert.Empty(t, repo.values)
}
