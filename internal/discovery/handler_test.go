package discovery

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubescout-platform/tubescout/internal/youtube"
)

type errorResponse struct {
	Error string `json:"error"`
}

func postSearch(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/discovery/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Search(rec, req)
	return rec
}

func TestSearchHandlerRequiresKeywords(t *testing.T) {
	engine, _ := setupEngine(t, &fakeClient{}, []string{"key1"}, Options{})
	h := NewHandler(engine)

	rec := postSearch(t, h, `{"keywords":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postSearch(t, h, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandlerSurfacesFailureMessage(t *testing.T) {
	client := &fakeClient{
		videoSearch: func(_, _, _, _ string) (*youtube.SearchPage, error) {
			return nil, errors.New("backend unavailable")
		},
	}
	engine, _ := setupEngine(t, client, []string{"key1"}, Options{})
	h := NewHandler(engine)

	rec := postSearch(t, h, `{"keywords":"lofi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp.Error, "backend unavailable")
}

func TestSearchHandlerExhaustedKeysReturn503(t *testing.T) {
	client := &fakeClient{
		videoSearch: func(_, _, _, _ string) (*youtube.SearchPage, error) {
			return nil, &youtube.QuotaError{Err: errors.New("daily quota exceeded")}
		},
	}
	engine, _ := setupEngine(t, client, []string{"key1"}, Options{})
	h := NewHandler(engine)

	rec := postSearch(t, h, `{"keywords":"lofi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "no valid API key available", resp.Error)
}
