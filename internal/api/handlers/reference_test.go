package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishwatch/internal/geo"
)

func newTestReferenceRouter() http.Handler {
	h := NewReferenceHandler(
		geo.NewRegionClassifier(geo.DefaultRegions()),
		geo.NewCountryLookup(geo.DefaultCountries()),
	)
	r := chi.NewRouter()
	r.Route("/v1/reference", h.RegisterRoutes)
	return r
}

func TestHandleListOceans(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/reference/oceans", nil)
	rec := httptest.NewRecorder()
	newTestReferenceRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	var resp struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, geo.NewRegionClassifier(geo.DefaultRegions()).Names(), resp.Data)
}

func TestHandleListCountries(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/reference/countries", nil)
	rec := httptest.NewRecorder()
	newTestReferenceRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []geo.Country `json:"data"`
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, geo.DefaultCountries(), resp.Data)
	assert.Equal(t, len(geo.DefaultCountries()), resp.Meta.Count)
}
