package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fishwatch/internal/core"
	"fishwatch/internal/geo"
)

// ReferenceHandler serves the static geography tables used for annotation.
type ReferenceHandler struct {
	regions   *geo.RegionClassifier
	countries *geo.CountryLookup
}

// NewReferenceHandler creates a ReferenceHandler over the process-wide tables.
func NewReferenceHandler(regions *geo.RegionClassifier, countries *geo.CountryLookup) *ReferenceHandler {
	return &ReferenceHandler{regions: regions, countries: countries}
}

// RegisterRoutes mounts the reference endpoints onto the mux.
func (h *ReferenceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/oceans", h.HandleListOceans)
	r.Get("/countries", h.HandleListCountries)
}

// HandleListOceans handles GET /v1/reference/oceans. Names are returned in
// classification priority order.
func (h *ReferenceHandler) HandleListOceans(w http.ResponseWriter, r *http.Request) {
	names := h.regions.Names()
	w.Header().Set("Cache-Control", "public, max-age=3600")
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: names,
		Meta: &core.ResponseMeta{Count: len(names)},
	})
}

// HandleListCountries handles GET /v1/reference/countries.
func (h *ReferenceHandler) HandleListCountries(w http.ResponseWriter, r *http.Request) {
	countries := h.countries.Countries()
	w.Header().Set("Cache-Control", "public, max-age=3600")
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: countries,
		Meta: &core.ResponseMeta{Count: len(countries)},
	})
}
