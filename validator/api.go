package validator

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alovak/cardflow-validator/internal/cardfile"
	"github.com/alovak/cardflow-validator/validator/models"
	"github.com/go-chi/chi/v5"
)

// API is a HTTP API for the validator service
type API struct {
	validator *Service
	explain   bool
}

func NewAPI(validator *Service, cfg *Config) *API {
	api := &API{validator: validator}
	if cfg != nil {
		api.explain = cfg.ExplainRejections
	}
	return api
}

func (a *API) AppendRoutes(r chi.Router) {
	r.Post("/cards/validate", a.validateCard)
	r.Route("/batches", func(r chi.Router) {
		r.Post("/", a.validateBatch)
		r.Get("/", a.listRuns)
		r.Get("/{runID}", a.getRun)
	})
}

type cardCheckResponse struct {
	Valid  bool          `json:"valid"`
	Brand  models.Brand  `json:"brand"`
	Reason models.Reason `json:"reason,omitempty"`
}

func (a *API) validateCard(w http.ResponseWriter, r *http.Request) {
	rec, err := cardfile.DecodeRecord(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := a.validator.ValidateCard(r.Context(), rec)

	resp := cardCheckResponse{Valid: res.Valid, Brand: res.Brand}
	if a.explain {
		resp.Reason = res.Reason
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// validateBatch takes an input container and answers with the output container.
func (a *API) validateBatch(w http.ResponseWriter, r *http.Request) {
	records, err := cardfile.Decode(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	batch, err := a.validator.ValidateBatch(r.Context(), records, a.validator.Today())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Run-ID", batch.Run.ID)
	w.WriteHeader(http.StatusOK)
	cardfile.Encode(w, batch.Accepted)
}

func (a *API) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := a.validator.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(run)
}

func (a *API) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := a.validator.ListRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(runs)
}
