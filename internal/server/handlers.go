package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/amechx/rxnet/pkg/runlog"
	"github.com/amechx/rxnet/pkg/store"
)

type handlers struct {
	store  *store.Store
	runs   *runlog.Store
	logger *zap.Logger
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, err error) {
	h.logger.Warn("request failed", zap.Error(err))
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Count(r.Context()); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Count(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{
		"stationaries": counts.Stationaries,
		"transitions":  counts.Transitions,
		"energies":     counts.Energies,
	})
}

type stationaryView struct {
	ID         int64               `json:"id"`
	Identifier string              `json:"identifier"`
	Structure  string              `json:"structure"`
	Energies   *store.EnergyRecord `json:"energies,omitempty"`
}

func (h *handlers) stationaries(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListStationaries(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]stationaryView, 0, len(records))
	for _, rec := range records {
		view := stationaryView{ID: rec.ID, Identifier: rec.Identifier, Structure: rec.Structure}
		if e, err := h.store.Energies(r.Context(), store.StationaryOwner(rec.ID)); err == nil {
			view.Energies = e
		}
		out = append(out, view)
	}
	h.writeJSON(w, http.StatusOK, out)
}

type transitionView struct {
	ID         int64               `json:"id"`
	Identifier string              `json:"identifier"`
	Reactant1  int64               `json:"reactant_1"`
	Reactant2  *int64              `json:"reactant_2,omitempty"`
	Product1   int64               `json:"product_1"`
	Product2   *int64              `json:"product_2,omitempty"`
	ScanSpec   string              `json:"scan_spec"`
	Energies   *store.EnergyRecord `json:"energies,omitempty"`
}

func (h *handlers) transitions(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListTransitions(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]transitionView, 0, len(records))
	for _, rec := range records {
		view := transitionView{
			ID:         rec.ID,
			Identifier: rec.Identifier,
			Reactant1:  rec.Reactant1,
			Reactant2:  rec.Reactant2,
			Product1:   rec.Product1,
			Product2:   rec.Product2,
			ScanSpec:   rec.ScanSpec,
		}
		if e, err := h.store.Energies(r.Context(), store.TransitionOwner(rec.ID)); err == nil {
			view.Energies = e
		}
		out = append(out, view)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.List()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, runs)
}
