package opsapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cti-systems/reactorctl/internal/historian"
	"github.com/cti-systems/reactorctl/internal/plc"
	"github.com/cti-systems/reactorctl/internal/redishealth"
	"github.com/cti-systems/reactorctl/internal/tagstore"
)

// RedisHealthChecker provides Redis connection health information, mirrored
// from the same narrow interface the rest of the Ops API's ancestor uses so
// the handler doesn't depend on a concrete Monitor type.
type RedisHealthChecker interface {
	IsConnected() bool
	GetStatus() redishealth.Status
}

// AlarmStatus is the response body for GET /api/alarms.
type AlarmStatus struct {
	AlarmActive   bool `json:"alarm_active"`
	CoreReliefOpen bool `json:"core_relief_open"`
	SGReliefOpen  bool `json:"sg_relief_open"`
}

// tagValue is one entry in the GET /api/tags response.
type tagValue struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
	Error string   `json:"error,omitempty"`
}

// Handler holds every dependency the read-only Ops API needs. Store is
// required; a route that needs a nil PLC or Historian answers 503. No
// route reads RedisHealth.
type Handler struct {
	Store       tagstore.Store
	PLC         *plc.PLC
	Historian   *historian.Historian
	RedisHealth RedisHealthChecker
}

// RegisterRoutes adds every Ops API route to mux, including the WebSocket
// upgrade endpoint served by hub.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, hub *Hub) {
	mux.HandleFunc("GET /api/tags", h.listTags)
	mux.HandleFunc("GET /api/alarms", h.getAlarms)
	mux.HandleFunc("GET /api/runs/{id}/audit", h.getRunAudit)
	mux.HandleFunc("GET /api/runs/{id}/export.csv", h.exportCSV)
	mux.HandleFunc("GET /api/runs/{id}/export.json", h.exportJSON)
	mux.HandleFunc("GET /api/runs/{id}/export.pdf", h.exportPDF)
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWebSocket)
	}
}

func (h *Handler) listTags(w http.ResponseWriter, r *http.Request) {
	names := h.Store.Names()
	out := make([]tagValue, 0, len(names))
	for _, name := range names {
		res := h.Store.Get(name)
		v, err := res.Unwrap()
		tv := tagValue{Name: name}
		if err != nil {
			tv.Error = err.Error()
		} else {
			tv.Value = &v
		}
		out = append(out, tv)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getAlarms(w http.ResponseWriter, r *http.Request) {
	if h.PLC == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no PLC wired into this Ops API instance"})
		return
	}
	writeJSON(w, http.StatusOK, AlarmStatus{
		AlarmActive:    h.PLC.AlarmActive(),
		CoreReliefOpen: h.PLC.CoreReliefOpen(),
		SGReliefOpen:   h.PLC.SGReliefOpen(),
	})
}

func (h *Handler) getRunAudit(w http.ResponseWriter, r *http.Request) {
	if h.Historian == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no Historian wired into this Ops API instance"})
		return
	}
	id := r.PathValue("id")
	rows, err := h.Historian.QueryAudit(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("query audit: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	if h.Historian == nil {
		http.Error(w, "no Historian wired into this Ops API instance", http.StatusServiceUnavailable)
		return
	}
	id := r.PathValue("id")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", id))
	if err := h.Historian.ExportCSV(w, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) exportJSON(w http.ResponseWriter, r *http.Request) {
	if h.Historian == nil {
		http.Error(w, "no Historian wired into this Ops API instance", http.StatusServiceUnavailable)
		return
	}
	id := r.PathValue("id")
	w.Header().Set("Content-Type", "application/json")
	if err := h.Historian.ExportJSON(w, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	if h.Historian == nil {
		http.Error(w, "no Historian wired into this Ops API instance", http.StatusServiceUnavailable)
		return
	}
	id := r.PathValue("id")
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", id))
	if err := h.Historian.ExportPDF(w, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
