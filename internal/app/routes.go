package app

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"ft8spotter/go-spotter/internal/model"
	"ft8spotter/go-spotter/internal/spot"
)

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	mux.HandleFunc("GET /api/lookup", a.handleLookup)
	mux.HandleFunc("GET /api/classify", a.handleClassify)
	mux.HandleFunc("GET /api/status", a.handleStatusAPI)
	mux.Handle("GET /metrics", a.metrics.Handler())
	return mux
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if a.table.Table() == nil || !a.listening.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"starting"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

func (a *App) handleLookup(w http.ResponseWriter, r *http.Request) {
	call := strings.TrimSpace(r.URL.Query().Get("callsign"))
	if call == "" {
		http.Error(w, "callsign required", http.StatusBadRequest)
		return
	}

	at := a.now().UTC()
	if v := r.URL.Query().Get("at"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "at must be an RFC 3339 timestamp", http.StatusBadRequest)
			return
		}
		at = ts.UTC()
	}

	if a.table.Table() == nil {
		http.Error(w, "country table not loaded", http.StatusServiceUnavailable)
		return
	}

	result := model.LookupResult{Callsign: strings.ToUpper(call), At: at}
	if entity, ok := a.table.Resolve(call, at); ok {
		result.Found = true
		result.Entity = &entity
	}

	a.writeJSON(w, http.StatusOK, result)
}

func (a *App) handleClassify(w http.ResponseWriter, r *http.Request) {
	if a.classifier == nil || a.table.Table() == nil {
		http.Error(w, "classifier not ready", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	var heard spot.Heard
	if msg := q.Get("message"); msg != "" {
		heard = spot.Extract(msg)
	} else {
		heard.Callsign = strings.TrimSpace(q.Get("callsign"))
		if g := strings.ToUpper(strings.TrimSpace(q.Get("grid"))); spot.IsMaidenheadGrid(g) {
			heard.Grid = g
		}
	}
	if heard.Callsign == "" {
		http.Error(w, "callsign or message required", http.StatusBadRequest)
		return
	}

	s, err := a.classify(r.Context(), heard)
	if err != nil {
		a.logger.Error("classify request failed", "callsign", heard.Callsign, "error", err)
		http.Error(w, "classification failed", http.StatusBadGateway)
		return
	}

	a.writeJSON(w, http.StatusOK, s)
}

func (a *App) handleStatusAPI(w http.ResponseWriter, r *http.Request) {
	band, mode := a.Operating()

	resp := struct {
		Band         int        `json:"band"`
		Mode         string     `json:"mode"`
		Listening    bool       `json:"listening"`
		TableUpdated *time.Time `json:"table_updated,omitempty"`
		Entities     int        `json:"entities"`
		Prefixes     int        `json:"prefixes"`
		Exceptions   int        `json:"exceptions"`
	}{
		Band:      band,
		Mode:      mode,
		Listening: a.listening.Load(),
	}
	if t := a.table.Table(); t != nil {
		updated := t.Updated
		resp.TableUpdated = &updated
		resp.Entities = len(t.Entities)
		resp.Prefixes = len(t.Prefixes)
		resp.Exceptions = len(t.Exceptions)
	}

	a.writeJSON(w, http.StatusOK, resp)
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}
