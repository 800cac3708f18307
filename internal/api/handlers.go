package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lexio/readerd/internal/device"
	"github.com/lexio/readerd/internal/prefs"
	"github.com/lexio/readerd/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// EventLister abstracts journal reads for the API layer.
type EventLister interface {
	ListEvents(limit, offset int) ([]storage.PreferenceEvent, error)
}

// ManualSyncer abstracts cooldown-gated refreshes for the API layer.
type ManualSyncer interface {
	TrySync(ctx context.Context) (bool, time.Duration, error)
	Cooldown() time.Duration
}

// Deps holds dependencies for the local HTTP API.
type Deps struct {
	Prefs  *prefs.Store
	Events EventLister  // optional; if nil, history returns empty
	Sync   ManualSyncer // optional; if nil, manual sync is unavailable
	Token  string
}

// NewHandler returns the local HTTP API: a health probe plus
// bearer-authenticated preference routes.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(pr chi.Router) {
		pr.Use(BearerAuth(deps.Token))

		pr.Get("/v1/preferences", handleGetPreferences(deps))
		pr.Patch("/v1/preferences", handlePatchPreferences(deps))
		pr.Get("/v1/preferences/history", handleHistory(deps))
		pr.Get("/v1/auth/status", handleAuthStatus(deps))
		pr.Get("/v1/device", handleDevice)
		pr.Post("/v1/sync", handleSync(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// preferencesResponse is the current snapshot plus readiness of the initial
// remote load.
type preferencesResponse struct {
	prefs.Set
	Ready bool `json:"ready"`
}

func handleGetPreferences(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(preferencesResponse{
			Set:   deps.Prefs.Current(),
			Ready: deps.Prefs.Ready(),
		})
	}
}

// handlePatchPreferences applies optimistic updates. The response is sent
// before the remote writes resolve; a failed write reverts the value and is
// only observable through a later read or the history journal.
func handlePatchPreferences(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(fields) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "no preference fields supplied")
			return
		}

		// Validate everything before applying anything.
		type change func()
		var changes []change
		for key, raw := range fields {
			switch prefs.Key(key) {
			case prefs.KeyBionicReading:
				v, ok := asBool(raw)
				if !ok {
					httpError(w, http.StatusBadRequest, "invalid_request_error", "bionicReading must be a boolean")
					return
				}
				changes = append(changes, func() { deps.Prefs.SetBionicReading(r.Context(), v) })
			case prefs.KeyBodyFont:
				s, ok := raw.(string)
				if !ok {
					httpError(w, http.StatusBadRequest, "invalid_request_error", "bodyFont must be a string")
					return
				}
				font, ok := prefs.ParseFont(s)
				if !ok {
					httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown bodyFont %q", s)
					return
				}
				changes = append(changes, func() { deps.Prefs.SetBodyFont(r.Context(), font) })
			default:
				httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown preference key %q", key)
				return
			}
		}

		for _, apply := range changes {
			apply()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	}
}

// asBool accepts JSON booleans and their string encodings ("true"/"false"),
// matching the remote service's wire form.
func asBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return false, false
		}
		return b, true
	}
	return false, false
}

func handleHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		events := []storage.PreferenceEvent{}
		if deps.Events != nil {
			list, err := deps.Events.ListEvents(limit, offset)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to list events: %v", err)
				return
			}
			if list != nil {
				events = list
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(events)
	}
}

func handleAuthStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{
			"authenticated": deps.Prefs.Authenticated(),
		})
	}
}

// handleDevice classifies the calling client. The user agent comes from the
// ua query parameter when present, the request header otherwise.
func handleDevice(w http.ResponseWriter, r *http.Request) {
	ua := r.URL.Query().Get("ua")
	if ua == "" {
		ua = r.UserAgent()
	}
	touch := parseIntParam(r, "touch_points", 0, 0)

	platform := device.Classify(device.Probe{UserAgent: ua, TouchPoints: touch})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"platform": string(platform)})
}

func handleSync(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Sync == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "sync is not available")
			return
		}

		synced, wait, err := deps.Sync.TrySync(r.Context())
		if !synced {
			seconds := int(wait.Round(time.Second).Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			httpError(w, http.StatusTooManyRequests, "cooldown_error",
				"sync cooldown active, retry in %ds", seconds)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "sync failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "synced"})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
