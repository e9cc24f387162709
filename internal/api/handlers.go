package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lox/clearskies/internal/forecast"
	"github.com/lox/clearskies/internal/models"
	"github.com/lox/clearskies/internal/openmeteo"
	"github.com/lox/clearskies/internal/places"
	"github.com/lox/clearskies/internal/store"
	"github.com/lox/clearskies/internal/waitlist"
	"github.com/lox/clearskies/internal/weather"
)

// ClientCookie identifies a browser for saved preferences.
const ClientCookie = "clearskies_client"

const maxSearchCount = 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parsePlace reads lat, lon and name query parameters.
func parsePlace(r *http.Request) (models.Place, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return models.Place{}, fmt.Errorf("invalid lat %q", q.Get("lat"))
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		return models.Place{}, fmt.Errorf("invalid lon %q", q.Get("lon"))
	}
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		name = fmt.Sprintf("%.2f, %.2f", lat, lon)
	}
	return models.Place{Name: name, Latitude: lat, Longitude: lon}, nil
}

// unitFor resolves the unit from the query, then the client's saved
// preference, then Fahrenheit.
func (s *Server) unitFor(r *http.Request) (forecast.Unit, error) {
	if raw := r.URL.Query().Get("unit"); raw != "" {
		return forecast.ParseUnit(raw)
	}
	if pref := s.preference(r); pref != nil {
		if u, err := forecast.ParseUnit(pref.Unit); err == nil {
			return u, nil
		}
	}
	return forecast.Fahrenheit, nil
}

func (s *Server) preference(r *http.Request) *models.Preference {
	if s.store == nil {
		return nil
	}
	c, err := r.Cookie(ClientCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	pref, err := s.store.GetPreference(c.Value)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			LoggerFrom(r.Context()).Warn("load preference", zap.Error(err))
		}
		return nil
	}
	return pref
}

// unavailableResponse carries the neutral background to show while no
// forecast is known.
type unavailableResponse struct {
	Message  string            `json:"message"`
	Palettes forecast.Palettes `json:"palettes"`
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	place, err := parsePlace(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid location", err)
		return
	}
	unit, err := s.unitFor(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid unit", err)
		return
	}

	f := s.weather.Load(r.Context(), place, unit)
	if f == nil {
		writeJSON(w, http.StatusServiceUnavailable, unavailableResponse{
			Message:  "Forecast unavailable",
			Palettes: forecast.NeutralPalettes,
		})
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	place, err := parsePlace(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid location", err)
		return
	}
	unit, err := s.unitFor(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid unit", err)
		return
	}

	snap, ok := s.weather.Snapshot(weather.Key(place, unit))
	if !ok {
		writeError(w, http.StatusNotFound, "No snapshot for location", nil)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type placeResult struct {
	models.Place
	Label string `json:"label"`
}

func withLabels(ps []models.Place) []placeResult {
	out := make([]placeResult, len(ps))
	for i, p := range ps {
		out[i] = placeResult{Place: p, Label: places.Label(p)}
	}
	return out
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if places.ShortQuery(q) {
		writeJSON(w, http.StatusOK, map[string]any{"results": withLabels(s.popular)})
		return
	}

	count := openmeteo.DefaultSearchCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid count", fmt.Errorf("count %q", raw))
			return
		}
		count = min(n, maxSearchCount)
	}

	results, err := s.search.Search(r.Context(), q, count)
	if err != nil {
		LoggerFrom(r.Context()).Warn("geocode search failed", zap.String("query", q), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Location search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": withLabels(results)})
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"results": withLabels(s.popular)})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	pref := s.preference(r)
	if pref == nil {
		writeError(w, http.StatusNotFound, "No saved preference", nil)
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

type preferenceRequest struct {
	Location models.Place `json:"location"`
	Unit     string       `json:"unit"`
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	unit, err := forecast.ParseUnit(req.Unit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid unit", err)
		return
	}
	loc := req.Location
	if strings.TrimSpace(loc.Name) == "" || loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
		writeError(w, http.StatusBadRequest, "Invalid location", nil)
		return
	}

	var clientID string
	if c, err := r.Cookie(ClientCookie); err == nil && c.Value != "" {
		clientID = c.Value
	} else {
		clientID = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     ClientCookie,
			Value:    clientID,
			Path:     "/",
			MaxAge:   int((365 * 24 * time.Hour).Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	pref := models.Preference{ClientID: clientID, Place: loc, Unit: string(unit), UpdatedAt: time.Now().UTC()}
	if err := s.store.SavePreference(pref); err != nil {
		LoggerFrom(r.Context()).Error("save preference", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

type fetchError struct {
	StartedAt   time.Time `json:"started_at"`
	Endpoint    string    `json:"endpoint"`
	LocationKey string    `json:"location_key,omitempty"`
	HTTPStatus  int64     `json:"http_status,omitempty"`
	Error       string    `json:"error"`
}

type statusResponse struct {
	FetchHealth  []store.FetchHealthSummary `json:"fetch_health"`
	RecentErrors []fetchError               `json:"recent_errors"`
	Payloads     *store.RawPayloadStats     `json:"payloads"`
	Waitlist     int                        `json:"waitlist_signups"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid days", fmt.Errorf("days %q", raw))
			return
		}
		days = n
	}

	var resp statusResponse
	var err error
	if resp.FetchHealth, err = s.store.GetFetchHealth(days); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}
	runs, err := s.store.GetRecentFetchErrors(10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}
	resp.RecentErrors = make([]fetchError, len(runs))
	for i, run := range runs {
		resp.RecentErrors[i] = fetchError{
			StartedAt:   run.StartedAt,
			Endpoint:    run.Endpoint,
			LocationKey: run.LocationKey.String,
			HTTPStatus:  run.HTTPStatus.Int64,
			Error:       run.ErrorMessage.String,
		}
	}
	if resp.Payloads, err = s.store.GetRawPayloadStats(); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}
	if resp.Waitlist, err = s.store.WaitlistCount(); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type waitlistRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleWaitlist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Only POST requests allowed", nil)
		return
	}

	var req waitlistRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Email is required", nil)
		return
	}

	err := s.waitlist.Submit(r.Context(), req.Email)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, waitlist.ErrEmailRequired):
		writeError(w, http.StatusBadRequest, "Email is required", nil)
	case errors.Is(err, waitlist.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "Invalid email address", nil)
	default:
		LoggerFrom(r.Context()).Error("waitlist submit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error", err)
	}
}
