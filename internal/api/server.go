// Package api exposes the receiver's control surface over HTTP: tuning
// parameters, finger state, GPS telemetry injection, and the persisted event
// history.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/cmplx"
	"net/http"
	"strconv"

	"github.com/banshee-data/rake.receiver/internal/db"
	"github.com/banshee-data/rake.receiver/internal/rake"
)

type Server struct {
	receiver *rake.Receiver
	db       *db.DB
}

// NewServer builds the API server. db may be nil when the daemon runs
// without persistence; the history endpoints then return 404.
func NewServer(receiver *rake.Receiver, database *db.DB) *Server {
	return &Server{
		receiver: receiver,
		db:       database,
	}
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Welcome to the RAKE Receiver Server!"))
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/params", s.paramsHandler)
	mux.HandleFunc("/api/fingers", s.listFingers)
	mux.HandleFunc("/api/search-stats", s.searchStats)
	mux.HandleFunc("/api/gps", s.ingestGPS)
	mux.HandleFunc("/api/events", s.listEvents)
	mux.HandleFunc("/api/speeds", s.listSpeeds)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// paramsUpdate mirrors rake.Params with pointer fields so a POST can update
// any subset of the tuning state.
type paramsUpdate struct {
	PathSearchRate         *float64 `json:"path_search_rate,omitempty"`
	TrackingBandwidth      *float64 `json:"tracking_bandwidth,omitempty"`
	PathDetectionThreshold *float64 `json:"path_detection_threshold,omitempty"`
	LockThreshold          *float64 `json:"lock_threshold,omitempty"`
	ReassignmentPeriod     *float64 `json:"reassignment_period,omitempty"`
	GPSSpeed               *float64 `json:"gps_speed,omitempty"`
	AdaptiveMode           *bool    `json:"adaptive_mode,omitempty"`
	Delays                 []int    `json:"delays,omitempty"`
}

func (s *Server) paramsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.receiver.Params())

	case http.MethodPost:
		var update paramsUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
			return
		}
		if err := s.applyParams(update); err != nil {
			if errors.Is(err, rake.ErrConfig) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, s.receiver.Params())

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// applyParams applies a partial update in a fixed order. Adaptive mode is
// applied last so a single request can set manual rates and then enable the
// controller.
func (s *Server) applyParams(update paramsUpdate) error {
	if update.PathSearchRate != nil {
		if err := s.receiver.SetPathSearchRate(*update.PathSearchRate); err != nil {
			return err
		}
	}
	if update.TrackingBandwidth != nil {
		if err := s.receiver.SetTrackingBandwidth(*update.TrackingBandwidth); err != nil {
			return err
		}
	}
	if update.PathDetectionThreshold != nil {
		if err := s.receiver.SetPathDetectionThreshold(*update.PathDetectionThreshold); err != nil {
			return err
		}
	}
	if update.LockThreshold != nil {
		if err := s.receiver.SetLockThreshold(*update.LockThreshold); err != nil {
			return err
		}
	}
	if update.ReassignmentPeriod != nil {
		if err := s.receiver.SetReassignmentPeriod(*update.ReassignmentPeriod); err != nil {
			return err
		}
	}
	if update.Delays != nil {
		if err := s.receiver.SetDelays(update.Delays); err != nil {
			return err
		}
	}
	if update.GPSSpeed != nil {
		s.receiver.SetGPSSpeed(*update.GPSSpeed)
	}
	if update.AdaptiveMode != nil {
		s.receiver.SetAdaptiveMode(*update.AdaptiveMode)
	}
	return nil
}

// fingerView is the JSON shape of one finger; the complex gain is reported
// as magnitude and phase.
type fingerView struct {
	Index       int     `json:"index"`
	Delay       int     `json:"delay"`
	State       string  `json:"state"`
	GainMag     float64 `json:"gain_mag"`
	GainPhase   float64 `json:"gain_phase"`
	SmoothedMag float64 `json:"smoothed_mag"`
	Misses      int     `json:"misses"`
}

func (s *Server) listFingers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fingers := s.receiver.Fingers()
	views := make([]fingerView, len(fingers))
	for i, f := range fingers {
		mag, phase := cmplx.Polar(f.Gain)
		views[i] = fingerView{
			Index:       i,
			Delay:       f.Delay,
			State:       string(f.State),
			GainMag:     mag,
			GainPhase:   phase,
			SmoothedMag: f.SmoothedMag,
			Misses:      f.Misses,
		}
	}
	writeJSON(w, views)
}

func (s *Server) searchStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.receiver.SearchStats())
}

// ingestGPS accepts one telemetry payload per request: an NMEA 0183 sentence
// or a GPSD JSON report, auto-detected.
func (s *Server) ingestGPS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "Missing telemetry payload", http.StatusBadRequest)
		return
	}

	if err := s.receiver.ParseGPSData(string(body)); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse telemetry: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, s.receiver.Params())
}

func (s *Server) queryLimit(r *http.Request) int {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return limit
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "Event history not enabled", http.StatusNotFound)
		return
	}

	events, err := s.db.RecentFingerEvents(s.queryLimit(r))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve events: %v", err), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []db.FingerEventRow{}
	}
	writeJSON(w, events)
}

func (s *Server) listSpeeds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "Speed history not enabled", http.StatusNotFound)
		return
	}

	updates, err := s.db.RecentSpeedUpdates(s.queryLimit(r))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve speed updates: %v", err), http.StatusInternalServerError)
		return
	}
	if updates == nil {
		updates = []db.SpeedUpdateRow{}
	}
	writeJSON(w, updates)
}
