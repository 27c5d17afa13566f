package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bryan-buckman/parkline/internal/database"
	"github.com/bryan-buckman/parkline/internal/itinerary"
	"github.com/bryan-buckman/parkline/internal/live"
	"github.com/bryan-buckman/parkline/internal/model"
	"github.com/go-chi/chi/v5"
)

// History window bounds in hours.
const (
	DefaultHistoryHours = 24
	MaxHistoryHours     = 24 * 30
)

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": s.Store.DatabaseType(),
	})
}

// --- Parks ---

func (s *Server) handleParks(w http.ResponseWriter, r *http.Request) {
	parks, err := s.Store.GetParks()
	if err != nil {
		s.Logger.Error("Failed to list parks", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list parks")
		return
	}
	writeJSON(w, http.StatusOK, parks)
}

func (s *Server) handleParkLive(w http.ResponseWriter, r *http.Request) {
	parkID := chi.URLParam(r, "parkID")

	var (
		buckets model.Buckets
		err     error
	)
	if raw := strings.TrimSpace(r.URL.Query().Get("errors")); raw == "" {
		buckets, err = s.Loader.Load(r.Context(), parkID)
	} else {
		policy, perr := live.ParseErrorPolicy(raw)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		buckets, err = s.Loader.LoadWith(r.Context(), parkID, policy)
	}
	if err != nil {
		writeError(w, remoteStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleParkAttractions(w http.ResponseWriter, r *http.Request) {
	parkID := chi.URLParam(r, "parkID")
	if _, err := s.Store.GetParkByID(parkID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "park not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load park")
		return
	}
	attractions, err := s.Store.GetAttractions(parkID)
	if err != nil {
		s.Logger.Error("Failed to list attractions", slog.String("park_id", parkID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list attractions")
		return
	}
	writeJSON(w, http.StatusOK, attractions)
}

// --- Entities ---

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Entities.Entity(r.Context(), chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, remoteStatus(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (s *Server) handleEntityChildren(w http.ResponseWriter, r *http.Request) {
	children, err := s.Entities.Children(r.Context(), chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, remoteStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, children)
}

func (s *Server) handleDestinations(w http.ResponseWriter, r *http.Request) {
	destinations, err := s.Entities.Destinations(r.Context())
	if err != nil {
		writeError(w, remoteStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, destinations)
}

// --- History ---

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	attractionID := chi.URLParam(r, "attractionID")
	hours, err := queryInt(r, "hours", DefaultHistoryHours)
	if err != nil || hours <= 0 {
		writeError(w, http.StatusBadRequest, "hours must be a positive integer")
		return
	}
	if hours > MaxHistoryHours {
		hours = MaxHistoryHours
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	samples, err := s.Store.GetWaitTimeHistory(attractionID, since)
	if err != nil {
		s.Logger.Error("Failed to load history", slog.String("attraction_id", attractionID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

// --- Itinerary ---

func (s *Server) handleItinerary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Itinerary.Items())
}

func (s *Server) handleAddItinerary(w http.ResponseWriter, r *http.Request) {
	var c itinerary.Candidate
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(c.AttractionID) == "" {
		writeError(w, http.StatusBadRequest, "attractionId is required")
		return
	}
	item, err := s.Itinerary.Add(c)
	if err != nil {
		if errors.Is(err, itinerary.ErrDuplicate) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleClearItinerary(w http.ResponseWriter, r *http.Request) {
	s.Itinerary.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveItinerary(w http.ResponseWriter, r *http.Request) {
	removed := s.Itinerary.Remove(chi.URLParam(r, "itemID"))
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", itinerary.DefaultUpcomingLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	writeJSON(w, http.StatusOK, s.Itinerary.Upcoming(limit))
}

func (s *Server) handleContains(w http.ResponseWriter, r *http.Request) {
	attractionID := chi.URLParam(r, "attractionID")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"attractionId": attractionID,
		"contains":     s.Itinerary.Contains(attractionID),
	})
}

// --- News ---

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	items, err := s.News.Latest(limit)
	if err != nil {
		s.Logger.Error("Failed to list news", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list news")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// --- Refresh & settings ---

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), RefreshTimeout)
	defer cancel()

	report, err := s.Refresher.RunOnce(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "refresh failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	interval, _ := s.Store.GetPollingInterval()
	writeJSON(w, http.StatusOK, map[string]int{"polling_interval": interval})
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PollingInterval int `json:"polling_interval"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PollingInterval < database.MinPollingIntervalMinutes {
		req.PollingInterval = database.MinPollingIntervalMinutes
	}
	if err := s.Store.SetSetting(model.SettingPollingInterval, strconv.Itoa(req.PollingInterval)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"polling_interval": req.PollingInterval})
}
