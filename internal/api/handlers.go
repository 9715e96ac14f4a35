package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pharmapet/pharmapet/internal/core"
	"github.com/pharmapet/pharmapet/internal/storage"
)

// --- Health status ---

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	status, message := s.statusCache.Current()
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  string(status),
		"message": message,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// Classification runs on the daemon context: a dropped request must
	// not cancel an analysis that could trigger a critical alert.
	go func() {
		if err := s.analyzer.Analyze(s.daemonCtx); err != nil {
			s.log.Warn("analysis failed: %v", err)
		}
	}()

	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "analysis started"})
}

// --- Pet ---

func (s *Server) handleGetPet(w http.ResponseWriter, r *http.Request) {
	status := s.resolver.Current(r.Context())
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":    s.settings.PetName(r.Context()),
		"emotion": status.Emotion,
		"reason":  status.Reason,
	})
}

func (s *Server) handleSetPetName(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := s.settings.Set(r.Context(), storage.KeyPetName, name); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"name": name})
}

// --- Medications ---

func (s *Server) handleGetMedications(w http.ResponseWriter, r *http.Request) {
	meds, err := s.meds.GetAll(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if meds == nil {
		meds = []core.Medication{}
	}
	s.respondJSON(w, http.StatusOK, meds)
}

func (s *Server) handleGetMedication(w http.ResponseWriter, r *http.Request) {
	med, err := s.meds.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, med)
}

func (s *Server) handleCreateMedication(w http.ResponseWriter, r *http.Request) {
	var med core.Medication
	if err := json.NewDecoder(r.Body).Decode(&med); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(med.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	med.ID = ""
	med.LastTaken = 0
	if err := s.meds.Create(r.Context(), &med); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, med)
}

func (s *Server) handleUpdateMedication(w http.ResponseWriter, r *http.Request) {
	med, err := s.meds.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	var updates struct {
		Name          *string `json:"name"`
		Dosage        *string `json:"dosage"`
		Frequency     *string `json:"frequency"`
		IntervalHours *int    `json:"interval_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if updates.Name != nil && strings.TrimSpace(*updates.Name) != "" {
		med.Name = *updates.Name
	}
	if updates.Dosage != nil {
		med.Dosage = *updates.Dosage
	}
	if updates.Frequency != nil {
		med.Frequency = *updates.Frequency
	}
	if updates.IntervalHours != nil && *updates.IntervalHours > 0 {
		med.IntervalHours = *updates.IntervalHours
	}

	if err := s.meds.Update(r.Context(), med); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, med)
}

func (s *Server) handleDeleteMedication(w http.ResponseWriter, r *http.Request) {
	if err := s.meds.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTakeMedication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.meds.MarkTaken(r.Context(), id, time.Now()); err != nil {
		s.respondStoreError(w, err)
		return
	}

	med, err := s.meds.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, med)
}

// --- Metric series ---

func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	var (
		series []core.MetricSeries
		err    error
	)
	if r.URL.Query().Get("all") == "true" {
		series, err = s.metrics.GetAllSeries(r.Context())
	} else {
		series, err = s.metrics.GetVisibleSeries(r.Context())
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if series == nil {
		series = []core.MetricSeries{}
	}
	s.respondJSON(w, http.StatusOK, series)
}

func (s *Server) handleGetOneSeries(w http.ResponseWriter, r *http.Request) {
	series, err := s.metrics.GetSeriesByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, series)
}

func (s *Server) handleCreateSeries(w http.ResponseWriter, r *http.Request) {
	var series core.MetricSeries
	if err := json.NewDecoder(r.Body).Decode(&series); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(series.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	series.ID = ""
	series.Custom = true
	series.Visible = true
	if err := s.metrics.CreateSeries(r.Context(), &series); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, series)
}

func (s *Server) handleUpdateSeries(w http.ResponseWriter, r *http.Request) {
	series, err := s.metrics.GetSeriesByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	var updates struct {
		Name    *string `json:"name"`
		Unit    *string `json:"unit"`
		Visible *bool   `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if updates.Name != nil && strings.TrimSpace(*updates.Name) != "" {
		series.Name = *updates.Name
	}
	if updates.Unit != nil {
		series.Unit = *updates.Unit
	}
	if updates.Visible != nil {
		series.Visible = *updates.Visible
	}

	if err := s.metrics.UpdateSeries(r.Context(), series); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, series)
}

func (s *Server) handleDeleteSeries(w http.ResponseWriter, r *http.Request) {
	if err := s.metrics.DeleteSeries(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPoints(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	points, err := s.metrics.RecentPoints(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if points == nil {
		points = []core.DataPoint{}
	}
	s.respondJSON(w, http.StatusOK, points)
}

func (s *Server) handleLogPoint(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "id")
	if _, err := s.metrics.GetSeriesByID(r.Context(), seriesID); err != nil {
		s.respondStoreError(w, err)
		return
	}

	var point core.DataPoint
	if err := json.NewDecoder(r.Body).Decode(&point); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	point.ID = ""
	point.SeriesID = seriesID
	if err := s.metrics.InsertPoint(r.Context(), &point); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Every logged value triggers a fresh classification, detached from
	// the request lifetime.
	go func() {
		if err := s.analyzer.Analyze(s.daemonCtx); err != nil {
			s.log.Warn("analysis after data point failed: %v", err)
		}
	}()

	s.respondJSON(w, http.StatusCreated, point)
}

// --- Health contacts ---

func (s *Server) handleGetContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.contacts.GetAll(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if contacts == nil {
		contacts = []core.HealthContact{}
	}
	s.respondJSON(w, http.StatusOK, contacts)
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var contact core.HealthContact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(contact.Name) == "" || !strings.Contains(contact.Email, "@") {
		s.respondError(w, http.StatusBadRequest, "name and a valid email are required")
		return
	}

	contact.ID = ""
	if err := s.contacts.Create(r.Context(), &contact); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, contact)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	contact, err := s.contacts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	var updates struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
		Role  *string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if updates.Name != nil && strings.TrimSpace(*updates.Name) != "" {
		contact.Name = *updates.Name
	}
	if updates.Email != nil && strings.Contains(*updates.Email, "@") {
		contact.Email = *updates.Email
	}
	if updates.Role != nil {
		contact.Role = *updates.Role
	}

	if err := s.contacts.Update(r.Context(), contact); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, contact)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := s.contacts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Conditions ---

func (s *Server) handleGetConditions(w http.ResponseWriter, r *http.Request) {
	conditions, err := s.settings.Conditions(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conditions == nil {
		conditions = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string][]string{"conditions": conditions})
}

func (s *Server) handleSetConditions(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Conditions []string `json:"conditions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := s.settings.SaveConditions(r.Context(), input.Conditions); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string][]string{"conditions": input.Conditions})
}

// --- Report ---

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	text := s.reports.Generate(r.Context())
	s.respondJSON(w, http.StatusOK, map[string]string{
		"report":       text,
		"generated_at": time.Now().Format(time.RFC3339),
	})
}

// --- Notifications ---

func (s *Server) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	list, err := s.notify.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.notify.UnreadCount(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.notify.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
