package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/trainerhub/schedule-assistant/internal/middleware"
	"github.com/trainerhub/schedule-assistant/internal/model"
	"github.com/trainerhub/schedule-assistant/internal/schedule"
	"github.com/trainerhub/schedule-assistant/pkg/logger"
)

// ScheduleHandler handles schedule CRUD endpoints.
type ScheduleHandler struct {
	store  *schedule.Store
	logger *logger.Logger
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(store *schedule.Store, log *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		store:  store,
		logger: log,
	}
}

// List handles GET /api/v1/schedule
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.store.List()
	writeJSON(w, http.StatusOK, model.ListEntriesResponse{
		Entries: entries,
		Total:   len(entries),
	})
}

// Create handles POST /api/v1/schedule
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateEntry(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry := h.store.Add(model.ScheduleEntry{
		SchoolName:      req.SchoolName,
		Topic:           req.Topic,
		Date:            req.Date,
		Time:            req.Time,
		Status:          req.Status,
		Trainer:         req.Trainer,
		Location:        req.Location,
		Notes:           req.Notes,
		ReminderMinutes: req.ReminderMinutes,
	})

	h.logger.Info("schedule entry created",
		zap.Int("entry_id", entry.ID),
		zap.String("school", entry.SchoolName),
	)

	writeJSON(w, http.StatusCreated, entry)
}

// Update handles PUT /api/v1/schedule/{id}
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	var req model.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateEntry(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.store.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "schedule entry not found")
		return
	}

	existing.SchoolName = req.SchoolName
	existing.Topic = req.Topic
	existing.Date = req.Date
	existing.Time = req.Time
	existing.Status = req.Status
	existing.Trainer = req.Trainer
	existing.Location = req.Location
	existing.Notes = req.Notes
	existing.ReminderMinutes = req.ReminderMinutes

	if err := h.store.Update(existing); err != nil {
		writeError(w, http.StatusNotFound, "schedule entry not found")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// Delete handles DELETE /api/v1/schedule/{id}
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	if err := h.store.Delete(id); err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			writeError(w, http.StatusNotFound, "schedule entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func entryID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}
