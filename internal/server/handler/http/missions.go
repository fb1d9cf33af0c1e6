package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fieldops/missiond/internal/apperror"
	"github.com/fieldops/missiond/internal/middleware"
	"github.com/fieldops/missiond/internal/models"
	"github.com/fieldops/missiond/internal/service"
)

// MissionService defines the mission operations required by MissionHandler.
type MissionService interface {
	Create(ctx context.Context, in *models.CreateMissionInput) (*models.Mission, error)
	Get(ctx context.Context, missionID string) (*models.Mission, error)
	Open(ctx context.Context, missionID, actorID string) (*models.Mission, error)
	Update(ctx context.Context, missionID string, upd *models.MissionUpdate) (*models.Mission, error)
	List(ctx context.Context, filter models.MissionFilter) ([]models.Mission, error)
	ListMine(ctx context.Context, userID string, page, limit int, filter models.MissionFilter) (*models.MissionPage, error)
}

// MissionHandler handles HTTP requests for missions.
type MissionHandler struct {
	MissionService MissionService
	Log            *zap.Logger
}

// List handles GET /api/missions.
func (h *MissionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.MissionFilter{Status: models.Status(r.URL.Query().Get("status"))}
	missions, err := h.MissionService.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, missions)
}

// ListMine handles GET /api/missions/mine for the authenticated user.
func (h *MissionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), service.DefaultPage)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	limit, err := intParam(q.Get("limit"), service.DefaultLimit)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	userID := middleware.GetUserIDFromContext(r.Context())
	filter := models.MissionFilter{Status: models.Status(q.Get("status"))}
	result, err := h.MissionService.ListMine(r.Context(), userID, page, limit, filter)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation("page and limit must be positive integers")
	}
	return v, nil
}

// Get handles GET /api/missions/{id}.
func (h *MissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.MissionService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Create handles POST /api/missions.
func (h *MissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.CreateMissionInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	m, err := h.MissionService.Create(r.Context(), &in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// Open handles POST /api/missions/{id}/open. A mission that is not
// unopened yields 409 with its current status.
func (h *MissionHandler) Open(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUserIDFromContext(r.Context())
	m, err := h.MissionService.Open(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Update handles POST /api/missions/{id}/update.
func (h *MissionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd models.MissionUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	m, err := h.MissionService.Update(r.Context(), chi.URLParam(r, "id"), &upd)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
