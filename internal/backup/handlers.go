package backup

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/model"
)

// Handler wires the backup service to HTTP.
type Handler struct {
	Svc    *Service
	Tasks  *asynq.Client
	Logger zerolog.Logger
}

// Routes mounts the backup endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)
	r.Post("/schedule", h.Schedule)
}

// Export returns a full-dataset snapshot inline.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "backup service not configured", nil)
		return
	}
	backup, err := h.Svc.Export(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": backup})
}

// Import replaces the dataset with the posted snapshot.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var payload model.Backup
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid backup payload", nil)
		return
	}
	if err := h.Svc.Import(r.Context(), payload); err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"imported": true}})
}

// Schedule enqueues a background export processed by the worker.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	if h.Tasks == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "task queue not configured", nil)
		return
	}
	info, err := h.Tasks.EnqueueContext(r.Context(), NewExportTask())
	if err != nil {
		h.Logger.Error().Err(err).Msg("enqueue backup export failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to schedule backup", nil)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{"data": map[string]any{"taskId": info.ID}})
}
