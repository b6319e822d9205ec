package admin

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/codebro/backend/internal/apperr"
	"github.com/codebro/backend/internal/auth"
	"github.com/codebro/backend/internal/httputil"
	"github.com/codebro/backend/internal/logger"
	"github.com/codebro/backend/internal/models"
)

type Handler struct {
	service *Service
	log     *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register mounts the admin routes on r. The caller guards r with
// middleware.RequireRole.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/admin/stats", h.GetStats).Methods("GET")
	r.HandleFunc("/admin/users", h.ListUsers).Methods("GET")
	r.HandleFunc("/admin/users/{id}", h.DeleteUser).Methods("DELETE")
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.service.ListUsers(r.Context(),
		httputil.IntQueryParam(q, "page", 1),
		httputil.IntQueryParam(q, "limit", DefaultPageSize),
	)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.UserID(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.log, apperr.Unauthorized("Unauthorized"))
		return
	}
	userID, err := httputil.PathInt64(mux.Vars(r), "id")
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}

	if err := h.service.DeleteUser(r.Context(), actorID, userID); err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}
