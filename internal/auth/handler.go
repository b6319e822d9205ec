package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/codebro/backend/internal/apperr"
	"github.com/codebro/backend/internal/httputil"
	"github.com/codebro/backend/internal/logger"
	"github.com/codebro/backend/internal/models"
)

type UserReader interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

type MeResponse struct {
	Identity Identity    `json:"identity"`
	User     models.User `json:"user"`
}

type Handler struct {
	users UserReader
	log   *logger.Logger
}

func NewHandler(users UserReader, log *logger.Logger) *Handler {
	return &Handler{users: users, log: log}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/auth/me", h.GetCurrentUser).Methods("GET")
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	id, ok := FromContext(r.Context())
	if !ok || id.UserID == 0 {
		httputil.WriteError(w, r, h.log, apperr.Unauthorized("Unauthorized"))
		return
	}

	user, err := h.users.GetUser(r.Context(), id.UserID)
	if errors.Is(err, ErrUserNotFound) {
		httputil.WriteError(w, r, h.log, apperr.NotFound("User"))
		return
	}
	if err != nil {
		httputil.WriteError(w, r, h.log, apperr.Upstream("Failed to fetch user", err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, MeResponse{Identity: id, User: *user})
}
