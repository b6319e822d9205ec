package assistant

import (
	"errors"
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

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/ai/chat", h.Chat).Methods("POST")
	r.HandleFunc("/ai/usage", h.Usage).Methods("GET")
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.log, apperr.Unauthorized("Unauthorized"))
		return
	}

	var req models.ChatRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}

	resp, err := h.service.Chat(r.Context(), userID, req.Message)
	if errors.Is(err, apperr.ErrQuotaExceeded) {
		h.log.Warn("ai quota exceeded", "user_id", userID)
		httputil.WriteJSON(w, http.StatusTooManyRequests, models.QuotaExceededResponse{
			Error:        apperr.Message(err),
			LimitReached: true,
			Remaining:    0,
			Limit:        h.service.Limit(),
		})
		return
	}
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.log, apperr.Unauthorized("Unauthorized"))
		return
	}

	resp, err := h.service.Usage(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
