package catalog

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

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/lessons", h.ListLessons).Methods("GET")
	r.HandleFunc("/lessons/{id}", h.GetLesson).Methods("GET")
	r.HandleFunc("/lessons/{id}/start", h.StartLesson).Methods("POST")
	r.HandleFunc("/challenges", h.ListChallenges).Methods("GET")
}

func (h *Handler) ListLessons(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.log, apperr.Unauthorized("Unauthorized"))
		return
	}

	q := r.URL.Query()
	resp, err := h.service.ListLessons(r.Context(), userID, models.LessonFilter{
		Language: q.Get("language"),
		Level:    q.Get("level"),
		Category: q.Get("category"),
	})
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.log, apperr.Unauthorized("Unauthorized"))
		return
	}
	lessonID, err := httputil.PathInt64(mux.Vars(r), "id")
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}

	resp, err := h.service.GetLesson(r.Context(), userID, lessonID)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) StartLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.log, apperr.Unauthorized("Unauthorized"))
		return
	}
	lessonID, err := httputil.PathInt64(mux.Vars(r), "id")
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}

	if err := h.service.StartLesson(r.Context(), userID, lessonID); err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

func (h *Handler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.log, apperr.Unauthorized("Unauthorized"))
		return
	}

	q := r.URL.Query()
	resp, err := h.service.ListChallenges(r.Context(), userID, models.ChallengeFilter{
		Language:   q.Get("language"),
		Difficulty: q.Get("difficulty"),
	})
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
