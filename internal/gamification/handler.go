package gamification

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

// Register mounts the gamification routes on an authenticated router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/achievements", h.GetAchievements).Methods("GET")
	r.HandleFunc("/lessons/{id}/complete", h.CompleteLesson).Methods("POST")
	r.HandleFunc("/challenges/{id}/solve", h.SolveChallenge).Methods("POST")
	r.HandleFunc("/leaderboard", h.GetLeaderboard).Methods("GET")
	r.HandleFunc("/progress", h.GetProgress).Methods("GET")
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, h.log, err)
}

// ── Completions ─────────────────────────────────────────

func (h *Handler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.fail(w, r, apperr.Unauthorized("Unauthorized"))
		return
	}

	lessonID, err := httputil.PathInt64(mux.Vars(r), "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req models.CompleteLessonRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	resp, err := h.service.CompleteLesson(r.Context(), userID, lessonID, req.TimeSpentMinutes)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) SolveChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.fail(w, r, apperr.Unauthorized("Unauthorized"))
		return
	}

	challengeID, err := httputil.PathInt64(mux.Vars(r), "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req models.SolveChallengeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	resp, err := h.service.SolveChallenge(r.Context(), userID, challengeID, req.Solution)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// ── Read Views ──────────────────────────────────────────

func (h *Handler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.fail(w, r, apperr.Unauthorized("Unauthorized"))
		return
	}

	resp, err := h.service.GetAchievements(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.fail(w, r, apperr.Unauthorized("Unauthorized"))
		return
	}

	q := r.URL.Query()
	period := models.LeaderboardPeriod(q.Get("period"))
	limit := httputil.IntQueryParam(q, "limit", DefaultLeaderboardLimit)

	resp, err := h.service.GetLeaderboard(r.Context(), userID, period, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.fail(w, r, apperr.Unauthorized("Unauthorized"))
		return
	}

	resp, err := h.service.GetProgress(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
