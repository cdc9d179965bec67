// Package httpapi exposes read-only quiz statistics over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/korjavin/examquizbot/models"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// UserLookup reads a user's record without creating it
type UserLookup interface {
	Lookup(ctx context.Context, userID int64) (models.UserRecord, bool, error)
}

// Leaderboard lists the best streaks
type Leaderboard interface {
	TopStreaks(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// Pinger checks that the progress store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds what the API reads from
type Deps struct {
	Users       UserLookup
	Leaderboard Leaderboard
	Store       Pinger
	// AllowedOrigins are the CORS origins allowed to call the API
	AllowedOrigins []string
}

// NewRouter builds the HTTP handler
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", HealthHandler(d.Store))
	r.Route("/api", func(ar chi.Router) {
		ar.Get("/users/{userID}/stats", UserStatsHandler(d.Users))
		ar.Get("/leaderboard", LeaderboardHandler(d.Leaderboard))
	})
	return r
}

// UserStats is the public view of a user record. The active question is
// left out since its number is the answer.
type UserStats struct {
	UserID           int64       `json:"user_id"`
	Username         string      `json:"username,omitempty"`
	FirstName        string      `json:"first_name,omitempty"`
	StreakCurrent    int         `json:"streak_current"`
	StreakBest       int         `json:"streak_best"`
	QuestionsTotal   int         `json:"questions_total"`
	QuestionsCorrect int         `json:"questions_correct"`
	Accuracy         float64     `json:"accuracy"`
	Mode             models.Mode `json:"mode"`
	Lives            int         `json:"lives"`
	UpdatedAt        int64       `json:"updated_at"`
}

func statsOf(rec models.UserRecord) UserStats {
	return UserStats{
		UserID:           rec.UserID,
		Username:         rec.Username,
		FirstName:        rec.FirstName,
		StreakCurrent:    rec.StreakCurrent,
		StreakBest:       rec.StreakBest,
		QuestionsTotal:   rec.QuestionsTotal,
		QuestionsCorrect: rec.QuestionsCorrect,
		Accuracy:         rec.Accuracy(),
		Mode:             rec.Mode,
		Lives:            rec.Lives,
		UpdatedAt:        rec.UpdatedAt,
	}
}

// HealthHandler reports whether the progress store answers
func HealthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				log.Printf("Health check failed: %v", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	}
}

// UserStatsHandler returns the statistics of one user
func UserStatsHandler(users UserLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil || userID <= 0 {
			respondError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		rec, ok, err := users.Lookup(r.Context(), userID)
		if err != nil {
			log.Printf("Error loading user %d: %v", userID, err)
			respondError(w, http.StatusServiceUnavailable, "progress store unavailable")
			return
		}
		if !ok {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondJSON(w, http.StatusOK, statsOf(rec))
	}
}

// LeaderboardHandler returns the best streaks, ?limit=N (default 10, max 100)
func LeaderboardHandler(board Leaderboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLeaderboardLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				respondError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = min(n, maxLeaderboardLimit)
		}

		entries, err := board.TopStreaks(r.Context(), limit)
		if err != nil {
			log.Printf("Error getting leaderboard: %v", err)
			respondError(w, http.StatusServiceUnavailable, "progress store unavailable")
			return
		}
		if entries == nil {
			entries = []models.LeaderboardEntry{}
		}
		respondJSON(w, http.StatusOK, entries)
	}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
