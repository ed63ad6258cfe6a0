package feed

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"practice-planner/internal/calendar"
	"practice-planner/internal/plan"
)

// IssueToken generates a signed share token granting read access to one
// user's calendar feed. Tokens are meant to be pasted into a calendar app's
// subscription URL, so the TTL is long by default.
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("feed token secret is not configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
		"aud": "calendar-feed",
	})
	return token.SignedString(secret)
}

func verifyToken(secret []byte, tokenString string) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("feed token secret is not configured")
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithAudience("calendar-feed"), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("invalid feed token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("feed token missing subject")
	}
	return sub, nil
}

// PlanSource loads the plan to publish for a user.
type PlanSource interface {
	Latest(ctx context.Context, userID string) (*plan.WeeklyPracticePlan, error)
}

// Server serves token-authenticated iCalendar feeds over HTTP.
type Server struct {
	plans     PlanSource
	projector *calendar.Projector
	secret    []byte
}

// NewServer creates a feed Server.
func NewServer(plans PlanSource, secret []byte) *Server {
	return &Server{
		plans:     plans,
		projector: calendar.NewProjector(),
		secret:    secret,
	}
}

// Routes registers the feed endpoints on the given mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/calendar.ics", s.handleFeed)
	mux.HandleFunc("/health", s.handleHealth)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := verifyToken(s.secret, tokenString)
	if err != nil {
		log.Printf("Warning: rejected feed request: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	latest, err := s.plans.Latest(r.Context(), userID)
	if err != nil {
		log.Printf("failed to load plan for feed: %v", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}
	if latest == nil {
		http.Error(w, "No plan found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=practice-plan.ics")
	fmt.Fprint(w, s.projector.Project(*latest))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}
