package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"practice-planner/internal/plan"
)

var testSecret = []byte("feed-test-secret")

type stubPlanSource struct {
	plans map[string]*plan.WeeklyPracticePlan
}

func (s *stubPlanSource) Latest(ctx context.Context, userID string) (*plan.WeeklyPracticePlan, error) {
	return s.plans[userID], nil
}

func feedPlan() *plan.WeeklyPracticePlan {
	days := make([]plan.DayPlan, 7)
	names := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	for i := range days {
		days[i] = plan.DayPlan{Day: names[i]}
	}
	days[0].Workout = &plan.WorkoutRoutine{Focus: "Full body", Duration: 45}
	return &plan.WeeklyPracticePlan{
		ID:        "plan-feed",
		CreatedAt: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		WeekStart: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		Goal:      "Stay consistent",
		Days:      days,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	source := &stubPlanSource{plans: map[string]*plan.WeeklyPracticePlan{
		"user-1": feedPlan(),
	}}
	return NewServer(source, testSecret)
}

func TestFeedServesCalendar(t *testing.T) {
	server := newTestServer(t)

	token, err := IssueToken(testSecret, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/calendar.ics?token="+token, nil)
	rec := httptest.NewRecorder()
	server.handleFeed(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Expected text/calendar content type, got %s", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "END:VCALENDAR") {
		t.Error("Expected a complete VCALENDAR document")
	}
	if !strings.Contains(body, "UID:plan-feed-workout-0") {
		t.Error("Expected the Monday workout event in the feed")
	}
}

func TestFeedRejectsMissingToken(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/calendar.ics", nil)
	rec := httptest.NewRecorder()
	server.handleFeed(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestFeedRejectsForgedToken(t *testing.T) {
	server := newTestServer(t)

	forged, err := IssueToken([]byte("some-other-secret"), "user-1", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/calendar.ics?token="+forged, nil)
	rec := httptest.NewRecorder()
	server.handleFeed(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for forged token, got %d", rec.Code)
	}
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	if _, err := IssueToken(nil, "user-1", time.Hour); err == nil {
		t.Error("Expected an error issuing a token without a secret, got nil")
	}
	if _, err := IssueToken([]byte(""), "user-1", time.Hour); err == nil {
		t.Error("Expected an error issuing a token with an empty secret, got nil")
	}
}

func TestFeedRejectsEverythingWithEmptySecret(t *testing.T) {
	source := &stubPlanSource{plans: map[string]*plan.WeeklyPracticePlan{
		"user-1": feedPlan(),
	}}
	server := NewServer(source, []byte(""))

	// A token signed with the same empty key must still be rejected.
	selfSigned := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
		"aud": "calendar-feed",
	})
	signed, err := selfSigned.SignedString([]byte(""))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/calendar.ics?token="+signed, nil)
	rec := httptest.NewRecorder()
	server.handleFeed(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with an empty secret, got %d", rec.Code)
	}
}

func TestFeedRejectsExpiredToken(t *testing.T) {
	server := newTestServer(t)

	expired, err := IssueToken(testSecret, "user-1", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/calendar.ics?token="+expired, nil)
	rec := httptest.NewRecorder()
	server.handleFeed(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for expired token, got %d", rec.Code)
	}
}

func TestFeedReturnsNotFoundWithoutPlan(t *testing.T) {
	server := newTestServer(t)

	token, err := IssueToken(testSecret, "user-without-plans", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/calendar.ics?token="+token, nil)
	rec := httptest.NewRecorder()
	server.handleFeed(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	mux := http.NewServeMux()
	server.Routes(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("Expected ok status body, got %s", rec.Body.String())
	}
}
