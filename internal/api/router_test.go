package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"societyhub/internal/auth"
	"societyhub/internal/booking"
	"societyhub/internal/database"
	"societyhub/internal/events"
	"societyhub/internal/maintenance"
	"societyhub/internal/model"
	"societyhub/internal/payments"
	"societyhub/internal/polls"
	"societyhub/internal/visitors"
)

type testServer struct {
	router *gin.Engine
	db     *database.DB
	tokens *auth.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zerolog.Nop()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens := auth.NewManager("test-secret", time.Hour)
	router := SetupRouter(Deps{
		DB:          db,
		Tokens:      tokens,
		Bookings:    booking.NewService(db, nil, nil, 30, &logger),
		Visitors:    visitors.NewService(db, nil, &logger),
		Events:      events.NewService(db, nil, &logger),
		Maintenance: maintenance.NewService(db, nil, &logger),
		Payments:    payments.NewService(db, &logger),
		Polls:       polls.NewService(db, &logger),
	})
	return &testServer{router: router, db: db, tokens: tokens}
}

func (ts *testServer) seedProfile(t *testing.T, email, password string, role model.Role) *model.Profile {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	profile := &model.Profile{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test " + string(role),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, ts.db.CreateProfile(t.Context(), profile))
	return profile
}

func (ts *testServer) token(t *testing.T, p *model.Profile) string {
	t.Helper()
	token, err := ts.tokens.Issue(p.ID, p.Role)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.seedProfile(t, "resident@example.com", "hunter2secret", model.RoleMember)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "resident@example.com",
		"password": "hunter2secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token   string        `json:"token"`
		Profile model.Profile `json:"profile"`
	}
	decodeBody(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "resident@example.com", resp.Profile.Email)

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "resident@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/facilities", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/facilities", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMemberCannotManageFacilities(t *testing.T) {
	ts := newTestServer(t)
	member := ts.seedProfile(t, "member@example.com", "password123", model.RoleMember)

	rec := ts.do(t, http.MethodPost, "/api/v1/facilities", ts.token(t, member), gin.H{
		"name":       "Clubhouse",
		"open_time":  "08:00",
		"close_time": "20:00",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBookingLifecycle(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.seedProfile(t, "admin@example.com", "password123", model.RoleAdmin)
	member := ts.seedProfile(t, "member@example.com", "password123", model.RoleMember)
	rival := ts.seedProfile(t, "rival@example.com", "password123", model.RoleMember)

	adminToken := ts.token(t, admin)
	memberToken := ts.token(t, member)

	rec := ts.do(t, http.MethodPost, "/api/v1/facilities", adminToken, gin.H{
		"name":                 "Community Hall",
		"hourly_rate":          500,
		"open_time":            "08:00",
		"close_time":           "22:00",
		"min_duration_minutes": 60,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var facility model.Facility
	decodeBody(t, rec, &facility)

	date := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	rec = ts.do(t, http.MethodPost, "/api/v1/bookings", memberToken, gin.H{
		"facility_id": facility.ID,
		"date":        date,
		"start":       "10:00",
		"end":         "12:00",
		"purpose":     "birthday party",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Booking
	decodeBody(t, rec, &created)
	assert.Equal(t, model.BookingPending, created.Status)
	assert.Equal(t, int64(1000), created.TotalAmount)

	// An overlapping request conflicts even while the first is pending.
	rec = ts.do(t, http.MethodPost, "/api/v1/bookings", ts.token(t, rival), gin.H{
		"facility_id": facility.ID,
		"date":        date,
		"start":       "11:00",
		"end":         "13:00",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Members cannot decide.
	rec = ts.do(t, http.MethodPost, "/api/v1/bookings/"+itoa(created.ID)+"/decision", memberToken, gin.H{
		"decision": "approve",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/bookings/"+itoa(created.ID)+"/decision", adminToken, gin.H{
		"decision": "approve",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var approved model.Booking
	decodeBody(t, rec, &approved)
	assert.Equal(t, model.BookingApproved, approved.Status)

	// Second decision is rejected.
	rec = ts.do(t, http.MethodPost, "/api/v1/bookings/"+itoa(created.ID)+"/decision", adminToken, gin.H{
		"decision": "reject",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Requester cancels the future approved booking.
	rec = ts.do(t, http.MethodPost, "/api/v1/bookings/"+itoa(created.ID)+"/cancel", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled model.Booking
	decodeBody(t, rec, &cancelled)
	assert.Equal(t, model.BookingCancelled, cancelled.Status)
}

func TestConcurrentIdenticalRequestsOneWinner(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.seedProfile(t, "admin@example.com", "password123", model.RoleAdmin)
	first := ts.seedProfile(t, "first@example.com", "password123", model.RoleMember)
	second := ts.seedProfile(t, "second@example.com", "password123", model.RoleMember)
	tokens := []string{ts.token(t, first), ts.token(t, second)}

	rec := ts.do(t, http.MethodPost, "/api/v1/facilities", ts.token(t, admin), gin.H{
		"name":                 "Tennis Court",
		"hourly_rate":          200,
		"open_time":            "06:00",
		"close_time":           "22:00",
		"min_duration_minutes": 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var facility model.Facility
	decodeBody(t, rec, &facility)

	body, err := json.Marshal(gin.H{
		"facility_id": facility.ID,
		"date":        time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
		"start":       "09:00",
		"end":         "10:00",
	})
	require.NoError(t, err)

	codes := make(chan int, len(tokens))
	for _, token := range tokens {
		go func(token string) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			ts.router.ServeHTTP(rec, req)
			codes <- rec.Code
		}(token)
	}

	got := []int{<-codes, <-codes}
	sort.Ints(got)
	assert.Equal(t, []int{http.StatusCreated, http.StatusConflict}, got)
}

func TestAvailableSlotsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.seedProfile(t, "admin@example.com", "password123", model.RoleAdmin)
	member := ts.seedProfile(t, "member@example.com", "password123", model.RoleMember)
	adminToken := ts.token(t, admin)
	memberToken := ts.token(t, member)

	rec := ts.do(t, http.MethodPost, "/api/v1/facilities", adminToken, gin.H{
		"name":       "Tennis Court",
		"open_time":  "06:00",
		"close_time": "21:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var facility model.Facility
	decodeBody(t, rec, &facility)

	date := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	rec = ts.do(t, http.MethodPost, "/api/v1/bookings", memberToken, gin.H{
		"facility_id": facility.ID,
		"date":        date,
		"start":       "09:00",
		"end":         "10:30",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/facilities/"+itoa(facility.ID)+"/slots?date="+date, memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Slots []model.Interval `json:"slots"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Slots, 2)
	assert.Equal(t, "06:00", resp.Slots[0].Start.String())
	assert.Equal(t, "09:00", resp.Slots[0].End.String())
	assert.Equal(t, "10:30", resp.Slots[1].Start.String())
	assert.Equal(t, "21:00", resp.Slots[1].End.String())
}

func TestVisitorGateFlow(t *testing.T) {
	ts := newTestServer(t)
	member := ts.seedProfile(t, "host@example.com", "password123", model.RoleMember)
	secretary := ts.seedProfile(t, "office@example.com", "password123", model.RoleSecretary)
	guard := ts.seedProfile(t, "guard@example.com", "password123", model.RoleSecurity)
	memberToken := ts.token(t, member)
	secretaryToken := ts.token(t, secretary)
	guardToken := ts.token(t, guard)

	rec := ts.do(t, http.MethodPost, "/api/v1/visitors", memberToken, gin.H{
		"visitor_name":  "Uncle Bob",
		"expected_date": time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var visitor model.Visitor
	decodeBody(t, rec, &visitor)
	require.NotEmpty(t, visitor.GatePass)

	// The host cannot approve their own guest.
	rec = ts.do(t, http.MethodPost, "/api/v1/visitors/"+itoa(visitor.ID)+"/approve", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/visitors/"+itoa(visitor.ID)+"/approve", secretaryToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/visitors/pass/"+visitor.GatePass+"/check-in", guardToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var checkedIn model.Visitor
	decodeBody(t, rec, &checkedIn)
	assert.Equal(t, model.VisitorCheckedIn, checkedIn.Status)

	// Double check-in conflicts.
	rec = ts.do(t, http.MethodPost, "/api/v1/visitors/pass/"+visitor.GatePass+"/check-in", guardToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPollSingleChoiceVoting(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.seedProfile(t, "admin@example.com", "password123", model.RoleAdmin)
	member := ts.seedProfile(t, "voter@example.com", "password123", model.RoleMember)
	adminToken := ts.token(t, admin)
	memberToken := ts.token(t, member)

	rec := ts.do(t, http.MethodPost, "/api/v1/polls", adminToken, gin.H{
		"title":   "Gym opening hour",
		"options": []string{"5am", "6am"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var poll model.Poll
	decodeBody(t, rec, &poll)

	rec = ts.do(t, http.MethodPost, "/api/v1/polls/"+itoa(poll.ID)+"/vote", memberToken, gin.H{
		"option_id": "1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// A second ballot for a different option must not slip past the
	// single-choice guard.
	rec = ts.do(t, http.MethodPost, "/api/v1/polls/"+itoa(poll.ID)+"/vote", memberToken, gin.H{
		"option_id": "2",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/polls/"+itoa(poll.ID)+"/results", memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results polls.Results
	decodeBody(t, rec, &results)
	assert.Equal(t, 1, results.Total)
}

func TestNotificationsInbox(t *testing.T) {
	ts := newTestServer(t)
	member := ts.seedProfile(t, "member@example.com", "password123", model.RoleMember)
	token := ts.token(t, member)

	require.NoError(t, ts.db.CreateNotification(t.Context(), &model.Notification{
		UserID:  member.ID,
		Title:   "Booking approved",
		Message: "Your booking was approved",
		Type:    "booking",
	}))

	rec := ts.do(t, http.MethodGet, "/api/v1/notifications?unread=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Notification
	decodeBody(t, rec, &list)
	require.Len(t, list, 1)

	rec = ts.do(t, http.MethodPost, "/api/v1/notifications/"+itoa(list[0].ID)+"/read", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/notifications?unread=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = nil
	decodeBody(t, rec, &list)
	assert.Empty(t, list)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
