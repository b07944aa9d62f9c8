package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"vitrina/internal/config"
	"vitrina/internal/database"
	"vitrina/internal/domain"
	"vitrina/internal/models"
	"vitrina/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

type countingTrigger struct{ n atomic.Int32 }

func (c *countingTrigger) Trigger() bool {
	c.n.Add(1)
	return true
}

type testEnv struct {
	ts        *httptest.Server
	svc       *service.BookingService
	trigger   *countingTrigger
	performer *models.Performer
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true, Port: 0},
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{
					Key: "admin-key", Extra: "admin-extra", Name: "backoffice",
					Permissions: []string{PermReadAvailability, PermWriteBookings, PermAdminBookings},
				},
				{
					Key: "site-key", Extra: "site-extra", Name: "site",
					Permissions: []string{PermReadAvailability, PermWriteBookings},
				},
				{
					Key: "widget-key", Extra: "widget-extra", Name: "widget",
					Permissions: []string{PermReadAvailability},
				},
			},
		},
	}
}

func newTestEnv(t *testing.T, cfg config.APIConfig) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := service.NewBookingService(db, nil, service.Options{Now: func() time.Time { return testNow }}, &logger)
	performer := &models.Performer{Name: "Jazz Trio", PricePerHour: 100}
	require.NoError(t, svc.CreatePerformer(context.Background(), performer, models.SystemActor("test")))

	trigger := &countingTrigger{}
	server := NewHTTPServer(cfg, svc, trigger, &logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, svc: svc, trigger: trigger, performer: performer}
}

type caller struct {
	key, extra string
	userID     int64
}

var (
	adminCaller  = caller{key: "admin-key", extra: "admin-extra", userID: 1}
	siteUser     = caller{key: "site-key", extra: "site-extra", userID: 42}
	siteStranger = caller{key: "site-key", extra: "site-extra", userID: 43}
	widget       = caller{key: "widget-key", extra: "widget-extra"}
)

func (e *testEnv) do(t *testing.T, c caller, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
		req.Header.Set("X-API-Extra", c.extra)
	}
	if c.userID != 0 {
		req.Header.Set("X-User-ID", fmt.Sprint(c.userID))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) createBooking(t *testing.T, c caller, start, end string) models.Booking {
	t.Helper()
	resp := e.do(t, c, http.MethodPost, fmt.Sprintf("/api/v1/performers/%d/bookings", e.performer.ID), bookingRequest{
		Date: "2025-06-01", StartTime: start, EndTime: end, ClientName: "Иван",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[models.Booking](t, resp)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())

	resp := env.do(t, caller{}, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	performers := "/api/v1/performers"

	tests := []struct {
		name   string
		caller caller
		method string
		path   string
		want   int
	}{
		{"no headers", caller{}, http.MethodGet, performers, http.StatusUnauthorized},
		{"bad key", caller{key: "nope", extra: "x"}, http.MethodGet, performers, http.StatusUnauthorized},
		{"bad extra", caller{key: "site-key", extra: "wrong"}, http.MethodGet, performers, http.StatusUnauthorized},
		{"read ok", widget, http.MethodGet, performers, http.StatusOK},
		{"write without permission", widget, http.MethodGet, "/api/v1/me/bookings", http.StatusForbidden},
		{"admin route without permission", siteUser, http.MethodGet, fmt.Sprintf("%s/%d/bookings", performers, env.performer.ID), http.StatusForbidden},
		{"admin route", adminCaller, http.MethodGet, fmt.Sprintf("%s/%d/bookings", performers, env.performer.ID), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, tt.caller, tt.method, tt.path, nil)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestBadUserIDHeader(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/v1/performers", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "site-key")
	req.Header.Set("X-API-Extra", "site-extra")
	req.Header.Set("X-User-ID", "abc")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookingFlow(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	base := fmt.Sprintf("/api/v1/performers/%d", env.performer.ID)

	first := env.createBooking(t, siteUser, "18:00", "22:00")
	assert.Equal(t, models.StatusPending, first.Status)
	assert.Equal(t, "VT-20250520-00001", first.BookingNumber)
	assert.Equal(t, int64(400), first.TotalPrice)

	second := env.createBooking(t, siteStranger, "20:00", "23:00")

	resp := env.do(t, adminCaller, http.MethodPost, fmt.Sprintf("%s/bookings/%d/confirm", base, first.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.StatusConfirmed, decode[models.Booking](t, resp).Status)

	resp = env.do(t, widget, http.MethodGet, base+"/availability/check?date=2025-06-01&start=20:00&end=23:00", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[map[string]any](t, resp)["available"].(bool))

	resp = env.do(t, widget, http.MethodGet, base+"/availability/check?date=2025-06-01&start=22:00&end=23:00", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[map[string]any](t, resp)["available"].(bool))

	resp = env.do(t, adminCaller, http.MethodPost, fmt.Sprintf("%s/bookings/%d/confirm", base, second.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, siteUser, http.MethodPost, fmt.Sprintf("%s/bookings", base), bookingRequest{
		Date: "2025-06-01", StartTime: "19:00", EndTime: "20:00", ClientName: "Пётр",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	assert.GreaterOrEqual(t, env.trigger.n.Load(), int32(2))
}

func TestCancelAndUpdate(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	b := env.createBooking(t, siteUser, "10:00", "13:00")
	path := fmt.Sprintf("/api/v1/bookings/%d", b.ID)

	resp := env.do(t, siteStranger, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, siteUser, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	end := "15:00"
	resp = env.do(t, siteStranger, http.MethodPatch, path, bookingPatchRequest{EndTime: &end})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, siteUser, http.MethodPatch, path, bookingPatchRequest{EndTime: &end})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(500), decode[models.Booking](t, resp).TotalPrice)

	resp = env.do(t, siteStranger, http.MethodPost, path+"/cancel", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, siteUser, http.MethodPost, path+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.StatusCancelled, decode[models.Booking](t, resp).Status)

	resp = env.do(t, siteUser, http.MethodPost, path+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, adminCaller, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, adminCaller, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMyBookings(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	env.createBooking(t, siteUser, "10:00", "11:00")
	env.createBooking(t, siteStranger, "12:00", "13:00")

	resp := env.do(t, siteUser, http.MethodGet, "/api/v1/me/bookings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Bookings []models.Booking `json:"bookings"`
	}](t, resp)
	require.Len(t, body.Bookings, 1)
	assert.Equal(t, "10:00", body.Bookings[0].StartTime)

	resp = env.do(t, caller{key: "site-key", extra: "site-extra"}, http.MethodGet, "/api/v1/me/bookings", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAvailabilityEndpoints(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	base := fmt.Sprintf("/api/v1/performers/%d", env.performer.ID)

	resp := env.do(t, widget, http.MethodGet, base+"/availability?from=2025-06-01&to=2025-06-03", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	days := decode[struct {
		Days []models.DayAvailability `json:"days"`
	}](t, resp)
	assert.Len(t, days.Days, 3)

	resp = env.do(t, widget, http.MethodGet, base+"/availability?from=junk", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, widget, http.MethodGet, base+"/availability/dates", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, widget, http.MethodGet, "/api/v1/performers/999/availability/dates", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, widget, http.MethodGet, base+"/availability/check?date=2025-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, adminCaller, http.MethodGet, base+"/availability.xlsx?from=2025-06-01&to=2025-06-07", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
}

func TestCreatePerformer(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())

	resp := env.do(t, siteUser, http.MethodPost, "/api/v1/performers", performerRequest{Name: "DJ", PricePerHour: 80})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, adminCaller, http.MethodPost, "/api/v1/performers", performerRequest{Name: "DJ", PricePerHour: 80})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Performer](t, resp)
	assert.True(t, created.IsActive)

	resp = env.do(t, adminCaller, http.MethodPost, "/api/v1/performers", map[string]any{"unknown": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthDisabled_ClientOnly(t *testing.T) {
	cfg := testAPIConfig()
	cfg.Auth.Enabled = false
	env := newTestEnv(t, cfg)

	b := env.createBooking(t, caller{userID: 7}, "10:00", "11:00")
	require.NotNil(t, b.OwnerUserID)

	resp := env.do(t, caller{userID: 7}, http.MethodPost,
		fmt.Sprintf("/api/v1/performers/%d/bookings/%d/confirm", env.performer.ID, b.ID), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	cfg := testAPIConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 0.001, Burst: 1}
	env := newTestEnv(t, cfg)

	assert.Equal(t, http.StatusOK, env.do(t, widget, http.MethodGet, "/api/v1/performers", nil).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, widget, http.MethodGet, "/api/v1/performers", nil).StatusCode)
	assert.Equal(t, http.StatusOK, env.do(t, siteUser, http.MethodGet, "/api/v1/performers", nil).StatusCode)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrSlotUnavailable, http.StatusConflict},
		{domain.ErrAlreadyRejected, http.StatusConflict},
		{domain.ErrConcurrentModification, http.StatusConflict},
		{domain.ErrUnauthorized, http.StatusForbidden},
		{domain.ErrInvalidTimeRange, http.StatusBadRequest},
		{domain.ErrInvalidBooking, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", domain.ErrNotFound), http.StatusNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err), tt.err.Error())
	}
}
