// Package client is a small HTTP client for the vitrina booking API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"vitrina/internal/models"

	"github.com/redis/go-redis/v9"
)

// APIError carries a non-2xx answer of the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// BookingInput is the body of a booking creation request.
type BookingInput struct {
	Date         string  `json:"date"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	IsMultiDay   bool    `json:"is_multi_day"`
	EndDate      *string `json:"end_date,omitempty"`
	ClientName   string  `json:"client_name"`
	ClientEmail  string  `json:"client_email"`
	ClientPhone  string  `json:"client_phone"`
	EventDetails string  `json:"event_details"`
	Notes        string  `json:"notes"`
}

type Client struct {
	baseURL    string
	apiKey     string
	apiExtra   string
	userID     int64
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

func New(baseURL, apiKey, apiExtra string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiExtra:   apiExtra,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// AsUser returns a copy of the client acting for the given end user.
func (c *Client) AsUser(userID int64) *Client {
	cp := *c
	cp.userID = userID
	return &cp
}

// UseRedisCache enables caching of availability and performer reads.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

func (c *Client) ListPerformers(ctx context.Context) ([]models.Performer, error) {
	var wrap struct {
		Performers []models.Performer `json:"performers"`
	}
	if err := c.cachedGet(ctx, "performers", "/api/v1/performers", &wrap); err != nil {
		return nil, err
	}
	return wrap.Performers, nil
}

// CheckAvailability asks whether start-end on date (YYYY-MM-DD) is free.
func (c *Client) CheckAvailability(ctx context.Context, performerID int64, date, start, end string) (bool, error) {
	q := url.Values{"date": {date}, "start": {start}, "end": {end}}
	path := fmt.Sprintf("/api/v1/performers/%d/availability/check?%s", performerID, q.Encode())
	cacheKey := fmt.Sprintf("availability:%d:%s:%s:%s", performerID, date, start, end)

	var resp struct {
		Available bool `json:"available"`
	}
	if err := c.cachedGet(ctx, cacheKey, path, &resp); err != nil {
		return false, err
	}
	return resp.Available, nil
}

func (c *Client) AvailableDates(ctx context.Context, performerID int64) ([]models.AvailableDate, error) {
	var wrap struct {
		Dates []models.AvailableDate `json:"dates"`
	}
	path := fmt.Sprintf("/api/v1/performers/%d/availability/dates", performerID)
	if err := c.cachedGet(ctx, fmt.Sprintf("available_dates:%d", performerID), path, &wrap); err != nil {
		return nil, err
	}
	return wrap.Dates, nil
}

func (c *Client) CreateBooking(ctx context.Context, performerID int64, in BookingInput) (*models.Booking, error) {
	var b models.Booking
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/performers/%d/bookings", performerID), in, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) CancelBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	var b models.Booking
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/cancel", bookingID), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) MyBookings(ctx context.Context) ([]models.Booking, error) {
	var wrap struct {
		Bookings []models.Booking `json:"bookings"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/me/bookings", nil, &wrap); err != nil {
		return nil, err
	}
	return wrap.Bookings, nil
}

func (c *Client) cachedGet(ctx context.Context, key, path string, out any) error {
	if c.readCache(ctx, key, out) {
		return nil
	}
	if err := c.do(ctx, http.MethodGet, path, nil, out); err != nil {
		return err
	}
	c.writeCache(ctx, key, out)
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, c.cacheKey(key)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, c.cacheKey(key), data, c.cacheTTL).Err()
}

func (c *Client) cacheKey(key string) string {
	return "vitrina:client:" + key
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.addHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.apiExtra != "" {
		req.Header.Set("x-api-extra", c.apiExtra)
	}
	if c.userID > 0 {
		req.Header.Set("x-user-id", strconv.FormatInt(c.userID, 10))
	}
}
