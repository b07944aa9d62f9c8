package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"vitrina/internal/config"
	"vitrina/internal/models"

	"golang.org/x/time/rate"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	userIDHeaderDefault   = "x-user-id"
	clientKeyUnknown      = "unknown"

	PermReadAvailability = "read:availability"
	PermWriteBookings    = "write:bookings"
	PermAdminBookings    = "admin:bookings"
)

var (
	errPermissionDenied = errors.New("permission denied")
	errBadUserID        = errors.New("invalid user id header")
)

type ctxKey int

const (
	ctxKeyClient ctxKey = iota
	ctxKeyActor
	ctxKeyRequestID
)

// HTTPAuth provides API-key auth, per-key rate limiting and actor resolution.
type HTTPAuth struct {
	cfg      config.APIConfig
	clients  map[string]config.APIClientKey
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m}
}

// Wrap authenticates the caller and puts the resolved actor into the request context.
func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var client *config.APIClientKey
		if a.cfg.Auth.Enabled {
			c, err := a.checkAuth(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			client = c
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		actor, err := a.resolveActor(r, client)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyActor, actor)
		if client != nil {
			ctx = context.WithValue(ctx, ctxKeyClient, *client)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require rejects clients whose key lacks the permission. Without auth every
// caller passes.
func (a *HTTPAuth) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.cfg.Auth.Enabled {
				client, ok := r.Context().Value(ctxKeyClient).(config.APIClientKey)
				if !ok || !hasPermission(client, permission) {
					writeError(w, http.StatusForbidden, errPermissionDenied.Error())
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *HTTPAuth) checkAuth(r *http.Request) (*config.APIClientKey, error) {
	apiKey := strings.TrimSpace(r.Header.Get(a.header(a.cfg.Auth.HeaderAPIKey, apiKeyHeaderDefault)))
	extra := strings.TrimSpace(r.Header.Get(a.header(a.cfg.Auth.HeaderExtra, apiExtraHeaderDefault)))
	if apiKey == "" || extra == "" {
		return nil, errors.New("missing api key headers")
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return nil, errors.New("invalid api key")
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return nil, errors.New("invalid extra header")
	}
	return &client, nil
}

// hasPermission treats an empty permission list as allow-all.
func hasPermission(client config.APIClientKey, required string) bool {
	if len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return true
		}
	}
	return false
}

// resolveActor maps the caller to a domain actor. Admin rights come only from
// an API key holding admin:bookings; the user id header names the end user.
func (a *HTTPAuth) resolveActor(r *http.Request, client *config.APIClientKey) (models.Actor, error) {
	actor := models.Actor{Role: models.RoleClient}
	if client != nil {
		actor.Name = client.Name
		if hasPermission(*client, PermAdminBookings) {
			actor.Role = models.RoleAdmin
		}
	}

	raw := strings.TrimSpace(r.Header.Get(a.header(a.cfg.Auth.HeaderUserID, userIDHeaderDefault)))
	if raw == "" {
		return actor, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return actor, errBadUserID
	}
	actor.UserID = id
	return actor, nil
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	if !a.getLimiter(a.clientKey(r)).Allow() {
		return errors.New("rate limit exceeded")
	}
	return nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.header(a.cfg.Auth.HeaderAPIKey, apiKeyHeaderDefault))); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, _ := a.limiters.LoadOrStore(key, lim)
	return actual.(*rate.Limiter)
}

func (a *HTTPAuth) header(configured, fallback string) string {
	if h := strings.TrimSpace(configured); h != "" {
		return h
	}
	return fallback
}

func actorFrom(ctx context.Context) models.Actor {
	if actor, ok := ctx.Value(ctxKeyActor).(models.Actor); ok {
		return actor
	}
	return models.Actor{Role: models.RoleClient}
}
