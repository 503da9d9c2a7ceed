package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brpainel/painel-gateway/internal/eventbus"
	"github.com/brpainel/painel-gateway/internal/metrics"
)

// Instrument records every outgoing request in the gateway's metrics.
func Instrument() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.Do(req)
			metrics.ObserveUpstreamRequest(req.Method, err, time.Since(start))
			return resp, err
		})
	}
}

// BearerAuth attaches the Authorization header to every outgoing request.
func BearerAuth(tokens TokenFunc) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			token, err := tokens(req.Context())
			if err != nil {
				return nil, err
			}
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			return next.Do(req)
		})
	}
}

// kickPayload is the metadata the auth service includes when a session was
// taken over from another device.
type kickPayload struct {
	Error    *string `json:"error"`
	Message  *string `json:"message"`
	Device   string  `json:"device"`
	Location string  `json:"location"`
}

const loggedElsewhereCode = "logged_in_elsewhere"

// SessionGuard inspects 401 responses from upstream.
//
// A "logged in elsewhere" payload raises a SessionKicked event carrying the
// offending device and location and schedules the sign-out after a countdown
// instead of dropping the session immediately. 401s from the non-critical
// denylist (notifications, session monitor, stats) are swallowed: flaky side
// endpoints must never log the account out. Any other 401 whose body carries
// authentication-failure language signs out right away.
type SessionGuard struct {
	logger    *slog.Logger
	bus       *eventbus.Bus
	denylist  []string
	countdown time.Duration
	signOut   func(reason string)
}

func NewSessionGuard(logger *slog.Logger, bus *eventbus.Bus, denylist []string, countdown time.Duration, signOut func(reason string)) *SessionGuard {
	return &SessionGuard{
		logger:    logger,
		bus:       bus,
		denylist:  denylist,
		countdown: countdown,
		signOut:   signOut,
	}
}

// Middleware returns the chain element performing the inspection.
func (g *SessionGuard) Middleware() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.Do(req)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}
			g.inspect(req.Context(), req.URL.Path, resp)
			return resp, nil
		})
	}
}

func (g *SessionGuard) inspect(ctx context.Context, path string, resp *http.Response) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return
	}

	var payload kickPayload
	_ = json.Unmarshal(body, &payload)

	switch {
	case isLoggedElsewhere(payload):
		deadline := time.Now().Add(g.countdown)
		g.logger.Warn("session taken over by another device",
			"device", payload.Device, "location", payload.Location, "deadline", deadline)
		g.bus.Publish(ctx, eventbus.SessionKicked{
			Device:   payload.Device,
			Location: payload.Location,
			Deadline: deadline,
		})
		time.AfterFunc(g.countdown, func() { g.signOut("logged in elsewhere") })

	case g.denylisted(path):
		g.logger.Debug("swallowing 401 from non-critical endpoint", "path", path)

	case isAuthFailure(payload):
		g.logger.Warn("upstream rejected session, signing out", "path", path)
		g.bus.Publish(ctx, eventbus.SignedOut{Reason: "authentication failed"})
		g.signOut("authentication failed")
	}
}

func (g *SessionGuard) denylisted(path string) bool {
	for _, p := range g.denylist {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isLoggedElsewhere(p kickPayload) bool {
	if p.Error != nil && *p.Error == loggedElsewhereCode {
		return true
	}
	return p.Message != nil && strings.Contains(strings.ToLower(*p.Message), "outro dispositivo")
}

var authFailureHints = []string{
	"token",
	"unauthorized",
	"não autorizado",
	"sessão expirada",
}

func isAuthFailure(p kickPayload) bool {
	for _, field := range []*string{p.Error, p.Message} {
		if field == nil {
			continue
		}
		text := strings.ToLower(*field)
		for _, hint := range authFailureHints {
			if strings.Contains(text, hint) {
				return true
			}
		}
	}
	return false
}
