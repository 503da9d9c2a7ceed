package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.openly.dev/pointy"

	"github.com/brpainel/painel-gateway/internal/eventbus"
)

func TestGetDecodesEnvelopeData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.Equal(t, "10", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode(Envelope{
			Success: true,
			Data:    json.RawMessage(`{"balance": 4200}`),
		})
	}))
	defer srv.Close()

	c := NewClient(slog.Default(), srv.URL, srv.Client(), BearerAuth(StaticToken("tok-123")))

	var out struct {
		Balance int64 `json:"balance"`
	}
	q := url.Values{"limit": []string{"10"}}
	require.NoError(t, c.Get(context.Background(), "/wallet", q, &out))
	require.Equal(t, int64(4200), out.Balance)
}

func TestEnvelopeFailureBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(Envelope{
			Success: false,
			Error:   pointy.String("insufficient_balance"),
			Message: pointy.String("Saldo insuficiente"),
		})
	}))
	defer srv.Close()

	c := NewClient(slog.Default(), srv.URL, srv.Client())

	err := c.Post(context.Background(), "/lookup/cpf", map[string]string{"document": "123"}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "insufficient_balance", apiErr.Code)
	require.Equal(t, "Saldo insuficiente", apiErr.Message)
}

func newGuardedClient(t *testing.T, srvURL string, client *http.Client, bus *eventbus.Bus, signedOut *atomic.Int64) *Client {
	t.Helper()
	guard := NewSessionGuard(slog.Default(), bus,
		[]string{"/notifications", "/session-monitor", "/module-history/stats"},
		10*time.Millisecond,
		func(string) { signedOut.Add(1) },
	)
	return NewClient(slog.Default(), srvURL, client, guard.Middleware(), BearerAuth(StaticToken("tok")))
}

func TestSessionGuardLoggedElsewhere(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"success":  false,
			"error":    "logged_in_elsewhere",
			"message":  "Sua conta foi acessada em outro dispositivo",
			"device":   "iPhone 15",
			"location": "São Paulo, BR",
		})
	}))
	defer srv.Close()

	bus := eventbus.New(slog.Default())
	var kicked []eventbus.SessionKicked
	eventbus.Subscribe(bus, func(_ context.Context, e eventbus.SessionKicked) {
		kicked = append(kicked, e)
	})

	var signedOut atomic.Int64
	c := newGuardedClient(t, srv.URL, srv.Client(), bus, &signedOut)

	err := c.Get(context.Background(), "/dashboard/stats", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)

	require.Len(t, kicked, 1)
	require.Equal(t, "iPhone 15", kicked[0].Device)
	require.Equal(t, "São Paulo, BR", kicked[0].Location)
	require.False(t, kicked[0].Deadline.IsZero())

	// Sign-out happens after the countdown, not immediately.
	require.Zero(t, signedOut.Load())
	require.Eventually(t, func() bool { return signedOut.Load() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestSessionGuardDenylistSwallows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "Unauthorized",
		})
	}))
	defer srv.Close()

	bus := eventbus.New(slog.Default())
	var outs []eventbus.SignedOut
	eventbus.Subscribe(bus, func(_ context.Context, e eventbus.SignedOut) {
		outs = append(outs, e)
	})

	var signedOut atomic.Int64
	c := newGuardedClient(t, srv.URL, srv.Client(), bus, &signedOut)

	err := c.Get(context.Background(), "/notifications", nil, nil)
	require.Error(t, err, "the caller still sees the failure")

	time.Sleep(30 * time.Millisecond)
	require.Zero(t, signedOut.Load(), "denylisted endpoints must not trigger logout")
	require.Empty(t, outs)
}

func TestSessionGuardAuthFailureSignsOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "Sessão expirada, faça login novamente",
		})
	}))
	defer srv.Close()

	bus := eventbus.New(slog.Default())
	var outs []eventbus.SignedOut
	eventbus.Subscribe(bus, func(_ context.Context, e eventbus.SignedOut) {
		outs = append(outs, e)
	})

	var signedOut atomic.Int64
	c := newGuardedClient(t, srv.URL, srv.Client(), bus, &signedOut)

	_ = c.Get(context.Background(), "/wallet", nil, nil)

	require.Len(t, outs, 1)
	require.Equal(t, int64(1), signedOut.Load())
}

func TestTransportErrorIsNotAPIError(t *testing.T) {
	c := NewClient(slog.Default(), "http://127.0.0.1:1", &http.Client{Timeout: 100 * time.Millisecond})

	err := c.Get(context.Background(), "/wallet", nil, nil)
	require.Error(t, err)
	var apiErr *APIError
	require.False(t, errors.As(err, &apiErr))
}
