package usecases

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brpainel/painel-gateway/internal/entities"
)

func TestMaintenancePollFlipsFlag(t *testing.T) {
	panel := newFakePanel()
	panel.respond("GET /config/maintenance_mode", entities.ConfigEntry{Key: entities.MaintenanceKey, Value: "1"})

	svc := NewMaintenanceService(slog.Default(), panel)
	require.False(t, svc.Active())

	require.NoError(t, svc.Poll(context.Background()))
	require.True(t, svc.Active())

	panel.respond("GET /config/maintenance_mode", entities.ConfigEntry{Key: entities.MaintenanceKey, Value: "0"})
	require.NoError(t, svc.Poll(context.Background()))
	require.False(t, svc.Active())
}

func TestMaintenancePollFailureKeepsPreviousValue(t *testing.T) {
	panel := newFakePanel()
	panel.respond("GET /config/maintenance_mode", entities.ConfigEntry{Key: entities.MaintenanceKey, Value: "true"})

	svc := NewMaintenanceService(slog.Default(), panel)
	require.NoError(t, svc.Poll(context.Background()))
	require.True(t, svc.Active())

	panel.fail("GET /config/maintenance_mode", errors.New("config store unreachable"))
	require.Error(t, svc.Poll(context.Background()))
	require.True(t, svc.Active(), "a failed poll must not flap the flag")
}

func TestMaintenanceAllowBypassesSupportAndAdmin(t *testing.T) {
	panel := newFakePanel()
	panel.respond("GET /config/maintenance_mode", entities.ConfigEntry{Key: entities.MaintenanceKey, Value: "1"})

	svc := NewMaintenanceService(slog.Default(), panel)
	require.NoError(t, svc.Poll(context.Background()))

	require.False(t, svc.Allow(entities.Session{AccountID: "acc-1"}))
	require.True(t, svc.Allow(entities.Session{AccountID: "acc-2", Support: true}))
	require.True(t, svc.Allow(entities.Session{AccountID: "acc-3", Admin: true}))

	panel.respond("GET /config/maintenance_mode", entities.ConfigEntry{Key: entities.MaintenanceKey, Value: "0"})
	require.NoError(t, svc.Poll(context.Background()))
	require.True(t, svc.Allow(entities.Session{AccountID: "acc-1"}))
}
