package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/brpainel/painel-gateway/internal/entities"
)

// MaintenanceService holds the last-known system-wide maintenance flag. The
// maintenance worker polls it; the HTTP middleware consults it on every
// request. Poll failures keep the previous value so a flaky config service
// never flaps the interstitial.
type MaintenanceService struct {
	logger *slog.Logger
	api    PanelClient

	mu        sync.RWMutex
	active    bool
	checkedAt time.Time
}

func NewMaintenanceService(logger *slog.Logger, api PanelClient) *MaintenanceService {
	return &MaintenanceService{logger: logger, api: api}
}

// Poll re-reads the maintenance flag from the upstream config store.
func (s *MaintenanceService) Poll(ctx context.Context) error {
	var entry entities.ConfigEntry
	if err := s.api.Get(ctx, "/config/"+entities.MaintenanceKey, nil, &entry); err != nil {
		return err
	}

	s.mu.Lock()
	changed := s.active != entry.On()
	s.active = entry.On()
	s.checkedAt = time.Now()
	s.mu.Unlock()

	if changed {
		s.logger.Info("maintenance flag changed", "active", entry.On())
	}
	return nil
}

// Active reports the last-known flag value.
func (s *MaintenanceService) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Allow reports whether the session may pass while maintenance is up.
// Support and admin accounts always pass.
func (s *MaintenanceService) Allow(session entities.Session) bool {
	if !s.Active() {
		return true
	}
	return session.Support || session.Admin
}
