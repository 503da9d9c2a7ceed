package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/brpainel/painel-gateway/internal/core/ports"
	"github.com/brpainel/painel-gateway/internal/metrics"
)

// MaintenancePoller keeps the maintenance flag fresh. The flag is read on an
// interval, never per request, so a config-store outage degrades to serving
// the last-known value.
type MaintenancePoller struct {
	logger  *slog.Logger
	service ports.MaintenanceService

	pollInterval time.Duration
}

func NewMaintenancePoller(logger *slog.Logger, service ports.MaintenanceService, pollInterval time.Duration) *MaintenancePoller {
	return &MaintenancePoller{
		logger:       logger,
		service:      service,
		pollInterval: pollInterval,
	}
}

// Start begins the periodic flag reads. An immediate first poll runs so the
// gateway never serves with an unknown flag.
func (mp *MaintenancePoller) Start(ctx context.Context) {
	mp.logger.Info("Starting maintenance poller", "poll_interval", mp.pollInterval.String())

	mp.poll(ctx)

	ticker := time.NewTicker(mp.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mp.logger.Info("Maintenance poller stopped")
			return
		case <-ticker.C:
			mp.poll(ctx)
		}
	}
}

func (mp *MaintenancePoller) poll(ctx context.Context) {
	err := mp.service.Poll(ctx)
	metrics.ObserveMaintenancePoll(err, mp.service.Active())
	if err != nil {
		mp.logger.Error("Maintenance poll failed", "error", err)
	}
}
