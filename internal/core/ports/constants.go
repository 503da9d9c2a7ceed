package ports

import "time"

const (
	MaintenancePollInterval = 60 * time.Second       // How often the maintenance flag is re-read
	SnapshotRefreshInterval = 5 * time.Minute        // How often fallback snapshots are refreshed
	ReconcileDebounce       = 400 * time.Millisecond // Quiet period before an optimistic refetch
	HasRecordsTTL           = 5 * time.Minute        // Module record-existence cache lifetime
	SessionKickCountdown    = 15 * time.Second       // Grace before a kicked session is signed out
)
