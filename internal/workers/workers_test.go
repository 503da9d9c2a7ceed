package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingSyncer struct {
	runs atomic.Int64
}

func (c *countingSyncer) RefreshAll(context.Context) (int, error) {
	c.runs.Add(1)
	return 2, nil
}

func TestSnapshotRefresherRunsImmediatelyAndOnTicks(t *testing.T) {
	syncer := &countingSyncer{}
	sr := NewSnapshotRefresher(slog.Default(), syncer, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sr.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return syncer.runs.Load() >= 3
	}, time.Second, 5*time.Millisecond, "expected the initial run plus ticker runs")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop on context cancel")
	}
}
