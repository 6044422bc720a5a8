package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempestwx/stationcore/internal/derive"
)

type fakeSnapshotter struct{}

func (fakeSnapshotter) StatSnapshots() map[string]derive.StatSnapshot {
	v := 4.2
	return map[string]derive.StatSnapshot{
		"rain_today": {Value: &v, Anchor: 100},
	}
}

type recordingSaver struct {
	mu       sync.Mutex
	stations []string
	counts   []int
}

func (r *recordingSaver) Save(station string, stats map[string]derive.StatSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stations = append(r.stations, station)
	r.counts = append(r.counts, len(stats))
	return nil
}

func (r *recordingSaver) saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stations)
}

func TestSchedulerPersistsSnapshots(t *testing.T) {
	saver := &recordingSaver{}
	s := New("ST-0001", 50*time.Millisecond, fakeSnapshotter{}, saver, nil)

	require.NoError(t, s.Start())
	defer s.Stop()

	deadline := time.After(3 * time.Second)
	for saver.saves() == 0 {
		select {
		case <-deadline:
			t.Fatal("no snapshot persisted before deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}

	saver.mu.Lock()
	defer saver.mu.Unlock()
	assert.Equal(t, "ST-0001", saver.stations[0])
	assert.Equal(t, 1, saver.counts[0])
}

func TestSchedulerWithoutStoreIsNoop(t *testing.T) {
	s := New("ST-0001", time.Second, fakeSnapshotter{}, nil, nil)
	require.NoError(t, s.Start())
	s.Stop()
}
