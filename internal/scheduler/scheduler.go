package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/tempestwx/stationcore/internal/derive"
)

// Snapshotter exports the rolling-statistic state to persist.
type Snapshotter interface {
	StatSnapshots() map[string]derive.StatSnapshot
}

// Saver persists one station's snapshot set.
type Saver interface {
	Save(station string, stats map[string]derive.StatSnapshot) error
}

// Scheduler periodically persists the engine's rolling statistics so a
// restart resumes without a cold-start history backfill.
type Scheduler struct {
	scheduler *gocron.Scheduler
	engine    Snapshotter
	store     Saver
	station   string
	interval  time.Duration
	log       *slog.Logger
}

// New creates a snapshot scheduler for one station.
func New(station string, interval time.Duration, engine Snapshotter, store Saver, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		engine:    engine,
		store:     store,
		station:   station,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the periodic snapshot job and starts the underlying
// scheduler.
func (s *Scheduler) Start() error {
	if s.store == nil {
		s.log.Info("snapshot persistence disabled; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		stats := s.engine.StatSnapshots()
		if err := s.store.Save(s.station, stats); err != nil {
			s.log.Error("snapshot persist failed", "station", s.station, "error", err)
			return
		}
		s.log.Debug("snapshot persisted", "station", s.station, "stats", len(stats))
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
