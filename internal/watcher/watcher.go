package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"refsync/lib/sl"
)

type Core interface {
	ReconcileVerifications(ctx context.Context) int
}

// Watcher periodically promotes registrations that were sent to the
// member database once the member account shows up.
type Watcher struct {
	core      Core
	log       *slog.Logger
	interval  time.Duration
	scheduler gocron.Scheduler
}

func New(core Core, log *slog.Logger, intervalSeconds int) (*Watcher, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		core:      core,
		log:       log.With(sl.Module("internal.watcher")),
		interval:  time.Duration(intervalSeconds) * time.Second,
		scheduler: scheduler,
	}, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	_, err := w.scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.run, ctx),
	)
	if err != nil {
		return err
	}
	w.scheduler.Start()
	w.log.Info("verification watcher started", slog.Duration("interval", w.interval))
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	promoted := w.core.ReconcileVerifications(ctx)
	if promoted > 0 {
		w.log.Info("registrations verified", slog.Int("count", promoted))
	}
}

func (w *Watcher) Stop() {
	_ = w.scheduler.Shutdown()
	w.log.Info("verification watcher stopped")
}
