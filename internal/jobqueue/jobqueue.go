/*
Package jobqueue provides a River-based job queue running the periodic
housekeeping sweeps: archiving courses whose grace period has lapsed and
reclaiming expired DRM sessions.

The session sweep is pure housekeeping: expiry is evaluated lazily at read
time. The archive sweep carries semantics: an inactive course stays
reachable until this job moves it to archived, and only then does the
grace deadline start being enforced on reads. For tuning parameters see
queue_config.go.
*/
package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/coursegate/internal/course"
	"github.com/coursegate/internal/drm"
)

// ArchiveSweepArgs triggers one pass of the course archive sweep.
type ArchiveSweepArgs struct{}

// Kind returns the job kind for River
func (ArchiveSweepArgs) Kind() string { return "archive_sweep" }

// ArchiveSweepWorker archives inactive courses past their grace deadline.
type ArchiveSweepWorker struct {
	river.WorkerDefaults[ArchiveSweepArgs]
	courses *course.Service
	config  *QueueConfig
}

// Work performs the archive sweep
func (w *ArchiveSweepWorker) Work(ctx context.Context, _ *river.Job[ArchiveSweepArgs]) error {
	ctx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	archived, err := w.courses.SweepArchives(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("archive sweep: %w", err)
	}
	if archived > 0 {
		log.Info().Int("archived", archived).Msg("archive sweep completed")
	}
	return nil
}

// SessionReclaimArgs triggers one pass of DRM session reclamation.
type SessionReclaimArgs struct{}

// Kind returns the job kind for River
func (SessionReclaimArgs) Kind() string { return "session_reclaim" }

// SessionReclaimWorker compacts expired sessions out of the broker's store.
type SessionReclaimWorker struct {
	river.WorkerDefaults[SessionReclaimArgs]
	broker *drm.Broker
}

// Work performs the session reclamation
func (w *SessionReclaimWorker) Work(_ context.Context, _ *river.Job[SessionReclaimArgs]) error {
	removed := w.broker.Reclaim()
	if removed > 0 {
		log.Info().Int("reclaimed", removed).Msg("session reclaim completed")
	}
	return nil
}

// JobQueue manages the River job queue
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	config *QueueConfig
}

// NewJobQueue creates a new job queue with both sweeps registered as
// periodic jobs.
func NewJobQueue(databaseURL string, courses *course.Service, broker *drm.Broker, sweepInterval time.Duration) (*JobQueue, error) {
	config := DefaultQueueConfig()
	if sweepInterval > 0 {
		config.SweepInterval = sweepInterval
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &ArchiveSweepWorker{courses: courses, config: config})
	river.AddWorker(workers, &SessionReclaimWorker{broker: broker})

	periodic := []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(config.SweepInterval),
			func() (river.JobArgs, *river.InsertOpts) { return ArchiveSweepArgs{}, nil },
			&river.PeriodicJobOpts{RunOnStart: true},
		),
		river.NewPeriodicJob(
			river.PeriodicInterval(config.SweepInterval),
			func() (river.JobArgs, *river.InsertOpts) { return SessionReclaimArgs{}, nil },
			&river.PeriodicJobOpts{RunOnStart: false},
		),
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:       config.RiverQueueConfig(),
		Workers:      workers,
		PeriodicJobs: periodic,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{
		client: client,
		pool:   pool,
		config: config,
	}, nil
}

// Start starts the job queue workers
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop stops the job queue workers
func (jq *JobQueue) Stop(ctx context.Context) error {
	err := jq.client.Stop(ctx)
	jq.pool.Close()
	return err
}
