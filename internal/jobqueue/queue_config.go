package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds all tunable parameters for the background sweep queue.
type QueueConfig struct {
	// MaxWorkers bounds concurrent sweep jobs. Sweeps are cheap; one lane
	// per kind is plenty.
	MaxWorkers int

	// SweepInterval is how often the periodic jobs fire.
	SweepInterval time.Duration

	// JobTimeout bounds a single sweep run.
	JobTimeout time.Duration
}

// DefaultQueueConfig returns the tuning used unless config overrides it.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers:    2,
		SweepInterval: time.Hour,
		JobTimeout:    5 * time.Minute,
	}
}

// RiverQueueConfig converts to River's queue map.
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: c.MaxWorkers},
	}
}
