package waitlist

import (
	"context"
	"log"
	"time"
)

// Sweeper processes expired confirmation windows. Implemented by the
// admission service, which owns the revert-and-renotify sequence.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// JobProcessor handles background jobs for waitlist operations
type JobProcessor struct {
	sweeper Sweeper
	config  *JobConfig
	done    chan struct{}
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	SweepInterval time.Duration
	BatchSize     int
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		SweepInterval: 1 * time.Minute, // Check for expired offers every minute
		BatchSize:     100,             // Process 100 expired entries at a time
	}
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(sweeper Sweeper, config *JobConfig) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}

	return &JobProcessor{
		sweeper: sweeper,
		config:  config,
		done:    make(chan struct{}),
	}
}

// Start starts all background jobs
func (jp *JobProcessor) Start(ctx context.Context) {
	log.Println("Starting waitlist background jobs...")

	go jp.startExpirySweeper(ctx)

	log.Println("Waitlist background jobs started")
}

// Stop stops all background jobs
func (jp *JobProcessor) Stop() {
	log.Println("Stopping waitlist background jobs...")
	close(jp.done)
	log.Println("Waitlist background jobs stopped")
}

// startExpirySweeper runs the expired confirmation window sweep on a ticker
func (jp *JobProcessor) startExpirySweeper(ctx context.Context) {
	ticker := time.NewTicker(jp.config.SweepInterval)
	defer ticker.Stop()

	log.Printf("Started expiry sweeper with %v interval", jp.config.SweepInterval)

	for {
		select {
		case <-ticker.C:
			jp.sweepExpired(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) sweepExpired(ctx context.Context) {
	swept, err := jp.sweeper.SweepExpired(ctx)
	if err != nil {
		log.Printf("Error sweeping expired confirmation windows: %v", err)
		return
	}

	if swept > 0 {
		log.Printf("Reverted %d expired confirmation windows", swept)
	}
}

// GetJobStatus returns the status of background jobs
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{
		"sweep_interval": jp.config.SweepInterval.String(),
		"batch_size":     jp.config.BatchSize,
		"status":         "running",
	}
}
