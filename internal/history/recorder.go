// Package history applies the best-effort side effects of watching a video:
// bumping the view counter and recording the watch-history entry. Both run
// on a background worker pool so they never block or fail the read path.
package history

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// VideoCounter bumps the monotonic view counter for a video.
type VideoCounter interface {
	IncrementViews(ctx context.Context, videoID string) error
}

// WatchLog appends a video to an account's watch history with set semantics.
type WatchLog interface {
	AppendWatchHistory(ctx context.Context, accountID, videoID string) error
}

// Config controls the concurrency characteristics of the recorder.
type Config struct {
	QueueSize int
	Workers   int
}

// Recorder asynchronously persists playback side effects.
type Recorder struct {
	counter VideoCounter
	log     WatchLog
	logger  *slog.Logger

	jobs   chan playback
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type playback struct {
	videoID  string
	viewerID string
}

// NewRecorder constructs a background worker pool for playback side effects.
func NewRecorder(counter VideoCounter, log WatchLog, cfg Config, logger *slog.Logger) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Recorder{
		counter: counter,
		log:     log,
		logger:  logger,
		jobs:    make(chan playback, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.worker()
	}

	return r
}

// Record schedules the side effects of one playback. viewerID may be empty
// for anonymous viewers, in which case only the counter is bumped. The call
// never blocks: when the queue is full the playback is dropped and logged.
func (r *Recorder) Record(videoID, viewerID string) {
	// The jobs channel is never closed, so the send cannot panic even when
	// Record races Shutdown.
	select {
	case <-r.ctx.Done():
	case r.jobs <- playback{videoID: videoID, viewerID: viewerID}:
	default:
		r.logger.Warn("playback queue full, dropping record", "videoId", videoID)
	}
}

// Shutdown waits for the worker pool to drain outstanding playbacks.
func (r *Recorder) Shutdown(ctx context.Context) error {
	r.once.Do(r.cancel)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case job := <-r.jobs:
			r.handle(job)
		case <-r.ctx.Done():
			// Drain whatever was queued before the cancel.
			for {
				select {
				case job := <-r.jobs:
					r.handle(job)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) handle(job playback) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.counter.IncrementViews(ctx, job.videoID); err != nil {
		r.logger.Error("increment views", "videoId", job.videoID, "error", err)
	}

	if job.viewerID == "" {
		return
	}

	if err := r.log.AppendWatchHistory(ctx, job.viewerID, job.videoID); err != nil {
		r.logger.Error("append watch history", "videoId", job.videoID, "viewerId", job.viewerID, "error", err)
	}
}
