package uploader

import (
	"time"

	"go.uber.org/zap"

	"scenario-uploader/internal/dynamodb"
)

// startProgress logs write throughput every interval until the returned
// stop function is called. stop waits for the reporter to exit.
func startProgress(logger *zap.Logger, stats *dynamodb.Stats, interval time.Duration) func() {
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	startTime := time.Now()

	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastAttempted int64
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				attempted := stats.Attempted.Load()
				elapsedSeconds := time.Since(startTime).Seconds()
				logger.Info("upload progress",
					zap.Int64("attempted", attempted),
					zap.Int64("written", stats.Written.Load()),
					zap.Int64("failed", stats.Failed.Load()),
					zap.Int64("attempted_last_interval", attempted-lastAttempted),
					zap.Float64("avg_written_per_second", float64(stats.Written.Load())/elapsedSeconds))
				lastAttempted = attempted
			}
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}
