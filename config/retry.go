package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const maxBackoff = 30 * time.Second

// connectWithRetry calls connect up to attempts times with exponential backoff.
// Unlike a long-running server, a batch run gives up so the caller can exit.
func connectWithRetry(ctx context.Context, logger logrus.FieldLogger, name string, attempts int, connect func() error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = connect(); err == nil {
			logger.WithField("attempt", attempt).Infof("connected to %s", name)
			return nil
		}
		if attempt == attempts {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > maxBackoff {
			sleep = maxBackoff
		}
		logger.WithField("attempt", attempt).Warnf("failed to connect %s: %v; retrying in %s", name, err, sleep)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
	return fmt.Errorf("connect %s after %d attempts: %w", name, attempts, err)
}
