package worker

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// StartCleanup purges export files older than maxAgeHours and marks their
// jobs expired so the status endpoint stops advertising dead links.
func StartCleanup(maxAgeHours int, logger *logrus.Logger) {
	if maxAgeHours <= 0 {
		maxAgeHours = 24
	}
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			sweep(time.Duration(maxAgeHours)*time.Hour, logger)
		}
	}()
}

func sweep(maxAge time.Duration, logger *logrus.Logger) {
	cutoff := time.Now().Add(-maxAge)
	processingJobs.Range(func(key, value any) bool {
		id := key.(string)
		res, ok := value.(*Result)
		if !ok || res.Status != StatusComplete {
			return true
		}
		stale := false
		for _, path := range res.Paths {
			info, err := os.Stat(path)
			if err != nil || info.ModTime().Before(cutoff) {
				stale = true
				break
			}
		}
		if !stale {
			return true
		}
		for _, path := range res.Paths {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logger.WithError(err).WithField("path", path).Warn("cleanup remove failed")
			}
		}
		processingJobs.Store(id, &Result{Status: StatusExpired, Owner: res.Owner})
		logger.WithField("id", id).Info("job expired")
		return true
	})
}
