package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"lechuga_bot_backend/platform/config"
	"lechuga_bot_backend/platform/logger"
)

// ArtifactSweep periodically removes stale files from the uploads and
// reports directories. It covers sessions that never reached a terminal
// path, such as a process restart mid-survey.
type ArtifactSweep struct {
	dirs      []string
	retention time.Duration
	interval  time.Duration
	log       *logger.Logger
}

// NewArtifactSweep creates the sweeper from cleanup configuration.
func NewArtifactSweep(cfg config.CleanupConfig, log *logger.Logger) *ArtifactSweep {
	return &ArtifactSweep{
		dirs:      []string{cfg.GetUploadsDir(), cfg.GetReportsDir()},
		retention: cfg.GetArtifactRetention(),
		interval:  cfg.GetSweepInterval(),
		log:       log,
	}
}

// Run sweeps immediately and then on every interval until ctx is cancelled.
func (s *ArtifactSweep) Run(ctx context.Context) {
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *ArtifactSweep) sweep() {
	cutoff := time.Now().Add(-s.retention)

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				s.log.Warn("artifact sweep: cannot read directory", "dir", dir, "error", err)
			}
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.log.Warn("artifact sweep: remove failed", "path", path, "error", err)
				continue
			}
			s.log.Debug("artifact sweep: removed stale file", "path", path, "age", time.Since(info.ModTime()).String())
		}
	}
}
