package recurring

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the posting pass on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	poster *Poster
	spec   string
	logger *zap.Logger
}

// NewScheduler creates a scheduler that runs poster on the given cron spec
// (standard five-field syntax).
func NewScheduler(poster *Poster, spec string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{cron: cron.New(), poster: poster, spec: spec, logger: logger}
}

// Start registers the posting job and starts the cron loop. An immediate pass
// runs first so expenses due while the server was down still post.
func (s *Scheduler) Start() {
	s.runOnce()

	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		s.logger.Error("failed to schedule recurring expense posting", zap.Error(err))
		return
	}
	s.cron.Start()
	s.logger.Info("recurring expense scheduler started", zap.String("spec", s.spec))
}

// Stop stops the cron loop.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("recurring expense scheduler stopped")
}

func (s *Scheduler) runOnce() {
	posted, err := s.poster.PostDue(time.Now())
	if err != nil {
		s.logger.Error("recurring expense posting failed", zap.Error(err))
		return
	}
	if posted > 0 {
		s.logger.Info("recurring expense posting finished", zap.Int("posted", posted))
	}
}
