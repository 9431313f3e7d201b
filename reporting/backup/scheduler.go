package backup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artesarh/rpb/utils/logging"
	"github.com/robfig/cron/v3"
)

// Scheduler runs backups on a cron schedule. A run that is still going when
// the next one fires causes that next run to be skipped.
type Scheduler struct {
	cron     *cron.Cron
	backuper *Backuper
	baseCtx  context.Context
	cancel   context.CancelFunc
}

func NewScheduler(backuper *Backuper, schedule string) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, backuper: backuper, baseCtx: ctx, cancel: cancel}

	if _, err := c.AddFunc(schedule, s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid backup schedule '%v': %w", schedule, err)
	}

	return s, nil
}

func (s *Scheduler) run() {
	// failures are logged by Backup and must not stop the schedule
	_, _ = s.backuper.Backup(s.baseCtx)
}

func (s *Scheduler) Start() {
	slog.Info("backup scheduler started", "code", logging.BACKUP)
	s.cron.Start()
}

// Stop cancels a running backup and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("backup scheduler stopped", "code", logging.BACKUP)
}
