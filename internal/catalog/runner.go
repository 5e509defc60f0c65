package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Backuper writes a snapshot of the local database to dest.
type Backuper interface {
	Backup(ctx context.Context, dest string) error
}

type Runner struct {
	service      *Service
	repo         Repository
	backuper     Backuper
	backupDir    string
	logger       *slog.Logger
	pollInterval time.Duration
	now          func() time.Time
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(service *Service, repo Repository, backuper Backuper, backupDir string, logger *slog.Logger) *Runner {
	return &Runner{
		service:      service,
		repo:         repo,
		backuper:     backuper,
		backupDir:    backupDir,
		logger:       logger,
		pollInterval: 5 * time.Second,
		now:          time.Now,
	}
}

func (r *Runner) SetPollInterval(d time.Duration) {
	if d > 0 {
		r.pollInterval = d
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	if n, err := r.repo.FailInterruptedJobs(ctx); err != nil {
		r.logger.Error("failed to reset interrupted jobs", "error", err)
	} else if n > 0 {
		r.logger.Warn("marked interrupted jobs as failed", "count", n)
	}

	r.logger.Info("job runner started", "poll_interval", r.pollInterval)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("job runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.scheduleActorRefresh(ctx)
				r.processNextJob(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("job runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("job runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) processNextJob(ctx context.Context) {
	jobs, err := r.repo.ListPendingJobs(ctx)
	if err != nil {
		r.logger.Error("failed to list pending jobs", "error", err)
		return
	}

	if len(jobs) == 0 {
		return
	}

	job := jobs[0]
	r.logger.Info("processing job", "job_id", job.ID, "type", job.Type)
	r.repo.UpdateJobStatus(ctx, job.ID, JobStatusRunning, "")

	var runErr error
	switch job.Type {
	case JobTypeBackup:
		runErr = r.runBackup(ctx, job)
	case JobTypeRefreshActors:
		runErr = r.runActorRefresh(ctx, job)
	default:
		r.logger.Warn("unknown job type", "type", job.Type)
		runErr = fmt.Errorf("unknown job type")
	}

	if runErr != nil {
		r.logger.Error("job failed", "job_id", job.ID, "type", job.Type, "error", runErr)
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, runErr.Error())
		return
	}

	r.repo.UpdateJobProgress(ctx, job.ID, 100)
	r.repo.UpdateJobStatus(ctx, job.ID, JobStatusCompleted, "")
	r.logger.Info("job completed", "job_id", job.ID, "type", job.Type)
}

func (r *Runner) runBackup(ctx context.Context, job *Job) error {
	if r.backuper == nil {
		return fmt.Errorf("backup not configured")
	}

	name := fmt.Sprintf("markerdeck-%s.db", r.now().UTC().Format("20060102T150405Z"))
	dest := filepath.Join(r.backupDir, name)
	if err := r.backuper.Backup(ctx, dest); err != nil {
		return err
	}

	detail := dest
	if info, err := os.Stat(dest); err == nil {
		detail = fmt.Sprintf("%s (%s)", dest, humanize.Bytes(uint64(info.Size())))
	}
	r.repo.UpdateJobDetail(ctx, job.ID, detail)
	return nil
}

func (r *Runner) runActorRefresh(ctx context.Context, job *Job) error {
	updated, err := r.service.RefreshActors(ctx, func(done, total int) {
		if total > 0 {
			r.repo.UpdateJobProgress(ctx, job.ID, done*100/total)
		}
	})
	if err != nil {
		return err
	}
	r.repo.UpdateJobDetail(ctx, job.ID, fmt.Sprintf("%d actors refreshed", updated))
	return nil
}

// scheduleActorRefresh enqueues a refresh_actors job when the configured
// interval has passed since the last one was created.
func (r *Runner) scheduleActorRefresh(ctx context.Context) {
	raw, err := r.repo.GetSetting(ctx, SettingActorRefreshInterval)
	if err != nil || raw == "" {
		return
	}
	interval, err := time.ParseDuration(raw)
	if err != nil || interval <= 0 {
		return
	}

	latest, err := r.repo.LatestJob(ctx, JobTypeRefreshActors)
	if err != nil {
		r.logger.Error("failed to read latest refresh job", "error", err)
		return
	}
	if latest != nil {
		if latest.Status == JobStatusPending || latest.Status == JobStatusRunning {
			return
		}
		if r.now().Sub(latest.CreatedAt) < interval {
			return
		}
	}

	if _, err := r.service.EnqueueJob(ctx, JobTypeRefreshActors); err != nil {
		r.logger.Error("failed to schedule actor refresh", "error", err)
	}
}

func (r *Runner) GetActiveJobCount(ctx context.Context) int {
	jobs, err := r.repo.ListJobs(ctx, 100)
	if err != nil {
		return 0
	}
	count := 0
	for _, j := range jobs {
		if j.Status == JobStatusRunning {
			count++
		}
	}
	return count
}
