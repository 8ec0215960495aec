package scheduler

import (
	"context"
	"fmt"
	"os"

	"github.com/hibiken/asynq"

	"lechuga_bot_backend/platform/config"
	"lechuga_bot_backend/platform/logger"
)

// Messenger is the outbound surface the worker needs for reminders.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// ReportArchiver moves delivered reports into long-term storage.
type ReportArchiver interface {
	StoreReport(ctx context.Context, userID int64, localPath string) (string, error)
}

// AttemptTracker reports a user's most recent diagnosis attempt, so stale
// reminders can be suppressed.
type AttemptTracker interface {
	LastAttempt(ctx context.Context, userID int64) (string, error)
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	msg      Messenger
	archive  ReportArchiver
	attempts AttemptTracker
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, msg Messenger, archive ReportArchiver, attempts AttemptTracker, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		msg:      msg,
		archive:  archive,
		attempts: attempts,
		log:      log,
	}

	mux.HandleFunc(TaskRetryReminder, w.handleRetryReminder)
	mux.HandleFunc(TaskArchiveReport, w.handleArchiveReport)

	return w, nil
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()
	return w.server.Run(w.mux)
}

// handleRetryReminder nudges a user whose last attempt ended in a mismatch,
// unless a newer attempt happened since the reminder was scheduled.
func (w *Worker) handleRetryReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRetryReminderPayload(task)
	if err != nil {
		return err
	}

	if w.attempts != nil {
		last, err := w.attempts.LastAttempt(ctx, payload.UserID)
		if err != nil {
			w.log.Warn("attempt lookup failed, sending reminder anyway", "user_id", payload.UserID, "error", err)
		} else if last != "" && last != payload.AttemptID {
			w.log.Debug("skipping stale retry reminder", "user_id", payload.UserID)
			return nil
		}
	}

	text := fmt.Sprintf(
		"La última vez el diagnóstico no fue concluyente (%s vs %s). Cuando quieras, envíame una nueva foto de tu lechuga. 🥬",
		payload.ImageLabel, payload.TabularLabel,
	)
	return w.msg.SendMessage(ctx, payload.ChatID, text)
}

// handleArchiveReport uploads the report and removes the local copy.
func (w *Worker) handleArchiveReport(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseArchiveReportPayload(task)
	if err != nil {
		return err
	}
	if w.archive == nil {
		return nil
	}

	if _, err := w.archive.StoreReport(ctx, payload.UserID, payload.ReportPath); err != nil {
		return err
	}
	if err := os.Remove(payload.ReportPath); err != nil && !os.IsNotExist(err) {
		w.log.Warn("failed to remove archived report", "path", payload.ReportPath, "error", err)
	}
	return nil
}
