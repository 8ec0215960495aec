// Package scheduler runs delayed and background work over asynq: the
// mismatch retry reminder, report archival, and the stale-artifact sweep.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskRetryReminder = "diagnosis.retry_reminder"

const TaskArchiveReport = "reports.archive"

// RetryReminderPayload nudges a user who got a mismatch and never retried.
type RetryReminderPayload struct {
	UserID       int64  `json:"userId"`
	ChatID       int64  `json:"chatId"`
	AttemptID    string `json:"attemptId"`
	ImageLabel   string `json:"imageLabel"`
	TabularLabel string `json:"tabularLabel"`
}

// ArchiveReportPayload moves a delivered report into object storage.
type ArchiveReportPayload struct {
	UserID     int64  `json:"userId"`
	AttemptID  string `json:"attemptId"`
	ReportPath string `json:"reportPath"`
}

func NewRetryReminderTask(payload RetryReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRetryReminder, data), nil
}

func ParseRetryReminderPayload(task *asynq.Task) (RetryReminderPayload, error) {
	var payload RetryReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RetryReminderPayload{}, err
	}
	return payload, nil
}

func NewArchiveReportTask(payload ArchiveReportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskArchiveReport, data), nil
}

func ParseArchiveReportPayload(task *asynq.Task) (ArchiveReportPayload, error) {
	var payload ArchiveReportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ArchiveReportPayload{}, err
	}
	return payload, nil
}
