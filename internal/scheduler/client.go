package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"lechuga_bot_backend/internal/events"
	"lechuga_bot_backend/platform/config"
	"lechuga_bot_backend/platform/logger"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleRetryReminder enqueues a reminder that fires after delay.
func (c *Client) ScheduleRetryReminder(ctx context.Context, payload RetryReminderPayload, delay time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewRetryReminderTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.Queue(c.queue))
	return err
}

// EnqueueArchiveReport enqueues report archival for immediate processing.
func (c *Client) EnqueueArchiveReport(ctx context.Context, payload ArchiveReportPayload) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewArchiveReportTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

// Subscribe wires the client to the event bus: mismatches schedule a retry
// reminder, delivered reports get archived.
func (c *Client) Subscribe(bus events.Bus, retryDelay time.Duration, log *logger.Logger) {
	if c == nil {
		return
	}

	bus.Subscribe(events.DiagnosisMismatched{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		mismatched, ok := event.(events.DiagnosisMismatched)
		if !ok || retryDelay <= 0 {
			return nil
		}
		return c.ScheduleRetryReminder(ctx, RetryReminderPayload{
			UserID:       mismatched.UserID,
			ChatID:       mismatched.ChatID,
			AttemptID:    mismatched.AttemptID.String(),
			ImageLabel:   mismatched.ImageLabel,
			TabularLabel: mismatched.TabularLabel,
		}, retryDelay)
	}))

	bus.Subscribe(events.ReportGenerated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		generated, ok := event.(events.ReportGenerated)
		if !ok {
			return nil
		}
		return c.EnqueueArchiveReport(ctx, ArchiveReportPayload{
			UserID:     generated.UserID,
			AttemptID:  generated.AttemptID.String(),
			ReportPath: generated.ReportPath,
		})
	}))

	log.Info("scheduler client subscribed to diagnosis events")
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
