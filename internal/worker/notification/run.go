package notification

import (
	"context"
	"encoding/json"
	"time"

	"app/internal/config"
	"app/internal/notifier"
	"app/internal/pgmq"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// Run starts the notification worker. It drains the notification queue and
// delivers each email through SendGrid, retrying with exponential backoff
// before dead-lettering.
func Run(ctx context.Context, logger zerolog.Logger, client *pgmq.Client) error {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config in notification worker: %v", err)
	}

	if cfg.SendGridAPIKey == "" && cfg.GCPProjectID != "" {
		secrets, err := service.NewSecretManagerService(ctx, cfg)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Secret Manager client: %v", err)
		}
		if cfg.SendGridAPIKey, err = secrets.GetSecret(ctx, cfg.SendGridKeySecretName); err != nil {
			logger.Fatal().Msgf("Failed to load SendGrid key: %v", err)
		}
	}
	if cfg.SendGridAPIKey == "" {
		logger.Fatal().Msg("SENDGRID_API_KEY is not set")
	}

	sender := notifier.NewSender(cfg.SendGridAPIKey, cfg.SenderEmail, cfg.SenderName)
	queue := cfg.NotificationQueueName
	logger.Info().Str("queue", queue).Msg("Starting notification worker")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down notification worker")
			return nil
		default:
		}

		msgs, err := client.ReadWithPoll(ctx, queue, cfg.NotificationPollTimeoutSec, cfg.NotificationPollMaxMsg)
		if err != nil {
			logger.Error().Err(err).Msg("Error reading notification queue")
			time.Sleep(time.Second)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		msg := msgs[0]
		logger.Info().Int64("msg_id", msg.ID).Msg("Received notification job")

		var email notifier.Email
		if err := json.Unmarshal(msg.Data, &email); err != nil {
			logger.Error().Err(err).Msg("Failed to unmarshal notification payload; deleting message")
			client.Delete(ctx, queue, []int64{msg.ID})
			continue
		}

		// Deliver with retry/backoff
		backoff := time.Duration(cfg.NotificationBackoffInitialSec) * time.Second
		var sendErr error
		for attempt := 1; attempt <= cfg.NotificationMaxRetries; attempt++ {
			ctxReq, cancel := context.WithTimeout(ctx, 20*time.Second)
			start := time.Now()
			sendErr = sender.Send(ctxReq, email)
			duration := time.Since(start)
			cancel()

			if sendErr == nil {
				logger.Info().Str("to", email.To).Str("duration", duration.String()).Msg("Email delivered")
				break
			}
			logger.Error().Err(sendErr).Int("attempt", attempt).Msg("Email delivery failed, retrying")
			time.Sleep(backoff)
			backoff *= 2
			if backoff > time.Duration(cfg.NotificationBackoffMaxSec)*time.Second {
				backoff = time.Duration(cfg.NotificationBackoffMaxSec) * time.Second
			}
		}
		if sendErr != nil {
			// Move the failed email to the dead-letter queue
			dlq := cfg.NotificationDeadLetterQueueName
			if msgBytes, err := json.Marshal(email); err == nil {
				if err := client.Send(ctx, dlq, msgBytes); err != nil {
					logger.Error().Err(err).Str("dlq", dlq).Msg("Failed to send message to dead-letter queue")
				}
			} else {
				logger.Error().Err(err).Msg("Failed to marshal email for dead-letter queue")
			}
			if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
				logger.Error().Err(err).Msg("Error deleting notification message after failure")
			}
			logger.Warn().
				Int("attempts", cfg.NotificationMaxRetries).
				Str("to", email.To).
				Err(sendErr).
				Msg("Exhausted all delivery retries; moving email to DLQ")
			continue
		}

		// Acknowledge message
		if err := client.Delete(ctx, queue, []int64{msg.ID}); err != nil {
			logger.Error().Err(err).Msg("Error deleting notification message")
		}
	}
}
