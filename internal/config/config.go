package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret   string `envconfig:"JWT_SECRET"`

	// PublicBaseURL is used to build verification and referral links in emails.
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`

	// Reward engine policy. All daily-reset logic runs in RewardTimezone.
	RewardTimezone    string  `envconfig:"REWARD_TIMEZONE" default:"Africa/Maputo"`
	RewardModel       string  `envconfig:"REWARD_MODEL" default:"plan"`           // plan | video
	PlanExpiryModel   string  `envconfig:"PLAN_EXPIRY_MODEL" default:"perpetual"` // perpetual | duration
	CascadeTrigger    string  `envconfig:"CASCADE_TRIGGER" default:"per_video"`   // per_video | quota_complete
	WithdrawalDebit   string  `envconfig:"WITHDRAWAL_DEBIT" default:"on_request"` // on_request | on_approval
	PlanReferralRate  float64 `envconfig:"PLAN_REFERRAL_RATE" default:"0.10"`
	VideoReferralRate float64 `envconfig:"VIDEO_REFERRAL_RATE" default:"0.05"`
	WatchToleranceSec int     `envconfig:"WATCH_TOLERANCE_SEC" default:"1"`

	// S3-compatible media storage (deposit proofs, video files).
	S3URL       string `envconfig:"S3_URL"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"veed-media"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`

	// GCP settings. When GCPProjectID is empty, event publishing is disabled
	// and secrets come from the environment.
	GCPProjectID          string `envconfig:"GCP_PROJECT_ID"`
	LedgerEventTopic      string `envconfig:"LEDGER_EVENT_TOPIC" default:"ledger-events"`
	JWTSecretName         string `envconfig:"JWT_SECRET_NAME" default:"veed-jwt-secret"`
	SendGridKeySecretName string `envconfig:"SENDGRID_KEY_SECRET_NAME" default:"veed-sendgrid-key"`

	// Outbound email.
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	SenderEmail    string `envconfig:"SENDER_EMAIL" default:"no-reply@veed.example"`
	SenderName     string `envconfig:"SENDER_NAME" default:"VEED"`

	// Notification worker settings.
	NotificationQueueName           string `envconfig:"NOTIFICATION_QUEUE_NAME" default:"notification_queue"`
	NotificationPollTimeoutSec      int    `envconfig:"NOTIFICATION_POLL_TIMEOUT_SEC" default:"30"`
	NotificationPollMaxMsg          int    `envconfig:"NOTIFICATION_POLL_MAX_MSG" default:"1"`
	NotificationMaxRetries          int    `envconfig:"NOTIFICATION_MAX_RETRIES" default:"5"`
	NotificationBackoffInitialSec   int    `envconfig:"NOTIFICATION_BACKOFF_INITIAL_SEC" default:"1"`
	NotificationBackoffMaxSec       int    `envconfig:"NOTIFICATION_BACKOFF_MAX_SEC" default:"60"`
	NotificationDeadLetterQueueName string `envconfig:"NOTIFICATION_DEAD_LETTER_QUEUE_NAME" default:"notification_queue_dlq"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
