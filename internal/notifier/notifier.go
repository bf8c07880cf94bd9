package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"app/internal/pgmq"

	"github.com/rs/zerolog"
)

// Email is the payload carried through the notification queue. The API
// process enqueues it; the worker delivers it.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Enqueuer hands an email off for asynchronous delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, e Email) error
}

// QueueEnqueuer pushes emails onto a pgmq queue.
type QueueEnqueuer struct {
	client *pgmq.Client
	queue  string
}

// NewQueueEnqueuer creates an Enqueuer backed by the given pgmq queue.
func NewQueueEnqueuer(client *pgmq.Client, queue string) *QueueEnqueuer {
	return &QueueEnqueuer{client: client, queue: queue}
}

func (q *QueueEnqueuer) Enqueue(ctx context.Context, e Email) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	if err := q.client.Send(ctx, q.queue, payload); err != nil {
		return fmt.Errorf("enqueueing notification: %w", err)
	}
	return nil
}

// LogEnqueuer logs emails instead of delivering them. Used in development
// when no queue is configured.
type LogEnqueuer struct {
	Logger zerolog.Logger
}

func (l LogEnqueuer) Enqueue(_ context.Context, e Email) error {
	l.Logger.Info().Str("to", e.To).Str("subject", e.Subject).Msg("Notification suppressed (no queue configured)")
	return nil
}

// VerificationEmail builds the account verification message.
func VerificationEmail(to, username, link string) Email {
	return Email{
		To:      to,
		Subject: "Verify your VEED account",
		HTML: fmt.Sprintf(`<html><body>
<h3>Welcome, %s!</h3>
<p>Confirm your email address to start earning.</p>
<p><a href="%s">Verify my account</a></p>
<p>If you did not create this account, ignore this email.</p>
</body></html>`, username, link),
	}
}

// WelcomeEmail greets a freshly registered account.
func WelcomeEmail(to, username string) Email {
	return Email{
		To:      to,
		Subject: "Welcome to VEED",
		HTML: fmt.Sprintf(`<html><body>
<h3>Hi %s,</h3>
<p>Your VEED account is ready. Pick a plan, watch today's videos and start earning.</p>
<p>Share your referral code to earn a bonus on everything your referrals make.</p>
</body></html>`, username),
	}
}

// DepositDecisionEmail notifies the account holder about a processed deposit.
func DepositDecisionEmail(to, amount string, approved bool) Email {
	verdict := "approved"
	if !approved {
		verdict = "rejected"
	}
	return Email{
		To:      to,
		Subject: fmt.Sprintf("Your deposit was %s", verdict),
		HTML: fmt.Sprintf(`<html><body>
<p>Your deposit of %s MT has been %s.</p>
</body></html>`, amount, verdict),
	}
}

// WithdrawalDecisionEmail notifies the account holder about a processed withdrawal.
func WithdrawalDecisionEmail(to, amount string, approved bool) Email {
	verdict := "approved"
	if !approved {
		verdict = "rejected and the held amount returned to your balance"
	}
	return Email{
		To:      to,
		Subject: "Withdrawal request processed",
		HTML: fmt.Sprintf(`<html><body>
<p>Your withdrawal of %s MT has been %s.</p>
</body></html>`, amount, verdict),
	}
}
