package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const sendGridURL = "https://api.sendgrid.com/v3/mail/send"

// Sender delivers emails through the SendGrid v3 API.
type Sender struct {
	apiKey      string
	senderEmail string
	senderName  string
	client      *http.Client
}

// NewSender creates a SendGrid-backed Sender.
func NewSender(apiKey, senderEmail, senderName string) *Sender {
	return &Sender{
		apiKey:      apiKey,
		senderEmail: senderEmail,
		senderName:  senderName,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// SendGrid request format
type sgEmail struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
type sgPersonalization struct {
	To []sgEmail `json:"to"`
}
type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgEmail             `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// Send delivers a single email. SendGrid answers 202 on success.
func (s *Sender) Send(ctx context.Context, e Email) error {
	body := sgRequest{
		Personalizations: []sgPersonalization{{To: []sgEmail{{Email: e.To}}}},
		From:             sgEmail{Email: s.senderEmail, Name: s.senderName},
		Subject:          e.Subject,
		Content:          []sgContent{{Type: "text/html", Value: e.HTML}},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling sendgrid request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendGridURL, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sendgrid error: status=%d body=%s", resp.StatusCode, respBody)
	}
	return nil
}
