package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/internal/domain/repository"
	"repairdesk-service/pkg/logger"
)

// EmailNotifier sends notifications through the Gmail API
type EmailNotifier struct {
	gmailService *gmail.Service
	from         string
	logger       logger.Logger
}

// NewGmailEmailNotifier creates an email notifier authorized by tokenSource
func NewGmailEmailNotifier(ctx context.Context, tokenSource oauth2.TokenSource, from string, logger logger.Logger) (repository.Notifier, error) {
	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return NewEmailNotifier(service, from, logger), nil
}

// NewEmailNotifier wraps an existing Gmail service
func NewEmailNotifier(service *gmail.Service, from string, logger logger.Logger) *EmailNotifier {
	return &EmailNotifier{
		gmailService: service,
		from:         from,
		logger:       logger,
	}
}

// Channel returns the email channel name
func (s *EmailNotifier) Channel() string {
	return entity.ChannelEmail
}

// Send delivers n as a plain-text email
func (s *EmailNotifier) Send(ctx context.Context, n *entity.Notification) error {
	if n.Recipient == "" {
		return fmt.Errorf("notification %s has no recipient", n.ID)
	}

	raw := buildRawMessage(s.from, n.Recipient, n.Subject, n.Body)
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}

	sent, err := s.gmailService.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debug("Email sent",
		"notificationID", n.ID,
		"messageID", sent.Id,
		"to", n.Recipient)
	return nil
}

// buildRawMessage renders an RFC 5322 message with CRLF line endings
func buildRawMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", headerValue(from))
	}
	fmt.Fprintf(&b, "To: %s\r\n", headerValue(to))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(subject)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// headerValue drops line breaks so a value cannot start a new header
func headerValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", " ").Replace(v)
}
