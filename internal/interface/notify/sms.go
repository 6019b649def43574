package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/time/rate"

	"repairdesk-service/internal/domain/entity"
	"repairdesk-service/pkg/logger"
)

// MessageCreator is the part of the Twilio API the SMS notifier uses
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSNotifier sends notifications as text messages through Twilio
type SMSNotifier struct {
	client  MessageCreator
	from    string
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewTwilioSMSNotifier creates an SMS notifier sending at most perSecond messages per second
func NewTwilioSMSNotifier(accountSID, authToken, from string, perSecond float64, logger logger.Logger) *SMSNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return NewSMSNotifier(client.Api, from, rate.NewLimiter(limit, 1), logger)
}

// NewSMSNotifier creates an SMS notifier on top of client
func NewSMSNotifier(client MessageCreator, from string, limiter *rate.Limiter, logger logger.Logger) *SMSNotifier {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &SMSNotifier{
		client:  client,
		from:    from,
		limiter: limiter,
		logger:  logger,
	}
}

// Channel returns the SMS channel name
func (s *SMSNotifier) Channel() string {
	return entity.ChannelSMS
}

// Send delivers n's body to its recipient phone number
func (s *SMSNotifier) Send(ctx context.Context, n *entity.Notification) error {
	if n.Recipient == "" {
		return fmt.Errorf("notification %s has no recipient", n.ID)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sms rate limit: %w", err)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.Recipient)
	params.SetFrom(s.from)
	params.SetBody(n.Body)

	resp, err := s.client.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}

	if resp != nil && resp.Sid != nil {
		s.logger.Debug("SMS sent",
			"notificationID", n.ID,
			"sid", *resp.Sid,
			"to", n.Recipient)
	}
	return nil
}
