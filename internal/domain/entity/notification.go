package entity

import (
	"time"
)

// Notification delivery status
const (
	NotificationPending    = "PENDING"
	NotificationProcessing = "PROCESSING"
	NotificationSent       = "SENT"
	NotificationFailed     = "FAILED"
)

// Notification channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Notification is an outbound customer message about a ticket
type Notification struct {
	ID               string    `bson:"_id"`
	EventID          string    `bson:"eventId"`
	TicketID         string    `bson:"ticketId"`
	TicketNumber     string    `bson:"ticketNumber"`
	CustomerID       string    `bson:"customerId"`
	Channel          string    `bson:"channel"`
	Recipient        string    `bson:"recipient"`
	Subject          string    `bson:"subject"`
	Body             string    `bson:"body"`
	Status           string    `bson:"status"`
	Attempts         int       `bson:"attempts"`
	ErrorDetail      string    `bson:"errorDetail"`
	CreatedAt        time.Time `bson:"createdAt"`
	ProcessStartedAt time.Time `bson:"processStartedAt"`
	SentAt           time.Time `bson:"sentAt"`
}
