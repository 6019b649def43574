package entity

import "time"

// Event entity types
const (
	EntityTicket  = "ticket"
	EntityPayment = "payment"
)

// Event actions
const (
	ActionStatusChanged  = "status_changed"
	ActionPriceAdjusted  = "price_adjusted"
	ActionPaymentCreated = "payment_created"
	ActionUpdated        = "updated"
	ActionDeleted        = "deleted"
)

// DomainEvent is published after a ticket mutation commits
type DomainEvent struct {
	EventID    string                 `bson:"eventId" json:"eventId"`
	EntityType string                 `bson:"entityType" json:"entityType"`
	EntityID   string                 `bson:"entityId" json:"entityId"`
	Action     string                 `bson:"action" json:"action"`
	ActorID    string                 `bson:"actorId" json:"actorId"`
	ActorName  string                 `bson:"actorName" json:"actorName"`
	Timestamp  time.Time              `bson:"timestamp" json:"timestamp"`
	Summary    string                 `bson:"summary" json:"summary"`
	Meta       map[string]interface{} `bson:"meta" json:"meta,omitempty"`
	CustomerID string                 `bson:"customerId" json:"customerId,omitempty"`
	TicketID   string                 `bson:"ticketId" json:"ticketId,omitempty"`
}

// MetaString returns the named meta value when it is a string
func (e DomainEvent) MetaString(key string) string {
	if e.Meta == nil {
		return ""
	}
	s, _ := e.Meta[key].(string)
	return s
}
