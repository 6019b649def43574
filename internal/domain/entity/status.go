package entity

// TicketStatus is the lifecycle state of a repair ticket
type TicketStatus string

// Ticket statuses
const (
	StatusReceived        TicketStatus = "RECEIVED"
	StatusInProgress      TicketStatus = "IN_PROGRESS"
	StatusWaitingForParts TicketStatus = "WAITING_FOR_PARTS"
	StatusRepaired        TicketStatus = "REPAIRED"
	StatusCompleted       TicketStatus = "COMPLETED"
	StatusCancelled       TicketStatus = "CANCELLED"
	StatusReturned        TicketStatus = "RETURNED"
)

// AllStatuses lists every ticket status in lifecycle order
var AllStatuses = []TicketStatus{
	StatusReceived,
	StatusInProgress,
	StatusWaitingForParts,
	StatusRepaired,
	StatusCompleted,
	StatusCancelled,
	StatusReturned,
}

// Valid reports whether s is a known status
func (s TicketStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition may leave s
func (s TicketStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusReturned
}

func (s TicketStatus) String() string {
	return string(s)
}
