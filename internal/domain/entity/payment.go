package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentType classifies a compensating payment
type AdjustmentType string

const (
	AdjustmentPriceIncrease AdjustmentType = "PRICE_INCREASE"
	AdjustmentPriceDecrease AdjustmentType = "PRICE_DECREASE"
	AdjustmentCorrection    AdjustmentType = "CORRECTION"
)

// Payment methods
const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
)

// Payment is money received for (or refunded against) a ticket.
// Adjustment payments carry a signed amount; negative means a refund is owed.
type Payment struct {
	ID                string                 `json:"id"`
	TicketID          string                 `json:"ticketId"`
	PaymentNumber     string                 `json:"paymentNumber"`
	Amount            decimal.Decimal        `json:"amount"`
	Method            string                 `json:"method"`
	Currency          string                 `json:"currency"`
	PerformedByID     string                 `json:"performedById"`
	IsAdjustment      bool                   `json:"isAdjustment"`
	AdjustmentType    *AdjustmentType        `json:"adjustmentType,omitempty"`
	OriginalPaymentID *string                `json:"originalPaymentId,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
}

// PaymentNumberPrefix is the date-scoped prefix shared by a day's payment numbers
func PaymentNumberPrefix(day time.Time) string {
	return "PAY-" + day.Format("20060102") + "-"
}

// FormatPaymentNumber renders PAY-YYYYMMDD-NNNN
func FormatPaymentNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("%s%04d", PaymentNumberPrefix(day), seq)
}

// SumPayments totals the amounts of all payments, adjustments included
func SumPayments(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// LatestOriginalPayment returns the most recent non-adjustment payment, or nil
func LatestOriginalPayment(payments []Payment) *Payment {
	var latest *Payment
	for i := range payments {
		p := &payments[i]
		if p.IsAdjustment {
			continue
		}
		if latest == nil || !p.CreatedAt.Before(latest.CreatedAt) {
			latest = p
		}
	}
	return latest
}

// Return records a device handed back to the customer after service
type Return struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticketId"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}
