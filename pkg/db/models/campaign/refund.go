package campaign

import "time"

// RefundReason classifies why a transaction was rejected for manual follow-up.
type RefundReason string

const (
	RefundOutOfDates           RefundReason = "OutOfDates"
	RefundPreSaleTokensSoldOut RefundReason = "PreSaleTokensSoldOut"
	RefundTokensSoldOut        RefundReason = "TokensSoldOut"
	RefundHardCapUsdExceeded   RefundReason = "HardCapUsdExceeded"
)

// RefundRecord is an append-only audit entry for a rejected transaction.
// Payload carries the raw inbound event so operations can refund manually.
type RefundRecord struct {
	Email      string       `ch:"email" json:"email"`
	Reason     RefundReason `ch:"reason" json:"reason"`
	Payload    string       `ch:"payload" json:"payload"`
	CreatedUTC time.Time    `ch:"created_utc" json:"createdUtc"`
}
