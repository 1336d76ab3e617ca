package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

// Recipient addresses a notification to a role, optionally narrowed to one
// company. A nil CompanyID fans out to every member of the role.
type Recipient struct {
	Role      enums.ActorRole `json:"role"`
	CompanyID *uuid.UUID      `json:"company_id,omitempty"`
}

// Notice is the human-facing part every dispatch event carries.
type Notice struct {
	Recipients []Recipient                `json:"recipients"`
	Type       enums.NotificationType    `json:"notification_type"`
	EntityType enums.OutboxAggregateType `json:"entity_type"`
	EntityID   uuid.UUID                 `json:"entity_id"`
	Title      string                    `json:"title"`
	Message    string                    `json:"message"`
}

// Notification exposes the embedded notice to consumers.
func (n Notice) Notification() Notice {
	return n
}

// Notifier is implemented by every payload that embeds a Notice.
type Notifier interface {
	Notification() Notice
}

// BidSubmittedEvent is emitted when a carrier places a bid.
type BidSubmittedEvent struct {
	Notice
	BidID      uuid.UUID       `json:"bid_id"`
	LoadID     uuid.UUID       `json:"load_id"`
	LoadNumber string          `json:"load_number"`
	CarrierID  uuid.UUID       `json:"carrier_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// BidAcceptedEvent is emitted once a dispatcher accepts a bid and the
// carrier is assigned.
type BidAcceptedEvent struct {
	Notice
	BidID          uuid.UUID       `json:"bid_id"`
	LoadID         uuid.UUID       `json:"load_id"`
	LoadNumber     string          `json:"load_number"`
	CarrierID      uuid.UUID       `json:"carrier_id"`
	CarrierRate    decimal.Decimal `json:"carrier_rate"`
	RejectedBidIDs []uuid.UUID     `json:"rejected_bid_ids"`
}

// RateConfirmedEvent is emitted when the assigned carrier confirms the rate.
type RateConfirmedEvent struct {
	Notice
	LoadID      uuid.UUID       `json:"load_id"`
	LoadNumber  string          `json:"load_number"`
	CarrierID   uuid.UUID       `json:"carrier_id"`
	CarrierRate decimal.Decimal `json:"carrier_rate"`
}

// LoadStatusChangedEvent is emitted for every lifecycle transition.
type LoadStatusChangedEvent struct {
	Notice
	LoadID     uuid.UUID        `json:"load_id"`
	LoadNumber string           `json:"load_number"`
	From       enums.LoadStatus `json:"from"`
	To         enums.LoadStatus `json:"to"`
	ChangedAt  time.Time        `json:"changed_at"`
}

// InvoiceIssuedEvent is emitted once per load when settlement is issued.
type InvoiceIssuedEvent struct {
	Notice
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	LoadID        uuid.UUID       `json:"load_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
	IssuedAt      time.Time       `json:"issued_at"`
}
