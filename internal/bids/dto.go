package bids

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
)

// SubmitBidInput is a carrier offer. CarrierID defaults to the acting
// carrier's company; dispatchers entering a phoned-in bid must set it.
type SubmitBidInput struct {
	LoadID    uuid.UUID
	CarrierID *uuid.UUID
	Amount    decimal.Decimal
	Notes     string
}

// AcceptResult is the outcome of a successful acceptance.
type AcceptResult struct {
	Bid            *models.Bid  `json:"bid"`
	Load           *models.Load `json:"load"`
	RejectedBidIDs []uuid.UUID  `json:"rejected_bid_ids"`
}
