package loads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
)

// CreateLoadInput describes a new shipment request.
type CreateLoadInput struct {
	CustomerID          *uuid.UUID
	PickupAddress       string
	DeliveryAddress     string
	PickupWindowStart   *time.Time
	PickupWindowEnd     *time.Time
	DeliveryWindowStart *time.Time
	DeliveryWindowEnd   *time.Time
	Commodity           string
	EquipmentType       enums.EquipmentType
	WeightLbs           *int
	CustomerRate        *decimal.Decimal
	// Post publishes the load to carriers immediately instead of leaving it
	// in draft.
	Post bool
}

// ListFilter narrows a load listing. Visibility filters are applied by the
// service from the actor and are not caller controlled.
type ListFilter struct {
	Status     *enums.LoadStatus
	CarrierID  *uuid.UUID
	CustomerID *uuid.UUID
	DriverID   *uuid.UUID
	// VisibleToCarrier limits results to posted loads plus loads hauled by
	// this carrier.
	VisibleToCarrier *uuid.UUID
}

// ListLoadsInput carries caller filters and cursor paging.
type ListLoadsInput struct {
	Status    *enums.LoadStatus
	CarrierID *uuid.UUID
	Limit     int
	Cursor    string
}

// LoadList is one page of loads.
type LoadList struct {
	Items      []models.Load `json:"items"`
	NextCursor string        `json:"next_cursor"`
}

// AssignCarrierInput is a dispatcher override of the carrier on a load.
type AssignCarrierInput struct {
	LoadID    uuid.UUID
	CarrierID uuid.UUID
	Rate      decimal.Decimal
}

// TransitionInput requests a status change.
type TransitionInput struct {
	LoadID uuid.UUID
	To     enums.LoadStatus
}

// TransitionResult reports the load after a transition. Changed is false for
// the idempotent delivered-to-delivered call.
type TransitionResult struct {
	Load    *models.Load     `json:"load"`
	From    enums.LoadStatus `json:"from"`
	To      enums.LoadStatus `json:"to"`
	Changed bool             `json:"changed"`
	// InvoiceReady is set on entry to delivered.
	InvoiceReady *bool `json:"invoice_ready,omitempty"`
}
