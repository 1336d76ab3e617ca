package loads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

// adjacency is forward-only; cancelled is reachable from every pre-delivery
// state.
var adjacency = map[enums.LoadStatus][]enums.LoadStatus{
	enums.LoadStatusDraft:         {enums.LoadStatusPosted, enums.LoadStatusCancelled},
	enums.LoadStatusPosted:        {enums.LoadStatusPendingPickup, enums.LoadStatusCancelled},
	enums.LoadStatusPendingPickup: {enums.LoadStatusInTransit, enums.LoadStatusCancelled},
	enums.LoadStatusInTransit:     {enums.LoadStatusDelivered, enums.LoadStatusCancelled},
	enums.LoadStatusDelivered:     {enums.LoadStatusClosed},
	enums.LoadStatusClosed:        {},
	enums.LoadStatusCancelled:     {},
}

// CanTransition reports whether to is directly reachable from from.
func CanTransition(from, to enums.LoadStatus) bool {
	for _, next := range adjacency[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from status.
func NextStatuses(status enums.LoadStatus) []enums.LoadStatus {
	next := adjacency[status]
	out := make([]enums.LoadStatus, len(next))
	copy(out, next)
	return out
}

func isTransportEdge(from, to enums.LoadStatus) bool {
	return (from == enums.LoadStatusPendingPickup && to == enums.LoadStatusInTransit) ||
		(from == enums.LoadStatusInTransit && to == enums.LoadStatusDelivered) ||
		(from == enums.LoadStatusDelivered && to == enums.LoadStatusDelivered)
}

// authorizeTransition checks the actor against the edge being driven.
func authorizeTransition(actor types.Actor, load *models.Load, to enums.LoadStatus) error {
	from := load.Status
	switch actor.Role {
	case enums.ActorRoleDispatcher, enums.ActorRoleAdmin, enums.ActorRoleSystem:
		return nil
	case enums.ActorRoleCarrier:
		if load.HasCarrier() && actor.ActsFor(*load.CarrierID) && isTransportEdge(from, to) {
			return nil
		}
	case enums.ActorRoleDriver:
		if !load.HasCarrier() && load.DriverID != nil && *load.DriverID == actor.UserID && isTransportEdge(from, to) {
			return nil
		}
	case enums.ActorRoleShipper:
		cancellable := from == enums.LoadStatusDraft || from == enums.LoadStatusPosted
		if actor.ActsFor(load.CustomerID) && to == enums.LoadStatusCancelled && cancellable {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor may not move this load").
		WithDetails(map[string]any{"from": from, "to": to, "role": actor.Role})
}

// statusTimestamps returns the column set on entry to status.
func statusTimestamps(status enums.LoadStatus, at time.Time) map[string]any {
	switch status {
	case enums.LoadStatusInTransit:
		return map[string]any{"picked_up_at": at}
	case enums.LoadStatusDelivered:
		return map[string]any{"delivered_at": at}
	case enums.LoadStatusCancelled:
		return map[string]any{"cancelled_at": at}
	case enums.LoadStatusClosed:
		return map[string]any{"closed_at": at}
	}
	return nil
}

func applyStatus(load *models.Load, status enums.LoadStatus, at time.Time) {
	load.Status = status
	load.UpdatedAt = at
	switch status {
	case enums.LoadStatusInTransit:
		load.PickedUpAt = &at
	case enums.LoadStatusDelivered:
		load.DeliveredAt = &at
	case enums.LoadStatusCancelled:
		load.CancelledAt = &at
	case enums.LoadStatusClosed:
		load.ClosedAt = &at
	}
}

// expectedTracking lists tracking statuses consistent with a load status.
// Loads without tracking are never checked.
func expectedTracking(status enums.LoadStatus) []enums.TrackingStatus {
	switch status {
	case enums.LoadStatusInTransit:
		return []enums.TrackingStatus{
			enums.TrackingStatusAtPickup,
			enums.TrackingStatusEnRouteDelivery,
			enums.TrackingStatusAtDelivery,
		}
	case enums.LoadStatusDelivered, enums.LoadStatusClosed:
		return []enums.TrackingStatus{
			enums.TrackingStatusAtDelivery,
			enums.TrackingStatusCompleted,
		}
	}
	return nil
}

// canView reports whether actor may read load.
func canView(actor types.Actor, load *models.Load) bool {
	switch actor.Role {
	case enums.ActorRoleDispatcher, enums.ActorRoleAdmin, enums.ActorRoleSystem:
		return true
	case enums.ActorRoleCarrier:
		if load.Status == enums.LoadStatusPosted {
			return true
		}
		return load.HasCarrier() && actor.ActsFor(*load.CarrierID)
	case enums.ActorRoleShipper:
		return actor.ActsFor(load.CustomerID)
	case enums.ActorRoleDriver:
		return load.DriverID != nil && *load.DriverID == actor.UserID
	}
	return false
}

func carrierOf(load *models.Load) uuid.UUID {
	if load.CarrierID == nil {
		return uuid.Nil
	}
	return *load.CarrierID
}
