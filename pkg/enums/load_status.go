package enums

import (
	"fmt"
	"strings"
)

// LoadStatus tracks where a load sits in the dispatch lifecycle.
type LoadStatus string

const (
	LoadStatusDraft         LoadStatus = "draft"
	LoadStatusPosted        LoadStatus = "posted"
	LoadStatusPendingPickup LoadStatus = "pending_pickup"
	LoadStatusInTransit     LoadStatus = "in_transit"
	LoadStatusDelivered     LoadStatus = "delivered"
	LoadStatusClosed        LoadStatus = "closed"
	LoadStatusCancelled     LoadStatus = "cancelled"
)

// loadStatusPendingAlias is accepted on input and normalised to posted.
const loadStatusPendingAlias = "pending"

var validLoadStatuses = []LoadStatus{
	LoadStatusDraft,
	LoadStatusPosted,
	LoadStatusPendingPickup,
	LoadStatusInTransit,
	LoadStatusDelivered,
	LoadStatusClosed,
	LoadStatusCancelled,
}

// String implements fmt.Stringer.
func (s LoadStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LoadStatus.
func (s LoadStatus) IsValid() bool {
	for _, candidate := range validLoadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s LoadStatus) IsTerminal() bool {
	return s == LoadStatusClosed || s == LoadStatusCancelled
}

// IsActiveTransport reports whether the status requires a confirmed rate when
// a carrier is assigned.
func (s LoadStatus) IsActiveTransport() bool {
	return s == LoadStatusInTransit || s == LoadStatusDelivered
}

// ParseLoadStatus converts raw input into a LoadStatus.
func ParseLoadStatus(value string) (LoadStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == loadStatusPendingAlias {
		return LoadStatusPosted, nil
	}
	for _, candidate := range validLoadStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid load status %q", value)
}
