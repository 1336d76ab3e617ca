package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateLoad    OutboxAggregateType = "load"
	AggregateBid     OutboxAggregateType = "bid"
	AggregateInvoice OutboxAggregateType = "invoice"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateLoad,
	AggregateBid,
	AggregateInvoice,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventBidSubmitted      OutboxEventType = "bid_submitted"
	EventBidAccepted       OutboxEventType = "bid_accepted"
	EventRateConfirmed     OutboxEventType = "rate_confirmed"
	EventLoadStatusChanged OutboxEventType = "load_status_changed"
	EventInvoiceIssued     OutboxEventType = "invoice_issued"
)

var validEventTypes = []OutboxEventType{
	EventBidSubmitted,
	EventBidAccepted,
	EventRateConfirmed,
	EventLoadStatusChanged,
	EventInvoiceIssued,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
