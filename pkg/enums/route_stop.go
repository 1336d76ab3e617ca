package enums

import "fmt"

type StopType string

const (
	StopTypePickup   StopType = "pickup"
	StopTypeDelivery StopType = "delivery"
)

func (s StopType) IsValid() bool {
	return s == StopTypePickup || s == StopTypeDelivery
}

func ParseStopType(value string) (StopType, error) {
	candidate := StopType(value)
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid stop type %q", value)
	}
	return candidate, nil
}

type StopStatus string

const (
	StopStatusPending   StopStatus = "pending"
	StopStatusCompleted StopStatus = "completed"
)

func (s StopStatus) IsValid() bool {
	return s == StopStatusPending || s == StopStatusCompleted
}
