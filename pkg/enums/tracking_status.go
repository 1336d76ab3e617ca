package enums

import "fmt"

// TrackingStatus describes a driver's progress toward the load's waypoints.
type TrackingStatus string

const (
	TrackingStatusEnRoutePickup   TrackingStatus = "en_route_pickup"
	TrackingStatusAtPickup        TrackingStatus = "at_pickup"
	TrackingStatusEnRouteDelivery TrackingStatus = "en_route_delivery"
	TrackingStatusAtDelivery      TrackingStatus = "at_delivery"
	TrackingStatusCompleted       TrackingStatus = "completed"
)

var validTrackingStatuses = []TrackingStatus{
	TrackingStatusEnRoutePickup,
	TrackingStatusAtPickup,
	TrackingStatusEnRouteDelivery,
	TrackingStatusAtDelivery,
	TrackingStatusCompleted,
}

func (s TrackingStatus) String() string {
	return string(s)
}

func (s TrackingStatus) IsValid() bool {
	for _, candidate := range validTrackingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseTrackingStatus(value string) (TrackingStatus, error) {
	for _, candidate := range validTrackingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tracking status %q", value)
}
