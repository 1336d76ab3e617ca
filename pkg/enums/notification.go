package enums

import "fmt"

// NotificationType groups in-app notifications for filtering.
type NotificationType string

const (
	NotificationTypeBidAlert        NotificationType = "bid_alert"
	NotificationTypeAssignmentAlert NotificationType = "assignment_alert"
	NotificationTypeLoadAlert       NotificationType = "load_alert"
	NotificationTypeSettlementAlert NotificationType = "settlement_alert"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeBidAlert,
	NotificationTypeAssignmentAlert,
	NotificationTypeLoadAlert,
	NotificationTypeSettlementAlert,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
