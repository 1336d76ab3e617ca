package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	"github.com/angelmondragon/freightdispatch-backend/pkg/outbox/payloads"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventLoadStatusChanged, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	output, err := reg.Decode(enums.EventLoadStatusChanged, 1, json.RawMessage(`{"to":"delivered"}`))
	require.NoError(t, err)
	outMap, ok := output.(map[string]string)
	require.True(t, ok)
	require.Equal(t, "delivered", outMap["to"])

	_, err = reg.Decode(enums.EventLoadStatusChanged, 2, json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestNotificationDecodersExposeNotice(t *testing.T) {
	carrierID := uuid.New()
	data, err := json.Marshal(payloads.BidAcceptedEvent{
		Notice: payloads.Notice{
			Recipients: []payloads.Recipient{{Role: enums.ActorRoleCarrier, CompanyID: &carrierID}},
			Type:       enums.NotificationTypeAssignmentAlert,
			EntityType: enums.AggregateLoad,
			EntityID:   uuid.New(),
			Title:      "Bid accepted",
			Message:    "Your bid on LD-1 was accepted",
		},
		CarrierID: carrierID,
	})
	require.NoError(t, err)

	decoded, err := NewNotificationDecoders().Decode(enums.EventBidAccepted, 1, data)
	require.NoError(t, err)

	notifier, ok := decoded.(payloads.Notifier)
	require.True(t, ok)
	notice := notifier.Notification()
	require.Len(t, notice.Recipients, 1)
	require.Equal(t, carrierID, *notice.Recipients[0].CompanyID)
	require.Equal(t, "Bid accepted", notice.Title)
}
