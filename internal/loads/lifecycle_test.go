package loads

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/freightdispatch-backend/pkg/db/models"
	"github.com/angelmondragon/freightdispatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/freightdispatch-backend/pkg/errors"
	"github.com/angelmondragon/freightdispatch-backend/pkg/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to enums.LoadStatus
		want     bool
	}{
		{enums.LoadStatusDraft, enums.LoadStatusPosted, true},
		{enums.LoadStatusDraft, enums.LoadStatusCancelled, true},
		{enums.LoadStatusDraft, enums.LoadStatusInTransit, false},
		{enums.LoadStatusPosted, enums.LoadStatusPendingPickup, true},
		{enums.LoadStatusPosted, enums.LoadStatusDraft, false},
		{enums.LoadStatusPendingPickup, enums.LoadStatusInTransit, true},
		{enums.LoadStatusPendingPickup, enums.LoadStatusCancelled, true},
		{enums.LoadStatusInTransit, enums.LoadStatusDelivered, true},
		{enums.LoadStatusInTransit, enums.LoadStatusCancelled, true},
		{enums.LoadStatusDelivered, enums.LoadStatusCancelled, false},
		{enums.LoadStatusDelivered, enums.LoadStatusClosed, true},
		{enums.LoadStatusDelivered, enums.LoadStatusInTransit, false},
		{enums.LoadStatusClosed, enums.LoadStatusCancelled, false},
		{enums.LoadStatusCancelled, enums.LoadStatusPosted, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestNextStatusesReturnsCopy(t *testing.T) {
	next := NextStatuses(enums.LoadStatusDraft)
	next[0] = enums.LoadStatusClosed
	require.True(t, CanTransition(enums.LoadStatusDraft, enums.LoadStatusPosted))
	require.Empty(t, NextStatuses(enums.LoadStatusClosed))
}

func TestAuthorizeTransition(t *testing.T) {
	carrierID := uuid.New()
	otherCarrier := uuid.New()
	customerID := uuid.New()
	driverID := uuid.New()

	carrierLoad := &models.Load{Status: enums.LoadStatusPendingPickup, CarrierID: &carrierID, CustomerID: customerID}
	internalLoad := &models.Load{Status: enums.LoadStatusInTransit, DriverID: &driverID, CustomerID: customerID}
	draftLoad := &models.Load{Status: enums.LoadStatusDraft, CustomerID: customerID}

	cases := []struct {
		name  string
		actor types.Actor
		load  *models.Load
		to    enums.LoadStatus
		ok    bool
	}{
		{"dispatcher any edge", dispatcher(), draftLoad, enums.LoadStatusPosted, true},
		{"admin any edge", types.Actor{Role: enums.ActorRoleAdmin}, carrierLoad, enums.LoadStatusCancelled, true},
		{"assigned carrier picks up", carrierActor(carrierID), carrierLoad, enums.LoadStatusInTransit, true},
		{"assigned carrier cannot cancel", carrierActor(carrierID), carrierLoad, enums.LoadStatusCancelled, false},
		{"other carrier", carrierActor(otherCarrier), carrierLoad, enums.LoadStatusInTransit, false},
		{"driver on internal load", types.Actor{UserID: driverID, Role: enums.ActorRoleDriver}, internalLoad, enums.LoadStatusDelivered, true},
		{"other driver", types.Actor{UserID: uuid.New(), Role: enums.ActorRoleDriver}, internalLoad, enums.LoadStatusDelivered, false},
		{"shipper cancels own draft", shipperActor(customerID), draftLoad, enums.LoadStatusCancelled, true},
		{"shipper cannot post", shipperActor(customerID), draftLoad, enums.LoadStatusPosted, false},
		{"foreign shipper", shipperActor(uuid.New()), draftLoad, enums.LoadStatusCancelled, false},
		{"shipper cannot cancel after assignment", shipperActor(customerID), carrierLoad, enums.LoadStatusCancelled, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := authorizeTransition(tc.actor, tc.load, tc.to)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
		})
	}
}

func TestCanView(t *testing.T) {
	carrierID := uuid.New()
	customerID := uuid.New()
	posted := &models.Load{Status: enums.LoadStatusPosted, CustomerID: customerID}
	hauled := &models.Load{Status: enums.LoadStatusInTransit, CarrierID: &carrierID, CustomerID: customerID}

	require.True(t, canView(carrierActor(uuid.New()), posted))
	require.False(t, canView(carrierActor(uuid.New()), hauled))
	require.True(t, canView(carrierActor(carrierID), hauled))
	require.True(t, canView(shipperActor(customerID), hauled))
	require.False(t, canView(shipperActor(uuid.New()), posted))
	require.True(t, canView(dispatcher(), hauled))
}
