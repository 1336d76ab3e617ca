package enums

import "testing"

func TestParseLoadStatus(t *testing.T) {
	cases := map[string]LoadStatus{
		"draft":          LoadStatusDraft,
		" Posted ":       LoadStatusPosted,
		"pending":        LoadStatusPosted,
		"PENDING_PICKUP": LoadStatusPendingPickup,
		"in_transit":     LoadStatusInTransit,
		"cancelled":      LoadStatusCancelled,
	}
	for input, want := range cases {
		got, err := ParseLoadStatus(input)
		if err != nil {
			t.Fatalf("ParseLoadStatus(%q) error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseLoadStatus(%q) = %q, want %q", input, got, want)
		}
	}

	if _, err := ParseLoadStatus("shipped"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestLoadStatusPredicates(t *testing.T) {
	if !LoadStatusClosed.IsTerminal() || !LoadStatusCancelled.IsTerminal() {
		t.Fatalf("closed and cancelled are terminal")
	}
	if LoadStatusDelivered.IsTerminal() {
		t.Fatalf("delivered is not terminal")
	}
	if !LoadStatusInTransit.IsActiveTransport() || LoadStatusPendingPickup.IsActiveTransport() {
		t.Fatalf("unexpected active transport classification")
	}
}

func TestEquipmentCompatible(t *testing.T) {
	cases := []struct {
		driver, load EquipmentType
		want         bool
	}{
		{EquipmentDryVan, EquipmentDryVan, true},
		{EquipmentReefer, EquipmentDryVan, true},
		{EquipmentDryVan, EquipmentReefer, false},
		{EquipmentFlatbed, EquipmentDryVan, false},
		{"", EquipmentTanker, true},
		{EquipmentTanker, "", true},
	}
	for _, tc := range cases {
		if got := tc.driver.Compatible(tc.load); got != tc.want {
			t.Fatalf("%q.Compatible(%q) = %v, want %v", tc.driver, tc.load, got, tc.want)
		}
	}
}

func TestParseEquipmentType(t *testing.T) {
	got, err := ParseEquipmentType(" Step_Deck ")
	if err != nil || got != EquipmentStepDeck {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := ParseEquipmentType("hopper"); err == nil {
		t.Fatalf("expected error for unknown equipment")
	}
}

func TestActorRoles(t *testing.T) {
	role, err := ParseActorRole("Dispatcher")
	if err != nil || role != ActorRoleDispatcher {
		t.Fatalf("got %q, %v", role, err)
	}
	if !ActorRoleAdmin.IsStaff() || !ActorRoleDispatcher.IsStaff() {
		t.Fatalf("dispatcher and admin are staff")
	}
	if ActorRoleCarrier.IsStaff() || ActorRoleDriver.IsStaff() {
		t.Fatalf("carrier and driver are not staff")
	}
	if _, err := ParseActorRole("broker"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestParseStopType(t *testing.T) {
	if got, err := ParseStopType("pickup"); err != nil || got != StopTypePickup {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := ParseStopType("Delivery"); err == nil {
		t.Fatalf("stop types are case sensitive")
	}
}
