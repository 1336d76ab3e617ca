package enums

import (
	"fmt"
	"strings"
)

// EquipmentType is the trailer class a load requires or a driver operates.
type EquipmentType string

const (
	EquipmentDryVan    EquipmentType = "dry_van"
	EquipmentReefer    EquipmentType = "reefer"
	EquipmentFlatbed   EquipmentType = "flatbed"
	EquipmentStepDeck  EquipmentType = "step_deck"
	EquipmentPowerOnly EquipmentType = "power_only"
	EquipmentBoxTruck  EquipmentType = "box_truck"
	EquipmentTanker    EquipmentType = "tanker"
)

var validEquipmentTypes = []EquipmentType{
	EquipmentDryVan,
	EquipmentReefer,
	EquipmentFlatbed,
	EquipmentStepDeck,
	EquipmentPowerOnly,
	EquipmentBoxTruck,
	EquipmentTanker,
}

func (e EquipmentType) String() string {
	return string(e)
}

func (e EquipmentType) IsValid() bool {
	for _, candidate := range validEquipmentTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// Compatible reports whether equipment e can haul a load requiring other.
// Unknown values on either side are treated as compatible.
func (e EquipmentType) Compatible(other EquipmentType) bool {
	if e == "" || other == "" {
		return true
	}
	if e == other {
		return true
	}
	// a reefer can run dry freight with the unit off
	return e == EquipmentReefer && other == EquipmentDryVan
}

func ParseEquipmentType(value string) (EquipmentType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validEquipmentTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid equipment type %q", value)
}
