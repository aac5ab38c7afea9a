package models

import (
	"fmt"

	"github.com/nutrimed/nutrisync/internal/common"
)

// EntityType identifies one of the record categories synchronized between
// local and remote storage. The set is closed: adding a type means touching
// this enum and every switch over it, which is the point.
type EntityType string

const (
	EntityPatient      EntityType = "patient"
	EntityDietPlan     EntityType = "dietPlan"
	EntityWeightRecord EntityType = "weightRecord"
	EntityRecipe       EntityType = "recipe"
	EntityMedication   EntityType = "medication"
)

// EntityTypes lists every syncable entity type.
var EntityTypes = []EntityType{
	EntityPatient,
	EntityDietPlan,
	EntityWeightRecord,
	EntityRecipe,
	EntityMedication,
}

// ParseEntityType validates a stored entity type string.
func ParseEntityType(s string) (EntityType, error) {
	switch t := EntityType(s); t {
	case EntityPatient, EntityDietPlan, EntityWeightRecord, EntityRecipe, EntityMedication:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnknownEntityType, s)
}

// Action is the write verb a queued operation replays against the remote API.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ParseAction validates a stored action string.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnknownAction, s)
}
