package storage

import (
	"fmt"

	"github.com/nutrimed/nutrisync/internal/common"
	"github.com/nutrimed/nutrisync/internal/models"
)

// Collection names. Each one maps to its own sqlite table created by the
// embedded migrations.
const (
	Patients        = "patients"
	DietPlans       = "diet_plans"
	WeightRecords   = "weight_records"
	Recipes         = "recipes"
	Medications     = "medications"
	UserPreferences = "user_preferences"
	Subscription    = "subscription"
)

// Index is a secondary index over a single record field. The field value is
// extracted at save time into a dedicated indexed column.
type Index struct {
	Name  string
	Field string
}

// Collection describes one named object store: its primary-key field and its
// secondary indexes.
type Collection struct {
	Name     string
	KeyField string
	Indexes  []Index
}

// collections is the closed registry of object stores. It mirrors the
// application's entity schema; unknown collection names are rejected by every
// store operation.
var collections = map[string]Collection{
	Patients: {
		Name:     Patients,
		KeyField: "id",
		Indexes: []Index{
			{Name: "by_code", Field: "access_code"},
			{Name: "by_doctor", Field: "assigned_doctor"},
		},
	},
	DietPlans: {
		Name:     DietPlans,
		KeyField: "id",
		Indexes: []Index{
			{Name: "by_patient", Field: "patient_id"},
			{Name: "by_type", Field: "diet_type"},
		},
	},
	WeightRecords: {
		Name:     WeightRecords,
		KeyField: "id",
		Indexes: []Index{
			{Name: "by_patient", Field: "patient_id"},
			{Name: "by_date", Field: "date"},
		},
	},
	Recipes: {
		Name:     Recipes,
		KeyField: "id",
		Indexes: []Index{
			{Name: "by_diet_type", Field: "diet_type"},
			{Name: "by_meal_type", Field: "meal_type"},
		},
	},
	Medications: {
		Name:     Medications,
		KeyField: "id",
		Indexes: []Index{
			{Name: "by_patient", Field: "patient_id"},
		},
	},
	UserPreferences: {
		Name:     UserPreferences,
		KeyField: "key",
	},
	Subscription: {
		Name:     Subscription,
		KeyField: "userId",
	},
}

// EntityCollection maps a syncable entity type to its collection name.
func EntityCollection(t models.EntityType) string {
	switch t {
	case models.EntityPatient:
		return Patients
	case models.EntityDietPlan:
		return DietPlans
	case models.EntityWeightRecord:
		return WeightRecords
	case models.EntityRecipe:
		return Recipes
	case models.EntityMedication:
		return Medications
	}
	return ""
}

func lookupCollection(name string) (Collection, error) {
	c, ok := collections[name]
	if !ok {
		return Collection{}, fmt.Errorf("%w: %q", common.ErrUnknownCollection, name)
	}
	return c, nil
}

func (c Collection) index(name string) (Index, error) {
	for _, idx := range c.Indexes {
		if idx.Name == name {
			return idx, nil
		}
	}
	return Index{}, fmt.Errorf("collection %q has no index %q", c.Name, name)
}
