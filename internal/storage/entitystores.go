package storage

import (
	"context"

	"github.com/nutrimed/nutrisync/internal/models"
)

// Typed wrappers over the generic store, one per entity collection. They
// expose the query surface the rest of the application actually uses and pin
// index names to one place.

type PatientStore struct{ s *Store }

func NewPatientStore(s *Store) *PatientStore { return &PatientStore{s: s} }

func (p *PatientStore) Save(ctx context.Context, rec models.Record) (models.Record, error) {
	return p.s.Save(ctx, Patients, rec)
}

func (p *PatientStore) SaveMany(ctx context.Context, recs []models.Record) ([]models.Record, error) {
	return p.s.SaveMany(ctx, Patients, recs)
}

func (p *PatientStore) Get(ctx context.Context, id string) (models.Record, error) {
	return p.s.Get(ctx, Patients, id)
}

// GetByCode returns the patient with the given access code, or nil.
func (p *PatientStore) GetByCode(ctx context.Context, accessCode string) (models.Record, error) {
	recs, err := p.s.GetByIndex(ctx, Patients, "by_code", accessCode)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

func (p *PatientStore) GetByDoctor(ctx context.Context, doctorEmail string) ([]models.Record, error) {
	return p.s.GetByIndex(ctx, Patients, "by_doctor", doctorEmail)
}

func (p *PatientStore) GetAll(ctx context.Context) ([]models.Record, error) {
	return p.s.GetAll(ctx, Patients)
}

func (p *PatientStore) Delete(ctx context.Context, id string) error {
	return p.s.Delete(ctx, Patients, id)
}

type DietPlanStore struct{ s *Store }

func NewDietPlanStore(s *Store) *DietPlanStore { return &DietPlanStore{s: s} }

func (d *DietPlanStore) Save(ctx context.Context, rec models.Record) (models.Record, error) {
	return d.s.Save(ctx, DietPlans, rec)
}

func (d *DietPlanStore) SaveMany(ctx context.Context, recs []models.Record) ([]models.Record, error) {
	return d.s.SaveMany(ctx, DietPlans, recs)
}

func (d *DietPlanStore) Get(ctx context.Context, id string) (models.Record, error) {
	return d.s.Get(ctx, DietPlans, id)
}

func (d *DietPlanStore) GetByPatient(ctx context.Context, patientID string) ([]models.Record, error) {
	return d.s.GetByIndex(ctx, DietPlans, "by_patient", patientID)
}

func (d *DietPlanStore) GetByDietType(ctx context.Context, dietType string) ([]models.Record, error) {
	return d.s.GetByIndex(ctx, DietPlans, "by_type", dietType)
}

func (d *DietPlanStore) GetAll(ctx context.Context) ([]models.Record, error) {
	return d.s.GetAll(ctx, DietPlans)
}

func (d *DietPlanStore) Delete(ctx context.Context, id string) error {
	return d.s.Delete(ctx, DietPlans, id)
}

type WeightRecordStore struct{ s *Store }

func NewWeightRecordStore(s *Store) *WeightRecordStore { return &WeightRecordStore{s: s} }

func (w *WeightRecordStore) Save(ctx context.Context, rec models.Record) (models.Record, error) {
	return w.s.Save(ctx, WeightRecords, rec)
}

func (w *WeightRecordStore) SaveMany(ctx context.Context, recs []models.Record) ([]models.Record, error) {
	return w.s.SaveMany(ctx, WeightRecords, recs)
}

func (w *WeightRecordStore) Get(ctx context.Context, id string) (models.Record, error) {
	return w.s.Get(ctx, WeightRecords, id)
}

func (w *WeightRecordStore) GetByPatient(ctx context.Context, patientID string) ([]models.Record, error) {
	return w.s.GetByIndex(ctx, WeightRecords, "by_patient", patientID)
}

func (w *WeightRecordStore) GetAll(ctx context.Context) ([]models.Record, error) {
	return w.s.GetAll(ctx, WeightRecords)
}

func (w *WeightRecordStore) Delete(ctx context.Context, id string) error {
	return w.s.Delete(ctx, WeightRecords, id)
}

type RecipeStore struct{ s *Store }

func NewRecipeStore(s *Store) *RecipeStore { return &RecipeStore{s: s} }

func (r *RecipeStore) Save(ctx context.Context, rec models.Record) (models.Record, error) {
	return r.s.Save(ctx, Recipes, rec)
}

func (r *RecipeStore) SaveMany(ctx context.Context, recs []models.Record) ([]models.Record, error) {
	return r.s.SaveMany(ctx, Recipes, recs)
}

func (r *RecipeStore) Get(ctx context.Context, id string) (models.Record, error) {
	return r.s.Get(ctx, Recipes, id)
}

func (r *RecipeStore) GetByDietType(ctx context.Context, dietType string) ([]models.Record, error) {
	return r.s.GetByIndex(ctx, Recipes, "by_diet_type", dietType)
}

func (r *RecipeStore) GetByMealType(ctx context.Context, mealType string) ([]models.Record, error) {
	return r.s.GetByIndex(ctx, Recipes, "by_meal_type", mealType)
}

func (r *RecipeStore) GetAll(ctx context.Context) ([]models.Record, error) {
	return r.s.GetAll(ctx, Recipes)
}

func (r *RecipeStore) Delete(ctx context.Context, id string) error {
	return r.s.Delete(ctx, Recipes, id)
}

type MedicationStore struct{ s *Store }

func NewMedicationStore(s *Store) *MedicationStore { return &MedicationStore{s: s} }

func (m *MedicationStore) Save(ctx context.Context, rec models.Record) (models.Record, error) {
	return m.s.Save(ctx, Medications, rec)
}

func (m *MedicationStore) SaveMany(ctx context.Context, recs []models.Record) ([]models.Record, error) {
	return m.s.SaveMany(ctx, Medications, recs)
}

func (m *MedicationStore) Get(ctx context.Context, id string) (models.Record, error) {
	return m.s.Get(ctx, Medications, id)
}

func (m *MedicationStore) GetByPatient(ctx context.Context, patientID string) ([]models.Record, error) {
	return m.s.GetByIndex(ctx, Medications, "by_patient", patientID)
}

func (m *MedicationStore) GetAll(ctx context.Context) ([]models.Record, error) {
	return m.s.GetAll(ctx, Medications)
}

func (m *MedicationStore) Delete(ctx context.Context, id string) error {
	return m.s.Delete(ctx, Medications, id)
}

// PreferenceStore persists user preferences as key/value pairs.
type PreferenceStore struct{ s *Store }

func NewPreferenceStore(s *Store) *PreferenceStore { return &PreferenceStore{s: s} }

func (p *PreferenceStore) Set(ctx context.Context, key string, value any) error {
	_, err := p.s.Save(ctx, UserPreferences, models.Record{"key": key, "value": value})
	return err
}

// Get returns the stored value for key, or defaultValue when unset.
func (p *PreferenceStore) Get(ctx context.Context, key string, defaultValue any) (any, error) {
	rec, err := p.s.Get(ctx, UserPreferences, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return defaultValue, nil
	}
	v, ok := rec["value"]
	if !ok || v == nil {
		return defaultValue, nil
	}
	return v, nil
}

func (p *PreferenceStore) Remove(ctx context.Context, key string) error {
	return p.s.Delete(ctx, UserPreferences, key)
}

// All returns every preference as a key→value map.
func (p *PreferenceStore) All(ctx context.Context) (map[string]any, error) {
	recs, err := p.s.GetAll(ctx, UserPreferences)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(recs))
	for _, rec := range recs {
		out[rec.StringField("key")] = rec["value"]
	}
	return out, nil
}

// SubscriptionStore keeps the latest subscription snapshot per user.
type SubscriptionStore struct{ s *Store }

func NewSubscriptionStore(s *Store) *SubscriptionStore { return &SubscriptionStore{s: s} }

func (s *SubscriptionStore) Save(ctx context.Context, rec models.Record) (models.Record, error) {
	return s.s.Save(ctx, Subscription, rec)
}

func (s *SubscriptionStore) Get(ctx context.Context, userID string) (models.Record, error) {
	return s.s.Get(ctx, Subscription, userID)
}

func (s *SubscriptionStore) Delete(ctx context.Context, userID string) error {
	return s.s.Delete(ctx, Subscription, userID)
}

func (s *SubscriptionStore) GetAll(ctx context.Context) ([]models.Record, error) {
	return s.s.GetAll(ctx, Subscription)
}
