// Package harmonize builds validated per-subject object graphs from
// trial-specific case-report-form exports. It is the producer layer in front
// of the serialization engine: it constructs Patient root entities, then
// populates their sub-records exclusively through the hydrate protocol.
package harmonize

import (
	"fmt"
	"time"

	"github.com/rowforge/rowforge/internal/validate"
	"github.com/rowforge/rowforge/pkg/types"
)

// Field names of the Patient entity.
const (
	FieldCohortName         = "cohort_name"
	FieldSex                = "sex"
	FieldAge                = "age"
	FieldEvaluable          = "evaluable_for_efficacy"
	FieldTreatmentStartDate = "treatment_start_date"
	FieldDateOfDeath        = "date_of_death"
	FieldTumorType          = "tumor_type"
	FieldStudyDrugs         = "study_drugs"
	FieldEcog               = "ecog"
	FieldPreviousTreatments = "previous_treatments"
	FieldQLQC30             = "qlq_c30"
)

// patientDescriptor is the static registration table for the Patient entity
// type: the schema deriver works from it instead of runtime reflection.
var patientDescriptor = &types.EntityDescriptor{
	Name:     "patients",
	Identity: []string{"patient_id", "trial_id"},
	Fields: []types.FieldDef{
		{Name: FieldCohortName, Kind: types.ScalarField, Type: types.TypeString},
		{Name: FieldSex, Kind: types.ScalarField, Type: types.TypeString},
		{Name: FieldAge, Kind: types.ScalarField, Type: types.TypeInteger},
		{Name: FieldEvaluable, Kind: types.ScalarField, Type: types.TypeBoolean},
		{Name: FieldTreatmentStartDate, Kind: types.ScalarField, Type: types.TypeDate},
		{Name: FieldDateOfDeath, Kind: types.ScalarField, Type: types.TypeDateTime},
		{Name: FieldTumorType, Kind: types.SingletonField, Leaf: tumorTypeDescriptor},
		{Name: FieldStudyDrugs, Kind: types.SingletonField, Leaf: studyDrugsDescriptor},
		{Name: FieldEcog, Kind: types.SingletonField, Leaf: ecogDescriptor},
		{Name: FieldPreviousTreatments, Kind: types.CollectionField, Leaf: previousTreatmentDescriptor},
		{Name: FieldQLQC30, Kind: types.CollectionField, Leaf: qlqC30Descriptor},
	},
}

// PatientDescriptor returns the Patient entity descriptor.
func PatientDescriptor() *types.EntityDescriptor {
	return patientDescriptor
}

// Patient is the root entity: one harmonized trial subject. Identity is
// fixed at construction; scalar fields are set through validated setters;
// sub-records are attached only by the hydrate protocol.
type Patient struct {
	validate.Tracked

	patientID string
	trialID   string

	cohortName         *string
	sex                *string
	age                *int64
	evaluable          *bool
	treatmentStartDate *types.Date
	dateOfDeath        *time.Time

	tumorType  *TumorType
	studyDrugs *StudyDrugs
	ecog       *Ecog

	previousTreatments []*PreviousTreatment
	qlqC30             []*QLQC30
}

// NewPatient constructs a patient with its immutable identity.
func NewPatient(patientID, trialID string) (*Patient, error) {
	if patientID == "" || trialID == "" {
		return nil, fmt.Errorf("patient identity requires patient_id and trial_id, got (%q, %q)", patientID, trialID)
	}
	return &Patient{patientID: patientID, trialID: trialID}, nil
}

// PatientID returns the subject key.
func (p *Patient) PatientID() string { return p.patientID }

// TrialID returns the owning-trial key.
func (p *Patient) TrialID() string { return p.trialID }

// SetCohortName parses and sets the cohort name from a raw cell.
func (p *Patient) SetCohortName(raw string) error {
	v, err := validate.OptionalString(raw, FieldCohortName)
	if err != nil {
		return err
	}
	p.cohortName = v
	p.Mark(FieldCohortName)
	return nil
}

// SetSex parses and sets the subject's sex from a raw cell.
func (p *Patient) SetSex(raw string) error {
	v, err := validate.OptionalString(raw, FieldSex)
	if err != nil {
		return err
	}
	p.sex = v
	p.Mark(FieldSex)
	return nil
}

// SetAge parses and sets the age in years from a raw cell.
func (p *Patient) SetAge(raw string) error {
	v, err := validate.OptionalInt(raw, FieldAge)
	if err != nil {
		return err
	}
	p.age = v
	p.Mark(FieldAge)
	return nil
}

// SetEvaluable parses and sets the efficacy-evaluability flag.
func (p *Patient) SetEvaluable(raw string) error {
	v, err := validate.OptionalBool(raw, FieldEvaluable)
	if err != nil {
		return err
	}
	p.evaluable = v
	p.Mark(FieldEvaluable)
	return nil
}

// SetTreatmentStartDate parses and sets the first treatment date.
func (p *Patient) SetTreatmentStartDate(raw string) error {
	v, err := validate.OptionalDate(raw, FieldTreatmentStartDate)
	if err != nil {
		return err
	}
	p.treatmentStartDate = v
	p.Mark(FieldTreatmentStartDate)
	return nil
}

// SetDateOfDeath parses and sets the death timestamp.
func (p *Patient) SetDateOfDeath(raw string) error {
	v, err := validate.OptionalDateTime(raw, FieldDateOfDeath)
	if err != nil {
		return err
	}
	p.dateOfDeath = v
	p.Mark(FieldDateOfDeath)
	return nil
}

// Descriptor implements types.Entity.
func (p *Patient) Descriptor() *types.EntityDescriptor { return patientDescriptor }

// Identity implements types.Entity; values align with the descriptor's
// identity columns (patient_id, trial_id).
func (p *Patient) Identity() []string { return []string{p.patientID, p.trialID} }

// Scalar implements types.Entity.
func (p *Patient) Scalar(field string) types.Value {
	switch field {
	case FieldCohortName:
		return deref(p.cohortName)
	case FieldSex:
		return deref(p.sex)
	case FieldAge:
		return deref(p.age)
	case FieldEvaluable:
		return deref(p.evaluable)
	case FieldTreatmentStartDate:
		return deref(p.treatmentStartDate)
	case FieldDateOfDeath:
		return deref(p.dateOfDeath)
	default:
		return nil
	}
}

// Singleton implements types.Entity.
func (p *Patient) Singleton(field string) types.Leaf {
	switch field {
	case FieldTumorType:
		if p.tumorType == nil {
			return nil
		}
		return p.tumorType
	case FieldStudyDrugs:
		if p.studyDrugs == nil {
			return nil
		}
		return p.studyDrugs
	case FieldEcog:
		if p.ecog == nil {
			return nil
		}
		return p.ecog
	default:
		return nil
	}
}

// Collection implements types.Entity; order is the hydration order.
func (p *Patient) Collection(field string) []types.Leaf {
	switch field {
	case FieldPreviousTreatments:
		out := make([]types.Leaf, len(p.previousTreatments))
		for i, l := range p.previousTreatments {
			out[i] = l
		}
		return out
	case FieldQLQC30:
		out := make([]types.Leaf, len(p.qlqC30))
		for i, l := range p.qlqC30 {
			out[i] = l
		}
		return out
	default:
		return nil
	}
}

// SetSingleton implements types.Entity.
func (p *Patient) SetSingleton(field string, leaf types.Leaf) error {
	switch field {
	case FieldTumorType:
		l, ok := leaf.(*TumorType)
		if !ok {
			return wrongLeafType(field, leaf)
		}
		p.tumorType = l
	case FieldStudyDrugs:
		l, ok := leaf.(*StudyDrugs)
		if !ok {
			return wrongLeafType(field, leaf)
		}
		p.studyDrugs = l
	case FieldEcog:
		l, ok := leaf.(*Ecog)
		if !ok {
			return wrongLeafType(field, leaf)
		}
		p.ecog = l
	default:
		return fmt.Errorf("patient has no singleton field %q", field)
	}
	p.Mark(field)
	return nil
}

// SetCollection implements types.Entity.
func (p *Patient) SetCollection(field string, leaves []types.Leaf) error {
	switch field {
	case FieldPreviousTreatments:
		out := make([]*PreviousTreatment, len(leaves))
		for i, leaf := range leaves {
			l, ok := leaf.(*PreviousTreatment)
			if !ok {
				return wrongLeafType(field, leaf)
			}
			out[i] = l
		}
		p.previousTreatments = out
	case FieldQLQC30:
		out := make([]*QLQC30, len(leaves))
		for i, leaf := range leaves {
			l, ok := leaf.(*QLQC30)
			if !ok {
				return wrongLeafType(field, leaf)
			}
			out[i] = l
		}
		p.qlqC30 = out
	default:
		return fmt.Errorf("patient has no collection field %q", field)
	}
	p.Mark(field)
	return nil
}

func wrongLeafType(field string, leaf types.Leaf) error {
	return fmt.Errorf("field %q: wrong leaf type %T", field, leaf)
}

func deref(v interface{}) types.Value {
	switch x := v.(type) {
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case *int64:
		if x == nil {
			return nil
		}
		return *x
	case *float64:
		if x == nil {
			return nil
		}
		return *x
	case *bool:
		if x == nil {
			return nil
		}
		return *x
	case *types.Date:
		if x == nil {
			return nil
		}
		return *x
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	default:
		return nil
	}
}
