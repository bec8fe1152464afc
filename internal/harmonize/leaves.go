package harmonize

import (
	"github.com/rowforge/rowforge/internal/validate"
	"github.com/rowforge/rowforge/pkg/types"
)

var tumorTypeDescriptor = &types.LeafDescriptor{
	Name: FieldTumorType,
	Columns: []types.LeafColumn{
		{Name: "icd10_code", Type: types.TypeString},
		{Name: "icd10_description", Type: types.TypeString},
		{Name: "main_tumor_type", Type: types.TypeString},
		{Name: "main_tumor_type_code", Type: types.TypeInteger},
		{Name: "cohort_tumor_type", Type: types.TypeString},
		{Name: "other_tumor_type", Type: types.TypeString},
	},
}

// TumorType is the harmonized tumor classification of one subject.
type TumorType struct {
	validate.Tracked

	icd10Code         *string
	icd10Description  *string
	mainTumorType     *string
	mainTumorTypeCode *int64
	cohortTumorType   *string
	otherTumorType    *string
}

// SetICD10Code parses and sets the ICD-10 code.
func (t *TumorType) SetICD10Code(raw string) error {
	return setString(&t.Tracked, &t.icd10Code, raw, "icd10_code")
}

// SetICD10Description parses and sets the ICD-10 description.
func (t *TumorType) SetICD10Description(raw string) error {
	return setString(&t.Tracked, &t.icd10Description, raw, "icd10_description")
}

// SetMainTumorType parses and sets the main tumor type label.
func (t *TumorType) SetMainTumorType(raw string) error {
	return setString(&t.Tracked, &t.mainTumorType, raw, "main_tumor_type")
}

// SetMainTumorTypeCode parses and sets the main tumor type concept code.
func (t *TumorType) SetMainTumorTypeCode(raw string) error {
	return setInt(&t.Tracked, &t.mainTumorTypeCode, raw, "main_tumor_type_code")
}

// SetCohortTumorType parses and sets the cohort-level tumor type.
func (t *TumorType) SetCohortTumorType(raw string) error {
	return setString(&t.Tracked, &t.cohortTumorType, raw, "cohort_tumor_type")
}

// SetOtherTumorType parses and sets the free-text tumor type.
func (t *TumorType) SetOtherTumorType(raw string) error {
	return setString(&t.Tracked, &t.otherTumorType, raw, "other_tumor_type")
}

// Fields implements types.Leaf.
func (t *TumorType) Fields() *types.OrderedFields {
	f := types.NewOrderedFields()
	f.Set("icd10_code", deref(t.icd10Code))
	f.Set("icd10_description", deref(t.icd10Description))
	f.Set("main_tumor_type", deref(t.mainTumorType))
	f.Set("main_tumor_type_code", deref(t.mainTumorTypeCode))
	f.Set("cohort_tumor_type", deref(t.cohortTumorType))
	f.Set("other_tumor_type", deref(t.otherTumorType))
	return f
}

var studyDrugsDescriptor = &types.LeafDescriptor{
	Name: FieldStudyDrugs,
	Columns: []types.LeafColumn{
		{Name: "drug_name", Type: types.TypeString},
		{Name: "dose", Type: types.TypeFloat},
		{Name: "dose_unit", Type: types.TypeString},
		{Name: "start_date", Type: types.TypeDate},
	},
}

// StudyDrugs is the harmonized study-drug assignment of one subject.
type StudyDrugs struct {
	validate.Tracked

	drugName  *string
	dose      *float64
	doseUnit  *string
	startDate *types.Date
}

// SetDrugName parses and sets the assigned drug name.
func (s *StudyDrugs) SetDrugName(raw string) error {
	return setString(&s.Tracked, &s.drugName, raw, "drug_name")
}

// SetDose parses and sets the assigned dose.
func (s *StudyDrugs) SetDose(raw string) error {
	v, err := validate.OptionalFloat(raw, "dose")
	if err != nil {
		return err
	}
	s.dose = v
	s.Mark("dose")
	return nil
}

// SetDoseUnit parses and sets the dose unit.
func (s *StudyDrugs) SetDoseUnit(raw string) error {
	return setString(&s.Tracked, &s.doseUnit, raw, "dose_unit")
}

// SetStartDate parses and sets the dosing start date.
func (s *StudyDrugs) SetStartDate(raw string) error {
	return setDate(&s.Tracked, &s.startDate, raw, "start_date")
}

// Fields implements types.Leaf.
func (s *StudyDrugs) Fields() *types.OrderedFields {
	f := types.NewOrderedFields()
	f.Set("drug_name", deref(s.drugName))
	f.Set("dose", deref(s.dose))
	f.Set("dose_unit", deref(s.doseUnit))
	f.Set("start_date", deref(s.startDate))
	return f
}

var ecogDescriptor = &types.LeafDescriptor{
	Name: FieldEcog,
	Columns: []types.LeafColumn{
		{Name: "score", Type: types.TypeInteger},
		{Name: "assessed_on", Type: types.TypeDate},
	},
}

// Ecog is the baseline ECOG performance status of one subject.
type Ecog struct {
	validate.Tracked

	score      *int64
	assessedOn *types.Date
}

// SetScore parses and sets the ECOG score.
func (e *Ecog) SetScore(raw string) error {
	return setInt(&e.Tracked, &e.score, raw, "score")
}

// SetAssessedOn parses and sets the assessment date.
func (e *Ecog) SetAssessedOn(raw string) error {
	return setDate(&e.Tracked, &e.assessedOn, raw, "assessed_on")
}

// Fields implements types.Leaf.
func (e *Ecog) Fields() *types.OrderedFields {
	f := types.NewOrderedFields()
	f.Set("score", deref(e.score))
	f.Set("assessed_on", deref(e.assessedOn))
	return f
}

var previousTreatmentDescriptor = &types.LeafDescriptor{
	Name: FieldPreviousTreatments,
	Columns: []types.LeafColumn{
		{Name: "line_number", Type: types.TypeInteger},
		{Name: "treatment", Type: types.TypeString},
		{Name: "start_date", Type: types.TypeDate},
		{Name: "best_response", Type: types.TypeString},
	},
}

// PreviousTreatment is one prior line of therapy.
type PreviousTreatment struct {
	validate.Tracked

	lineNumber   *int64
	treatment    *string
	startDate    *types.Date
	bestResponse *string
}

// SetLineNumber parses and sets the therapy line number.
func (p *PreviousTreatment) SetLineNumber(raw string) error {
	return setInt(&p.Tracked, &p.lineNumber, raw, "line_number")
}

// SetTreatment parses and sets the treatment description.
func (p *PreviousTreatment) SetTreatment(raw string) error {
	return setString(&p.Tracked, &p.treatment, raw, "treatment")
}

// SetStartDate parses and sets the line start date.
func (p *PreviousTreatment) SetStartDate(raw string) error {
	return setDate(&p.Tracked, &p.startDate, raw, "start_date")
}

// SetBestResponse parses and sets the best observed response.
func (p *PreviousTreatment) SetBestResponse(raw string) error {
	return setString(&p.Tracked, &p.bestResponse, raw, "best_response")
}

// Fields implements types.Leaf.
func (p *PreviousTreatment) Fields() *types.OrderedFields {
	f := types.NewOrderedFields()
	f.Set("line_number", deref(p.lineNumber))
	f.Set("treatment", deref(p.treatment))
	f.Set("start_date", deref(p.startDate))
	f.Set("best_response", deref(p.bestResponse))
	return f
}

func setString(t *validate.Tracked, dst **string, raw, field string) error {
	v, err := validate.OptionalString(raw, field)
	if err != nil {
		return err
	}
	*dst = v
	t.Mark(field)
	return nil
}

func setInt(t *validate.Tracked, dst **int64, raw, field string) error {
	v, err := validate.OptionalInt(raw, field)
	if err != nil {
		return err
	}
	*dst = v
	t.Mark(field)
	return nil
}

func setDate(t *validate.Tracked, dst **types.Date, raw, field string) error {
	v, err := validate.OptionalDate(raw, field)
	if err != nil {
		return err
	}
	*dst = v
	t.Mark(field)
	return nil
}
