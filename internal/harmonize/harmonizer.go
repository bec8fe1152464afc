package harmonize

import (
	"fmt"
	"strings"

	"github.com/rowforge/rowforge/internal/errors"
	"github.com/rowforge/rowforge/internal/hydrate"
	"github.com/rowforge/rowforge/internal/observability"
	"github.com/rowforge/rowforge/internal/validate"
	"github.com/rowforge/rowforge/pkg/types"
)

// Source column names in the merged eCRF export. Each record carries the
// subject key plus the columns of whichever form it came from; the other
// form columns are blank.
const (
	colSubjectID      = "SubjectId"
	colCohort         = "COH_COHORTNAME"
	colSex            = "DM_SEX"
	colAge            = "DM_AGE"
	colDeath          = "DM_DTHDTC"
	colTreatmentStart = "TR_TRTSDT"
	colEvaluable      = "EL_EVALUABLE"

	colTTICD10     = "TT_ICD10"
	colTTICD10Desc = "TT_ICD10DESC"
	colTTMain      = "TT_MAINTYPE"
	colTTMainCode  = "TT_MAINTYPECD"
	colTTCohort    = "TT_COHORTTYPE"
	colTTOther     = "TT_OTHERTYPE"

	colSDDrug     = "SD_DRUGNAME"
	colSDDose     = "SD_DOSE"
	colSDDoseUnit = "SD_DOSEUNIT"
	colSDStart    = "SD_STDT"

	colEGScore = "EG_SCORE"
	colEGDate  = "EG_DAT"

	colPTLine      = "PT_LINE"
	colPTTreatment = "PT_TRT"
	colPTStart     = "PT_STDT"
	colPTResponse  = "PT_RESP"

	colQSEvent = "QS_EVENT"
	colQSDate  = "QS_DAT"
)

// orderColumn is the synthetic sort key detail rows carry into Pack. It holds
// the parsed order value so ordering is numeric or chronological, not
// lexical.
const orderColumn = "_order"

// identityColumns are the key columns of every packed detail row.
var identityColumns = []string{"patient_id", "trial_id"}

var (
	baseColumns       = []string{colCohort, colSex, colAge, colEvaluable, colTreatmentStart, colDeath}
	tumorTypeColumns  = []string{colTTICD10, colTTICD10Desc, colTTMain, colTTMainCode, colTTCohort, colTTOther}
	studyDrugsColumns = []string{colSDDrug, colSDDose, colSDDoseUnit, colSDStart}
	ecogColumns       = []string{colEGScore, colEGDate}
	prevTreatColumns  = []string{colPTLine, colPTTreatment, colPTStart, colPTResponse}
	qlqColumns        = qlqSourceColumns()
)

func qlqSourceColumns() []string {
	cols := []string{colQSEvent, colQSDate}
	for i := 1; i <= qlqC30Items; i++ {
		cols = append(cols, fmt.Sprintf("QS_Q%d", i), fmt.Sprintf("QS_Q%dCD", i))
	}
	return cols
}

// Record is one raw row of the merged export, header name to cell.
type Record map[string]string

// Harmonizer turns raw trial export records into fully hydrated Patient
// entities. Sub-records flow exclusively through hydrate.Pack and the Attach
// functions, so referential integrity between detail rows and subjects is
// enforced in one place.
type Harmonizer struct {
	Trial    string
	Stats    *observability.RunStats
	OnOrphan hydrate.OnMissingKey
}

// Harmonize builds one Patient per distinct subject, applies the base
// scalars, then packs and attaches every sub-record form. Entities come back
// in first-seen subject order.
func (h *Harmonizer) Harmonize(records []Record) ([]types.Entity, error) {
	if h.Trial == "" {
		return nil, errors.New(errors.CategoryConfig, errors.CodeInvalidConfig, "harmonizer requires a trial id")
	}

	patients := make(map[string]*Patient)
	var order []string
	var ttRows, sdRows, egRows, ptRows, qsRows []hydrate.Row

	for i, rec := range records {
		subject := strings.TrimSpace(rec[colSubjectID])
		if subject == "" {
			return nil, errors.Newf(errors.CategoryIntegrity, errors.CodeMissingParent,
				"record %d has no %s", i, colSubjectID)
		}
		// Only records populating a base column establish a subject; detail
		// rows reference subjects, they never create them. All records are
		// collected before attach, so base and detail rows may interleave.
		if hasForm(rec, baseColumns) {
			p, ok := patients[subject]
			if !ok {
				var err error
				p, err = NewPatient(subject, h.Trial)
				if err != nil {
					return nil, err
				}
				patients[subject] = p
				order = append(order, subject)
			}
			if err := h.applyScalars(p, rec); err != nil {
				return nil, fmt.Errorf("subject %s: %w", subject, err)
			}
		}

		if hasForm(rec, tumorTypeColumns) {
			ttRows = append(ttRows, h.detailRow(rec, subject, tumorTypeColumns))
		}
		if hasForm(rec, studyDrugsColumns) {
			sdRows = append(sdRows, h.detailRow(rec, subject, studyDrugsColumns))
		}
		if hasForm(rec, ecogColumns) {
			egRows = append(egRows, h.detailRow(rec, subject, ecogColumns))
		}
		if hasForm(rec, prevTreatColumns) {
			row := h.detailRow(rec, subject, prevTreatColumns)
			if n, err := validate.OptionalInt(rec[colPTLine], colPTLine); err == nil && n != nil {
				row[orderColumn] = *n
			}
			ptRows = append(ptRows, row)
		}
		if hasForm(rec, qlqColumns) {
			row := h.detailRow(rec, subject, qlqColumns)
			if d, err := validate.OptionalDate(rec[colQSDate], colQSDate); err == nil && d != nil {
				row[orderColumn] = *d
			}
			qsRows = append(qsRows, row)
		}
	}

	lookup := func(key []string) (types.Entity, bool) {
		if len(key) != 2 || key[1] != h.Trial {
			return nil, false
		}
		p, ok := patients[key[0]]
		return p, ok
	}

	hy := &hydrate.Hydrator{Stats: h.Stats}
	attach := []struct {
		rows    []hydrate.Row
		orderBy []string
		field   string
		single  bool
		build   hydrate.LeafBuilder
	}{
		{ttRows, nil, FieldTumorType, true, buildTumorType},
		{sdRows, nil, FieldStudyDrugs, true, buildStudyDrugs},
		{egRows, nil, FieldEcog, true, buildEcog},
		{ptRows, []string{orderColumn}, FieldPreviousTreatments, false, buildPreviousTreatment},
		{qsRows, []string{orderColumn}, FieldQLQC30, false, buildQLQC30},
	}
	for _, a := range attach {
		groups := hydrate.Pack(a.rows, identityColumns, a.orderBy)
		var err error
		if a.single {
			err = hy.AttachSingleton(groups, lookup, a.build, a.field, h.OnOrphan)
		} else {
			err = hy.AttachCollection(groups, lookup, a.build, a.field, h.OnOrphan)
		}
		if err != nil {
			return nil, err
		}
	}

	out := make([]types.Entity, len(order))
	for i, subject := range order {
		out[i] = patients[subject]
	}
	h.Stats.RecordEntities(len(out))
	return out, nil
}

// applyScalars sets the base demographic scalars from whichever base columns
// this record populates. Blank cells on detail rows leave earlier values
// alone.
func (h *Harmonizer) applyScalars(p *Patient, rec Record) error {
	setters := []struct {
		col string
		set func(string) error
	}{
		{colCohort, p.SetCohortName},
		{colSex, p.SetSex},
		{colAge, p.SetAge},
		{colEvaluable, p.SetEvaluable},
		{colTreatmentStart, p.SetTreatmentStartDate},
		{colDeath, p.SetDateOfDeath},
	}
	for _, s := range setters {
		raw, ok := rec[s.col]
		if !ok || validate.IsMissing(raw) {
			continue
		}
		if err := s.set(raw); err != nil {
			return err
		}
	}
	return nil
}

// detailRow copies one form's cells into a keyed hydrate row. Raw strings
// travel as-is; the leaf builders do the typed parsing.
func (h *Harmonizer) detailRow(rec Record, subject string, cols []string) hydrate.Row {
	row := hydrate.Row{
		"patient_id": subject,
		"trial_id":   h.Trial,
	}
	for _, col := range cols {
		if raw, ok := rec[col]; ok {
			row[col] = raw
		}
	}
	return row
}

// hasForm reports whether the record populates any of a form's columns.
func hasForm(rec Record, cols []string) bool {
	for _, col := range cols {
		if raw, ok := rec[col]; ok && !validate.IsMissing(raw) {
			return true
		}
	}
	return false
}

func rawCell(row hydrate.Row, col string) (string, bool) {
	v, ok := row[col]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func buildTumorType(key []string, row hydrate.Row) (types.Leaf, error) {
	t := &TumorType{}
	err := applyLeaf(key, row, []leafSetter{
		{colTTICD10, t.SetICD10Code},
		{colTTICD10Desc, t.SetICD10Description},
		{colTTMain, t.SetMainTumorType},
		{colTTMainCode, t.SetMainTumorTypeCode},
		{colTTCohort, t.SetCohortTumorType},
		{colTTOther, t.SetOtherTumorType},
	})
	return t, err
}

func buildStudyDrugs(key []string, row hydrate.Row) (types.Leaf, error) {
	s := &StudyDrugs{}
	err := applyLeaf(key, row, []leafSetter{
		{colSDDrug, s.SetDrugName},
		{colSDDose, s.SetDose},
		{colSDDoseUnit, s.SetDoseUnit},
		{colSDStart, s.SetStartDate},
	})
	return s, err
}

func buildEcog(key []string, row hydrate.Row) (types.Leaf, error) {
	e := &Ecog{}
	err := applyLeaf(key, row, []leafSetter{
		{colEGScore, e.SetScore},
		{colEGDate, e.SetAssessedOn},
	})
	return e, err
}

func buildPreviousTreatment(key []string, row hydrate.Row) (types.Leaf, error) {
	p := &PreviousTreatment{}
	err := applyLeaf(key, row, []leafSetter{
		{colPTLine, p.SetLineNumber},
		{colPTTreatment, p.SetTreatment},
		{colPTStart, p.SetStartDate},
		{colPTResponse, p.SetBestResponse},
	})
	return p, err
}

// buildQLQC30 sets every item column present in the source export, missing or
// not. A column present in the header is an observation; items a trial never
// exported are never set and so never become schema columns.
func buildQLQC30(key []string, row hydrate.Row) (types.Leaf, error) {
	q := NewQLQC30()
	if raw, ok := rawCell(row, colQSEvent); ok {
		if err := q.SetEventName(raw); err != nil {
			return nil, leafError(key, err)
		}
	}
	if raw, ok := rawCell(row, colQSDate); ok {
		if err := q.SetAssessmentDate(raw); err != nil {
			return nil, leafError(key, err)
		}
	}
	for i := 1; i <= qlqC30Items; i++ {
		if raw, ok := rawCell(row, fmt.Sprintf("QS_Q%d", i)); ok {
			if err := q.SetAnswer(i, raw); err != nil {
				return nil, leafError(key, err)
			}
		}
		if raw, ok := rawCell(row, fmt.Sprintf("QS_Q%dCD", i)); ok {
			if err := q.SetAnswerCode(i, raw); err != nil {
				return nil, leafError(key, err)
			}
		}
	}
	return q, nil
}

type leafSetter struct {
	col string
	set func(string) error
}

func applyLeaf(key []string, row hydrate.Row, setters []leafSetter) error {
	for _, s := range setters {
		raw, ok := rawCell(row, s.col)
		if !ok {
			continue
		}
		if err := s.set(raw); err != nil {
			return leafError(key, err)
		}
	}
	return nil
}

func leafError(key []string, err error) error {
	return fmt.Errorf("subject %s: %w", strings.Join(key, "/"), err)
}
