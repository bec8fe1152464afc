package harmonize

import (
	"fmt"

	"github.com/rowforge/rowforge/internal/validate"
	"github.com/rowforge/rowforge/pkg/types"
)

// qlqC30Descriptor declares the QLQ-C30 questionnaire as a dynamic leaf: trial
// exports disagree on which of the thirty items were administered, so the
// column set is discovered per run instead of being declared here.
var qlqC30Descriptor = &types.LeafDescriptor{
	Name:    FieldQLQC30,
	Dynamic: true,
}

// qlqC30Items is the maximum item count of the EORTC QLQ-C30 questionnaire.
const qlqC30Items = 30

// QLQC30 is one quality-of-life questionnaire assessment. Answers are stored
// in observation order; items a trial never exported produce no fields at
// all, so they never surface as columns.
type QLQC30 struct {
	fields *types.OrderedFields
}

// NewQLQC30 creates an empty assessment.
func NewQLQC30() *QLQC30 {
	return &QLQC30{fields: types.NewOrderedFields()}
}

// SetEventName records the visit or cycle the assessment belongs to.
func (q *QLQC30) SetEventName(raw string) error {
	v, err := validate.OptionalString(raw, "event_name")
	if err != nil {
		return err
	}
	q.set("event_name", v)
	return nil
}

// SetAssessmentDate records when the questionnaire was answered.
func (q *QLQC30) SetAssessmentDate(raw string) error {
	v, err := validate.OptionalDate(raw, "assessment_date")
	if err != nil {
		return err
	}
	q.set("assessment_date", v)
	return nil
}

// SetAnswer records the numeric answer for item n (1-based).
func (q *QLQC30) SetAnswer(n int, raw string) error {
	field, err := itemField(n, "")
	if err != nil {
		return err
	}
	v, err := validate.OptionalInt(raw, field)
	if err != nil {
		return err
	}
	q.set(field, v)
	return nil
}

// SetAnswerCode records the coded answer label for item n (1-based).
func (q *QLQC30) SetAnswerCode(n int, raw string) error {
	field, err := itemField(n, "_code")
	if err != nil {
		return err
	}
	v, err := validate.OptionalString(raw, field)
	if err != nil {
		return err
	}
	q.set(field, v)
	return nil
}

func itemField(n int, suffix string) (string, error) {
	if n < 1 || n > qlqC30Items {
		return "", fmt.Errorf("qlq_c30 item %d out of range 1..%d", n, qlqC30Items)
	}
	return fmt.Sprintf("q%d%s", n, suffix), nil
}

func (q *QLQC30) set(field string, v interface{}) {
	switch x := v.(type) {
	case *string:
		if x == nil {
			q.fields.Set(field, nil)
		} else {
			q.fields.Set(field, *x)
		}
	case *int64:
		if x == nil {
			q.fields.Set(field, nil)
		} else {
			q.fields.Set(field, *x)
		}
	case *types.Date:
		if x == nil {
			q.fields.Set(field, nil)
		} else {
			q.fields.Set(field, *x)
		}
	}
}

// Fields implements types.Leaf. The returned order is observation order,
// which fixes the derived column order for the whole run.
func (q *QLQC30) Fields() *types.OrderedFields {
	return q.fields
}
