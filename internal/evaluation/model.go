// Package evaluation scores generated checklists against fixed rubrics,
// using the model as the judge. Checklists are assessed at three levels:
// per question group, per checklist and per requirement.
package evaluation

import (
	"fmt"

	"github.com/checkaud/checkaud/internal/schema"
)

// Evaluation levels.
const (
	LevelQuestion    = "question"
	LevelChecklist   = "checklist"
	LevelRequirement = "requirement"
)

// Rubric names.
const (
	RubricTraceability  = "traceability"
	RubricCorrectness   = "correctness"
	RubricRedundancy    = "redundancy"
	RubricApplicability = "applicability"
	RubricConsistency   = "consistency"
	RubricCompleteness  = "completeness"
)

// QuestionRubrics are applied to each checklist item's questions.
var QuestionRubrics = []string{
	RubricTraceability, RubricCorrectness, RubricRedundancy, RubricApplicability,
}

// ChecklistRubrics are applied to the checklist as a whole.
var ChecklistRubrics = []string{RubricApplicability, RubricConsistency}

// RequirementRubrics are applied to each requirement against the items
// that trace to it.
var RequirementRubrics = []string{RubricTraceability, RubricCompleteness}

// Result is one rubric qualification: a score from 1 to 3 (3 being the
// best) and the notes arguing for it.
type Result struct {
	Score int    `json:"score" jsonschema:"description=A qualification between 1 and 3, 3 being the best."`
	Notes string `json:"notes" jsonschema:"description=Notes providing arguments or explanations for the qualification."`
}

func (r *Result) Validate() error {
	if r.Score < 1 || r.Score > 3 {
		return fmt.Errorf("score %d is out of range 1..3", r.Score)
	}
	return nil
}

// ResultSchema is the structured-output descriptor for rubric scoring.
func ResultSchema() *schema.Descriptor {
	return &schema.Descriptor{
		Name:        "rubric_result",
		Description: "A rubric qualification with a 1 to 3 score and explanatory notes.",
		Category:    schema.CategoryEvaluation,
		New:         func() schema.Validator { return &Result{} },
	}
}
