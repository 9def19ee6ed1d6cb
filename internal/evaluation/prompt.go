package evaluation

import (
	"fmt"
	"strings"

	"github.com/checkaud/checkaud/internal/checklist"
	"github.com/checkaud/checkaud/internal/standards"
)

// questionCriteria describe each question-level rubric.
var questionCriteria = map[string]string{
	RubricTraceability: "indicating if each question is traced to at least one requirement",
	RubricCorrectness: "indicating if the question captures at least part of the information " +
		"from the requirements it traces to",
	RubricRedundancy: "indicating if the question is free of criteria that are not derived " +
		"from any traced requirement",
	RubricApplicability: "indicating if the question can be answered by looking just at the " +
		"work product",
}

// checklistCriteria describe each checklist-level rubric.
var checklistCriteria = map[string]string{
	RubricApplicability: "is the granularity of the checklist such that it is usable in practice?",
	RubricConsistency:   "are the checklist items free from contradictions?",
}

// requirementCriteria describe each requirement-level rubric.
var requirementCriteria = map[string]string{
	RubricTraceability: "is the requirement traced to at least one question?",
	RubricCompleteness: "assess if the information in the different checklist items is enough " +
		"to capture the relevant information of the requirement. The checklist items may " +
		"contain information from other requirements, but focus only on whether the " +
		"requirement's information is adequately captured",
}

// title capitalizes a rubric name for prompt headings.
func title(rubric string) string {
	if rubric == "" {
		return rubric
	}
	return strings.ToUpper(rubric[:1]) + rubric[1:]
}

// BuildQuestionPrompt renders the evaluation prompt for one checklist
// item's questions under one rubric. traced holds the requirements the
// item claims to derive from.
func BuildQuestionPrompt(workProduct string, item checklist.Item, traced []standards.Requirement, rubric string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "In the context of the work product '%s' in ISO 26262 and Automotive SPICE "+
		"frameworks, we are evaluating the questions:\n\n", workProduct)
	for _, q := range item.Questions {
		fmt.Fprintf(&sb, "    '%s'\n", q)
	}
	fmt.Fprintf(&sb, "\nThese questions were generated in relation to the topic '%s' using the "+
		"following requirements:\n", item.Title)
	for _, req := range traced {
		fmt.Fprintf(&sb, "- %s: %s\n", req.ID, req.Description)
	}

	fmt.Fprintf(&sb, "\nPlease evaluate the questions based on the following metric:\n\n"+
		"%s: Provide a qualification between 1 and 3 (3 being the best) %s. "+
		"Provide a note explaining the qualification.\n\n", title(rubric), questionCriteria[rubric])
	sb.WriteString("Your response should include an integer value for the metric and detailed " +
		"notes for the qualification.\n")
	return sb.String()
}

// BuildChecklistPrompt renders the evaluation prompt for a whole checklist
// under one rubric.
func BuildChecklistPrompt(cl *checklist.Checklist, rubric string) string {
	var sb strings.Builder

	sb.WriteString("In the context of the ISO 26262 and Automotive SPICE frameworks, we are " +
		"evaluating the checklist at the checklist level.\n" +
		"Please evaluate the checklist based on the following metric:\n\n")
	fmt.Fprintf(&sb, "%s: %s (Rate from 1 to 3, where 3 is the best)\n\n",
		title(rubric), checklistCriteria[rubric])

	fmt.Fprintf(&sb, "The checklist for the work product '%s' is as follows:\n", cl.WorkProduct)
	for _, item := range cl.Items {
		fmt.Fprintf(&sb, "Title: %s\n", item.Title)
		fmt.Fprintf(&sb, "Requirement IDs: %s\n", strings.Join(item.IDs, ", "))
		sb.WriteString("Questions:\n")
		for _, q := range item.Questions {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// BuildRequirementPrompt renders the evaluation prompt for one requirement
// against the checklist items that trace to it, under one rubric.
func BuildRequirementPrompt(req standards.Requirement, items []checklist.Item, rubric string) string {
	var sb strings.Builder

	sb.WriteString("In the context of the ISO 26262 and Automotive SPICE frameworks, we are " +
		"evaluating the checklist at the requirements level.\n" +
		"Please evaluate the checklist based on the following metric:\n\n")
	fmt.Fprintf(&sb, "%s: %s (Rate from 1 to 3, where 3 is the best)\n\n",
		title(rubric), requirementCriteria[rubric])

	sb.WriteString("The requirement to be evaluated is as follows:\n")
	fmt.Fprintf(&sb, "Work Product: %s\n", req.WorkProduct)
	fmt.Fprintf(&sb, "Requirement ID: %s\n", req.ID)
	fmt.Fprintf(&sb, "Description: %s\n\n", req.Description)

	sb.WriteString("Checklist Items:\n")
	for _, item := range items {
		fmt.Fprintf(&sb, "Title: %s\n", item.Title)
		fmt.Fprintf(&sb, "Questions: %s\n", strings.Join(item.Questions, " "))
		fmt.Fprintf(&sb, "Requirement IDs: %s\n\n", strings.Join(item.IDs, ", "))
	}
	return sb.String()
}
