package checklist

import (
	"fmt"
	"strings"

	"github.com/checkaud/checkaud/internal/standards"
)

// RequirementContent is one requirement prepared for prompting, optionally
// enriched with external knowledge resolved from the standard text.
type RequirementContent struct {
	Requirement standards.Requirement
	Knowledge   string
}

// BuildPrompt renders the checklist generation prompt for a work product.
// contextBlock, when non-empty, is the rendered work-product context and is
// appended after the requirement content.
func BuildPrompt(workProduct string, content []RequirementContent, contextBlock string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are tasked with generating a comprehensive checklist to support "+
		"tracking and compliance of **%s** within the ISO 26262 and Automotive SPICE "+
		"standard frameworks for the automotive industry.\n\n", workProduct)

	sb.WriteString("**Objective:**\n" +
		"- Create a checklist that serves as a practical guide of actionable items and questions.\n" +
		"- Ensure that following the checklist will fulfill the standard requirements.\n" +
		"- The checklist should be clear, concise, and organized by related topics.\n" +
		"- Provide enough information for the end user to understand what needs to be done to " +
		"comply with the standards without needing to read the frameworks themselves.\n\n")

	sb.WriteString("**Task:**\n" +
		"1. **Thoroughly analyze the provided content of requirements** related to compliance.\n" +
		"2. **For each checklist item:**\n" +
		"   - Include the **IDs** of all the requirements that are relevant to the item, as a list.\n" +
		"   - Provide a **title** for the item that encapsulates the main theme.\n" +
		"   - Write a list of **specific, actionable questions** that guide the user on what " +
		"needs to be addressed for compliance.\n" +
		"     - Ensure the questions are closed questions (yes or no).\n" +
		"     - Ensure the questions are clear and concise.\n\n")

	sb.WriteString("**Content to use for generating the Checklist:**\n")
	for _, c := range content {
		fmt.Fprintf(&sb, "- **Requirement ID:** %s\n", c.Requirement.ID)
		fmt.Fprintf(&sb, "  - **Standard:** %s\n", c.Requirement.Standard)
		fmt.Fprintf(&sb, "  - **Description:** %s\n", c.Requirement.Description)
		if c.Knowledge != "" {
			fmt.Fprintf(&sb, "  - **External knowledge:** %s\n", c.Knowledge)
		}
	}

	if contextBlock != "" {
		fmt.Fprintf(&sb, "\n**Context of the work product:**\n%s\n", contextBlock)
	}
	return sb.String()
}
