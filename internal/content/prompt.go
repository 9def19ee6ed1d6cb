package content

import (
	"fmt"
	"strings"

	"github.com/checkaud/checkaud/internal/standards"
)

// BuildFilterPrompt renders the prompt that abstracts a requirement's
// description to the essential compliance information. externalKnowledge,
// when non-empty, is material already retrieved for the requirement's
// external references.
func BuildFilterPrompt(req standards.Requirement, externalKnowledge string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are provided with a requirement from the **%s** standard framework. "+
		"Your task is to analyze the description and external references (if given) to filter "+
		"and abstract their content to include only essential information.\n", req.Standard)
	sb.WriteString("The goal is to return information that allows developers to understand what " +
		"to do for compliance without having to read the guidelines. Therefore, mentioning any " +
		"external references is not allowed (No table numbers, clauses, ids).\n\n")

	sb.WriteString("**Task Instructions:**\n" +
		"1. **Analyze the provided requirement and any external references (if given).**\n" +
		"2. **Filter the information** to extract only the key points relevant for compliance tracking.\n" +
		"   - Focus on actionable items, obligations, and guidelines necessary for compliance.\n" +
		"   - Disregard any irrelevant or redundant information.\n" +
		"   - Remove all the external references (IDs, clauses, tables).\n" +
		"3. **Filter the content** that addresses the following questions:\n" +
		"   - What documentation or evidence is needed to demonstrate compliance with this standard?\n" +
		"   - What processes or procedures should be implemented to ensure ongoing compliance?\n" +
		"   - Is there any indication of how compliance should be monitored and maintained over time?\n" +
		"4. **Ensure the content is based exclusively on the information provided** in the " +
		"requirement and external references.\n" +
		"   - Do not introduce information that is not present in the provided requirement.\n\n" +
		"**Important Note:**\n" +
		"- If the provided information does not contain sufficient details to address the work " +
		"product above, simply state: 'No actionable items could be identified based on the " +
		"provided information.'\n\n")

	sb.WriteString("**Requirement to Analyze:**\n")
	sb.WriteString(describeRequirement(req))

	if externalKnowledge != "" {
		fmt.Fprintf(&sb, "**External references:**\n%s\n", externalKnowledge)
	}
	return sb.String()
}

// BuildTopicsPrompt renders the prompt that groups requirements by topic.
func BuildTopicsPrompt(reqs []standards.Requirement) string {
	var sb strings.Builder

	sb.WriteString("You are tasked with grouping the provided requirements by specified topics " +
		"or categories to facilitate the organization and understanding of the content.\n\n" +
		"**Task Instructions:**\n" +
		"1. **Review the provided requirements** to identify common themes or categories.\n" +
		"2. **Group the requirements** based on shared characteristics or topics.\n" +
		"3. **Create a list of topics** that represent the grouped requirements.\n" +
		"4. **Assign each requirement** to the corresponding topic or category.\n" +
		"5. **Ensure each topic is distinct** and covers a specific aspect of the requirements.\n\n" +
		"**Content to Group:**\n")

	for _, req := range reqs {
		fmt.Fprintf(&sb, "- **Requirement ID:** %s\n  - **Description:** %s\n", req.ID, req.Description)
	}
	return sb.String()
}

// describeRequirement renders the reference block for one requirement.
// ISO 26262 requirements carry their position in the standard; ASPICE
// requirements only their ID.
func describeRequirement(req standards.Requirement) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "- **Full ID:** %s\n", req.ID)
	fmt.Fprintf(&sb, "- **Standard:** %s\n", req.Standard)
	if req.Standard == standards.StandardISO26262 {
		fmt.Fprintf(&sb, "  - **Part:** %d\n", req.Part)
		fmt.Fprintf(&sb, "    - **Clause:** %d\n", req.Clause)
		fmt.Fprintf(&sb, "      - **Section:** %d\n", req.Section)
		fmt.Fprintf(&sb, "        - **Subsection:** %d\n", req.Subsection)
		if req.Subsubsection != 0 {
			fmt.Fprintf(&sb, "          - **Subsubsection:** %d\n", req.Subsubsection)
		}
	}
	fmt.Fprintf(&sb, "- **Work Product:** %s\n", req.WorkProduct)
	fmt.Fprintf(&sb, "- **Description:**\n'%s'\n\n", req.Description)
	return sb.String()
}
