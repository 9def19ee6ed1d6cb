package wpcontext

import (
	"fmt"
	"strings"

	"github.com/checkaud/checkaud/internal/standards"
)

// requirementsTable renders requirements as a plain table for prompting.
func requirementsTable(reqs []standards.Requirement) string {
	var sb strings.Builder
	sb.WriteString("Work Product | ID | Description\n")
	for _, r := range reqs {
		fmt.Fprintf(&sb, "%s | %s | %s\n", r.WorkProduct, r.ID, r.Description)
	}
	return sb.String()
}

// BuildPurposePrompt asks for the purpose of a work product under both standards.
func BuildPurposePrompt(workProduct string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are tasked with explaining the purpose of the work product '**%s**' "+
		"within the context of ISO 26262 and ASPICE.\n\n", workProduct)

	sb.WriteString("**Task Instructions:**\n")
	fmt.Fprintf(&sb, "1. Provide a clear explanation of the purpose of '**%s**' in both ISO 26262 "+
		"and ASPICE standards.\n", workProduct)
	sb.WriteString("2. Focus on its role in ensuring compliance, functional safety, and quality.\n" +
		"3. For ISO 26262:\n" +
		"   - Highlight the work product's importance in achieving functional safety objectives.\n" +
		"   - Describe its relevance to processes or guidelines outlined in ISO 26262.\n" +
		"4. For ASPICE:\n" +
		"   - Explain how the work product supports process improvement and quality assurance.\n" +
		"   - Relate it to ASPICE's engineering or management processes.\n\n")

	sb.WriteString("**Output Format:**\n" +
		"- Provide `purpose_iso`: a clear and concise description of the work product's purpose " +
		"according to ISO 26262.\n" +
		"- Provide `purpose_aspice`: a clear and concise description of the work product's purpose " +
		"according to ASPICE.\n" +
		"- Use structured, professional language suitable for technical reports or documentation.\n")
	return sb.String()
}

// BuildContentPrompt asks for the required content of a work product.
func BuildContentPrompt(workProduct string, reqs []standards.Requirement) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are provided with the following ISO 26262 and ASPICE requirements:\n\n%s\n\n",
		requirementsTable(reqs))

	sb.WriteString("**Task Instructions:**\n")
	fmt.Fprintf(&sb, "1. Explain the required content for the work product '**%s**' to ensure "+
		"compliance with ISO 26262 and ASPICE standards.\n", workProduct)
	sb.WriteString("2. Highlight specific elements, sections, or artifacts that must be included " +
		"in the work product.\n" +
		"3. Focus on the content necessary to meet compliance and quality expectations.\n" +
		"4. Avoid referencing external IDs or clauses; only general mentions of ISO or ASPICE " +
		"frameworks are permitted.\n\n")

	sb.WriteString("**Output Format:**\n")
	fmt.Fprintf(&sb, "- Provide a detailed explanation of the required content for '**%s**'.\n", workProduct)
	sb.WriteString("- Focus on relevance to ISO 26262 and ASPICE compliance requirements.\n" +
		"- Use structured, professional language suitable for documentation purposes.\n")
	return sb.String()
}

// BuildInputPrompt asks for the inputs a work product needs.
func BuildInputPrompt(workProduct string, reqs []standards.Requirement) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are tasked with identifying the necessary inputs for the work product "+
		"'**%s**' to ensure compliance with ISO 26262 and ASPICE standards.\n\n", workProduct)

	sb.WriteString("**Task Instructions:**\n" +
		"1. Review the provided ISO 26262 and ASPICE requirements.\n")
	fmt.Fprintf(&sb, "2. Focus on the key requirements that guarantee compliance of the work "+
		"product '**%s**'.\n", workProduct)
	sb.WriteString("3. Explain the necessary inputs the work product should have to achieve compliance.\n" +
		"4. Be concise and specific, focusing only on relevant inputs.\n" +
		"5. Avoid referencing external IDs or specific clauses; only general mentions of ISO or " +
		"ASPICE frameworks are permitted.\n\n")

	fmt.Fprintf(&sb, "The following ISO 26262 and ASPICE requirements are provided for context:\n\n%s\n",
		requirementsTable(reqs))
	return sb.String()
}

// BuildUsesPrompt asks for the use cases of a work product.
func BuildUsesPrompt(workProduct string, reqs []standards.Requirement) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are tasked with explaining the use cases of the work product '**%s**' "+
		"within the context of ISO 26262 and ASPICE standards.\n\n", workProduct)

	sb.WriteString("**Task Instructions:**\n" +
		"1. Review the provided ISO 26262 and ASPICE requirements.\n")
	fmt.Fprintf(&sb, "2. Explain the primary use cases of the work product '**%s**'.\n", workProduct)
	sb.WriteString("3. Describe how the work product supports documentation and compliance efforts.\n" +
		"4. Focus on key points that demonstrate the work product's role in achieving compliance " +
		"with ISO 26262 and ASPICE.\n" +
		"5. Avoid referencing external IDs or specific clauses; only general mentions of ISO or " +
		"ASPICE frameworks are permitted.\n\n")

	fmt.Fprintf(&sb, "The following ISO 26262 and ASPICE requirements are provided for context:\n\n%s\n",
		requirementsTable(reqs))
	return sb.String()
}

// BuildTermFilterPrompt asks which glossary terms apply to a work product.
func BuildTermFilterPrompt(workProduct string, terms []Term) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are tasked with identifying terms from ISO 26262 terminology that are "+
		"directly relevant to the work product '**%s**'.\n\n", workProduct)

	sb.WriteString("**Task Instructions:**\n")
	fmt.Fprintf(&sb, "1. Select terms explicitly tied to creating, defining, or managing '**%s**'.\n", workProduct)
	sb.WriteString("2. Include terms related to structure, content, or evaluation criteria.\n" +
		"3. Exclude terms that are only tangentially related, such as general processes or " +
		"unrelated methods.\n\n")

	sb.WriteString("**Notes:**\n" +
		"- Ensure the extracted terms are directly relevant to the work product.\n" +
		"- Remove references to external IDs or clauses from definitions.\n" +
		"- If no relevant terms are found, return an empty result.\n\n")

	sb.WriteString("**Terminology List:**\n")
	for i, t := range terms {
		fmt.Fprintf(&sb, "  - **Term %d:** %s\n  - **Definition:** %s\n\n", i+1, t.Term, t.Definition)
	}
	return sb.String()
}

// BuildDisambiguationFilterPrompt asks which disambiguation concepts apply
// to a work product.
func BuildDisambiguationFilterPrompt(workProduct string, entries []DisambiguationEntry) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are tasked with filtering relevant disambiguations for '**%s**' "+
		"from the provided table.\n\n", workProduct)

	sb.WriteString("**Task Instructions:**\n" +
		"1. Identify concepts explicitly tied to ISO 26262 and ASPICE for the work product.\n" +
		"2. Include commonly used or fundamental terms where relevance is evident.\n" +
		"3. Exclude unrelated concepts unless they have wide applicability across the domain.\n\n")

	sb.WriteString("**Disambiguation Table:**\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "- **Concept:** %s\n", e.Concept)
		fmt.Fprintf(&sb, "  - **Definition:** %s\n", e.Definition)
		fmt.Fprintf(&sb, "  - **Purpose:** %s\n", e.Purpose)
		fmt.Fprintf(&sb, "  - **Examples:** %s\n", strings.Join(e.Examples, ", "))
		fmt.Fprintf(&sb, "  - **Elements:** %s\n", strings.Join(e.Elements, ", "))
		fmt.Fprintf(&sb, "  - **Example elements:** %s\n", strings.Join(e.ExampleElements, ", "))
		fmt.Fprintf(&sb, "  - **ISO 26262 terminology:** %s\n", e.TerminologyISO)
		fmt.Fprintf(&sb, "  - **ASPICE terminology:** %s\n\n", e.TerminologyASPICE)
	}
	return sb.String()
}

// BuildAbbreviationFilterPrompt asks which abbreviations apply to a work product.
func BuildAbbreviationFilterPrompt(workProduct string, abbrevs []Abbreviation) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are tasked with identifying abbreviations relevant to the work product "+
		"'**%s**'.\n\n", workProduct)

	sb.WriteString("**Task Instructions:**\n")
	fmt.Fprintf(&sb, "1. Identify abbreviations directly tied to the creation, management, or "+
		"evaluation of '**%s**'.\n", workProduct)
	sb.WriteString("2. Provide explanations or definitions for each relevant abbreviation.\n" +
		"3. Exclude abbreviations that are only tangentially related or irrelevant to the work " +
		"product.\n\n")

	sb.WriteString("**Abbreviation List:**\n")
	for _, a := range abbrevs {
		fmt.Fprintf(&sb, "- **Abbreviation:** %s\n- **Definition:** %s\n\n", a.Abbreviation, a.Definition)
	}
	return sb.String()
}

// Render flattens a work-product context into the text block that is
// appended to generation and evaluation prompts.
func Render(c *WorkProductContext) string {
	var sb strings.Builder

	sb.WriteString("**Purpose in ISO 26262:**\n" +
		"The purpose of this work product in the context of ISO 26262 is as follows:\n")
	sb.WriteString(c.Description.Purpose.PurposeISO + "\n")
	sb.WriteString("**Purpose in Automotive SPICE:**\n" +
		"The purpose of this work product in the context of Automotive SPICE is as follows:\n")
	sb.WriteString(c.Description.Purpose.PurposeASPICE + "\n\n")

	if c.Description.Content != "" {
		sb.WriteString("**Content:**\n" +
			"This section outlines the necessary content for the work product:\n")
		sb.WriteString(c.Description.Content + "\n\n")
	}
	if c.Description.Input != "" {
		sb.WriteString("**Input:**\n" +
			"This section describes the required inputs for the work product:\n")
		sb.WriteString(c.Description.Input + "\n\n")
	}
	if c.Description.Uses != "" {
		sb.WriteString("**Uses:**\n" +
			"This section explains the uses and applications of the work product:\n")
		sb.WriteString(c.Description.Uses + "\n\n")
	}

	if terms := c.Concepts.Terminology.Terms; len(terms) > 0 {
		fmt.Fprintf(&sb, "In the context of the work product '%s', the following glossary terms "+
			"are defined:\n", c.WorkProduct)
		for _, t := range terms {
			fmt.Fprintf(&sb, "- '%s': %s\n", t.Term, t.Definition)
		}
		sb.WriteString("\n")
	}

	if entries := c.Concepts.Disambiguation.Entries; len(entries) > 0 {
		fmt.Fprintf(&sb, "In the work product '%s', the following disambiguation concepts are "+
			"defined:\n", c.WorkProduct)
		sb.WriteString("Use these concepts to understand how a single idea can be referred to by " +
			"different names in ISO 26262 and ASPICE. The concept names serve to unify the " +
			"different terminologies, ensuring consistency for the tasks in this work product.\n")
		for _, e := range entries {
			fmt.Fprintf(&sb, "\n- Concept: '%s'\n", e.Concept)
			fmt.Fprintf(&sb, "  - Definition: %s\n", e.Definition)
			fmt.Fprintf(&sb, "  - Purpose: %s\n", e.Purpose)
			fmt.Fprintf(&sb, "  - Examples: %s\n", strings.Join(e.Examples, ", "))
			fmt.Fprintf(&sb, "  - Elements: %s\n", strings.Join(e.Elements, ", "))
			fmt.Fprintf(&sb, "  - Example elements: %s\n", strings.Join(e.ExampleElements, ", "))
			fmt.Fprintf(&sb, "  - ISO Terminology: %s\n", e.TerminologyISO)
			fmt.Fprintf(&sb, "  - ASPICE Terminology: %s\n", e.TerminologyASPICE)
		}
		sb.WriteString("\n")
	}

	if abbrevs := c.Concepts.Abbreviations.Abbreviations; len(abbrevs) > 0 {
		fmt.Fprintf(&sb, "In the work product '%s', the following abbreviations are defined:\n", c.WorkProduct)
		for _, a := range abbrevs {
			fmt.Fprintf(&sb, "- '%s': %s\n", a.Abbreviation, a.Definition)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
