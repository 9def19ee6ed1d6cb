package knowledge

import (
	"fmt"
	"strings"

	"github.com/checkaud/checkaud/internal/standards"
)

// requirementBlock renders the reference block shared by the identify
// prompts. titles, when available, annotate the requirement's position.
func requirementBlock(req standards.Requirement, titles Titles) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- **Full ID:** %s\n", req.ID)
	fmt.Fprintf(&sb, "- **Standard:** %s\n", req.Standard)
	fmt.Fprintf(&sb, "  - **Part %d:** %s\n", req.Part, titles.Part)
	fmt.Fprintf(&sb, "    - **Clause %d:** %s\n", req.Clause, titles.Clause)
	fmt.Fprintf(&sb, "      - **Section %d:** %s\n", req.Section, titles.Section)
	fmt.Fprintf(&sb, "        - **Subsection:** %d\n", req.Subsection)
	if req.Subsubsection != 0 {
		fmt.Fprintf(&sb, "          - **Subsubsection:** %d\n", req.Subsubsection)
	}
	fmt.Fprintf(&sb, "- **Work Product:** %s\n", req.WorkProduct)
	fmt.Fprintf(&sb, "- **Description:**\n'%s'\n\n", req.Description)
	return sb.String()
}

// BuildIdentifyTablesPrompt asks which tables a requirement references.
func BuildIdentifyTablesPrompt(req standards.Requirement, titles Titles) string {
	var sb strings.Builder

	sb.WriteString("You are given a requirement from the ISO 26262 standard framework. Your task " +
		"is to analyze the description and identify any references to tables.\n\n" +
		"**Task Instructions:**\n" +
		"1. **Identify references to tables:**\n" +
		"   - Search the description for any references to tables.\n" +
		"   - A table is referenced only if the keyword 'Table' is followed by a number " +
		"(e.g., 'Table 3').\n" +
		"   - **Note:** References to figures, sections, or clauses are **not** tables.\n\n" +
		"2. **For each table referenced, extract:**\n" +
		"   - **Standard Name:** 'ISO 26262' or 'ASPICE' (if mentioned; otherwise, use 'ISO 26262').\n" +
		"   - **Part Number:** If a part number is mentioned with the table, use that; otherwise, " +
		"use the part number from the requirement details.\n" +
		"   - **Table Number:** The integer number immediately following the word 'Table'.\n\n" +
		"3. **If multiple tables are referenced, list all of them following the format above.**\n\n" +
		"4. **If no table is referenced, return an empty result.**\n\n")

	sb.WriteString("**Requirement to analyze:**\n")
	sb.WriteString(requirementBlock(req, titles))
	return sb.String()
}

// BuildIdentifyClausesPrompt asks which clauses a requirement references.
func BuildIdentifyClausesPrompt(req standards.Requirement, titles Titles) string {
	var sb strings.Builder

	sb.WriteString("You are given a requirement from the ISO 26262 standard framework. Your task " +
		"is to analyze the description and identify any references to external clauses.\n\n" +
		"**Task Instructions:**\n" +
		"1. **Identify references to clauses:**\n" +
		"   - Search the description for any references to clauses.\n" +
		"   - A clause is referenced only if the keyword 'Clause' is followed by a number.\n" +
		"   - **Note:** IDs in the format 'Integer.Integer' (e.g., '2.3') or " +
		"'Integer.Integer.Integer' (e.g., '1.2.3') are **not** clauses but IDs.\n" +
		"   - **Note:** References to tables, figures, or sections are **not** clauses either.\n" +
		"2. **For each clause referenced, extract:**\n" +
		"   - **Standard Name:** 'ISO 26262' or 'ASPICE' (if mentioned; otherwise, use 'ISO 26262').\n" +
		"   - **Part Number:** If a part number is mentioned with the clause, use that; otherwise, " +
		"use the part number from the requirement details.\n" +
		"   - **Clause Number:** The integer number immediately following the word 'clause'.\n" +
		"3. **If multiple clauses are referenced, list all of them.**\n\n" +
		"4. **If no clause is referenced, return an empty result.**\n\n")

	sb.WriteString("**Requirement Details:**\n")
	sb.WriteString(requirementBlock(req, titles))
	return sb.String()
}

// BuildIdentifyExternalIDsPrompt asks which external requirement IDs a
// requirement references.
func BuildIdentifyExternalIDsPrompt(req standards.Requirement, titles Titles) string {
	var sb strings.Builder

	sb.WriteString("You will be provided with a requirement from the **ISO 26262** standard " +
		"framework at the end.\n" +
		"**Task Instructions:**\n" +
		"1. **Identify external references to other sections and subsections** within the " +
		"description of the requirement.\n" +
		"   - An external ID from **ISO 26262** always comes in the form of Integer.Integer " +
		"(Clause.Section) or Integer.Integer.Integer (Clause.Section.Subsection).\n" +
		"   - Sometimes a fourth number is added (Clause.Section.Subsection.Integer). Add this " +
		"last number to the subsubsection number.\n" +
		"   - '2018' or numbers greater than '999' are the version of the Guidelines and not " +
		"part of the ID format above.\n" +
		"   - **Do not extract references that only mention 'Clause' followed by a number " +
		"(e.g., 'Clause 9'), as these refer to the clause in general and not a specific section " +
		"or subsection.**\n" +
		"   - **Important:** **Do not include external IDs where the section number is zero; " +
		"these are considered references to clauses and should be ignored.**\n" +
		"   - **Note:** **External IDs may appear on their own, without any preceding words, or " +
		"they may follow phrases like 'in accordance with', 'according to', etc.**\n" +
		"2. For each external ID found, extract the standard framework, part number, clause " +
		"number, section number and subsection number. Use the requirement details for any part " +
		"or clause number that is not mentioned.\n" +
		"3. **If multiple external IDs are referenced, list all of them.**\n\n" +
		"4. **If no external IDs are referenced, return an empty result.**\n\n")

	sb.WriteString("**Example:**\n" +
		"**Input:**\n" +
		"- **Full ID:** 26262-6:2018.6.4.2\n" +
		"- **Description:** '... in accordance with Clause 9 and 2.4.4 ...'\n" +
		"**Expected Output:**\n" +
		"- **External IDs found:**\n" +
		"  1. **Standard Framework:** ISO 26262\n" +
		"     - **Part Number:** 6\n" +
		"     - **Clause Number:** 2\n" +
		"     - **Section Number:** 4\n" +
		"     - **Subsection Number:** 4\n" +
		"- **Note:** The reference to 'Clause 9' is not included because it refers to a clause " +
		"in general and not a specific section or subsection.\n\n")

	sb.WriteString("**Requirement to analyze:**\n")
	sb.WriteString(requirementBlock(req, titles))
	return sb.String()
}

// BuildClauseSummaryPrompt asks for a compliance-focused summary of a
// clause, given the requirements it contains and, when available, the
// matching excerpt from the standard text.
func BuildClauseSummaryPrompt(ref ClauseRef, titles Titles, reqs []standards.Requirement, excerpt string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are provided with information regarding **Clause %d** of the **%s** "+
		"standard.\n\n", ref.ClauseNumber, ref.StandardName)
	sb.WriteString("**Clause Details:**\n")
	fmt.Fprintf(&sb, "- **Standard:** %s\n", ref.StandardName)
	fmt.Fprintf(&sb, "  - **Part %d:** %s\n", ref.PartNumber, titles.Part)
	fmt.Fprintf(&sb, "    - **Clause %d:** %s\n", ref.ClauseNumber, titles.Clause)

	sb.WriteString("**Requirements Within the Clause:**\n")
	for _, req := range reqs {
		fmt.Fprintf(&sb, "- **Requirement ID:** %s\n  - **Description:** %s\n\n", req.ID, req.Description)
	}

	if excerpt != "" {
		fmt.Fprintf(&sb, "**Excerpt from the standard text:**\n%s\n\n", excerpt)
	}

	sb.WriteString("**Task Instructions:**\n")
	fmt.Fprintf(&sb, "Please provide a summary of Clause %d that includes:\n", ref.ClauseNumber)
	sb.WriteString("- The key concepts presented in the clause.\n" +
		"- Instructions or guidelines for compliance.\n\n" +
		"**Guidelines for the Summary:**\n" +
		"- Use clear and concise language.\n" +
		"- Present the information in bullet points or numbered lists for readability.\n" +
		"- Focus on the most critical aspects that are essential for understanding and compliance.\n")
	return sb.String()
}
