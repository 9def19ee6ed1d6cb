// Package report writes the generated artifacts to files a reviewer can
// work with: markdown renditions of checklists and contexts, and CSV
// sheets for question-level review, requirement-level review and
// evaluation scores.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/checkaud/checkaud/internal/checklist"
	"github.com/checkaud/checkaud/internal/wpcontext"
)

// SafeFilename turns a work product name into a filesystem-safe stem:
// alphanumerics and underscores survive, everything else becomes an
// underscore.
func SafeFilename(workProduct string) string {
	var sb strings.Builder
	for _, r := range workProduct {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

// ChecklistMarkdown renders a checklist as a markdown document.
func ChecklistMarkdown(cl *checklist.Checklist) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", cl.WorkProduct)
	for i, item := range cl.Items {
		fmt.Fprintf(&sb, "## Item %d: %s\n\n", i+1, item.Title)
		sb.WriteString("**Questions:**\n\n")
		for j, q := range item.Questions {
			fmt.Fprintf(&sb, "%d. %s\n", j+1, q)
		}
		sb.WriteString("\n**IDs:**\n\n")
		for _, id := range item.IDs {
			fmt.Fprintf(&sb, "- %s\n", id)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteChecklistMarkdown writes a checklist's markdown rendition into dir
// and returns the file path.
func WriteChecklistMarkdown(dir string, cl *checklist.Checklist) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(dir, SafeFilename(cl.WorkProduct)+"_checklist.md")
	if err := os.WriteFile(path, []byte(ChecklistMarkdown(cl)), 0o644); err != nil {
		return "", fmt.Errorf("writing checklist markdown: %w", err)
	}
	return path, nil
}

// ContextMarkdown renders a work-product context as a markdown document.
func ContextMarkdown(c *wpcontext.WorkProductContext) string {
	var sb strings.Builder

	sb.WriteString("# Work Product Description\n\n")
	sb.WriteString("## Purpose\n\n")
	sb.WriteString("### Purpose in ISO 26262\n\n")
	sb.WriteString(c.Description.Purpose.PurposeISO + "\n\n")
	sb.WriteString("### Purpose in Automotive SPICE\n\n")
	sb.WriteString(c.Description.Purpose.PurposeASPICE + "\n\n")
	sb.WriteString("## Content\n\n")
	sb.WriteString(c.Description.Content + "\n\n")
	sb.WriteString("## Input\n\n")
	sb.WriteString(c.Description.Input + "\n\n")
	sb.WriteString("## Uses\n\n")
	sb.WriteString(c.Description.Uses + "\n\n")

	sb.WriteString("# Concepts\n\n")
	sb.WriteString("## Terminology (ISO)\n\n")
	for _, t := range c.Concepts.Terminology.Terms {
		fmt.Fprintf(&sb, "- **%s:** %s\n", t.Term, t.Definition)
	}
	sb.WriteString("\n## Abbreviations\n\n")
	for _, a := range c.Concepts.Abbreviations.Abbreviations {
		fmt.Fprintf(&sb, "- **%s:** %s\n", a.Abbreviation, a.Definition)
	}
	sb.WriteString("\n## Disambiguation\n\n")
	for _, e := range c.Concepts.Disambiguation.Entries {
		fmt.Fprintf(&sb, "**%s**\n", e.Concept)
		fmt.Fprintf(&sb, "- **Definition:** %s\n", e.Definition)
		fmt.Fprintf(&sb, "- **Purpose:** %s\n", e.Purpose)
		if len(e.Examples) > 0 {
			fmt.Fprintf(&sb, "- **Examples:** %s\n", strings.Join(e.Examples, ", "))
		}
		if len(e.Elements) > 0 {
			fmt.Fprintf(&sb, "- **Elements:** %s\n", strings.Join(e.Elements, ", "))
		}
		if len(e.ExampleElements) > 0 {
			fmt.Fprintf(&sb, "- **Example Elements:** %s\n", strings.Join(e.ExampleElements, ", "))
		}
		if e.TerminologyISO != "" {
			fmt.Fprintf(&sb, "- **Terminology (ISO 26262):** %s\n", e.TerminologyISO)
		}
		if e.TerminologyASPICE != "" {
			fmt.Fprintf(&sb, "- **Terminology (ASPICE):** %s\n", e.TerminologyASPICE)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteContextMarkdown writes a context's markdown rendition into dir and
// returns the file path.
func WriteContextMarkdown(dir string, c *wpcontext.WorkProductContext) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(dir, SafeFilename(c.WorkProduct)+"_context.md")
	if err := os.WriteFile(path, []byte(ContextMarkdown(c)), 0o644); err != nil {
		return "", fmt.Errorf("writing context markdown: %w", err)
	}
	return path, nil
}
