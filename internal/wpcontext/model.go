// Package wpcontext builds the contextual description of a work product
// that checklist generation is grounded in: its purpose, content, inputs
// and uses, plus the glossary concepts relevant to it.
package wpcontext

import (
	"fmt"

	"github.com/checkaud/checkaud/internal/schema"
)

// Purpose states what a work product is for under each standard.
type Purpose struct {
	PurposeISO    string `json:"purpose_iso" jsonschema:"description=The purpose of the work product according to ISO 26262."`
	PurposeASPICE string `json:"purpose_aspice" jsonschema:"description=The purpose of the work product according to ASPICE."`
}

func (p *Purpose) Validate() error {
	if p.PurposeISO == "" {
		return fmt.Errorf("purpose has no ISO 26262 part")
	}
	if p.PurposeASPICE == "" {
		return fmt.Errorf("purpose has no ASPICE part")
	}
	return nil
}

// Description collects the narrative sections of a work-product context.
// Content, Input and Uses are free-form text.
type Description struct {
	Purpose Purpose `json:"purpose"`
	Content string  `json:"content"`
	Input   string  `json:"input"`
	Uses    string  `json:"uses"`
}

// Term is one glossary term with its definition.
type Term struct {
	Term       string `json:"term" jsonschema:"description=The term in the glossary."`
	Definition string `json:"definition" jsonschema:"description=The description of the term in the glossary."`
}

// TermList is the set of glossary terms relevant to a work product.
// An empty list is valid: not every work product touches the glossary.
type TermList struct {
	Terms []Term `json:"terms" jsonschema:"description=A list of relevant terms for a given work product."`
}

func (l *TermList) Validate() error {
	for i, t := range l.Terms {
		if t.Term == "" || t.Definition == "" {
			return fmt.Errorf("term %d is incomplete", i)
		}
	}
	return nil
}

// DisambiguationEntry maps one concept across the two standards' vocabularies.
type DisambiguationEntry struct {
	Concept           string   `json:"concept" jsonschema:"description=The concept being disambiguated."`
	Definition        string   `json:"definition" jsonschema:"description=The definition of the concept."`
	Purpose           string   `json:"purpose" jsonschema:"description=The purpose of the concept."`
	Examples          []string `json:"examples" jsonschema:"description=Examples demonstrating the concept."`
	Elements          []string `json:"elements" jsonschema:"description=Related elements of the concept."`
	ExampleElements   []string `json:"example_elements" jsonschema:"description=Example elements of the concept."`
	TerminologyISO    string   `json:"terminology_iso26262" jsonschema:"description=ISO 26262-related terminology for the concept."`
	TerminologyASPICE string   `json:"terminology_aspice" jsonschema:"description=ASPICE-related terminology for the concept."`
}

// Disambiguation is the set of disambiguation entries relevant to a
// work product. An empty list is valid.
type Disambiguation struct {
	Entries []DisambiguationEntry `json:"entries" jsonschema:"description=A list of disambiguation entries for the work product."`
}

func (d *Disambiguation) Validate() error {
	for i, e := range d.Entries {
		if e.Concept == "" {
			return fmt.Errorf("disambiguation entry %d has no concept", i)
		}
	}
	return nil
}

// Abbreviation is one glossary abbreviation with its expansion.
type Abbreviation struct {
	Abbreviation string `json:"abbreviation" jsonschema:"description=The abbreviation in the glossary."`
	Definition   string `json:"definition" jsonschema:"description=The definition of the abbreviation in the glossary."`
}

// AbbreviationList is the set of abbreviations relevant to a work product.
// An empty list is valid.
type AbbreviationList struct {
	Abbreviations []Abbreviation `json:"abbreviations" jsonschema:"description=A list of relevant abbreviations for a given work product."`
}

func (l *AbbreviationList) Validate() error {
	for i, a := range l.Abbreviations {
		if a.Abbreviation == "" || a.Definition == "" {
			return fmt.Errorf("abbreviation %d is incomplete", i)
		}
	}
	return nil
}

// Concepts groups the glossary material filtered for one work product.
type Concepts struct {
	Terminology    TermList         `json:"terminology_iso"`
	Disambiguation Disambiguation   `json:"disambiguation"`
	Abbreviations  AbbreviationList `json:"abbreviations"`
}

// WorkProductContext is the complete context for one work product.
type WorkProductContext struct {
	WorkProduct string      `json:"work_product"`
	Description Description `json:"description"`
	Concepts    Concepts    `json:"concepts"`
}

// PurposeSchema is the structured-output descriptor for purpose generation.
func PurposeSchema() *schema.Descriptor {
	return &schema.Descriptor{
		Name:        "work_product_purpose",
		Description: "The purpose of a work product according to ISO 26262 and ASPICE.",
		Category:    schema.CategoryContext,
		New:         func() schema.Validator { return &Purpose{} },
	}
}

// TermListSchema is the structured-output descriptor for terminology filtering.
func TermListSchema() *schema.Descriptor {
	return &schema.Descriptor{
		Name:        "term_list",
		Description: "Glossary terms relevant to a work product.",
		Category:    schema.CategoryContext,
		New:         func() schema.Validator { return &TermList{} },
	}
}

// DisambiguationSchema is the structured-output descriptor for disambiguation filtering.
func DisambiguationSchema() *schema.Descriptor {
	return &schema.Descriptor{
		Name:        "disambiguation",
		Description: "Disambiguation entries relevant to a work product.",
		Category:    schema.CategoryContext,
		New:         func() schema.Validator { return &Disambiguation{} },
	}
}

// AbbreviationListSchema is the structured-output descriptor for abbreviation filtering.
func AbbreviationListSchema() *schema.Descriptor {
	return &schema.Descriptor{
		Name:        "abbreviation_list",
		Description: "Abbreviations relevant to a work product.",
		Category:    schema.CategoryContext,
		New:         func() schema.Validator { return &AbbreviationList{} },
	}
}
