// Package knowledge resolves external references inside ISO 26262
// requirement descriptions: tables, clauses and requirement IDs pointing
// elsewhere in the standard. Identified references are looked up in the
// local standards material and returned as prompt-ready text.
package knowledge

import (
	"fmt"

	"github.com/checkaud/checkaud/internal/schema"
)

// TableRef points at one table in a standard part.
type TableRef struct {
	StandardName string `json:"standard_name" jsonschema:"description=The name of the standard, either ISO 26262 or ASPICE."`
	PartNumber   int    `json:"part_number" jsonschema:"description=The part of the standard where the table is at."`
	TableNumber  int    `json:"table_number" jsonschema:"description=The number of the table in the part."`
}

// TableRefList collects the tables referenced by a requirement.
// An empty list is valid: most requirements reference none.
type TableRefList struct {
	Tables []TableRef `json:"tables" jsonschema:"description=A list of referenced tables."`
}

func (l *TableRefList) Validate() error {
	for i, t := range l.Tables {
		if t.PartNumber <= 0 || t.TableNumber <= 0 {
			return fmt.Errorf("table reference %d is incomplete", i)
		}
	}
	return nil
}

// ClauseRef points at one clause in a standard part.
type ClauseRef struct {
	StandardName string `json:"standard_name" jsonschema:"description=The name of the standard, either ISO 26262 or ASPICE."`
	PartNumber   int    `json:"part_number" jsonschema:"description=The part of the standard where the clause is at."`
	ClauseNumber int    `json:"clause_number" jsonschema:"description=The number of the clause in the part."`
}

// ClauseRefList collects the clauses referenced by a requirement.
// An empty list is valid.
type ClauseRefList struct {
	Clauses []ClauseRef `json:"clauses" jsonschema:"description=A list of referenced clauses."`
}

func (l *ClauseRefList) Validate() error {
	for i, c := range l.Clauses {
		if c.PartNumber <= 0 || c.ClauseNumber <= 0 {
			return fmt.Errorf("clause reference %d is incomplete", i)
		}
	}
	return nil
}

// ExternalID points at one requirement elsewhere in the standard,
// identified by its clause.section[.subsection[.subsubsection]] position.
type ExternalID struct {
	StandardName        string `json:"standard_name" jsonschema:"description=The name of the standard, ISO 26262."`
	PartNumber          int    `json:"part_number" jsonschema:"description=The part of the standard where the external ID is located."`
	ClauseNumber        int    `json:"clause_number" jsonschema:"description=The clause number where the external ID is located."`
	SectionNumber       int    `json:"section_number" jsonschema:"description=The section number of the external ID. Never zero."`
	SubsectionNumber    int    `json:"subsection_number" jsonschema:"description=The subsection number, or zero when absent."`
	SubsubsectionNumber int    `json:"subsubsection_number" jsonschema:"description=The subsubsection number, or zero when absent."`
}

// Ref renders the position of an external ID ("6.4.2").
func (e ExternalID) Ref() string {
	s := fmt.Sprintf("%d.%d", e.ClauseNumber, e.SectionNumber)
	if e.SubsectionNumber != 0 {
		s += fmt.Sprintf(".%d", e.SubsectionNumber)
		if e.SubsubsectionNumber != 0 {
			s += fmt.Sprintf(".%d", e.SubsubsectionNumber)
		}
	}
	return s
}

// ExternalIDList collects the external requirement IDs referenced by a
// requirement. An empty list is valid.
type ExternalIDList struct {
	ExternalIDs []ExternalID `json:"external_ids" jsonschema:"description=A list of referenced external IDs."`
}

func (l *ExternalIDList) Validate() error {
	for i, e := range l.ExternalIDs {
		if e.PartNumber <= 0 || e.ClauseNumber <= 0 {
			return fmt.Errorf("external ID %d is incomplete", i)
		}
		// Section zero means a bare clause reference, which is handled
		// by clause identification instead.
		if e.SectionNumber == 0 {
			return fmt.Errorf("external ID %d has a zero section number", i)
		}
	}
	return nil
}

// TableRefSchema is the extraction descriptor for table identification.
func TableRefSchema() *schema.Descriptor {
	return &schema.Descriptor{
		Name:        "identify_tables",
		Description: "Tables referenced in a requirement description.",
		Category:    schema.CategoryContent,
		Extraction:  true,
		New:         func() schema.Validator { return &TableRefList{} },
	}
}

// ClauseRefSchema is the extraction descriptor for clause identification.
func ClauseRefSchema() *schema.Descriptor {
	return &schema.Descriptor{
		Name:        "identify_clauses",
		Description: "Clauses referenced in a requirement description.",
		Category:    schema.CategoryContent,
		Extraction:  true,
		New:         func() schema.Validator { return &ClauseRefList{} },
	}
}

// ExternalIDSchema is the extraction descriptor for external ID identification.
func ExternalIDSchema() *schema.Descriptor {
	return &schema.Descriptor{
		Name:        "identify_external_ids",
		Description: "External requirement IDs referenced in a requirement description.",
		Category:    schema.CategoryContent,
		Extraction:  true,
		New:         func() schema.Validator { return &ExternalIDList{} },
	}
}
