// Package checklist generates compliance checklists for automotive work
// products from ISO 26262 and Automotive SPICE requirements.
package checklist

import (
	"fmt"

	"github.com/checkaud/checkaud/internal/schema"
)

// Item is one checklist entry: a titled group of closed questions traced
// back to the requirement IDs it was derived from.
type Item struct {
	IDs       []string `json:"ids" jsonschema:"description=The complete IDs of all requirements used to create the checklist item."`
	Title     string   `json:"title" jsonschema:"description=The title encapsulating the main theme of the checklist item."`
	Questions []string `json:"questions" jsonschema:"description=Closed (yes/no) questions guiding the user towards compliance."`
}

// Checklist is the structured outcome of checklist generation for one
// work product.
type Checklist struct {
	WorkProduct string `json:"work_product" jsonschema:"description=The work product the checklist is generated for."`
	Items       []Item `json:"checklist_items" jsonschema:"description=The checklist items for the work product."`
}

func (c *Checklist) Validate() error {
	if c.WorkProduct == "" {
		return fmt.Errorf("checklist has no work product")
	}
	if len(c.Items) == 0 {
		return fmt.Errorf("checklist has no items")
	}
	for i, item := range c.Items {
		if item.Title == "" {
			return fmt.Errorf("item %d has no title", i)
		}
		if len(item.IDs) == 0 {
			return fmt.Errorf("item %d (%s) traces to no requirement IDs", i, item.Title)
		}
		if len(item.Questions) == 0 {
			return fmt.Errorf("item %d (%s) has no questions", i, item.Title)
		}
	}
	return nil
}

// Schema returns the structured-output descriptor for checklist generation.
func Schema() *schema.Descriptor {
	return &schema.Descriptor{
		Name:        "checklist",
		Description: "A compliance checklist for a work product, organized into items with traced requirement IDs.",
		Category:    schema.CategoryChecklist,
		New:         func() schema.Validator { return &Checklist{} },
	}
}
