// Package content prepares requirement content for checklist generation:
// filtering requirement descriptions down to actionable compliance
// information and grouping requirements by topic.
package content

import (
	"fmt"

	"github.com/checkaud/checkaud/internal/schema"
)

// Description is the filtered, reference-free description of a requirement.
type Description struct {
	Description string `json:"description" jsonschema:"description=The description of the requirement."`
}

func (d *Description) Validate() error {
	if d.Description == "" {
		return fmt.Errorf("filtered description is empty")
	}
	return nil
}

// Topic groups requirements that share a theme.
type Topic struct {
	Topic string   `json:"topic" jsonschema:"description=The topic for a work product."`
	IDs   []string `json:"ids" jsonschema:"description=A list of the requirement IDs grouped under the topic."`
}

// TopicList is the set of topics a work product's requirements fall into.
type TopicList struct {
	Topics []Topic `json:"topics" jsonschema:"description=A list of topics for a work product."`
}

func (l *TopicList) Validate() error {
	if len(l.Topics) == 0 {
		return fmt.Errorf("topic list is empty")
	}
	for i, t := range l.Topics {
		if t.Topic == "" {
			return fmt.Errorf("topic %d has no name", i)
		}
		if len(t.IDs) == 0 {
			return fmt.Errorf("topic %d (%s) groups no requirement IDs", i, t.Topic)
		}
	}
	return nil
}

// DescriptionSchema is the structured-output descriptor for requirement filtering.
func DescriptionSchema() *schema.Descriptor {
	return &schema.Descriptor{
		Name:        "requirement_description",
		Description: "The filtered description of a requirement, free of external references.",
		Category:    schema.CategoryContent,
		New:         func() schema.Validator { return &Description{} },
	}
}

// TopicListSchema is the structured-output descriptor for topic grouping.
func TopicListSchema() *schema.Descriptor {
	return &schema.Descriptor{
		Name:        "topic_list",
		Description: "Topics that group a work product's requirements by shared theme.",
		Category:    schema.CategoryContent,
		New:         func() schema.Validator { return &TopicList{} },
	}
}
