// Package schema declares the structured-output targets the generation
// pipeline asks the model to populate, and validates the payloads that
// come back.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Category partitions schemas by pipeline stage. It decides which
// transcript bucket a conversation is archived into. The set is closed;
// every descriptor carries its category explicitly.
type Category string

const (
	CategoryChecklist    Category = "checklist_generation"
	CategoryContext      Category = "context_generation"
	CategoryContent      Category = "content_segmentation"
	CategoryEvaluation   Category = "evaluation"
	CategoryUnclassified Category = "unclassified"
)

// Validator is implemented by every structured-output payload type.
// Validate reports bound and enum violations the JSON decoder cannot catch.
type Validator interface {
	Validate() error
}

// Descriptor names a structured-output target. New returns a fresh value
// to decode the model's payload into; Extraction marks schemas that also
// accept the no-information alternative.
type Descriptor struct {
	Name        string
	Description string
	Category    Category
	Extraction  bool
	New         func() Validator
}

// JSONSchema renders the machine-readable shape of the target, suitable
// both for the tool declaration and for corrective retry guidance.
func (d *Descriptor) JSONSchema() json.RawMessage {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	s := r.Reflect(d.New())
	b, err := json.Marshal(s)
	if err != nil {
		// Reflect output always marshals; a failure here is a programming error.
		panic(fmt.Sprintf("schema %s: marshaling json schema: %v", d.Name, err))
	}
	return b
}

// Decode strictly parses raw into a fresh payload value and validates it.
// The returned error is a diagnostic for the retry guidance, never a
// transport failure.
func (d *Descriptor) Decode(raw string) (Validator, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	v := d.New()
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("payload does not parse as %s: %w", d.Name, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("payload for %s has trailing data", d.Name)
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("payload violates %s: %w", d.Name, err)
	}
	return v, nil
}

// NoInfo is the alternative target for extraction schemas: the model
// selects it when the requested information does not exist.
type NoInfo struct {
	NoInformationFound bool `json:"no_information_found" jsonschema:"description=Indicates that no information was found."`
}

func (n *NoInfo) Validate() error { return nil }

// NoInfoName is the tool name under which the alternative is advertised.
const NoInfoName = "no_information_found"

// NoInfoDescriptor returns the descriptor for the no-information
// alternative, tagged with the category of the primary schema it
// accompanies.
func NoInfoDescriptor(cat Category) *Descriptor {
	return &Descriptor{
		Name:        NoInfoName,
		Description: "Report that the requested information was not found.",
		Category:    cat,
		New:         func() Validator { return &NoInfo{} },
	}
}
