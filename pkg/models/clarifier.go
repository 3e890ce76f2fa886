// Package models contains domain models for refinery.
package models

import "fmt"

// ClarifierType is the input widget type a clarifier renders as.
type ClarifierType string

const (
	ClarifierText        ClarifierType = "text"
	ClarifierTextarea    ClarifierType = "textarea"
	ClarifierDropdown    ClarifierType = "dropdown"
	ClarifierCheckbox    ClarifierType = "checkbox"
	ClarifierMultiselect ClarifierType = "multiselect"
)

// ValidClarifierType reports whether t is one of the known input types.
func ValidClarifierType(t ClarifierType) bool {
	switch t {
	case ClarifierText, ClarifierTextarea, ClarifierDropdown, ClarifierCheckbox, ClarifierMultiselect:
		return true
	}
	return false
}

// Clarifier is a single AI-generated clarifying question presented to the
// user between the raw prompt and the optimized prompt.
type Clarifier struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Type     ClarifierType `json:"type"`
	Options  []string      `json:"options,omitempty"`
	Required bool          `json:"required,omitempty"`
}

// Validate checks the fields the clarifier schema requires.
func (c *Clarifier) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("clarifier missing id")
	}
	if c.Label == "" {
		return fmt.Errorf("clarifier %q missing label", c.ID)
	}
	if !ValidClarifierType(c.Type) {
		return fmt.Errorf("clarifier %q has unknown type %q", c.ID, c.Type)
	}
	return nil
}
