// Package persist serializes interpreter state to save slots.
package persist

import (
	"encoding/json"
	"fmt"

	"github.com/zurustar/novella/pkg/render"
)

// Document is the saved form of the interpreter state.
type Document struct {
	Command   int                   `json:"command"`
	Images    []render.DisplayImage `json:"images"`
	Variables map[string]int        `json:"variables"`
}

// Encode returns the JSON form of d. Nil collections are written as empty
// ones so every document has the same shape.
func (d Document) Encode() (string, error) {
	if d.Images == nil {
		d.Images = []render.DisplayImage{}
	}
	if d.Variables == nil {
		d.Variables = map[string]int{}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to encode save: %w", err)
	}
	return string(b), nil
}

// Decode parses a saved document.
func Decode(s string) (Document, error) {
	var d Document
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return Document{}, fmt.Errorf("failed to decode save: %w", err)
	}
	if d.Command < 0 {
		return Document{}, fmt.Errorf("failed to decode save: negative command %d", d.Command)
	}
	if d.Variables == nil {
		d.Variables = map[string]int{}
	}
	return d, nil
}
