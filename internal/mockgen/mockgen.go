// Package mockgen synthesizes field values for seeding test data into
// lists. Generation is a pure function of the field descriptor and the
// item index, so repeated seeding runs produce identical data.
package mockgen

import (
	"fmt"
	"strings"
	"time"
)

// FieldDescriptor is the read-only input to Generate: the field's
// internal name, display title, type name, and any declared choices.
type FieldDescriptor struct {
	InternalName string
	DisplayTitle string
	TypeName     string
	Choices      []string
}

// LookupPlaceholder marks a lookup-typed field whose value cannot be
// synthesized directly: a valid value references a live row id in the
// foreign list, which only the seeding workflow can resolve. Items are
// created with these fields omitted and patched in a second pass.
type LookupPlaceholder struct {
	FieldName      string
	AllowsMultiple bool
}

// seedEpoch anchors generated dates so runs are reproducible regardless
// of wall-clock time.
var seedEpoch = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// Generate maps a field descriptor and item index to a synthetic value.
// Dispatch is by lower-cased type name. Lookup fields yield a
// *LookupPlaceholder; person/group and unrecognized types yield nil
// (no synthetic identity exists to assign). Same inputs, same output.
func Generate(field FieldDescriptor, index int) any {
	switch strings.ToLower(field.TypeName) {
	case "text":
		return fmt.Sprintf("%s %d", displayName(field), index+1)
	case "note":
		return fmt.Sprintf("Sample %s content for item %d.", displayName(field), index+1)
	case "number":
		return float64(index) * 1.5
	case "integer", "counter":
		return index
	case "currency":
		return float64(index) * 10.0
	case "datetime":
		return seedEpoch.AddDate(0, 0, index).Format(time.RFC3339)
	case "boolean":
		return index%2 == 0
	case "choice":
		return pickChoice(field.Choices, index)
	case "multichoice":
		choice := pickChoice(field.Choices, index)
		if choice == nil {
			return nil
		}

		return []string{choice.(string)}
	case "url":
		return map[string]any{
			"Url":         fmt.Sprintf("https://example.com/%d", index+1),
			"Description": fmt.Sprintf("Link %d", index+1),
		}
	case "lookup":
		return &LookupPlaceholder{FieldName: field.InternalName}
	case "lookupmulti":
		return &LookupPlaceholder{FieldName: field.InternalName, AllowsMultiple: true}
	case "user", "usermulti":
		return nil
	default:
		return nil
	}
}

// pickChoice cycles through the declared choices by index, never
// inventing values outside the declared set. Without declared choices it
// yields nil.
func pickChoice(choices []string, index int) any {
	if len(choices) == 0 {
		return nil
	}

	return choices[index%len(choices)]
}

// displayName prefers the display title, falling back to the internal
// name.
func displayName(field FieldDescriptor) string {
	if field.DisplayTitle != "" {
		return field.DisplayTitle
	}

	return field.InternalName
}
