package sharepoint

// Wire types for the verbose-OData REST dialect. Responses arrive inside
// a {"d": ...} envelope; collections add a {"results": [...]} layer.

// Web describes a site.
type Web struct {
	ID          string `json:"Id"`
	Title       string `json:"Title"`
	Description string `json:"Description"`
	URL         string `json:"Url"`
	Created     string `json:"Created"`
	WebTemplate string `json:"WebTemplate"`
}

// List describes a list or document library.
type List struct {
	ID           string `json:"Id"`
	Title        string `json:"Title"`
	Description  string `json:"Description"`
	ItemCount    int    `json:"ItemCount"`
	BaseTemplate int    `json:"BaseTemplate"`
	Hidden       bool   `json:"Hidden"`
	Created      string `json:"Created"`
}

// Item is one list item. SharePoint items are open-schema, so the item is
// the raw field map; well-known fields (Id, Title) are read through
// helpers where needed.
type Item map[string]any

// ID returns the item's integer id, or 0 when absent.
func (i Item) ID() int {
	switch v := i["Id"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// Field describes one list field (column).
type Field struct {
	InternalName        string      `json:"InternalName"`
	Title               string      `json:"Title"`
	TypeAsString        string      `json:"TypeAsString"`
	Hidden              bool        `json:"Hidden"`
	ReadOnlyField       bool        `json:"ReadOnlyField"`
	Required            bool        `json:"Required"`
	Choices             *StringList `json:"Choices,omitempty"`
	LookupList          string      `json:"LookupList,omitempty"`
	AllowMultipleValues bool        `json:"AllowMultipleValues,omitempty"`
}

// ChoiceValues returns the declared choices, or nil.
func (f *Field) ChoiceValues() []string {
	if f.Choices == nil {
		return nil
	}

	return f.Choices.Results
}

// StringList is the verbose-OData string collection shape.
type StringList struct {
	Results []string `json:"results"`
}

// envelope is the single-object {"d": ...} wrapper.
type envelope[T any] struct {
	D T `json:"d"`
}

// collection is the {"d": {"results": [...]}} wrapper.
type collection[T any] struct {
	D struct {
		Results []T `json:"results"`
	} `json:"d"`
}
