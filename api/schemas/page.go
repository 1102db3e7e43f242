package schemas

// -- Page Snapshot Schemas --

// Rect is an element's bounding box in CSS pixels, relative to the viewport.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the box has no rendered area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// InteractiveElement is one actionable element of a snapshot. Index is dense
// and stable for the lifetime of the snapshot that produced it.
type InteractiveElement struct {
	Index       int    `json:"index"`
	Tag         string `json:"tag"`
	Type        string `json:"type"`
	Role        string `json:"role,omitempty"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	Class       string `json:"class,omitempty"`
	Href        string `json:"href,omitempty"`
	Value       string `json:"value,omitempty"`
	// Checked is only set for checkable controls.
	Checked  *bool  `json:"checked,omitempty"`
	Required bool   `json:"required,omitempty"`
	Visible  bool   `json:"visible"`
	Enabled  bool   `json:"enabled"`
	Rect     Rect   `json:"rect"`
	Path     string `json:"path"`
	Selector string `json:"selector"`
}

// IsCheckable reports whether the element is a checkbox or radio button.
func (e InteractiveElement) IsCheckable() bool {
	return e.Type == "checkbox" || e.Type == "radio"
}

// FormField describes a single control inside a form. ElementIndex is -1 when
// the control is not part of the visible element list.
type FormField struct {
	ElementIndex int    `json:"elementIndex"`
	Tag          string `json:"tag"`
	Type         string `json:"type"`
	Name         string `json:"name,omitempty"`
	Label        string `json:"label,omitempty"`
	Required     bool   `json:"required,omitempty"`
}

// FormInfo summarizes a <form> element.
type FormInfo struct {
	ID     string      `json:"id,omitempty"`
	Name   string      `json:"name,omitempty"`
	Action string      `json:"action,omitempty"`
	Method string      `json:"method,omitempty"`
	Fields []FormField `json:"fields"`
}

// TableInfo summarizes a <table> element.
type TableInfo struct {
	Caption  string   `json:"caption,omitempty"`
	Headers  []string `json:"headers"`
	RowCount int      `json:"rowCount"`
}

// LinkInfo is a flattened view of an interactive link.
type LinkInfo struct {
	ElementIndex int    `json:"elementIndex"`
	Text         string `json:"text"`
	Href         string `json:"href"`
}

// Heading is a document heading in document order.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// ErrorSource identifies how a page error was detected.
type ErrorSource string

const (
	ErrorSourceValidation ErrorSource = "validation" // native constraint validation
	ErrorSourceAria       ErrorSource = "aria"       // aria-invalid with a resolvable message
	ErrorSourceAlert      ErrorSource = "alert"      // role=alert or assertive live region
	ErrorSourceStyled     ErrorSource = "styled"     // short error-styled text near an input
)

// ErrorInfo is a user-visible error found on the page.
type ErrorInfo struct {
	Message string      `json:"message"`
	Source  ErrorSource `json:"source"`
	// ElementIndex points at the related element when one is known.
	ElementIndex *int `json:"elementIndex,omitempty"`
}

// PageContext is the structured snapshot produced by a single analysis pass.
type PageContext struct {
	URL         string               `json:"url"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Elements    []InteractiveElement `json:"elements"`
	Forms       []FormInfo           `json:"forms"`
	Tables      []TableInfo          `json:"tables"`
	Links       []LinkInfo           `json:"links"`
	Headings    []Heading            `json:"headings"`
	Errors      []ErrorInfo          `json:"errors"`
}
