package dom

import (
	"context"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// RawSnapshot is what a Prober collects from the live page in one pass: the
// serialized document with candidates stamped, plus the properties that only
// exist on the rendered page.
type RawSnapshot struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	HTML  string `json:"html"`
	// Elements lists every stamped candidate in document order.
	Elements     []LiveElement `json:"elements"`
	Alerts       []string      `json:"alerts"`
	StyledErrors []StyledError `json:"styledErrors"`
}

// LiveElement holds the rendered state of one stamped candidate.
type LiveElement struct {
	Token      string       `json:"handle"`
	Rect       schemas.Rect `json:"rect"`
	Display    string       `json:"display"`
	Visibility string       `json:"visibility"`
	Opacity    float64      `json:"opacity"`
	Text       string       `json:"text"`
	Value      string       `json:"value"`
	Checked    bool         `json:"checked"`
	Disabled   bool         `json:"disabled"`
	// Valid mirrors element.validity.valid; UserInvalid is :user-invalid.
	Valid             bool   `json:"valid"`
	UserInvalid       bool   `json:"userInvalid"`
	ValidationMessage string `json:"validationMessage"`
}

// Visible applies the rendering test: a positive box, not display:none, not
// visibility:hidden, and not fully transparent.
func (l LiveElement) Visible() bool {
	return !l.Rect.Empty() &&
		l.Display != "none" &&
		l.Visibility != "hidden" &&
		l.Visibility != "collapse" &&
		l.Opacity > 0
}

// StyledError is short error-looking text found next to a form control.
type StyledError struct {
	Text  string `json:"text"`
	Token string `json:"handle"`
}

// ProbeRequest parameterizes a Prober pass.
type ProbeRequest struct {
	Generation int64
	Selectors  string
	Attr       string
}

// Prober collects a RawSnapshot from the page, stamping every element that
// matches req.Selectors (or carries a click handler) with req.Attr.
type Prober interface {
	Probe(ctx context.Context, req ProbeRequest) (*RawSnapshot, error)
}
