package dom

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// indexOf maps a node to its element index, or -1 if it is not a visible
// interactive element of the snapshot.
type indexOf func(n *html.Node) int

func (d *document) metaDescription() string {
	for _, n := range d.elements {
		if tagName(n) != "meta" {
			continue
		}
		name := strings.ToLower(attr(n, "name"))
		prop := strings.ToLower(attr(n, "property"))
		if name == "description" || prop == "og:description" {
			if c := collapseSpace(attr(n, "content")); c != "" {
				return c
			}
		}
	}
	return ""
}

func (d *document) forms(idx indexOf) []schemas.FormInfo {
	var forms []schemas.FormInfo
	for _, f := range d.elements {
		if tagName(f) != "form" {
			continue
		}
		info := schemas.FormInfo{
			ID:     attr(f, "id"),
			Name:   attr(f, "name"),
			Action: attr(f, "action"),
			Method: strings.ToUpper(attr(f, "method")),
			Fields: []schemas.FormField{},
		}
		if info.Method == "" {
			info.Method = "GET"
		}
		for _, ctl := range d.formControls(f) {
			info.Fields = append(info.Fields, schemas.FormField{
				ElementIndex: idx(ctl),
				Tag:          tagName(ctl),
				Type:         semanticType(ctl),
				Name:         attr(ctl, "name"),
				Label:        d.fieldLabel(ctl),
				Required:     isRequired(ctl),
			})
		}
		forms = append(forms, info)
	}
	return forms
}

// formControls returns the controls owned by form f: descendants plus
// controls elsewhere that name the form through their form attribute.
func (d *document) formControls(f *html.Node) []*html.Node {
	formID := attr(f, "id")
	var out []*html.Node
	for _, n := range d.elements {
		if !isFormControl(n) {
			continue
		}
		owner := attr(n, "form")
		switch {
		case owner != "":
			if owner == formID {
				out = append(out, n)
			}
		case closest(n, "form") == f:
			out = append(out, n)
		}
	}
	return out
}

func isFormControl(n *html.Node) bool {
	switch tagName(n) {
	case "select", "textarea":
		return true
	case "input":
		return !strings.EqualFold(attr(n, "type"), "hidden")
	}
	return false
}

// fieldLabel prefers an explicit or wrapping <label>, then ARIA, then the
// placeholder.
func (d *document) fieldLabel(n *html.Node) string {
	if v := d.associatedLabel(n); v != "" {
		return v
	}
	if v := collapseSpace(attr(n, "aria-label")); v != "" {
		return v
	}
	if v := d.textForIDs(attr(n, "aria-labelledby")); v != "" {
		return v
	}
	return collapseSpace(attr(n, "placeholder"))
}

func (d *document) tables() []schemas.TableInfo {
	var tables []schemas.TableInfo
	for _, t := range d.elements {
		if tagName(t) != "table" {
			continue
		}
		info := schemas.TableInfo{Headers: []string{}}
		var headerRow *html.Node
		for _, row := range ownRows(t) {
			cells := childElements(row, "th", "td")
			if len(cells) == 0 {
				continue
			}
			allHeaders := true
			for _, c := range cells {
				if tagName(c) != "th" {
					allHeaders = false
					break
				}
			}
			inHead := isElement(row.Parent, "thead")
			if headerRow == nil && (inHead || allHeaders) {
				headerRow = row
				for _, c := range cells {
					info.Headers = append(info.Headers, textContent(c))
				}
				continue
			}
			if !inHead {
				info.RowCount++
			}
		}
		for c := t.FirstChild; c != nil; c = c.NextSibling {
			if isElement(c, "caption") {
				info.Caption = textContent(c)
				break
			}
		}
		tables = append(tables, info)
	}
	return tables
}

// ownRows returns the rows of t without descending into nested tables.
func ownRows(t *html.Node) []*html.Node {
	var rows []*html.Node
	for c := t.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case isElement(c, "tr"):
			rows = append(rows, c)
		case isElement(c, "thead", "tbody", "tfoot"):
			rows = append(rows, childElements(c, "tr")...)
		}
	}
	return rows
}

func childElements(n *html.Node, tags ...string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, tags...) {
			out = append(out, c)
		}
	}
	return out
}

func (d *document) headings() []schemas.Heading {
	var out []schemas.Heading
	for _, n := range d.elements {
		if hasAttr(n, "hidden") || strings.EqualFold(attr(n, "aria-hidden"), "true") {
			continue
		}
		level := 0
		switch tagName(n) {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level = int(n.Data[1] - '0')
		default:
			if strings.EqualFold(attr(n, "role"), "heading") {
				level, _ = strconv.Atoi(attr(n, "aria-level"))
				if level < 1 || level > 6 {
					level = 2
				}
			}
		}
		if level == 0 {
			continue
		}
		if text := textContent(n); text != "" {
			out = append(out, schemas.Heading{Level: level, Text: text})
		}
	}
	return out
}

func links(elements []schemas.InteractiveElement) []schemas.LinkInfo {
	out := []schemas.LinkInfo{}
	for _, el := range elements {
		if el.Type == "link" || el.Role == "link" {
			out = append(out, schemas.LinkInfo{ElementIndex: el.Index, Text: el.Label, Href: el.Href})
		}
	}
	return out
}

// -- Errors --

// maxStyledErrorLen bounds heuristic error text; longer text is prose.
const maxStyledErrorLen = 150

// wordy filters out markers such as a lone "*" next to required fields.
var wordy = regexp.MustCompile(`\pL.*\pL.*\pL`)

// collectErrors gathers user-visible errors from native validation, ARIA,
// alert regions and error styling, in that order, dropping duplicates.
func (d *document) collectErrors(raw *RawSnapshot, live map[string]LiveElement, idx indexOf, labels map[string]string) []schemas.ErrorInfo {
	var errs []schemas.ErrorInfo
	seen := make(map[string]bool)
	add := func(msg string, src schemas.ErrorSource, index int) {
		msg = collapseSpace(msg)
		key := strings.ToLower(msg)
		if msg == "" || seen[key] {
			return
		}
		seen[key] = true
		e := schemas.ErrorInfo{Message: msg, Source: src}
		if index >= 0 {
			i := index
			e.ElementIndex = &i
		}
		errs = append(errs, e)
	}

	// Pristine required fields are invalid too; only report fields the user
	// has touched or filled.
	for _, le := range raw.Elements {
		if le.Valid || le.ValidationMessage == "" {
			continue
		}
		if !le.UserInvalid && le.Value == "" {
			continue
		}
		n := d.byToken[le.Token]
		if n == nil || !le.Visible() {
			continue
		}
		msg := le.ValidationMessage
		if lbl := labels[le.Token]; lbl != "" {
			msg = lbl + ": " + msg
		}
		add(msg, schemas.ErrorSourceValidation, idx(n))
	}

	for _, n := range d.elements {
		if !strings.EqualFold(attr(n, "aria-invalid"), "true") {
			continue
		}
		text := d.textForIDs(attr(n, "aria-errormessage"))
		if text == "" {
			text = d.textForIDs(attr(n, "aria-describedby"))
		}
		if text == "" {
			continue
		}
		add(text, schemas.ErrorSourceAria, idx(n))
	}

	for _, a := range raw.Alerts {
		add(a, schemas.ErrorSourceAlert, -1)
	}

	for _, se := range raw.StyledErrors {
		text := collapseSpace(se.Text)
		if len(text) > maxStyledErrorLen || !wordy.MatchString(text) {
			continue
		}
		index := -1
		if n := d.byToken[se.Token]; n != nil {
			if l, ok := live[se.Token]; ok && l.Visible() {
				index = idx(n)
			}
		}
		add(text, schemas.ErrorSourceStyled, index)
	}

	return errs
}
