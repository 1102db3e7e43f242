package dom

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// InteractiveSelectors is the candidate selector set handed to the probe.
// Elements with an onclick property are added by the probe itself.
var InteractiveSelectors = []string{
	"a[href]",
	"button",
	"input:not([type=hidden])",
	"select",
	"textarea",
	"summary",
	"[role=button]",
	"[role=link]",
	"[role=checkbox]",
	"[role=radio]",
	"[role=switch]",
	"[role=tab]",
	"[role=menuitem]",
	"[role=option]",
	"[role=combobox]",
	"[role=textbox]",
	"[onclick]",
	"[contenteditable]:not([contenteditable=false])",
	"[tabindex]:not([tabindex='-1'])",
}

// maxTextLabel bounds how much inner text may serve as a label.
const maxTextLabel = 100

// semanticType classifies an element for the planner: the input type for
// inputs, "link", "button", "dropdown" or "textarea" for those tags, then the
// ARIA role, then the tag name.
func semanticType(n *html.Node) string {
	switch tagName(n) {
	case "input":
		t := strings.ToLower(strings.TrimSpace(attr(n, "type")))
		if t == "" {
			return "text"
		}
		return t
	case "a":
		return "link"
	case "button":
		return "button"
	case "select":
		return "dropdown"
	case "textarea":
		return "textarea"
	}
	if role := strings.ToLower(strings.TrimSpace(attr(n, "role"))); role != "" {
		return role
	}
	if isContentEditable(n) {
		return "editable"
	}
	return tagName(n)
}

func isContentEditable(n *html.Node) bool {
	if !hasAttr(n, "contenteditable") {
		return false
	}
	v := strings.ToLower(attr(n, "contenteditable"))
	return v != "false"
}

var inputRoles = map[string]string{
	"button":   "button",
	"submit":   "button",
	"reset":    "button",
	"image":    "button",
	"checkbox": "checkbox",
	"radio":    "radio",
	"range":    "slider",
	"number":   "spinbutton",
	"search":   "searchbox",
}

// inferRole returns the explicit role or the implicit ARIA role of the tag.
func inferRole(n *html.Node) string {
	if role := strings.ToLower(strings.TrimSpace(attr(n, "role"))); role != "" {
		return role
	}
	switch tagName(n) {
	case "a":
		if hasAttr(n, "href") {
			return "link"
		}
	case "button", "summary":
		return "button"
	case "select":
		if hasAttr(n, "multiple") {
			return "listbox"
		}
		return "combobox"
	case "textarea":
		return "textbox"
	case "input":
		if r, ok := inputRoles[semanticType(n)]; ok {
			return r
		}
		return "textbox"
	}
	if isContentEditable(n) {
		return "textbox"
	}
	return ""
}

// elementLabel picks the first usable description of an element: aria-label,
// aria-labelledby, an associated <label>, short rendered text, the current
// value, placeholder, title, and finally the tag name.
func (d *document) elementLabel(n *html.Node, live LiveElement) string {
	if v := collapseSpace(attr(n, "aria-label")); v != "" {
		return v
	}
	if v := d.textForIDs(attr(n, "aria-labelledby")); v != "" {
		return v
	}
	if v := d.associatedLabel(n); v != "" {
		return v
	}
	if v := collapseSpace(live.Text); v != "" && utf8.RuneCountInString(v) < maxTextLabel {
		return v
	}
	if live.Value != "" && !isSecret(n) {
		return collapseSpace(live.Value)
	}
	if v := collapseSpace(attr(n, "placeholder")); v != "" {
		return v
	}
	if v := collapseSpace(attr(n, "title")); v != "" {
		return v
	}
	return tagName(n)
}

// associatedLabel resolves <label for=id> or a wrapping <label>, for
// labelable controls only.
func (d *document) associatedLabel(n *html.Node) string {
	if !isElement(n, "input", "select", "textarea") {
		return ""
	}
	if id := attr(n, "id"); id != "" {
		for _, el := range d.elements {
			if tagName(el) == "label" && attr(el, "for") == id {
				if t := textExcluding(el, n); t != "" {
					return t
				}
			}
		}
	}
	if lbl := closest(n, "label"); lbl != nil {
		return textExcluding(lbl, n)
	}
	return ""
}

func isSecret(n *html.Node) bool {
	return isElement(n, "input") && strings.EqualFold(attr(n, "type"), "password")
}

func isRequired(n *html.Node) bool {
	return hasAttr(n, "required") || strings.EqualFold(attr(n, "aria-required"), "true")
}

func isCheckable(n *html.Node) bool {
	if !isElement(n, "input") {
		switch strings.ToLower(attr(n, "role")) {
		case "checkbox", "radio", "switch":
			return true
		}
		return false
	}
	t := strings.ToLower(attr(n, "type"))
	return t == "checkbox" || t == "radio"
}
