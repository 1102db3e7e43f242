package dom

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// Caps on the listings of a state description. Errors are never capped.
const (
	MaxDescribedElements = 50
	MaxDescribedHeadings = 10
)

// Describe renders a PageContext in the fixed text layout used in prompts:
// page identity, errors first, then headings, forms and the element list.
func Describe(pc *schemas.PageContext) string {
	if pc == nil {
		return "No page loaded."
	}
	var b strings.Builder

	fmt.Fprintf(&b, "Page: %s\n", orNone(pc.Title))
	fmt.Fprintf(&b, "URL: %s\n", orNone(pc.URL))
	if pc.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", pc.Description)
	}

	if len(pc.Errors) > 0 {
		fmt.Fprintf(&b, "\nERRORS ON PAGE (%d):\n", len(pc.Errors))
		for _, e := range pc.Errors {
			if e.ElementIndex != nil {
				fmt.Fprintf(&b, "- [%d] %s\n", *e.ElementIndex, e.Message)
			} else {
				fmt.Fprintf(&b, "- %s\n", e.Message)
			}
		}
	}

	if len(pc.Headings) > 0 {
		b.WriteString("\nHeadings:\n")
		for i, h := range pc.Headings {
			if i == MaxDescribedHeadings {
				fmt.Fprintf(&b, "... and %d more headings\n", len(pc.Headings)-i)
				break
			}
			fmt.Fprintf(&b, "%s%s %s\n", strings.Repeat("  ", h.Level-1), strings.Repeat("#", h.Level), h.Text)
		}
	}

	if len(pc.Forms) > 0 {
		b.WriteString("\nForms:\n")
		for i, f := range pc.Forms {
			fmt.Fprintf(&b, "Form %d", i+1)
			if f.ID != "" {
				fmt.Fprintf(&b, " #%s", f.ID)
			} else if f.Name != "" {
				fmt.Fprintf(&b, " %q", f.Name)
			}
			fmt.Fprintf(&b, " (%s %s)\n", f.Method, orNone(f.Action))
			for _, fld := range f.Fields {
				b.WriteString("  - ")
				if fld.ElementIndex >= 0 {
					fmt.Fprintf(&b, "[%d] ", fld.ElementIndex)
				}
				fmt.Fprintf(&b, "%s (%s)", orNone(fld.Label), fld.Type)
				if fld.Required {
					b.WriteString(" *required")
				}
				b.WriteByte('\n')
			}
		}
	}

	if len(pc.Tables) > 0 {
		b.WriteString("\nTables:\n")
		for _, t := range pc.Tables {
			name := t.Caption
			if name == "" {
				name = "untitled"
			}
			fmt.Fprintf(&b, "- %s: %d rows", name, t.RowCount)
			if len(t.Headers) > 0 {
				fmt.Fprintf(&b, ", columns: %s", strings.Join(t.Headers, " | "))
			}
			b.WriteByte('\n')
		}
	}

	fmt.Fprintf(&b, "\nInteractive elements (%d):\n", len(pc.Elements))
	if len(pc.Elements) == 0 {
		b.WriteString("(none)\n")
	}
	for i, el := range pc.Elements {
		if i == MaxDescribedElements {
			fmt.Fprintf(&b, "... and %d more elements\n", len(pc.Elements)-i)
			break
		}
		b.WriteString(describeElement(el))
		b.WriteByte('\n')
	}

	return b.String()
}

func describeElement(el schemas.InteractiveElement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s %q", el.Index, el.Type, el.Label)
	if el.Value != "" && el.Value != el.Label {
		fmt.Fprintf(&b, " value=%q", truncate(el.Value, 60))
	}
	if el.Placeholder != "" && el.Placeholder != el.Label {
		fmt.Fprintf(&b, " placeholder=%q", el.Placeholder)
	}
	if el.Href != "" {
		fmt.Fprintf(&b, " href=%s", truncate(el.Href, 80))
	}
	if el.Checked != nil {
		if *el.Checked {
			b.WriteString(" (checked)")
		} else {
			b.WriteString(" (unchecked)")
		}
	}
	if el.Required {
		b.WriteString(" *required")
	}
	if !el.Enabled {
		b.WriteString(" (disabled)")
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
