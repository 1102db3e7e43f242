package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// document is a parsed snapshot with the lookups the analyzer needs.
type document struct {
	root    *html.Node
	byToken map[string]*html.Node
	byID    map[string][]*html.Node
	// elements holds every element node in document order.
	elements []*html.Node
}

func parseDocument(src string) (*document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}
	d := &document{
		root:    root,
		byToken: make(map[string]*html.Node),
		byID:    make(map[string][]*html.Node),
	}
	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		d.elements = append(d.elements, n)
		if tok := attr(n, HandleAttr); tok != "" {
			d.byToken[tok] = n
		}
		if id := attr(n, "id"); id != "" {
			d.byID[id] = append(d.byID[id], n)
		}
		return true
	})
	return d, nil
}

// walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return true
		}
	}
	return false
}

func tagName(n *html.Node) string {
	return strings.ToLower(n.Data)
}

func isElement(n *html.Node, tags ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	name := tagName(n)
	for _, t := range tags {
		if name == t {
			return true
		}
	}
	return false
}

// textContent concatenates descendant text, skipping scripts and styles, and
// collapses whitespace.
func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
			sb.WriteByte(' ')
		case html.ElementNode:
			switch tagName(c) {
			case "script", "style", "noscript", "template":
				return false
			}
		}
		return true
	})
	return collapseSpace(sb.String())
}

// textExcluding is textContent with the subtree at skip left out.
func textExcluding(n, skip *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c == skip {
			return false
		}
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
			sb.WriteByte(' ')
		case html.ElementNode:
			switch tagName(c) {
			case "script", "style", "noscript", "template", "select", "textarea":
				return false
			}
		}
		return true
	})
	return collapseSpace(sb.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func closest(n *html.Node, tag string) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if isElement(p, tag) {
			return p
		}
	}
	return nil
}

// textForIDs resolves a space separated id reference list to text.
func (d *document) textForIDs(refs string) string {
	var parts []string
	for _, id := range strings.Fields(refs) {
		if nodes := d.byID[id]; len(nodes) > 0 {
			if t := textContent(nodes[0]); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " ")
}

func (d *document) findFirst(tag string) *html.Node {
	for _, n := range d.elements {
		if tagName(n) == tag {
			return n
		}
	}
	return nil
}
