package dom

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// cssIdent matches identifiers that can be used in a selector unescaped.
var cssIdent = regexp.MustCompile(`^-?[_a-zA-Z][_a-zA-Z0-9-]*$`)

// maxClassCombo bounds how many classes a selector may combine.
const maxClassCombo = 2

// positionalPath builds an absolute, index based locator such as
// /html/body/div[2]/form[1]/input[3]. Indices are 1-based among siblings
// with the same tag.
func positionalPath(n *html.Node) string {
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		parts = append(parts, fmt.Sprintf("%s[%d]", tagName(cur), sameTagPosition(cur)))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

func sameTagPosition(n *html.Node) int {
	pos := 1
	for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type == html.ElementNode && prev.Data == n.Data {
			pos++
		}
	}
	return pos
}

// uniqueSelector derives a CSS selector verified to match only n. It tries
// the id, then tag plus one or two classes, then falls back to an
// nth-of-type chain anchored at the closest uniquely identified ancestor.
func (d *document) uniqueSelector(n *html.Node) string {
	if sel, ok := d.idSelector(n); ok {
		return sel
	}

	tag := tagName(n)
	classes := usableClasses(n)
	for size := 1; size <= maxClassCombo && size <= len(classes); size++ {
		for _, combo := range combinations(classes, size) {
			if d.countTagClasses(tag, combo) == 1 {
				return tag + "." + strings.Join(combo, ".")
			}
		}
	}

	var chain []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if cur != n {
			if sel, ok := d.idSelector(cur); ok {
				chain = append(chain, sel)
				break
			}
		}
		step := tagName(cur)
		if tagName(cur) != "html" {
			step = fmt.Sprintf("%s:nth-of-type(%d)", step, sameTagPosition(cur))
		}
		chain = append(chain, step)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return strings.Join(chain, " > ")
}

func (d *document) idSelector(n *html.Node) (string, bool) {
	id := attr(n, "id")
	if id == "" || len(d.byID[id]) != 1 {
		return "", false
	}
	if cssIdent.MatchString(id) {
		return "#" + id, true
	}
	return fmt.Sprintf(`[id="%s"]`, strings.ReplaceAll(id, `"`, `\"`)), true
}

func usableClasses(n *html.Node) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range strings.Fields(attr(n, "class")) {
		if cssIdent.MatchString(c) && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func (d *document) countTagClasses(tag string, classes []string) int {
	count := 0
	for _, el := range d.elements {
		if tagName(el) != tag {
			continue
		}
		have := strings.Fields(attr(el, "class"))
		if containsAll(have, classes) {
			count++
		}
	}
	return count
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// combinations returns the k-element subsets of items, preserving order.
func combinations(items []string, k int) [][]string {
	var out [][]string
	var pick func(start int, acc []string)
	pick = func(start int, acc []string) {
		if len(acc) == k {
			out = append(out, append([]string(nil), acc...))
			return
		}
		for i := start; i < len(items); i++ {
			pick(i+1, append(acc, items[i]))
		}
	}
	pick(0, nil)
	return out
}
