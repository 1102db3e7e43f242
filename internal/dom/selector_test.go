package dom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueSelector(t *testing.T) {
	doc, err := parseDocument(`<html><body>
<div id="dup"><a class="x y" id="a1">1</a></div>
<div id="dup"><a class="x z">2</a><a class="x y">3</a></div>
<section id="main"><p><button>b</button></p></section>
<span id="weird:id">w</span>
</body></html>`)
	require.NoError(t, err)

	byText := func(text string) string {
		for _, n := range doc.elements {
			if n.FirstChild != nil && n.FirstChild.Data == text {
				return doc.uniqueSelector(n)
			}
		}
		t.Fatalf("no element with text %q", text)
		return ""
	}

	assert.Equal(t, "#a1", byText("1"))
	assert.Equal(t, "a.z", byText("2"), "single class wins when unique")
	assert.Equal(t, "html > body:nth-of-type(1) > div:nth-of-type(2) > a:nth-of-type(2)", byText("3"), "duplicate ids are not anchors")
	assert.Equal(t, "#main > p:nth-of-type(1) > button:nth-of-type(1)", byText("b"))
	assert.Equal(t, `[id="weird:id"]`, byText("w"))
}

func TestUniqueSelector_ClassPairs(t *testing.T) {
	doc, err := parseDocument(`<html><body>
<i class="a b">1</i><i class="a c">2</i><i class="b c">3</i>
</body></html>`)
	require.NoError(t, err)
	first := doc.findFirst("i")
	assert.Equal(t, "i.a.b", doc.uniqueSelector(first))
}

func TestCombinations(t *testing.T) {
	got := combinations([]string{"a", "b", "c"}, 2)
	want := [][]string{{"a", "b"}, {"a", "c"}, {"b", "c"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("combinations mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, combinations([]string{"a"}, 2))
}

func TestPositionalPath(t *testing.T) {
	doc, err := parseDocument(`<html><body><ul><li>a</li><li>b</li></ul></body></html>`)
	require.NoError(t, err)
	var second = doc.elements[len(doc.elements)-1]
	assert.Equal(t, "/html[1]/body[1]/ul[1]/li[2]", positionalPath(second))
}
