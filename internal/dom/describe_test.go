package dom

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

func TestGetStateDescription(t *testing.T) {
	a := NewAnalyzer(newSearchProber(), nil)

	desc, err := a.GetStateDescription(context.Background())
	require.NoError(t, err)

	for _, want := range []string{
		"Page: Search Demo\n",
		"URL: https://example.test/search\n",
		"Description: Find things fast\n",
		"# Find\n",
		"    ### Results\n",
		"Form 1 #search (POST /s)\n",
		"  - [0] Query (text) *required\n",
		"  - [1] Exact match (checkbox)\n",
		"- Prices: 2 rows, columns: Item | Cost\n",
		"Interactive elements (6):\n",
		`[0] text "Query" *required` + "\n",
		`[1] checkbox "Exact match" (unchecked)` + "\n",
		`[2] button "Search"` + "\n",
		`[3] link "Help" href=/help` + "\n",
	} {
		assert.Contains(t, desc, want)
	}
	assert.NotContains(t, desc, "ERRORS ON PAGE")
	assert.NotContains(t, desc, "Hidden")

	// A fresh analysis backs every description.
	_, err = a.GetStateDescription(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.Generation())
}

func TestDescribe_ErrorsComeFirst(t *testing.T) {
	pc := &schemas.PageContext{
		Title: "Checkout",
		URL:   "https://shop.test/pay",
		Errors: []schemas.ErrorInfo{
			{Message: "Card declined", Source: schemas.ErrorSourceAlert},
			{Message: "Zip: too short", Source: schemas.ErrorSourceValidation, ElementIndex: schemas.IntPtr(2)},
		},
		Headings: []schemas.Heading{{Level: 1, Text: "Pay"}},
		Elements: []schemas.InteractiveElement{
			{Index: 0, Type: "text", Label: "Zip", Value: "12", Enabled: false},
		},
	}

	desc := Describe(pc)
	errPos := strings.Index(desc, "ERRORS ON PAGE (2):")
	headPos := strings.Index(desc, "Headings:")
	require.NotEqual(t, -1, errPos)
	assert.Less(t, errPos, headPos)
	assert.Contains(t, desc, "- Card declined\n")
	assert.Contains(t, desc, "- [2] Zip: too short\n")
	assert.Contains(t, desc, `[0] text "Zip" value="12" (disabled)`)
}

func TestDescribe_Caps(t *testing.T) {
	pc := &schemas.PageContext{}
	for i := 0; i < MaxDescribedElements+2; i++ {
		pc.Elements = append(pc.Elements, schemas.InteractiveElement{
			Index: i, Type: "button", Label: fmt.Sprintf("b%d", i), Enabled: true,
		})
	}
	desc := Describe(pc)
	assert.Equal(t, 50, MaxDescribedElements)
	assert.Contains(t, desc, "... and 2 more elements")
	assert.Contains(t, desc, fmt.Sprintf(`"b%d"`, MaxDescribedElements-1))
	assert.NotContains(t, desc, fmt.Sprintf(`"b%d"`, MaxDescribedElements))
	assert.Contains(t, desc, "Page: (none)")
}

func TestDescribe_HeadingCapKeepsAllErrors(t *testing.T) {
	pc := &schemas.PageContext{Title: "Docs"}
	for i := 0; i < 25; i++ {
		pc.Headings = append(pc.Headings, schemas.Heading{Level: 2, Text: fmt.Sprintf("Section %d", i)})
	}
	for i := 0; i < 30; i++ {
		pc.Errors = append(pc.Errors, schemas.ErrorInfo{Message: fmt.Sprintf("problem %d", i)})
	}

	desc := Describe(pc)
	assert.Equal(t, 10, MaxDescribedHeadings)
	assert.Contains(t, desc, "## Section 9\n")
	assert.NotContains(t, desc, "Section 10")
	assert.Contains(t, desc, "... and 15 more headings")
	assert.Contains(t, desc, "ERRORS ON PAGE (30):")
	for i := 0; i < 30; i++ {
		assert.Contains(t, desc, fmt.Sprintf("- problem %d\n", i))
	}
}

func TestDescribe_Empty(t *testing.T) {
	assert.Equal(t, "No page loaded.", Describe(nil))
	assert.Contains(t, Describe(&schemas.PageContext{}), "(none)\n")
}
