package executor

import (
	"context"

	"github.com/xkilldash9x/pagepilot/internal/dom"
)

// Option is one entry of a <select> element.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

// ElementState is the live state of an element at the moment an action
// is about to touch it.
type ElementState struct {
	Tag             string   `json:"tag"`
	InputType       string   `json:"inputType"`
	Role            string   `json:"role"`
	ContentEditable bool     `json:"contentEditable"`
	HasHref         bool     `json:"hasHref"`
	Checked         bool     `json:"checked"`
	Disabled        bool     `json:"disabled"`
	Multiple        bool     `json:"multiple"`
	Value           string   `json:"value"`
	Options         []Option `json:"options"`
}

// Driver is the set of page primitives the executor is built on. Element
// methods return dom.ErrStaleHandle (possibly wrapped) when the handle no
// longer resolves.
type Driver interface {
	Inspect(ctx context.Context, h dom.Handle) (*ElementState, error)
	// Click scrolls the element into view, focuses it and triggers native
	// activation. With synthetic set, pointer and mouse presses are
	// dispatched before the activation for elements without native semantics.
	Click(ctx context.Context, h dom.Handle, synthetic bool) error
	// SetChecked assigns checked and fires change and input once each.
	SetChecked(ctx context.Context, h dom.Handle, checked bool) error
	// SetValue assigns the value directly and fires input and change.
	SetValue(ctx context.Context, h dom.Handle, value string) error
	// TypeText focuses the element, assigns the full text in one operation
	// (replacing the value when clear is set, appending otherwise), fires
	// input and change, then a single keydown/keyup pair.
	TypeText(ctx context.Context, h dom.Handle, text string, clear bool) error
	SelectOption(ctx context.Context, h dom.Handle, optionIndex int) error
	Hover(ctx context.Context, h dom.Handle) error
	Focus(ctx context.Context, h dom.Handle) error
	ScrollBy(ctx context.Context, dx, dy int) error
	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Reload(ctx context.Context) error
}

// ElementResolver maps indices of the latest snapshot to handles.
type ElementResolver interface {
	GetElement(index int) (dom.Handle, bool)
}
