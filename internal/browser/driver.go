package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/input"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/pagepilot/internal/dom"
	"github.com/xkilldash9x/pagepilot/internal/executor"
)

type opResult struct {
	OK    bool                `json:"ok"`
	Stale bool                `json:"stale"`
	Error string              `json:"error"`
	Data  jsoniter.RawMessage `json:"data"`
}

// elementOp runs one operation of the ops script against the element
// behind h and decodes its data into out.
func (p *Page) elementOp(ctx context.Context, h dom.Handle, op string, args map[string]interface{}, out interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	expr := fmt.Sprintf("(%s)(%s, %s, %s)", opsScript, jsonEncode(h.Selector()), jsonEncode(op), jsonEncode(args))

	var res opResult
	if err := p.evaluate(ctx, expr, &res); err != nil {
		return fmt.Errorf("%s on element [%d]: %w", op, h.Index, err)
	}
	if res.Stale {
		return fmt.Errorf("%s on element [%d]: %w", op, h.Index, dom.ErrStaleHandle)
	}
	if !res.OK {
		return fmt.Errorf("%s on element [%d]: %s", op, h.Index, res.Error)
	}
	if out != nil && len(res.Data) > 0 {
		if err := json.Unmarshal(res.Data, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", op, err)
		}
	}
	return nil
}

// Inspect reads the live state of the element.
func (p *Page) Inspect(ctx context.Context, h dom.Handle) (*executor.ElementState, error) {
	var st executor.ElementState
	if err := p.elementOp(ctx, h, "inspect", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Click activates the element.
func (p *Page) Click(ctx context.Context, h dom.Handle, synthetic bool) error {
	return p.elementOp(ctx, h, "click", map[string]interface{}{"synthetic": synthetic}, nil)
}

// SetChecked sets a checkbox or radio button.
func (p *Page) SetChecked(ctx context.Context, h dom.Handle, checked bool) error {
	return p.elementOp(ctx, h, "setChecked", map[string]interface{}{"checked": checked}, nil)
}

// SetValue assigns a value through the native setter so framework bindings see it.
func (p *Page) SetValue(ctx context.Context, h dom.Handle, value string) error {
	return p.elementOp(ctx, h, "setValue", map[string]interface{}{"value": value}, nil)
}

// TypeText assigns or appends the whole text in one operation, then fires
// input, change and a trailing keydown/keyup pair.
func (p *Page) TypeText(ctx context.Context, h dom.Handle, text string, clear bool) error {
	return p.elementOp(ctx, h, "typeText", map[string]interface{}{"text": text, "clear": clear}, nil)
}

// SelectOption selects the option at optionIndex.
func (p *Page) SelectOption(ctx context.Context, h dom.Handle, optionIndex int) error {
	return p.elementOp(ctx, h, "selectIndex", map[string]interface{}{"index": optionIndex}, nil)
}

// Hover moves the mouse pointer over the element's center, so CSS :hover
// and pointer listeners both react.
func (p *Page) Hover(ctx context.Context, h dom.Handle) error {
	var center struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := p.elementOp(ctx, h, "center", nil, &center); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, p.actionTimeout())
	defer cancel()
	if err := p.RunActions(opCtx, input.DispatchMouseEvent(input.MouseMoved, center.X, center.Y)); err != nil {
		return fmt.Errorf("hover over element [%d]: %w", h.Index, err)
	}
	return nil
}

// Focus focuses the element.
func (p *Page) Focus(ctx context.Context, h dom.Handle) error {
	return p.elementOp(ctx, h, "focus", nil, nil)
}

// ScrollBy scrolls the window.
func (p *Page) ScrollBy(ctx context.Context, dx, dy int) error {
	return p.evaluate(ctx, fmt.Sprintf("window.scrollBy(%d, %d), true", dx, dy), nil)
}
