// internal/browser/session.go
package browser

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/dom"
	"github.com/xkilldash9x/pagepilot/internal/executor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed scripts/probe.js
var probeScript string

//go:embed scripts/ops.js
var opsScript string

const defaultActionTimeout = 15 * time.Second

// Page is one browser tab. It is the live page behind the analyzer (as a
// dom.Prober) and the executor (as an executor.Driver).
type Page struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.BrowserConfig
	logger *zap.Logger

	onClose   func(id string)
	closeOnce sync.Once
}

var (
	_ dom.Prober      = (*Page)(nil)
	_ executor.Driver = (*Page)(nil)
)

// ID returns the page identifier.
func (p *Page) ID() string { return p.id }

// Close closes the tab.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		if p.onClose != nil {
			p.onClose(p.id)
		}
	})
}

// RunActions runs chromedp actions against the tab, bounded by ctx.
func (p *Page) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (p *Page) actionTimeout() time.Duration {
	if p.cfg.ActionTimeout > 0 {
		return p.cfg.ActionTimeout
	}
	return defaultActionTimeout
}

// evaluate runs a script and decodes its JSON result into out.
func (p *Page) evaluate(ctx context.Context, expr string, out interface{}) error {
	opCtx, cancel := context.WithTimeout(ctx, p.actionTimeout())
	defer cancel()

	var raw []byte
	err := p.RunActions(opCtx, chromedp.Evaluate(expr, &raw, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithReturnByValue(true).WithAwaitPromise(true)
	}))
	if err != nil {
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("script timed out after %v: %w", p.actionTimeout(), opCtx.Err())
		}
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

// jsonEncode renders v as a JavaScript literal.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// -- Navigation --

// Navigate loads url and waits for the body to be ready.
func (p *Page) Navigate(ctx context.Context, url string) error {
	timeout := p.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p.logger.Debug("Navigating.", zap.String("url", url))
	if err := p.RunActions(opCtx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Back goes one entry back in history.
func (p *Page) Back(ctx context.Context) error {
	return p.history(ctx, "back", chromedp.NavigateBack())
}

// Forward goes one entry forward in history.
func (p *Page) Forward(ctx context.Context) error {
	return p.history(ctx, "forward", chromedp.NavigateForward())
}

// Reload reloads the current document.
func (p *Page) Reload(ctx context.Context) error {
	return p.history(ctx, "reload", chromedp.Reload())
}

func (p *Page) history(ctx context.Context, name string, action chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(ctx, p.actionTimeout())
	defer cancel()
	if err := p.RunActions(opCtx, action); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// Location returns the current URL.
func (p *Page) Location(ctx context.Context) (string, error) {
	var url string
	if err := p.RunActions(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

// -- Snapshot --

// Probe stamps candidate elements and collects the raw snapshot.
func (p *Page) Probe(ctx context.Context, req dom.ProbeRequest) (*dom.RawSnapshot, error) {
	expr := fmt.Sprintf("(%s)(%d, %s, %s)", probeScript, req.Generation, jsonEncode(req.Selectors), jsonEncode(req.Attr))

	var raw dom.RawSnapshot
	if err := p.evaluate(ctx, expr, &raw); err != nil {
		return nil, fmt.Errorf("page probe failed: %w", err)
	}
	p.logger.Debug("Page probed.",
		zap.Int64("generation", req.Generation),
		zap.Int("candidates", len(raw.Elements)),
		zap.Int("html_bytes", len(raw.HTML)))
	return &raw, nil
}
