package dom

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// Analyzer turns the live page into a PageContext and keeps the handle arena
// of the latest snapshot so that element indices can be resolved later.
type Analyzer struct {
	prober Prober
	logger *zap.Logger
	arena  arena

	mu   sync.RWMutex
	last *schemas.PageContext
}

// NewAnalyzer creates an analyzer reading pages through prober.
func NewAnalyzer(prober Prober, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		prober: prober,
		logger: logger.Named("dom_analyzer"),
	}
}

// Analyze snapshots the page. Every call starts a new generation: handles
// from earlier snapshots stop resolving once it completes, and a failed
// snapshot leaves no handles at all.
func (a *Analyzer) Analyze(ctx context.Context) (*schemas.PageContext, error) {
	gen := a.arena.next()
	raw, err := a.prober.Probe(ctx, ProbeRequest{
		Generation: gen,
		Selectors:  strings.Join(InteractiveSelectors, ", "),
		Attr:       HandleAttr,
	})
	if err != nil {
		a.arena.replace(gen, nil)
		return nil, fmt.Errorf("failed to probe page: %w", err)
	}

	pc, handles, err := Build(raw)
	if err != nil {
		a.arena.replace(gen, nil)
		return nil, err
	}

	if !a.arena.replace(gen, handles) {
		a.logger.Debug("Discarding superseded snapshot.", zap.Int64("generation", gen))
		return pc, nil
	}
	a.mu.Lock()
	a.last = pc
	a.mu.Unlock()

	a.logger.Debug("Page analyzed.",
		zap.String("url", pc.URL),
		zap.Int64("generation", gen),
		zap.Int("elements", len(pc.Elements)),
		zap.Int("errors", len(pc.Errors)))
	return pc, nil
}

// GetElement returns the handle behind elements[index] of the latest
// snapshot.
func (a *Analyzer) GetElement(index int) (Handle, bool) {
	return a.arena.get(index)
}

// Generation reports the generation of the latest snapshot request.
func (a *Analyzer) Generation() int64 {
	return a.arena.current()
}

// Last returns the most recent PageContext, or nil before the first analysis.
func (a *Analyzer) Last() *schemas.PageContext {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// GetStateDescription runs a fresh analysis and renders it as text.
func (a *Analyzer) GetStateDescription(ctx context.Context) (string, error) {
	pc, err := a.Analyze(ctx)
	if err != nil {
		return "", err
	}
	return Describe(pc), nil
}

// Build derives a PageContext and its handles from a raw snapshot. It is
// pure; the generation is taken from the stamp tokens.
func Build(raw *RawSnapshot) (*schemas.PageContext, []Handle, error) {
	if raw == nil {
		return nil, nil, ErrNoSnapshot
	}
	doc, err := parseDocument(raw.HTML)
	if err != nil {
		return nil, nil, err
	}

	pc := &schemas.PageContext{
		URL:         raw.URL,
		Title:       strings.TrimSpace(raw.Title),
		Description: doc.metaDescription(),
		Elements:    []schemas.InteractiveElement{},
		Links:       []schemas.LinkInfo{},
		Headings:    []schemas.Heading{},
		Forms:       []schemas.FormInfo{},
		Tables:      []schemas.TableInfo{},
		Errors:      []schemas.ErrorInfo{},
	}
	if pc.Title == "" {
		if t := doc.findFirst("title"); t != nil {
			pc.Title = textContent(t)
		}
	}

	live := make(map[string]LiveElement, len(raw.Elements))
	labels := make(map[string]string, len(raw.Elements))
	indexByNode := make(map[*html.Node]int)
	var handles []Handle

	for _, le := range raw.Elements {
		n := doc.byToken[le.Token]
		if n == nil {
			continue
		}
		live[le.Token] = le
		label := doc.elementLabel(n, le)
		labels[le.Token] = label
		if !le.Visible() {
			continue
		}

		el := schemas.InteractiveElement{
			Index:       len(pc.Elements),
			Tag:         tagName(n),
			Type:        semanticType(n),
			Role:        inferRole(n),
			Label:       label,
			Placeholder: attr(n, "placeholder"),
			Name:        attr(n, "name"),
			ID:          attr(n, "id"),
			Class:       collapseSpace(attr(n, "class")),
			Href:        attr(n, "href"),
			Required:    isRequired(n),
			Visible:     true,
			Enabled:     !le.Disabled,
			Rect:        le.Rect,
			Path:        positionalPath(n),
			Selector:    doc.uniqueSelector(n),
		}
		if !isSecret(n) {
			el.Value = le.Value
		}
		if isCheckable(n) {
			checked := le.Checked
			el.Checked = &checked
		}

		indexByNode[n] = el.Index
		pc.Elements = append(pc.Elements, el)
		handles = append(handles, Handle{
			Token:      le.Token,
			Generation: generationOf(le.Token),
			Index:      el.Index,
			Tag:        el.Tag,
			Type:       el.Type,
			Label:      el.Label,
		})
	}

	idx := func(n *html.Node) int {
		if i, ok := indexByNode[n]; ok {
			return i
		}
		return -1
	}

	pc.Links = links(pc.Elements)
	pc.Headings = append(pc.Headings, doc.headings()...)
	pc.Forms = append(pc.Forms, doc.forms(idx)...)
	pc.Tables = append(pc.Tables, doc.tables()...)
	pc.Errors = append(pc.Errors, doc.collectErrors(raw, live, idx, labels)...)
	return pc, handles, nil
}

func generationOf(token string) int64 {
	var gen int64
	var n int
	if _, err := fmt.Sscanf(token, "%d-%d", &gen, &n); err != nil {
		return 0
	}
	return gen
}
