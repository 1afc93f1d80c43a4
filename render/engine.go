// Package render expands template directives embedded in shape text:
//
//	{% for item in items %}    repeat the shape for every element
//	{% showif expr %}          keep the shape only when expr is truthy
//	{% set self.x = expr %}    assign shape position
//	{{ expr }}                 substitute value in any text or attribute
//
// Page name may carry "{% showif expr %}" deciding whether the page stays in
// the document.
package render

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"vtpl/vsdx"
)

// DefaultFalsyLiterals are rendered page showif values which hide the page.
var DefaultFalsyLiterals = []string{"False", "0", "", "()", "[]", "{}"}

// Engine renders documents. It keeps no per document state and could be
// reused.
type Engine struct {
	log     *zap.Logger
	spacing bool
	falsy   []string
}

type Option func(*Engine)

// WithSpacing controls whether loop produced shapes are moved down so they
// do not overlap.
func WithSpacing(enable bool) Option {
	return func(e *Engine) {
		e.spacing = enable
	}
}

// WithFalsyLiterals replaces list of page showif values hiding the page.
func WithFalsyLiterals(list []string) Option {
	return func(e *Engine) {
		if list != nil {
			e.falsy = slices.Clone(list)
		}
	}
}

func New(log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		log:     log.Named("render"),
		spacing: true,
		falsy:   DefaultFalsyLiterals,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Summary describes results of document rendering.
type Summary struct {
	Rendered   []string
	Hidden     []string
	Failed     []string
	Duplicates int
}

// pageRenderer holds state of a single page pass.
type pageRenderer struct {
	log     *zap.Logger
	page    *vsdx.Page
	base    scope
	state   State
	loopIDs []string
	copies  []*loopCopies
	dups    int
}

// RenderDocument renders every page. Failure of one page does not stop the
// others, failed page is left as it was and all errors are returned
// combined.
func (e *Engine) RenderDocument(doc *vsdx.Document, data map[string]any) (*Summary, error) {
	var (
		sum  = &Summary{}
		errs error
	)
	for _, p := range doc.Pages() {
		name := p.Name()
		r, err := e.renderPage(p, data)
		if err != nil {
			sum.Failed = append(sum.Failed, name)
			errs = multierr.Append(errs, err)
			continue
		}
		if r.state == StateHidden {
			sum.Hidden = append(sum.Hidden, name)
			continue
		}
		sum.Rendered = append(sum.Rendered, p.Name())
		sum.Duplicates += r.dups
	}
	if len(doc.Pages()) == 0 {
		e.log.Warn("Every page was hidden, document has no pages left")
	}
	e.log.Debug("Document rendered",
		zap.Strings("rendered", sum.Rendered), zap.Strings("hidden", sum.Hidden),
		zap.Strings("failed", sum.Failed), zap.Int("duplicates", sum.Duplicates))
	return sum, errs
}

// RenderPage renders single page and returns the state it ended in: done or
// hidden. Hidden page is removed from the document. On error page contents
// are restored.
func (e *Engine) RenderPage(p *vsdx.Page, data map[string]any) (State, error) {
	r, err := e.renderPage(p, data)
	if r == nil {
		return StateUnprocessed, err
	}
	return r.state, err
}

func (e *Engine) renderPage(p *vsdx.Page, data map[string]any) (*pageRenderer, error) {
	r := &pageRenderer{
		log:   e.log.With(zap.String("page", p.Name())),
		page:  p,
		base:  newScope(data),
		state: StateUnprocessed,
	}

	visible, name, err := e.pageVisible(p, r.base)
	if err != nil {
		return r, pageError(p, err)
	}
	if !visible {
		if err := p.Document().RemovePage(p); err != nil {
			return r, fmt.Errorf("unable to remove hidden page %q: %w", p.Name(), err)
		}
		r.state = StateHidden
		r.log.Debug("Page hidden")
		return r, nil
	}

	if !hasTemplate(p.Root()) {
		r.rename(name)
		r.state = StateDone
		return r, nil
	}

	// name keeps its directives until contents are rendered, failed page is
	// left as it was
	snap := p.Snapshot()
	if err := r.run(e.spacing); err != nil {
		p.Restore(snap)
		r.log.Debug("Page restored after failure", zap.Stringer("state", r.state), zap.Error(err))
		return r, pageError(p, err)
	}
	r.rename(name)
	r.log.Debug("Page rendered", zap.Strings("loops", r.loopIDs), zap.Int("duplicates", r.dups))
	return r, nil
}

func pageError(p *vsdx.Page, err error) error {
	var ve *vsdx.Error
	if errors.As(err, &ve) {
		if ve.Page == "" {
			ve.Page = p.Name()
		}
		return err
	}
	return fmt.Errorf("page %q: %w", p.Name(), err)
}

// hasTemplate reports whether page contents have anything to render.
func hasTemplate(e *etree.Element) bool {
	if e == nil {
		return false
	}
	marked := func(s string) bool {
		return strings.Contains(s, "{{") || strings.Contains(s, "{%")
	}
	for _, a := range e.Attr {
		if marked(a.Value) {
			return true
		}
	}
	for _, t := range e.Child {
		switch v := t.(type) {
		case *etree.CharData:
			if marked(v.Data) {
				return true
			}
		case *etree.Element:
			if hasTemplate(v) {
				return true
			}
		}
	}
	return false
}

// pageVisible evaluates the last showif of page name. For visible page it
// also returns the name without directives.
func (e *Engine) pageVisible(p *vsdx.Page, sc scope) (bool, string, error) {
	name := p.Name()
	matches := reShowIf.FindAllStringSubmatch(name, -1)
	if len(matches) == 0 {
		return true, name, nil
	}
	last := matches[len(matches)-1]
	v, err := evaluate(last[1], sc)
	if err != nil {
		return false, "", &vsdx.Error{Kind: vsdx.KindTemplateSyntax, Directive: last[0], Err: err}
	}
	if value := display(v); slices.Contains(e.falsy, value) {
		e.log.Debug("Page showif is falsy", zap.String("page", name), zap.String("directive", last[0]), zap.String("value", value))
		return false, "", nil
	}
	return true, strings.TrimSpace(reShowIf.ReplaceAllString(name, "")), nil
}

func (r *pageRenderer) rename(name string) {
	if name != r.page.Name() {
		r.page.SetName(name)
	}
}

func (r *pageRenderer) run(spacing bool) error {
	type container struct {
		elem  *etree.Element
		nodes []Node
	}

	root := r.page.Root()
	var containers []container
	for _, c := range root.SelectElements("Shapes") {
		cont := container{elem: c}
		for _, e := range c.SelectElements("Shape") {
			s := r.page.ShapeOf(e)
			if s == nil {
				continue
			}
			n, err := r.hoist(s)
			if err != nil {
				return err
			}
			cont.nodes = append(cont.nodes, n)
		}
		containers = append(containers, cont)
	}
	r.state = StateHoisted

	for _, c := range containers {
		removeShapes(c.elem)
		detach(c.nodes)
	}
	if err := interpolateElement(root, r.base); err != nil {
		return err
	}
	for _, c := range containers {
		for _, n := range c.nodes {
			out, err := n.expand(r, r.base)
			if err != nil {
				return err
			}
			for _, e := range out {
				c.elem.AddChild(e)
			}
		}
	}
	r.page.Update()
	r.state = StateRendered

	if err := r.reindex(); err != nil {
		return err
	}
	r.state = StateRemapped

	if spacing {
		r.space()
		r.state = StateSpaced
	}
	r.state = StateDone
	return nil
}
