package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"vtpl/vsdx"
)

// Node is a piece of page template. Expanding it produces zero or more
// Shape elements for the container it lives in.
type Node interface {
	expand(r *pageRenderer, sc scope) ([]*etree.Element, error)
}

// ShapeNode is a shape used as template. Nested shapes are separate nodes,
// they are detached from Elem before expansion.
type ShapeNode struct {
	Elem     *etree.Element
	ID       string
	Children []Node
}

// LoopBlock produces Body once per element of Iterable.
type LoopBlock struct {
	Directive string
	ShapeID   string
	Targets   []string
	Iterable  string
	Body      Node
}

// ConditionalBlock produces Body when Cond is truthy.
type ConditionalBlock struct {
	Directive string
	ShapeID   string
	Cond      string
	Body      Node
}

// loopCopies remembers what every iteration of a single loop expansion
// produced.
type loopCopies struct {
	iterations [][]*etree.Element
}

// duplicates returns iterations following the first one which produced any
// shapes. Iterations filtered out by showif do not count as the original.
func (lc *loopCopies) duplicates() [][]*etree.Element {
	for i, produced := range lc.iterations {
		if len(produced) > 0 {
			return lc.iterations[i+1:]
		}
	}
	return nil
}

// templateError attaches location to err making it a template syntax error
// unless it already is a located package error.
func templateError(shapeID, directive string, err error) error {
	var ve *vsdx.Error
	if errors.As(err, &ve) {
		if ve.ShapeID == "" {
			ve.ShapeID = shapeID
		}
		if ve.Directive == "" {
			ve.Directive = directive
		}
		return err
	}
	return &vsdx.Error{Kind: vsdx.KindTemplateSyntax, ShapeID: shapeID, Directive: directive, Err: err}
}

// hoist turns shape directives into blocks around the shape node. Shape
// text loses directives, "set self" is applied right away.
func (r *pageRenderer) hoist(s *vsdx.Shape) (Node, error) {
	var d *directives
	if s.HasText() {
		var err error
		if d, err = parseDirectives(s.Text()); err != nil {
			return nil, templateError(s.ID(), "", err)
		}
		for _, set := range d.sets {
			if err := r.applySet(s, set); err != nil {
				return nil, templateError(s.ID(), set.text, err)
			}
		}
		if !d.empty() {
			stripText(s, d)
		}
		if len(d.loops) > 0 {
			r.loopIDs = append(r.loopIDs, s.ID())
		}
	}

	node := &ShapeNode{Elem: s.Element(), ID: s.ID()}
	for _, c := range s.ChildShapes() {
		n, err := r.hoist(c)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, n)
	}
	if d == nil {
		return node, nil
	}

	var out Node = node
	for i := len(d.conds) - 1; i >= 0; i-- {
		out = &ConditionalBlock{Directive: d.conds[i].text, ShapeID: s.ID(), Cond: d.conds[i].expr, Body: out}
	}
	for i := len(d.loops) - 1; i >= 0; i-- {
		l := d.loops[i]
		out = &LoopBlock{Directive: l.text, ShapeID: s.ID(), Targets: l.targets, Iterable: l.iterable, Body: out}
	}
	return out, nil
}

// stripText removes directives from shape text keeping formatting markers
// when every directive sits inside a single text run.
func stripText(s *vsdx.Shape, d *directives) {
	t := s.Element().SelectElement("Text")
	if t == nil {
		return
	}
	var runs []*etree.CharData
	collectRuns(t, &runs)
next:
	for _, text := range d.removed() {
		for _, cd := range runs {
			if strings.Contains(cd.Data, text) {
				cd.Data = strings.Replace(cd.Data, text, "", 1)
				continue next
			}
		}
	}
	if s.Text() != d.text {
		s.SetText(d.text)
	}
}

func collectRuns(e *etree.Element, runs *[]*etree.CharData) {
	for _, t := range e.Child {
		switch v := t.(type) {
		case *etree.CharData:
			*runs = append(*runs, v)
		case *etree.Element:
			collectRuns(v, runs)
		}
	}
}

// detach removes nested shapes from template elements, child nodes produce
// them during expansion.
func detach(nodes []Node) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *ShapeNode:
			for _, shapes := range v.Elem.SelectElements("Shapes") {
				removeShapes(shapes)
			}
			detach(v.Children)
		case *LoopBlock:
			detach([]Node{v.Body})
		case *ConditionalBlock:
			detach([]Node{v.Body})
		}
	}
}

func removeShapes(container *etree.Element) {
	for _, s := range container.SelectElements("Shape") {
		container.RemoveChild(s)
	}
}

// interpolateElement renders "{{ }}" in attribute values and character data
// of the element subtree.
func interpolateElement(e *etree.Element, sc scope) error {
	for i := range e.Attr {
		v, err := interpolate(e.Attr[i].Value, sc)
		if err != nil {
			return err
		}
		e.Attr[i].Value = v
	}
	for _, t := range e.Child {
		switch v := t.(type) {
		case *etree.CharData:
			s, err := interpolate(v.Data, sc)
			if err != nil {
				return err
			}
			v.Data = s
		case *etree.Element:
			if err := interpolateElement(v, sc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (n *ShapeNode) expand(r *pageRenderer, sc scope) ([]*etree.Element, error) {
	e := n.Elem.Copy()
	if err := interpolateElement(e, sc); err != nil {
		return nil, templateError(n.ID, "", err)
	}
	if len(n.Children) == 0 {
		return []*etree.Element{e}, nil
	}
	shapes := e.SelectElement("Shapes")
	if shapes == nil {
		return nil, &vsdx.Error{Kind: vsdx.KindConfiguration, ShapeID: n.ID, Err: vsdx.ErrGroupWithoutShapes}
	}
	for _, c := range n.Children {
		out, err := c.expand(r, sc)
		if err != nil {
			return nil, err
		}
		for _, s := range out {
			shapes.AddChild(s)
		}
	}
	return []*etree.Element{e}, nil
}

func loopInfo(i, n int) map[string]any {
	return map[string]any{
		"index":     i + 1,
		"index0":    i,
		"revindex":  n - i,
		"revindex0": n - i - 1,
		"first":     i == 0,
		"last":      i == n-1,
		"length":    n,
	}
}

func (b *LoopBlock) bind(item any) (map[string]any, error) {
	vars := make(map[string]any, len(b.Targets)+1)
	if len(b.Targets) == 1 {
		vars[b.Targets[0]] = item
		return vars, nil
	}
	values, err := iterate(item)
	if err != nil {
		return nil, err
	}
	if len(values) != len(b.Targets) {
		return nil, fmt.Errorf("cannot unpack %d values into %d names", len(values), len(b.Targets))
	}
	for i, t := range b.Targets {
		vars[t] = values[i]
	}
	return vars, nil
}

func (b *LoopBlock) expand(r *pageRenderer, sc scope) ([]*etree.Element, error) {
	v, err := evaluate(b.Iterable, sc)
	if err != nil {
		return nil, templateError(b.ShapeID, b.Directive, err)
	}
	list, err := iterate(v)
	if err != nil {
		return nil, templateError(b.ShapeID, b.Directive, err)
	}

	rec := &loopCopies{}
	r.copies = append(r.copies, rec)

	var out []*etree.Element
	for i, item := range list {
		vars, err := b.bind(item)
		if err != nil {
			return nil, templateError(b.ShapeID, b.Directive, err)
		}
		vars["loop"] = loopInfo(i, len(list))
		produced, err := b.Body.expand(r, sc.with(vars))
		if err != nil {
			return nil, err
		}
		rec.iterations = append(rec.iterations, produced)
		out = append(out, produced...)
	}
	return out, nil
}

func (b *ConditionalBlock) expand(r *pageRenderer, sc scope) ([]*etree.Element, error) {
	v, err := evaluate(b.Cond, sc)
	if err != nil {
		return nil, templateError(b.ShapeID, b.Directive, err)
	}
	if !truthy(v) {
		return nil, nil
	}
	return b.Body.expand(r, sc)
}
