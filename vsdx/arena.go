package vsdx

import "github.com/beevik/etree"

// shapeRecord is a single shape of page arena. Records are stored in
// pre-order, so subtree of record i occupies [i+1, end).
type shapeRecord struct {
	elem     *etree.Element
	parent   int
	children []int
	end      int
}

// arena is flat index of page shapes. Any structural change of the page XML
// makes it stale, it is rebuilt on next access.
type arena struct {
	records []shapeRecord
	index   map[*etree.Element]int
	top     []int
	built   bool
}

func (a *arena) build(root *etree.Element) {
	a.records = a.records[:0]
	a.top = a.top[:0]
	a.index = make(map[*etree.Element]int)

	var add func(e *etree.Element, parent int) int
	add = func(e *etree.Element, parent int) int {
		i := len(a.records)
		a.records = append(a.records, shapeRecord{elem: e, parent: parent})
		a.index[e] = i
		for _, c := range e.ChildElements() {
			if c.Tag != "Shapes" {
				continue
			}
			for _, s := range c.ChildElements() {
				if s.Tag == "Shape" {
					child := add(s, i)
					a.records[i].children = append(a.records[i].children, child)
				}
			}
		}
		a.records[i].end = len(a.records)
		return i
	}

	if root != nil {
		for _, shapes := range root.ChildElements() {
			if shapes.Tag != "Shapes" {
				continue
			}
			for _, s := range shapes.ChildElements() {
				if s.Tag == "Shape" {
					a.top = append(a.top, add(s, -1))
				}
			}
		}
	}
	a.built = true
}

// shapeArena returns up to date arena.
func (p *Page) shapeArena() *arena {
	if !p.arena.built {
		p.arena.build(p.root())
	}
	return &p.arena
}

// Invalidate must be called after structural changes made to page XML
// directly (adding, removing or re-parenting Shape elements).
func (p *Page) Invalidate() {
	p.arena.built = false
}

// lookup returns arena index of element, rebuilding arena once if element is
// not known.
func (p *Page) lookup(e *etree.Element) (int, bool) {
	a := p.shapeArena()
	if i, ok := a.index[e]; ok {
		return i, true
	}
	p.Invalidate()
	a = p.shapeArena()
	i, ok := a.index[e]
	return i, ok
}

// ShapeOf wraps Shape element of the page, nil if element is not one.
func (p *Page) ShapeOf(e *etree.Element) *Shape {
	if _, ok := p.lookup(e); !ok {
		return nil
	}
	return &Shape{elem: e, page: p}
}

func (p *Page) wrap(indexes []int) []*Shape {
	a := p.shapeArena()
	out := make([]*Shape, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, &Shape{elem: a.records[i].elem, page: p})
	}
	return out
}

// collect returns shapes of arena range [from, to) matching predicate.
func (p *Page) collect(from, to int, first bool, match func(*Shape) bool) []*Shape {
	a := p.shapeArena()
	var out []*Shape
	for i := from; i < to; i++ {
		s := &Shape{elem: a.records[i].elem, page: p}
		if match(s) {
			out = append(out, s)
			if first {
				break
			}
		}
	}
	return out
}
