package vsdx

import (
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Geometry is effective first geometry section of a shape: master rows
// overlaid by local rows cell by cell, rows with Del="1" suppressed.
type Geometry struct {
	shape   *Shape
	section *etree.Element // local section, nil when all rows are inherited
	base    *Geometry
	rows    []*GeometryRow
}

// GeometryRow is single row of geometry section (MoveTo, LineTo, ...).
type GeometryRow struct {
	g         *Geometry
	ix        string
	elem      *etree.Element // local row, may be nil
	inherited *GeometryRow
}

func (s *Shape) geometrySection() *etree.Element {
	for _, c := range s.elem.ChildElements() {
		if c.Tag == "Section" && c.SelectAttrValue("N", "") == "Geometry" {
			return c
		}
	}
	return nil
}

// Geometry returns effective geometry or nil if neither shape nor its masters
// have one.
func (s *Shape) Geometry() *Geometry {
	chain := s.masterChain()
	var g *Geometry
	for i := len(chain) - 1; i >= 0; i-- {
		g = newGeometry(chain[i], g)
	}
	if g.section == nil && g.base == nil {
		return nil
	}
	return g
}

func newGeometry(s *Shape, base *Geometry) *Geometry {
	g := &Geometry{shape: s, section: s.geometrySection()}
	if base != nil && (base.section != nil || base.base != nil) {
		g.base = base
	}
	byIX := make(map[string]*GeometryRow)
	if g.base != nil {
		for _, r := range g.base.rows {
			nr := &GeometryRow{g: g, ix: r.ix, inherited: r}
			g.rows = append(g.rows, nr)
			byIX[r.ix] = nr
		}
	}
	if g.section != nil {
		for _, e := range g.section.ChildElements() {
			if e.Tag != "Row" {
				continue
			}
			ix := e.SelectAttrValue("IX", "")
			if e.SelectAttrValue("Del", "") == "1" {
				g.rows = slices.DeleteFunc(g.rows, func(r *GeometryRow) bool { return r.ix == ix })
				delete(byIX, ix)
				continue
			}
			if r, ok := byIX[ix]; ok {
				r.elem = e
				continue
			}
			r := &GeometryRow{g: g, ix: ix, elem: e}
			g.rows = append(g.rows, r)
			byIX[ix] = r
		}
	}
	slices.SortStableFunc(g.rows, func(a, b *GeometryRow) int { return compareIX(a.ix, b.ix) })
	return g
}

func compareIX(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na - nb
	}
	return strings.Compare(a, b)
}

// Rows returns effective rows ordered by index.
func (g *Geometry) Rows() []*GeometryRow {
	return g.rows
}

// Row returns row by its IX or nil.
func (g *Geometry) Row(ix string) *GeometryRow {
	for _, r := range g.rows {
		if r.ix == ix {
			return r
		}
	}
	return nil
}

// Cell returns section level cell (NoFill, NoLine, ...) falling back to
// master geometry.
func (g *Geometry) Cell(name string) *Cell {
	for cur := g; cur != nil; cur = cur.base {
		if cur.section != nil {
			if c := findCell(cur.section, name); c != nil {
				return newCell(c)
			}
		}
	}
	return nil
}

// StartPos returns position of the first MoveTo row. Relative move is
// resolved to the shape pin.
func (g *Geometry) StartPos() (float64, float64, bool) {
	for _, r := range g.rows {
		switch strings.ToLower(r.Type()) {
		case "moveto":
			x, _ := r.X()
			y, _ := r.Y()
			return x, y, true
		case "relmoveto":
			return g.shape.X(), g.shape.Y(), true
		}
	}
	return 0, 0, false
}

// SetMoveTo sets coordinates of n-th MoveTo row. Returns false if there is no
// such row.
func (g *Geometry) SetMoveTo(x, y float64, n int) bool {
	return g.setPoint("moveto", x, y, n)
}

// SetLineTo sets coordinates of n-th LineTo row.
func (g *Geometry) SetLineTo(x, y float64, n int) bool {
	return g.setPoint("lineto", x, y, n)
}

func (g *Geometry) setPoint(typ string, x, y float64, n int) bool {
	i := 0
	for _, r := range g.rows {
		if strings.ToLower(r.Type()) != typ {
			continue
		}
		if i == n {
			r.SetX(x)
			r.SetY(y)
			return true
		}
		i++
	}
	return false
}

// ensureSection creates local geometry section when shape has none.
func (g *Geometry) ensureSection() *etree.Element {
	if g.section != nil {
		return g.section
	}
	e := etree.NewElement("Section")
	e.Space = g.shape.elem.Space
	e.CreateAttr("N", "Geometry")
	e.CreateAttr("IX", "0")
	pos := -1
	for _, c := range g.shape.elem.ChildElements() {
		if c.Tag == "Text" || c.Tag == "Shapes" {
			pos = c.Index()
			break
		}
	}
	if pos < 0 {
		g.shape.elem.AddChild(e)
	} else {
		g.shape.elem.InsertChildAt(pos, e)
	}
	g.section = e
	return e
}

func (r *GeometryRow) Index() string { return r.ix }

// Type returns row type, inherited from master row when not set locally.
func (r *GeometryRow) Type() string {
	if r.elem != nil {
		if t := r.elem.SelectAttrValue("T", ""); t != "" {
			return t
		}
	}
	if r.inherited != nil {
		return r.inherited.Type()
	}
	return ""
}

// IsLocal reports whether row has local element on the shape.
func (r *GeometryRow) IsLocal() bool { return r.elem != nil }

// Cell returns local cell of the row or inherited one.
func (r *GeometryRow) Cell(name string) *Cell {
	if r.elem != nil {
		if c := findCell(r.elem, name); c != nil {
			return newCell(c)
		}
	}
	if r.inherited != nil {
		return r.inherited.Cell(name)
	}
	return nil
}

// CellNames returns names of all effective cells of the row.
func (r *GeometryRow) CellNames() []string {
	var names []string
	seen := make(map[string]bool)
	for cur := r; cur != nil; cur = cur.inherited {
		if cur.elem == nil {
			continue
		}
		for _, c := range cur.elem.ChildElements() {
			if n := c.SelectAttrValue("N", ""); c.Tag == "Cell" && !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

func (r *GeometryRow) float(name string) (float64, bool) {
	if c := r.Cell(name); c != nil {
		return c.Float(), true
	}
	return 0, false
}

func (r *GeometryRow) X() (float64, bool) { return r.float("X") }
func (r *GeometryRow) Y() (float64, bool) { return r.float("Y") }

func (r *GeometryRow) SetX(v float64) { r.setCell("X", FormatFloat(v)) }
func (r *GeometryRow) SetY(v float64) { r.setCell("Y", FormatFloat(v)) }

// ensureLocal creates local row element at sorted position inside local
// section.
func (r *GeometryRow) ensureLocal() *etree.Element {
	if r.elem != nil {
		return r.elem
	}
	section := r.g.ensureSection()
	e := etree.NewElement("Row")
	e.Space = section.Space
	e.CreateAttr("T", r.Type())
	e.CreateAttr("IX", r.ix)
	pos := -1
	for _, c := range section.ChildElements() {
		if c.Tag == "Row" && compareIX(c.SelectAttrValue("IX", ""), r.ix) > 0 {
			pos = c.Index()
			break
		}
	}
	if pos < 0 {
		section.AddChild(e)
	} else {
		section.InsertChildAt(pos, e)
	}
	r.elem = e
	return e
}

// setCell changes local cell of the row. Inherited cell is copied first so
// its formula and unit are kept.
func (r *GeometryRow) setCell(name, value string) {
	r.g.shape.page.touch()
	e := r.ensureLocal()
	if c := findCell(e, name); c != nil {
		c.CreateAttr("V", value)
		return
	}
	var c *etree.Element
	if ic := r.Cell(name); ic != nil {
		c = ic.elem.Copy()
		c.Space = e.Space
		c.CreateAttr("V", value)
	} else {
		c = newCellElement(e.Space, name, value)
	}
	e.AddChild(c)
}

