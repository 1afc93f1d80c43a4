package vsdx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Shape is a handle to <Shape> element of a page or master page. Handles stay
// valid while element stays in the page.
type Shape struct {
	elem *etree.Element
	page *Page
}

func (s *Shape) Element() *etree.Element { return s.elem }
func (s *Shape) Page() *Page             { return s.page }

func (s *Shape) ID() string { return s.elem.SelectAttrValue("ID", "") }

// IntID returns numeric shape ID or 0.
func (s *Shape) IntID() int {
	n, _ := strconv.Atoi(s.ID())
	return n
}

func (s *Shape) Type() string   { return s.elem.SelectAttrValue("Type", "") }
func (s *Shape) IsGroup() bool  { return s.Type() == "Group" }
func (s *Shape) Name() string   { return s.elem.SelectAttrValue("Name", "") }
func (s *Shape) NameU() string  { return s.elem.SelectAttrValue("NameU", "") }
func (s *Shape) Attr(name string) string {
	return s.elem.SelectAttrValue(name, "")
}

// MasterID returns ID of master this shape refers to. Shapes inside groups
// inherit it from the parent.
func (s *Shape) MasterID() string {
	for cur := s; cur != nil; cur = cur.Parent() {
		if m := cur.elem.SelectAttr("Master"); m != nil {
			return m.Value
		}
	}
	return ""
}

func (s *Shape) MasterShapeID() string { return s.elem.SelectAttrValue("MasterShape", "") }

func (s *Shape) LineStyleID() string { return s.elem.SelectAttrValue("LineStyle", "") }
func (s *Shape) FillStyleID() string { return s.elem.SelectAttrValue("FillStyle", "") }
func (s *Shape) TextStyleID() string { return s.elem.SelectAttrValue("TextStyle", "") }

func (s *Shape) SetLineStyleID(id string) { s.setAttr("LineStyle", id) }
func (s *Shape) SetFillStyleID(id string) { s.setAttr("FillStyle", id) }
func (s *Shape) SetTextStyleID(id string) { s.setAttr("TextStyle", id) }

func (s *Shape) setAttr(name, value string) {
	s.elem.CreateAttr(name, value)
	s.page.touch()
}

// Parent returns containing group shape or nil for top level shapes.
func (s *Shape) Parent() *Shape {
	i, ok := s.page.lookup(s.elem)
	if !ok {
		return nil
	}
	a := s.page.shapeArena()
	if p := a.records[i].parent; p >= 0 {
		return &Shape{elem: a.records[p].elem, page: s.page}
	}
	return nil
}

// ChildShapes returns direct children of a group.
func (s *Shape) ChildShapes() []*Shape {
	i, ok := s.page.lookup(s.elem)
	if !ok {
		return nil
	}
	return s.page.wrap(s.page.shapeArena().records[i].children)
}

// SubShapes returns all descendants in document order.
func (s *Shape) SubShapes() []*Shape {
	return s.find(false, func(*Shape) bool { return true })
}

// shapesElement returns nested Shapes container of a group.
func (s *Shape) shapesElement() *etree.Element {
	return s.elem.SelectElement("Shapes")
}

// Validate checks structural requirements of the shape subtree.
func (s *Shape) Validate() error {
	for _, e := range shapeElements(s.elem) {
		if e.SelectAttrValue("Type", "") == "Group" && e.SelectElement("Shapes") == nil {
			return &Error{Kind: KindConfiguration, Page: s.page.Name(), ShapeID: e.SelectAttrValue("ID", ""), Err: ErrGroupWithoutShapes}
		}
	}
	return nil
}

// MaxID returns the largest numeric ID in shape subtree.
func (s *Shape) MaxID() int {
	max := 0
	for _, e := range shapeElements(s.elem) {
		if n, err := strconv.Atoi(e.SelectAttrValue("ID", "")); err == nil && n > max {
			max = n
		}
	}
	return max
}

// MasterShape resolves shape this one inherits from or nil.
func (s *Shape) MasterShape() *Shape {
	if s.page.doc == nil {
		return nil
	}
	mid := s.MasterID()
	if mid == "" {
		return nil
	}
	mp := s.page.doc.MasterPageByID(mid)
	if mp == nil || mp == s.page {
		return nil
	}
	top := mp.ChildShapes()
	if len(top) == 0 {
		return nil
	}
	if msid := s.MasterShapeID(); msid != "" {
		return mp.ShapeByID(msid)
	}
	return top[0]
}

// masterChain returns shape followed by its masters. Cycles are cut.
func (s *Shape) masterChain() []*Shape {
	chain := []*Shape{s}
	seen := map[*etree.Element]bool{s.elem: true}
	for cur := s.MasterShape(); cur != nil; cur = cur.MasterShape() {
		if seen[cur.elem] {
			break
		}
		seen[cur.elem] = true
		chain = append(chain, cur)
	}
	return chain
}

// Cells returns local cells indexed by name. Cells of geometry rows are
// indexed as "Geometry/<RowType>/<Cell>".
func (s *Shape) Cells() map[string]*Cell {
	cells := make(map[string]*Cell)
	for _, c := range s.elem.ChildElements() {
		if c.Tag == "Cell" {
			cells[c.SelectAttrValue("N", "")] = newCell(c)
		}
	}
	if g := s.geometrySection(); g != nil {
		for _, r := range g.ChildElements() {
			if r.Tag != "Row" {
				continue
			}
			t := r.SelectAttrValue("T", "")
			if t == "" {
				continue
			}
			for _, c := range r.ChildElements() {
				if c.Tag == "Cell" {
					cells["Geometry/"+t+"/"+c.SelectAttrValue("N", "")] = newCell(c)
				}
			}
		}
	}
	return cells
}

// Cell returns local cell or nil.
func (s *Shape) Cell(name string) *Cell {
	if !strings.HasPrefix(name, "Geometry/") {
		return newCell(findCell(s.elem, name))
	}
	return s.Cells()[name]
}

// ResolveCell returns the cell used for name: local one or the first found
// walking master chain.
func (s *Shape) ResolveCell(name string) *Cell {
	for _, cur := range s.masterChain() {
		if c := cur.Cell(name); c != nil {
			return c
		}
	}
	return nil
}

// CellValue returns effective value of the cell falling back to masters.
func (s *Shape) CellValue(name string) (string, bool) {
	if c := s.ResolveCell(name); c != nil {
		return c.Value(), true
	}
	return "", false
}

// CellFormula returns effective formula of the cell falling back to masters.
// Inherited marker is resolved to the master formula.
func (s *Shape) CellFormula(name string) (string, bool) {
	for _, cur := range s.masterChain() {
		c := cur.Cell(name)
		if c == nil || !c.HasFormula() {
			continue
		}
		if c.IsInherited() {
			continue
		}
		return c.Formula(), true
	}
	return "", false
}

// CellFloat is CellValue converted to number.
func (s *Shape) CellFloat(name string) (float64, bool) {
	v, ok := s.CellValue(name)
	if !ok {
		return 0, false
	}
	return toFloat(v), true
}

// SetCellValue sets local cell value. Missing local cell is copied from the
// master (keeping its formula and unit) or created.
func (s *Shape) SetCellValue(name, value string) {
	s.page.touch()
	if strings.HasPrefix(name, "Geometry/") {
		s.setGeometryCell(name, value)
		return
	}
	if c := s.Cell(name); c != nil {
		c.SetValue(value)
		return
	}
	var e *etree.Element
	if mc := s.ResolveCell(name); mc != nil {
		e = mc.elem.Copy()
		e.Space = s.elem.Space
	} else {
		e = newCellElement(s.elem.Space, name, value)
	}
	e.CreateAttr("V", value)
	insertCell(s.elem, e)
}

func (s *Shape) SetCellFloat(name string, v float64) {
	s.SetCellValue(name, FormatFloat(v))
}

func (s *Shape) setGeometryCell(name, value string) {
	parts := strings.Split(name, "/")
	if len(parts) != 3 {
		return
	}
	g := s.Geometry()
	if g == nil {
		return
	}
	var row *GeometryRow
	for _, r := range g.Rows() {
		if strings.EqualFold(r.Type(), parts[1]) {
			row = r
		}
	}
	if row != nil {
		row.setCell(parts[2], value)
	}
}

func (s *Shape) float(name string) float64 {
	v, _ := s.CellFloat(name)
	return v
}

func (s *Shape) X() float64          { return s.float("PinX") }
func (s *Shape) Y() float64          { return s.float("PinY") }
func (s *Shape) Width() float64      { return s.float("Width") }
func (s *Shape) Height() float64     { return s.float("Height") }
func (s *Shape) LocPinX() float64    { return s.float("LocPinX") }
func (s *Shape) LocPinY() float64    { return s.float("LocPinY") }
func (s *Shape) BeginX() float64     { return s.float("BeginX") }
func (s *Shape) BeginY() float64     { return s.float("BeginY") }
func (s *Shape) EndX() float64       { return s.float("EndX") }
func (s *Shape) EndY() float64       { return s.float("EndY") }
func (s *Shape) LineWeight() float64 { return s.float("LineWeight") }
func (s *Shape) LineToX() float64    { return s.float("Geometry/LineTo/X") }
func (s *Shape) LineToY() float64    { return s.float("Geometry/LineTo/Y") }

func (s *Shape) LineColor() string {
	v, _ := s.CellValue("LineColor")
	return v
}

func (s *Shape) SetX(v float64)          { s.SetCellFloat("PinX", v) }
func (s *Shape) SetY(v float64)          { s.SetCellFloat("PinY", v) }
func (s *Shape) SetWidth(v float64)      { s.SetCellFloat("Width", v) }
func (s *Shape) SetHeight(v float64)     { s.SetCellFloat("Height", v) }
func (s *Shape) SetBeginX(v float64)     { s.SetCellFloat("BeginX", v) }
func (s *Shape) SetBeginY(v float64)     { s.SetCellFloat("BeginY", v) }
func (s *Shape) SetEndX(v float64)       { s.SetCellFloat("EndX", v) }
func (s *Shape) SetEndY(v float64)       { s.SetCellFloat("EndY", v) }
func (s *Shape) SetLineWeight(v float64) { s.SetCellFloat("LineWeight", v) }
func (s *Shape) SetLineToX(v float64)    { s.SetCellFloat("Geometry/LineTo/X", v) }
func (s *Shape) SetLineToY(v float64)    { s.SetCellFloat("Geometry/LineTo/Y", v) }
func (s *Shape) SetLineColor(v string)   { s.SetCellValue("LineColor", v) }

// IsOneDimensional reports whether shape is defined by begin and end points.
func (s *Shape) IsOneDimensional() bool {
	_, ok := s.CellValue("BeginX")
	return ok
}

// Center returns shape center in parent coordinates.
func (s *Shape) Center() (float64, float64) {
	w, h := s.Width(), s.Height()
	lx, ok := s.CellFloat("LocPinX")
	if !ok {
		lx = w / 2
	}
	ly, ok := s.CellFloat("LocPinY")
	if !ok {
		ly = h / 2
	}
	return s.X() - lx + w/2, s.Y() - ly + h/2
}

// Move translates shape pin and, for 1-D shapes, begin and end points.
// Geometry rows are relative to the shape and stay untouched.
func (s *Shape) Move(dx, dy float64) {
	if s.IsOneDimensional() {
		s.SetBeginX(s.BeginX() + dx)
		s.SetBeginY(s.BeginY() + dy)
		if _, ok := s.CellValue("EndX"); ok {
			s.SetEndX(s.EndX() + dx)
			s.SetEndY(s.EndY() + dy)
		}
	}
	s.SetX(s.X() + dx)
	s.SetY(s.Y() + dy)
}

// Text returns concatenated content of shape <Text> element, master text if
// shape has none.
func (s *Shape) Text() string {
	if t := s.elem.SelectElement("Text"); t != nil {
		var b strings.Builder
		collectText(t, &b)
		return b.String()
	}
	if m := s.MasterShape(); m != nil {
		return m.Text()
	}
	return ""
}

func collectText(e *etree.Element, b *strings.Builder) {
	for _, t := range e.Child {
		switch v := t.(type) {
		case *etree.CharData:
			b.WriteString(v.Data)
		case *etree.Element:
			collectText(v, b)
		}
	}
}

// HasText reports whether shape has its own <Text> element.
func (s *Shape) HasText() bool {
	return s.elem.SelectElement("Text") != nil
}

// SetText replaces shape text dropping character formatting markers inside
// <Text>. Element is created when missing.
func (s *Shape) SetText(text string) {
	s.page.touch()
	t := s.elem.SelectElement("Text")
	if t == nil {
		t = s.elem.CreateElement("Text")
		t.Space = s.elem.Space
	}
	clearText(t)
	t.SetText(text)
}

func clearText(e *etree.Element) {
	for i := len(e.Child) - 1; i >= 0; i-- {
		switch v := e.Child[i].(type) {
		case *etree.CharData:
			e.RemoveChildAt(i)
		case *etree.Element:
			clearText(v)
		}
	}
}

// ApplyTextFilter substitutes "{{key}}" placeholders in shape and sub shapes
// text with context values.
func (s *Shape) ApplyTextFilter(context map[string]any) {
	for _, cur := range append([]*Shape{s}, s.SubShapes()...) {
		if !cur.HasText() {
			continue
		}
		text := cur.Text()
		for k, v := range context {
			text = strings.ReplaceAll(text, "{{"+k+"}}", fmt.Sprint(v))
		}
		if text != cur.Text() {
			cur.SetText(text)
		}
	}
}

// FindReplace replaces text in shape and sub shapes.
func (s *Shape) FindReplace(old, replacement string) {
	for _, cur := range append([]*Shape{s}, s.SubShapes()...) {
		if cur.HasText() {
			if text := cur.Text(); strings.Contains(text, old) {
				cur.SetText(strings.ReplaceAll(text, old, replacement))
			}
		}
	}
}

// Remove detaches shape from its container.
func (s *Shape) Remove() {
	if parent := s.elem.Parent(); parent != nil {
		parent.RemoveChild(s.elem)
		s.page.Invalidate()
		s.page.touch()
	}
}

func (s *Shape) String() string {
	return fmt.Sprintf("Shape ID=%s Type=%s Master=%s Text=%q", s.ID(), s.Type(), s.MasterID(), s.Text())
}
