package vsdx

import (
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// FormulaInherited is the formula marker meaning "use master formula".
const FormulaInherited = "Inh"

// Cell wraps <Cell N="..." V="..." F="..." U="..."/>.
type Cell struct {
	elem *etree.Element
}

func newCell(e *etree.Element) *Cell {
	if e == nil {
		return nil
	}
	return &Cell{elem: e}
}

func (c *Cell) Element() *etree.Element { return c.elem }
func (c *Cell) Name() string            { return c.elem.SelectAttrValue("N", "") }
func (c *Cell) Value() string           { return c.elem.SelectAttrValue("V", "") }
func (c *Cell) Formula() string         { return c.elem.SelectAttrValue("F", "") }
func (c *Cell) Unit() string            { return c.elem.SelectAttrValue("U", "") }

func (c *Cell) HasFormula() bool {
	return c.elem.SelectAttr("F") != nil
}

// IsInherited reports whether cell formula defers to master.
func (c *Cell) IsInherited() bool {
	return c.Formula() == FormulaInherited
}

func (c *Cell) SetValue(v string) {
	c.elem.CreateAttr("V", v)
}

func (c *Cell) SetFloat(v float64) {
	c.SetValue(FormatFloat(v))
}

func (c *Cell) SetFormula(f string) {
	c.elem.CreateAttr("F", f)
}

// Float returns numeric cell value, unparsable values are reported as 0.
func (c *Cell) Float() float64 {
	return toFloat(c.Value())
}

func toFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatFloat renders float the way cell values are usually written: always
// with a fractional part, shortest representation otherwise.
func FormatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e16 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// newCellElement creates detached cell element.
func newCellElement(space, name, value string) *etree.Element {
	e := etree.NewElement("Cell")
	e.Space = space
	e.CreateAttr("N", name)
	e.CreateAttr("V", value)
	return e
}

// insertCell puts cell element after the last direct Cell child of parent, or
// in front of everything else if there are none.
func insertCell(parent, cell *etree.Element) {
	idx := 0
	for _, c := range parent.ChildElements() {
		if c.Tag == "Cell" {
			idx = c.Index() + 1
		}
	}
	parent.InsertChildAt(idx, cell)
}

func findCell(parent *etree.Element, name string) *etree.Element {
	for _, c := range parent.ChildElements() {
		if c.Tag == "Cell" && c.SelectAttrValue("N", "") == name {
			return c
		}
	}
	return nil
}
