package vsdx

import (
	"math"
)

// formulae is the table of shape sheet formulas used by connector shapes
// which can be evaluated.
var formulae = map[string]func(s *Shape) float64{
	"Width*1":                               func(s *Shape) float64 { return s.Width() },
	"Width*0":                               func(s *Shape) float64 { return 0 },
	"Height*1":                              func(s *Shape) float64 { return s.Height() },
	"Height*0":                              func(s *Shape) float64 { return 0 },
	"(BeginX+EndX)/2":                       middleX,
	"(BeginY+EndY)/2":                       middleY,
	"Width*0.5":                             func(s *Shape) float64 { return s.Width() * 0.5 },
	"Height*0.5":                            func(s *Shape) float64 { return s.Height() * 0.5 },
	"SQRT((EndX-BeginX)^2+(EndY-BeginY)^2)": diagonal,
	"ATAN2(EndY-BeginY,EndX-BeginX)":        angle,
	"GUARD((BeginX+EndX)/2)":                middleX,
	"GUARD((BeginY+EndY)/2)":                middleY,
	"GUARD(Width*0.5)":                      func(s *Shape) float64 { return s.Width() * 0.5 },
	"GUARD(Height*0.5)":                     func(s *Shape) float64 { return s.Height() * 0.5 },
	"GUARD(EndX-BeginX)":                    func(s *Shape) float64 { return s.EndX() - s.BeginX() },
	"GUARD(EndY-BeginY)":                    func(s *Shape) float64 { return s.EndY() - s.BeginY() },
}

func middleX(s *Shape) float64 { return (s.BeginX() + s.EndX()) / 2 }
func middleY(s *Shape) float64 { return (s.BeginY() + s.EndY()) / 2 }

func diagonal(s *Shape) float64 {
	return math.Hypot(s.EndX()-s.BeginX(), s.EndY()-s.BeginY())
}

func angle(s *Shape) float64 {
	return math.Atan2(s.EndY()-s.BeginY(), s.EndX()-s.BeginX())
}

// CalcValue evaluates known formula for the shape.
func CalcValue(s *Shape, formula string) (float64, bool) {
	f, ok := formulae[formula]
	if !ok {
		return 0, false
	}
	return f(s), true
}

// formulaCellNames returns names of cells shape has directly or through
// masters, local first.
func (s *Shape) formulaCellNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, cur := range s.masterChain() {
		for _, c := range cur.elem.ChildElements() {
			if c.Tag != "Cell" {
				continue
			}
			if n := c.SelectAttrValue("N", ""); !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// rowFormula returns effective formula of the row cell skipping inherited
// markers.
func (r *GeometryRow) rowFormula(name string) string {
	for cur := r; cur != nil; cur = cur.inherited {
		if cur.elem == nil {
			continue
		}
		if c := findCell(cur.elem, name); c != nil {
			if f := c.SelectAttrValue("F", ""); f != "" && f != FormulaInherited {
				return f
			}
		}
	}
	return ""
}

// Recalculate recomputes cells (including geometry rows) whose formulas can
// be evaluated and returns number of updated values. Two passes are made so
// cells depending on other recomputed cells settle.
func (s *Shape) Recalculate() int {
	n := 0
	for range 2 {
		for _, name := range s.formulaCellNames() {
			f, ok := s.CellFormula(name)
			if !ok {
				continue
			}
			if v, ok := CalcValue(s, f); ok {
				s.SetCellFloat(name, v)
				n++
			}
		}
		g := s.Geometry()
		if g == nil {
			continue
		}
		for _, r := range g.Rows() {
			for _, name := range r.CellNames() {
				f := r.rowFormula(name)
				if f == "" {
					continue
				}
				if v, ok := CalcValue(s, f); ok {
					r.setCell(name, FormatFloat(v))
					n++
				}
			}
		}
	}
	return n
}
