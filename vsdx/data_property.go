package vsdx

import (
	"slices"

	"github.com/beevik/etree"
	"github.com/maruel/natural"
)

// DataProperty is a row of shape "Property" section.
type DataProperty struct {
	Name    string
	Value   string
	Type    string
	Label   string
	Prompt  string
	SortKey string

	shape *Shape
	elem  *etree.Element
}

// Shape returns owner of the property row.
func (dp *DataProperty) Shape() *Shape { return dp.shape }

func (dp *DataProperty) Element() *etree.Element { return dp.elem }

// SetValue changes property value in the row it was read from, which may
// belong to master shape.
func (dp *DataProperty) SetValue(v string) {
	if c := findCell(dp.elem, "Value"); c != nil {
		c.CreateAttr("V", v)
	} else {
		dp.elem.AddChild(newCellElement(dp.elem.Space, "Value", v))
	}
	dp.Value = v
}

func cellV(row *etree.Element, name string) (string, bool) {
	if c := findCell(row, name); c != nil {
		return c.SelectAttrValue("V", ""), true
	}
	return "", false
}

// DataProperties returns effective shape properties indexed by label. Local
// rows override master rows, rows without label take label, type, prompt and
// sort key from the master row of the same name.
func (s *Shape) DataProperties() map[string]*DataProperty {
	chain := s.masterChain()
	props := make(map[string]*DataProperty)
	byName := make(map[string]*DataProperty)
	for i := len(chain) - 1; i >= 0; i-- {
		cur := chain[i]
		var section *etree.Element
		for _, c := range cur.elem.ChildElements() {
			if c.Tag == "Section" && c.SelectAttrValue("N", "") == "Property" {
				section = c
				break
			}
		}
		if section == nil {
			continue
		}
		for _, row := range section.ChildElements() {
			if row.Tag != "Row" {
				continue
			}
			dp := &DataProperty{Name: row.SelectAttrValue("N", ""), shape: cur, elem: row}
			dp.Value, _ = cellV(row, "Value")
			if label, ok := cellV(row, "Label"); ok {
				dp.Label = label
				dp.Type, _ = cellV(row, "Type")
				dp.Prompt, _ = cellV(row, "Prompt")
				dp.SortKey, _ = cellV(row, "SortKey")
			} else if m, ok := byName[dp.Name]; ok {
				dp.Label, dp.Type, dp.Prompt, dp.SortKey = m.Label, m.Type, m.Prompt, m.SortKey
				if _, ok := cellV(row, "Value"); !ok {
					dp.Value = m.Value
				}
				delete(props, m.Label)
			}
			byName[dp.Name] = dp
			props[dp.Label] = dp
		}
	}
	return props
}

// DataPropertyList returns effective properties ordered by sort key, then
// label.
func (s *Shape) DataPropertyList() []*DataProperty {
	props := s.DataProperties()
	list := make([]*DataProperty, 0, len(props))
	for _, dp := range props {
		list = append(list, dp)
	}
	slices.SortFunc(list, func(a, b *DataProperty) int {
		if a.SortKey != b.SortKey {
			if natural.Less(a.SortKey, b.SortKey) {
				return -1
			}
			return 1
		}
		switch {
		case natural.Less(a.Label, b.Label):
			return -1
		case natural.Less(b.Label, a.Label):
			return 1
		}
		return 0
	})
	return list
}
