package vsdx

import (
	"fmt"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// Connect links connector shape (FromSheet) to the shape it is glued to
// (ToSheet).
type Connect struct {
	FromSheet string
	FromCell  string
	FromPart  string
	ToSheet   string
	ToCell    string
	ToPart    string

	page *Page
	elem *etree.Element
}

func newConnect(p *Page, e *etree.Element) *Connect {
	return &Connect{
		FromSheet: e.SelectAttrValue("FromSheet", ""),
		FromCell:  e.SelectAttrValue("FromCell", ""),
		FromPart:  e.SelectAttrValue("FromPart", ""),
		ToSheet:   e.SelectAttrValue("ToSheet", ""),
		ToCell:    e.SelectAttrValue("ToCell", ""),
		ToPart:    e.SelectAttrValue("ToPart", ""),
		page:      p,
		elem:      e,
	}
}

// ShapeID returns ID of the shape connector terminates at.
func (c *Connect) ShapeID() string { return c.ToSheet }

// ConnectorShapeID returns ID of the connector shape.
func (c *Connect) ConnectorShapeID() string { return c.FromSheet }

func (c *Connect) Shape() *Shape          { return c.page.ShapeByID(c.ToSheet) }
func (c *Connect) ConnectorShape() *Shape { return c.page.ShapeByID(c.FromSheet) }

func (c *Connect) String() string {
	return fmt.Sprintf("Connect: from=%s(%s) to=%s(%s)", c.FromSheet, c.FromCell, c.ToSheet, c.ToCell)
}

// Connects returns connection records of the page.
func (p *Page) Connects() []*Connect {
	root := p.root()
	if root == nil {
		return nil
	}
	var out []*Connect
	for _, e := range root.FindElements(".//Connect") {
		out = append(out, newConnect(p, e))
	}
	return out
}

// AddConnect appends connection record to the page.
func (p *Page) AddConnect(c Connect) *Connect {
	root := p.root()
	connects := root.SelectElement("Connects")
	if connects == nil {
		connects = root.CreateElement("Connects")
		connects.Space = root.Space
	}
	e := connects.CreateElement("Connect")
	e.Space = connects.Space
	for _, a := range [][2]string{
		{"FromSheet", c.FromSheet}, {"FromCell", c.FromCell}, {"FromPart", c.FromPart},
		{"ToSheet", c.ToSheet}, {"ToCell", c.ToCell}, {"ToPart", c.ToPart},
	} {
		if a[1] != "" {
			e.CreateAttr(a[0], a[1])
		}
	}
	p.touch()
	return newConnect(p, e)
}

// Connects returns connection records shape takes part in.
func (s *Shape) Connects() []*Connect {
	id := s.ID()
	var out []*Connect
	for _, c := range s.page.Connects() {
		if c.ToSheet == id || c.FromSheet == id {
			out = append(out, c)
		}
	}
	return out
}

// ConnectedShapes returns shapes on the other side of shape connections.
func (s *Shape) ConnectedShapes() []*Shape {
	id := s.ID()
	var out []*Shape
	for _, c := range s.Connects() {
		for _, other := range []string{c.FromSheet, c.ToSheet} {
			if other == id {
				continue
			}
			if o := s.page.ShapeByID(other); o != nil {
				out = append(out, o)
			}
		}
	}
	return out
}

// ConnectorsBetween returns connector shapes linking a and b.
func (p *Page) ConnectorsBetween(a, b *Shape) []*Shape {
	var ids []string
	for _, s := range a.ConnectedShapes() {
		ids = append(ids, s.ID())
	}
	var out []*Shape
	for _, s := range b.ConnectedShapes() {
		if slices.Contains(ids, s.ID()) && !slices.ContainsFunc(out, func(o *Shape) bool { return o.ID() == s.ID() }) {
			out = append(out, s)
		}
	}
	return out
}

const connectorMasterName = "Dynamic connector"

// CreateConnector adds straight connector shape going from center of one
// shape to center of another and glues it to both.
func CreateConnector(page *Page, from, to *Shape) (*Shape, error) {
	d := page.doc
	media, err := openMedia(d.log)
	if err != nil {
		return nil, fmt.Errorf("unable to load shape library: %w", err)
	}
	tmpl := media.straightConnector()
	if tmpl == nil {
		return nil, fmt.Errorf("shape library has no %s shape", mediaStraightConnector)
	}

	c, err := tmpl.Copy(page)
	if err != nil {
		return nil, fmt.Errorf("unable to copy connector: %w", err)
	}
	c.SetText("")

	if !slices.Contains(d.TitlesOfParts(), connectorMasterName) {
		d.insertTitle("Masters", -1, connectorMasterName)
	}
	if _, ok := d.AppValue("Masters"); !ok {
		d.SetAppValue("Masters", 1)
	}

	if ms := c.MasterShape(); ms != nil {
		if id := ms.LineStyleID(); id != "" && d.StyleByID(id) == nil {
			if style := media.doc.StyleByID(id); style != nil {
				if err := d.addStyle(style); err != nil {
					return nil, fmt.Errorf("unable to copy connector line style: %w", err)
				}
			}
		}
	}

	c.retarget("BegTrigger", "Sheet.1!", "Sheet."+from.ID()+"!")
	c.retarget("EndTrigger", "Sheet.2!", "Sheet."+to.ID()+"!")

	page.AddConnect(Connect{FromSheet: c.ID(), FromCell: "EndX", FromPart: "12", ToSheet: to.ID(), ToCell: "PinX", ToPart: "3"})
	page.AddConnect(Connect{FromSheet: c.ID(), FromCell: "BeginX", FromPart: "9", ToSheet: from.ID(), ToCell: "PinX", ToPart: "3"})

	bx, by := from.Center()
	ex, ey := to.Center()
	c.SetBeginX(bx)
	c.SetBeginY(by)
	c.SetEndX(ex)
	c.SetEndY(ey)
	n := c.Recalculate()

	d.log.Debug("Connector created",
		zap.String("page", page.Name()), zap.String("id", c.ID()),
		zap.String("from", from.ID()), zap.String("to", to.ID()), zap.Int("recalculated", n))
	return c, nil
}

// retarget replaces sheet reference in cell formula making cell local first.
func (s *Shape) retarget(name, old, ref string) {
	cell := s.Cell(name)
	if cell == nil {
		mc := s.ResolveCell(name)
		if mc == nil {
			return
		}
		s.SetCellValue(name, mc.Value())
		if cell = s.Cell(name); cell == nil {
			return
		}
	}
	cell.SetFormula(strings.ReplaceAll(cell.Formula(), old, ref))
}
