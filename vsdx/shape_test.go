package vsdx

import (
	"math"
	"strconv"
	"testing"
)

const masterRect = `<Shape ID="1" Type="Shape" LineStyle="3"><Cell N="Width" V="2"/><Cell N="Height" V="1" F="Width*0.5"/><Cell N="LineColor" V="#ff0000"/><Cell N="PinX" V="1" F="Width*0.5"/><Section N="Property"><Row N="Row_1"><Cell N="Value" V="default"/><Cell N="Label" V="Owner"/><Cell N="Type" V="0"/><Cell N="SortKey" V="b"/></Row><Row N="Row_2"><Cell N="Value" V="1"/><Cell N="Label" V="Amount"/><Cell N="SortKey" V="a"/></Row></Section><Section N="Geometry" IX="0"><Row T="MoveTo" IX="1"><Cell N="X" V="0" F="Width*0"/><Cell N="Y" V="0"/></Row><Row T="LineTo" IX="2"><Cell N="X" V="2" F="Width*1"/><Cell N="Y" V="0"/></Row><Row T="LineTo" IX="3"><Cell N="X" V="2"/><Cell N="Y" V="1"/></Row></Section><Text>master text</Text></Shape>`

func masterDoc(t *testing.T, pageShapes string) *Document {
	t.Helper()
	return loadTestDoc(t,
		[]testPage{{name: "Page-1", shapes: pageShapes}},
		[]testMaster{{id: "2", name: "Box", uniqueID: "{11111111-0000-0000-0000-000000000001}", shapes: masterRect}},
	)
}

func TestCopyAllocatesAboveMax(t *testing.T) {
	d := loadTestDoc(t, []testPage{
		{name: "Src", shapes: rect("5", 1, 1, 1, 1, "five")},
		{name: "Dst", shapes: rect("10", 1, 1, 1, 1, "ten") + rect("3", 1, 1, 1, 1, "three")},
	}, nil)
	src := d.Page(0).ShapeByID("5")
	dst := d.Page(1)

	c, err := src.Copy(dst)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if c.ID() != "11" {
		t.Fatalf("copy ID = %s, want 11", c.ID())
	}
	if src.ID() != "5" || src.Text() != "five" {
		t.Fatalf("source modified: %s", src)
	}
	if c.Text() != "five" || c.Page() != dst {
		t.Fatalf("unexpected copy %s", c)
	}
	if got := len(dst.ChildShapes()); got != 3 {
		t.Fatalf("destination has %d shapes, want 3", got)
	}
	assertUniqueIDs(t, dst)
	if !d.Changed() {
		t.Fatalf("document must be marked changed")
	}
}

func TestCopyGroupRewritesReferences(t *testing.T) {
	group := `<Shape ID="1" Type="Group"><Cell N="Width" V="2"/><Shapes><Shape ID="2" Type="Shape"><Cell N="PinX" V="1" F="Sheet.1!Width*0.5"/></Shape></Shapes></Shape>`
	d := loadTestDoc(t, []testPage{
		{name: "Src", shapes: group},
		{name: "Dst", shapes: rect("20", 1, 1, 1, 1, "")},
	}, nil)

	c, err := d.Page(0).ShapeByID("1").Copy(d.Page(1))
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if c.ID() != "21" {
		t.Fatalf("group ID = %s, want 21", c.ID())
	}
	children := c.ChildShapes()
	if len(children) != 1 || children[0].ID() != "22" {
		t.Fatalf("unexpected children %v", children)
	}
	if f, _ := children[0].CellFormula("PinX"); f != "Sheet.21!Width*0.5" {
		t.Fatalf("formula = %q", f)
	}
	if f, _ := d.Page(0).ShapeByID("2").CellFormula("PinX"); f != "Sheet.1!Width*0.5" {
		t.Fatalf("source formula changed to %q", f)
	}
}

func TestCopyGroupWithoutShapes(t *testing.T) {
	d := loadTestDoc(t, []testPage{{name: "P", shapes: `<Shape ID="1" Type="Group"/>`}}, nil)
	_, err := d.Page(0).ShapeByID("1").Copy(d.Page(0))
	if !IsKind(err, KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestMasterFallback(t *testing.T) {
	d := masterDoc(t, `<Shape ID="1" Type="Shape" Master="2"><Cell N="Width" V="4"/></Shape><Shape ID="2" Type="Group" Master="2"><Shapes><Shape ID="3" Type="Shape"/></Shapes></Shape>`)
	p := d.Page(0)
	s := p.ShapeByID("1")

	if s.Width() != 4 {
		t.Fatalf("local width = %v", s.Width())
	}
	if s.Height() != 1 {
		t.Fatalf("inherited height = %v", s.Height())
	}
	if s.LineColor() != "#ff0000" {
		t.Fatalf("inherited line color = %q", s.LineColor())
	}
	if f, ok := s.CellFormula("Height"); !ok || f != "Width*0.5" {
		t.Fatalf("inherited formula = %q", f)
	}
	if s.Text() != "master text" {
		t.Fatalf("inherited text = %q", s.Text())
	}
	if _, ok := s.CellValue("NoSuchCell"); ok {
		t.Fatalf("unexpected value for absent cell")
	}

	sub := p.ShapeByID("3")
	if sub.MasterID() != "2" {
		t.Fatalf("sub shape master = %q, want inherited 2", sub.MasterID())
	}
	if sub.Parent() == nil || sub.Parent().ID() != "2" {
		t.Fatalf("unexpected parent")
	}

	// lookups are deterministic
	for range 3 {
		if s.Height() != 1 {
			t.Fatalf("height changed between lookups")
		}
	}
}

func TestSetCellValueCopiesMasterCell(t *testing.T) {
	d := masterDoc(t, `<Shape ID="1" Type="Shape" Master="2"/>`)
	s := d.Page(0).ShapeByID("1")
	s.SetHeight(3)

	c := s.Cell("Height")
	if c == nil {
		t.Fatalf("local cell was not created")
	}
	if c.Value() != "3.0" || c.Formula() != "Width*0.5" {
		t.Fatalf("unexpected local cell V=%q F=%q", c.Value(), c.Formula())
	}
	if m := s.MasterShape().Cell("Height"); m.Value() != "1" {
		t.Fatalf("master cell modified: %q", m.Value())
	}

	s.SetCellValue("Custom", "x")
	if v, _ := s.CellValue("Custom"); v != "x" {
		t.Fatalf("new cell value = %q", v)
	}
}

func TestMoveAndCenter(t *testing.T) {
	d := loadTestDoc(t, []testPage{{name: "P", shapes: rect("1", 2, 3, 2, 1, "") +
		`<Shape ID="2" Type="Shape"><Cell N="PinX" V="1"/><Cell N="PinY" V="1"/><Cell N="BeginX" V="0"/><Cell N="BeginY" V="0"/><Cell N="EndX" V="2"/><Cell N="EndY" V="2"/></Shape>`}}, nil)
	p := d.Page(0)

	s := p.ShapeByID("1")
	if x, y := s.Center(); x != 2 || y != 3 {
		t.Fatalf("center = %v,%v", x, y)
	}
	s.Move(1, -0.5)
	if s.X() != 3 || s.Y() != 2.5 {
		t.Fatalf("moved to %v,%v", s.X(), s.Y())
	}

	line := p.ShapeByID("2")
	if !line.IsOneDimensional() {
		t.Fatalf("expected 1-D shape")
	}
	line.Move(0, -1)
	if line.BeginY() != -1 || line.EndY() != 1 || line.Y() != 0 {
		t.Fatalf("unexpected 1-D move: begin %v end %v pin %v", line.BeginY(), line.EndY(), line.Y())
	}
}

func TestText(t *testing.T) {
	d := loadTestDoc(t, []testPage{{name: "P", shapes: `<Shape ID="1"><Text><cp IX="0"/>Hello <pp IX="0"/>world</Text></Shape><Shape ID="2"/>`}}, nil)
	p := d.Page(0)

	s := p.ShapeByID("1")
	if s.Text() != "Hello world" {
		t.Fatalf("text = %q", s.Text())
	}
	s.SetText("bye")
	if s.Text() != "bye" {
		t.Fatalf("text = %q", s.Text())
	}
	if s.Element().SelectElement("Text").SelectElement("cp") == nil {
		t.Fatalf("formatting markers must stay")
	}

	empty := p.ShapeByID("2")
	empty.SetText("created")
	if !empty.HasText() || empty.Text() != "created" {
		t.Fatalf("text element not created")
	}
}

func TestTextFilterAndFindReplace(t *testing.T) {
	d := loadTestDoc(t, []testPage{{name: "P", shapes: `<Shape ID="1" Type="Group"><Text>{{name}} group</Text><Shapes><Shape ID="2"><Text>{{name}} is {{age}}</Text></Shape></Shapes></Shape>`}}, nil)
	p := d.Page(0)
	p.ApplyTextContext(map[string]any{"name": "Bob", "age": 42})
	if got := p.ShapeByID("2").Text(); got != "Bob is 42" {
		t.Fatalf("text = %q", got)
	}
	p.FindReplace("Bob", "Alice")
	if got := p.ShapeByID("1").Text(); got != "Alice group" {
		t.Fatalf("text = %q", got)
	}
}

func TestDataProperties(t *testing.T) {
	d := masterDoc(t, `<Shape ID="1" Type="Shape" Master="2"><Section N="Property"><Row N="Row_1"><Cell N="Value" V="local"/></Row><Row N="Row_3"><Cell N="Value" V="v3"/><Cell N="Label" V="Extra"/></Row></Section></Shape>`)
	s := d.Page(0).ShapeByID("1")

	props := s.DataProperties()
	if len(props) != 3 {
		t.Fatalf("got %d properties, want 3", len(props))
	}
	owner := props["Owner"]
	if owner == nil || owner.Value != "local" || owner.Type != "0" || owner.SortKey != "b" {
		t.Fatalf("unexpected overridden property %+v", owner)
	}
	if props["Amount"].Value != "1" {
		t.Fatalf("inherited property value = %q", props["Amount"].Value)
	}

	list := s.DataPropertyList()
	if list[0].Label != "Extra" || list[1].Label != "Amount" || list[2].Label != "Owner" {
		t.Fatalf("unexpected order %s %s %s", list[0].Label, list[1].Label, list[2].Label)
	}

	if found := d.Page(0).ShapeByPropertyLabelValue("Owner", "local"); found == nil || found.ID() != "1" {
		t.Fatalf("lookup by property value failed")
	}
}

func TestGeometryInheritance(t *testing.T) {
	d := masterDoc(t, `<Shape ID="1" Type="Shape" Master="2"><Section N="Geometry" IX="0"><Row IX="2"><Cell N="Y" V="0.5"/></Row><Row T="LineTo" IX="3" Del="1"/></Section></Shape><Shape ID="4" Type="Shape" Master="2"/>`)
	p := d.Page(0)

	g := p.ShapeByID("1").Geometry()
	if g == nil {
		t.Fatalf("no geometry")
	}
	rows := g.Rows()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1].Type() != "LineTo" {
		t.Fatalf("row type = %q", rows[1].Type())
	}
	if x, _ := rows[1].X(); x != 2 {
		t.Fatalf("inherited X = %v", x)
	}
	if y, _ := rows[1].Y(); y != 0.5 {
		t.Fatalf("local Y = %v", y)
	}
	if x, y, ok := g.StartPos(); !ok || x != 0 || y != 0 {
		t.Fatalf("start = %v,%v,%v", x, y, ok)
	}

	other := p.ShapeByID("4")
	if !other.Geometry().SetLineTo(5, 6, 0) {
		t.Fatalf("SetLineTo failed")
	}
	if v, _ := other.CellValue("Geometry/LineTo/X"); v != "5.0" {
		t.Fatalf("local geometry X = %q", v)
	}
	if other.LineToY() != 6 {
		t.Fatalf("LineToY = %v", other.LineToY())
	}
	master := other.MasterShape().Geometry().Row("2")
	if x, _ := master.X(); x != 2 {
		t.Fatalf("master geometry modified: %v", x)
	}
	row := other.Geometry().Row("2")
	if !row.IsLocal() || row.Cell("X").Formula() != "Width*1" {
		t.Fatalf("local row must keep master formula")
	}
}

func TestRecalculateConnectorFormulas(t *testing.T) {
	shape := `<Shape ID="1" Type="Shape"><Cell N="BeginX" V="1"/><Cell N="BeginY" V="1"/><Cell N="EndX" V="4"/><Cell N="EndY" V="5"/>` +
		`<Cell N="PinX" V="0" F="GUARD((BeginX+EndX)/2)"/><Cell N="PinY" V="0" F="(BeginY+EndY)/2"/>` +
		`<Cell N="Width" V="0" F="SQRT((EndX-BeginX)^2+(EndY-BeginY)^2)"/><Cell N="Angle" V="0" F="ATAN2(EndY-BeginY,EndX-BeginX)"/>` +
		`<Cell N="LocPinX" V="0" F="Width*0.5"/><Cell N="Other" V="7" F="NOW()"/></Shape>`
	d := loadTestDoc(t, []testPage{{name: "P", shapes: shape}}, nil)
	s := d.Page(0).ShapeByID("1")
	s.Recalculate()

	tests := map[string]float64{
		"PinX":    2.5,
		"PinY":    3,
		"Width":   5,
		"LocPinX": 2.5,
		"Angle":   math.Atan2(4, 3),
		"Other":   7,
	}
	for name, want := range tests {
		got, _ := s.CellFloat(name)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	if _, ok := CalcValue(s, "UNKNOWN()"); ok {
		t.Fatalf("unknown formula must not evaluate")
	}
}

func TestAppendShape(t *testing.T) {
	d := loadTestDoc(t, []testPage{{name: "P", shapes: rect("1", 1, 1, 1, 1, "a") + rect("2", 1, 1, 1, 1, "b")}}, nil)
	p := d.Page(0)
	added, err := p.ShapeByID("1").AppendShape(p.ShapeByID("2"))
	if err != nil {
		t.Fatalf("AppendShape: %v", err)
	}
	if added.ID() != "3" || !p.ShapeByID("1").IsGroup() {
		t.Fatalf("unexpected result %s", added)
	}
	if got := len(p.ShapeByID("1").ChildShapes()); got != 1 {
		t.Fatalf("group has %d children", got)
	}
	assertUniqueIDs(t, p)

	p.ShapeByID("2").Remove()
	if p.ShapeByID("2") != nil {
		t.Fatalf("shape was not removed")
	}
	if got := strconv.Itoa(len(p.AllShapes())); got != "2" {
		t.Fatalf("page has %s shapes", got)
	}
}
