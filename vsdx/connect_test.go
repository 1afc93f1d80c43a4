package vsdx

import (
	"errors"
	"slices"
	"testing"

	"go.uber.org/zap/zaptest"
)

func connectorPage() []testPage {
	return []testPage{{name: "Page-1", shapes: rect("7", 1, 2, 1, 1, "from") + rect("9", 4, 6, 1, 1, "to")}}
}

func TestCreateConnector(t *testing.T) {
	d := loadTestDoc(t, connectorPage(), nil)
	p := d.Page(0)
	from, to := p.ShapeByID("7"), p.ShapeByID("9")

	c, err := CreateConnector(p, from, to)
	if err != nil {
		t.Fatalf("CreateConnector: %v", err)
	}
	if c.ID() != "10" || c.Text() != "" {
		t.Fatalf("unexpected connector %s", c)
	}
	assertUniqueIDs(t, p)

	masters := d.MasterPages()
	if len(masters) != 1 || masters[0].Name() != connectorMasterName {
		t.Fatalf("masters = %v", masters)
	}
	if d.ContentTypeOverride(partMasters) != ContentTypeMasters || d.ContentTypeOverride(masters[0].Part()) != ContentTypeMaster {
		t.Fatalf("masters are not registered")
	}
	if ok, _ := d.hasRelationship(p.Part(), RelTypeMaster, masters[0].Part()); !ok {
		t.Fatalf("page does not refer to connector master")
	}
	if ok, _ := d.hasRelationship(partDocument, RelTypeMasters, partMasters); !ok {
		t.Fatalf("document does not refer to masters list")
	}
	titles := d.TitlesOfParts()
	if !slices.Equal(titles, []string{"Page-1", connectorMasterName}) {
		t.Fatalf("titles = %v", titles)
	}
	if n, ok := d.AppValue("Masters"); !ok || n != 1 {
		t.Fatalf("masters count = %d", n)
	}
	if d.StyleByID("3") == nil {
		t.Fatalf("connector line style was not copied")
	}

	if f := c.Cell("BegTrigger").Formula(); f != "_XFTRIGGER(Sheet.7!EventXFMod)" {
		t.Fatalf("begin trigger = %q", f)
	}
	if f := c.Cell("EndTrigger").Formula(); f != "_XFTRIGGER(Sheet.9!EventXFMod)" {
		t.Fatalf("end trigger = %q", f)
	}

	connects := c.Connects()
	if len(connects) != 2 {
		t.Fatalf("connects = %v", connects)
	}
	end, begin := connects[0], connects[1]
	if end.FromCell != "EndX" || end.FromPart != "12" || end.ToSheet != "9" || end.ToCell != "PinX" || end.ToPart != "3" {
		t.Fatalf("unexpected end connect %s", end)
	}
	if begin.FromCell != "BeginX" || begin.FromPart != "9" || begin.ToSheet != "7" || begin.ConnectorShape().ID() != c.ID() {
		t.Fatalf("unexpected begin connect %s", begin)
	}
	if between := p.ConnectorsBetween(from, to); len(between) != 1 || between[0].ID() != c.ID() {
		t.Fatalf("ConnectorsBetween = %v", between)
	}

	checks := map[string]float64{
		"BeginX": 1, "BeginY": 2, "EndX": 4, "EndY": 6,
		"PinX": 2.5, "PinY": 4, "Width": 3, "Height": 4, "LocPinX": 1.5, "LocPinY": 2,
	}
	for name, want := range checks {
		if got, _ := c.CellFloat(name); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	line := c.Geometry().Row("2")
	if x, _ := line.X(); x != 3 {
		t.Fatalf("line to X = %v", x)
	}
	if y, _ := line.Y(); y != 4 {
		t.Fatalf("line to Y = %v", y)
	}
	if len(d.Warnings()) != 0 {
		t.Fatalf("unexpected warnings %v", d.Warnings())
	}

	// second connector reuses imported master
	if _, err := CreateConnector(p, to, from); err != nil {
		t.Fatalf("CreateConnector: %v", err)
	}
	if len(d.MasterPages()) != 1 || len(p.Connects()) != 4 {
		t.Fatalf("second connector duplicated master or lost connects")
	}
}

func TestCreateConnectorMasterIDTaken(t *testing.T) {
	d := loadTestDoc(t, connectorPage(), []testMaster{{id: "2", name: "Box", uniqueID: "{B}", shapes: `<Shape ID="1" Type="Shape"/>`}})
	p := d.Page(0)

	c, err := CreateConnector(p, p.ShapeByID("7"), p.ShapeByID("9"))
	if err != nil {
		t.Fatalf("CreateConnector: %v", err)
	}
	if c.MasterID() != "3" {
		t.Fatalf("connector master = %q, want 3", c.MasterID())
	}
	if c.MasterShape() == nil || d.MasterPageByID("3").Name() != connectorMasterName {
		t.Fatalf("connector master is not resolvable")
	}
	warnings := d.Warnings()
	if len(warnings) != 1 || warnings[0].Kind != KindPartialFeature {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestCreateConnectorMissingPageRel(t *testing.T) {
	parts := testParts(connectorPage(), []testMaster{{id: "2", name: connectorMasterName, uniqueID: "{002A9108-0000-0000-8E40-00608CF305B2}", shapes: `<Shape ID="5" Type="Shape"/>`}})
	delete(parts, "visio/pages/_rels/page1.xml.rels")
	d, err := Load(parts, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := d.Page(0)

	if _, err := CreateConnector(p, p.ShapeByID("7"), p.ShapeByID("9")); err != nil {
		t.Fatalf("CreateConnector: %v", err)
	}
	if len(d.MasterPages()) != 1 {
		t.Fatalf("existing master must be reused")
	}
	if ok, _ := d.hasRelationship(p.Part(), RelTypeMaster, d.MasterPages()[0].Part()); !ok {
		t.Fatalf("page relationship was not added")
	}
	warnings := d.Warnings()
	if len(warnings) != 1 || warnings[0].Kind != KindPartialFeature {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestCreateConnectorImportDisabled(t *testing.T) {
	d := loadTestDoc(t, connectorPage(), nil, WithMasterImport(false))
	p := d.Page(0)
	_, err := CreateConnector(p, p.ShapeByID("7"), p.ShapeByID("9"))
	if !errors.Is(err, ErrMissingMaster) || !IsKind(err, KindPartialFeature) {
		t.Fatalf("expected missing master error, got %v", err)
	}
	if len(p.AllShapes()) != 2 {
		t.Fatalf("page modified on failure")
	}
}
