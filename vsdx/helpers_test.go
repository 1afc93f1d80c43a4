package vsdx

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

type testPage struct {
	name     string
	shapes   string
	connects string
}

type testMaster struct {
	id       string
	name     string
	uniqueID string
	shapes   string
}

const (
	testNS      = `xmlns="http://schemas.microsoft.com/office/visio/2012/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	testRelsNS  = `xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`
	testXMLHead = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>`
)

func testParts(pages []testPage, masters []testMaster) map[string][]byte {
	parts := make(map[string][]byte)
	put := func(name, content string) { parts[name] = []byte(testXMLHead + content) }

	var ct, pagesXML, pagesRels, titles strings.Builder
	ct.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	ct.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	ct.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	ct.WriteString(`<Override PartName="/visio/document.xml" ContentType="application/vnd.ms-visio.drawing.main+xml"/>`)
	ct.WriteString(`<Override PartName="/visio/pages/pages.xml" ContentType="application/vnd.ms-visio.pages+xml"/>`)

	var masterRels strings.Builder
	for i := range masters {
		fmt.Fprintf(&masterRels, `<Relationship Id="rId%d" Type="%s" Target="../masters/master%d.xml"/>`, i+1, RelTypeMaster, i+1)
	}

	fmt.Fprintf(&pagesXML, `<Pages %s>`, testNS)
	fmt.Fprintf(&pagesRels, `<Relationships %s>`, testRelsNS)
	for i, p := range pages {
		fmt.Fprintf(&pagesXML, `<Page ID="%d" NameU="%s" Name="%s"><PageSheet><Cell N="PageWidth" V="8.5"/><Cell N="PageHeight" V="11"/></PageSheet><Rel r:id="rId%d"/></Page>`, i, p.name, p.name, i+1)
		fmt.Fprintf(&pagesRels, `<Relationship Id="rId%d" Type="%s" Target="page%d.xml"/>`, i+1, RelTypePage, i+1)
		fmt.Fprintf(&ct, `<Override PartName="/visio/pages/page%d.xml" ContentType="%s"/>`, i+1, ContentTypePage)
		put(fmt.Sprintf("visio/pages/page%d.xml", i+1), fmt.Sprintf(`<PageContents %s><Shapes>%s</Shapes>%s</PageContents>`, testNS, p.shapes, p.connects))
		if len(masters) > 0 {
			put(fmt.Sprintf("visio/pages/_rels/page%d.xml.rels", i+1), fmt.Sprintf(`<Relationships %s>%s</Relationships>`, testRelsNS, masterRels.String()))
		}
		fmt.Fprintf(&titles, `<vt:lpstr>%s</vt:lpstr>`, p.name)
	}
	pagesXML.WriteString(`</Pages>`)
	pagesRels.WriteString(`</Relationships>`)
	put(partPages, pagesXML.String())
	put(partPagesRels, pagesRels.String())

	docRels := `<Relationship Id="rId1" Type="http://schemas.microsoft.com/visio/2010/relationships/pages" Target="pages/pages.xml"/>`
	headings := fmt.Sprintf(`<vt:variant><vt:lpstr>Pages</vt:lpstr></vt:variant><vt:variant><vt:i4>%d</vt:i4></vt:variant>`, len(pages))
	headingsSize := 2
	if len(masters) > 0 {
		var mx, mr strings.Builder
		fmt.Fprintf(&mx, `<Masters %s>`, testNS)
		fmt.Fprintf(&mr, `<Relationships %s>`, testRelsNS)
		for i, m := range masters {
			fmt.Fprintf(&mx, `<Master ID="%s" NameU="%s" Name="%s" UniqueID="%s"><PageSheet/><Rel r:id="rId%d"/></Master>`, m.id, m.name, m.name, m.uniqueID, i+1)
			fmt.Fprintf(&mr, `<Relationship Id="rId%d" Type="%s" Target="master%d.xml"/>`, i+1, RelTypeMaster, i+1)
			fmt.Fprintf(&ct, `<Override PartName="/visio/masters/master%d.xml" ContentType="%s"/>`, i+1, ContentTypeMaster)
			put(fmt.Sprintf("visio/masters/master%d.xml", i+1), fmt.Sprintf(`<MasterContents %s><Shapes>%s</Shapes></MasterContents>`, testNS, m.shapes))
			fmt.Fprintf(&titles, `<vt:lpstr>%s</vt:lpstr>`, m.name)
		}
		mx.WriteString(`</Masters>`)
		mr.WriteString(`</Relationships>`)
		put(partMasters, mx.String())
		put(partMastersRels, mr.String())
		fmt.Fprintf(&ct, `<Override PartName="/visio/masters/masters.xml" ContentType="%s"/>`, ContentTypeMasters)
		docRels += fmt.Sprintf(`<Relationship Id="rId2" Type="%s" Target="masters/masters.xml"/>`, RelTypeMasters)
		headings += fmt.Sprintf(`<vt:variant><vt:lpstr>Masters</vt:lpstr></vt:variant><vt:variant><vt:i4>%d</vt:i4></vt:variant>`, len(masters))
		headingsSize += 2
	}
	ct.WriteString(`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`)
	ct.WriteString(`</Types>`)
	put(partContentTypes, ct.String())
	put(partDocumentRels, fmt.Sprintf(`<Relationships %s>%s</Relationships>`, testRelsNS, docRels))
	put(partDocument, fmt.Sprintf(`<VisioDocument %s><StyleSheets><StyleSheet ID="0" NameU="No Style" Name="No Style"/></StyleSheets></VisioDocument>`, testNS))
	put(partApp, fmt.Sprintf(`<Properties xmlns="%s" xmlns:vt="%s"><HeadingPairs><vt:vector size="%d" baseType="variant">%s</vt:vector></HeadingPairs><TitlesOfParts><vt:vector size="%d" baseType="lpstr">%s</vt:vector></TitlesOfParts></Properties>`,
		NSExtProperties, NSDocPropsVT, headingsSize, headings, len(pages)+len(masters), titles.String()))
	return parts
}

func loadTestDoc(t *testing.T, pages []testPage, masters []testMaster, opts ...Option) *Document {
	t.Helper()
	d, err := Load(testParts(pages, masters), zaptest.NewLogger(t), opts...)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	return d
}

// rect returns XML of simple 2-D shape.
func rect(id string, x, y, w, h float64, text string) string {
	return fmt.Sprintf(`<Shape ID="%s" Type="Shape"><Cell N="PinX" V="%s"/><Cell N="PinY" V="%s"/><Cell N="Width" V="%s"/><Cell N="Height" V="%s"/><Cell N="LocPinX" V="%s" F="Width*0.5"/><Cell N="LocPinY" V="%s" F="Height*0.5"/><Text>%s</Text></Shape>`,
		id, FormatFloat(x), FormatFloat(y), FormatFloat(w), FormatFloat(h), FormatFloat(w/2), FormatFloat(h/2), text)
}

func pageIDs(p *Page) []string {
	var ids []string
	for _, s := range p.AllShapes() {
		ids = append(ids, s.ID())
	}
	return ids
}

func assertUniqueIDs(t *testing.T, p *Page) {
	t.Helper()
	seen := make(map[string]bool)
	for _, id := range pageIDs(p) {
		if seen[id] {
			t.Fatalf("duplicate shape ID %s on page %q: %v", id, p.Name(), pageIDs(p))
		}
		seen[id] = true
	}
}
