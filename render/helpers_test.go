package render

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"vtpl/vsdx"
)

type testPage struct {
	name   string
	shapes string
}

const (
	testNS     = `xmlns="http://schemas.microsoft.com/office/visio/2012/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	testRelsNS = `xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`
)

// loadDoc assembles minimal package with given pages.
func loadDoc(t *testing.T, pages ...testPage) *vsdx.Document {
	t.Helper()

	parts := make(map[string][]byte)
	put := func(name, content string) { parts[name] = []byte(`<?xml version="1.0" encoding="utf-8"?>` + content) }

	var ct, list, rels, titles strings.Builder
	ct.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	ct.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	ct.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	ct.WriteString(`<Override PartName="/visio/document.xml" ContentType="application/vnd.ms-visio.drawing.main+xml"/>`)
	ct.WriteString(`<Override PartName="/visio/pages/pages.xml" ContentType="application/vnd.ms-visio.pages+xml"/>`)
	fmt.Fprintf(&list, `<Pages %s>`, testNS)
	fmt.Fprintf(&rels, `<Relationships %s>`, testRelsNS)
	for i, p := range pages {
		fmt.Fprintf(&list, `<Page ID="%d" NameU="%s" Name="%s"><PageSheet/><Rel r:id="rId%d"/></Page>`, i, p.name, p.name, i+1)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="%s" Target="page%d.xml"/>`, i+1, vsdx.RelTypePage, i+1)
		fmt.Fprintf(&ct, `<Override PartName="/visio/pages/page%d.xml" ContentType="%s"/>`, i+1, vsdx.ContentTypePage)
		fmt.Fprintf(&titles, `<vt:lpstr>%s</vt:lpstr>`, p.name)
		put(fmt.Sprintf("visio/pages/page%d.xml", i+1), fmt.Sprintf(`<PageContents %s><Shapes>%s</Shapes></PageContents>`, testNS, p.shapes))
	}
	list.WriteString(`</Pages>`)
	rels.WriteString(`</Relationships>`)
	ct.WriteString(`</Types>`)

	put("[Content_Types].xml", ct.String())
	put("visio/pages/pages.xml", list.String())
	put("visio/pages/_rels/pages.xml.rels", rels.String())
	put("visio/_rels/document.xml.rels", fmt.Sprintf(`<Relationships %s><Relationship Id="rId1" Type="http://schemas.microsoft.com/visio/2010/relationships/pages" Target="pages/pages.xml"/></Relationships>`, testRelsNS))
	put("visio/document.xml", fmt.Sprintf(`<VisioDocument %s/>`, testNS))
	put("docProps/app.xml", fmt.Sprintf(`<Properties xmlns="%s" xmlns:vt="%s"><HeadingPairs><vt:vector size="2" baseType="variant"><vt:variant><vt:lpstr>Pages</vt:lpstr></vt:variant><vt:variant><vt:i4>%d</vt:i4></vt:variant></vt:vector></HeadingPairs><TitlesOfParts><vt:vector size="%d" baseType="lpstr">%s</vt:vector></TitlesOfParts></Properties>`,
		vsdx.NSExtProperties, vsdx.NSDocPropsVT, len(pages), len(pages), titles.String()))

	d, err := vsdx.Load(parts, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	return d
}

func shape(id string, x, y, w, h float64, text string) string {
	return fmt.Sprintf(`<Shape ID="%s" Type="Shape"><Cell N="PinX" V="%s"/><Cell N="PinY" V="%s"/><Cell N="Width" V="%s"/><Cell N="Height" V="%s"/><Text>%s</Text></Shape>`,
		id, vsdx.FormatFloat(x), vsdx.FormatFloat(y), vsdx.FormatFloat(w), vsdx.FormatFloat(h), text)
}

func group(id string, x, y, w, h float64, text, children string) string {
	return fmt.Sprintf(`<Shape ID="%s" Type="Group"><Cell N="PinX" V="%s"/><Cell N="PinY" V="%s"/><Cell N="Width" V="%s"/><Cell N="Height" V="%s"/><Text>%s</Text><Shapes>%s</Shapes></Shape>`,
		id, vsdx.FormatFloat(x), vsdx.FormatFloat(y), vsdx.FormatFloat(w), vsdx.FormatFloat(h), text, children)
}

func texts(shapes []*vsdx.Shape) []string {
	out := make([]string, 0, len(shapes))
	for _, s := range shapes {
		out = append(out, s.Text())
	}
	return out
}

func assertUniqueIDs(t *testing.T, p *vsdx.Page) {
	t.Helper()
	seen := make(map[string]bool)
	for _, s := range p.AllShapes() {
		if seen[s.ID()] {
			t.Fatalf("duplicate shape ID %s on page %q", s.ID(), p.Name())
		}
		seen[s.ID()] = true
	}
}
