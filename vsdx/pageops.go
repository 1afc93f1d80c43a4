package vsdx

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// PagePosition is insertion point of a new page.
type PagePosition int

const (
	PositionLast PagePosition = iota
	PositionFirst
	PositionAfter
	PositionBefore
)

// pageIndex converts position relative to ref page into index in page list.
// Invalid combinations fall back to the end of the list.
func (d *Document) pageIndex(pos PagePosition, ref *Page) int {
	switch pos {
	case PositionFirst:
		return 0
	case PositionAfter, PositionBefore:
		if ref == nil {
			break
		}
		if i := ref.Index(); i >= 0 {
			if pos == PositionAfter {
				i++
			}
			return i
		}
	}
	return len(d.pages)
}

// UniquePageName returns name not used by any page, appending "-N" suffix
// if necessary. Names are compared in NFC form.
func (d *Document) UniquePageName(name string) string {
	used := make(map[string]bool, len(d.pages))
	for _, p := range d.pages {
		used[norm.NFC.String(p.Name())] = true
	}
	candidate := name
	for i := 1; used[norm.NFC.String(candidate)]; i++ {
		candidate = name + "-" + strconv.Itoa(i)
	}
	return candidate
}

func (d *Document) maxPageID() int {
	max := -1
	for _, p := range d.pages {
		if n, err := strconv.Atoi(p.ID()); err == nil && n > max {
			max = n
		}
	}
	return max
}

// defaultPageSheet lists cells of empty page (A4, millimeters).
var defaultPageSheet = [][3]string{
	{"PageWidth", "", "8.26771653543307"},
	{"PageHeight", "", "11.69291338582677"},
	{"ShdwOffsetX", "", "0.1181102362204724"},
	{"ShdwOffsetY", "", "-0.1181102362204724"},
	{"PageScale", "MM", "0.03937007874015748"},
	{"DrawingScale", "MM", "0.03937007874015748"},
	{"DrawingSizeType", "", "0"},
	{"DrawingScaleType", "", "0"},
	{"InhibitSnap", "", "0"},
	{"PageLockReplace", "BOOL", "0"},
	{"PageLockDuplicate", "BOOL", "0"},
	{"UIVisibility", "", "0"},
	{"ShdwType", "", "0"},
	{"ShdwObliqueAngle", "", "0"},
	{"ShdwScaleFactor", "", "1"},
	{"DrawingResizeType", "", "1"},
	{"PageShapeSplit", "", "1"},
}

// AddPage appends empty page. Empty name means "Page-N".
func (d *Document) AddPage(name string) (*Page, error) {
	return d.AddPageAt(len(d.pages), name)
}

// AddPageAt inserts empty page at index.
func (d *Document) AddPageAt(index int, name string) (*Page, error) {
	if name == "" {
		name = fmt.Sprintf("Page-%d", len(d.pages)+1)
	}
	entry := etree.NewElement("Page")
	ps := entry.CreateElement("PageSheet")
	ps.CreateAttr("FillStyle", "0")
	ps.CreateAttr("LineStyle", "0")
	ps.CreateAttr("TextStyle", "0")
	for _, c := range defaultPageSheet {
		cell := newCellElement("", c[0], c[2])
		if c[1] != "" {
			cell.CreateAttr("U", c[1])
		}
		ps.AddChild(cell)
	}

	contents := newXML("PageContents", NSMain)
	contents.Root().CreateAttr("xmlns:r", NSRel)
	contents.Root().CreateAttr("xml:space", "preserve")
	return d.createPage(entry, contents, name, index)
}

// CopyPage duplicates page with its contents and relationships.
func (d *Document) CopyPage(src *Page, pos PagePosition, name string) (*Page, error) {
	if name == "" {
		name = src.Name()
	}
	p, err := d.createPage(src.entry.Copy(), src.xml.Copy(), name, d.pageIndex(pos, src))
	if err != nil {
		return nil, err
	}
	rels, err := d.relationships(src.part)
	if err != nil {
		return nil, err
	}
	for _, r := range rels {
		if _, err := d.addRelationship(p.part, r.Type, r.Target); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (d *Document) createPage(entry *etree.Element, contents *etree.Document, name string, index int) (*Page, error) {
	if !d.has(partPages) {
		return nil, fmt.Errorf("package has no %s", partPages)
	}
	list, err := d.xmlPart(partPages)
	if err != nil {
		return nil, err
	}
	if index < 0 || index > len(d.pages) {
		index = len(d.pages)
	}
	name = d.UniquePageName(name)
	partName := d.newPartName(dirPages, "page", len(d.pages)+1)

	relID, err := d.addRelationship(partPages, RelTypePage, partName)
	if err != nil {
		return nil, err
	}
	entry.CreateAttr("ID", strconv.Itoa(d.maxPageID()+1))
	entry.CreateAttr("NameU", name)
	entry.CreateAttr("Name", name)
	rel := entry.SelectElement("Rel")
	if rel == nil {
		rel = entry.CreateElement("Rel")
	}
	rel.CreateAttr("r:id", relID)

	if index < len(d.pages) {
		list.Root().InsertChildAt(d.pages[index].entry.Index(), entry)
	} else if len(d.pages) > 0 {
		list.Root().InsertChildAt(d.pages[len(d.pages)-1].entry.Index()+1, entry)
	} else {
		list.Root().AddChild(entry)
	}
	d.touch(partPages)

	d.putXML(partName, contents)
	if err := d.addContentTypeOverride(partName, ContentTypePage); err != nil {
		return nil, err
	}
	d.insertTitle("Pages", index, name)

	p := &Page{doc: d, part: partName, xml: contents, entry: entry, relID: relID}
	p.syncIDs()
	d.pages = slices.Insert(d.pages, index, p)
	d.log.Debug("Page created", zap.String("name", name), zap.String("part", partName), zap.Int("index", index))
	return p, nil
}

// RemovePage drops page with its part, relationships and registrations.
func (d *Document) RemovePage(p *Page) error {
	i := slices.Index(d.pages, p)
	if i < 0 {
		return fmt.Errorf("page %q does not belong to document", p.Name())
	}
	list, err := d.xmlPart(partPages)
	if err != nil {
		return err
	}
	list.Root().RemoveChild(p.entry)
	d.touch(partPages)
	if err := d.removeRelationship(partPages, p.relID); err != nil {
		return err
	}
	if err := d.removeContentTypeOverride(p.part); err != nil {
		return err
	}
	d.removeTitle("Pages", p.Name())
	d.removePart(p.part)
	d.removePart(relsName(p.part))
	d.pages = slices.Delete(d.pages, i, i+1)
	d.log.Debug("Page removed", zap.String("name", p.Name()), zap.String("part", p.part))
	return nil
}

// RemovePageByIndex removes n-th page.
func (d *Document) RemovePageByIndex(n int) error {
	p := d.Page(n)
	if p == nil {
		return fmt.Errorf("no page with index %d", n)
	}
	return d.RemovePage(p)
}

// RemovePageByName removes the first page with a given name.
func (d *Document) RemovePageByName(name string) error {
	p := d.PageByName(name)
	if p == nil {
		return fmt.Errorf("no page named %q", name)
	}
	return d.RemovePage(p)
}
