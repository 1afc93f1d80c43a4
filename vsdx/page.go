package vsdx

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"vtpl/utils/debug"
)

// Page is a drawing page or a master page of the document.
type Page struct {
	doc    *Document
	part   string
	xml    *etree.Document
	entry  *etree.Element // <Page> of pages.xml or <Master> of masters.xml
	relID  string
	master bool

	ids   IDAllocator
	arena arena
}

func (p *Page) touch() {
	p.doc.touch(p.part)
}

func (p *Page) root() *etree.Element {
	if p.xml == nil {
		return nil
	}
	return p.xml.Root()
}

// Root returns <PageContents> element. Call Update after editing it
// directly.
func (p *Page) Root() *etree.Element { return p.root() }

// Update marks page modified and drops cached shape index.
func (p *Page) Update() {
	p.Invalidate()
	p.touch()
}

// Snapshot returns deep copy of page contents suitable for Restore.
func (p *Page) Snapshot() *etree.Document {
	if p.xml == nil {
		return nil
	}
	return p.xml.Copy()
}

// Restore puts snapshot taken earlier back as page contents.
func (p *Page) Restore(snap *etree.Document) {
	if snap == nil {
		return
	}
	p.xml = snap
	if part, ok := p.doc.parts[p.part]; ok {
		part.xml = snap
	}
	p.Update()
}

// Document returns document page belongs to.
func (p *Page) Document() *Document { return p.doc }

// Part returns name of the package part holding page contents.
func (p *Page) Part() string { return p.part }

// RelID returns relationship ID of the page part.
func (p *Page) RelID() string { return p.relID }

// IsMaster reports whether this is a master page.
func (p *Page) IsMaster() bool { return p.master }

func (p *Page) ID() string { return p.entry.SelectAttrValue("ID", "") }

// Name returns universal name if set, local name otherwise.
func (p *Page) Name() string {
	if n := p.entry.SelectAttrValue("NameU", ""); n != "" {
		return n
	}
	return p.entry.SelectAttrValue("Name", "")
}

// SetName sets both local and universal names. Uniqueness is not checked,
// see Document.UniquePageName.
func (p *Page) SetName(name string) {
	old := p.Name()
	p.entry.CreateAttr("Name", name)
	p.entry.CreateAttr("NameU", name)
	p.doc.touch(p.doc.pagesPart(p.master))
	p.doc.renameTitle(p.titleGroup(), old, name)
}

func (p *Page) titleGroup() string {
	if p.master {
		return "Masters"
	}
	return "Pages"
}

// UniqueID returns master UniqueID, empty for drawing pages.
func (p *Page) UniqueID() string { return p.entry.SelectAttrValue("UniqueID", "") }

// Index returns position of the page in document page list or -1.
func (p *Page) Index() int {
	list := p.doc.pages
	if p.master {
		list = p.doc.masters
	}
	for i, cur := range list {
		if cur == p {
			return i
		}
	}
	return -1
}

func (p *Page) pageSheetFloat(name string) float64 {
	if ps := p.entry.SelectElement("PageSheet"); ps != nil {
		if c := findCell(ps, name); c != nil {
			return toFloat(c.SelectAttrValue("V", ""))
		}
	}
	return 0
}

func (p *Page) setPageSheetFloat(name string, v float64) {
	ps := p.entry.SelectElement("PageSheet")
	if ps == nil {
		ps = p.entry.CreateElement("PageSheet")
		ps.Space = p.entry.Space
	}
	if c := findCell(ps, name); c != nil {
		c.CreateAttr("V", FormatFloat(v))
	} else {
		insertCell(ps, newCellElement(p.entry.Space, name, FormatFloat(v)))
	}
	p.doc.touch(p.doc.pagesPart(p.master))
}

func (p *Page) Width() float64      { return p.pageSheetFloat("PageWidth") }
func (p *Page) Height() float64     { return p.pageSheetFloat("PageHeight") }
func (p *Page) SetWidth(v float64)  { p.setPageSheetFloat("PageWidth", v) }
func (p *Page) SetHeight(v float64) { p.setPageSheetFloat("PageHeight", v) }

// shapesElement returns top level <Shapes> container, creating it when asked.
func (p *Page) shapesElement(create bool) *etree.Element {
	root := p.root()
	if root == nil {
		return nil
	}
	if s := root.SelectElement("Shapes"); s != nil || !create {
		return s
	}
	s := etree.NewElement("Shapes")
	s.Space = root.Space
	root.InsertChildAt(0, s)
	return s
}

// ChildShapes returns top level shapes.
func (p *Page) ChildShapes() []*Shape {
	return p.wrap(p.shapeArena().top)
}

// AllShapes returns every shape of the page in document order.
func (p *Page) AllShapes() []*Shape {
	return p.collect(0, len(p.shapeArena().records), false, func(*Shape) bool { return true })
}

// Validate checks structural requirements of every shape on the page.
func (p *Page) Validate() error {
	for _, s := range p.ChildShapes() {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// syncIDs re-derives page allocator from all shape IDs currently present.
func (p *Page) syncIDs() {
	for _, r := range p.shapeArena().records {
		p.ids.ObserveString(r.elem.SelectAttrValue("ID", ""))
	}
}

// MaxID returns the largest shape ID used on the page.
func (p *Page) MaxID() int {
	p.syncIDs()
	return p.ids.Max()
}

// NextID allocates fresh shape ID on the page.
func (p *Page) NextID() int {
	p.syncIDs()
	return p.ids.Next()
}

func (p *Page) warn(w Warning) {
	if w.Page == "" {
		w.Page = p.Name()
	}
	p.doc.warn(w)
}

// ShapeByID returns first shape with given ID.
func (p *Page) ShapeByID(id string) *Shape {
	return first(p.ShapesByID(id))
}

// ShapesByID returns all shapes with given ID. More than one is only
// possible while template is being expanded.
func (p *Page) ShapesByID(id string) []*Shape {
	return p.search(false, func(s *Shape) bool { return s.ID() == id })
}

// ShapeByAttr returns first shape having attribute with given value.
func (p *Page) ShapeByAttr(attr, value string) *Shape {
	return first(p.search(true, func(s *Shape) bool { return s.Attr(attr) == value }))
}

func (p *Page) ShapeByText(text string) *Shape {
	return first(p.search(true, textContains(text)))
}

func (p *Page) ShapesByText(text string) []*Shape {
	return p.search(false, textContains(text))
}

// ShapesByRegex returns shapes which text matches expression.
func (p *Page) ShapesByRegex(expr string) ([]*Shape, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("unable to compile expression: %w", err)
	}
	return p.search(false, func(s *Shape) bool { return re.MatchString(s.Text()) }), nil
}

func (p *Page) ShapeByPropertyLabel(label string) *Shape {
	return first(p.search(true, hasProperty(label)))
}

func (p *Page) ShapesByPropertyLabel(label string) []*Shape {
	return p.search(false, hasProperty(label))
}

func (p *Page) ShapeByPropertyLabelValue(label, value string) *Shape {
	return first(p.search(true, hasPropertyValue(label, value)))
}

func (p *Page) ShapesByPropertyLabelValue(label, value string) []*Shape {
	return p.search(false, hasPropertyValue(label, value))
}

// ShapesWithSameMaster returns all shapes based on the same master shape as s.
func (p *Page) ShapesWithSameMaster(s *Shape) []*Shape {
	mid, msid := s.MasterID(), s.MasterShapeID()
	return p.search(false, func(c *Shape) bool {
		return c.MasterID() == mid && c.MasterShapeID() == msid
	})
}

func (p *Page) search(firstOnly bool, match func(*Shape) bool) []*Shape {
	return p.collect(0, len(p.shapeArena().records), firstOnly, match)
}

// find searches shape subtree excluding the shape itself.
func (s *Shape) find(firstOnly bool, match func(*Shape) bool) []*Shape {
	i, ok := s.page.lookup(s.elem)
	if !ok {
		return nil
	}
	return s.page.collect(i+1, s.page.shapeArena().records[i].end, firstOnly, match)
}

func (s *Shape) ShapeByID(id string) *Shape {
	return first(s.find(true, func(c *Shape) bool { return c.ID() == id }))
}

func (s *Shape) ShapesByID(id string) []*Shape {
	return s.find(false, func(c *Shape) bool { return c.ID() == id })
}

func (s *Shape) ShapeByText(text string) *Shape {
	return first(s.find(true, textContains(text)))
}

func (s *Shape) ShapesByText(text string) []*Shape {
	return s.find(false, textContains(text))
}

func (s *Shape) ShapesByMaster(masterID, masterShapeID string) []*Shape {
	return s.find(false, func(c *Shape) bool {
		return c.MasterID() == masterID && c.MasterShapeID() == masterShapeID
	})
}

func (s *Shape) ShapeByPropertyLabel(label string) *Shape {
	return first(s.find(true, hasProperty(label)))
}

func (s *Shape) ShapesByPropertyLabel(label string) []*Shape {
	return s.find(false, hasProperty(label))
}

func textContains(text string) func(*Shape) bool {
	return func(s *Shape) bool { return strings.Contains(s.Text(), text) }
}

func hasProperty(label string) func(*Shape) bool {
	return func(s *Shape) bool {
		_, ok := s.DataProperties()[label]
		return ok
	}
}

func hasPropertyValue(label, value string) func(*Shape) bool {
	return func(s *Shape) bool {
		dp, ok := s.DataProperties()[label]
		return ok && dp.Value == value
	}
}

func first(list []*Shape) *Shape {
	if len(list) == 0 {
		return nil
	}
	return list[0]
}

// ApplyTextContext substitutes "{{key}}" placeholders in all page shapes.
func (p *Page) ApplyTextContext(context map[string]any) {
	for _, s := range p.ChildShapes() {
		s.ApplyTextFilter(context)
	}
	p.doc.touch(p.part)
}

// FindReplace replaces text in all page shapes.
func (p *Page) FindReplace(old, replacement string) {
	for _, s := range p.ChildShapes() {
		s.FindReplace(old, replacement)
	}
	p.doc.touch(p.part)
}

// Dump returns indented tree of page shapes for debugging.
func (p *Page) Dump() string {
	tw := debug.NewTreeWriter()
	kind := "Page"
	if p.master {
		kind = "Master"
	}
	tw.Node(0, kind, "ID", p.ID(), "Name", p.Name(), "Part", p.part)
	var dump func(depth int, shapes []*Shape)
	dump = func(depth int, shapes []*Shape) {
		for _, s := range shapes {
			tw.Node(depth, "Shape", "ID", s.ID(), "Type", s.Type(), "Name", s.Name(), "Master", s.MasterID())
			tw.Node(depth+1, "Pos", "X", FormatFloat(s.X()), "Y", FormatFloat(s.Y()),
				"W", FormatFloat(s.Width()), "H", FormatFloat(s.Height()))
			if s.HasText() {
				tw.Value(depth+1, "Text", s.Text())
			}
			for _, dp := range s.DataPropertyList() {
				tw.Value(depth+1, "Prop "+dp.Label, dp.Value)
			}
			dump(depth+1, s.ChildShapes())
		}
	}
	dump(1, p.ChildShapes())
	for _, c := range p.Connects() {
		tw.Node(1, "Connect", "From", c.FromSheet, "FromCell", c.FromCell, "To", c.ToSheet, "ToCell", c.ToCell)
	}
	return tw.String()
}

func (p *Page) String() string {
	return fmt.Sprintf("<Page name=%s file=%s>", p.Name(), p.part)
}
