package vsdx

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Relationship is an entry of part relationships. Target is resolved to
// package part name.
type Relationship struct {
	ID     string
	Type   string
	Target string
}

// relsName returns name of relationships part for the source part.
func relsName(source string) string {
	return path.Join(path.Dir(source), "_rels", path.Base(source)+".rels")
}

func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(source), target)
}

// relativeTarget returns target part name relative to source part directory.
func relativeTarget(source, target string) string {
	from := strings.Split(path.Dir(source), "/")
	if path.Dir(source) == "." {
		from = nil
	}
	to := strings.Split(target, "/")
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	var b []string
	for range from[i:] {
		b = append(b, "..")
	}
	return strings.Join(append(b, to[i:]...), "/")
}

func (d *Document) relsDoc(source string, create bool) (*etree.Document, error) {
	name := relsName(source)
	if d.has(name) {
		return d.xmlPart(name)
	}
	if !create {
		return nil, nil
	}
	doc := newXML("Relationships", NSPackageRels)
	d.putXML(name, doc)
	return doc, nil
}

// relationships returns relationships of the source part, nil if it has none.
func (d *Document) relationships(source string) ([]Relationship, error) {
	doc, err := d.relsDoc(source, false)
	if err != nil || doc == nil || doc.Root() == nil {
		return nil, err
	}
	var rels []Relationship
	for _, e := range doc.Root().ChildElements() {
		if e.Tag != "Relationship" {
			continue
		}
		target := e.SelectAttrValue("Target", "")
		if e.SelectAttrValue("TargetMode", "") != "External" {
			target = resolveTarget(source, target)
		}
		rels = append(rels, Relationship{
			ID:     e.SelectAttrValue("Id", ""),
			Type:   e.SelectAttrValue("Type", ""),
			Target: target,
		})
	}
	return rels, nil
}

// AllocateRelationshipID returns next free "rIdN" identifier for relationships
// of the source part.
func (d *Document) AllocateRelationshipID(source string) (string, error) {
	rels, err := d.relationships(source)
	if err != nil {
		return "", err
	}
	max := 0
	for _, r := range rels {
		if n, err := strconv.Atoi(strings.TrimPrefix(r.ID, "rId")); err == nil && n > max {
			max = n
		}
	}
	return "rId" + strconv.Itoa(max+1), nil
}

// addRelationship registers target part in source relationships, creating
// relationships part if necessary.
func (d *Document) addRelationship(source, relType, target string) (string, error) {
	id, err := d.AllocateRelationshipID(source)
	if err != nil {
		return "", err
	}
	doc, err := d.relsDoc(source, true)
	if err != nil {
		return "", err
	}
	e := doc.Root().CreateElement("Relationship")
	e.CreateAttr("Id", id)
	e.CreateAttr("Type", relType)
	e.CreateAttr("Target", relativeTarget(source, target))
	d.touch(relsName(source))
	return id, nil
}

func (d *Document) removeRelationship(source, id string) error {
	doc, err := d.relsDoc(source, false)
	if err != nil || doc == nil {
		return err
	}
	for _, e := range doc.Root().ChildElements() {
		if e.Tag == "Relationship" && e.SelectAttrValue("Id", "") == id {
			doc.Root().RemoveChild(e)
			d.touch(relsName(source))
			break
		}
	}
	return nil
}

// hasRelationship reports whether source part already refers to target.
func (d *Document) hasRelationship(source, relType, target string) (bool, error) {
	rels, err := d.relationships(source)
	if err != nil {
		return false, err
	}
	for _, r := range rels {
		if r.Type == relType && r.Target == target {
			return true, nil
		}
	}
	return false, nil
}

func (d *Document) contentTypes() (*etree.Element, error) {
	doc, err := d.xmlPart(partContentTypes)
	if err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%s is empty", partContentTypes)
	}
	return doc.Root(), nil
}

// addContentTypeOverride registers part, new override is placed after the
// last override of the same content type.
func (d *Document) addContentTypeOverride(partName, contentType string) error {
	root, err := d.contentTypes()
	if err != nil {
		return err
	}
	name := "/" + partName
	pos := -1
	for _, e := range root.ChildElements() {
		if e.Tag != "Override" {
			continue
		}
		if e.SelectAttrValue("PartName", "") == name {
			return nil
		}
		if e.SelectAttrValue("ContentType", "") == contentType {
			pos = e.Index() + 1
		}
	}
	o := etree.NewElement("Override")
	o.Space = root.Space
	o.CreateAttr("PartName", name)
	o.CreateAttr("ContentType", contentType)
	if pos < 0 {
		root.AddChild(o)
	} else {
		root.InsertChildAt(pos, o)
	}
	d.touch(partContentTypes)
	return nil
}

func (d *Document) removeContentTypeOverride(partName string) error {
	root, err := d.contentTypes()
	if err != nil {
		return err
	}
	for _, e := range root.ChildElements() {
		if e.Tag == "Override" && e.SelectAttrValue("PartName", "") == "/"+partName {
			root.RemoveChild(e)
			d.touch(partContentTypes)
		}
	}
	return nil
}

// ContentTypeOverride returns content type registered for a part.
func (d *Document) ContentTypeOverride(partName string) string {
	root, err := d.contentTypes()
	if err != nil {
		return ""
	}
	for _, e := range root.ChildElements() {
		if e.Tag == "Override" && e.SelectAttrValue("PartName", "") == "/"+partName {
			return e.SelectAttrValue("ContentType", "")
		}
	}
	return ""
}

// App properties keep a list of heading pairs (group name and number of
// titles) and a flat list of titles ordered by group.

type headingPair struct {
	name  string
	count *etree.Element
}

func (d *Document) appRoot() *etree.Element {
	if !d.has(partApp) {
		return nil
	}
	doc, err := d.xmlPart(partApp)
	if err != nil {
		d.log.Debug("Unable to parse application properties")
		return nil
	}
	return doc.Root()
}

func vectorOf(root *etree.Element, section string) *etree.Element {
	if root == nil {
		return nil
	}
	s := root.SelectElement(section)
	if s == nil {
		return nil
	}
	return s.SelectElement("vector")
}

func (d *Document) headingPairs() []headingPair {
	vec := vectorOf(d.appRoot(), "HeadingPairs")
	if vec == nil {
		return nil
	}
	var pairs []headingPair
	variants := vec.SelectElements("variant")
	for i := 0; i+1 < len(variants); i += 2 {
		name := variants[i].SelectElement("lpstr")
		count := variants[i+1].SelectElement("i4")
		if name == nil || count == nil {
			continue
		}
		pairs = append(pairs, headingPair{name: name.Text(), count: count})
	}
	return pairs
}

// AppValue returns count of the heading pair (for example "Pages").
func (d *Document) AppValue(name string) (int, bool) {
	for _, hp := range d.headingPairs() {
		if hp.name == name {
			n, err := strconv.Atoi(strings.TrimSpace(hp.count.Text()))
			return n, err == nil
		}
	}
	return 0, false
}

// SetAppValue sets count of the heading pair, creating the pair if needed.
func (d *Document) SetAppValue(name string, v int) {
	for _, hp := range d.headingPairs() {
		if hp.name == name {
			hp.count.SetText(strconv.Itoa(v))
			d.touch(partApp)
			return
		}
	}
	vec := vectorOf(d.appRoot(), "HeadingPairs")
	if vec == nil {
		return
	}
	vec.CreateElement("vt:variant").CreateElement("vt:lpstr").SetText(name)
	vec.CreateElement("vt:variant").CreateElement("vt:i4").SetText(strconv.Itoa(v))
	setVectorSize(vec)
	d.touch(partApp)
}

func setVectorSize(vec *etree.Element) {
	vec.CreateAttr("size", strconv.Itoa(len(vec.ChildElements())))
}

// TitlesOfParts returns all titles from application properties.
func (d *Document) TitlesOfParts() []string {
	vec := vectorOf(d.appRoot(), "TitlesOfParts")
	if vec == nil {
		return nil
	}
	var titles []string
	for _, e := range vec.ChildElements() {
		titles = append(titles, e.Text())
	}
	return titles
}

// groupRange returns offset of the group in the titles list and its size.
func (d *Document) groupRange(group string) (int, int, bool) {
	offset := 0
	for _, hp := range d.headingPairs() {
		n, _ := strconv.Atoi(strings.TrimSpace(hp.count.Text()))
		if hp.name == group {
			return offset, n, true
		}
		offset += n
	}
	return offset, 0, false
}

// insertTitle adds title to the group at index (negative index appends).
func (d *Document) insertTitle(group string, index int, title string) {
	vec := vectorOf(d.appRoot(), "TitlesOfParts")
	if vec == nil {
		return
	}
	offset, n, ok := d.groupRange(group)
	if !ok {
		d.SetAppValue(group, 0)
	}
	if index < 0 || index > n {
		index = n
	}
	e := etree.NewElement("vt:lpstr")
	e.SetText(title)
	children := vec.ChildElements()
	if pos := offset + index; pos < len(children) {
		vec.InsertChildAt(children[pos].Index(), e)
	} else {
		vec.AddChild(e)
	}
	setVectorSize(vec)
	d.SetAppValue(group, n+1)
}

// removeTitle removes title from the group.
func (d *Document) removeTitle(group, title string) {
	vec := vectorOf(d.appRoot(), "TitlesOfParts")
	if vec == nil {
		return
	}
	offset, n, ok := d.groupRange(group)
	if !ok {
		return
	}
	children := vec.ChildElements()
	for i := offset; i < offset+n && i < len(children); i++ {
		if children[i].Text() == title {
			vec.RemoveChild(children[i])
			setVectorSize(vec)
			d.SetAppValue(group, n-1)
			return
		}
	}
}

// renameTitle replaces title in the group.
func (d *Document) renameTitle(group, old, title string) {
	vec := vectorOf(d.appRoot(), "TitlesOfParts")
	if vec == nil {
		return
	}
	offset, n, _ := d.groupRange(group)
	children := vec.ChildElements()
	for i := offset; i < offset+n && i < len(children); i++ {
		if children[i].Text() == old {
			children[i].SetText(title)
			d.touch(partApp)
			return
		}
	}
}

func (d *Document) styleSheets() *etree.Element {
	if !d.has(partDocument) {
		return nil
	}
	doc, err := d.xmlPart(partDocument)
	if err != nil || doc.Root() == nil {
		return nil
	}
	return doc.Root().SelectElement("StyleSheets")
}

// StyleByID returns StyleSheet element of document.xml or nil.
func (d *Document) StyleByID(id string) *etree.Element {
	if ss := d.styleSheets(); ss != nil {
		for _, e := range ss.SelectElements("StyleSheet") {
			if e.SelectAttrValue("ID", "") == id {
				return e
			}
		}
	}
	return nil
}

// StyleByName returns StyleSheet element of document.xml or nil.
func (d *Document) StyleByName(name string) *etree.Element {
	if ss := d.styleSheets(); ss != nil {
		for _, e := range ss.SelectElements("StyleSheet") {
			if e.SelectAttrValue("Name", "") == name || e.SelectAttrValue("NameU", "") == name {
				return e
			}
		}
	}
	return nil
}

// StyleNames returns names of all document styles.
func (d *Document) StyleNames() []string {
	var names []string
	if ss := d.styleSheets(); ss != nil {
		for _, e := range ss.SelectElements("StyleSheet") {
			names = append(names, e.SelectAttrValue("Name", ""))
		}
	}
	return names
}

// addStyle appends copy of the style to document style sheets.
func (d *Document) addStyle(style *etree.Element) error {
	ss := d.styleSheets()
	if ss == nil {
		doc, err := d.xmlPart(partDocument)
		if err != nil {
			return err
		}
		if doc.Root() == nil {
			return fmt.Errorf("%s is empty", partDocument)
		}
		ss = doc.Root().CreateElement("StyleSheets")
	}
	ss.AddChild(style.Copy())
	d.touch(partDocument)
	return nil
}
