package vsdx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ensureMastersPart creates masters list, its document relationship and
// content type registration when document has no masters yet.
func (d *Document) ensureMastersPart() error {
	if d.has(partMasters) {
		return nil
	}
	doc := newXML("Masters", NSMain)
	doc.Root().CreateAttr("xmlns:r", NSRel)
	d.putXML(partMasters, doc)
	if _, err := d.addRelationship(partDocument, RelTypeMasters, partMasters); err != nil {
		return err
	}
	return d.addContentTypeOverride(partMasters, ContentTypeMasters)
}

func (d *Document) maxMasterID() int {
	max := 0
	for _, m := range d.masters {
		if n, err := strconv.Atoi(m.ID()); err == nil && n > max {
			max = n
		}
	}
	return max
}

func (d *Document) newPartName(dir, prefix string, start int) string {
	for n := start; ; n++ {
		name := fmt.Sprintf("%s%s%d.xml", dir, prefix, n)
		if !d.has(name) {
			return name
		}
	}
}

// lookupMaster finds master matching src by UniqueID, then by universal name.
func (d *Document) lookupMaster(src *Page) *Page {
	if m := d.masterByUniqueID(src.UniqueID()); m != nil {
		return m
	}
	return d.masterByName(src.Name())
}

// importMaster makes master page of another document available in d.
// Returned flag is true when matching master was already present.
func (d *Document) importMaster(src *Page) (*Page, bool, error) {
	if m := d.lookupMaster(src); m != nil {
		return m, true, nil
	}
	if !d.opts.importMasters {
		return nil, false, &Error{Kind: KindPartialFeature, Page: src.Name(), Err: ErrMissingMaster}
	}
	if err := d.ensureMastersPart(); err != nil {
		return nil, false, fmt.Errorf("unable to create masters list: %w", err)
	}
	list, err := d.xmlPart(partMasters)
	if err != nil {
		return nil, false, err
	}

	id := src.ID()
	if d.MasterPageByID(id) != nil {
		id = strconv.Itoa(d.maxMasterID() + 1)
	}
	name := d.newPartName(dirMasters, "master", len(d.masters)+1)
	d.putXML(name, src.xml.Copy())

	relID, err := d.addRelationship(partMasters, RelTypeMaster, name)
	if err != nil {
		return nil, false, err
	}
	entry := src.entry.Copy()
	entry.CreateAttr("ID", id)
	if entry.SelectAttrValue("UniqueID", "") == "" {
		entry.CreateAttr("UniqueID", "{"+strings.ToUpper(uuid.NewString())+"}")
	}
	rel := entry.SelectElement("Rel")
	if rel == nil {
		rel = entry.CreateElement("Rel")
	}
	rel.CreateAttr("r:id", relID)
	list.Root().AddChild(entry)
	d.touch(partMasters)

	if err := d.addContentTypeOverride(name, ContentTypeMaster); err != nil {
		return nil, false, err
	}
	d.insertTitle("Masters", -1, src.Name())

	m := &Page{doc: d, part: name, xml: d.parts[name].xml, entry: entry, relID: relID, master: true}
	m.syncIDs()
	d.masters = append(d.masters, m)
	d.log.Debug("Master imported", zap.String("name", m.Name()), zap.String("id", id), zap.String("part", name))
	return m, false, nil
}

// ensurePageMasterRel makes sure page refers to master part. Missing
// relationship to master which was already part of the document is repaired
// with a warning.
func (p *Page) ensurePageMasterRel(m *Page, existed bool) error {
	ok, err := p.doc.hasRelationship(p.part, RelTypeMaster, m.part)
	if err != nil || ok {
		return err
	}
	if _, err := p.doc.addRelationship(p.part, RelTypeMaster, m.part); err != nil {
		return err
	}
	if existed {
		p.warn(Warning{
			Kind:    KindPartialFeature,
			Message: fmt.Sprintf("page had no relationship to master %q, added one", m.Name()),
		})
	}
	return nil
}
