package vsdx

import (
	"errors"
	"fmt"
	"slices"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// reindexElement remaps detached or attached shape subtree with page
// allocator and rewrites references inside it.
func (p *Page) reindexElement(e *etree.Element) (IDMap, error) {
	p.syncIDs()
	m, err := Remap(e, &p.ids, RemapOptions{Strict: p.doc.opts.strictIDs, Log: p.doc.log, Warn: p.warn})
	if err != nil {
		var re *Error
		if errors.As(err, &re) && re.Page == "" {
			re.Page = p.Name()
			re.ShapeID = e.SelectAttrValue("ID", "")
		}
		return nil, err
	}
	if dangling := RewriteReferences(e, m); len(dangling) > 0 {
		p.doc.log.Debug("References outside of remapped subtree left as is",
			zap.String("page", p.Name()), zap.Strings("ids", dangling))
	}
	p.doc.touch(p.part)
	return m, nil
}

// Reindex gives shape subtree fresh page-unique IDs and rewrites formula
// references inside it accordingly.
func (p *Page) Reindex(s *Shape) (IDMap, error) {
	return p.reindexElement(s.elem)
}

// linkMasters makes sure masters used by clone of src exist in dst document
// and dst page refers to them. Master attributes of the clone are adjusted if
// master got different ID.
func (dst *Page) linkMasters(src *Shape, clone *etree.Element) error {
	var ids []string
	if mid := src.MasterID(); mid != "" && clone.SelectAttr("Master") == nil {
		// inherited from the parent group, make it explicit on the copy
		clone.CreateAttr("Master", mid)
	}
	elems := shapeElements(clone)
	for _, e := range elems {
		if mid := e.SelectAttrValue("Master", ""); mid != "" && !slices.Contains(ids, mid) {
			ids = append(ids, mid)
		}
	}

	for _, mid := range ids {
		srcMaster := src.page.doc.MasterPageByID(mid)
		if srcMaster == nil {
			continue
		}
		m, existed := srcMaster, true
		if src.page.doc != dst.doc {
			var err error
			if m, existed, err = dst.doc.importMaster(srcMaster); err != nil {
				var e *Error
				if errors.As(err, &e) {
					e.Page = dst.Name()
					e.ShapeID = src.ID()
				}
				return err
			}
		}
		if m.ID() != mid {
			for _, e := range elems {
				if a := e.SelectAttr("Master"); a != nil && a.Value == mid {
					a.Value = m.ID()
				}
			}
			dst.warn(Warning{
				Kind:    KindPartialFeature,
				ShapeID: src.ID(),
				Message: fmt.Sprintf("master %q imported with ID %s instead of %s", m.Name(), m.ID(), mid),
			})
		}
		if err := dst.ensurePageMasterRel(m, existed); err != nil {
			return fmt.Errorf("unable to link master %q: %w", m.Name(), err)
		}
	}
	return nil
}

// Copy duplicates shape subtree into dst page top level shapes. Copy gets
// fresh IDs above any existing on dst, references inside copied subtree
// follow. Source is not modified.
func (s *Shape) Copy(dst *Page) (*Shape, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	clone := s.elem.Copy()
	if err := dst.linkMasters(s, clone); err != nil {
		return nil, err
	}
	if _, err := dst.reindexElement(clone); err != nil {
		return nil, err
	}
	dst.shapesElement(true).AddChild(clone)
	dst.Invalidate()
	return &Shape{elem: clone, page: dst}, nil
}

// AppendShape copies src into this shape children turning it into a group
// if necessary.
func (s *Shape) AppendShape(src *Shape) (*Shape, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	clone := src.elem.Copy()
	if err := s.page.linkMasters(src, clone); err != nil {
		return nil, err
	}
	if _, err := s.page.reindexElement(clone); err != nil {
		return nil, err
	}
	shapes := s.shapesElement()
	if shapes == nil {
		shapes = s.elem.CreateElement("Shapes")
		shapes.Space = s.elem.Space
		s.elem.CreateAttr("Type", "Group")
	}
	shapes.AddChild(clone)
	s.page.Invalidate()
	return &Shape{elem: clone, page: s.page}, nil
}
