// Package vsdx implements object model over Visio (VSDX) packages: pages,
// masters, shapes with master inheritance, shape copy with ID remapping and
// connectors.
package vsdx

// XML namespaces used by VSDX parts.
const (
	NSMain          = "http://schemas.microsoft.com/office/visio/2012/main"
	NSRel           = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NSPackageRels   = "http://schemas.openxmlformats.org/package/2006/relationships"
	NSContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	NSExtProperties = "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"
	NSDocPropsVT    = "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes"
)

// Relationship types.
const (
	RelTypePage    = "http://schemas.microsoft.com/visio/2010/relationships/page"
	RelTypeMaster  = "http://schemas.microsoft.com/visio/2010/relationships/master"
	RelTypeMasters = "http://schemas.microsoft.com/visio/2010/relationships/masters"
)

// Content types.
const (
	ContentTypePage    = "application/vnd.ms-visio.page+xml"
	ContentTypeMasters = "application/vnd.ms-visio.masters+xml"
	ContentTypeMaster  = "application/vnd.ms-visio.master+xml"
)

// Well known part names.
const (
	partContentTypes = "[Content_Types].xml"
	partApp          = "docProps/app.xml"
	partDocument     = "visio/document.xml"
	partDocumentRels = "visio/_rels/document.xml.rels"
	partPages        = "visio/pages/pages.xml"
	partPagesRels    = "visio/pages/_rels/pages.xml.rels"
	partMasters      = "visio/masters/masters.xml"
	partMastersRels  = "visio/masters/_rels/masters.xml.rels"

	dirPages   = "visio/pages/"
	dirMasters = "visio/masters/"
)

const xmlHeader = `version="1.0" encoding="utf-8" standalone="yes"`
