package vsdx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"github.com/h2non/filetype"
	fixzip "github.com/hidez8891/zip"
	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"vtpl/archive"
)

// Option changes document behavior.
type Option func(*options)

type options struct {
	strictIDs     bool
	importMasters bool
}

// WithStrictIDs makes shape without ID a configuration error during remap
// (default), otherwise such shapes are skipped with a warning.
func WithStrictIDs(strict bool) Option {
	return func(o *options) { o.strictIDs = strict }
}

// WithMasterImport allows copying masters from other documents when copied
// shape refers to a master absent in destination (default).
func WithMasterImport(enable bool) Option {
	return func(o *options) { o.importMasters = enable }
}

// part is a single entry of the package. XML parts are parsed on first
// access and serialized back on save.
type part struct {
	data  []byte
	xml   *etree.Document
	dirty bool
}

// Document is an opened VSDX package.
type Document struct {
	log  *zap.Logger
	opts options
	path string

	parts    map[string]*part
	pages    []*Page
	masters  []*Page
	warnings []Warning
}

// Open reads VSDX package from file.
func Open(path string, log *zap.Logger, opts ...Option) (*Document, error) {
	head, err := readHead(path)
	if err != nil {
		return nil, err
	}
	if !filetype.Is(head, "zip") {
		return nil, fmt.Errorf("%s is not a zip package", path)
	}

	parts := make(map[string][]byte)
	if err := archive.Walk(path, archive.All, func(f *zip.File) error {
		data, err := archive.ReadFile(f)
		if err != nil {
			return err
		}
		parts[f.Name] = data
		return nil
	}); err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}

	d, err := Load(parts, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load %s: %w", path, err)
	}
	d.path = path
	return d, nil
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open document: %w", err)
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to read document: %w", err)
	}
	return head[:n], nil
}

// Load builds document from package parts already in memory.
func Load(parts map[string][]byte, log *zap.Logger, opts ...Option) (*Document, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Document{
		log:   log.Named("vsdx"),
		opts:  options{strictIDs: true, importMasters: true},
		parts: make(map[string]*part, len(parts)),
	}
	for _, o := range opts {
		o(&d.opts)
	}
	for name, data := range parts {
		d.parts[name] = &part{data: data}
	}

	if _, ok := d.parts[partContentTypes]; !ok {
		return nil, fmt.Errorf("package has no %s", partContentTypes)
	}
	var err error
	if d.masters, err = d.loadPages(true); err != nil {
		return nil, err
	}
	if d.pages, err = d.loadPages(false); err != nil {
		return nil, err
	}
	if err := d.validateMasters(); err != nil {
		return nil, err
	}
	d.log.Debug("Document loaded", zap.Int("pages", len(d.pages)), zap.Int("masters", len(d.masters)))
	return d, nil
}

func parseXML(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	return doc, nil
}

// newXML creates empty XML part with root element in a given namespace.
func newXML(root, ns string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", xmlHeader)
	doc.CreateElement(root).CreateAttr("xmlns", ns)
	return doc
}

func (d *Document) has(name string) bool {
	_, ok := d.parts[name]
	return ok
}

// xmlPart returns parsed part.
func (d *Document) xmlPart(name string) (*etree.Document, error) {
	p, ok := d.parts[name]
	if !ok {
		return nil, fmt.Errorf("package has no part %s", name)
	}
	if p.xml == nil {
		doc, err := parseXML(p.data)
		if err != nil {
			return nil, fmt.Errorf("unable to parse %s: %w", name, err)
		}
		p.xml = doc
	}
	return p.xml, nil
}

// putXML adds new or replaces existing XML part.
func (d *Document) putXML(name string, doc *etree.Document) {
	d.parts[name] = &part{xml: doc, dirty: true}
}

func (d *Document) removePart(name string) {
	delete(d.parts, name)
}

func (d *Document) touch(name string) {
	if d == nil {
		return
	}
	if p, ok := d.parts[name]; ok {
		p.dirty = true
	}
}

// Changed reports whether any part was modified since document was loaded.
func (d *Document) Changed() bool {
	for _, p := range d.parts {
		if p.dirty {
			return true
		}
	}
	return false
}

// Path returns file document was opened from, empty for documents built in
// memory.
func (d *Document) Path() string { return d.path }

// PartNames returns names of all package parts in save order.
func (d *Document) PartNames() []string {
	names := make([]string, 0, len(d.parts))
	for name := range d.parts {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case a == partContentTypes:
			return -1
		case b == partContentTypes:
			return 1
		case natural.Less(a, b):
			return -1
		}
		return 1
	})
	return names
}

// PartData returns current content of the part.
func (d *Document) PartData(name string) ([]byte, error) {
	p, ok := d.parts[name]
	if !ok {
		return nil, fmt.Errorf("package has no part %s", name)
	}
	if p.xml == nil {
		return p.data, nil
	}
	return p.xml.WriteToBytes()
}

func (d *Document) pagesPart(master bool) string {
	if master {
		return partMasters
	}
	return partPages
}

func (d *Document) loadPages(master bool) ([]*Page, error) {
	listName, tag := partPages, "Page"
	if master {
		listName, tag = partMasters, "Master"
	}
	if !d.has(listName) {
		return nil, nil
	}
	list, err := d.xmlPart(listName)
	if err != nil {
		return nil, err
	}
	if list.Root() == nil {
		return nil, fmt.Errorf("%s is empty", listName)
	}
	rels, err := d.relationships(listName)
	if err != nil {
		return nil, err
	}

	var pages []*Page
	for _, e := range list.Root().ChildElements() {
		if e.Tag != tag {
			continue
		}
		rel := e.SelectElement("Rel")
		if rel == nil {
			return nil, fmt.Errorf("%s: %s %q has no relationship", listName, tag, e.SelectAttrValue("Name", ""))
		}
		relID := rel.SelectAttrValue("r:id", "")
		target := ""
		for _, r := range rels {
			if r.ID == relID {
				target = r.Target
				break
			}
		}
		if target == "" {
			return nil, fmt.Errorf("%s: relationship %s of %s %q not found", listName, relID, tag, e.SelectAttrValue("Name", ""))
		}
		x, err := d.xmlPart(target)
		if err != nil {
			return nil, err
		}
		p := &Page{doc: d, part: target, xml: x, entry: e, relID: relID, master: master}
		p.syncIDs()
		pages = append(pages, p)
	}
	return pages, nil
}

// validateMasters makes sure no master inherits from itself, directly or
// through other masters.
func (d *Document) validateMasters() error {
	refs := make(map[string][]string)
	for _, m := range d.masters {
		for _, s := range m.AllShapes() {
			if ref := s.Attr("Master"); ref != "" && !slices.Contains(refs[m.ID()], ref) {
				refs[m.ID()] = append(refs[m.ID()], ref)
			}
		}
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			name := id
			if m := d.MasterPageByID(id); m != nil {
				name = m.Name()
			}
			return &Error{Kind: KindConfiguration, Page: name, Err: ErrMasterCycle}
		case done:
			return nil
		}
		state[id] = visiting
		for _, ref := range refs[id] {
			if err := visit(ref); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	for _, m := range d.masters {
		if err := visit(m.ID()); err != nil {
			return err
		}
	}
	return nil
}

// Pages returns drawing pages in document order.
func (d *Document) Pages() []*Page {
	return slices.Clone(d.pages)
}

// Page returns n-th page or nil.
func (d *Document) Page(n int) *Page {
	if n < 0 || n >= len(d.pages) {
		return nil
	}
	return d.pages[n]
}

func (d *Document) PageNames() []string {
	names := make([]string, 0, len(d.pages))
	for _, p := range d.pages {
		names = append(names, p.Name())
	}
	return names
}

// PageByName returns first page with a given name.
func (d *Document) PageByName(name string) *Page {
	for _, p := range d.pages {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// MasterPages returns master pages in document order.
func (d *Document) MasterPages() []*Page {
	return slices.Clone(d.masters)
}

// MasterPageByID returns master page with a given ID or nil.
func (d *Document) MasterPageByID(id string) *Page {
	for _, m := range d.masters {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

func (d *Document) masterByName(name string) *Page {
	for _, m := range d.masters {
		if m.Name() == name || m.entry.SelectAttrValue("Name", "") == name {
			return m
		}
	}
	return nil
}

func (d *Document) masterByUniqueID(id string) *Page {
	if id == "" {
		return nil
	}
	for _, m := range d.masters {
		if strings.EqualFold(m.UniqueID(), id) {
			return m
		}
	}
	return nil
}

// Save writes document to a new package file.
func (d *Document) Save(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", path, err)
	}
	defer out.Close()

	if _, err := d.WriteTo(out); err != nil {
		return fmt.Errorf("unable to write target file (%s): %w", path, err)
	}
	return out.Close()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// WriteTo writes document as zip package.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	for _, name := range d.PartNames() {
		data, err := d.PartData(name)
		if err != nil {
			return cw.n, fmt.Errorf("unable to serialize %s: %w", name, err)
		}
		fw, err := zw.Create(name)
		if err != nil {
			return cw.n, fmt.Errorf("unable to create %s: %w", name, err)
		}
		if _, err := io.Copy(fw, bytes.NewReader(data)); err != nil {
			return cw.n, fmt.Errorf("unable to write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// SaveRaw copies original package entries to path without recompression.
// Only usable for documents opened from file.
func (d *Document) SaveRaw(path string) error {
	if d.path == "" {
		return errors.New("document was not opened from file")
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", path, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(d.path)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", d.path, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	for _, file := range r.File {
		file.Flags &= ^fixzip.FlagDataDescriptor
		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", path, err)
		}
	}
	return nil
}
