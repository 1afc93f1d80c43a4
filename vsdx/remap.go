package vsdx

import (
	"regexp"
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// IDMap maps old shape IDs to newly allocated ones.
type IDMap map[string]string

// RemapOptions controls ID reassignment.
type RemapOptions struct {
	// Strict turns shape without ID into an error, otherwise it is skipped
	// with a warning.
	Strict bool
	Log    *zap.Logger
	// Warn receives recoverable problems, may be nil.
	Warn func(Warning)
}

var sheetRef = regexp.MustCompile(`Sheet\.(\d+)!`)

// shapeElements returns Shape elements of the subtree in pre-order: a group
// before its children. Descent happens only through Shapes containers.
func shapeElements(root *etree.Element) []*etree.Element {
	var out []*etree.Element
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		switch e.Tag {
		case "Shape":
			out = append(out, e)
			for _, c := range e.ChildElements() {
				if c.Tag == "Shapes" {
					walk(c)
				}
			}
		case "Shapes", "PageContents", "MasterContents":
			for _, c := range e.ChildElements() {
				if c.Tag == "Shape" || c.Tag == "Shapes" {
					walk(c)
				}
			}
		}
	}
	walk(root)
	return out
}

// Remap assigns fresh IDs from ids to every shape of the subtree in
// pre-order and returns the mapping. Nothing is changed when strict mode
// finds a shape without ID.
func Remap(root *etree.Element, ids *IDAllocator, opts RemapOptions) (IDMap, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	shapes := shapeElements(root)
	if opts.Strict {
		for _, s := range shapes {
			if s.SelectAttr("ID") == nil {
				return nil, &Error{Kind: KindConfiguration, Err: ErrMissingID}
			}
		}
	}

	m := make(IDMap, len(shapes))
	for _, s := range shapes {
		old := s.SelectAttr("ID")
		if old == nil {
			w := Warning{Kind: KindMissingReference, Message: "shape without ID skipped during remap"}
			if opts.Warn != nil {
				opts.Warn(w)
			} else {
				log.Warn(w.Message)
			}
			continue
		}
		id := strconv.Itoa(ids.Next())
		m[old.Value] = id
		s.CreateAttr("ID", id)
	}
	return m, nil
}

// RewriteReferences updates every F attribute in the subtree replacing
// Sheet.<old>! with Sheet.<new>! for mapped IDs. References to IDs absent from
// the map are left as is and returned.
func RewriteReferences(root *etree.Element, m IDMap) (dangling []string) {
	seen := make(map[string]bool)
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		if f := e.SelectAttr("F"); f != nil && sheetRef.MatchString(f.Value) {
			f.Value = sheetRef.ReplaceAllStringFunc(f.Value, func(ref string) string {
				old := sheetRef.FindStringSubmatch(ref)[1]
				if id, ok := m[old]; ok {
					return "Sheet." + id + "!"
				}
				if !seen[old] {
					seen[old] = true
					dangling = append(dangling, old)
				}
				return ref
			})
		}
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(root)
	return dangling
}
