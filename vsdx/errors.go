package vsdx

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrorKind classifies problems reported by the package.
type ErrorKind int

const (
	// KindConfiguration is fatal for the operation: master cycle, group
	// without shapes, shape without ID in strict mode.
	KindConfiguration ErrorKind = iota
	// KindMissingReference is recoverable: formula refers to a shape which
	// is not part of remapped subtree.
	KindMissingReference
	// KindTemplateSyntax is fatal for the page being rendered.
	KindTemplateSyntax
	// KindPartialFeature is recoverable: master sharing was handled on best
	// effort basis.
	KindPartialFeature
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindMissingReference:
		return "missing reference"
	case KindTemplateSyntax:
		return "template syntax"
	case KindPartialFeature:
		return "partial feature"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

var (
	ErrMasterCycle        = errors.New("master inheritance cycle")
	ErrGroupWithoutShapes = errors.New("group shape has no Shapes element")
	ErrMissingID          = errors.New("shape has no ID")
	ErrMissingMaster      = errors.New("master is absent in destination document")
)

// Error carries enough context to locate the problem in the document.
type Error struct {
	Kind      ErrorKind
	Page      string
	ShapeID   string
	Directive string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Page != "" {
		fmt.Fprintf(&b, " on page %q", e.Page)
	}
	if e.ShapeID != "" {
		fmt.Fprintf(&b, " in shape %s", e.ShapeID)
	}
	if e.Directive != "" {
		fmt.Fprintf(&b, " at %q", e.Directive)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether any error in err's chain is *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Warning is recoverable diagnostic recorded while working on the document.
type Warning struct {
	Kind    ErrorKind
	Page    string
	ShapeID string
	Message string
}

func (w Warning) String() string {
	s := w.Kind.String() + ": " + w.Message
	if w.Page != "" {
		s += fmt.Sprintf(" (page %q", w.Page)
		if w.ShapeID != "" {
			s += ", shape " + w.ShapeID
		}
		s += ")"
	}
	return s
}

func (d *Document) warn(w Warning) {
	d.warnings = append(d.warnings, w)
	d.log.Warn(w.Message, zap.Stringer("kind", w.Kind), zap.String("page", w.Page), zap.String("shape", w.ShapeID))
}

// Warnings returns all recoverable diagnostics recorded so far.
func (d *Document) Warnings() []Warning {
	return append([]Warning(nil), d.warnings...)
}
