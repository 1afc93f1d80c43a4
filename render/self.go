package render

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"vtpl/vsdx"
)

// selfAttr is shape property reachable as "self.<name>" in set directive.
type selfAttr int

const (
	selfX selfAttr = iota
	selfY
	selfWidth
	selfHeight
	selfBeginX
	selfBeginY
	selfEndX
	selfEndY
)

var selfAttrs = map[string]selfAttr{
	"x":       selfX,
	"y":       selfY,
	"width":   selfWidth,
	"height":  selfHeight,
	"begin_x": selfBeginX,
	"begin_y": selfBeginY,
	"end_x":   selfEndX,
	"end_y":   selfEndY,
}

func parseSelfAttr(name string) (selfAttr, error) {
	if a, ok := selfAttrs[name]; ok {
		return a, nil
	}
	return 0, fmt.Errorf("shape has no attribute %q", name)
}

func (a selfAttr) get(s *vsdx.Shape) float64 {
	switch a {
	case selfX:
		return s.X()
	case selfY:
		return s.Y()
	case selfWidth:
		return s.Width()
	case selfHeight:
		return s.Height()
	case selfBeginX:
		return s.BeginX()
	case selfBeginY:
		return s.BeginY()
	case selfEndX:
		return s.EndX()
	case selfEndY:
		return s.EndY()
	}
	return 0
}

// set assigns value, only position may be changed.
func (a selfAttr) set(s *vsdx.Shape, v float64) bool {
	switch a {
	case selfX:
		s.SetX(v)
	case selfY:
		s.SetY(v)
	default:
		return false
	}
	return true
}

// applySet evaluates "set self" directive against shape.
func (r *pageRenderer) applySet(s *vsdx.Shape, d setDirective) error {
	target, err := parseSelfAttr(d.attr)
	if err != nil {
		return err
	}
	var refErr error
	code := reSelfRef.ReplaceAllStringFunc(d.expr, func(m string) string {
		ref, err := parseSelfAttr(strings.TrimPrefix(m, "self."))
		if err != nil {
			refErr = err
			return m
		}
		return formatFloat(ref.get(s))
	})
	if refErr != nil {
		return refErr
	}
	v, err := evaluate(code, r.base)
	if err != nil {
		return err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(display(v)), 64)
	if err != nil {
		return fmt.Errorf("value %q of self.%s is not a number", display(v), d.attr)
	}
	if !target.set(s, f) {
		r.log.Debug("Attribute is read only, set ignored", zap.String("shape", s.ID()), zap.String("attr", d.attr))
	}
	return nil
}
