package render

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"vtpl/vsdx"
)

var (
	reFor        = regexp.MustCompile(`\{%\s*for\s+(.+?)\s*%\}`)
	reShowIf     = regexp.MustCompile(`\{%\s*showif\s+(.+?)\s*%\}`)
	reSetSelf    = regexp.MustCompile(`\{%\s*set\s+self\.(\w+)\s*=\s*(.+?)\s*%\}`)
	reSelfRef    = regexp.MustCompile(`\bself\.(\w+)`)
	reLoopExpr   = regexp.MustCompile(`^([A-Za-z_]\w*(?:\s*,\s*[A-Za-z_]\w*)*)\s+in\s+(.+)$`)
	reExpression = regexp.MustCompile(`\{\{(.*?)\}\}`)
)

var (
	errUnbalanced  = errors.New("unbalanced template delimiters")
	errUnsupported = errors.New("unsupported directive")
)

// loopDirective is "{% for targets in iterable %}".
type loopDirective struct {
	text     string
	targets  []string
	iterable string
}

// setDirective is "{% set self.attr = expr %}".
type setDirective struct {
	text string
	attr string
	expr string
}

// condDirective is "{% showif expr %}".
type condDirective struct {
	text string
	expr string
}

type directives struct {
	loops []loopDirective
	conds []condDirective
	sets  []setDirective
	// text is shape text with every directive removed
	text string
}

func (d *directives) empty() bool {
	return len(d.loops) == 0 && len(d.conds) == 0 && len(d.sets) == 0
}

// removed lists full text of every directive found.
func (d *directives) removed() []string {
	var out []string
	for _, l := range d.loops {
		out = append(out, l.text)
	}
	for _, c := range d.conds {
		out = append(out, c.text)
	}
	for _, s := range d.sets {
		out = append(out, s.text)
	}
	return out
}

// parseDirectives extracts shape level directives from text. Anything left
// looking like a statement is reported.
func parseDirectives(text string) (*directives, error) {
	d := &directives{text: text}
	if !strings.Contains(text, "{%") && !strings.Contains(text, "%}") {
		return d, nil
	}
	for _, m := range reFor.FindAllStringSubmatch(text, -1) {
		lm := reLoopExpr.FindStringSubmatch(m[1])
		if lm == nil {
			return nil, &vsdx.Error{Kind: vsdx.KindTemplateSyntax, Directive: m[0], Err: fmt.Errorf("malformed loop %q", m[1])}
		}
		l := loopDirective{text: m[0], iterable: lm[2]}
		for _, t := range strings.Split(lm[1], ",") {
			l.targets = append(l.targets, strings.TrimSpace(t))
		}
		d.loops = append(d.loops, l)
	}
	for _, m := range reShowIf.FindAllStringSubmatch(text, -1) {
		d.conds = append(d.conds, condDirective{text: m[0], expr: m[1]})
	}
	for _, m := range reSetSelf.FindAllStringSubmatch(text, -1) {
		d.sets = append(d.sets, setDirective{text: m[0], attr: m[1], expr: m[2]})
	}
	for _, r := range d.removed() {
		d.text = strings.Replace(d.text, r, "", 1)
	}
	if i := strings.Index(d.text, "{%"); i >= 0 {
		rest := d.text[i:]
		if j := strings.Index(rest, "%}"); j >= 0 {
			return nil, &vsdx.Error{Kind: vsdx.KindTemplateSyntax, Directive: rest[:j+2], Err: errUnsupported}
		}
		return nil, &vsdx.Error{Kind: vsdx.KindTemplateSyntax, Directive: rest, Err: errUnbalanced}
	}
	if strings.Contains(d.text, "%}") {
		return nil, &vsdx.Error{Kind: vsdx.KindTemplateSyntax, Directive: text, Err: errUnbalanced}
	}
	return d, nil
}

// interpolate replaces every "{{ expr }}" with rendered value.
func interpolate(s string, sc scope) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	var (
		b    strings.Builder
		last int
	)
	for _, m := range reExpression.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(s[last:m[0]])
		v, err := evaluate(s[m[2]:m[3]], sc)
		if err != nil {
			return "", &vsdx.Error{Kind: vsdx.KindTemplateSyntax, Directive: s[m[0]:m[1]], Err: err}
		}
		b.WriteString(display(v))
		last = m[1]
	}
	if i := strings.Index(s[last:], "{{"); i >= 0 {
		return "", &vsdx.Error{Kind: vsdx.KindTemplateSyntax, Directive: s[last+i:], Err: errUnbalanced}
	}
	b.WriteString(s[last:])
	return b.String(), nil
}
