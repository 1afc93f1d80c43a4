// Package debug has helpers producing human readable dumps of document
// structures.
package debug

import (
	"strconv"
	"strings"
)

// TreeWriter accumulates indented tree of nodes, one node per line.
type TreeWriter struct {
	b      strings.Builder
	indent string
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{indent: "  "}
}

func (tw *TreeWriter) String() string {
	return tw.b.String()
}

func (tw *TreeWriter) pad(depth int) {
	for range depth {
		tw.b.WriteString(tw.indent)
	}
}

// Node writes "kind key=value ..." line. Pairs with empty values are
// skipped, values with spaces or quotes are quoted. Odd trailing key is
// ignored.
func (tw *TreeWriter) Node(depth int, kind string, kv ...string) {
	tw.pad(depth)
	tw.b.WriteString(kind)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		tw.b.WriteByte(' ')
		tw.b.WriteString(kv[i])
		tw.b.WriteByte('=')
		tw.b.WriteString(attrValue(kv[i+1]))
	}
	tw.b.WriteByte('\n')
}

// Value writes "label: value" line with value always quoted, empty values
// are written as is.
func (tw *TreeWriter) Value(depth int, label, value string) {
	tw.pad(depth)
	tw.b.WriteString(label)
	tw.b.WriteString(": ")
	if value != "" {
		value = strconv.Quote(value)
	}
	tw.b.WriteString(value)
	tw.b.WriteByte('\n')
}

func attrValue(v string) string {
	if strings.ContainsAny(v, " \t\n\"=") {
		return strconv.Quote(v)
	}
	return v
}
