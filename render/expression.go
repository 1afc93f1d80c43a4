package render

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/maruel/natural"
)

// scope is evaluation environment of directive expressions. Nil values are
// never stored: undefined names evaluate to nil, this is how None works.
type scope map[string]any

// sprigNames lists template helpers made available to expressions. Names
// clashing with expr builtins (upper, lower, trim, ...) are left out, builtins
// serve them.
var sprigNames = []string{
	"title", "untitle", "abbrev", "trunc", "substr", "quote", "squote",
	"nospace", "initials", "snakecase", "camelcase", "kebabcase", "wrap",
	"plural", "default", "empty", "coalesce", "ternary", "add1", "atoi",
}

func builtins() scope {
	sc := scope{
		"True":     true,
		"False":    false,
		"range":    rangeOf,
		"items":    items,
		"keysOf":   keysOf,
		"valuesOf": valuesOf,
	}
	funcs := sprig.GenericFuncMap()
	for _, name := range sprigNames {
		if f, ok := funcs[name]; ok {
			sc[name] = f
		}
	}
	return sc
}

func newScope(data map[string]any) scope {
	return builtins().with(data)
}

// with returns copy of scope extended by vars.
func (sc scope) with(vars map[string]any) scope {
	out := make(scope, len(sc)+len(vars))
	for k, v := range sc {
		out[k] = v
	}
	for k, v := range vars {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

var (
	reDictMethod = regexp.MustCompile(`([A-Za-z_][\w.]*)\.(items|keys|values)\(\)`)
	dictMethods  = map[string]string{"items": "items", "keys": "keysOf", "values": "valuesOf"}
)

// translate rewrites dict method calls (x.items(), x.keys(), x.values()) into
// function calls expr understands.
func translate(code string) string {
	return reDictMethod.ReplaceAllStringFunc(strings.TrimSpace(code), func(m string) string {
		sub := reDictMethod.FindStringSubmatch(m)
		return dictMethods[sub[2]] + "(" + sub[1] + ")"
	})
}

func evaluate(code string, sc scope) (any, error) {
	program, err := expr.Compile(translate(code), expr.Env(map[string]any(sc)), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	return expr.Run(program, map[string]any(sc))
}

func rangeOf(args ...any) ([]any, error) {
	var start, stop, step int = 0, 0, 1
	ints := make([]int, 0, len(args))
	for _, a := range args {
		n, ok := toInt(a)
		if !ok {
			return nil, fmt.Errorf("range argument %v is not an integer", a)
		}
		ints = append(ints, n)
	}
	switch len(ints) {
	case 1:
		stop = ints[0]
	case 2:
		start, stop = ints[0], ints[1]
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
	default:
		return nil, fmt.Errorf("range expects 1 to 3 arguments, got %d", len(args))
	}
	if step == 0 {
		return nil, fmt.Errorf("range step must not be zero")
	}
	var out []any
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, i)
	}
	return out, nil
}

func toInt(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == math.Trunc(f) {
			return int(f), true
		}
	}
	return 0, false
}

// sortedKeys returns map keys in natural order of their string form.
func sortedKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		sa, sb := display(a.Interface()), display(b.Interface())
		switch {
		case sa == sb:
			return 0
		case natural.Less(sa, sb):
			return -1
		}
		return 1
	})
	return keys
}

// items returns key/value pairs of the map.
func items(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("items() of %T", v)
	}
	var out []any
	for _, k := range sortedKeys(rv) {
		out = append(out, []any{k.Interface(), rv.MapIndex(k).Interface()})
	}
	return out, nil
}

// keysOf returns map keys in natural order.
func keysOf(v any) ([]any, error) {
	pairs, err := items(v)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.([]any)[0])
	}
	return out, nil
}

// valuesOf returns map values ordered by their keys.
func valuesOf(v any) ([]any, error) {
	pairs, err := items(v)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.([]any)[1])
	}
	return out, nil
}

// iterate lists values a for loop walks over: slice elements, map keys,
// string characters. Undefined value yields nothing.
func iterate(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, 0, rv.Len())
		for i := range rv.Len() {
			out = append(out, rv.Index(i).Interface())
		}
		return out, nil
	case reflect.Map:
		var out []any
		for _, k := range sortedKeys(rv) {
			out = append(out, k.Interface())
		}
		return out, nil
	case reflect.String:
		var out []any
		for _, r := range rv.String() {
			out = append(out, string(r))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%T object is not iterable", v)
}

// truthy reports template truth: None, False, zero and empty containers are
// false.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	case f == math.Trunc(f) && math.Abs(f) < 1e16:
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// display renders value as template output: True/False, floats always with a
// fraction, lists and dicts in literal form. Undefined value renders
// empty.
func display(v any) string {
	if v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := range rv.Len() {
			parts = append(parts, literal(rv.Index(i).Interface()))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Map:
		var parts []string
		for _, k := range sortedKeys(rv) {
			parts = append(parts, literal(k.Interface())+": "+literal(rv.MapIndex(k).Interface()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return "'" + strings.ReplaceAll(x, "'", `\'`) + "'"
	}
	return display(v)
}
