package config

import (
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxNameBytes is the limit most file systems put on a single path element.
const maxNameBytes = 255

const badFileName = "_bad_file_name_"

// cleanName drops control characters, path separators and any of forbidden
// runes from the name, then cuts it to fit file system limit without
// splitting runes.
func cleanName(in, forbidden string) string {
	forbidden += string(os.PathSeparator) + string(os.PathListSeparator)
	out := strings.Map(func(sym rune) rune {
		if unicode.IsControl(sym) || strings.ContainsRune(forbidden, sym) {
			return -1
		}
		return sym
	}, in)
	// reserve room for extension
	limit := maxNameBytes - len(".vsdx")
	for len(out) > limit {
		_, size := utf8.DecodeLastRuneInString(out)
		out = out[:len(out)-size]
	}
	return out
}
