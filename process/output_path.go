package process

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"vtpl/config"
	"vtpl/state"
)

const outputExt = ".vsdx"

// Values are available to output name template.
type Values struct {
	Context    map[string]any
	Pages      []string
	SourceFile string
}

// buildOutputPath returns path of the resulting document. When dst names a
// file it is used as is, otherwise file name comes from configured template
// (or source name) and is placed into dst directory.
func buildOutputPath(src, dst string, values Values, env *state.LocalEnv) string {
	if dst != "" && strings.EqualFold(filepath.Ext(dst), outputExt) {
		if fi, err := os.Stat(dst); err != nil || !fi.IsDir() {
			return dst
		}
	}

	name := ""
	if env.Cfg.Document.OutputNameTemplate != "" {
		expanded, err := expandTemplate(config.OutputNameTemplateFieldName, env.Cfg.Document.OutputNameTemplate, values)
		if err != nil {
			env.Log.Warn("Unable to prepare output filename", zap.Error(err))
		} else {
			name = expanded
		}
	}
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	}
	name = strings.TrimSuffix(name, outputExt)
	if env.Cfg.Document.FileNameTransliterate {
		name = slug.Make(name)
	}
	return filepath.Join(dst, config.CleanFileName(name)+outputExt)
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// checkDestination refuses to overwrite existing file unless allowed.
func checkDestination(path string, env *state.LocalEnv) error {
	if _, err := os.Stat(path); err == nil && !env.Overwriting() {
		return fmt.Errorf("output file already exists: %s", path)
	}
	return os.MkdirAll(filepath.Dir(path), 0755)
}
