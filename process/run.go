// Package process implements program commands working with documents.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"vtpl/config"
	"vtpl/render"
	"vtpl/state"
	"vtpl/vsdx"
)

// documentOptions maps configuration onto document behavior.
func documentOptions(cfg *config.Config) []vsdx.Option {
	return []vsdx.Option{
		vsdx.WithStrictIDs(cfg.Template.StrictIDs),
		vsdx.WithMasterImport(cfg.Template.MissingMaster == config.MasterPolicyImport),
	}
}

func engineOptions(cfg *config.Config) []render.Option {
	return []render.Option{
		render.WithSpacing(cfg.Template.SpaceDuplicates),
		render.WithFalsyLiterals(cfg.Template.FalsyLiterals),
	}
}

func sourcePath(cmd *cli.Command) (string, error) {
	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return "", errors.New("no input source has been specified")
	}
	return filepath.Abs(src)
}

func destinationDir(dst string) (string, error) {
	if len(dst) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("unable to get working directory: %w", err)
		}
		return wd, nil
	}
	return filepath.Abs(dst)
}

func openDocument(src string, env *state.LocalEnv, log *zap.Logger) (*vsdx.Document, error) {
	doc, err := vsdx.Open(src, log, documentOptions(env.Cfg)...)
	if err != nil {
		return nil, fmt.Errorf("unable to open document: %w", err)
	}
	if env.Rpt != nil {
		env.Rpt.Store(filepath.Join("source", filepath.Base(src)), src)
	}
	return doc, nil
}

func dumpPages(doc *vsdx.Document, stage string, env *state.LocalEnv) {
	if env.Rpt == nil {
		return
	}
	for i, p := range doc.Pages() {
		env.Rpt.StoreData(fmt.Sprintf("pages/%s-%02d.txt", stage, i+1), []byte(p.Dump()))
	}
}

// saveDocument writes document, unchanged one may be copied entry by entry.
func saveDocument(doc *vsdx.Document, out string, env *state.LocalEnv, log *zap.Logger) error {
	if err := checkDestination(out, env); err != nil {
		return err
	}
	if !doc.Changed() && env.Cfg.Document.RawCopyUnchanged && doc.Path() != "" {
		log.Debug("Document unchanged, copying archive", zap.String("file", out))
		return doc.SaveRaw(out)
	}
	return doc.Save(out)
}

func reportWarnings(doc *vsdx.Document, log *zap.Logger) {
	for _, w := range doc.Warnings() {
		log.Debug("Document warning", zap.Stringer("warning", w))
	}
}

// Render expands templates of SOURCE document using values from CONTEXT
// file and writes result.
func Render(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("process")

	src, err := sourcePath(cmd)
	if err != nil {
		return err
	}
	data, err := loadContext(cmd.Args().Get(1))
	if err != nil {
		return err
	}
	dst, err := destinationDir(cmd.Args().Get(2))
	if err != nil {
		return err
	}
	if cmd.Args().Len() > 3 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[3:]))
	}
	env.Overwrite = cmd.Bool("overwrite")

	log.Info("Rendering starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Rendering completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	doc, err := openDocument(src, env, log)
	if err != nil {
		return err
	}
	dumpPages(doc, "before", env)

	sum, rerr := render.New(log, engineOptions(env.Cfg)...).RenderDocument(doc, data)
	if rerr != nil {
		log.Error("Some pages were not rendered", zap.Strings("pages", sum.Failed), zap.Error(rerr))
	}
	dumpPages(doc, "after", env)
	reportWarnings(doc, log)

	out := buildOutputPath(src, dst, Values{Context: data, Pages: doc.PageNames(), SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))}, env)
	if err := saveDocument(doc, out, env, log); err != nil {
		return multierr.Append(rerr, fmt.Errorf("unable to save document: %w", err))
	}
	log.Info("Document saved", zap.String("file", out),
		zap.Int("pages", len(sum.Rendered)), zap.Int("hidden", len(sum.Hidden)), zap.Int("duplicates", sum.Duplicates))
	return rerr
}

// Info prints structure of SOURCE document pages.
func Info(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("process")

	src, err := sourcePath(cmd)
	if err != nil {
		return err
	}
	doc, err := openDocument(src, env, log)
	if err != nil {
		return err
	}

	env.Pages = cmd.StringSlice("page")
	pages := doc.Pages()
	if cmd.Bool("masters") {
		pages = append(pages, doc.MasterPages()...)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d page(s), %d master(s)\n", filepath.Base(src), len(doc.Pages()), len(doc.MasterPages()))
	for _, p := range pages {
		if len(env.Pages) > 0 && !contains(env.Pages, p.Name()) {
			continue
		}
		b.WriteString(p.Dump())
	}
	if _, err := fmt.Fprint(os.Stdout, b.String()); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	reportWarnings(doc, log)
	return nil
}

// Connect adds connector between two shapes of a page.
func Connect(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("process")

	src, err := sourcePath(cmd)
	if err != nil {
		return err
	}
	from, to := cmd.Args().Get(1), cmd.Args().Get(2)
	if len(from) == 0 || len(to) == 0 {
		return errors.New("both shape IDs have to be specified")
	}
	dst, err := destinationDir(cmd.Args().Get(3))
	if err != nil {
		return err
	}
	env.Overwrite = cmd.Bool("overwrite")
	env.Pages = cmd.StringSlice("page")

	doc, err := openDocument(src, env, log)
	if err != nil {
		return err
	}

	page := doc.Page(0)
	if len(env.Pages) > 0 {
		page = doc.PageByName(env.Pages[0])
	}
	if page == nil {
		return errors.New("requested page was not found")
	}

	fromShape, toShape := page.ShapeByID(from), page.ShapeByID(to)
	if fromShape == nil || toShape == nil {
		return fmt.Errorf("page %q has no shapes %s and %s", page.Name(), from, to)
	}
	c, err := vsdx.CreateConnector(page, fromShape, toShape)
	if err != nil {
		return fmt.Errorf("unable to connect shapes: %w", err)
	}
	reportWarnings(doc, log)

	out := buildOutputPath(src, dst, Values{Pages: doc.PageNames(), SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))}, env)
	if err := saveDocument(doc, out, env, log); err != nil {
		return fmt.Errorf("unable to save document: %w", err)
	}
	log.Info("Connector created", zap.String("page", page.Name()), zap.String("connector", c.ID()), zap.String("file", out))
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
