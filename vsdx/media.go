package vsdx

import (
	"embed"
	"io/fs"
	"strings"

	"go.uber.org/zap"
)

//go:embed all:media
var mediaFS embed.FS

const mediaStraightConnector = "STRAIGHT_CONNECTOR"

// mediaLibrary is small built-in document with template shapes.
type mediaLibrary struct {
	doc *Document
}

func openMedia(log *zap.Logger) (*mediaLibrary, error) {
	parts := make(map[string][]byte)
	err := fs.WalkDir(mediaFS, "media", func(name string, de fs.DirEntry, err error) error {
		if err != nil || de.IsDir() {
			return err
		}
		data, err := mediaFS.ReadFile(name)
		if err != nil {
			return err
		}
		parts[strings.TrimPrefix(name, "media/")] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	doc, err := Load(parts, log.Named("media"))
	if err != nil {
		return nil, err
	}
	return &mediaLibrary{doc: doc}, nil
}

func (m *mediaLibrary) straightConnector() *Shape {
	if p := m.doc.Page(0); p != nil {
		return p.ShapeByText(mediaStraightConnector)
	}
	return nil
}
