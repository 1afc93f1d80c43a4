// Package misc keeps program identity in a single place.
package misc

import (
	"os"
	"path/filepath"
	"strings"
)

// set by linker flags during build
var (
	version = "dev"
	githash = "unknown"
	appName = ""
)

// GetAppName returns name of the program without extension.
func GetAppName() string {
	if len(appName) > 0 {
		return appName
	}
	name := filepath.Base(os.Args[0])
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns hash of the commit program was built from.
func GetGitHash() string {
	return githash
}
