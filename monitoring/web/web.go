// Package web holds the monitor dashboard. The page is compiled into the
// binary. With CSAT_MONITOR_DEV set to a true value it is read from the
// source tree instead, so edits to dist/ show on reload.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

//go:embed dist
var dist embed.FS

// DevModeEnv switches the dashboard to the source tree.
const DevModeEnv = "CSAT_MONITOR_DEV"

// Dashboard returns the files the monitor serves below "/".
func Dashboard() http.FileSystem {
	if dir, ok := sourceDir(); ok {
		return http.Dir(dir)
	}

	page, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(page)
}

func sourceDir() (string, bool) {
	on, err := strconv.ParseBool(os.Getenv(DevModeEnv))
	if err != nil || !on {
		return "", false
	}

	_, self, _, ok := runtime.Caller(0)
	if !ok {
		panic("web: cannot locate the source tree")
	}

	dir := filepath.Join(filepath.Dir(self), "dist")
	fmt.Fprintf(os.Stderr, "Serving the monitor dashboard from %s\n", dir)

	return dir, true
}
