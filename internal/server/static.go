package server

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFiles embed.FS

// staticHandler serves the embedded single-page UI. The page is baked into
// the binary so deployment stays a single artifact.
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("static assets missing from binary: " + err.Error())
	}
	return http.FileServer(http.FS(sub))
}
