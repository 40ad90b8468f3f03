package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed public
var public embed.FS

// Handler serves the embedded host and team web clients.
func Handler() http.Handler {
	sub, err := fs.Sub(public, "public")
	if err != nil {
		return http.NotFoundHandler()
	}
	return http.FileServer(http.FS(sub))
}
