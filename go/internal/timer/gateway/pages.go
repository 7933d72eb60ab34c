package gateway

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// pages maps page routes to files in the static directory.
var pages = map[string]string{
	"/":        "index.html",
	"/control": "control.html",
	"/display": "display.html",
}

// RegisterPageRoutes serves the control and display pages from dir. It
// registers nothing when dir does not exist.
func RegisterPageRoutes(r chi.Router, dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Warn().Str("dir", dir).Msg("static directory not found, page routes disabled")
		return false
	}

	for route, file := range pages {
		path := filepath.Join(dir, file)
		r.Get(route, func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, path)
		})
	}

	fileServer := http.FileServer(http.Dir(dir))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fileServer.ServeHTTP(w, r)
	})

	log.Info().Str("dir", dir).Msg("serving pages")
	return true
}
