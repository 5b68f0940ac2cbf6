package opsapi

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/index.html
var dashboardContent embed.FS

// DashboardHandler returns an http.Handler serving the embedded read-only
// dashboard, which polls /api/tags and /api/alarms and subscribes to /ws.
func DashboardHandler() http.Handler {
	sub, _ := fs.Sub(dashboardContent, "static")
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			r.URL.Path = "/index.html"
		}
		fileServer.ServeHTTP(w, r)
	})
}
