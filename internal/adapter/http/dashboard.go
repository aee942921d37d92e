package http

import (
	_ "embed"
	"net/http"
)

//go:embed static/index.html
var dashboardHTML []byte

// Dashboard serves the embedded single-page dashboard.
func Dashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dashboardHTML)
}
