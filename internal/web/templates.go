package web

import (
	"embed"
	"html/template"
	"strconv"
	"strings"
)

//go:embed templates/*.html
var templatesFS embed.FS

var funcs = template.FuncMap{
	"mib": FormatMiB,
}

// Templates parses the page templates; "page.html" is the entry point.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html"))
}

// FormatMiB renders a byte count as MiB with at most two decimals.
func FormatMiB(n int64) string {
	s := strconv.FormatFloat(float64(n)/(1<<20), 'f', 2, 64)
	return strings.TrimRight(strings.TrimRight(s, "0"), ".") + " MB"
}
