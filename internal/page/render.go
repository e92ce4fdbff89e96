package page

import (
	"bytes"
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Render writes the full HTML document.
func Render(w io.Writer, m Model) error {
	return templates.ExecuteTemplate(w, "page", m)
}

// Fragment renders the live part of the page, which the browser swaps in on
// every websocket frame.
func Fragment(m Model) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "live", m); err != nil {
		return "", err
	}
	return buf.String(), nil
}
