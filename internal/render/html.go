package render

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/page.html
var pageHTML string

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

// Page is the state of the upload page
type Page struct {
	Uploading bool   // Replace the picker with a progress message
	Error     string // Inline alert, empty for none
	Receipt   *View  // Nil unless the last upload succeeded
}

// WriteHTML renders the upload page
func WriteHTML(w io.Writer, p Page) error {
	if err := pageTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("executing page template: %w", err)
	}
	return nil
}
