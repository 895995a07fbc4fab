package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"

	"github.com/Masterminds/sprig/v3"
)

//go:embed templates/report.html.tmpl
var htmlTemplate string

var htmlTmpl = template.Must(template.New("report.html").
	Funcs(sprig.HtmlFuncMap()).
	Funcs(reportFuncs()).
	Parse(htmlTemplate))

// renderHTML writes a self-contained page. Every field is escaped by
// html/template; finding text is attacker-influenced.
func renderHTML(w io.Writer, doc *Document) error {
	if err := htmlTmpl.Execute(w, doc); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	return nil
}
