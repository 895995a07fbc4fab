package report

import (
	_ "embed"
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

//go:embed templates/report.txt.tmpl
var textTemplate string

var textTmpl = template.Must(template.New("report.txt").
	Funcs(sprig.TxtFuncMap()).
	Funcs(reportFuncs()).
	Parse(textTemplate))

func renderText(w io.Writer, doc *Document) error {
	if err := textTmpl.Execute(w, doc); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}
	return nil
}
