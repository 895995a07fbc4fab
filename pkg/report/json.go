package report

import (
	"fmt"
	"io"

	"github.com/pyrate-scanner/pyrate/pkg/jsonutil"
)

func renderJSON(w io.Writer, doc *Document) error {
	data, err := jsonutil.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
