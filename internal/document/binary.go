package document

import (
	"os"
	"strings"

	"github.com/fumiama/go-docx"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// pdfText returns the plain text of each page, one paragraph per page.
// Pages that fail to decode are skipped.
func pdfText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "document: open pdf %s", path)
	}
	defer f.Close() //nolint:errcheck

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}
	return joinParagraphs(pages), nil
}

// docxText returns the body paragraphs of a Word document.
func docxText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "document: open docx %s", path)
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return "", eris.Wrapf(err, "document: stat docx %s", path)
	}
	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", eris.Wrapf(err, "document: parse docx %s", path)
	}

	var paras []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		var buf strings.Builder
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				if t, ok := rc.(*docx.Text); ok {
					buf.WriteString(t.Text)
				}
			}
		}
		paras = append(paras, buf.String())
	}
	return joinParagraphs(paras), nil
}
