// Package document turns input files into plain text for place extraction.
// The format is chosen by file extension; anything unrecognized is read as
// UTF-8 text unchanged so character offsets match the file.
package document

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Format identifies how a file's text is recovered.
type Format string

// Supported formats.
const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
)

// paragraphSep joins the blocks recovered from structured formats.
const paragraphSep = "\n\n"

// FormatOf returns the format for a file name.
func FormatOf(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".html", ".htm":
		return FormatHTML
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	default:
		return FormatText
	}
}

// ReadFile returns the text content of the file at path.
func ReadFile(path string) (string, error) {
	format := FormatOf(path)
	switch format {
	case FormatPDF:
		return pdfText(path)
	case FormatDOCX:
		return docxText(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "document: read %s", path)
	}
	return Text(data, format)
}

// Text recovers text from in-memory content of a stream-friendly format.
// PDF and DOCX need random access and are only read through ReadFile.
func Text(data []byte, format Format) (string, error) {
	switch format {
	case FormatText:
		return string(data), nil
	case FormatMarkdown:
		return markdownText(data), nil
	case FormatHTML:
		return htmlText(data)
	default:
		return "", eris.Errorf("document: %s content must be read from a file", format)
	}
}

func joinParagraphs(paras []string) string {
	out := make([]string, 0, len(paras))
	for _, p := range paras {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, paragraphSep)
}
