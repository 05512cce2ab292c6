package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"notes.txt", FormatText},
		{"README.MD", FormatMarkdown},
		{"post.markdown", FormatMarkdown},
		{"page.htm", FormatHTML},
		{"page.html", FormatHTML},
		{"report.pdf", FormatPDF},
		{"memo.docx", FormatDOCX},
		{"server.log", FormatText},
		{"noext", FormatText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatOf(tt.name))
		})
	}
}

func TestText_PlainKeepsOffsets(t *testing.T) {
	in := "  Flooding near Ottawa\n\nand Cambridge Bay.\n"
	out, err := Text([]byte(in), FormatText)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestText_Markdown(t *testing.T) {
	in := "# Trip to Ottawa\n\n" +
		"We drove from **Toronto** to\n[Ottawa](https://example.com).\n\n" +
		"```\nAtlantis = 1\n```\n\n" +
		"- Nunavut\n- Cambridge Bay\n"
	out, err := Text([]byte(in), FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "Trip to Ottawa\n\nWe drove from Toronto to Ottawa.\n\nNunavut\n\nCambridge Bay", out)
	assert.NotContains(t, out, "Atlantis")
}

func TestText_HTML(t *testing.T) {
	in := `<html><head><title>News</title><script>var x = "Atlantis";</script></head>
<body>
<nav><a href="/">Home</a></nav>
<h1>Flooding</h1>
<p>Flooding near   <b>Ottawa</b>
and Cambridge Bay.</p>
<ul><li>Nunavut</li></ul>
<footer>Contact us in Toronto</footer>
</body></html>`
	out, err := Text([]byte(in), FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, "Flooding\n\nFlooding near Ottawa and Cambridge Bay.\n\nNunavut", out)
}

func TestText_HTMLWithoutBlocks(t *testing.T) {
	out, err := Text([]byte("<div>Paris <span>Texas</span></div>"), FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, "Paris Texas", out)
}

func TestText_BinaryFormatNeedsFile(t *testing.T) {
	_, err := Text([]byte("%PDF-1.4"), FormatPDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be read from a file")
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(md, []byte("## Lyon\n\nNear Paris."), 0o644))

	out, err := ReadFile(md)
	require.NoError(t, err)
	assert.Equal(t, "Lyon\n\nNear Paris.", out)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document: read")
}

func TestReadFile_BadPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document: open pdf")
}

func TestReadFile_BadDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document: parse docx")
}
