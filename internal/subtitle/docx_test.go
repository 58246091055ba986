package subtitle

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

const minutesDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Weekly sync notes</w:t></w:r></w:p><w:tbl><w:tr><w:tc><w:p><w:r><w:t>Ship the release by Friday</w:t></w:r></w:p></w:tc></w:tr></w:tbl></w:body></w:document>`

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	entries := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`},
		{"word/document.xml", documentXML},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range entries {
		w, err := zw.Create(entry.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(entry.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDocxReadsParagraphsAndTables(t *testing.T) {
	t.Parallel()

	data := buildDocx(t, minutesDocumentXML)
	text, err := ExtractDocx(bytes.NewReader(data))
	require.NoError(t, err)
	require.Contains(t, text, "Weekly sync notes")
	require.Contains(t, text, "Ship the release by Friday")
}

func TestExtractDocxRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ExtractDocx(bytes.NewReader([]byte("not a zip archive")))
	require.Error(t, err)
}

func TestExtractTextRoutesWordDocuments(t *testing.T) {
	t.Parallel()

	data := buildDocx(t, minutesDocumentXML)
	text, err := ExtractText("minutes.docx", bytes.NewReader(data))
	require.NoError(t, err)
	require.Contains(t, text, "Weekly sync notes")

	_, err = ExtractText("minutes.doc", bytes.NewReader([]byte("legacy")))
	require.ErrorContains(t, err, ".docx")
}
