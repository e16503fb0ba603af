package documents

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func documentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`
}

func headerXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:hdr ` + wordNS + `>` + body + `</w:hdr>`
}

func simpleFieldXML(name string) string {
	return `<w:fldSimple w:instr=" MERGEFIELD ` + name + ` \* MERGEFORMAT "><w:r><w:rPr><w:noProof/></w:rPr><w:t>«` + name + `»</w:t></w:r></w:fldSimple>`
}

func complexFieldXML(name string) string {
	return `<w:r><w:rPr><w:b/></w:rPr><w:fldChar w:fldCharType="begin"/></w:r>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:instrText xml:space="preserve"> MERGEFIELD ` + name + ` </w:instrText></w:r>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:fldChar w:fldCharType="separate"/></w:r>` +
		`<w:r><w:rPr><w:b/><w:noProof/></w:rPr><w:t>«` + name + `»</w:t></w:r>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:fldChar w:fldCharType="end"/></w:r>`
}

func paragraph(content ...string) string {
	return `<w:p>` + strings.Join(content, "") + `</w:p>`
}

func textRun(text string) string {
	return `<w:r><w:t xml:space="preserve">` + text + `</w:t></w:r>`
}

// buildDocx writes a minimal WordprocessingML package.
func buildDocx(t *testing.T, dir, name string, parts map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	all := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
	}
	for k, v := range parts {
		all[k] = v
	}
	for _, partName := range sortedKeys(all) {
		w, err := zw.Create(partName)
		require.NoError(t, err)
		_, err = io.WriteString(w, all[partName])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func readPartFile(t *testing.T, path, part string) string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	for _, f := range r.File {
		if f.Name != part {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatalf("part %s not found in %s", part, path)
	return ""
}

// visibleText decodes a part and returns the text of its w:t elements. Each
// paragraph ends with "|"; w:br becomes a newline.
func visibleText(t *testing.T, part string) string {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(part))
	var (
		out    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err, "merged part must stay well-formed XML")
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "br":
				out.WriteString("\n")
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString("|")
			}
		case xml.CharData:
			if inText {
				out.Write(el)
			}
		}
	}
	return out.String()
}
