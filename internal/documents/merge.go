// Package documents fills MERGEFIELDs of Word (.docx) templates.
package documents

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
)

var (
	mergeablePart = regexp.MustCompile(`^word/(document|header\d*|footer\d*)\.xml$`)

	// fldSimple never nests, so a lazy match up to the first closing tag is
	// the whole element.
	simpleField = regexp.MustCompile(`(?s)<w:fldSimple\s[^>]*?w:instr="([^"]*)"[^>]*?(?:/>|>(.*?)</w:fldSimple>)`)
	runTag      = regexp.MustCompile(`</w:r>|<w:r(?:\s[^>]*)?>`)
	runProps    = regexp.MustCompile(`(?s)<w:rPr>.*?</w:rPr>`)
	textElement = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>.*?</w:t>|<w:t(?:\s[^>]*)?/>`)
	instrText   = regexp.MustCompile(`(?s)<w:instrText(?:\s[^>]*)?>(.*?)</w:instrText>`)
	fldChar     = regexp.MustCompile(`<w:fldChar\s[^>]*?w:fldCharType="(begin|separate|end)"`)
	mergeInstr  = regexp.MustCompile(`^\s*MERGEFIELD\s+(?:"([^"]+)"|(\S+))`)
	mailMerge   = regexp.MustCompile(`(?s)<w:mailMerge>.*?</w:mailMerge>`)
)

// Merge fills every MERGEFIELD of the template at templatePath with the
// matching value from fields and writes the result to a new file in outDir.
// Fields without a value become empty text. The caller owns the returned
// file.
func Merge(templatePath string, fields map[string]string, outDir string) (string, error) {
	r, err := zip.OpenReader(templatePath)
	if err != nil {
		return "", fmt.Errorf("open template: %w", err)
	}
	defer r.Close()

	if !hasMainDocument(r.File) {
		return "", fmt.Errorf("word/document.xml not found in %s", templatePath)
	}

	out, err := os.CreateTemp(outDir, "doc-*.docx")
	if err != nil {
		return "", fmt.Errorf("create output: %w", err)
	}
	path := out.Name()

	if err := writeMerged(out, r.File, fields); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close output: %w", err)
	}
	return path, nil
}

func hasMainDocument(files []*zip.File) bool {
	for _, f := range files {
		if f.Name == "word/document.xml" {
			return true
		}
	}
	return false
}

func writeMerged(dest io.Writer, files []*zip.File, fields map[string]string) error {
	zw := zip.NewWriter(dest)
	for _, f := range files {
		switch {
		case mergeablePart.MatchString(f.Name):
			data, err := readPart(f)
			if err != nil {
				return err
			}
			merged := mergePart(data, fields)
			if err := wellFormed(merged); err != nil {
				return fmt.Errorf("merged %s is malformed: %w", f.Name, err)
			}
			if err := writePart(zw, f, merged); err != nil {
				return err
			}
		case f.Name == "word/settings.xml":
			// Drop the data-source binding so Word does not ask for it on open.
			data, err := readPart(f)
			if err != nil {
				return err
			}
			if err := writePart(zw, f, mailMerge.ReplaceAll(data, nil)); err != nil {
				return err
			}
		default:
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("copy %s: %w", f.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish output: %w", err)
	}
	return nil
}

// wellFormed reports the first syntax error of an XML part.
func wellFormed(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

func writePart(zw *zip.Writer, f *zip.File, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     f.Name,
		Method:   zip.Deflate,
		Modified: f.Modified,
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", f.Name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", f.Name, err)
	}
	return nil
}

// Fields lists the distinct merge field names of a template, sorted.
func Fields(templatePath string) ([]string, error) {
	r, err := zip.OpenReader(templatePath)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer r.Close()

	seen := map[string]struct{}{}
	for _, f := range r.File {
		if !mergeablePart.MatchString(f.Name) {
			continue
		}
		data, err := readPart(f)
		if err != nil {
			return nil, err
		}
		for _, name := range partFields(data) {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func partFields(data []byte) []string {
	var names []string
	for _, m := range simpleField.FindAllSubmatch(data, -1) {
		if name, ok := fieldName(unescape(string(m[1]))); ok {
			names = append(names, name)
		}
	}
	for _, f := range complexFields(data) {
		if name, ok := fieldName(f.instr); ok {
			names = append(names, name)
		}
	}
	return names
}

// fieldName extracts the field name of a MERGEFIELD instruction.
func fieldName(instr string) (string, bool) {
	m := mergeInstr.FindStringSubmatch(instr)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	return m[2], true
}

// mergePart rewrites one WordML part.
func mergePart(data []byte, fields map[string]string) []byte {
	data = simpleField.ReplaceAllFunc(data, func(el []byte) []byte {
		m := simpleField.FindSubmatch(el)
		name, ok := fieldName(unescape(string(m[1])))
		if !ok {
			return el
		}
		return valueRun(runProps.Find(m[2]), fields[name])
	})
	return mergeComplex(data, fields)
}

type span struct{ start, end int }

// leafRuns returns the runs of data that hold no other run, in document
// order. Runs anchoring a text box or alternate content nest whole
// paragraphs; only their inner runs can be field characters.
func leafRuns(data []byte) []span {
	type open struct {
		start  int
		nested bool
	}
	var (
		runs  []span
		stack []open
	)
	for _, loc := range runTag.FindAllIndex(data, -1) {
		tag := data[loc[0]:loc[1]]
		switch {
		case tag[1] == '/':
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !top.nested {
				runs = append(runs, span{top.start, loc[1]})
			}
		case bytes.HasSuffix(tag, []byte("/>")):
			// empty run, nothing to merge
		default:
			if len(stack) > 0 {
				stack[len(stack)-1].nested = true
			}
			stack = append(stack, open{start: loc[0]})
		}
	}
	return runs
}

// complexField is a field built from fldChar begin/separate/end runs.
type complexField struct {
	instr   string
	control []span // begin, instruction, separate and end runs, nested runs
	result  []span // runs between separate and end carrying the old value
	props   []byte // formatting of the first result run, else of the begin run
	end     span
}

func complexFields(data []byte) []complexField {
	var (
		fields []complexField
		cur    *complexField
		depth  int
		inRes  bool
		instr  strings.Builder
	)
	for _, s := range leafRuns(data) {
		run := data[s.start:s.end]
		kind := ""
		if m := fldChar.FindSubmatch(run); m != nil {
			kind = string(m[1])
		}

		if cur == nil {
			if kind == "begin" {
				cur = &complexField{control: []span{s}, props: runProps.Find(run)}
				depth, inRes = 1, false
				instr.Reset()
			}
			continue
		}

		switch {
		case kind == "begin":
			depth++
			cur.control = append(cur.control, s)
		case kind == "end":
			depth--
			cur.control = append(cur.control, s)
			if depth == 0 {
				cur.instr = instr.String()
				cur.end = s
				fields = append(fields, *cur)
				cur = nil
			}
		case kind == "separate" && depth == 1:
			inRes = true
			cur.control = append(cur.control, s)
		case depth > 1 || !inRes:
			if depth == 1 {
				for _, m := range instrText.FindAllSubmatch(run, -1) {
					instr.WriteString(unescape(string(m[1])))
				}
			}
			cur.control = append(cur.control, s)
		default:
			if len(cur.result) == 0 && textElement.Match(run) {
				if p := runProps.Find(run); p != nil {
					cur.props = p
				}
			}
			cur.result = append(cur.result, s)
		}
	}
	return fields
}

type edit struct {
	span
	repl []byte
}

func mergeComplex(data []byte, fields map[string]string) []byte {
	var edits []edit
	for _, f := range complexFields(data) {
		name, ok := fieldName(f.instr)
		if !ok {
			continue
		}
		value := valueRun(f.props, fields[name])

		for _, s := range f.control {
			repl := []byte(nil)
			if s == f.end {
				repl = value
			}
			edits = append(edits, edit{s, repl})
		}
		for _, s := range f.result {
			edits = append(edits, edit{s, nil})
		}
	}
	if len(edits) == 0 {
		return data
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	var buf bytes.Buffer
	buf.Grow(len(data))
	pos := 0
	for _, e := range edits {
		buf.Write(data[pos:e.start])
		buf.Write(e.repl)
		pos = e.end
	}
	buf.Write(data[pos:])
	return buf.Bytes()
}

// valueRun builds a run carrying value with the given formatting. Line
// breaks in value become w:br elements.
func valueRun(props []byte, value string) []byte {
	var buf bytes.Buffer
	buf.WriteString("<w:r>")
	buf.Write(props)
	for i, line := range strings.Split(value, "\n") {
		if i > 0 {
			buf.WriteString("<w:br/>")
		}
		buf.WriteString(`<w:t xml:space="preserve">`)
		_ = xml.EscapeText(&buf, []byte(strings.TrimSuffix(line, "\r")))
		buf.WriteString("</w:t>")
	}
	buf.WriteString("</w:r>")
	return buf.Bytes()
}

var xmlEntities = strings.NewReplacer("&quot;", `"`, "&apos;", "'", "&lt;", "<", "&gt;", ">", "&amp;", "&")

func unescape(s string) string {
	return xmlEntities.Replace(s)
}
