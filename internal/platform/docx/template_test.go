package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
)

const (
	wNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`
	rNS = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
)

func paragraph(runs ...string) string {
	var b strings.Builder
	b.WriteString(`<w:p w:rsidR="00A1">`)
	for _, r := range runs {
		b.WriteString(`<w:r><w:rPr><w:b/></w:rPr><w:t>` + r + `</w:t></w:r>`)
	}
	b.WriteString(`</w:p>`)
	return b.String()
}

func buildTemplate(t *testing.T, body string, extra map[string]string) []byte {
	t.Helper()
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
			`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/header" Target="header1.xml"/></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?><w:document ` + wNS + ` ` + rNS + `><w:body>` + body + `</w:body></w:document>`,
	}
	for k, v := range extra {
		files[k] = v
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func readParts(t *testing.T, doc []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatalf("output is not a zip: %v", err)
	}
	parts := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		parts[f.Name] = string(b)
	}
	return parts
}

func assertWellFormed(t *testing.T, name, content string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(content))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("%s is not well-formed: %v\n%s", name, err, content)
		}
	}
}

func render(t *testing.T, tpl []byte, ctx Context) map[string]string {
	t.Helper()
	tmpl, err := Parse(tpl)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := tmpl.Render(ctx)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	parts := readParts(t, out)
	for name, content := range parts {
		if strings.HasSuffix(name, ".xml") || strings.HasSuffix(name, ".rels") {
			assertWellFormed(t, name, content)
		}
	}
	return parts
}

func TestRender_ScalarSubstitution(t *testing.T) {
	tpl := buildTemplate(t, paragraph("Name: {{ name }}, Class {{div}}"), nil)

	doc := render(t, tpl, Context{"name": "Asha", "div": "3B", "unused": "x"})["word/document.xml"]
	if !strings.Contains(doc, "Name: Asha, Class 3B") {
		t.Errorf("expected substituted text, got %s", doc)
	}
	if strings.Contains(doc, "{{") {
		t.Errorf("placeholder left behind: %s", doc)
	}
}

func TestRender_MissingKeyBecomesEmpty(t *testing.T) {
	tpl := buildTemplate(t, paragraph("Blood: {{ blood }}."), nil)

	doc := render(t, tpl, Context{})["word/document.xml"]
	if !strings.Contains(doc, "Blood: .") {
		t.Errorf("expected empty substitution, got %s", doc)
	}
}

func TestRender_EscapesText(t *testing.T) {
	tpl := buildTemplate(t, paragraph("{{ remarks }}"), nil)

	doc := render(t, tpl, Context{"remarks": `<b>caries & "plaque"</b>`})["word/document.xml"]
	if strings.Contains(doc, "<b>") {
		t.Errorf("value not escaped: %s", doc)
	}
	if !strings.Contains(doc, "&amp;") {
		t.Errorf("expected escaped ampersand: %s", doc)
	}
}

func TestRender_SplitPlaceholderMerged(t *testing.T) {
	tpl := buildTemplate(t, paragraph("Roll ", "{{ ro", "ll }}", " end"), nil)

	doc := render(t, tpl, Context{"roll": "12"})["word/document.xml"]
	if !strings.Contains(doc, "12") {
		t.Fatalf("split placeholder not substituted: %s", doc)
	}
	if strings.Contains(doc, "ll }}") {
		t.Errorf("fragments left behind: %s", doc)
	}
	if got := strings.Count(doc, "<w:r>"); got != 4 {
		t.Errorf("expected run structure untouched (4 runs), got %d", got)
	}
}

func TestRender_SplitAcrossParagraphsNotMerged(t *testing.T) {
	tpl := buildTemplate(t, paragraph("{{ na")+paragraph("me }}"), nil)

	doc := render(t, tpl, Context{"name": "Asha"})["word/document.xml"]
	if strings.Contains(doc, "Asha") {
		t.Errorf("placeholder must not be joined across paragraphs: %s", doc)
	}
}

func TestRender_HeaderAndFooter(t *testing.T) {
	part := func(root string) string {
		return `<?xml version="1.0" encoding="UTF-8"?><w:` + root + ` ` + wNS + `>` + paragraph("ID {{ pid }}") + `</w:` + root + `>`
	}
	tpl := buildTemplate(t, paragraph("body"), map[string]string{
		"word/header1.xml": part("hdr"),
		"word/footer1.xml": part("ftr"),
	})

	parts := render(t, tpl, Context{"pid": "PID-20240101-abcd1234"})
	for _, name := range []string{"word/header1.xml", "word/footer1.xml"} {
		if !strings.Contains(parts[name], "ID PID-20240101-abcd1234") {
			t.Errorf("%s not substituted: %s", name, parts[name])
		}
	}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestRender_InlineImage(t *testing.T) {
	tpl := buildTemplate(t, paragraph("Photo: {{ photo }} done"), nil)
	data := testPNG(t, 10, 10)
	img, err := NewImage(data, 1.5)
	if err != nil {
		t.Fatalf("new image: %v", err)
	}

	parts := render(t, tpl, Context{"photo": img})

	doc := parts["word/document.xml"]
	if !strings.Contains(doc, `r:embed="rId3"`) {
		t.Errorf("expected drawing referencing rId3: %s", doc)
	}
	if !strings.Contains(doc, `cx="1371600"`) {
		t.Errorf("expected 1.5in extent: %s", doc)
	}
	rels := parts["word/_rels/document.xml.rels"]
	if !strings.Contains(rels, `Id="rId3"`) || !strings.Contains(rels, `Target="media/rendered1.png"`) {
		t.Errorf("relationship not added: %s", rels)
	}
	if got := parts["word/media/rendered1.png"]; got != string(data) {
		t.Errorf("media part mismatch")
	}
	if !strings.Contains(parts["[Content_Types].xml"], `Extension="png"`) {
		t.Errorf("png content type missing: %s", parts["[Content_Types].xml"])
	}
}

func TestRender_TemplateNotMutated(t *testing.T) {
	tmpl, err := Parse(buildTemplate(t, paragraph("{{ name }}"), nil))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var wg sync.WaitGroup
	outputs := make([][]byte, 8)
	errs := make([]error, 8)
	for i := range outputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outputs[i], errs[i] = tmpl.Render(Context{"name": strings.Repeat("x", i+1)})
		}(i)
	}
	wg.Wait()

	for i, out := range outputs {
		if errs[i] != nil {
			t.Fatalf("render %d: %v", i, errs[i])
		}
		doc := readParts(t, out)["word/document.xml"]
		if !strings.Contains(doc, ">"+strings.Repeat("x", i+1)+"<") {
			t.Errorf("render %d got wrong value: %s", i, doc)
		}
	}
	if got := tmpl.Placeholders(); len(got) != 1 || got[0] != "name" {
		t.Errorf("template changed after render: %v", got)
	}
}

func TestPlaceholders(t *testing.T) {
	tmpl, err := Parse(buildTemplate(t, paragraph("{{ b }} {{a}}", "{{ c", "}}")+paragraph("{{ a }}"), nil))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := strings.Join(tmpl.Placeholders(), ",")
	if got != "a,b,c" {
		t.Errorf("expected a,b,c got %s", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("not a zip")); !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("expected ErrInvalidTemplate, got %v", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("other.xml")
	w.Write([]byte("<x/>"))
	zw.Close()
	if _, err := Parse(buf.Bytes()); !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("expected ErrInvalidTemplate for missing document, got %v", err)
	}
}
