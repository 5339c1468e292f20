// Package docx fills placeholder-based Word templates.
//
// Placeholders have the form {{ key }} and may appear in the document body,
// headers and footers. Word frequently splits a placeholder over several runs
// while editing; those fragments are merged back inside their paragraph before
// substitution. Values are either plain strings or inline PNG images.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"time"
)

// ErrInvalidTemplate is returned when the archive is not a Word document.
var ErrInvalidTemplate = errors.New("invalid docx template")

const mainDocument = "word/document.xml"

var (
	contentPartRE = regexp.MustCompile(`^word/(document|header[0-9]*|footer[0-9]*)\.xml$`)
	textNodeRE    = regexp.MustCompile(`(<w:t(?:\s[^>]*[^/])?>)([^<]*)(</w:t>)`)
	paragraphRE   = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*[^/])?>.*?</w:p>`)
	placeholderRE = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)
)

// Context maps placeholder names to values. A value is a string or an Image;
// other types are formatted with fmt.
type Context map[string]any

type entry struct {
	name     string
	modified time.Time
	data     []byte
}

// Template is a parsed, immutable template document. Render may be called
// concurrently.
type Template struct {
	entries []entry
	index   map[string]int
}

// Open reads and parses the template at path.
func Open(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return Parse(data)
}

// Parse parses template bytes.
func Parse(data []byte) (*Template, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	t := &Template{index: make(map[string]int, len(zr.File))}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrInvalidTemplate, f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidTemplate, f.Name, err)
		}
		t.index[f.Name] = len(t.entries)
		t.entries = append(t.entries, entry{name: f.Name, modified: f.Modified, data: b})
	}

	if _, ok := t.index[mainDocument]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidTemplate, mainDocument)
	}
	return t, nil
}

// Placeholders returns the sorted, de-duplicated placeholder names used by
// the template.
func (t *Template) Placeholders() []string {
	seen := make(map[string]struct{})
	for _, e := range t.entries {
		if !contentPartRE.MatchString(e.name) {
			continue
		}
		merged := mergeSplitPlaceholders(string(e.data))
		for _, m := range textNodeRE.FindAllStringSubmatch(merged, -1) {
			for _, p := range placeholderRE.FindAllStringSubmatch(m[2], -1) {
				seen[p[1]] = struct{}{}
			}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Render substitutes ctx into a copy of the template and returns the
// resulting document. Missing keys render as empty text; unused keys are
// ignored.
func (t *Template) Render(ctx Context) ([]byte, error) {
	r := newRendering(t)

	for _, e := range t.entries {
		if !contentPartRE.MatchString(e.name) {
			continue
		}
		r.renderPart(e.name, string(e.data), ctx)
	}
	r.finish()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range t.entries {
		data := e.data
		if b, ok := r.replaced[e.name]; ok {
			data = b
		}
		if err := writeEntry(zw, e.name, e.modified, data); err != nil {
			return nil, err
		}
	}
	for _, name := range r.added {
		if err := writeEntry(zw, name, time.Now(), r.replaced[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close document: %w", err)
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, modified time.Time, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
