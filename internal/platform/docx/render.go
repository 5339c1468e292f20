package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image/png"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// EMUPerInch is the number of English Metric Units in one inch.
const EMUPerInch = 914400

const (
	contentTypesPart = "[Content_Types].xml"
	imageRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	firstDrawingID   = 9000
)

var relIDRE = regexp.MustCompile(`Id="rId([0-9]+)"`)

// Image is an inline PNG with its display extent in EMU.
type Image struct {
	Data   []byte
	Width  int64
	Height int64
}

// NewImage sizes a PNG to widthInches, keeping its aspect ratio.
func NewImage(data []byte, widthInches float64) (Image, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("read image size: %w", err)
	}
	w := int64(widthInches * EMUPerInch)
	h := w
	if cfg.Width > 0 {
		h = w * int64(cfg.Height) / int64(cfg.Width)
	}
	return Image{Data: data, Width: w, Height: h}, nil
}

// rendering holds the parts produced by one Render call.
type rendering struct {
	t        *Template
	replaced map[string][]byte
	added    []string
	images   int
}

func newRendering(t *Template) *rendering {
	return &rendering{t: t, replaced: make(map[string][]byte)}
}

func (r *rendering) source(name string) ([]byte, bool) {
	if b, ok := r.replaced[name]; ok {
		return b, true
	}
	if i, ok := r.t.index[name]; ok {
		return r.t.entries[i].data, true
	}
	return nil, false
}

func (r *rendering) put(name string, data []byte) {
	_, inTemplate := r.t.index[name]
	_, already := r.replaced[name]
	if !inTemplate && !already {
		r.added = append(r.added, name)
	}
	r.replaced[name] = data
}

// relsName returns the relationship part belonging to a content part.
func relsName(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

func (r *rendering) renderPart(name, xmlText string, ctx Context) {
	rels := relationships{name: relsName(name)}
	if b, ok := r.source(rels.name); ok {
		rels.xml = string(b)
	}

	merged := mergeSplitPlaceholders(xmlText)
	out := textNodeRE.ReplaceAllStringFunc(merged, func(node string) string {
		m := textNodeRE.FindStringSubmatch(node)
		content := m[2]
		if !strings.Contains(content, "{{") {
			return node
		}
		replaced := placeholderRE.ReplaceAllStringFunc(content, func(ph string) string {
			key := placeholderRE.FindStringSubmatch(ph)[1]
			switch v := ctx[key].(type) {
			case nil:
				return ""
			case string:
				return escape(v)
			case Image:
				return "</w:t>" + r.embed(&rels, v) + `<w:t xml:space="preserve">`
			default:
				return escape(fmt.Sprint(v))
			}
		})
		if replaced == content {
			return node
		}
		return preserveSpace(m[1]) + replaced + m[3]
	})

	if out != xmlText {
		r.put(name, []byte(out))
	}
	if rels.changed {
		r.put(rels.name, []byte(rels.xml))
	}
}

// embed stores img as a media part, links it from rels and returns the
// drawing markup.
func (r *rendering) embed(rels *relationships, img Image) string {
	r.images++
	media := r.mediaName()
	r.put(media, img.Data)

	id := rels.add(imageRelType, "media/"+path.Base(media))
	docPr := firstDrawingID + r.images
	return fmt.Sprintf(drawingXML,
		img.Width, img.Height, docPr, docPr, path.Base(media), id, img.Width, img.Height)
}

func (r *rendering) mediaName() string {
	for n := r.images; ; n++ {
		name := fmt.Sprintf("word/media/rendered%d.png", n)
		if _, taken := r.source(name); !taken {
			return name
		}
	}
}

// finish registers the PNG content type when images were embedded.
func (r *rendering) finish() {
	if r.images == 0 {
		return
	}
	b, ok := r.source(contentTypesPart)
	if !ok {
		return
	}
	ct := string(b)
	if strings.Contains(strings.ToLower(ct), `extension="png"`) {
		return
	}
	ct = strings.Replace(ct, "</Types>", `<Default Extension="png" ContentType="image/png"/></Types>`, 1)
	r.put(contentTypesPart, []byte(ct))
}

type relationships struct {
	name    string
	xml     string
	changed bool
}

func (rs *relationships) add(relType, target string) string {
	if rs.xml == "" {
		rs.xml = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`
	}
	next := 1
	for _, m := range relIDRE.FindAllStringSubmatch(rs.xml, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= next {
			next = n + 1
		}
	}
	id := "rId" + strconv.Itoa(next)
	rel := fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="%s"/>`, id, relType, target)
	rs.xml = strings.Replace(rs.xml, "</Relationships>", rel+"</Relationships>", 1)
	rs.changed = true
	return id
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

const drawingXML = `<w:drawing>` +
	`<wp:inline distT="0" distB="0" distL="0" distR="0" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing">` +
	`<wp:extent cx="%d" cy="%d"/>` +
	`<wp:docPr id="%d" name="Picture %d"/>` +
	`<a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">` +
	`<a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:nvPicPr><pic:cNvPr id="0" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>` +
	`<pic:blipFill><a:blip r:embed="%s" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"/>` +
	`<a:stretch><a:fillRect/></a:stretch></pic:blipFill>` +
	`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm>` +
	`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>` +
	`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing>`
