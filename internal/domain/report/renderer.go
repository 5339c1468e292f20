// Package report fills the examination report template from a stored
// record and optionally converts the result to PDF.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/examreport/internal/domain/dentalchart"
	"github.com/ehr/examreport/internal/domain/examination"
	"github.com/ehr/examreport/internal/platform/converter"
	"github.com/ehr/examreport/internal/platform/docx"
	"github.com/ehr/examreport/internal/platform/imaging"
)

// Format is the file type of a rendered report.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePDF  = "application/pdf"
)

// Template placeholders that are not storage columns.
const (
	KeyPatientID  = "pid"
	KeyCapturedAt = "cap_dt"
	KeyCreatedAt  = "created_at"
)

const contextTimeLayout = "2006-01-02 15:04:05"

var descriptionAliases = map[string]string{
	"nails_description":   examination.KeyNailsDesc,
	"hair_description":    examination.KeyHairDesc,
	"skin_description":    examination.KeySkinDesc,
	"allergy_description": examination.KeyAllergyDesc,
	"speech_description":  examination.KeySpeechDesc,
}

// Document is a rendered report.
type Document struct {
	Data   []byte
	Format Format
	Name   string
}

func (d Document) ContentType() string {
	if d.Format == FormatPDF {
		return mimePDF
	}
	return mimeDOCX
}

func (d Document) Filename() string {
	return d.Name + "." + string(d.Format)
}

// Template renders a filled document from placeholder values.
type Template interface {
	Render(ctx docx.Context) ([]byte, error)
}

type RendererConfig struct {
	PhotoSize   int
	PhotoInches float64
}

type Renderer struct {
	tmpl   Template
	conv   converter.Converter
	cfg    RendererConfig
	logger zerolog.Logger
}

// NewRenderer creates a renderer. conv may be nil, in which case PDF
// requests return the DOCX document.
func NewRenderer(tmpl Template, conv converter.Converter, cfg RendererConfig, logger zerolog.Logger) *Renderer {
	if cfg.PhotoSize <= 0 {
		cfg.PhotoSize = 144
	}
	if cfg.PhotoInches <= 0 {
		cfg.PhotoInches = 1.5
	}
	return &Renderer{
		tmpl:   tmpl,
		conv:   conv,
		cfg:    cfg,
		logger: logger.With().Str("component", "report").Logger(),
	}
}

// BuildContext derives the placeholder values of rec.
func (r *Renderer) BuildContext(rec *examination.Record) docx.Context {
	ctx := make(docx.Context, len(rec.Fields)+32)
	for k, v := range rec.Fields {
		ctx[k] = v
	}
	ctx[KeyPatientID] = rec.PatientID
	ctx[KeyCapturedAt] = formatTime(rec.CapturedAt)
	ctx[KeyCreatedAt] = formatTime(rec.CreatedAt)

	for alias, key := range descriptionAliases {
		ctx[alias] = rec.Value(key)
	}
	for k, v := range dentalchart.Derive(rec.Value(examination.KeyToothPermanent), rec.Value(examination.KeyToothPrimary)) {
		ctx[k] = v
	}

	ctx[examination.PhotoField] = ""
	if rec.Photo != nil {
		if img, err := r.photo(rec.Photo); err != nil {
			r.logger.Warn().Err(err).Str("patient_id", rec.PatientID).Msg("photo omitted from report")
		} else {
			ctx[examination.PhotoField] = img
		}
	}
	return ctx
}

func (r *Renderer) photo(stored []byte) (docx.Image, error) {
	png, err := imaging.NormalizePhoto(imaging.DecodePayload(stored), r.cfg.PhotoSize)
	if err != nil {
		return docx.Image{}, err
	}
	return docx.NewImage(png, r.cfg.PhotoInches)
}

// Render produces the DOCX report of rec.
func (r *Renderer) Render(_ context.Context, rec *examination.Record) (Document, error) {
	data, err := r.tmpl.Render(r.BuildContext(rec))
	if err != nil {
		return Document{}, fmt.Errorf("render template: %w", err)
	}
	return Document{Data: data, Format: FormatDOCX, Name: rec.DisplayName()}, nil
}

// RenderPDF produces the PDF report of rec. Any conversion failure is
// treated as converter.ErrUnavailable and the DOCX document is returned.
func (r *Renderer) RenderPDF(ctx context.Context, rec *examination.Record) (Document, error) {
	doc, err := r.Render(ctx, rec)
	if err != nil {
		return Document{}, err
	}
	if r.conv == nil {
		return doc, nil
	}

	pdf, err := r.conv.Convert(ctx, doc.Data)
	if err != nil {
		if !errors.Is(err, converter.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", converter.ErrUnavailable, err)
		}
		r.logger.Warn().Err(err).Str("patient_id", rec.PatientID).Msg("pdf conversion unavailable, serving docx")
		return doc, nil
	}
	return Document{Data: pdf, Format: FormatPDF, Name: doc.Name}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(contextTimeLayout)
}
