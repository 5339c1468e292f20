package report

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/examreport/internal/domain/examination"
	"github.com/ehr/examreport/internal/platform/cache"
)

// CachePrefix starts every cached report key.
const CachePrefix = "report:"

// CacheKey returns the cache key of the report of pid in format f.
func CacheKey(pid string, f Format) string {
	return CachePrefix + pid + ":" + string(f)
}

// RecordSource loads stored examination records.
type RecordSource interface {
	GetRecord(ctx context.Context, patientID string) (*examination.Record, error)
}

type Service struct {
	records  RecordSource
	renderer *Renderer
	cache    cache.Cache
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewService creates the report service. A nil cache disables caching.
func NewService(records RecordSource, renderer *Renderer, c cache.Cache, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		records:  records,
		renderer: renderer,
		cache:    c,
		ttl:      ttl,
		logger:   logger.With().Str("component", "report").Logger(),
	}
}

// Generate returns the report of patientID in format, serving it from the
// cache when possible. A PDF request may yield a DOCX document.
func (s *Service) Generate(ctx context.Context, patientID string, format Format) (Document, error) {
	rec, err := s.records.GetRecord(ctx, patientID)
	if err != nil {
		return Document{}, err
	}

	key := CacheKey(rec.PatientID, format)
	if data, ok := s.lookup(ctx, key); ok {
		return Document{Data: data, Format: format, Name: rec.DisplayName()}, nil
	}

	var doc Document
	if format == FormatPDF {
		doc, err = s.renderer.RenderPDF(ctx, rec)
	} else {
		doc, err = s.renderer.Render(ctx, rec)
	}
	if err != nil {
		return Document{}, err
	}

	if doc.Format == format {
		s.store(ctx, key, doc.Data)
	}
	return doc, nil
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeletePrefix(ctx, CachePrefix)
}

func (s *Service) lookup(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn().Err(err).Str("key", key).Msg("report cache lookup failed")
		}
		return nil, false
	}
	return data, true
}

func (s *Service) store(ctx context.Context, key string, data []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("report cache store failed")
	}
}
