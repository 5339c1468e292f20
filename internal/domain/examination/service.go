package examination

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/examreport/internal/platform/websocket"
)

type Service struct {
	records  RecordRepository
	issuer   *Issuer
	notifier websocket.Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService wires the examination workflow. A nil notifier disables
// broadcasts.
func NewService(records RecordRepository, notifier websocket.Notifier, logger zerolog.Logger) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		records:  records,
		issuer:   NewIssuer(),
		notifier: notifier,
		logger:   logger.With().Str("component", "examination").Logger(),
		now:      time.Now,
	}
}

// IssuePatientID reserves a new ID and announces it to the stations.
func (s *Service) IssuePatientID(ctx context.Context) (string, error) {
	pid, err := s.issuer.Reserve(ctx, s.records.Reserve)
	if err != nil {
		return "", err
	}
	s.notify(ctx, websocket.SignalNewPatientID, pid)
	return pid, nil
}

// Submit validates and stores the five department submissions of one
// patient.
func (s *Service) Submit(ctx context.Context, patientID, capturedDate string, subs Submissions) (*Record, error) {
	if err := Validate(patientID, subs); err != nil {
		return nil, err
	}

	rec := Assemble(subs, capturedDate, patientID, s.now())
	if err := s.records.Insert(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("patient_id", rec.PatientID).
		Bool("photo", rec.Photo != nil).
		Msg("examination record stored")
	return rec, nil
}

func (s *Service) GetRecord(ctx context.Context, patientID string) (*Record, error) {
	return s.records.Get(ctx, patientID)
}

func (s *Service) ListRecords(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	return s.records.List(ctx, limit, offset)
}

// ClearRecords deletes every stored record and tells the stations to reset.
func (s *Service) ClearRecords(ctx context.Context) (int64, error) {
	n, err := s.records.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Warn().Int64("deleted", n).Msg("examination records cleared")
	s.notify(ctx, websocket.SignalResetPatientData, nil)
	return n, nil
}

func (s *Service) notify(ctx context.Context, signal string, data any) {
	if err := s.notifier.Notify(ctx, signal, data); err != nil {
		s.logger.Warn().Err(err).Str("signal", signal).Msg("notification dropped")
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, any) error { return nil }
