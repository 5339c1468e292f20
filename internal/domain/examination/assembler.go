package examination

import (
	"strings"
	"time"
)

var captureLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseCaptureDate parses the capture timestamp sent by the identity
// station. Values without a zone are read in now's location. Anything
// unparseable yields now.
func ParseCaptureDate(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}
	for _, layout := range captureLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t
		}
	}
	return now
}

// Assemble maps all five submissions and merges them into one record.
// Later departments overwrite earlier ones on a key collision.
func Assemble(subs Submissions, capturedDate, patientID string, now time.Time) *Record {
	identity, photo := MapIdentity(subs.Identity)
	fields := make(Mapped, len(StorageKeys()))
	for _, m := range []Mapped{
		identity,
		MapENT(subs.ENT),
		MapVision(subs.Vision),
		MapGeneral(subs.General),
		MapDental(subs.Dental),
	} {
		for k, v := range m {
			fields[k] = v
		}
	}

	return &Record{
		PatientID:  patientID,
		Fields:     fields,
		Photo:      photo,
		CapturedAt: ParseCaptureDate(capturedDate, now),
		CreatedAt:  now,
	}
}
