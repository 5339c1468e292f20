package examination

import (
	"time"

	"github.com/ehr/examreport/internal/platform/imaging"
)

// Presentation keys added on top of the department fields.
const (
	KeyPatientID    = "patientId"
	KeyCapturedDate = "captured_date"
	KeyCreatedAt    = "created_at"
)

// Presentation is a record keyed by the stations' external field names.
type Presentation map[string]string

// TranslateFields renames storage columns back to external names. Every
// external field is present; missing columns become "".
func TranslateFields(fields map[string]string) Presentation {
	out := make(Presentation, len(fields))
	for _, d := range Departments {
		for _, f := range fieldTables[d] {
			out[f.External] = fields[f.Storage]
		}
	}
	return out
}

// Translate returns the presentation form of rec, with the photo as a
// data URL.
func Translate(rec *Record) Presentation {
	out := TranslateFields(rec.Fields)
	out[KeyPatientID] = rec.PatientID
	out[KeyCapturedDate] = formatTime(rec.CapturedAt)
	out[KeyCreatedAt] = formatTime(rec.CreatedAt)
	out[PhotoField] = imaging.DataURL(rec.Photo)
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
