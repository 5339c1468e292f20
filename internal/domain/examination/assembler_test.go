package examination

import (
	"testing"
	"time"
)

func TestParseCaptureDate(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, loc)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-20T10:30:00Z", time.Date(2024, 5, 20, 10, 30, 0, 0, time.UTC)},
		{"2024-05-20T10:30:00.123+05:30", time.Date(2024, 5, 20, 10, 30, 0, 123000000, loc)},
		{"2024-05-20T10:30:00", time.Date(2024, 5, 20, 10, 30, 0, 0, loc)},
		{"2024-05-20 10:30:00", time.Date(2024, 5, 20, 10, 30, 0, 0, loc)},
		{"2024-05-20T10:30", time.Date(2024, 5, 20, 10, 30, 0, 0, loc)},
		{"2024-05-20", time.Date(2024, 5, 20, 0, 0, 0, 0, loc)},
		{"", now},
		{"yesterday", now},
		{"2024-13-45", now},
	}
	for _, tt := range tests {
		if got := ParseCaptureDate(tt.in, now); !got.Equal(tt.want) {
			t.Errorf("ParseCaptureDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAssemble(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	subs := Submissions{
		Identity: Submission{"name": "Asha", "bloodGroup": "O+", "photo": "aGVsbG8="},
		ENT:      Submission{"tonsils": "Normal"},
		Vision:   Submission{"re_vision": "6/6"},
		General:  Submission{"bmi": "16.4", "extra": "ignored"},
		Dental:   Submission{"tooth_cavity_permanent": "11, 12"},
	}

	rec := Assemble(subs, "2024-05-20", "PID-20240601-0badf00d", now)

	if rec.PatientID != "PID-20240601-0badf00d" {
		t.Errorf("unexpected patient id %q", rec.PatientID)
	}
	if len(rec.Fields) != len(StorageKeys()) {
		t.Errorf("expected %d fields, got %d", len(StorageKeys()), len(rec.Fields))
	}
	want := map[string]string{"name": "Asha", "blood": "O+", "tons": "Normal", "rev": "6/6", "bmi": "16.4", "tooth_perm": "11, 12", "hip": ""}
	for k, v := range want {
		if rec.Fields[k] != v {
			t.Errorf("%s: got %q, want %q", k, rec.Fields[k], v)
		}
	}
	if _, ok := rec.Fields["extra"]; ok {
		t.Error("unknown submission keys must not survive assembly")
	}
	if string(rec.Photo) != "hello" {
		t.Errorf("expected decoded photo, got %q", rec.Photo)
	}
	if !rec.CapturedAt.Equal(time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected captured at %v", rec.CapturedAt)
	}
	if !rec.CreatedAt.Equal(now) {
		t.Errorf("unexpected created at %v", rec.CreatedAt)
	}
}

func TestAssemble_BadDateFallsBackToNow(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	rec := Assemble(Submissions{}, "not a date", "PID-1", now)
	if !rec.CapturedAt.Equal(now) {
		t.Errorf("expected now, got %v", rec.CapturedAt)
	}
	if rec.Photo != nil {
		t.Error("expected no photo")
	}
}

func TestAssemble_Independent(t *testing.T) {
	now := time.Now()
	a := Assemble(Submissions{Identity: Submission{"name": "A"}}, "", "PID-A", now)
	b := Assemble(Submissions{Identity: Submission{"name": "B"}}, "", "PID-B", now)
	if a.Fields["name"] != "A" || b.Fields["name"] != "B" {
		t.Errorf("records share state: %q %q", a.Fields["name"], b.Fields["name"])
	}
}
