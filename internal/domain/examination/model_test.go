package examination

import (
	"encoding/json"
	"testing"
)

func TestSubmission_UnmarshalJSON(t *testing.T) {
	body := `{
		"height": 121.5,
		"weight": "24",
		"cns_alert": true,
		"tooth_cavity_permanent": ["11", "12", 21],
		"nails_desc": null,
		"nested": {"a": 1}
	}`

	var sub Submission
	if err := json.Unmarshal([]byte(body), &sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"height":                 "121.5",
		"weight":                 "24",
		"cns_alert":              "true",
		"tooth_cavity_permanent": "11,12,21",
	}
	for k, v := range want {
		if sub[k] != v {
			t.Errorf("%s: got %q, want %q", k, sub[k], v)
		}
	}
	if _, ok := sub["nails_desc"]; ok {
		t.Error("expected null value to be dropped")
	}
	if _, ok := sub["nested"]; ok {
		t.Error("expected object value to be dropped")
	}
}

func TestSubmission_UnmarshalNull(t *testing.T) {
	var subs Submissions
	if err := json.Unmarshal([]byte(`{"it": null, "ent": {}}`), &subs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subs.Identity) != 0 || len(subs.ENT) != 0 {
		t.Errorf("expected empty sections, got %v / %v", subs.Identity, subs.ENT)
	}
}

func TestSubmission_UnmarshalRejectsNonObject(t *testing.T) {
	var sub Submission
	if err := json.Unmarshal([]byte(`"just text"`), &sub); err == nil {
		t.Error("expected error for non-object submission")
	}
}

func TestRecord_DisplayName(t *testing.T) {
	rec := &Record{PatientID: "PID-20240101-abcdef12", Fields: Mapped{"name": "  "}}
	if got := rec.DisplayName(); got != rec.PatientID {
		t.Errorf("expected patient id fallback, got %q", got)
	}
	rec.Fields["name"] = "Asha"
	if got := rec.DisplayName(); got != "Asha" {
		t.Errorf("expected Asha, got %q", got)
	}
}

func TestRecord_ValueNil(t *testing.T) {
	var rec *Record
	if rec.Value("name") != "" {
		t.Error("expected empty value for nil record")
	}
}
