package examination

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Submission is one station's payload keyed by its external field names.
type Submission map[string]string

// UnmarshalJSON accepts scalar values of any JSON type and renders them as
// text. Arrays of scalars are joined with ","; nulls and objects are dropped.
func (s *Submission) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}

	out := make(Submission, len(raw))
	for k, v := range raw {
		if text, ok := scalarText(v); ok {
			out[k] = text
		}
	}
	*s = out
	return nil
}

func scalarText(v json.RawMessage) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return "", false
	}
	if list, ok := x.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if text, ok := scalarValue(item); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, ","), true
	}
	return scalarValue(x)
}

func scalarValue(x any) (string, bool) {
	switch t := x.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// Submissions carries all five department payloads of one patient.
type Submissions struct {
	Identity Submission `json:"it"`
	ENT      Submission `json:"ent"`
	Vision   Submission `json:"vision"`
	General  Submission `json:"general"`
	Dental   Submission `json:"dental"`
}

// Section returns the payload of d.
func (s Submissions) Section(d Department) Submission {
	switch d {
	case DeptIdentity:
		return s.Identity
	case DeptENT:
		return s.ENT
	case DeptVision:
		return s.Vision
	case DeptGeneral:
		return s.General
	case DeptDental:
		return s.Dental
	}
	return nil
}

// Mapped is a department's data keyed by storage column.
type Mapped map[string]string

// Photo holds decoded portrait bytes. A nil Photo means no photo was sent.
type Photo []byte

// Record is the canonical flat examination record of one patient.
type Record struct {
	PatientID  string
	Fields     Mapped
	Photo      Photo
	CapturedAt time.Time
	CreatedAt  time.Time
}

// Value returns the stored value of key, or "" when absent.
func (r *Record) Value(key string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	return r.Fields[key]
}

// DisplayName is used for downloaded file names.
func (r *Record) DisplayName() string {
	if name := strings.TrimSpace(r.Value(KeyName)); name != "" {
		return name
	}
	return r.PatientID
}
