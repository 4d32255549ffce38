package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// FloatingTimestampLayout is the open-data API's timezone-less timestamp format.
const FloatingTimestampLayout = "2006-01-02T15:04:05.000"

// FloatingTime is a timestamp without zone information, as the remote API emits them.
type FloatingTime struct {
	time.Time
}

// NewFloatingTime truncates t to a zone-less UTC value.
func NewFloatingTime(t time.Time) FloatingTime {
	return FloatingTime{Time: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)}
}

// MustParseDate parses a YYYY-MM-DD date. It panics on malformed input and is meant for fixtures.
func MustParseDate(s string) FloatingTime {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return FloatingTime{Time: t}
}

// Key returns a stable string form used for grouping.
func (f FloatingTime) Key() string {
	return f.Time.Format(FloatingTimestampLayout)
}

// MarshalJSON writes the floating timestamp format; the zero value is null.
func (f FloatingTime) MarshalJSON() ([]byte, error) {
	if f.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(f.Time.Format(FloatingTimestampLayout))
}

// UnmarshalJSON accepts floating timestamps, RFC 3339 and plain dates.
func (f *FloatingTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		f.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("inspection date: %w", err)
	}
	if s == "" {
		f.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{FloatingTimestampLayout, "2006-01-02T15:04:05", time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			*f = NewFloatingTime(t)
			return nil
		}
	}
	return fmt.Errorf("inspection date: unrecognized timestamp %q", s)
}

// InspectionRow is one violation-level record from the remote inspection API.
// ID is the violation's ordinal within its inspection visit and is assigned locally.
type InspectionRow struct {
	ProgramIdentifier        string       `json:"program_identifier"`
	Name                     string       `json:"name"`
	Description              string       `json:"description"`
	Address                  string       `json:"address"`
	City                     string       `json:"city"`
	ZipCode                  string       `json:"zip_code"`
	InspectionBusinessName   string       `json:"inspection_business_name"`
	InspectionType           string       `json:"inspection_type"`
	InspectionScore          string       `json:"inspection_score"`
	InspectionResult         string       `json:"inspection_result"`
	InspectionClosedBusiness bool         `json:"inspection_closed_business"`
	InspectionSerialNum      string       `json:"inspection_serial_num"`
	InspectionDate           FloatingTime `json:"inspection_date"`
	ViolationType            string       `json:"violation_type"`
	ViolationDescription     string       `json:"violation_description"`
	ViolationPoints          string       `json:"violation_points"`
	ID                       int          `json:"id"`
}

// Violation is one code infraction recorded during a visit.
type Violation struct {
	ViolationType        string `json:"violation_type"`
	ViolationDescription string `json:"violation_description"`
	ViolationPoints      string `json:"violation_points"`
}

// AggregatedInspection is one inspection visit with its violations collapsed.
type AggregatedInspection struct {
	ProgramIdentifier        string       `json:"program_identifier"`
	Name                     string       `json:"name"`
	Description              string       `json:"description"`
	Address                  string       `json:"address"`
	City                     string       `json:"city"`
	ZipCode                  string       `json:"zip_code"`
	InspectionBusinessName   string       `json:"inspection_business_name"`
	InspectionType           string       `json:"inspection_type"`
	InspectionScore          string       `json:"inspection_score"`
	InspectionResult         string       `json:"inspection_result"`
	InspectionClosedBusiness bool         `json:"inspection_closed_business"`
	InspectionSerialNum      string       `json:"inspection_serial_num"`
	InspectionDate           FloatingTime `json:"inspection_date"`
	Violations               []Violation  `json:"violations"`
}

// InspectionQuery describes one remote API request: the echoed inputs and the final URL.
type InspectionQuery struct {
	ProgramIdentifier string `json:"program_identifier,omitempty"`
	City              string `json:"city,omitempty"`
	StartDate         string `json:"start_date"`
	Where             string `json:"where"`
	URL               string `json:"url"`
}
