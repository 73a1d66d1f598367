package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type (
	UserId        = string
	Email         = string
	PostId        = string
	EventId       = string
	ApplicationId = string
	PodId         = string
	LocalId       = string
)

// zone-less layouts are what the backend emits for LocalDateTime fields
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Timestamp decodes leniently: null, empty or unparseable input becomes the
// zero time instead of an error, so one bad field never fails a whole feed.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func ParseTimestamp(s string) (Timestamp, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t.UTC()}, true
		}
	}
	return Timestamp{}, false
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	ts.Time = time.Time{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		// epoch millis are accepted as well
		var millis int64
		if err := json.Unmarshal(data, &millis); err == nil {
			ts.Time = time.UnixMilli(millis).UTC()
		}
		return nil
	}
	parsed, _ := ParseTimestamp(raw)
	*ts = parsed
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

// Skills is an ordered set: first insertion wins, blanks and exact duplicates
// are dropped.
type Skills []string

func NewSkills(values ...string) Skills {
	var s Skills
	for _, v := range values {
		s = s.Add(v)
	}
	return s
}

// Add returns a new set with value appended unless it is blank or present.
func (s Skills) Add(value string) Skills {
	value = strings.TrimSpace(value)
	if value == "" || s.Contains(value) {
		return s
	}
	out := make(Skills, len(s), len(s)+1)
	copy(out, s)
	return append(out, value)
}

func (s Skills) Remove(value string) Skills {
	out := make(Skills, 0, len(s))
	for _, v := range s {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

func (s Skills) Contains(value string) bool {
	for _, v := range s {
		if v == value {
			return true
		}
	}
	return false
}

func (s *Skills) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewSkills(raw...)
	return nil
}
