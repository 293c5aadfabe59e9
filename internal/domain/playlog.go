package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// PlayLog is one playback observation. It is immutable once created: the
// ingestion path builds it from an inbound StreamingEvent and from then on it
// only moves between the buffer and sealed batch payloads.
type PlayLog struct {
	Timestamp  time.Time `json:"timestamp"`
	MemberID   string    `json:"memberId"`
	TrackID    int       `json:"trackId"`
	TrackTitle string    `json:"trackTitle"`
	Nickname   string    `json:"nickname"`
}

// EventTime accepts either an RFC3339 string or epoch seconds, since both
// forms show up on the delivery side.
type EventTime struct {
	time.Time
}

func (t *EventTime) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("parsing event timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	epoch, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parsing event timestamp %s: %w", string(data), err)
	}
	t.Time = time.Unix(epoch, 0).UTC()
	return nil
}

func (t EventTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// StreamingEvent is the inbound per-play message as delivered by the event
// transport. Nickname and track title may be empty; the rest is required.
type StreamingEvent struct {
	Timestamp  EventTime `json:"timestamp"`
	MemberID   string    `json:"member_id"`
	Nickname   string    `json:"nickname"`
	TrackID    int       `json:"track_id"`
	TrackTitle string    `json:"track_title"`
}

var (
	ErrMissingTimestamp = errors.New("streaming event is missing a timestamp")
	ErrMissingMemberID  = errors.New("streaming event is missing a member id")
	ErrMissingTrackID   = errors.New("streaming event is missing a track id")
)

// Validate checks the fields the pipeline cannot proceed without.
func (e *StreamingEvent) Validate() error {
	if e.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	if e.MemberID == "" {
		return ErrMissingMemberID
	}
	if e.TrackID == 0 {
		return ErrMissingTrackID
	}
	return nil
}

// ToPlayLog converts the event into its canonical record. Pure mapping, no
// side effects.
func (e *StreamingEvent) ToPlayLog() PlayLog {
	return PlayLog{
		Timestamp:  e.Timestamp.Time.UTC(),
		MemberID:   e.MemberID,
		TrackID:    e.TrackID,
		TrackTitle: e.TrackTitle,
		Nickname:   e.Nickname,
	}
}

// BufferedLog is a play log together with the window key it was appended
// under. It is the unit the WAL persists while the buffer store is down.
type BufferedLog struct {
	Key string  `json:"key"`
	Log PlayLog `json:"log"`
}
