package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Direction selects which door lead is energized.
type Direction uint8

const (
	Down Direction = iota
	Up
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Record is the remote command record, mirrored locally for one tick.
// Override and OverrideDay are not interpreted here but must survive a
// decode/encode round trip unchanged.
type Record struct {
	Executed    uint8  `json:"executed"`
	Up          uint8  `json:"up"`
	Amount      uint8  `json:"amount"`
	Override    uint8  `json:"over_ride"`
	OverrideDay uint16 `json:"over_ride_day"`
}

// wireRecord tells a missing key apart from a zero value.
type wireRecord struct {
	Executed    *uint8  `json:"executed"`
	Up          *uint8  `json:"up"`
	Amount      *uint8  `json:"amount"`
	Override    *uint8  `json:"over_ride"`
	OverrideDay *uint16 `json:"over_ride_day"`
}

// Decode parses a command record from a response body. All five keys
// must be present and no others; null, an empty object or an error
// document is not a record. Out-of-range numbers (e.g. amount 300) are
// rejected.
func Decode(body []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	var w wireRecord
	if err := dec.Decode(&w); err != nil {
		return Record{}, fmt.Errorf("decode command: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Record{}, errors.New("decode command: trailing data after record")
	}

	var missing []string
	if w.Executed == nil {
		missing = append(missing, "executed")
	}
	if w.Up == nil {
		missing = append(missing, "up")
	}
	if w.Amount == nil {
		missing = append(missing, "amount")
	}
	if w.Override == nil {
		missing = append(missing, "over_ride")
	}
	if w.OverrideDay == nil {
		missing = append(missing, "over_ride_day")
	}
	if len(missing) > 0 {
		return Record{}, fmt.Errorf("decode command: missing %s", strings.Join(missing, ", "))
	}

	return Record{
		Executed:    *w.Executed,
		Up:          *w.Up,
		Amount:      *w.Amount,
		Override:    *w.Override,
		OverrideDay: *w.OverrideDay,
	}, nil
}

// Encode serializes the record for a PUT body.
func Encode(r Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}
	return b, nil
}

// IsExecuted reports whether the action was already performed and acknowledged.
func (r Record) IsExecuted() bool {
	return r.Executed != 0
}

// Direction returns Up for any non-zero up field.
func (r Record) Direction() Direction {
	if r.Up != 0 {
		return Up
	}
	return Down
}

// Duration is how long the selected lead stays energized.
func (r Record) Duration() time.Duration {
	return time.Duration(r.Amount) * time.Second
}

// MarkExecuted sets the executed flag and nothing else.
func (r *Record) MarkExecuted() {
	r.Executed = 1
}
