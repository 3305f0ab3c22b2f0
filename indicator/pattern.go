package indicator

import "time"

// Symbol timings for blink patterns.
const (
	ShortOn = 100 * time.Millisecond // '.'
	LongOff = 300 * time.Millisecond // ' '
	LongOn  = 300 * time.Millisecond // anything else
	Gap     = 100 * time.Millisecond // after every symbol
)

// Step is one level held for a duration.
type Step struct {
	High     bool
	Duration time.Duration
}

// Encode turns a pattern string into the steps a blinker plays.
func Encode(pattern string) []Step {
	steps := make([]Step, 0, 2*len(pattern))
	for _, r := range pattern {
		switch r {
		case '.':
			steps = append(steps, Step{High: true, Duration: ShortOn})
		case ' ':
			steps = append(steps, Step{High: false, Duration: LongOff})
		default:
			steps = append(steps, Step{High: true, Duration: LongOn})
		}
		steps = append(steps, Step{High: false, Duration: Gap})
	}
	return steps
}

// Event is an operational state worth showing on the status LED.
type Event int

const (
	Booting Event = iota
	Connecting
	Waiting
	Reconnecting
	Idle
	Executing
	Reported
	Retry
	ReportDeferred
	FetchConnection
	FetchStatus
	FetchDecode
	ActuationFailed
	Halted
)

var eventNames = [...]string{
	Booting:         "booting",
	Connecting:      "connecting",
	Waiting:         "waiting",
	Reconnecting:    "reconnecting",
	Idle:            "idle",
	Executing:       "executing",
	Reported:        "reported",
	Retry:           "retry",
	ReportDeferred:  "report_deferred",
	FetchConnection: "fetch_connection",
	FetchStatus:     "fetch_status",
	FetchDecode:     "fetch_decode",
	ActuationFailed: "actuation_failed",
	Halted:          "halted",
}

// Blink patterns, one per event. These are read off the LED in the field,
// so never renumber or reuse one.
var patterns = [...]string{
	Booting:         "...",
	Connecting:      ". . .",
	Waiting:         ".. ..",
	Reconnecting:    "-.-.",
	Idle:            ".",
	Executing:       "--",
	Reported:        ".-",
	Retry:           "..-",
	ReportDeferred:  "..--",
	FetchConnection: "-..",
	FetchStatus:     "-.-",
	FetchDecode:     "--.",
	ActuationFailed: "---",
	Halted:          "----",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[e]
}

// Pattern returns the blink pattern for e. Unknown events get the Halted
// pattern so nothing is ever silent.
func Pattern(e Event) string {
	if e < 0 || int(e) >= len(patterns) {
		return patterns[Halted]
	}
	return patterns[e]
}

// Events lists every defined event.
func Events() []Event {
	out := make([]Event, 0, len(patterns))
	for e := Booting; e <= Halted; e++ {
		out = append(out, e)
	}
	return out
}
