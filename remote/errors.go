package remote

import (
	"errors"
	"fmt"
)

// Kind classifies a failed exchange.
type Kind int

const (
	// KindConnection is a transport-level failure (DNS, TLS, timeout...).
	KindConnection Kind = iota
	// KindStatus is a response outside 200-299.
	KindStatus
	// KindDecode is a GET body that is not a command record.
	KindDecode
	// KindWrite means the PUT body was not fully sent.
	KindWrite
	// KindAcknowledge is a 2xx PUT response with an unreadable body.
	KindAcknowledge
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindWrite:
		return "write"
	case KindAcknowledge:
		return "acknowledge"
	default:
		return "unknown"
	}
}

// Error is returned by every Client operation.
type Error struct {
	Op     string // "fetch" or "push"
	Kind   Kind
	Status int // set for KindStatus
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, and false if err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}
