package control

import (
	"errors"

	"doorsync/door"
	"doorsync/indicator"
	"doorsync/remote"
)

// Error classes used in log lines, so a failing phase can be told apart
// without reading the full error chain.
const (
	ClassTransport      = "transport"
	ClassProtocol       = "protocol"
	ClassDecode         = "decode"
	ClassActuation      = "actuation"
	ClassAcknowledgment = "acknowledgment"
	ClassUnknown        = "unknown"
)

// Classify maps err onto an error class.
func Classify(err error) string {
	if errors.Is(err, door.ErrActuation) {
		return ClassActuation
	}
	kind, ok := remote.KindOf(err)
	if !ok {
		return ClassUnknown
	}
	switch kind {
	case remote.KindConnection, remote.KindWrite:
		return ClassTransport
	case remote.KindStatus:
		return ClassProtocol
	case remote.KindDecode:
		return ClassDecode
	case remote.KindAcknowledge:
		return ClassAcknowledgment
	default:
		return ClassUnknown
	}
}

func fetchEvent(err error) indicator.Event {
	switch Classify(err) {
	case ClassProtocol:
		return indicator.FetchStatus
	case ClassDecode:
		return indicator.FetchDecode
	default:
		return indicator.FetchConnection
	}
}
