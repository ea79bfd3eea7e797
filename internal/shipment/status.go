package shipment

import (
	"errors"
	"strings"
)

var (
	ErrMalformedStatus = errors.New("shipment: malformed status payload")
	// ErrUnknownShipment means the issuance system has no record of the reference.
	ErrUnknownShipment = errors.New("shipment: unknown shipment")
)

const prePostedLabel = "pre-posted"

type Kind int

const (
	// PrePosted: label issued, carrier has not accepted the parcel yet.
	PrePosted Kind = iota + 1
	// Dispatched covers every other carrier state (accepted, in transit, delivered...).
	Dispatched
)

// Status is the parsed shipment state. The zero value is invalid.
type Status struct {
	kind Kind
	raw  string
}

func ParseStatus(raw string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	if norm == "" {
		return Status{}, ErrMalformedStatus
	}
	if norm == prePostedLabel {
		return Status{kind: PrePosted, raw: norm}, nil
	}
	return Status{kind: Dispatched, raw: norm}, nil
}

func (s Status) Kind() Kind         { return s.kind }
func (s Status) IsPrePosted() bool  { return s.kind == PrePosted }
func (s Status) IsDispatched() bool { return s.kind == Dispatched }
func (s Status) String() string     { return s.raw }
