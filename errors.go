package midicsv

import (
	"errors"
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// Error kinds. Every error surfaced by the decoders carries one of these as
// its ftag; KindOf reads it back.
const (
	// Structural errors abort a conversion unconditionally: bad chunk tags,
	// truncated streams, malformed CSV records.
	Structural ftag.Kind = "STRUCTURAL"
	// Invalid marks events that break a range or length rule. They abort
	// only in strict mode.
	Invalid ftag.Kind = "INVALID"
	// Unknown marks unrecognized meta commands and CSV keywords; the record
	// is dropped and the conversion continues.
	Unknown ftag.Kind = "UNKNOWN"
)

var (
	ErrBadMagic             = errors.New("bad chunk tag")
	ErrStreamExhausted      = errors.New("stream exhausted")
	ErrRegistrationConflict = errors.New("registration conflict")
	ErrNoRunningStatus      = errors.New("data byte without running status")
	ErrUnknownCommand       = errors.New("unknown meta command")
	ErrUnknownKeyword       = errors.New("unknown keyword")
	ErrMalformed            = errors.New("malformed record")
)

// ValidationError names the event variant and the payload field that broke
// a rule.
type ValidationError struct {
	Type   Type
	Field  string
	Value  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %v %d %v", e.Type, e.Field, e.Value, e.Reason)
}

// KindOf returns the kind of err, or "" if err carries none of the kinds of
// this package.
func KindOf(err error) ftag.Kind {
	if err == nil {
		return ""
	}
	switch k := ftag.Get(err); k {
	case Structural, Invalid, Unknown:
		return k
	}
	return ""
}

// StructuralError tags err as Structural, prefixing msg.
func StructuralError(err error, msg string) error {
	return fault.Wrap(err, fmsg.With(msg), ftag.With(Structural))
}

// UnknownError tags err as Unknown, prefixing msg.
func UnknownError(err error, msg string) error {
	return fault.Wrap(err, fmsg.With(msg), ftag.With(Unknown))
}

// InvalidError tags a ValidationError for the given variant and field.
func InvalidError(t Type, field string, value int, reason string) error {
	return fault.Wrap(&ValidationError{Type: t, Field: field, Value: value, Reason: reason}, ftag.With(Invalid))
}

// InvalidStateError tags err as Invalid, prefixing msg. It is used for
// anomalies that are not tied to a single payload field, such as a data byte
// with no running status to apply it to.
func InvalidStateError(err error, msg string) error {
	return fault.Wrap(err, fmsg.With(msg), ftag.With(Invalid))
}
