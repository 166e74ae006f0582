package midicsv

import (
	"fmt"
	"log"
)

type (
	// Outcome is the result of checking a Diagnostic against a Policy.
	Outcome int

	// Diagnostic locates an anomaly found while converting: in a binary
	// stream by track and byte offset, in CSV text by line.
	Diagnostic struct {
		Track  int // 1-based; 0 for the header
		Offset int // byte offset into the file, -1 if not applicable
		Line   int // 1-based CSV line, 0 if not applicable
		Err    error
	}

	// Policy decides which diagnostics abort a conversion. Structural errors
	// always do; unknown identifiers never do; validation errors do only when
	// Strict is set. Non-fatal diagnostics go to Warn, or to the standard
	// logger when Warn is nil.
	Policy struct {
		Strict bool
		Warn   func(Diagnostic)
	}
)

const (
	OK Outcome = iota
	Warned
	Fatal
)

func (d Diagnostic) Error() string {
	switch {
	case d.Line > 0:
		return fmt.Sprintf("line %d: %v", d.Line, d.Err)
	case d.Offset >= 0 && d.Track > 0:
		return fmt.Sprintf("track %d, offset %d: %v", d.Track, d.Offset, d.Err)
	case d.Offset >= 0:
		return fmt.Sprintf("offset %d: %v", d.Offset, d.Err)
	}
	return d.Err.Error()
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}

// Check classifies d. When the outcome is Fatal the returned error should be
// handed back to the caller as is.
func (p Policy) Check(d Diagnostic) (Outcome, error) {
	if d.Err == nil {
		return OK, nil
	}
	switch KindOf(d.Err) {
	case Unknown:
		p.warn(d)
		return Warned, nil
	case Invalid:
		if p.Strict {
			return Fatal, d
		}
		p.warn(d)
		return Warned, nil
	}
	return Fatal, d
}

func (p Policy) warn(d Diagnostic) {
	if p.Warn != nil {
		p.Warn(d)
		return
	}
	log.Printf("warning: %v", d)
}

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Warned:
		return "warned"
	case Fatal:
		return "fatal"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}
