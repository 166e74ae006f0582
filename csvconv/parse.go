package csvconv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/midicsv/midicsv"
)

// Parser turns midicsv text into a Pattern. Non-fatal diagnostics go to
// Warn, or to the standard logger if Warn is nil.
type Parser struct {
	Strict bool
	Warn   func(midicsv.Diagnostic)
}

// Parse parses CSV text. The ticks of the returned pattern are delta ticks,
// the same shape smf.Decode returns.
func Parse(text string, strict bool) (midicsv.Pattern, error) {
	p := Parser{Strict: strict}
	return p.Parse(strings.NewReader(text))
}

// parseState is scoped to one Parse call.
type parseState struct {
	policy       midicsv.Policy
	pattern      midicsv.Pattern
	lines        [][]int // source line of every event, per track
	headerTracks int
	headerLine   int
}

func (p *Parser) Parse(r io.Reader) (midicsv.Pattern, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.Comment = '#'
	s := parseState{
		policy:       midicsv.Policy{Strict: p.Strict, Warn: p.Warn},
		pattern:      midicsv.NewPattern(1, midicsv.DefaultResolution),
		headerTracks: -1,
	}
	s.pattern.Absolute = true
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			line := 0
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return midicsv.Pattern{}, midicsv.Diagnostic{Line: line, Offset: -1, Err: midicsv.StructuralError(err, "reading CSV")}
		}
		line, _ := cr.FieldPos(0)
		if err := s.record(record, line); err != nil {
			outcome, err := s.policy.Check(midicsv.Diagnostic{Line: line, Offset: -1, Err: err})
			if outcome == midicsv.Fatal {
				return midicsv.Pattern{}, err
			}
		}
	}
	if err := s.finish(); err != nil {
		return midicsv.Pattern{}, err
	}
	return s.pattern, nil
}

func (s *parseState) record(record []string, line int) error {
	if len(record) == 0 {
		return nil
	}
	first := strings.TrimSpace(record[0])
	if first == "" && len(record) == 1 {
		return nil
	}
	if strings.HasPrefix(first, "#") || strings.HasPrefix(first, ";") {
		return nil
	}
	if len(record) < 3 {
		return malformed("expected at least track, tick and keyword, got %d fields", len(record))
	}
	track, err := intField(record, 0, "track")
	if err != nil {
		return err
	}
	tick, err := intField(record, 1, "tick")
	if err != nil {
		return err
	}
	keyword := strings.TrimSpace(record[2])
	fields := record[3:]
	switch keyword {
	case HeaderKeyword:
		return s.header(fields, line)
	case StartTrackKeyword:
		s.pattern.Tracks = append(s.pattern.Tracks, midicsv.Track{Absolute: true})
		s.lines = append(s.lines, nil)
		return nil
	case EndOfFileKeyword:
		return nil
	}
	t, ok := TypeOf(keyword)
	if !ok {
		return midicsv.UnknownError(midicsv.ErrUnknownKeyword, fmt.Sprintf("%q", keyword))
	}
	if track < 1 || track > len(s.pattern.Tracks) {
		return malformed("%v record for track %d, but %d tracks have been started", keyword, track, len(s.pattern.Tracks))
	}
	event, keep, err := decodeEvent(t, tick, fields)
	if keep {
		tr := &s.pattern.Tracks[track-1]
		tr.Events = append(tr.Events, event)
		s.lines[track-1] = append(s.lines[track-1], line)
	}
	return err
}

func (s *parseState) header(fields []string, line int) error {
	if len(fields) < 3 {
		return malformed("Header needs format, track count and resolution, got %d fields", len(fields))
	}
	format, err := intField(fields, 0, "format")
	if err != nil {
		return err
	}
	tracks, err := intField(fields, 1, "track count")
	if err != nil {
		return err
	}
	resolution, err := intField(fields, 2, "resolution")
	if err != nil {
		return err
	}
	s.pattern.Format = format
	s.pattern.Resolution = resolution
	s.headerTracks = tracks
	s.headerLine = line
	return nil
}

// finish converts the tracks to delta ticks and checks what can only be
// checked once all records are in.
func (s *parseState) finish() error {
	if s.headerTracks >= 0 && s.headerTracks != len(s.pattern.Tracks) {
		err := midicsv.InvalidStateError(midicsv.ErrMalformed,
			fmt.Sprintf("Header declares %d tracks, %d were started", s.headerTracks, len(s.pattern.Tracks)))
		if outcome, err := s.policy.Check(midicsv.Diagnostic{Line: s.headerLine, Offset: -1, Err: err}); outcome == midicsv.Fatal {
			return err
		}
	}
	s.pattern.MakeTicksRel()
	for i := range s.pattern.Tracks {
		events := s.pattern.Tracks[i].Events
		for j := range events {
			if events[j].Tick >= 0 {
				continue
			}
			err := midicsv.InvalidError(events[j].Type, "tick", events[j].Tick, "goes back in time")
			if outcome, err := s.policy.Check(midicsv.Diagnostic{Track: i + 1, Line: s.lines[i][j], Offset: -1, Err: err}); outcome == midicsv.Fatal {
				return err
			}
			// keep the absolute time of the following events
			if j+1 < len(events) {
				events[j+1].Tick += events[j].Tick
			}
			events[j].Tick = 0
		}
	}
	return nil
}

// decodeEvent reverses Fields. keep is false when no usable event could be
// built; an error with keep == true means the event failed validation.
func decodeEvent(t midicsv.Type, tick int, fields []string) (event midicsv.Event, keep bool, err error) {
	switch t {
	case midicsv.NoteOff, midicsv.NoteOn, midicsv.PolyAfterTouch, midicsv.ControlChange:
		v, err := byteFields(t, fields, "channel", "data1", "data2")
		if err != nil {
			return midicsv.Event{}, false, err
		}
		event, err = midicsv.New(t, tick, v[0], v[1:])
		return event, true, err
	case midicsv.ProgramChange, midicsv.ChannelAfterTouch:
		v, err := byteFields(t, fields, "channel", "value")
		if err != nil {
			return midicsv.Event{}, false, err
		}
		event, err = midicsv.New(t, tick, v[0], v[1:])
		return event, true, err
	case midicsv.PitchWheel:
		v, err := byteFields(t, fields, "channel")
		if err != nil {
			return midicsv.Event{}, false, err
		}
		value, err := intField(fields, 1, "pitch bend")
		if err != nil {
			return midicsv.Event{}, false, err
		}
		if value < 0 || value > 0x3FFF {
			return midicsv.Event{}, false, midicsv.InvalidError(t, "pitch bend", value, "is out of range 0-16383")
		}
		event, err = midicsv.NewPitchWheel(tick, v[0], value)
		return event, true, err
	case midicsv.SequenceNumber:
		n, err := intField(fields, 0, "sequence number")
		if err != nil {
			return midicsv.Event{}, false, err
		}
		event, err = midicsv.NewSequenceNumber(tick, n)
		return event, err == nil, err
	case midicsv.Tempo:
		mpqn, err := intField(fields, 0, "tempo")
		if err != nil {
			return midicsv.Event{}, false, err
		}
		event, err = midicsv.NewTempo(tick, mpqn)
		return event, err == nil, err
	case midicsv.ChannelPrefix, midicsv.Port:
		v, err := byteFields(t, fields, "value")
		if err != nil {
			return midicsv.Event{}, false, err
		}
		event, err = midicsv.New(t, tick, 0, v)
		return event, true, err
	case midicsv.EndOfTrack, midicsv.TrackLoop:
		event, err = midicsv.New(t, tick, 0, nil)
		return event, true, err
	case midicsv.SMPTEOffset:
		v, err := byteFields(t, fields, "hours", "minutes", "seconds", "frames", "fractions")
		if err != nil {
			return midicsv.Event{}, false, err
		}
		event, err = midicsv.New(t, tick, 0, v)
		return event, true, err
	case midicsv.TimeSignature:
		return decodeTimeSignature(tick, fields)
	case midicsv.KeySignature:
		return decodeKeySignature(tick, fields)
	case midicsv.SequencerSpecific, midicsv.Sysex, midicsv.SysexF7:
		return decodeHex(t, tick, fields)
	}
	if t.IsText() {
		if len(fields) < 1 {
			return midicsv.Event{}, false, malformed("%v needs a text field", t)
		}
		text, uerr := UnescapeText(fields[0])
		event, err = midicsv.NewText(t, tick, text)
		if err == nil {
			err = uerr
		}
		return event, true, err
	}
	return midicsv.Event{}, false, malformed("no field decoder for %v", t)
}

func decodeTimeSignature(tick int, fields []string) (midicsv.Event, bool, error) {
	if len(fields) < 2 {
		return midicsv.Event{}, false, malformed("Time_signature needs at least numerator and denominator, got %d fields", len(fields))
	}
	names := []string{"numerator", "denominator", "clocks", "32nds"}[:min(len(fields), 4)]
	v, err := byteFields(midicsv.TimeSignature, fields, names...)
	if err != nil {
		return midicsv.Event{}, false, err
	}
	defaults := []byte{0, 0, 24, 8}
	data := append(v, defaults[len(v):]...)
	event, err := midicsv.New(midicsv.TimeSignature, tick, 0, data)
	return event, true, err
}

func decodeKeySignature(tick int, fields []string) (midicsv.Event, bool, error) {
	alternatives, err := intField(fields, 0, "key")
	if err != nil {
		return midicsv.Event{}, false, err
	}
	if len(fields) < 2 {
		return midicsv.Event{}, false, malformed("Key_signature needs a major/minor field")
	}
	minor := strings.TrimSpace(fields[1]) != "major"
	event, err := midicsv.NewKeySignature(tick, alternatives, minor)
	return event, err == nil, err
}

func decodeHex(t midicsv.Type, tick int, fields []string) (midicsv.Event, bool, error) {
	if len(fields) < 1 {
		return midicsv.Event{}, false, malformed("%v needs a length field", t)
	}
	length, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 16, 32)
	if err != nil {
		return midicsv.Event{}, false, malformed("length %q of %v is not hexadecimal", fields[0], t)
	}
	data := make([]byte, 0, len(fields)-1)
	for i, f := range fields[1:] {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 16, 64)
		if err != nil {
			return midicsv.Event{}, false, malformed("byte %d %q of %v is not hexadecimal", i+1, f, t)
		}
		if v > 0xFF {
			return midicsv.Event{}, false, midicsv.InvalidError(t, fmt.Sprintf("byte %d", i+1), int(v), "does not fit in a byte")
		}
		data = append(data, byte(v))
	}
	event, err := midicsv.New(t, tick, 0, data)
	if err == nil && int(length) != len(data) {
		err = midicsv.InvalidError(t, "length", int(length), fmt.Sprintf("does not match the %d bytes given", len(data)))
	}
	return event, true, err
}

func intField(fields []string, i int, name string) (int, error) {
	if i >= len(fields) {
		return 0, malformed("missing %v field", name)
	}
	v, err := strconv.Atoi(strings.TrimSpace(fields[i]))
	if err != nil {
		return 0, malformed("%v %q is not an integer", name, fields[i])
	}
	return v, nil
}

// byteFields parses the named leading fields as integers in 0..255.
func byteFields(t midicsv.Type, fields []string, names ...string) ([]byte, error) {
	ret := make([]byte, len(names))
	for i, name := range names {
		v, err := intField(fields, i, name)
		if err != nil {
			return nil, err
		}
		if v < 0 || v > 0xFF {
			return nil, midicsv.InvalidError(t, name, v, "does not fit in a byte")
		}
		ret[i] = byte(v)
	}
	return ret, nil
}

func malformed(format string, args ...any) error {
	return midicsv.StructuralError(midicsv.ErrMalformed, fmt.Sprintf(format, args...))
}
