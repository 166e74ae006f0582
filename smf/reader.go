// Package smf reads and writes the binary Standard MIDI File format.
package smf

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/midicsv/midicsv"
)

const (
	headerTag       = "MThd"
	trackTag        = "MTrk"
	headerLength    = 6
	chunkHeaderSize = 8
)

// Decoder turns a byte stream into a Pattern. Non-fatal diagnostics go to
// Warn, or to the standard logger if Warn is nil.
type Decoder struct {
	Strict bool
	Warn   func(midicsv.Diagnostic)
}

// Decode decodes a Standard MIDI File. The ticks of the returned pattern
// are delta ticks, as stored in the file.
func Decode(data []byte, strict bool) (midicsv.Pattern, error) {
	d := Decoder{Strict: strict}
	return d.Decode(data)
}

// stream is a cursor over the file; pos is the absolute offset of the next
// byte, limit is the end of the current chunk.
type stream struct {
	data  []byte
	pos   int
	limit int
}

func (s *stream) ReadByte() (byte, error) {
	if s.pos >= s.limit {
		return 0, midicsv.ErrStreamExhausted
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

func (s *stream) next(n int, what string) ([]byte, error) {
	if n < 0 || s.limit-s.pos < n {
		return nil, midicsv.StructuralError(midicsv.ErrStreamExhausted,
			fmt.Sprintf("reading %v: need %d bytes at offset %d, %d left", what, n, s.pos, s.limit-s.pos))
	}
	ret := s.data[s.pos : s.pos+n]
	s.pos += n
	return ret, nil
}

func (s *stream) eof() bool {
	return s.pos >= s.limit
}

func (d *Decoder) policy() midicsv.Policy {
	return midicsv.Policy{Strict: d.Strict, Warn: d.Warn}
}

func (d *Decoder) Decode(data []byte) (midicsv.Pattern, error) {
	s := &stream{data: data, limit: len(data)}
	pattern, numTracks, err := d.readHeader(s)
	if err != nil {
		return midicsv.Pattern{}, err
	}
	for i := 0; i < numTracks; i++ {
		track, err := d.readTrack(s, i+1)
		if err != nil {
			return midicsv.Pattern{}, fmt.Errorf("track %d: %w", i+1, err)
		}
		pattern.Tracks = append(pattern.Tracks, track)
	}
	return pattern, nil
}

func (d *Decoder) readHeader(s *stream) (midicsv.Pattern, int, error) {
	tag, err := s.next(4, "header tag")
	if err != nil {
		return midicsv.Pattern{}, 0, err
	}
	if string(tag) != headerTag {
		return midicsv.Pattern{}, 0, midicsv.StructuralError(midicsv.ErrBadMagic, fmt.Sprintf("expected %q, got %q", headerTag, tag))
	}
	lenBytes, err := s.next(4, "header length")
	if err != nil {
		return midicsv.Pattern{}, 0, err
	}
	length := int(binary.BigEndian.Uint32(lenBytes))
	if length < headerLength {
		return midicsv.Pattern{}, 0, midicsv.StructuralError(midicsv.ErrMalformed, fmt.Sprintf("header length %d is shorter than %d", length, headerLength))
	}
	fields, err := s.next(headerLength, "header")
	if err != nil {
		return midicsv.Pattern{}, 0, err
	}
	// anything past the canonical six bytes is padding
	if _, err := s.next(length-headerLength, "header padding"); err != nil {
		return midicsv.Pattern{}, 0, err
	}
	pattern := midicsv.NewPattern(int(binary.BigEndian.Uint16(fields[0:])), int(binary.BigEndian.Uint16(fields[4:])))
	numTracks := int(binary.BigEndian.Uint16(fields[2:]))
	pattern.Tracks = make([]midicsv.Track, 0, numTracks)
	return pattern, numTracks, nil
}

func (d *Decoder) readTrack(s *stream, number int) (midicsv.Track, error) {
	tag, err := s.next(4, "track tag")
	if err != nil {
		return midicsv.Track{}, err
	}
	if string(tag) != trackTag {
		return midicsv.Track{}, midicsv.StructuralError(midicsv.ErrBadMagic, fmt.Sprintf("expected %q, got %q", trackTag, tag))
	}
	lenBytes, err := s.next(4, "track length")
	if err != nil {
		return midicsv.Track{}, err
	}
	length := int(binary.BigEndian.Uint32(lenBytes))
	if s.limit-s.pos < length {
		return midicsv.Track{}, midicsv.StructuralError(midicsv.ErrStreamExhausted,
			fmt.Sprintf("track chunk declares %d bytes, %d left", length, s.limit-s.pos))
	}
	chunk := &stream{data: s.data, pos: s.pos, limit: s.pos + length}
	s.pos += length
	tr := trackReader{stream: chunk, number: number, policy: d.policy()}
	return tr.read()
}

// trackReader holds the track-scoped decoding state.
type trackReader struct {
	stream        *stream
	number        int
	policy        midicsv.Policy
	runningStatus byte // 0 when no running status is active
	// carry accumulates the delta ticks of dropped events, so that the
	// absolute times of the following events are preserved
	carry int
}

func (t *trackReader) read() (midicsv.Track, error) {
	var track midicsv.Track
	for !t.stream.eof() {
		start := t.stream.pos
		event, keep, err := t.readEvent()
		if err != nil {
			outcome, err := t.policy.Check(midicsv.Diagnostic{Track: t.number, Offset: start, Err: err})
			if outcome == midicsv.Fatal {
				return midicsv.Track{}, err
			}
		}
		if keep {
			event.Tick += t.carry
			t.carry = 0
			track.Events = append(track.Events, event)
		}
	}
	return track, nil
}

// readEvent reads one event. keep is false when the event must be dropped;
// its delta ticks are then moved to carry. A non-nil error together with
// keep == true means the event failed validation but is kept as read.
func (t *trackReader) readEvent() (event midicsv.Event, keep bool, err error) {
	delta, err := ReadVLQ(t.stream)
	if err != nil {
		return midicsv.Event{}, false, err
	}
	if delta > math.MaxInt32 {
		return midicsv.Event{}, false, midicsv.StructuralError(midicsv.ErrMalformed, fmt.Sprintf("delta time %d out of range", delta))
	}
	tick := int(delta)
	status, err := t.stream.ReadByte()
	if err != nil {
		return midicsv.Event{}, false, midicsv.StructuralError(err, "reading status byte")
	}
	switch {
	case status == midicsv.MetaStatus:
		return t.readMeta(tick)
	case status == 0xF0 || status == 0xF7:
		t.runningStatus = 0
		return t.readSysex(tick, status)
	case status&0x80 != 0:
		desc, ok := midicsv.LookupChannel(status)
		if !ok {
			return midicsv.Event{}, false, midicsv.StructuralError(midicsv.ErrMalformed, fmt.Sprintf("unexpected status byte 0x%02X", status))
		}
		t.runningStatus = status
		payload, err := t.stream.next(desc.Length, desc.Name)
		if err != nil {
			return midicsv.Event{}, false, err
		}
		event, err := midicsv.New(desc.Type, tick, status&0x0F, payload)
		return event, true, err
	}
	// a data byte: running status compression
	if t.runningStatus == 0 {
		t.carry += tick
		return midicsv.Event{}, false, midicsv.InvalidStateError(midicsv.ErrNoRunningStatus, fmt.Sprintf("data byte 0x%02X", status))
	}
	desc, _ := midicsv.LookupChannel(t.runningStatus)
	rest, err := t.stream.next(desc.Length-1, desc.Name)
	if err != nil {
		return midicsv.Event{}, false, err
	}
	payload := make([]byte, 0, desc.Length)
	payload = append(append(payload, status), rest...)
	event, err = midicsv.New(desc.Type, tick, t.runningStatus&0x0F, payload)
	return event, true, err
}

func (t *trackReader) readMeta(tick int) (midicsv.Event, bool, error) {
	command, err := t.stream.ReadByte()
	if err != nil {
		return midicsv.Event{}, false, midicsv.StructuralError(err, "reading meta command")
	}
	length, err := ReadVLQ(t.stream)
	if err != nil {
		return midicsv.Event{}, false, err
	}
	payload, err := t.stream.next(int(length), "meta payload")
	if err != nil {
		return midicsv.Event{}, false, err
	}
	desc, ok := midicsv.LookupMeta(command)
	if !ok {
		t.carry += tick
		return midicsv.Event{}, false, midicsv.UnknownError(midicsv.ErrUnknownCommand, fmt.Sprintf("meta command 0x%02X", command))
	}
	event, err := midicsv.New(desc.Type, tick, 0, payload)
	return event, true, err
}

func (t *trackReader) readSysex(tick int, status byte) (midicsv.Event, bool, error) {
	length, err := ReadVLQ(t.stream)
	if err != nil {
		return midicsv.Event{}, false, err
	}
	payload, err := t.stream.next(int(length), "sysex payload")
	if err != nil {
		return midicsv.Event{}, false, err
	}
	desc, _ := midicsv.LookupSysex(status)
	event, err := midicsv.New(desc.Type, tick, 0, payload)
	return event, true, err
}
