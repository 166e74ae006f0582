package midicsv

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/text/encoding/charmap"
)

// Event is one event of a track. Type selects the variant; Data is the
// payload exactly as it appears in the binary stream after the status byte
// (and, for meta events, after the command byte and length prefix).
type Event struct {
	Type Type

	// Tick is the delta since the previous event when the owning track is
	// relative, or the time since track start when it is absolute.
	Tick int

	// Channel is used only by channel-voice events.
	Channel uint8 `yaml:",omitempty" json:",omitempty"`

	Data []byte `yaml:",flow"`
}

// New builds an event of type t, copying data, and validates it. The event
// is returned even when validation fails, so lenient callers can keep it.
func New(t Type, tick int, channel uint8, data []byte) (Event, error) {
	e := Event{Type: t, Tick: tick, Channel: channel, Data: make([]byte, len(data))}
	copy(e.Data, data)
	return e, e.Validate()
}

// Validate checks the tick, the channel of channel-voice events, the payload
// length of fixed-length variants and the ranges of the payload fields.
func (e Event) Validate() error {
	d, ok := DefaultRegistry.Lookup(e.Type)
	if !ok {
		return InvalidError(e.Type, "type", int(e.Type), "is not a declared variant")
	}
	if e.Tick < 0 {
		return InvalidError(e.Type, "tick", e.Tick, "is negative")
	}
	if d.Family == ChannelVoice && e.Channel > 15 {
		return InvalidError(e.Type, "channel", int(e.Channel), "is out of range 0-15")
	}
	if d.Fixed() && len(e.Data) != d.Length {
		return InvalidError(e.Type, "length", len(e.Data), fmt.Sprintf("does not match the fixed length %d", d.Length))
	}
	for i, f := range d.Fields {
		if i >= len(e.Data) {
			break
		}
		if v := int(e.Data[i]); v < f.MinValue || v > f.MaxValue {
			return InvalidError(e.Type, f.Name, v, fmt.Sprintf("is out of range %d-%d", f.MinValue, f.MaxValue))
		}
	}
	return nil
}

// Descriptor returns the descriptor of the variant of e.
func (e Event) Descriptor() *Descriptor {
	return Describe(e.Type)
}

// Status returns the status byte that introduces e in the binary stream.
func (e Event) Status() byte {
	d := Describe(e.Type)
	if d.Family == ChannelVoice {
		return d.Status | (e.Channel & 0x0F)
	}
	return d.Status
}

// Message returns the event as a gomidi message, or nil if e is not a
// channel-voice event.
func (e Event) Message() midi.Message {
	if d, ok := DefaultRegistry.Lookup(e.Type); !ok || d.Family != ChannelVoice {
		return nil
	}
	msg := make(midi.Message, 0, 1+len(e.Data))
	msg = append(msg, e.Status())
	return append(msg, e.Data...)
}

func (e Event) byteAt(i int) byte {
	if i < 0 || i >= len(e.Data) {
		return 0
	}
	return e.Data[i]
}

func NewNoteOn(tick int, channel, note, velocity uint8) (Event, error) {
	return New(NoteOn, tick, channel, []byte{note, velocity})
}

func NewNoteOff(tick int, channel, note, velocity uint8) (Event, error) {
	return New(NoteOff, tick, channel, []byte{note, velocity})
}

func NewPolyAfterTouch(tick int, channel, note, pressure uint8) (Event, error) {
	return New(PolyAfterTouch, tick, channel, []byte{note, pressure})
}

func NewControlChange(tick int, channel, control, value uint8) (Event, error) {
	return New(ControlChange, tick, channel, []byte{control, value})
}

func NewProgramChange(tick int, channel, program uint8) (Event, error) {
	return New(ProgramChange, tick, channel, []byte{program})
}

func NewChannelAfterTouch(tick int, channel, pressure uint8) (Event, error) {
	return New(ChannelAfterTouch, tick, channel, []byte{pressure})
}

// NewPitchWheel takes the raw unsigned 14-bit wheel position; 8192 is the
// center.
func NewPitchWheel(tick int, channel uint8, value int) (Event, error) {
	if value < 0 || value > 0x3FFF {
		return Event{Type: PitchWheel, Tick: tick, Channel: channel, Data: []byte{0, 0x40}},
			InvalidError(PitchWheel, "value", value, "is out of range 0-16383")
	}
	return New(PitchWheel, tick, channel, []byte{byte(value & 0x7F), byte(value >> 7)})
}

func NewSequenceNumber(tick int, number int) (Event, error) {
	if number < 0 || number > 0xFFFF {
		return Event{Type: SequenceNumber, Tick: tick, Data: []byte{0, 0}},
			InvalidError(SequenceNumber, "number", number, "is out of range 0-65535")
	}
	return New(SequenceNumber, tick, 0, []byte{byte(number >> 8), byte(number)})
}

// NewText builds one of the text meta events (Text, Copyright, TrackName,
// InstrumentName, Lyric, Marker, CuePoint, ProgramName, DeviceName).
func NewText(t Type, tick int, text []byte) (Event, error) {
	if !t.IsText() {
		return Event{}, InvalidError(t, "type", int(t), "is not a text event")
	}
	return New(t, tick, 0, text)
}

func NewChannelPrefix(tick int, channel uint8) (Event, error) {
	return New(ChannelPrefix, tick, 0, []byte{channel})
}

func NewPort(tick int, port uint8) (Event, error) {
	return New(Port, tick, 0, []byte{port})
}

func NewEndOfTrack(tick int) (Event, error) {
	return New(EndOfTrack, tick, 0, nil)
}

func NewTrackLoop(tick int) (Event, error) {
	return New(TrackLoop, tick, 0, nil)
}

// NewTempo takes the tempo in microseconds per quarter note.
func NewTempo(tick int, mpqn int) (Event, error) {
	if mpqn < 0 || mpqn > 0xFFFFFF {
		return Event{Type: Tempo, Tick: tick, Data: []byte{0, 0, 0}},
			InvalidError(Tempo, "mpqn", mpqn, "does not fit in 24 bits")
	}
	return New(Tempo, tick, 0, []byte{byte(mpqn >> 16), byte(mpqn >> 8), byte(mpqn)})
}

// NewTempoBPM converts beats per minute to microseconds per quarter note.
func NewTempoBPM(tick int, bpm float64) (Event, error) {
	if bpm <= 0 {
		return Event{Type: Tempo, Tick: tick, Data: []byte{0, 0, 0}},
			InvalidError(Tempo, "bpm", int(bpm), "is not positive")
	}
	return NewTempo(tick, int(60e6/bpm))
}

func NewSMPTEOffset(tick int, hours, minutes, seconds, frames, fractions uint8) (Event, error) {
	return New(SMPTEOffset, tick, 0, []byte{hours, minutes, seconds, frames, fractions})
}

// NewTimeSignature takes the denominator as a power of two, e.g. 2 for a
// quarter note.
func NewTimeSignature(tick int, numerator, denominatorExp, clocks, notated32nds uint8) (Event, error) {
	return New(TimeSignature, tick, 0, []byte{numerator, denominatorExp, clocks, notated32nds})
}

// NewKeySignature takes the number of sharps (positive) or flats (negative).
func NewKeySignature(tick int, alternatives int, minor bool) (Event, error) {
	if alternatives < -128 || alternatives > 127 {
		return Event{Type: KeySignature, Tick: tick, Data: []byte{0, 0}},
			InvalidError(KeySignature, "alternatives", alternatives, "does not fit in a signed byte")
	}
	var mode byte
	if minor {
		mode = 1
	}
	return New(KeySignature, tick, 0, []byte{byte(int8(alternatives)), mode})
}

func NewSequencerSpecific(tick int, data []byte) (Event, error) {
	return New(SequencerSpecific, tick, 0, data)
}

func NewSysex(tick int, data []byte) (Event, error) {
	return New(Sysex, tick, 0, data)
}

func NewSysexF7(tick int, data []byte) (Event, error) {
	return New(SysexF7, tick, 0, data)
}

// Note returns the note number of note and poly aftertouch events.
func (e Event) Note() uint8 { return e.byteAt(0) }

// Velocity returns the velocity of note events.
func (e Event) Velocity() uint8 { return e.byteAt(1) }

func (e Event) Control() uint8 { return e.byteAt(0) }

// Value returns the second data byte of control change events.
func (e Event) Value() uint8 { return e.byteAt(1) }

func (e Event) Program() uint8 { return e.byteAt(0) }

// Pressure returns the pressure of poly and channel aftertouch events.
func (e Event) Pressure() uint8 {
	if e.Type == PolyAfterTouch {
		return e.byteAt(1)
	}
	return e.byteAt(0)
}

// PitchBend returns the raw unsigned 14-bit wheel position.
func (e Event) PitchBend() int {
	return int(e.byteAt(0)) | int(e.byteAt(1))<<7
}

// Bend returns the wheel position relative to the center, -8192..8191.
func (e Event) Bend() int {
	return e.PitchBend() - 0x2000
}

func (e Event) SequenceNumber() int {
	return int(e.byteAt(0))<<8 | int(e.byteAt(1))
}

// MPQN returns the tempo in microseconds per quarter note.
func (e Event) MPQN() int {
	return int(e.byteAt(0))<<16 | int(e.byteAt(1))<<8 | int(e.byteAt(2))
}

// BPM returns the tempo in beats per minute, 0 if the tempo is zero.
func (e Event) BPM() float64 {
	mpqn := e.MPQN()
	if mpqn == 0 {
		return 0
	}
	return 60e6 / float64(mpqn)
}

func (e Event) Numerator() int { return int(e.byteAt(0)) }

// Denominator returns the time signature denominator, i.e. 2 to the power
// of the stored exponent.
func (e Event) Denominator() int {
	exp := e.byteAt(1)
	if exp > 30 {
		return 0
	}
	return 1 << exp
}

// Alternatives returns the number of sharps (positive) or flats (negative)
// of a key signature.
func (e Event) Alternatives() int {
	return int(int8(e.byteAt(0)))
}

// Minor tells if a key signature is in a minor key. Any nonzero mode byte
// counts as minor.
func (e Event) Minor() bool {
	return e.byteAt(1) != 0
}

// SMPTE returns hours, minutes, seconds, frames and fractional frames.
func (e Event) SMPTE() (hours, minutes, seconds, frames, fractions int) {
	return int(e.byteAt(0)), int(e.byteAt(1)), int(e.byteAt(2)), int(e.byteAt(3)), int(e.byteAt(4))
}

// Text returns the payload of text meta events decoded as ISO-8859-1, which
// is what most SMF producers write.
func (e Event) Text() string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(e.Data)
	if err != nil {
		return string(e.Data)
	}
	return string(s)
}

func (e Event) String() string {
	if d, ok := DefaultRegistry.Lookup(e.Type); ok && d.Family == ChannelVoice {
		return fmt.Sprintf("%v(tick=%d, channel=%d, data=%v)", e.Type, e.Tick, e.Channel, e.Data)
	}
	return fmt.Sprintf("%v(tick=%d, data=%v)", e.Type, e.Tick, e.Data)
}
