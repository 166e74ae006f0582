package midicsv

import "fmt"

type (
	// Type enumerates the closed set of event variants that can appear in a
	// Standard MIDI File track.
	Type int

	// Family groups the variants by how they are framed in the track stream.
	Family int

	// Descriptor documents one event variant: how it is identified in the
	// binary stream, how long its payload is and which payload bytes are
	// range-checked on construction.
	Descriptor struct {
		Type Type
		Name string // human readable name, e.g. "Note On"
		Key  string // stable identifier used by the YAML / JSON dumps

		Family Family

		// Status is the status byte of the variant. For channel-voice events
		// the low nibble is zero and is replaced by the channel when encoding.
		// Meta events all share 0xFF and are told apart by Command.
		Status  byte
		Command byte

		// Length is the fixed payload length in bytes, or Variable.
		Length int

		// Fields names the payload bytes that are limited to a range; the
		// i-th field checks Data[i].
		Fields []Field
	}

	// Field documents one range-checked payload byte.
	Field struct {
		Name     string
		MinValue int // inclusive
		MaxValue int // inclusive
	}
)

const (
	ChannelVoice Family = iota
	Meta
	SystemExclusive
)

// Variable is the Descriptor.Length of variants whose payload length is
// given by an explicit length prefix in the stream.
const Variable = -1

const (
	NoteOff Type = iota
	NoteOn
	PolyAfterTouch
	ControlChange
	ProgramChange
	ChannelAfterTouch
	PitchWheel
	SequenceNumber
	Text
	Copyright
	TrackName
	InstrumentName
	Lyric
	Marker
	CuePoint
	ProgramName
	DeviceName
	ChannelPrefix
	Port
	EndOfTrack
	TrackLoop
	Tempo
	SMPTEOffset
	TimeSignature
	KeySignature
	SequencerSpecific
	Sysex
	SysexF7
)

// MetaStatus is the status byte shared by all meta events.
const MetaStatus = 0xFF

func dataField(name string) Field {
	return Field{Name: name, MinValue: 0, MaxValue: 127}
}

// Descriptors lists every variant. The registry tables are built from this
// list during init().
var Descriptors = []Descriptor{
	{Type: NoteOff, Name: "Note Off", Key: "note_off", Family: ChannelVoice, Status: 0x80, Length: 2,
		Fields: []Field{dataField("note"), dataField("velocity")}},
	{Type: NoteOn, Name: "Note On", Key: "note_on", Family: ChannelVoice, Status: 0x90, Length: 2,
		Fields: []Field{dataField("note"), dataField("velocity")}},
	{Type: PolyAfterTouch, Name: "After Touch", Key: "poly_aftertouch", Family: ChannelVoice, Status: 0xA0, Length: 2,
		Fields: []Field{dataField("note"), dataField("pressure")}},
	{Type: ControlChange, Name: "Control Change", Key: "control_change", Family: ChannelVoice, Status: 0xB0, Length: 2,
		Fields: []Field{dataField("control"), dataField("value")}},
	{Type: ProgramChange, Name: "Program Change", Key: "program_change", Family: ChannelVoice, Status: 0xC0, Length: 1,
		Fields: []Field{dataField("program")}},
	{Type: ChannelAfterTouch, Name: "Channel After Touch", Key: "channel_aftertouch", Family: ChannelVoice, Status: 0xD0, Length: 1,
		Fields: []Field{dataField("pressure")}},
	{Type: PitchWheel, Name: "Pitch Wheel", Key: "pitch_wheel", Family: ChannelVoice, Status: 0xE0, Length: 2,
		Fields: []Field{dataField("lsb"), dataField("msb")}},

	{Type: SequenceNumber, Name: "Sequence Number", Key: "sequence_number", Family: Meta, Status: MetaStatus, Command: 0x00, Length: 2},
	{Type: Text, Name: "Text", Key: "text", Family: Meta, Status: MetaStatus, Command: 0x01, Length: Variable},
	{Type: Copyright, Name: "Copyright Notice", Key: "copyright", Family: Meta, Status: MetaStatus, Command: 0x02, Length: Variable},
	{Type: TrackName, Name: "Track Name", Key: "track_name", Family: Meta, Status: MetaStatus, Command: 0x03, Length: Variable},
	{Type: InstrumentName, Name: "Instrument Name", Key: "instrument_name", Family: Meta, Status: MetaStatus, Command: 0x04, Length: Variable},
	{Type: Lyric, Name: "Lyrics", Key: "lyric", Family: Meta, Status: MetaStatus, Command: 0x05, Length: Variable},
	{Type: Marker, Name: "Marker", Key: "marker", Family: Meta, Status: MetaStatus, Command: 0x06, Length: Variable},
	{Type: CuePoint, Name: "Cue Point", Key: "cue_point", Family: Meta, Status: MetaStatus, Command: 0x07, Length: Variable},
	{Type: ProgramName, Name: "Program Name", Key: "program_name", Family: Meta, Status: MetaStatus, Command: 0x08, Length: Variable},
	{Type: DeviceName, Name: "Device Name", Key: "device_name", Family: Meta, Status: MetaStatus, Command: 0x09, Length: Variable},
	{Type: ChannelPrefix, Name: "Channel Prefix", Key: "channel_prefix", Family: Meta, Status: MetaStatus, Command: 0x20, Length: 1},
	{Type: Port, Name: "MIDI Port/Cable", Key: "port", Family: Meta, Status: MetaStatus, Command: 0x21, Length: 1},
	{Type: TrackLoop, Name: "Track Loop", Key: "track_loop", Family: Meta, Status: MetaStatus, Command: 0x2E, Length: 0},
	{Type: EndOfTrack, Name: "End of Track", Key: "end_of_track", Family: Meta, Status: MetaStatus, Command: 0x2F, Length: 0},
	{Type: Tempo, Name: "Set Tempo", Key: "tempo", Family: Meta, Status: MetaStatus, Command: 0x51, Length: 3},
	{Type: SMPTEOffset, Name: "SMPTE Offset", Key: "smpte_offset", Family: Meta, Status: MetaStatus, Command: 0x54, Length: 5},
	{Type: TimeSignature, Name: "Time Signature", Key: "time_signature", Family: Meta, Status: MetaStatus, Command: 0x58, Length: 4},
	{Type: KeySignature, Name: "Key Signature", Key: "key_signature", Family: Meta, Status: MetaStatus, Command: 0x59, Length: 2},
	{Type: SequencerSpecific, Name: "Sequencer Specific", Key: "sequencer_specific", Family: Meta, Status: MetaStatus, Command: 0x7F, Length: Variable},

	{Type: Sysex, Name: "SysEx", Key: "sysex", Family: SystemExclusive, Status: 0xF0, Length: Variable},
	{Type: SysexF7, Name: "SysEx F7", Key: "sysex_f7", Family: SystemExclusive, Status: 0xF7, Length: Variable},
}

// Describe returns the descriptor of t. It panics if t is not one of the
// declared variants.
func Describe(t Type) *Descriptor {
	if d, ok := DefaultRegistry.types[t]; ok {
		return d
	}
	panic(fmt.Sprintf("midicsv: undeclared event type %d", int(t)))
}

func (t Type) String() string {
	if d, ok := DefaultRegistry.types[t]; ok {
		return d.Name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Family returns the family of the variant.
func (t Type) Family() Family {
	return Describe(t).Family
}

// IsText tells if the payload of the variant is free-form text.
func (t Type) IsText() bool {
	return t >= Text && t <= DeviceName
}

func (t Type) MarshalText() ([]byte, error) {
	d, ok := DefaultRegistry.types[t]
	if !ok {
		return nil, fmt.Errorf("cannot marshal undeclared event type %d", int(t))
	}
	return []byte(d.Key), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	d, ok := DefaultRegistry.keys[string(text)]
	if !ok {
		return fmt.Errorf("unknown event type %q", string(text))
	}
	*t = d.Type
	return nil
}

// Fixed tells if the payload length of the variant is constant.
func (d *Descriptor) Fixed() bool {
	return d.Length != Variable
}

func (f Family) String() string {
	switch f {
	case ChannelVoice:
		return "channel voice"
	case Meta:
		return "meta"
	case SystemExclusive:
		return "system exclusive"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}
