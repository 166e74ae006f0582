// Package csvconv projects patterns to and from the midicsv text format, one
// event per line: track, absolute tick, keyword and the event fields.
package csvconv

import (
	"fmt"

	"github.com/midicsv/midicsv"
)

// Framing records that are not events.
const (
	HeaderKeyword     = "Header"
	StartTrackKeyword = "Start_track"
	EndOfFileKeyword  = "End_of_file"
)

// Keywords maps every event variant to its CSV keyword. The mapping is
// one-to-one; init() panics otherwise.
var Keywords = map[midicsv.Type]string{
	midicsv.NoteOff:           "Note_off_c",
	midicsv.NoteOn:            "Note_on_c",
	midicsv.PolyAfterTouch:    "Poly_aftertouch_c",
	midicsv.ControlChange:     "Control_c",
	midicsv.ProgramChange:     "Program_c",
	midicsv.ChannelAfterTouch: "Channel_aftertouch_c",
	midicsv.PitchWheel:        "Pitch_bend_c",
	midicsv.SequenceNumber:    "Sequence_number",
	midicsv.Text:              "Text_t",
	midicsv.Copyright:         "Copyright_t",
	midicsv.TrackName:         "Title_t",
	midicsv.InstrumentName:    "Instrument_name_t",
	midicsv.Lyric:             "Lyric_t",
	midicsv.Marker:            "Marker_t",
	midicsv.CuePoint:          "Cue_point_t",
	midicsv.ProgramName:       "Program_name_t",
	midicsv.DeviceName:        "Device_name_t",
	midicsv.ChannelPrefix:     "Channel_prefix",
	midicsv.Port:              "MIDI_port",
	midicsv.EndOfTrack:        "End_track",
	midicsv.TrackLoop:         "Loop_track",
	midicsv.Tempo:             "Tempo",
	midicsv.SMPTEOffset:       "SMPTE_offset",
	midicsv.TimeSignature:     "Time_signature",
	midicsv.KeySignature:      "Key_signature",
	midicsv.SequencerSpecific: "Sequencer_specific",
	midicsv.Sysex:             "System_exclusive",
	midicsv.SysexF7:           "System_exclusive_F7",
}

var keywordTypes = make(map[string]midicsv.Type, len(Keywords))

func init() {
	for _, d := range midicsv.Descriptors {
		if _, ok := Keywords[d.Type]; !ok {
			panic(fmt.Sprintf("csvconv: no keyword for %v", d.Name))
		}
	}
	for t, k := range Keywords {
		if prev, ok := keywordTypes[k]; ok {
			panic(fmt.Sprintf("csvconv: keyword %q used by both %v and %v", k, prev, t))
		}
		switch k {
		case HeaderKeyword, StartTrackKeyword, EndOfFileKeyword:
			panic(fmt.Sprintf("csvconv: keyword %q of %v is reserved", k, t))
		}
		keywordTypes[k] = t
	}
}

// Keyword returns the CSV keyword of t.
func Keyword(t midicsv.Type) (string, bool) {
	k, ok := Keywords[t]
	return k, ok
}

// TypeOf returns the variant with the given CSV keyword.
func TypeOf(keyword string) (midicsv.Type, bool) {
	t, ok := keywordTypes[keyword]
	return t, ok
}
