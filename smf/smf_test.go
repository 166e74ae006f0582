package smf_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	gmsmf "gitlab.com/gomidi/midi/v2/smf"

	"github.com/midicsv/midicsv"
	"github.com/midicsv/midicsv/smf"
)

func chunk(tag string, body ...byte) []byte {
	n := len(body)
	ret := append([]byte(tag), byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(ret, body...)
}

func file(format, resolution int, tracks ...[]byte) []byte {
	ret := chunk("MThd", byte(format>>8), byte(format), byte(len(tracks)>>8), byte(len(tracks)), byte(resolution>>8), byte(resolution))
	for _, t := range tracks {
		ret = append(ret, chunk("MTrk", t...)...)
	}
	return ret
}

var conductorTrack = []byte{
	0x00, 0xFF, 0x03, 0x05, 'T', 'e', 'm', 'p', 'o',
	0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20,
	0x00, 0xFF, 0x58, 0x04, 0x04, 0x02, 0x18, 0x08,
	0x00, 0xFF, 0x2F, 0x00,
}

// the note events after the first one rely on running status
var pianoTrack = []byte{
	0x00, 0xC0, 0x05,
	0x00, 0x90, 0x3C, 0x64,
	0x00, 0x40, 0x64,
	0x83, 0x60, 0x3C, 0x00,
	0x00, 0x40, 0x00,
	0x00, 0xB0, 0x07, 0x7F,
	0x00, 0xF0, 0x03, 0x7E, 0x7F, 0xF7,
	0x00, 0xFF, 0x2F, 0x00,
}

func must(e midicsv.Event, err error) midicsv.Event {
	if err != nil {
		panic(err)
	}
	return e
}

func expectedPattern() midicsv.Pattern {
	p := midicsv.NewPattern(1, 480)
	p.Tracks = []midicsv.Track{
		{Events: []midicsv.Event{
			must(midicsv.NewText(midicsv.TrackName, 0, []byte("Tempo"))),
			must(midicsv.NewTempo(0, 500000)),
			must(midicsv.NewTimeSignature(0, 4, 2, 24, 8)),
			must(midicsv.NewEndOfTrack(0)),
		}},
		{Events: []midicsv.Event{
			must(midicsv.NewProgramChange(0, 0, 5)),
			must(midicsv.NewNoteOn(0, 0, 60, 100)),
			must(midicsv.NewNoteOn(0, 0, 64, 100)),
			must(midicsv.NewNoteOn(480, 0, 60, 0)),
			must(midicsv.NewNoteOn(0, 0, 64, 0)),
			must(midicsv.NewControlChange(0, 0, 7, 127)),
			must(midicsv.NewSysex(0, []byte{0x7E, 0x7F, 0xF7})),
			must(midicsv.NewEndOfTrack(0)),
		}},
	}
	return p
}

func TestDecodeRunningStatus(t *testing.T) {
	p, err := smf.Decode(file(1, 480, conductorTrack, pianoTrack), true)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if expected := expectedPattern(); !reflect.DeepEqual(p, expected) {
		t.Fatalf("decoded pattern differs, got %v, expected %v", p, expected)
	}
}

func TestEncodeIsByteIdentical(t *testing.T) {
	data := file(1, 480, conductorTrack, pianoTrack)
	got, err := smf.Encode(expectedPattern())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("encoded bytes differ\ngot      % X\nexpected % X", got, data)
	}
}

func TestEncodeWithoutRunningStatus(t *testing.T) {
	enc := smf.Encoder{RunningStatus: false}
	data, err := enc.Encode(expectedPattern())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	compressed, _ := smf.Encode(expectedPattern())
	if len(data) != len(compressed)+3 {
		t.Fatalf("expected three more status bytes, got %d bytes vs %d", len(data), len(compressed))
	}
	p, err := smf.Decode(data, true)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if expected := expectedPattern(); !reflect.DeepEqual(p, expected) {
		t.Fatalf("decoded pattern differs, got %v, expected %v", p, expected)
	}
}

func TestRunningStatusOmitted(t *testing.T) {
	p := midicsv.NewPattern(0, 96)
	p.Tracks = []midicsv.Track{{Events: []midicsv.Event{
		must(midicsv.NewNoteOn(0, 3, 60, 90)),
		must(midicsv.NewNoteOn(10, 3, 62, 90)),
		must(midicsv.NewNoteOn(0, 4, 64, 90)),
		must(midicsv.NewText(midicsv.Marker, 0, []byte("x"))),
		must(midicsv.NewNoteOn(0, 4, 65, 90)),
	}}}
	data, err := smf.Encode(p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	body := []byte{
		0x00, 0x93, 60, 90,
		0x0A, 62, 90,
		0x00, 0x94, 64, 90,
		0x00, 0xFF, 0x06, 0x01, 'x',
		0x00, 0x94, 65, 90,
	}
	if expected := file(0, 96, body); !bytes.Equal(data, expected) {
		t.Fatalf("got % X, expected % X", data, expected)
	}
	decoded, err := smf.Decode(data, true)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, p) {
		t.Fatalf("round trip differs, got %v, expected %v", decoded, p)
	}
}

func TestEncodeAbsolutePattern(t *testing.T) {
	p := expectedPattern()
	p.MakeTicksAbs()
	data, err := smf.Encode(p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(data, file(1, 480, conductorTrack, pianoTrack)) {
		t.Fatalf("absolute pattern encoded differently")
	}
	if !p.Tracks[1].Absolute || p.Tracks[1].Events[3].Tick != 480 {
		t.Fatalf("Encode modified its input")
	}
}

func TestEncodeErrors(t *testing.T) {
	cases := []struct {
		name   string
		modify func(p *midicsv.Pattern)
	}{
		{"negative delta", func(p *midicsv.Pattern) { p.Tracks[1].Events[2].Tick = -1 }},
		{"channel", func(p *midicsv.Pattern) { p.Tracks[1].Events[1].Channel = 16 }},
		{"undeclared type", func(p *midicsv.Pattern) { p.Tracks[0].Events[0].Type = 999 }},
		{"resolution", func(p *midicsv.Pattern) { p.Resolution = 70000 }},
		{"tick mode", func(p *midicsv.Pattern) { p.Tracks[0].Absolute = true }},
		{"velocity with status bit", func(p *midicsv.Pattern) { p.Tracks[1].Events[1].Data[1] = 200 }},
		{"short note payload", func(p *midicsv.Pattern) { p.Tracks[1].Events[1].Data = []byte{60} }},
		{"long program payload", func(p *midicsv.Pattern) { p.Tracks[1].Events[0].Data = []byte{5, 6} }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := expectedPattern()
			c.modify(&p)
			if _, err := smf.Encode(p); err == nil {
				t.Fatalf("Encode should fail")
			}
		})
	}
}

func TestEncodeRejectsLenientlyParsedVelocity(t *testing.T) {
	p := midicsv.NewPattern(0, 96)
	e, err := midicsv.NewNoteOn(0, 0, 60, 200)
	if err == nil {
		t.Fatalf("velocity 200 should fail validation")
	}
	p.Tracks = []midicsv.Track{{Events: []midicsv.Event{e, must(midicsv.NewEndOfTrack(0))}}}
	for _, runningStatus := range []bool{true, false} {
		enc := smf.Encoder{RunningStatus: runningStatus}
		_, err := enc.Encode(p)
		var verr *midicsv.ValidationError
		if !errors.As(err, &verr) || verr.Field != "velocity" || verr.Value != 200 {
			t.Fatalf("got %v, expected a velocity ValidationError", err)
		}
		if midicsv.KindOf(err) != midicsv.Invalid {
			t.Fatalf("wrong kind, got %v, expected %v", midicsv.KindOf(err), midicsv.Invalid)
		}
	}
}

func TestEmptyPattern(t *testing.T) {
	data, err := smf.Encode(midicsv.NewPattern(1, 480))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	expected := []byte{'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 1, 0, 0, 0x01, 0xE0}
	if !bytes.Equal(data, expected) {
		t.Fatalf("got % X, expected % X", data, expected)
	}
	p, err := smf.Decode(data, true)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(p, midicsv.NewPattern(1, 480)) {
		t.Fatalf("got %v, expected an empty pattern", p)
	}
}

func TestHeaderPadding(t *testing.T) {
	data := chunk("MThd", 0, 0, 0, 1, 0, 96, 0xAA, 0xBB)
	data = append(data, chunk("MTrk", 0x00, 0xFF, 0x2F, 0x00)...)
	p, err := smf.Decode(data, true)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.Format != 0 || p.Resolution != 96 || len(p.Tracks) != 1 || len(p.Tracks[0].Events) != 1 {
		t.Fatalf("padded header decoded wrong: %v", p)
	}
}

func TestStructuralErrors(t *testing.T) {
	good := file(1, 480, conductorTrack, pianoTrack)
	badHeader := append([]byte{}, good...)
	badHeader[3] = 'x'
	badTrack := append([]byte{}, good...)
	badTrack[14+3] = 'x'
	overrun := file(0, 96, []byte{0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1}) // payload runs past the chunk
	overrun = append(overrun, 0x20, 0, 0, 0, 0)
	cases := []struct {
		name     string
		data     []byte
		sentinel error
	}{
		{"header tag", badHeader, midicsv.ErrBadMagic},
		{"track tag", badTrack, midicsv.ErrBadMagic},
		{"truncated file", good[:len(good)-1], midicsv.ErrStreamExhausted},
		{"truncated header", good[:10], midicsv.ErrStreamExhausted},
		{"missing track", good[:14+8+len(conductorTrack)], midicsv.ErrStreamExhausted},
		{"event past chunk", overrun, midicsv.ErrStreamExhausted},
		{"truncated delta", file(0, 96, []byte{0x81}), midicsv.ErrStreamExhausted},
		{"status 0xF1", file(0, 96, []byte{0x00, 0xF1, 0x00}), midicsv.ErrMalformed},
		{"delta past 64 bits", file(0, 96, append(bytes.Repeat([]byte{0xFF}, 10), 0x7F, 0xFF, 0x2F, 0x00)), midicsv.ErrMalformed},
		{"delta past int32", file(0, 96, append(smf.AppendVLQ(nil, 1<<40), 0xFF, 0x2F, 0x00)), midicsv.ErrMalformed},
	}
	for _, c := range cases {
		for _, strict := range []bool{true, false} {
			_, err := smf.Decode(c.data, strict)
			if !errors.Is(err, c.sentinel) {
				t.Fatalf("%v (strict %v): got %v, expected %v", c.name, strict, err, c.sentinel)
			}
			if midicsv.KindOf(err) != midicsv.Structural {
				t.Fatalf("%v: got kind %v, expected %v", c.name, midicsv.KindOf(err), midicsv.Structural)
			}
		}
	}
}

func TestUnknownMetaIsDropped(t *testing.T) {
	data := file(0, 96, []byte{
		0x0A, 0xFF, 0x60, 0x01, 0x00,
		0x05, 0xFF, 0x2F, 0x00,
	})
	for _, strict := range []bool{true, false} {
		var warnings []midicsv.Diagnostic
		dec := smf.Decoder{Strict: strict, Warn: func(d midicsv.Diagnostic) { warnings = append(warnings, d) }}
		p, err := dec.Decode(data)
		if err != nil {
			t.Fatalf("unknown meta should not be fatal (strict %v): %v", strict, err)
		}
		expected := []midicsv.Event{must(midicsv.NewEndOfTrack(15))}
		if !reflect.DeepEqual(p.Tracks[0].Events, expected) {
			t.Fatalf("got %v, expected %v", p.Tracks[0].Events, expected)
		}
		if len(warnings) != 1 || !errors.Is(warnings[0], midicsv.ErrUnknownCommand) {
			t.Fatalf("expected one unknown command warning, got %v", warnings)
		}
		if warnings[0].Track != 1 || warnings[0].Offset != 22 {
			t.Fatalf("warning located at track %d offset %d, expected track 1 offset 22", warnings[0].Track, warnings[0].Offset)
		}
	}
}

func TestTrailingDroppedTicks(t *testing.T) {
	data := file(0, 96, []byte{
		0x00, 0x90, 0x3C, 0x40,
		0x83, 0x60, 0xFF, 0x60, 0x01, 0x00, // 480 ticks, unknown meta, no End of Track
	})
	var warnings []midicsv.Diagnostic
	dec := smf.Decoder{Warn: func(d midicsv.Diagnostic) { warnings = append(warnings, d) }}
	p, err := dec.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	expected := []midicsv.Event{must(midicsv.NewNoteOn(0, 0, 60, 64))}
	if !reflect.DeepEqual(p.Tracks[0].Events, expected) {
		t.Fatalf("got %v, expected %v", p.Tracks[0].Events, expected)
	}
	if l := p.Tracks[0].Length(); l != 0 {
		t.Fatalf("wrong track length, got %v, expected %v", l, 0)
	}
	if len(warnings) != 1 || !errors.Is(warnings[0], midicsv.ErrUnknownCommand) {
		t.Fatalf("expected one unknown command warning, got %v", warnings)
	}
}

func TestNoRunningStatus(t *testing.T) {
	data := file(0, 96, []byte{
		0x04, 0x3C,
		0x02, 0xFF, 0x2F, 0x00,
	})
	_, err := smf.Decode(data, true)
	if !errors.Is(err, midicsv.ErrNoRunningStatus) || midicsv.KindOf(err) != midicsv.Invalid {
		t.Fatalf("strict: got %v, expected %v", err, midicsv.ErrNoRunningStatus)
	}
	warned := 0
	dec := smf.Decoder{Warn: func(midicsv.Diagnostic) { warned++ }}
	p, err := dec.Decode(data)
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	expected := []midicsv.Event{must(midicsv.NewEndOfTrack(6))}
	if warned != 1 || !reflect.DeepEqual(p.Tracks[0].Events, expected) {
		t.Fatalf("lenient got %v (%d warnings), expected %v", p.Tracks[0].Events, warned, expected)
	}
}

func TestRunningStatusSurvivesMeta(t *testing.T) {
	data := file(0, 96, []byte{
		0x00, 0x91, 0x3C, 0x64,
		0x00, 0xFF, 0x06, 0x00,
		0x00, 0x3E, 0x64,
		0x00, 0xF0, 0x00,
		0x00, 0x40, 0x64,
	})
	_, err := smf.Decode(data, true)
	if !errors.Is(err, midicsv.ErrNoRunningStatus) {
		t.Fatalf("a sysex should clear running status, got %v", err)
	}
	p, err := smf.Decode(file(0, 96, []byte{
		0x00, 0x91, 0x3C, 0x64,
		0x00, 0xFF, 0x06, 0x00,
		0x00, 0x3E, 0x64,
	}), true)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if e := p.Tracks[0].Events[2]; e.Type != midicsv.NoteOn || e.Channel != 1 || e.Note() != 0x3E {
		t.Fatalf("running status across a meta event got %v", e)
	}
}

func TestValidationInDecode(t *testing.T) {
	data := file(0, 96, []byte{
		0x00, 0xFF, 0x51, 0x02, 0x07, 0xA1,
		0x00, 0xFF, 0x2F, 0x00,
	})
	if _, err := smf.Decode(data, true); midicsv.KindOf(err) != midicsv.Invalid {
		t.Fatalf("strict: got %v, expected an invalid error", err)
	}
	dec := smf.Decoder{Warn: func(midicsv.Diagnostic) {}}
	p, err := dec.Decode(data)
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if len(p.Tracks[0].Events) != 2 || !reflect.DeepEqual(p.Tracks[0].Events[0].Data, []byte{0x07, 0xA1}) {
		t.Fatalf("the invalid event should be kept as read, got %v", p.Tracks[0].Events)
	}
}

func TestGomidiReadsEncodedFile(t *testing.T) {
	data, err := smf.Encode(expectedPattern())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	s, err := gmsmf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gomidi could not read the file: %v", err)
	}
	if len(s.Tracks) != 2 {
		t.Fatalf("gomidi found %d tracks, expected 2", len(s.Tracks))
	}
	var bpm float64
	for _, ev := range s.Tracks[0] {
		if ev.Message.GetMetaTempo(&bpm) {
			break
		}
	}
	if bpm != 120 {
		t.Fatalf("gomidi read tempo %v, expected 120", bpm)
	}
	var keys []uint8
	var ticks []uint32
	for _, ev := range s.Tracks[1] {
		var ch, key, vel uint8
		if midi.Message(ev.Message).GetNoteOn(&ch, &key, &vel) {
			keys = append(keys, key)
			ticks = append(ticks, ev.Delta)
		}
	}
	if !reflect.DeepEqual(keys, []uint8{60, 64, 60, 64}) || !reflect.DeepEqual(ticks, []uint32{0, 0, 480, 0}) {
		t.Fatalf("gomidi read note ons %v at %v", keys, ticks)
	}
}

func TestRoundTripEveryVariant(t *testing.T) {
	p := midicsv.NewPattern(2, 192)
	var tr midicsv.Track
	for i, d := range midicsv.Descriptors {
		data := []byte{0x00, byte(i), 0x7F}
		if d.Fixed() {
			data = make([]byte, d.Length)
			for j := range data {
				data[j] = byte(j + i)
			}
		}
		var channel uint8
		if d.Family == midicsv.ChannelVoice {
			channel = uint8(i % 16)
		}
		e, err := midicsv.New(d.Type, i, channel, data)
		if err != nil {
			t.Fatalf("could not build %v: %v", d.Name, err)
		}
		tr.Append(e)
	}
	p.Tracks = append(p.Tracks, tr, midicsv.Track{})
	data, err := smf.Encode(p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := smf.Decode(data, true)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(got.Tracks[0], p.Tracks[0]) {
		t.Fatalf("round trip differs\ngot      %v\nexpected %v", got.Tracks[0], p.Tracks[0])
	}
	if len(got.Tracks) != 2 || len(got.Tracks[1].Events) != 0 {
		t.Fatalf("empty track did not survive: %v", got.Tracks)
	}
}
