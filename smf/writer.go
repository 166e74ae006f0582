package smf

import (
	"encoding/binary"
	"fmt"

	"github.com/midicsv/midicsv"
)

// Encoder turns a Pattern into a byte stream. With RunningStatus set, a
// channel-voice status byte equal to the previous one in the same track is
// omitted.
type Encoder struct {
	RunningStatus bool
}

// Encode encodes p using running status compression. Patterns with absolute
// ticks are converted to delta ticks on a copy.
func Encode(p midicsv.Pattern) ([]byte, error) {
	e := Encoder{RunningStatus: true}
	return e.Encode(p)
}

func (e *Encoder) Encode(p midicsv.Pattern) ([]byte, error) {
	if p.Format < 0 || p.Format > 0xFFFF {
		return nil, fmt.Errorf("format %d does not fit in 16 bits", p.Format)
	}
	if p.Resolution < 0 || p.Resolution > 0xFFFF {
		return nil, fmt.Errorf("resolution %d does not fit in 16 bits", p.Resolution)
	}
	if len(p.Tracks) > 0xFFFF {
		return nil, fmt.Errorf("have too many tracks (%d), limited to %d", len(p.Tracks), 0xFFFF)
	}
	ret := make([]byte, 0, chunkHeaderSize+headerLength+p.NumEvents()*4)
	ret = append(ret, headerTag...)
	ret = binary.BigEndian.AppendUint32(ret, headerLength)
	ret = binary.BigEndian.AppendUint16(ret, uint16(p.Format))
	ret = binary.BigEndian.AppendUint16(ret, uint16(len(p.Tracks)))
	ret = binary.BigEndian.AppendUint16(ret, uint16(p.Resolution))
	for i, t := range p.Tracks {
		if t.Absolute != p.Absolute {
			return nil, fmt.Errorf("track %d: tick mode does not match the pattern", i+1)
		}
		var err error
		if ret, err = e.AppendTrack(ret, t); err != nil {
			return nil, fmt.Errorf("track %d: %w", i+1, err)
		}
	}
	return ret, nil
}

// AppendTrack appends the MTrk chunk of t to dst. The running status starts
// afresh for every track.
func (e *Encoder) AppendTrack(dst []byte, t midicsv.Track) ([]byte, error) {
	if t.Absolute {
		t = t.Copy()
		t.MakeTicksRel()
	}
	start := len(dst)
	dst = append(dst, trackTag...)
	dst = append(dst, 0, 0, 0, 0) // length, patched below
	var runningStatus byte
	for i, ev := range t.Events {
		var err error
		if dst, err = e.appendEvent(dst, ev, &runningStatus); err != nil {
			return nil, fmt.Errorf("event %d (%v): %w", i, ev.Type, err)
		}
	}
	length := len(dst) - start - chunkHeaderSize
	if uint64(length) > 0xFFFFFFFF {
		return nil, fmt.Errorf("track chunk of %d bytes does not fit in 32 bits", length)
	}
	binary.BigEndian.PutUint32(dst[start+4:], uint32(length))
	return dst, nil
}

func (e *Encoder) appendEvent(dst []byte, ev midicsv.Event, runningStatus *byte) ([]byte, error) {
	desc, ok := midicsv.DefaultRegistry.Lookup(ev.Type)
	if !ok {
		return nil, midicsv.InvalidError(ev.Type, "type", int(ev.Type), "is not a declared variant")
	}
	if ev.Tick < 0 {
		return nil, midicsv.InvalidError(ev.Type, "tick", ev.Tick, "is negative")
	}
	dst = AppendVLQ(dst, uint64(ev.Tick))
	switch desc.Family {
	case midicsv.Meta:
		*runningStatus = 0
		dst = append(dst, midicsv.MetaStatus, desc.Command)
		dst = AppendVLQ(dst, uint64(len(ev.Data)))
		return append(dst, ev.Data...), nil
	case midicsv.SystemExclusive:
		*runningStatus = 0
		dst = append(dst, desc.Status)
		dst = AppendVLQ(dst, uint64(len(ev.Data)))
		return append(dst, ev.Data...), nil
	}
	if ev.Channel > 15 {
		return nil, midicsv.InvalidError(ev.Type, "channel", int(ev.Channel), "is out of range 0-15")
	}
	// the payload of channel messages is framed by its length and the high
	// bit of every byte
	if len(ev.Data) != desc.Length {
		return nil, midicsv.InvalidError(ev.Type, "length", len(ev.Data), fmt.Sprintf("does not match the fixed length %d", desc.Length))
	}
	for i, b := range ev.Data {
		if b&0x80 != 0 {
			name := fmt.Sprintf("data%d", i+1)
			if i < len(desc.Fields) {
				name = desc.Fields[i].Name
			}
			return nil, midicsv.InvalidError(ev.Type, name, int(b), "is not a data byte")
		}
	}
	status := desc.Status | ev.Channel
	if !e.RunningStatus || status != *runningStatus {
		dst = append(dst, status)
		*runningStatus = status
	}
	return append(dst, ev.Data...), nil
}
