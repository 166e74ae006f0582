package midicsv

// Pattern is the in-memory form of a Standard MIDI File: the header fields
// and the tracks, in file order.
type Pattern struct {
	// Format is the SMF format: 0 (single track), 1 (simultaneous tracks)
	// or 2 (independent sequences).
	Format int

	// Resolution is the number of ticks per quarter note.
	Resolution int

	// Absolute tells if the ticks of the events are absolute times since
	// track start. The zero value means delta ticks, which is how both the
	// binary stream and the decoders store them.
	Absolute bool `yaml:",omitempty" json:",omitempty"`

	Tracks []Track
}

// DefaultResolution is used for patterns built without a Header record.
const DefaultResolution = 480

// NewPattern returns an empty pattern with relative ticks.
func NewPattern(format, resolution int) Pattern {
	return Pattern{Format: format, Resolution: resolution, Tracks: []Track{}}
}

// Copy makes a deep copy of a Pattern.
func (p Pattern) Copy() Pattern {
	tracks := make([]Track, len(p.Tracks))
	for i, t := range p.Tracks {
		tracks[i] = t.Copy()
	}
	return Pattern{Format: p.Format, Resolution: p.Resolution, Absolute: p.Absolute, Tracks: tracks}
}

// MakeTicksAbs converts every track to absolute ticks.
func (p *Pattern) MakeTicksAbs() {
	p.Absolute = true
	for i := range p.Tracks {
		p.Tracks[i].MakeTicksAbs()
	}
}

// MakeTicksRel converts every track to delta ticks.
func (p *Pattern) MakeTicksRel() {
	p.Absolute = false
	for i := range p.Tracks {
		p.Tracks[i].MakeTicksRel()
	}
}

// NumEvents returns the total number of events over all tracks.
func (p Pattern) NumEvents() int {
	ret := 0
	for _, t := range p.Tracks {
		ret += len(t.Events)
	}
	return ret
}
