package midicsv

// Track is an ordered list of events. Its tick mode must agree with the
// owning Pattern when the pattern is converted.
type Track struct {
	Absolute bool `yaml:",omitempty" json:",omitempty"`
	Events   []Event
}

// Copy makes a deep copy of a Track.
func (t Track) Copy() Track {
	var events []Event
	if t.Events != nil {
		events = make([]Event, len(t.Events))
	}
	for i, e := range t.Events {
		data := make([]byte, len(e.Data))
		copy(data, e.Data)
		e.Data = data
		events[i] = e
	}
	return Track{Absolute: t.Absolute, Events: events}
}

// Append adds an event at the end of the track.
func (t *Track) Append(e Event) {
	t.Events = append(t.Events, e)
}

// MakeTicksAbs turns delta ticks into times since track start. Does nothing
// if the track is already absolute.
func (t *Track) MakeTicksAbs() {
	if t.Absolute {
		return
	}
	t.Absolute = true
	running := 0
	for i := range t.Events {
		running += t.Events[i].Tick
		t.Events[i].Tick = running
	}
}

// MakeTicksRel turns times since track start into delta ticks. Does nothing
// if the track is already relative. Events that are out of order end up
// with negative deltas, which Validate reports.
func (t *Track) MakeTicksRel() {
	if !t.Absolute {
		return
	}
	t.Absolute = false
	previous := 0
	for i := range t.Events {
		abs := t.Events[i].Tick
		t.Events[i].Tick = abs - previous
		previous = abs
	}
}

// Length returns the duration of the track in ticks.
func (t Track) Length() int {
	if t.Absolute {
		if len(t.Events) == 0 {
			return 0
		}
		return t.Events[len(t.Events)-1].Tick
	}
	ret := 0
	for _, e := range t.Events {
		ret += e.Tick
	}
	return ret
}
