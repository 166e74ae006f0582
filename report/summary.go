package report

import (
	"fmt"
	"sort"

	"github.com/midicsv/midicsv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	// Summary is the view the report templates are executed over.
	Summary struct {
		Format     int
		Resolution int
		Events     int
		Tracks     []TrackSummary

		// Tempo is the BPM of the first Set Tempo event, 0 if there is none.
		Tempo float64
		// TimeSignature is the first time signature as "4/4", "" if there is
		// none.
		TimeSignature string

		Families []Count
		Types    []Count
	}

	TrackSummary struct {
		Number   int // 1-based
		Name     string
		Events   int
		Notes    int // note on events with a nonzero velocity
		Length   int // in ticks
		Channels []int
	}

	Count struct {
		Name  string
		Count int
	}
)

var titleCaser = cases.Title(language.English)

// Summarize collects the Summary of p. The ticks of p may be in either mode.
func Summarize(p midicsv.Pattern) Summary {
	ret := Summary{Format: p.Format, Resolution: p.Resolution, Events: p.NumEvents()}
	families := map[midicsv.Family]int{}
	types := map[midicsv.Type]int{}
	for i, t := range p.Tracks {
		ts := TrackSummary{Number: i + 1, Events: len(t.Events), Length: t.Length()}
		channels := map[int]bool{}
		for _, e := range t.Events {
			d, ok := midicsv.DefaultRegistry.Lookup(e.Type)
			if !ok {
				continue
			}
			families[d.Family]++
			types[e.Type]++
			switch e.Type {
			case midicsv.TrackName:
				if ts.Name == "" {
					ts.Name = e.Text()
				}
			case midicsv.Tempo:
				if ret.Tempo == 0 {
					ret.Tempo = e.BPM()
				}
			case midicsv.TimeSignature:
				if ret.TimeSignature == "" {
					ret.TimeSignature = fmt.Sprintf("%d/%d", e.Numerator(), e.Denominator())
				}
			}
			if d.Family != midicsv.ChannelVoice {
				continue
			}
			channels[int(e.Channel)] = true
			var ch, key, vel uint8
			if e.Message().GetNoteStart(&ch, &key, &vel) {
				ts.Notes++
			}
		}
		for c := range channels {
			ts.Channels = append(ts.Channels, c)
		}
		sort.Ints(ts.Channels)
		ret.Tracks = append(ret.Tracks, ts)
	}
	for f := midicsv.ChannelVoice; f <= midicsv.SystemExclusive; f++ {
		if n := families[f]; n > 0 {
			ret.Families = append(ret.Families, Count{Name: titleCaser.String(f.String()), Count: n})
		}
	}
	for _, d := range midicsv.Descriptors {
		if n := types[d.Type]; n > 0 {
			ret.Types = append(ret.Types, Count{Name: titleCaser.String(d.Name), Count: n})
		}
	}
	return ret
}
