package csvconv

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/midicsv/midicsv"
)

// Render returns the CSV text of p: a Header record, every track opened by
// a Start_track record, and a closing End_of_file record. Lines are
// separated by "\n"; the last line has no terminator.
func Render(p midicsv.Pattern) string {
	var sb strings.Builder
	Write(&sb, p)
	return sb.String()
}

// Write writes the CSV text of p to w.
func Write(w io.Writer, p midicsv.Pattern) error {
	bw := bufio.NewWriter(w)
	writeRecord(bw, 0, 0, HeaderKeyword, []string{
		strconv.Itoa(p.Format), strconv.Itoa(len(p.Tracks)), strconv.Itoa(p.Resolution)})
	for i, t := range p.Tracks {
		number := i + 1
		bw.WriteByte('\n')
		writeRecord(bw, number, 0, StartTrackKeyword, nil)
		tick := 0
		for _, e := range t.Events {
			if t.Absolute {
				tick = e.Tick
			} else {
				tick += e.Tick
			}
			bw.WriteByte('\n')
			keyword, ok := Keywords[e.Type]
			if !ok {
				fmt.Fprintf(bw, "# %d, %d, undeclared event type %d", number, tick, int(e.Type))
				continue
			}
			writeRecord(bw, number, tick, keyword, Fields(e))
		}
	}
	bw.WriteByte('\n')
	writeRecord(bw, 0, 0, EndOfFileKeyword, nil)
	return bw.Flush()
}

func writeRecord(w *bufio.Writer, track, tick int, keyword string, fields []string) {
	fmt.Fprintf(w, "%d, %d, %s", track, tick, keyword)
	for _, f := range fields {
		w.WriteString(", ")
		w.WriteString(f)
	}
}

// Fields returns the CSV fields of e that follow its keyword.
func Fields(e midicsv.Event) []string {
	switch e.Type {
	case midicsv.PitchWheel:
		return []string{strconv.Itoa(int(e.Channel)), strconv.Itoa(e.PitchBend())}
	case midicsv.SequenceNumber:
		return []string{strconv.Itoa(e.SequenceNumber())}
	case midicsv.Tempo:
		return []string{strconv.Itoa(e.MPQN())}
	case midicsv.Port:
		if len(e.Data) == 0 {
			return []string{"0"}
		}
		return decimals(e.Data)
	case midicsv.TimeSignature:
		data := e.Data
		if len(data) == 2 {
			data = append(append([]byte{}, data...), 24, 8)
		}
		return decimals(data)
	case midicsv.KeySignature:
		mode := `"minor"`
		if len(e.Data) > 1 && e.Data[1] == 0 {
			mode = `"major"`
		}
		return []string{strconv.Itoa(e.Alternatives()), mode}
	case midicsv.SequencerSpecific, midicsv.Sysex, midicsv.SysexF7:
		ret := make([]string, 0, len(e.Data)+1)
		ret = append(ret, hex(len(e.Data)))
		for _, b := range e.Data {
			ret = append(ret, hex(int(b)))
		}
		return ret
	}
	if e.Type.IsText() {
		return []string{quoteText(e.Data)}
	}
	if d, ok := midicsv.DefaultRegistry.Lookup(e.Type); ok && d.Family == midicsv.ChannelVoice {
		return append([]string{strconv.Itoa(int(e.Channel))}, decimals(e.Data)...)
	}
	return decimals(e.Data)
}

func decimals(data []byte) []string {
	ret := make([]string, len(data))
	for i, b := range data {
		ret[i] = strconv.Itoa(int(b))
	}
	return ret
}

func hex(v int) string {
	return fmt.Sprintf("%02X", v)
}
