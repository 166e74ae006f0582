package midicsv

import (
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
)

// Registry maps the identifying bytes of the binary stream to event
// variants. Every slot holds at most one variant; registering a second
// variant into an occupied slot fails with ErrRegistrationConflict.
type Registry struct {
	channel [16]*Descriptor // indexed by the high nibble of the status byte
	meta    map[byte]*Descriptor
	sysex   map[byte]*Descriptor
	types   map[Type]*Descriptor
	keys    map[string]*Descriptor
}

// DefaultRegistry holds all the variants in Descriptors. It is populated
// during init() and should be treated as immutable afterwards.
var DefaultRegistry = NewRegistry()

func init() {
	for _, d := range Descriptors {
		if err := DefaultRegistry.Register(d); err != nil {
			panic(err)
		}
	}
}

func NewRegistry() *Registry {
	return &Registry{
		meta:  map[byte]*Descriptor{},
		sysex: map[byte]*Descriptor{},
		types: map[Type]*Descriptor{},
		keys:  map[string]*Descriptor{},
	}
}

// Register installs the variant into the table of its family.
func (r *Registry) Register(d Descriptor) error {
	if _, ok := r.types[d.Type]; ok {
		return conflict(d, fmt.Sprintf("type %d already registered", int(d.Type)))
	}
	if _, ok := r.keys[d.Key]; ok {
		return conflict(d, fmt.Sprintf("key %q already registered", d.Key))
	}
	if d.Length < Variable {
		return fault.Wrap(fmt.Errorf("variant %v has negative length %d", d.Name, d.Length), fmsg.With("cannot register variant"))
	}
	ptr := &d
	switch d.Family {
	case ChannelVoice:
		if d.Status < 0x80 || d.Status > 0xE0 || d.Status&0x0F != 0 {
			return fault.Wrap(fmt.Errorf("variant %v has invalid channel status 0x%02X", d.Name, d.Status), fmsg.With("cannot register variant"))
		}
		slot := d.Status >> 4
		if prev := r.channel[slot]; prev != nil {
			return conflict(d, fmt.Sprintf("opcode 0x%X is taken by %v", slot, prev.Name))
		}
		r.channel[slot] = ptr
	case Meta:
		if prev, ok := r.meta[d.Command]; ok {
			return conflict(d, fmt.Sprintf("meta command 0x%02X is taken by %v", d.Command, prev.Name))
		}
		r.meta[d.Command] = ptr
	case SystemExclusive:
		if prev, ok := r.sysex[d.Status]; ok {
			return conflict(d, fmt.Sprintf("sysex status 0x%02X is taken by %v", d.Status, prev.Name))
		}
		r.sysex[d.Status] = ptr
	default:
		return fault.Wrap(fmt.Errorf("variant %v has unknown family %v", d.Name, d.Family), fmsg.With("cannot register variant"))
	}
	r.types[d.Type] = ptr
	r.keys[d.Key] = ptr
	return nil
}

func conflict(d Descriptor, reason string) error {
	return fault.Wrap(ErrRegistrationConflict, fmsg.With(fmt.Sprintf("cannot register %v: %v", d.Name, reason)))
}

// LookupChannel returns the channel-voice variant whose opcode is the high
// nibble of status.
func (r *Registry) LookupChannel(status byte) (*Descriptor, bool) {
	d := r.channel[status>>4]
	return d, d != nil
}

// LookupMeta returns the meta variant with the given command byte.
func (r *Registry) LookupMeta(command byte) (*Descriptor, bool) {
	d, ok := r.meta[command]
	return d, ok
}

// LookupSysex returns the system exclusive variant with the given status
// byte.
func (r *Registry) LookupSysex(status byte) (*Descriptor, bool) {
	d, ok := r.sysex[status]
	return d, ok
}

// Lookup returns the descriptor of t.
func (r *Registry) Lookup(t Type) (*Descriptor, bool) {
	d, ok := r.types[t]
	return d, ok
}

// LookupChannel looks up status in the DefaultRegistry.
func LookupChannel(status byte) (*Descriptor, bool) {
	return DefaultRegistry.LookupChannel(status)
}

// LookupMeta looks up command in the DefaultRegistry.
func LookupMeta(command byte) (*Descriptor, bool) {
	return DefaultRegistry.LookupMeta(command)
}

// LookupSysex looks up status in the DefaultRegistry. 0xF7 has its own
// variant; any other status falls back to the shape of the 0xF0 variant.
func LookupSysex(status byte) (*Descriptor, bool) {
	if d, ok := DefaultRegistry.LookupSysex(status); ok {
		return d, true
	}
	return DefaultRegistry.LookupSysex(0xF0)
}
