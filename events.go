package xm7

// EventKind is an event tag that should be used to differentiate between different event types.
// See Event docs for more info.
type EventKind int

const (
	// EventUnknown is a sentinel value.
	// You should never receive an event of this kind.
	EventUnknown EventKind = iota

	// EventNote is emitted every time a channel starts to play some note.
	//
	// Use Event.NoteEventData to get the event data.
	EventNote

	// EventOrder is emitted when the player moves to another order position.
	// This includes the jumps and the song restarts.
	//
	// Use Event.OrderEventData to get the event data.
	EventOrder

	// EventStop is emitted when the playback is stopped.
	// This event has no data.
	EventStop
)

// Event holds a single Player event data.
// This object is an argument to the Player.SetEventHandler function.
//
// To handle the event correctly, you must first check its kind.
// For an event of kind EventNote there is a NoteEventData method that
// will return the associated data. For EventOrder there is an OrderEventData.
//
// Events are reported synchronously from inside the Tick call.
type Event struct {
	Kind EventKind

	// Channel is an event channel ID.
	// It's -1 for the channel-independent events.
	Channel int

	// Tick is a number of ticks processed since the playback start.
	Tick uint64

	// Time represents the playback offset in seconds.
	// It takes all BPM changes into account.
	Time float64

	value uint64
}

// NoteEventData returns the event data if e.Kind=EventNote.
// The return values are: note, instrument (1-based), volume (0-64).
func (e Event) NoteEventData() (note, instrument, volume int) {
	return int(e.value & 0xff), int((e.value >> 8) & 0xff), int(e.value >> 16)
}

// OrderEventData returns the event data if e.Kind=EventOrder.
// The return values are: order position, pattern index.
func (e Event) OrderEventData() (order, pattern int) {
	return int(e.value & 0xffff), int(e.value >> 16)
}

func (p *Player) emitEvent(e Event) {
	if p.eventHandler == nil {
		return
	}
	e.Tick = p.ticks
	e.Time = p.t
	p.eventHandler(e)
}

func (p *Player) emitNoteEvent(ch *channel, note int) {
	p.emitEvent(Event{
		Kind:    EventNote,
		Channel: ch.id,
		value:   uint64(note) | uint64(ch.instIndex)<<8 | uint64(ch.volume)<<16,
	})
}

func (p *Player) emitOrderEvent() {
	patternIndex := -1
	if p.order < len(p.module.raw.PatternOrder) {
		patternIndex = int(p.module.raw.PatternOrder[p.order])
	}
	p.emitEvent(Event{
		Kind:    EventOrder,
		Channel: -1,
		value:   uint64(p.order) | uint64(patternIndex)<<16,
	})
}
