package xm7

import (
	"errors"
	"sync"
	"time"

	"github.com/quasilyte/xm7/xmfile"
)

// State is a player playback state.
type State int

const (
	Stopped State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "stopped"
}

// Player is a tick-driven module sequencer.
//
// It doesn't produce any PCM data. Instead, every Tick() call
// computes the frequency, volume and panning of every channel
// and hands them over to the OutputSink.
//
// The host is expected to call Tick periodically,
// see TickDuration for the expected period.
type Player struct {
	module module

	state State
	sink  OutputSink

	locker   sync.Locker
	commands chan Command

	// Playback cursor.
	pattern *pattern
	order   int
	row     int
	tick    int

	// Pattern break and jump state.
	jump jumpState

	// patternDelay is a number of extra row repeats (EEx).
	patternDelay int
	repeatRow    bool

	// These values can change during the playback.
	tempo        int // Also known as "speed" and "ticks per row"
	bpm          int
	globalVolume int // [0, 64]

	replayStyle         ReplayStyle
	panningStyle        PanningStyle
	panningDisplacement int

	ticks uint64
	t     float64

	channels []channel

	eventHandler func(e Event)
}

type jumpState struct {
	order    int
	row      int
	orderSet bool
	rowSet   bool

	loopRow int
	loopSet bool
}

func (p *Player) lock() {
	if p.locker != nil {
		p.locker.Lock()
	}
}

func (p *Player) unlock() {
	if p.locker != nil {
		p.locker.Unlock()
	}
}

// NewPlayer allocates a player that can load and play modules.
// Use Load method to finish player initialization.
func NewPlayer(config PlayerConfig) *Player {
	if config.Sink == nil {
		config.Sink = NopSink{}
	}
	if config.QueueSize == 0 {
		config.QueueSize = 16
	}
	return &Player{
		sink:     config.Sink,
		locker:   config.Locker,
		commands: make(chan Command, config.QueueSize),
	}
}

// SetEventHandler installs an event listener to the player.
//
// f is called on every player event from inside the Tick
// (or Stop) call.
func (p *Player) SetEventHandler(f func(e Event)) {
	p.eventHandler = f
}

// Load assigns a new module to this player.
//
// The player stops and resets the replay and panning styles
// to the module format defaults: FT2 semantics with module panning
// for XM, ProTracker semantics with Amiga panning for MOD.
//
// The module should not be unloaded while the player uses it.
// Use Player.Unload to release both.
func (p *Player) Load(m *xmfile.Module) error {
	p.lock()
	defer p.unlock()

	compiled, err := compileModule(m)
	if err != nil {
		return err
	}

	p.stop()
	p.module = compiled
	if cap(p.channels) < m.NumChannels {
		p.channels = make([]channel, m.NumChannels)
	}
	p.channels = p.channels[:m.NumChannels]

	if m.Format == xmfile.FormatMOD {
		p.replayStyle = ReplayStylePT
		p.setPanningStyle(PanningAmiga, PanningDisplacementDefault)
	} else {
		p.replayStyle = ReplayStyleFT2
		p.setPanningStyle(PanningNormal, PanningDisplacementDefault)
	}

	p.rewind(0)
	return nil
}

// LoadBytes parses the module data and loads it into the player.
// The parsed module is unloaded on errors.
func (p *Player) LoadBytes(data []byte, config xmfile.ParserConfig) error {
	m := &xmfile.Module{}
	if err := xmfile.NewParser(config).Load(m, data); err != nil {
		m.Unload()
		return err
	}
	if err := p.Load(m); err != nil {
		m.Unload()
		return err
	}
	return nil
}

// Module returns the currently loaded module.
// It's nil if nothing is loaded.
func (p *Player) Module() *xmfile.Module {
	return p.module.raw
}

// Play starts the playback from the first order position.
func (p *Player) Play() error {
	return p.PlayFrom(0)
}

// PlayFrom starts the playback from the given order position.
// All channels are reset.
func (p *Player) PlayFrom(position int) error {
	p.lock()
	defer p.unlock()
	if p.module.raw == nil {
		return errors.New("no module loaded")
	}
	if position < 0 || position >= len(p.module.patternOrder) {
		return errors.New("order position is out of range")
	}
	p.playFrom(position)
	return nil
}

func (p *Player) playFrom(position int) {
	if p.module.raw == nil {
		return
	}
	if position < 0 || position >= len(p.module.patternOrder) {
		position = 0
	}
	p.rewind(position)
	p.state = Playing
	p.emitOrderEvent()
}

// Stop silences all channels and stops the playback.
// The module remains loaded, so the playback can be started again.
func (p *Player) Stop() {
	p.lock()
	defer p.unlock()
	p.stop()
}

func (p *Player) stop() {
	if p.state != Playing {
		return
	}
	p.state = Stopped
	for i := range p.channels {
		ch := &p.channels[i]
		ch.active = false
		p.sink.StopChannel(ch.id)
	}
	p.emitEvent(Event{Kind: EventStop, Channel: -1})
}

// Unload stops the player and releases the loaded module.
func (p *Player) Unload() {
	p.lock()
	defer p.unlock()
	p.stop()
	if p.module.raw != nil {
		p.module.raw.Unload()
	}
	p.module = module{}
	p.channels = p.channels[:0]
}

func (p *Player) rewind(position int) {
	p.order = position
	p.row = 0
	p.tick = 0
	p.pattern = p.module.patternOrder[position]
	p.jump = jumpState{}
	p.patternDelay = 0
	p.repeatRow = false
	p.tempo = p.module.tempo
	p.bpm = p.module.bpm
	p.globalVolume = 64
	p.ticks = 0
	p.t = 0

	for i := range p.channels {
		if p.channels[i].active {
			p.sink.StopChannel(i)
		}
		panning := 128
		if p.panningStyle == PanningAmiga {
			panning = amigaPanning(i, p.panningDisplacement)
		}
		p.channels[i].Reset(i, panning)
	}
}

// State returns the current playback state.
func (p *Player) State() State { return p.state }

// Cursor is a playback position.
type Cursor struct {
	Order   int
	Pattern int
	Row     int
	Tick    int
}

// Position returns the position of the next tick to be processed.
func (p *Player) Position() Cursor {
	c := Cursor{Order: p.order, Row: p.row, Tick: p.tick, Pattern: -1}
	if p.module.raw != nil && p.order < len(p.module.raw.PatternOrder) {
		c.Pattern = int(p.module.raw.PatternOrder[p.order])
	}
	return c
}

// Tempo returns the current number of ticks per row.
func (p *Player) Tempo() int { return p.tempo }

// BPM returns the current beats per minute value.
func (p *Player) BPM() int { return p.bpm }

// GlobalVolume returns the current global volume in [0, 64] range.
func (p *Player) GlobalVolume() int { return p.globalVolume }

// ReplayStyle returns the current replay style flags.
func (p *Player) ReplayStyle() ReplayStyle { return p.replayStyle }

// PanningStyle returns the current panning style and displacement.
func (p *Player) PanningStyle() (PanningStyle, int) {
	return p.panningStyle, p.panningDisplacement
}

// TickDuration reports how often the Tick should be called
// to play the module at its current BPM.
func (p *Player) TickDuration() time.Duration {
	bpm := p.bpm
	if bpm == 0 {
		bpm = 125
	}
	return time.Duration(float64(time.Second) * 2.5 / float64(bpm))
}

// ChannelInfo is a channel state snapshot.
type ChannelInfo struct {
	Active     bool
	Note       int
	Instrument int
	Volume     int
	Panning    int
	Period     int
	KeyOn      bool
}

// NumChannels returns the number of channels of the loaded module.
func (p *Player) NumChannels() int { return len(p.channels) }

// Channel returns the i-th channel state.
func (p *Player) Channel(i int) ChannelInfo {
	ch := &p.channels[i]
	return ChannelInfo{
		Active:     ch.active,
		Note:       ch.baseNote,
		Instrument: ch.instIndex,
		Volume:     ch.volume,
		Panning:    ch.panning,
		Period:     ch.period,
		KeyOn:      ch.keyOn,
	}
}

// MemoryUsage approximates the loaded module size in bytes.
func (p *Player) MemoryUsage() uint {
	return moduleSize(&p.module)
}

// Tick advances the playback by one tick.
//
// The queued commands (see Post) are applied first.
// Tick never blocks or allocates; it's safe to call it from
// a timer callback. It does nothing if the player is stopped.
func (p *Player) Tick() {
	p.lock()
	defer p.unlock()

	p.drainCommands()
	if p.state != Playing {
		return
	}

	if p.tick == 0 && !p.repeatRow {
		p.processRow()
	}
	p.processTickEffects()
	p.updateChannels()
	p.advance()
}

func (p *Player) advance() {
	p.ticks++
	p.t += 2.5 / float64(p.bpm)

	p.tick++
	if p.tick < p.tempo {
		return
	}
	p.tick = 0

	if p.patternDelay > 0 {
		p.patternDelay--
		p.repeatRow = true
		return
	}
	p.repeatRow = false
	p.nextRow()
}

func (p *Player) nextRow() {
	jump := p.jump
	p.jump = jumpState{}

	if jump.orderSet || jump.rowSet {
		order := p.order + 1
		if jump.orderSet {
			order = jump.order
		}
		row := 0
		if jump.rowSet {
			row = jump.row
		}
		p.selectOrder(order)
		if row >= p.pattern.numRows {
			row = 0
		}
		p.row = row
		return
	}

	if jump.loopSet {
		p.row = jump.loopRow
		return
	}

	p.row++
	if p.row >= p.pattern.numRows {
		p.selectOrder(p.order + 1)
		p.row = 0
	}
}

func (p *Player) selectOrder(order int) {
	if order >= len(p.module.patternOrder) {
		// The song is over, go to the restart position.
		order = p.module.restartPosition
	}
	p.order = order
	p.pattern = p.module.patternOrder[order]
	for i := range p.channels {
		ch := &p.channels[i]
		ch.loopRow = 0
		ch.loopCount = 0
	}
	p.emitOrderEvent()
}
