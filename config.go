package xm7

import (
	"sync"
)

// ReplayStyle is a set of flags that control the effect semantics.
type ReplayStyle uint8

const (
	// ReplayStyleMODPlayer makes the arpeggio cycle in the ProTracker
	// order and makes the instrument-only rows behave like in ProTracker.
	// When not set, the FastTracker 2 semantics are used.
	ReplayStyleMODPlayer ReplayStyle = 1 << iota

	// ReplayOnTheFlySampleChange makes an instrument number without
	// a note switch the playing sample to the new instrument's one.
	ReplayOnTheFlySampleChange
)

const (
	// ReplayStyleFT2 is a default style for XM modules.
	ReplayStyleFT2 ReplayStyle = 0

	// ReplayStylePT is a default style for MOD modules.
	ReplayStylePT = ReplayStyleMODPlayer | ReplayOnTheFlySampleChange
)

func (s ReplayStyle) modPlayer() bool { return s&ReplayStyleMODPlayer != 0 }

func (s ReplayStyle) onTheFlySampleChange() bool { return s&ReplayOnTheFlySampleChange != 0 }

// PanningStyle selects how the channel panning is computed.
type PanningStyle uint8

const (
	// PanningNormal uses the panning from the module
	// (samples, envelopes and panning effects).
	PanningNormal PanningStyle = iota

	// PanningAmiga uses the fixed Amiga-like LRRL channels layout.
	// The module panning data is ignored.
	PanningAmiga
)

// Panning displacement values for the Amiga panning style.
const (
	PanningDisplacementHard    = 0
	PanningDisplacementDefault = 42
	PanningDisplacementMono    = 64
	PanningDisplacementMax     = 127
)

// PlayerConfig configures the player.
//
// A zero value is a valid configuration.
type PlayerConfig struct {
	// Sink receives the computed channel parameters.
	// A nil sink means NopSink.
	Sink OutputSink

	// Locker is held by Tick and by the control methods
	// (Load, Play, Stop, Unload and the style setters).
	//
	// The player doesn't need it if all of these methods are
	// called from the same goroutine (or if the control
	// commands are delivered via Post).
	//
	// A nil value means "no locking".
	Locker sync.Locker

	// QueueSize is the Post() command queue capacity.
	// A zero value means 16.
	QueueSize int
}

// SetReplayStyle changes the effect semantics flags.
// The change applies starting from the next processed row.
//
// Load() resets the style to the module format default.
func (p *Player) SetReplayStyle(style ReplayStyle) {
	p.lock()
	defer p.unlock()
	p.replayStyle = style
}

// SetPanningStyle changes the panning mode.
// The displacement is only used for PanningAmiga, it's clamped in [0, 127].
// 0 means the hard left/right panning, 64 is mono.
//
// Load() resets the style to the module format default.
func (p *Player) SetPanningStyle(style PanningStyle, displacement int) {
	p.lock()
	defer p.unlock()
	p.setPanningStyle(style, displacement)
}

func (p *Player) setPanningStyle(style PanningStyle, displacement int) {
	p.panningStyle = style
	p.panningDisplacement = clamp(displacement, PanningDisplacementHard, PanningDisplacementMax)
}

// amigaPanning returns the fixed LRRL panning for the channel.
func amigaPanning(channel, displacement int) int {
	left := displacement * 2
	switch channel % 4 {
	case 0, 3:
		return left
	default:
		return 255 - left
	}
}
