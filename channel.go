package xm7

import (
	"github.com/quasilyte/xm7/internal/xmdb"
	"github.com/quasilyte/xm7/xmfile"
)

type channel struct {
	id int

	// Note-related data.
	note      patternNote
	inst      *instrument
	instIndex int
	sample    *xmfile.Sample
	baseNote  int
	keyOn     bool
	active    bool

	volume  int // [0, 64]
	panning int // [0, 255]

	relativeNote int
	finetune     int

	period       int
	targetPeriod int

	// Effect parameters memory, see xmdb.MemorySlot.
	memory [xmdb.NumMemorySlots]uint8

	// Per-row effect parameters (after the memory is applied).
	effectArg       uint8
	volumeEffectArg uint8
	portamentoSpeed int
	glissando       bool

	arpeggioSemitones int

	vibrato        oscillator
	vibratoRunning bool
	tremolo        oscillator
	tremoloRunning bool
	tremor         tremor
	tremorRunning  bool
	autoVibrato    autoVibrato

	volumeEnvelope  envelopeRunner
	panningEnvelope envelopeRunner
	fadeoutVolume   int // [0, 32768]

	// Pattern loop (E6x) state.
	loopRow   int
	loopCount int

	// Tick-targeted row effects, -1 means "not armed".
	noteCutTick   int
	noteDelayTick int
	keyOffTick    int

	retrigCounter int

	finetuneOverride   bool
	finetuneOverrideTo int
}

const fadeoutMax = 32768

func (ch *channel) Reset(id int, panning int) {
	*ch = channel{
		id:            id,
		panning:       panning,
		noteCutTick:   -1,
		noteDelayTick: -1,
		keyOffTick:    -1,
		fadeoutVolume: fadeoutMax,
	}
	ch.vibrato.rng = uint32(id)*7919 + 1
	ch.tremolo.rng = uint32(id)*104729 + 1
	ch.autoVibrato.rng = uint32(id)*1299709 + 1
	ch.vibrato.retrig = true
	ch.tremolo.retrig = true
}

// rememberParam applies the effect memory rules for the given slot.
// A zero parameter is replaced by the last non-zero value.
func (ch *channel) rememberParam(slot xmdb.MemorySlot, arg uint8) uint8 {
	if slot == xmdb.SlotNone {
		return arg
	}
	if arg != 0 {
		ch.memory[slot] = arg
		return arg
	}
	return ch.memory[slot]
}

// rememberNibbles is like rememberParam, but the speed (x) and
// the depth (y) parts are remembered separately.
func (ch *channel) rememberNibbles(slot xmdb.MemorySlot, arg uint8) uint8 {
	prev := ch.memory[slot]
	x := arg & 0xf0
	if x == 0 {
		x = prev & 0xf0
	}
	y := arg & 0x0f
	if y == 0 {
		y = prev & 0x0f
	}
	ch.memory[slot] = x | y
	return x | y
}
