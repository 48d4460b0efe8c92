package xm7

import (
	"github.com/quasilyte/xm7/internal/xmdb"
	"github.com/quasilyte/xm7/pitch"
	"github.com/quasilyte/xm7/xmfile"
)

// module is a playback-ready form of xmfile.Module.
// Effects are decoded ahead of time and the order table
// holds pattern pointers instead of indices.
type module struct {
	raw *xmfile.Module

	format      xmfile.Format
	table       pitch.Table
	numChannels int

	instruments []instrument

	patterns     []pattern
	patternOrder []*pattern

	// emptyPattern is used for the order entries that refer
	// to a non-existing pattern.
	emptyPattern pattern

	restartPosition int
	tempo           int
	bpm             int
}

type pattern struct {
	numChannels int
	numRows     int
	notes       []patternNote
}

func (p *pattern) row(i int) []patternNote {
	offset := i * p.numChannels
	return p.notes[offset : offset+p.numChannels]
}

type patternNote struct {
	note uint8
	inst uint8

	volumeEffect xmdb.Effect
	effect       xmdb.Effect
}

func (n *patternNote) hasNote() bool {
	return n.note >= 1 && n.note <= pitch.NumNotes
}

func (n *patternNote) isKeyOff() bool {
	return n.note == xmfile.NoteKeyOff
}

func (n *patternNote) isTonePortamento() bool {
	switch n.effect.Op {
	case xmdb.EffectNotePortamento, xmdb.EffectNotePortamentoVolumeSlide:
		return true
	}
	return n.volumeEffect.Op == xmdb.EffectNotePortamento
}

type instrument struct {
	raw *xmfile.Instrument

	volumeEnvelope  envelope
	panningEnvelope envelope

	volumeFadeout int

	vibratoShape waveShape
	vibratoSweep int
	vibratoDepth int
	vibratoRate  int
}

type envelope struct {
	flags xmfile.EnvelopeFlags

	// These are tick positions, not point indices.
	sustainFrame   int
	loopStartFrame int
	loopEndFrame   int

	points []envelopePoint
}

type envelopePoint struct {
	frame int
	value int
}

func (e *envelope) lastFrame() int {
	if len(e.points) == 0 {
		return 0
	}
	return e.points[len(e.points)-1].frame
}
