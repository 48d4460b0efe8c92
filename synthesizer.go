package xm7

import (
	"errors"
	"slices"

	"github.com/quasilyte/xm7/xmfile"
)

// Synthesizer can be used to play individual notes
// using the module instruments.
//
// It drives a Player over a tiny generated module:
// the first pattern holds the notes to play, the second one
// is an empty row that loops forever, so the envelopes
// keep running after the notes are triggered.
//
// Experimental: synthesizer API may change in the near future.
type Synthesizer struct {
	player *Player

	module xmfile.Module

	numChannels int

	keyOffCountdown int
}

type SynthesizerConfig struct {
	NumChannels int

	// Sink receives the channel parameters, see PlayerConfig.
	Sink OutputSink
}

func NewSynthesizer(config SynthesizerConfig) *Synthesizer {
	if config.NumChannels == 0 {
		config.NumChannels = 1
	}
	return &Synthesizer{
		player:      NewPlayer(PlayerConfig{Sink: config.Sink}),
		numChannels: config.NumChannels,
	}
}

// Player returns the underlying player.
// It can be used to inspect the channels state.
func (s *Synthesizer) Player() *Player {
	return s.player
}

// LoadInstruments prepares the instruments from the module
// for further use.
//
// Loading instruments involves module compilation,
// so it should not be called on a hot path repeatedly.
//
// The patterns don't really matter as this method
// is only interested in instruments (and samples).
// The sample data is shared with m, but unloading the synthesizer
// player doesn't affect m.
func (s *Synthesizer) LoadInstruments(m *xmfile.Module) error {
	if len(m.Instruments) == 0 {
		return errors.New("the module has no instruments")
	}

	s.module = xmfile.Module{
		Name:            m.Name,
		Format:          m.Format,
		Version:         m.Version,
		NumChannels:     s.numChannels,
		NumInstruments:  m.NumInstruments,
		NumPatterns:     2,
		SongLength:      2,
		RestartPosition: 1,
		Flags:           m.Flags,
		DefaultTempo:    1,
		DefaultBPM:      m.DefaultBPM,
		Instruments:     cloneInstruments(m.Instruments),
		PatternOrder:    []uint8{0, 1},
		Patterns: []xmfile.Pattern{
			{Rows: []xmfile.PatternRow{{Notes: make([]xmfile.PatternNote, s.numChannels)}}},
			{Rows: []xmfile.PatternRow{{Notes: make([]xmfile.PatternNote, s.numChannels)}}},
		},
	}

	return s.player.Load(&s.module)
}

// PlayNote plays one or more notes, one per channel.
// The extra notes are ignored.
//
// The notes are released (key-off) after durationTicks.
// Using 0 for the duration holds them until Release is called.
func (s *Synthesizer) PlayNote(durationTicks int, notes ...xmfile.PatternNote) error {
	p := s.player
	p.lock()
	defer p.unlock()

	if p.module.raw != &s.module {
		return errors.New("no instruments loaded")
	}

	row := p.module.patterns[0].row(0)
	for i := range row {
		var n xmfile.PatternNote
		if i < len(notes) {
			n = notes[i]
		}
		s.module.Patterns[0].Rows[0].Notes[i] = n
		row[i] = compileNote(n)
	}

	s.keyOffCountdown = durationTicks
	p.playFrom(0)
	return nil
}

// Release sends a key-off to all channels.
func (s *Synthesizer) Release() {
	p := s.player
	p.lock()
	defer p.unlock()
	s.release()
}

func (s *Synthesizer) release() {
	s.keyOffCountdown = 0
	for i := range s.player.channels {
		s.player.keyOff(&s.player.channels[i])
	}
}

// Tick advances the underlying player by one tick.
func (s *Synthesizer) Tick() {
	s.player.Tick()

	if s.keyOffCountdown > 0 {
		s.keyOffCountdown--
		if s.keyOffCountdown == 0 {
			s.Release()
		}
	}
}

// Stop silences all channels.
func (s *Synthesizer) Stop() {
	s.player.Stop()
}

// cloneInstruments copies everything that Module.Unload resets.
func cloneInstruments(instruments []xmfile.Instrument) []xmfile.Instrument {
	result := make([]xmfile.Instrument, len(instruments))
	for i := range instruments {
		result[i] = instruments[i]
		result[i].Samples = slices.Clone(instruments[i].Samples)
	}
	return result
}
