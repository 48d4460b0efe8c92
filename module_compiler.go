package xm7

import (
	"errors"

	"github.com/quasilyte/xm7/internal/xmdb"
	"github.com/quasilyte/xm7/xmfile"
)

type moduleCompiler struct {
	result module
}

func compileModule(m *xmfile.Module) (module, error) {
	c := &moduleCompiler{}
	err := c.compile(m)
	return c.result, err
}

func (c *moduleCompiler) compile(m *xmfile.Module) error {
	if m.NumChannels <= 0 || len(m.PatternOrder) == 0 {
		return errors.New("the module is empty")
	}

	c.result = module{
		raw:             m,
		format:          m.Format,
		table:           m.FrequencyTable(),
		numChannels:     m.NumChannels,
		restartPosition: m.RestartPosition,
		tempo:           m.DefaultTempo,
		bpm:             m.DefaultBPM,
	}
	if c.result.tempo == 0 {
		c.result.tempo = 6
	}
	if c.result.bpm == 0 {
		c.result.bpm = 125
	}
	if c.result.restartPosition >= len(m.PatternOrder) {
		c.result.restartPosition = 0
	}

	c.compileInstruments(m)
	c.compilePatterns(m)

	return nil
}

func (c *moduleCompiler) compileInstruments(m *xmfile.Module) {
	c.result.instruments = make([]instrument, len(m.Instruments))
	for i := range m.Instruments {
		rawInst := &m.Instruments[i]
		c.result.instruments[i] = instrument{
			raw:             rawInst,
			volumeEnvelope:  compileEnvelope(&rawInst.VolumeEnvelope),
			panningEnvelope: compileEnvelope(&rawInst.PanningEnvelope),
			volumeFadeout:   rawInst.VolumeFadeout,
			vibratoShape:    autoVibratoShapes[rawInst.VibratoType&0b11],
			vibratoSweep:    int(rawInst.VibratoSweep),
			vibratoDepth:    int(rawInst.VibratoDepth),
			vibratoRate:     int(rawInst.VibratoRate),
		}
	}
}

func compileEnvelope(e *xmfile.Envelope) envelope {
	result := envelope{flags: e.Flags}
	if len(e.Points) == 0 {
		result.flags = 0
		return result
	}
	result.points = make([]envelopePoint, len(e.Points))
	for i, pt := range e.Points {
		result.points[i] = envelopePoint{
			frame: int(pt.X),
			value: int(pt.Y),
		}
	}
	last := len(result.points) - 1
	result.sustainFrame = result.points[min(int(e.SustainPoint), last)].frame
	result.loopStartFrame = result.points[min(int(e.LoopStartPoint), last)].frame
	result.loopEndFrame = result.points[min(int(e.LoopEndPoint), last)].frame
	return result
}

func (c *moduleCompiler) compilePatterns(m *xmfile.Module) {
	c.result.patterns = make([]pattern, len(m.Patterns))
	c.result.emptyPattern = pattern{
		numChannels: m.NumChannels,
		numRows:     64,
		notes:       make([]patternNote, 64*m.NumChannels),
	}

	for i := range m.Patterns {
		rawPat := &m.Patterns[i]
		pat := &c.result.patterns[i]
		pat.numChannels = m.NumChannels
		pat.numRows = len(rawPat.Rows)
		pat.notes = make([]patternNote, 0, len(rawPat.Rows)*m.NumChannels)
		for _, row := range rawPat.Rows {
			for _, rawNote := range row.Notes {
				pat.notes = append(pat.notes, compileNote(rawNote))
			}
		}
		if pat.numRows == 0 {
			*pat = c.result.emptyPattern
		}
	}

	// Bind pattern order to the actual patterns.
	c.result.patternOrder = make([]*pattern, len(m.PatternOrder))
	for i, patternIndex := range m.PatternOrder {
		if int(patternIndex) < len(c.result.patterns) {
			c.result.patternOrder[i] = &c.result.patterns[patternIndex]
		} else {
			c.result.patternOrder[i] = &c.result.emptyPattern
		}
	}
}

func compileNote(rawNote xmfile.PatternNote) patternNote {
	return patternNote{
		note:         rawNote.Note,
		inst:         rawNote.Instrument,
		volumeEffect: xmdb.EffectFromVolumeByte(rawNote.Volume),
		effect:       xmdb.ConvertEffect(rawNote.EffectType, rawNote.EffectParameter),
	}
}
