package xm7

import (
	"github.com/quasilyte/xm7/internal/xmdb"
	"github.com/quasilyte/xm7/pitch"
)

func (p *Player) processRow() {
	notes := p.pattern.row(p.row)
	for i := range p.channels {
		p.processChannelRow(&p.channels[i], &notes[i])
	}
}

func (p *Player) processChannelRow(ch *channel, n *patternNote) {
	ch.note = *n
	ch.noteCutTick = -1
	ch.noteDelayTick = -1
	ch.keyOffTick = -1
	ch.finetuneOverride = false

	ch.effectArg = ch.effectParam(n.effect)
	ch.volumeEffectArg = ch.volumeEffectParam(n.volumeEffect)

	ch.vibratoRunning = false
	ch.tremoloRunning = false
	// The modulation is applied on the ticks 1..tempo-1 only.
	ch.vibrato.offset = 0
	ch.tremolo.offset = 0
	ch.tremorRunning = false
	ch.arpeggioSemitones = 0

	if n.effect.Op == xmdb.EffectSetFinetune {
		ch.finetuneOverride = true
		ch.finetuneOverrideTo = (int(n.effect.Arg) - 8) * 16
	}

	if n.effect.Op == xmdb.EffectNoteDelay && n.effect.Arg != 0 {
		// The note, instrument and volume columns are
		// processed on the given tick.
		ch.noteDelayTick = int(n.effect.Arg)
	} else {
		p.processNoteColumn(ch)
		p.applyVolumeRowEffect(ch)
	}

	p.applyRowEffect(ch)
}

// effectParam returns the effect parameter with the memory applied.
func (ch *channel) effectParam(e xmdb.Effect) uint8 {
	slot := e.Op.MemorySlot()
	switch e.Op {
	case xmdb.EffectVibrato, xmdb.EffectTremolo:
		return ch.rememberNibbles(slot, e.Arg)
	default:
		// 5xx and 6xx arguments are volume slides,
		// the portamento and vibrato parts come from their own slots.
		return ch.rememberParam(slot, e.Arg)
	}
}

// volumeEffectParam is like effectParam, but for the volume column.
// The volume column slides have no parameter memory.
func (ch *channel) volumeEffectParam(e xmdb.Effect) uint8 {
	switch e.Op {
	case xmdb.EffectSetVibratoSpeed:
		return ch.rememberNibbles(xmdb.SlotVibrato, e.Arg<<4) >> 4
	case xmdb.EffectVolumeVibrato:
		return ch.rememberNibbles(xmdb.SlotVibrato, e.Arg) & 0x0f
	case xmdb.EffectNotePortamento:
		return ch.rememberParam(xmdb.SlotNotePortamento, e.Arg)
	default:
		return e.Arg
	}
}

func (p *Player) processNoteColumn(ch *channel) {
	n := &ch.note

	instChanged := false
	if n.inst != 0 {
		instChanged = int(n.inst) != ch.instIndex
		ch.instIndex = int(n.inst)
		ch.inst = nil
		if ch.instIndex <= len(p.module.instruments) {
			ch.inst = &p.module.instruments[ch.instIndex-1]
		}
	}

	switch {
	case n.isKeyOff():
		p.keyOff(ch)
		return

	case n.hasNote():
		if n.isTonePortamento() && ch.active && ch.sample != nil {
			p.setPortamentoTarget(ch, int(n.note))
			if n.inst != 0 {
				p.resetInstrumentDefaults(ch)
			}
			return
		}
		p.triggerNote(ch, int(n.note), n.inst != 0)
		return
	}

	if n.inst == 0 {
		return
	}

	// An instrument without a note.
	if instChanged && p.replayStyle.onTheFlySampleChange() && ch.baseNote != 0 && ch.active {
		p.triggerNote(ch, ch.baseNote, true)
		return
	}
	p.resetInstrumentDefaults(ch)
	if !p.replayStyle.modPlayer() {
		p.resetEnvelopes(ch)
	}
}

func (p *Player) triggerNote(ch *channel, note int, resetDefaults bool) {
	sample := p.module.raw.SampleFor(ch.instIndex, note)
	if sample == nil {
		p.stopChannel(ch)
		return
	}

	ch.sample = sample
	ch.baseNote = note
	ch.relativeNote = int(sample.RelativeNote)
	ch.finetune = int(sample.Finetune)
	if ch.finetuneOverride {
		ch.finetune = ch.finetuneOverrideTo
	}
	ch.period = pitch.Period(p.module.table, note, ch.relativeNote, ch.finetune)
	ch.targetPeriod = ch.period

	if resetDefaults {
		p.resetInstrumentDefaults(ch)
	}

	offset := 0
	if ch.note.effect.Op == xmdb.EffectSampleOffset {
		offset = int(ch.effectArg) * 256
	}
	if offset >= sample.NumFrames() {
		p.stopChannel(ch)
		return
	}

	ch.active = true
	ch.retrigCounter = 0
	p.sink.StartSample(ch.id, sample, offset)
	p.resetEnvelopes(ch)
	ch.vibrato.noteTrigger()
	ch.tremolo.noteTrigger()
	ch.tremor.pos = 0

	p.emitNoteEvent(ch, note)
}

func (p *Player) setPortamentoTarget(ch *channel, note int) {
	ch.baseNote = note
	ch.targetPeriod = pitch.Period(p.module.table, note, ch.relativeNote, ch.finetune)
}

// resetInstrumentDefaults restores the volume and panning
// from the sample the current instrument would play.
func (p *Player) resetInstrumentDefaults(ch *channel) {
	sample := ch.sample
	if s := p.module.raw.SampleFor(ch.instIndex, ch.baseNote); s != nil {
		sample = s
	}
	if sample == nil {
		return
	}
	ch.volume = clamp(int(sample.Volume), 0, 64)
	ch.panning = int(sample.Panning)
}

func (p *Player) resetEnvelopes(ch *channel) {
	ch.keyOn = true
	ch.fadeoutVolume = fadeoutMax
	ch.autoVibrato.reset()
	if ch.inst == nil {
		ch.volumeEnvelope.reset(nil)
		ch.panningEnvelope.reset(nil)
		return
	}
	ch.volumeEnvelope.reset(&ch.inst.volumeEnvelope)
	ch.panningEnvelope.reset(&ch.inst.panningEnvelope)
}

// retrigSample restarts the current sample from the beginning.
func (p *Player) retrigSample(ch *channel) {
	if ch.sample == nil {
		return
	}
	ch.active = true
	p.sink.StartSample(ch.id, ch.sample, 0)
	p.resetEnvelopes(ch)
}

func (p *Player) keyOff(ch *channel) {
	ch.keyOn = false
	if !ch.volumeEnvelope.isOn() {
		ch.volume = 0
	}
}

func (p *Player) stopChannel(ch *channel) {
	ch.active = false
	p.sink.StopChannel(ch.id)
}

func (p *Player) applyVolumeRowEffect(ch *channel) {
	e := ch.note.volumeEffect
	arg := ch.volumeEffectArg

	switch e.Op {
	case xmdb.EffectSetVolume:
		ch.volume = clampMax(int(arg), 64)

	case xmdb.EffectFineVolumeSlideDown:
		ch.volume = clampMin(ch.volume-int(arg), 0)
	case xmdb.EffectFineVolumeSlideUp:
		ch.volume = clampMax(ch.volume+int(arg), 64)

	case xmdb.EffectSetVibratoSpeed:
		ch.vibrato.speed = arg

	case xmdb.EffectVolumeVibrato:
		ch.vibrato.depth = arg
		ch.vibratoRunning = true

	case xmdb.EffectSetPanning:
		ch.panning = int(arg)

	case xmdb.EffectNotePortamento:
		ch.portamentoSpeed = int(arg)
	}
}

func (p *Player) applyRowEffect(ch *channel) {
	e := ch.note.effect
	arg := ch.effectArg

	switch e.Op {
	case xmdb.EffectNotePortamento:
		ch.portamentoSpeed = int(arg)

	case xmdb.EffectNotePortamentoVolumeSlide:
		ch.portamentoSpeed = int(ch.memory[xmdb.SlotNotePortamento])

	case xmdb.EffectVibrato:
		ch.vibrato.speed = arg >> 4
		ch.vibrato.depth = arg & 0x0f
		ch.vibratoRunning = true

	case xmdb.EffectVibratoVolumeSlide:
		params := ch.memory[xmdb.SlotVibrato]
		ch.vibrato.speed = params >> 4
		ch.vibrato.depth = params & 0x0f
		ch.vibratoRunning = true

	case xmdb.EffectTremolo:
		ch.tremolo.speed = arg >> 4
		ch.tremolo.depth = arg & 0x0f
		ch.tremoloRunning = true

	case xmdb.EffectTremor:
		ch.tremorRunning = true

	case xmdb.EffectSetPanning:
		ch.panning = int(arg)

	case xmdb.EffectPositionJump:
		p.jump.order = int(arg)
		p.jump.orderSet = true

	case xmdb.EffectPatternBreak:
		p.jump.row = int(arg)
		p.jump.rowSet = true

	case xmdb.EffectSetVolume:
		ch.volume = clampMax(int(arg), 64)

	case xmdb.EffectFinePortamentoUp:
		ch.period = clampMin(ch.period-int(arg)*4, pitch.MinPeriod)
	case xmdb.EffectFinePortamentoDown:
		ch.period = clampMax(ch.period+int(arg)*4, pitch.MaxPeriod)
	case xmdb.EffectExtraFinePortamentoUp:
		ch.period = clampMin(ch.period-int(arg), pitch.MinPeriod)
	case xmdb.EffectExtraFinePortamentoDown:
		ch.period = clampMax(ch.period+int(arg), pitch.MaxPeriod)

	case xmdb.EffectFineVolumeSlideUp:
		ch.volume = clampMax(ch.volume+int(arg), 64)
	case xmdb.EffectFineVolumeSlideDown:
		ch.volume = clampMin(ch.volume-int(arg), 0)

	case xmdb.EffectGlissandoControl:
		ch.glissando = arg != 0

	case xmdb.EffectVibratoWaveform:
		ch.vibrato.setWaveform(arg)
	case xmdb.EffectTremoloWaveform:
		ch.tremolo.setWaveform(arg)

	case xmdb.EffectPatternLoop:
		if arg == 0 {
			ch.loopRow = p.row
			break
		}
		if ch.loopCount == 0 {
			ch.loopCount = int(arg)
		} else {
			ch.loopCount--
		}
		if ch.loopCount != 0 {
			p.jump.loopRow = ch.loopRow
			p.jump.loopSet = true
		}

	case xmdb.EffectNoteCut:
		if arg == 0 {
			ch.volume = 0
		} else {
			ch.noteCutTick = int(arg)
		}

	case xmdb.EffectKeyOff:
		if arg == 0 {
			p.keyOff(ch)
		} else {
			ch.keyOffTick = int(arg)
		}

	case xmdb.EffectPatternDelay:
		p.patternDelay = int(arg)

	case xmdb.EffectSetTempo:
		p.tempo = int(arg)
	case xmdb.EffectSetBPM:
		p.bpm = int(arg)

	case xmdb.EffectSetGlobalVolume:
		p.globalVolume = clampMax(int(arg), 64)

	case xmdb.EffectSetEnvelopePos:
		ch.volumeEnvelope.setPosition(int(arg))
		ch.panningEnvelope.setPosition(int(arg))
	}
}
