package xm7

import (
	"github.com/quasilyte/xm7/internal/xmdb"
	"github.com/quasilyte/xm7/pitch"
)

func (p *Player) processTickEffects() {
	for i := range p.channels {
		ch := &p.channels[i]

		if ch.noteDelayTick == p.tick {
			p.processNoteColumn(ch)
			p.applyVolumeRowEffect(ch)
		}

		if p.tick != 0 {
			p.applyVolumeTickEffect(ch)
		}
		p.applyTickEffect(ch)

		if ch.noteCutTick == p.tick {
			ch.volume = 0
		}
		if ch.keyOffTick == p.tick {
			p.keyOff(ch)
		}
	}
}

func (p *Player) applyVolumeTickEffect(ch *channel) {
	arg := int(ch.volumeEffectArg)

	switch ch.note.volumeEffect.Op {
	case xmdb.EffectVolumeSlideDown:
		ch.volume = clampMin(ch.volume-arg, 0)
	case xmdb.EffectVolumeSlideUp:
		ch.volume = clampMax(ch.volume+arg, 64)

	case xmdb.EffectPanningSlideLeft:
		ch.panning = clampMin(ch.panning-arg, 0)
	case xmdb.EffectPanningSlideRight:
		ch.panning = clampMax(ch.panning+arg, 255)

	case xmdb.EffectNotePortamento:
		p.tonePortamento(ch)

	case xmdb.EffectVolumeVibrato:
		ch.vibrato.step(5)
	}
}

func (p *Player) applyTickEffect(ch *channel) {
	e := ch.note.effect
	arg := ch.effectArg

	switch e.Op {
	case xmdb.EffectArpeggio:
		p.arpeggio(ch, arg)
		return
	case xmdb.EffectTremor:
		ch.tremor.step(arg)
		return
	}

	if p.tick == 0 {
		return
	}

	switch e.Op {
	case xmdb.EffectPortamentoUp:
		ch.period = clampMin(ch.period-int(arg)*4, pitch.MinPeriod)
	case xmdb.EffectPortamentoDown:
		ch.period = clampMax(ch.period+int(arg)*4, pitch.MaxPeriod)

	case xmdb.EffectNotePortamento:
		p.tonePortamento(ch)

	case xmdb.EffectNotePortamentoVolumeSlide:
		p.tonePortamento(ch)
		ch.volume = volumeSlide(ch.volume, arg)

	case xmdb.EffectVibrato:
		ch.vibrato.step(5)

	case xmdb.EffectVibratoVolumeSlide:
		ch.vibrato.step(5)
		ch.volume = volumeSlide(ch.volume, arg)

	case xmdb.EffectTremolo:
		ch.tremolo.step(6)

	case xmdb.EffectVolumeSlide:
		ch.volume = volumeSlide(ch.volume, arg)

	case xmdb.EffectGlobalVolumeSlide:
		p.globalVolume = volumeSlide(p.globalVolume, arg)

	case xmdb.EffectPanningSlide:
		if x := int(arg >> 4); x != 0 {
			ch.panning = clampMax(ch.panning+x, 255)
		} else {
			ch.panning = clampMin(ch.panning-int(arg&0x0f), 0)
		}

	case xmdb.EffectRetrigger:
		if arg != 0 && p.tick%int(arg) == 0 {
			p.retrigSample(ch)
		}

	case xmdb.EffectMultiRetrigger:
		interval := int(arg & 0x0f)
		if interval == 0 {
			break
		}
		ch.retrigCounter++
		if ch.retrigCounter >= interval {
			ch.retrigCounter = 0
			ch.volume = retrigVolume(ch.volume, arg>>4)
			p.retrigSample(ch)
		}
	}
}

// arpeggio cycles the note between the base note and two semitone offsets.
func (p *Player) arpeggio(ch *channel, arg uint8) {
	ch.arpeggioSemitones = 0
	if ch.baseNote == 0 || p.tick == 0 {
		return
	}
	var i int
	if p.replayStyle.modPlayer() {
		i = p.tick % 3
	} else {
		// FT2 counts the ticks backwards.
		i = (p.tempo - p.tick) % 3
	}
	switch i {
	case 1:
		ch.arpeggioSemitones = int(arg >> 4)
	case 2:
		ch.arpeggioSemitones = int(arg & 0x0f)
	}
}

func (p *Player) tonePortamento(ch *channel) {
	if ch.targetPeriod == 0 || ch.period == ch.targetPeriod {
		return
	}
	delta := ch.portamentoSpeed * 4
	if ch.period < ch.targetPeriod {
		ch.period = clampMax(ch.period+delta, ch.targetPeriod)
	} else {
		ch.period = clampMin(ch.period-delta, ch.targetPeriod)
	}
}

func volumeSlide(v int, arg uint8) int {
	if x := int(arg >> 4); x != 0 {
		return clampMax(v+x, 64)
	}
	return clampMin(v-int(arg&0x0f), 0)
}

func retrigVolume(v int, mode uint8) int {
	switch mode {
	case 0x1, 0x2, 0x3, 0x4, 0x5:
		v -= 1 << (mode - 1)
	case 0x6:
		v = v * 2 / 3
	case 0x7:
		v /= 2
	case 0x9, 0xA, 0xB, 0xC, 0xD:
		v += 1 << (mode - 9)
	case 0xE:
		v = v * 3 / 2
	case 0xF:
		v *= 2
	}
	return clamp(v, 0, 64)
}

// updateChannels runs the envelopes and sends the
// resulting channel parameters to the sink.
func (p *Player) updateChannels() {
	for i := range p.channels {
		ch := &p.channels[i]
		if !ch.active {
			continue
		}

		volumeEnv := ch.volumeEnvelope.value(64)
		panningEnv := ch.panningEnvelope.value(32)
		ch.volumeEnvelope.advance(ch.keyOn)
		ch.panningEnvelope.advance(ch.keyOn)
		if !ch.keyOn && ch.volumeEnvelope.isOn() && ch.inst != nil {
			ch.fadeoutVolume = clampMin(ch.fadeoutVolume-ch.inst.volumeFadeout, 0)
		}
		ch.autoVibrato.step(ch.inst)

		p.sink.SetFrequency(ch.id, pitch.Frequency(p.module.table, p.channelPeriod(ch)))
		p.sink.SetVolume(ch.id, uint8(p.channelVolume(ch, volumeEnv)))
		p.sink.SetPanning(ch.id, uint8(p.channelPanning(ch, panningEnv)))
	}
}

func (p *Player) channelPeriod(ch *channel) int {
	period := ch.period
	if ch.glissando && ch.note.isTonePortamento() {
		period = pitch.Quantize(p.module.table, period, ch.finetune)
	}
	if ch.arpeggioSemitones != 0 {
		period = pitch.ShiftSemitones(p.module.table, period, ch.arpeggioSemitones)
	}
	if ch.vibratoRunning {
		period += ch.vibrato.offset
	}
	period += ch.autoVibrato.offset
	return clamp(period, pitch.MinPeriod, pitch.MaxPeriod)
}

func (p *Player) channelVolume(ch *channel, volumeEnv int) int {
	if ch.tremorRunning && !ch.tremor.on {
		return 0
	}
	v := ch.volume
	if ch.tremoloRunning {
		v = clamp(v+ch.tremolo.offset, 0, 64)
	}
	v = v * volumeEnv * p.globalVolume / (64 * 64)
	return v * ch.fadeoutVolume / fadeoutMax
}

func (p *Player) channelPanning(ch *channel, panningEnv int) int {
	if p.panningStyle == PanningAmiga {
		return amigaPanning(ch.id, p.panningDisplacement)
	}
	pan := ch.panning
	pan += (panningEnv - 32) * (128 - abs(pan-128)) / 32
	return clamp(pan, 0, 255)
}
