package xmdb

// Effect is a decoded pattern effect.
//
// Effects from both the effect column and the volume column
// are decoded into this form.
type Effect struct {
	Op  EffectOp
	Arg uint8
}

type EffectOp int

const (
	EffectNone EffectOp = iota

	// Encoding: effect=0x00
	// Arg: semitone offsets
	EffectArpeggio

	// Encoding: effect=0x01
	// Arg: slide speed
	EffectPortamentoUp

	// Encoding: effect=0x02
	// Arg: slide speed
	EffectPortamentoDown

	// Encoding: effect=0x03 [or] volume byte 0xF0
	// Arg: slide speed
	EffectNotePortamento

	// Encoding: effect=0x04
	// Arg: speed and depth
	EffectVibrato

	// Encoding: effect=0x05
	// Arg: volume slide up/down speed
	EffectNotePortamentoVolumeSlide

	// Encoding: effect=0x06
	// Arg: volume slide up/down speed
	EffectVibratoVolumeSlide

	// Encoding: effect=0x07
	// Arg: speed and depth
	EffectTremolo

	// Encoding: effect=0x08 [or] effect=0x0E8 [or] volume byte 0xC0
	// Arg: panning (0-255)
	EffectSetPanning

	// Encoding: effect=0x09
	// Arg: sample offset (x256)
	EffectSampleOffset

	// Encoding: effect=0x0A
	// Arg: slide up/down speed
	EffectVolumeSlide

	// Encoding: effect=0x0B
	// Arg: order position
	EffectPositionJump

	// Encoding: effect=0x0C [or] volume byte
	// Arg: volume level
	EffectSetVolume

	// Encoding: effect=0x0D
	// Arg: row in a decimal form (0x10 is row 10)
	EffectPatternBreak

	// Encoding: effect=0x0E1
	// Arg: slide speed
	EffectFinePortamentoUp

	// Encoding: effect=0x0E2
	// Arg: slide speed
	EffectFinePortamentoDown

	// Encoding: effect=0x0E3
	// Arg: 0 or 1
	EffectGlissandoControl

	// Encoding: effect=0x0E4
	// Arg: waveform type
	EffectVibratoWaveform

	// Encoding: effect=0x0E5
	// Arg: finetune nibble
	EffectSetFinetune

	// Encoding: effect=0x0E6
	// Arg: 0 to set the loop start, otherwise the loop count
	EffectPatternLoop

	// Encoding: effect=0x0E7
	// Arg: waveform type
	EffectTremoloWaveform

	// Encoding: effect=0x0E9
	// Arg: retrigger interval in ticks
	EffectRetrigger

	// Encoding: effect=0x0EA [or] volume byte 0x90
	// Arg: volume delta
	EffectFineVolumeSlideUp

	// Encoding: effect=0x0EB [or] volume byte 0x80
	// Arg: volume delta
	EffectFineVolumeSlideDown

	// Encoding: effect=0x0EC
	// Arg: tick number
	EffectNoteCut

	// Encoding: effect=0x0ED
	// Arg: tick number
	EffectNoteDelay

	// Encoding: effect=0x0EE
	// Arg: number of rows to delay
	EffectPatternDelay

	// Encoding: effect=0x0F (arg in 1-31)
	// Arg: ticks per row
	EffectSetTempo

	// Encoding: effect=0x0F (arg in 32-255)
	// Arg: bpm
	EffectSetBPM

	// Encoding: effect=0x10 (G)
	// Arg: global volume level
	EffectSetGlobalVolume

	// Encoding: effect=0x11 (H)
	// Arg: slide up/down speed
	EffectGlobalVolumeSlide

	// Encoding: effect=0x14 (K) [or] key-off note
	// Arg: tick number (always a first tick for key-off note)
	EffectKeyOff

	// Encoding: effect=0x15 (L)
	// Arg: envelope position
	EffectSetEnvelopePos

	// Encoding: effect=0x19 (P)
	// Arg: slide right/left speed
	EffectPanningSlide

	// Encoding: effect=0x1B (R)
	// Arg: volume change and interval
	EffectMultiRetrigger

	// Encoding: effect=0x1D (T)
	// Arg: on and off ticks
	EffectTremor

	// Encoding: effect=0x21 (X1)
	// Arg: slide speed
	EffectExtraFinePortamentoUp

	// Encoding: effect=0x21 (X2)
	// Arg: slide speed
	EffectExtraFinePortamentoDown

	// Encoding: volume byte 0x60
	// Arg: slide speed
	EffectVolumeSlideDown

	// Encoding: volume byte 0x70
	// Arg: slide speed
	EffectVolumeSlideUp

	// Encoding: volume byte 0xA0
	// Arg: vibrato speed
	EffectSetVibratoSpeed

	// Encoding: volume byte 0xB0
	// Arg: vibrato depth
	EffectVolumeVibrato

	// Encoding: volume byte 0xD0
	// Arg: slide speed
	EffectPanningSlideLeft

	// Encoding: volume byte 0xE0
	// Arg: slide speed
	EffectPanningSlideRight
)

// MemorySlot identifies an effect family that remembers its last non-zero parameter.
type MemorySlot int

const (
	SlotPortamentoUp MemorySlot = iota
	SlotPortamentoDown
	SlotNotePortamento
	SlotVibrato
	SlotTremolo
	SlotSampleOffset
	SlotVolumeSlide
	SlotFinePortamentoUp
	SlotFinePortamentoDown
	SlotFineVolumeSlide
	SlotGlobalVolumeSlide
	SlotPanningSlide
	SlotMultiRetrigger
	SlotTremor
	SlotExtraFinePortamentoUp
	SlotExtraFinePortamentoDown

	NumMemorySlots

	SlotNone MemorySlot = -1
)

// MemorySlot returns the effect family the op belongs to.
// Ops that have no parameter memory return SlotNone.
func (op EffectOp) MemorySlot() MemorySlot {
	switch op {
	case EffectPortamentoUp:
		return SlotPortamentoUp
	case EffectPortamentoDown:
		return SlotPortamentoDown
	case EffectNotePortamento:
		return SlotNotePortamento
	case EffectVibrato:
		return SlotVibrato
	case EffectTremolo:
		return SlotTremolo
	case EffectSampleOffset:
		return SlotSampleOffset
	case EffectVolumeSlide, EffectNotePortamentoVolumeSlide, EffectVibratoVolumeSlide:
		return SlotVolumeSlide
	case EffectFinePortamentoUp:
		return SlotFinePortamentoUp
	case EffectFinePortamentoDown:
		return SlotFinePortamentoDown
	case EffectFineVolumeSlideUp, EffectFineVolumeSlideDown:
		return SlotFineVolumeSlide
	case EffectGlobalVolumeSlide:
		return SlotGlobalVolumeSlide
	case EffectPanningSlide:
		return SlotPanningSlide
	case EffectMultiRetrigger:
		return SlotMultiRetrigger
	case EffectTremor:
		return SlotTremor
	case EffectExtraFinePortamentoUp:
		return SlotExtraFinePortamentoUp
	case EffectExtraFinePortamentoDown:
		return SlotExtraFinePortamentoDown
	default:
		return SlotNone
	}
}

// ConvertEffect decodes the effect column.
func ConvertEffect(effectType, param uint8) Effect {
	e := Effect{Arg: param}
	x := param >> 4
	y := param & 0x0f

	switch effectType {
	case 0x00:
		if param != 0 {
			e.Op = EffectArpeggio
		}
	case 0x01:
		e.Op = EffectPortamentoUp
	case 0x02:
		e.Op = EffectPortamentoDown
	case 0x03:
		e.Op = EffectNotePortamento
	case 0x04:
		e.Op = EffectVibrato
	case 0x05:
		e.Op = EffectNotePortamentoVolumeSlide
	case 0x06:
		e.Op = EffectVibratoVolumeSlide
	case 0x07:
		e.Op = EffectTremolo
	case 0x08:
		e.Op = EffectSetPanning
	case 0x09:
		e.Op = EffectSampleOffset
	case 0x0A:
		e.Op = EffectVolumeSlide
	case 0x0B:
		e.Op = EffectPositionJump
	case 0x0C:
		e.Op = EffectSetVolume
	case 0x0D:
		e.Op = EffectPatternBreak
		e.Arg = x*10 + y
	case 0x0E:
		e.Arg = y
		e.Op = extendedEffects[x]
		if e.Op == EffectSetPanning {
			e.Arg = y * 17
		}
	case 0x0F:
		switch {
		case param == 0:
			// F00 is ignored.
		case param < 32:
			e.Op = EffectSetTempo
		default:
			e.Op = EffectSetBPM
		}
	case 0x10:
		e.Op = EffectSetGlobalVolume
	case 0x11:
		e.Op = EffectGlobalVolumeSlide
	case 0x14:
		e.Op = EffectKeyOff
	case 0x15:
		e.Op = EffectSetEnvelopePos
	case 0x19:
		e.Op = EffectPanningSlide
	case 0x1B:
		e.Op = EffectMultiRetrigger
	case 0x1D:
		e.Op = EffectTremor
	case 0x21:
		e.Arg = y
		switch x {
		case 1:
			e.Op = EffectExtraFinePortamentoUp
		case 2:
			e.Op = EffectExtraFinePortamentoDown
		}
	}

	return e
}

var extendedEffects = [16]EffectOp{
	0x1: EffectFinePortamentoUp,
	0x2: EffectFinePortamentoDown,
	0x3: EffectGlissandoControl,
	0x4: EffectVibratoWaveform,
	0x5: EffectSetFinetune,
	0x6: EffectPatternLoop,
	0x7: EffectTremoloWaveform,
	0x8: EffectSetPanning,
	0x9: EffectRetrigger,
	0xA: EffectFineVolumeSlideUp,
	0xB: EffectFineVolumeSlideDown,
	0xC: EffectNoteCut,
	0xD: EffectNoteDelay,
	0xE: EffectPatternDelay,
}

// EffectFromVolumeByte decodes the volume column.
func EffectFromVolumeByte(v uint8) Effect {
	var e Effect

	arg := v & 0x0f
	switch {
	case v < 0x10:
		// Do nothing.

	case v <= 0x50:
		// Set volume effect.
		e.Op = EffectSetVolume
		e.Arg = v - 0x10

	case v < 0x60:
		// Unused.

	default:
		e.Arg = arg
		switch v >> 4 {
		case 0x6:
			e.Op = EffectVolumeSlideDown
		case 0x7:
			e.Op = EffectVolumeSlideUp
		case 0x8:
			e.Op = EffectFineVolumeSlideDown
		case 0x9:
			e.Op = EffectFineVolumeSlideUp
		case 0xA:
			e.Op = EffectSetVibratoSpeed
		case 0xB:
			e.Op = EffectVolumeVibrato
		case 0xC:
			e.Op = EffectSetPanning
			e.Arg = arg << 4
		case 0xD:
			e.Op = EffectPanningSlideLeft
		case 0xE:
			e.Op = EffectPanningSlideRight
		case 0xF:
			e.Op = EffectNotePortamento
			e.Arg = arg << 4
		}
	}

	return e
}

// ConvertMODEffect maps a ProTracker effect into its XM equivalent.
//
// The MOD effects don't have the parameter memory for the slides,
// so a zero parameter there means "do nothing".
func ConvertMODEffect(effectType, param uint8, numChannels int) (uint8, uint8) {
	x := param >> 4
	y := param & 0x0f

	switch effectType {
	case 0x1, 0x2, 0xA:
		if param == 0 {
			return 0, 0
		}
	case 0x5:
		if param == 0 {
			return 0x3, 0
		}
	case 0x6:
		if param == 0 {
			return 0x4, 0
		}
	case 0x8:
		if numChannels == 4 {
			// Amiga 4-channel players ignore this one.
			return 0, 0
		}
	case 0xE:
		switch x {
		case 0x1, 0x2, 0xA, 0xB:
			if y == 0 {
				return 0, 0
			}
		case 0x8:
			return 0x8, y * 17
		case 0xF:
			// Invert loop (funk repeat) is not supported.
			return 0, 0
		}
	}

	return effectType, param
}
