package xm7

type waveShape uint8

const (
	waveSine waveShape = iota
	waveRampDown
	waveSquare
	waveRandom
	waveRampUp
)

// Vibrato and tremolo waveforms are selected by E4x/E7x (x&3).
var effectWaveShapes = [4]waveShape{waveSine, waveRampDown, waveSquare, waveRandom}

// Instrument auto-vibrato uses the FT2 waveform numbering.
var autoVibratoShapes = [4]waveShape{waveSine, waveSquare, waveRampUp, waveRampDown}

// A half of the sine period, 32 steps.
var sineTable = [32]int{
	0, 24, 49, 74, 97, 120, 141, 161,
	180, 197, 212, 224, 235, 244, 250, 253,
	255, 253, 250, 244, 235, 224, 212, 197,
	180, 161, 141, 120, 97, 74, 49, 24,
}

// waveform returns the waveform value in [-255, 255] range for
// the phase in [0, 63] range.
func waveform(shape waveShape, phase uint8, rng *uint32) int {
	phase &= 63
	switch shape {
	case waveRampDown:
		return 255 - int(phase)*8
	case waveRampUp:
		return int(phase)*8 - 255
	case waveSquare:
		if phase < 32 {
			return 255
		}
		return -255
	case waveRandom:
		*rng = *rng*1103515245 + 12345
		return int((*rng>>16)%511) - 255
	default:
		v := sineTable[phase&31]
		if phase >= 32 {
			return -v
		}
		return v
	}
}

// oscillator is a vibrato or tremolo state.
type oscillator struct {
	phase  uint8
	speed  uint8
	depth  uint8
	shape  waveShape
	retrig bool

	// offset is the most recently computed modulation value.
	offset int

	rng uint32
}

func (o *oscillator) setWaveform(arg uint8) {
	o.shape = effectWaveShapes[arg&0b11]
	o.retrig = arg&0b100 == 0
}

func (o *oscillator) noteTrigger() {
	o.offset = 0
	if o.retrig {
		o.phase = 0
	}
}

// step computes the current offset and advances the phase.
// The offset is the waveform value multiplied by depth and
// scaled down by 2^shift.
func (o *oscillator) step(shift uint) int {
	o.offset = (waveform(o.shape, o.phase, &o.rng) * int(o.depth)) >> shift
	o.phase = (o.phase + o.speed) & 63
	return o.offset
}

// tremor gates the channel volume: x+1 ticks on, y+1 ticks off.
type tremor struct {
	pos int
	on  bool
}

func (t *tremor) step(param uint8) {
	onTicks := int(param>>4) + 1
	offTicks := int(param&0x0f) + 1
	t.on = t.pos%(onTicks+offTicks) < onTicks
	t.pos++
}

// autoVibrato is an instrument-driven vibrato that
// doesn't need any pattern effects to run.
type autoVibrato struct {
	phase    int
	sweepPos int
	offset   int

	rng uint32
}

func (v *autoVibrato) reset() {
	v.phase = 0
	v.sweepPos = 0
	v.offset = 0
}

func (v *autoVibrato) step(inst *instrument) {
	if inst == nil || inst.vibratoDepth == 0 {
		v.offset = 0
		return
	}
	depth := inst.vibratoDepth << 8
	if v.sweepPos < inst.vibratoSweep {
		depth = depth * v.sweepPos / inst.vibratoSweep
		v.sweepPos++
	}
	// The phase runs in [0, 255], the waveform table is 4 times shorter.
	wave := waveform(inst.vibratoShape, uint8(v.phase>>2), &v.rng)
	v.offset = (wave * depth) >> 14
	v.phase = (v.phase + inst.vibratoRate) & 255
}
