// Package pitch converts tracker notes into periods and frequencies.
//
// All periods are expressed in FT2 units: the Amiga periods are
// multiplied by 4 and the linear periods use 64 units per semitone.
package pitch

import (
	"math"
)

// Table selects the frequency table mode of a module.
type Table int

const (
	Amiga Table = iota
	Linear
)

func (t Table) String() string {
	if t == Linear {
		return "linear"
	}
	return "amiga"
}

const (
	// BaseFrequency is a C-4 playback rate of a sample with no finetune.
	BaseFrequency = 8363

	// MinPeriod and MaxPeriod are the slide limits.
	MinPeriod = 50
	MaxPeriod = 32000

	// NumNotes is a number of pitched notes (C-0 up to B-7).
	NumNotes = 96

	linearMiddleC = 4608
	amigaMiddleC  = 1712
)

// Amiga periods for one octave at finetune 0, starting from C-0.
// The 13th value is the next C, it's used for interpolation.
var semitonePeriodTable = [13]int{
	27392, 25856, 24384, 23040, 21696, 20480, 19328,
	18240, 17216, 16256, 15360, 14496, 13696,
}

// Period returns a period for the given note.
//
// The note is 1-based (1 is C-0).
// The finetune is in 1/128 semitone units (-128..127).
func Period(t Table, note, relativeNote, finetune int) int {
	realNote := note - 1 + relativeNote
	if t == Linear {
		return 7680 - realNote*64 - finetune/2
	}

	pos := realNote*128 + finetune
	if pos < 0 {
		pos = 0
	}
	if pos >= NumNotes*128 {
		pos = NumNotes*128 - 1
	}
	index := pos / 128
	frac := pos % 128
	octave := index / 12
	semitone := index % 12
	a := semitonePeriodTable[semitone]
	b := semitonePeriodTable[semitone+1]
	p := a + ((b-a)*frac)/128
	return p >> octave
}

// Frequency converts a period into a playback frequency (Hz).
func Frequency(t Table, period int) float64 {
	if t == Linear {
		return BaseFrequency * math.Pow(2, float64(linearMiddleC-period)/768)
	}
	if period < 1 {
		period = 1
	}
	return BaseFrequency * amigaMiddleC / float64(period)
}

// Resolve is a shorthand for Frequency(Period(...)).
func Resolve(t Table, note, relativeNote, finetune int) float64 {
	return Frequency(t, Period(t, note, relativeNote, finetune))
}

// ShiftSemitones returns a period that is n semitones higher than p.
func ShiftSemitones(t Table, period, n int) int {
	if n == 0 {
		return period
	}
	if t == Linear {
		return period - n*64
	}
	return int(math.Round(float64(period) / math.Pow(2, float64(n)/12)))
}

// Quantize snaps the period to the closest semitone for the given finetune.
func Quantize(t Table, period, finetune int) int {
	best := period
	bestDist := math.MaxInt
	for note := 1; note <= NumNotes; note++ {
		p := Period(t, note, 0, finetune)
		d := p - period
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best = p
			bestDist = d
		}
	}
	return best
}

// NoteFromAmigaPeriod finds the note that matches the ProTracker period.
//
// 0 means "no note".
// The period is compared against the finetune 0 table, the closest note wins.
func NoteFromAmigaPeriod(modPeriod int) int {
	if modPeriod <= 0 {
		return 0
	}
	target := modPeriod * 4
	bestNote := 0
	bestDist := math.MaxInt
	for note := 1; note <= NumNotes; note++ {
		d := Period(Amiga, note, 0, 0) - target
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			bestNote = note
			bestDist = d
		}
	}
	return bestNote
}
