package xmfile

import (
	"bytes"
	"encoding/binary"
)

// The helpers below encode synthetic module files for the tests.

type xmPatternSpec struct {
	rows int

	// notes are packed automatically unless packed is set.
	notes  [][]PatternNote
	packed []byte

	packingType uint8
}

type xmSampleSpec struct {
	name       string
	loopStart  uint32
	loopLength uint32
	volume     uint8
	finetune   int8
	typeFlags  uint8
	panning    uint8
	relNote    int8
	encoding   uint8

	// values are delta-encoded by the builder.
	values8  []int8
	values16 []int16
}

type xmInstrumentSpec struct {
	name string

	keymap [96]uint8

	volumePoints   []EnvelopePoint
	volumeFlags    uint8
	volumeSustain  uint8
	volumeLoop     [2]uint8
	panningPoints  []EnvelopePoint
	panningFlags   uint8
	vibrato        [4]uint8
	fadeout        uint16
	numSamplesHack int

	samples []xmSampleSpec
}

type xmSpec struct {
	name        string
	version     uint16
	numChannels int
	flags       uint16
	tempo       int
	bpm         int
	restart     int
	order       []uint8
	patterns    []xmPatternSpec
	instruments []xmInstrumentSpec
}

type byteWriter struct {
	buf bytes.Buffer
}

func (w *byteWriter) byte(v uint8) { w.buf.WriteByte(v) }

func (w *byteWriter) word(v uint16) {
	binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *byteWriter) wordBE(v uint16) {
	binary.Write(&w.buf, binary.BigEndian, v)
}

func (w *byteWriter) dword(v uint32) {
	binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *byteWriter) str(s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	w.buf.Write(b)
}

func (w *byteWriter) zeros(n int) {
	w.buf.Write(make([]byte, n))
}

func packNote(n PatternNote) []byte {
	if n.Note != 0 && n.Instrument != 0 && n.Volume != 0 && n.EffectType != 0 && n.EffectParameter != 0 {
		return []byte{n.Note, n.Instrument, n.Volume, n.EffectType, n.EffectParameter}
	}
	mask := uint8(0x80)
	result := []byte{0}
	fields := []uint8{n.Note, n.Instrument, n.Volume, n.EffectType, n.EffectParameter}
	for i, v := range fields {
		if v != 0 {
			mask |= 1 << i
			result = append(result, v)
		}
	}
	result[0] = mask
	return result
}

func encodeXM(s xmSpec) []byte {
	var w byteWriter
	if s.version == 0 {
		s.version = 0x0104
	}
	if s.numChannels == 0 {
		s.numChannels = 1
	}

	w.str("Extended Module: ", 17)
	w.str(s.name, 20)
	w.byte(0x1a)
	w.str("FastTracker v2.00", 20)
	w.word(s.version)
	w.dword(276)
	w.word(uint16(len(s.order)))
	w.word(uint16(s.restart))
	w.word(uint16(s.numChannels))
	w.word(uint16(len(s.patterns)))
	w.word(uint16(len(s.instruments)))
	w.word(s.flags)
	w.word(uint16(s.tempo))
	w.word(uint16(s.bpm))
	order := make([]byte, 256)
	copy(order, s.order)
	w.buf.Write(order)

	for _, pat := range s.patterns {
		packed := pat.packed
		if packed == nil {
			for _, row := range pat.notes {
				for _, n := range row {
					packed = append(packed, packNote(n)...)
				}
			}
		}
		w.dword(9)
		w.byte(pat.packingType)
		w.word(uint16(pat.rows))
		w.word(uint16(len(packed)))
		w.buf.Write(packed)
	}

	for _, inst := range s.instruments {
		numSamples := len(inst.samples)
		if inst.numSamplesHack != 0 {
			numSamples = inst.numSamplesHack
		}
		if numSamples == 0 {
			w.dword(29)
			w.str(inst.name, 22)
			w.byte(0)
			w.word(0)
			continue
		}
		w.dword(263)
		w.str(inst.name, 22)
		w.byte(0)
		w.word(uint16(numSamples))
		w.dword(40)
		w.buf.Write(inst.keymap[:])
		writePoints := func(points []EnvelopePoint) {
			for i := 0; i < 12; i++ {
				var pt EnvelopePoint
				if i < len(points) {
					pt = points[i]
				}
				w.word(pt.X)
				w.word(pt.Y)
			}
		}
		writePoints(inst.volumePoints)
		writePoints(inst.panningPoints)
		w.byte(uint8(len(inst.volumePoints)))
		w.byte(uint8(len(inst.panningPoints)))
		w.byte(inst.volumeSustain)
		w.byte(inst.volumeLoop[0])
		w.byte(inst.volumeLoop[1])
		w.byte(0)
		w.byte(0)
		w.byte(0)
		w.byte(inst.volumeFlags)
		w.byte(inst.panningFlags)
		w.buf.Write(inst.vibrato[:])
		w.word(inst.fadeout)
		w.zeros(22)

		var sampleData [][]byte
		for _, smp := range inst.samples {
			var data []byte
			if smp.values16 != nil {
				prev := int16(0)
				for _, v := range smp.values16 {
					d := uint16(v - prev)
					data = append(data, byte(d), byte(d>>8))
					prev = v
				}
			} else {
				prev := int8(0)
				for _, v := range smp.values8 {
					data = append(data, byte(v-prev))
					prev = v
				}
			}
			sampleData = append(sampleData, data)

			w.dword(uint32(len(data)))
			w.dword(smp.loopStart)
			w.dword(smp.loopLength)
			w.byte(smp.volume)
			w.byte(uint8(smp.finetune))
			w.byte(smp.typeFlags)
			w.byte(smp.panning)
			w.byte(uint8(smp.relNote))
			w.byte(smp.encoding)
			w.str(smp.name, 22)
		}
		for _, data := range sampleData {
			w.buf.Write(data)
		}
	}

	return w.buf.Bytes()
}

type modSampleSpec struct {
	name       string
	finetune   uint8
	volume     uint8
	loopStart  uint16 // in words
	loopLength uint16 // in words
	data       []int8
}

type modCell struct {
	period     uint16
	sample     uint8
	effectType uint8
	param      uint8
}

type modSpec struct {
	name     string
	tag      string
	order    []uint8
	restart  uint8
	samples  []modSampleSpec
	patterns [][][]modCell // [pattern][row][channel]

	numChannels int
	truncate    int
}

func encodeMOD(s modSpec) []byte {
	var w byteWriter
	if s.tag == "" {
		s.tag = "M.K."
	}
	if s.numChannels == 0 {
		s.numChannels = 4
	}
	w.str(s.name, 20)
	for i := 0; i < 31; i++ {
		var smp modSampleSpec
		if i < len(s.samples) {
			smp = s.samples[i]
		}
		w.str(smp.name, 22)
		w.wordBE(uint16(len(smp.data) / 2))
		w.byte(smp.finetune)
		w.byte(smp.volume)
		w.wordBE(smp.loopStart)
		w.wordBE(smp.loopLength)
	}
	w.byte(uint8(len(s.order)))
	w.byte(s.restart)
	order := make([]byte, 128)
	copy(order, s.order)
	w.buf.Write(order)
	w.str(s.tag, 4)

	for _, pat := range s.patterns {
		for row := 0; row < 64; row++ {
			for ch := 0; ch < s.numChannels; ch++ {
				var c modCell
				if row < len(pat) && ch < len(pat[row]) {
					c = pat[row][ch]
				}
				w.byte((c.sample & 0xf0) | uint8(c.period>>8)&0x0f)
				w.byte(uint8(c.period))
				w.byte((c.sample&0x0f)<<4 | c.effectType&0x0f)
				w.byte(c.param)
			}
		}
	}

	for _, smp := range s.samples {
		for _, v := range smp.data {
			w.byte(uint8(v))
		}
	}

	data := w.buf.Bytes()
	if s.truncate != 0 {
		data = data[:len(data)-s.truncate]
	}
	return data
}
