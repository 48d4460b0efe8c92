package xmfile

import (
	"strings"
	"unsafe"
)

const (
	maxChannels          = 16
	maxInstrumentSamples = 16
	maxEnvelopePoints    = 12
)

func (p *parser) parseXM() {
	p.startStage("header")
	p.parseXMHeader()
	p.logf("XM module %q: version %d.%02d, %d channels, %d patterns, %d instruments",
		p.module.Name, p.module.Version[0], p.module.Version[1],
		p.module.NumChannels, p.module.NumPatterns, p.module.NumInstruments)

	p.startStage("pattern")
	p.module.Patterns = make([]Pattern, 0, p.module.NumPatterns)
	for i := 0; i < p.module.NumPatterns; i++ {
		p.stageIndex = i
		pat := p.parseXMPattern()
		p.module.Patterns = append(p.module.Patterns, pat)
	}

	p.startStage("instrument")
	p.module.Instruments = make([]Instrument, 0, p.module.NumInstruments)
	for i := 0; i < p.module.NumInstruments; i++ {
		p.stageIndex = i
		p.module.Instruments = append(p.module.Instruments, Instrument{})
		p.parseXMInstrument(&p.module.Instruments[i])
	}

	p.startStage("postprocess")
	p.postprocessSamples()
}

func (p *parser) parseXMHeader() {
	idText := p.readString(17, "id text")
	if !strings.EqualFold(idText, "extended module:") {
		panic(p.errorf(ErrorInvalidModule, "unexpected ID text: %q", idText))
	}

	p.module.Format = FormatXM
	p.module.Name = p.readOptionalString(20, "module name")

	if b := p.readByte("magic byte"); b != 0x1a {
		panic(p.errorf(ErrorInvalidModule, "expected 0x1a, found 0x%0x", b))
	}

	p.module.TrackerName = p.readOptionalString(20, "tracker name")

	version := p.readWord("version")
	if version != 0x0104 && version != 0x0103 {
		panic(p.errorf(ErrorUnknownVersion, "unsupported version %#04x", version))
	}
	p.module.Version[0] = uint8(version >> 8)
	p.module.Version[1] = uint8(version & 0xff)

	headerSize := int(p.readDword("header size")) - 4
	if headerSize < 16 || p.dataBytesRemaining() < headerSize {
		panic(p.errorf(ErrorInvalidModule, "invalid header size: %d", headerSize))
	}
	offset := p.offset + headerSize

	p.module.SongLength = int(p.readWord("song length"))
	if p.module.SongLength <= 0 || p.module.SongLength > 256 {
		panic(p.errorf(ErrorInvalidModule, "invalid song length value: %d", p.module.SongLength))
	}

	p.module.RestartPosition = int(p.readWord("restart position"))
	if p.module.RestartPosition >= p.module.SongLength {
		p.module.RestartPosition = 0
	}

	p.module.NumChannels = int(p.readWord("number of channels"))
	if p.module.NumChannels == 0 || p.module.NumChannels > maxChannels {
		panic(p.errorf(ErrorUnsupportedChannelCount, "can't play %d channels", p.module.NumChannels))
	}
	p.module.NumPatterns = int(p.readWord("number of patterns"))
	if p.module.NumPatterns > 256 {
		panic(p.errorf(ErrorInvalidModule, "too many patterns: %d", p.module.NumPatterns))
	}
	p.module.NumInstruments = int(p.readWord("number of instruments"))
	if p.module.NumInstruments > 128 {
		panic(p.errorf(ErrorInvalidModule, "too many instruments: %d", p.module.NumInstruments))
	}

	p.module.Flags = p.readWord("flags")
	p.module.DefaultTempo = normalizeTempo(int(p.readWord("default tempo")))
	p.module.DefaultBPM = normalizeBPM(int(p.readWord("default bpm")))

	if headerSize < 16+p.module.SongLength {
		panic(p.errorf(ErrorInvalidModule, "header size %d can't fit the pattern order table", headerSize))
	}
	order := p.read(p.module.SongLength, "pattern order table")
	p.module.PatternOrder = make([]uint8, len(order))
	copy(p.module.PatternOrder, order)

	p.offset = offset
}

func (p *parser) parseXMPattern() Pattern {
	var pat Pattern
	patternHeaderLength := int(p.readDword("pattern header length"))
	if patternHeaderLength < 9 {
		panic(p.errorf(ErrorUnsupportedPatternHeader, "invalid pattern header length: %d", patternHeaderLength))
	}
	if packing := p.readByte("packing type"); packing != 0 {
		panic(p.errorf(ErrorUnsupportedPatternHeader, "unknown packing type %d", packing))
	}
	numRows := int(p.readWord("number of rows"))
	if numRows <= 0 || numRows > 256 {
		panic(p.errorf(ErrorUnsupportedPatternHeader, "invalid number of rows: %d", numRows))
	}

	packedPatternDataSize := int(p.readWord("packed pattern data size"))

	// Skip is usually 0, but the specs says we should respect the stated header size.
	p.skip(patternHeaderLength-9, "skip pattern metadata")

	if p.dataBytesRemaining() < packedPatternDataSize {
		panic(p.errorf(ErrorIncompletePattern, "incomplete packed pattern data"))
	}
	offset := p.offset + packedPatternDataSize

	pat.Rows = p.makeRows(numRows, p.module.NumChannels)

	if packedPatternDataSize == 0 {
		// All notes are empty already.
		return pat
	}

	for i := range pat.Rows {
		notes := pat.Rows[i].Notes
		for j := range notes {
			if p.offset >= offset {
				panic(p.errorf(ErrorIncompletePattern, "packed data ended at row %d channel %d", i, j))
			}
			note := &notes[j]
			b := p.readByte("first note byte")
			readNote := true
			readInstrument := true
			readVolume := true
			readEffectType := true
			readEffectParameter := true
			if b&0b10000000 != 0 {
				// When MSB is set, an alternative (compact) scheme is used for this note.
				// Some bytes may be missing (they default to 0).
				readNote = b&(1<<0) != 0
				readInstrument = b&(1<<1) != 0
				readVolume = b&(1<<2) != 0
				readEffectType = b&(1<<3) != 0
				readEffectParameter = b&(1<<4) != 0
			} else {
				// The first byte was a note.
				readNote = false
				note.Note = b
			}
			if readNote {
				note.Note = p.readByte("pattern note")
			}
			if readInstrument {
				note.Instrument = p.readByte("pattern instrument")
			}
			if readVolume {
				note.Volume = p.readByte("pattern volume")
			}
			if readEffectType {
				note.EffectType = p.readByte("effect type")
			}
			if readEffectParameter {
				note.EffectParameter = p.readByte("effect type parameter")
			}
			if note.Note > NoteKeyOff {
				panic(p.errorf(ErrorIncompletePattern, "invalid note value %d at row %d channel %d", note.Note, i, j))
			}
		}
	}

	if p.offset < offset {
		panic(p.errorf(ErrorIncompletePattern, "found %d redundant bytes in the pattern data", offset-p.offset))
	}
	if p.offset > offset {
		panic(p.errorf(ErrorIncompletePattern, "consumed %d extra bytes of the pattern data", p.offset-offset))
	}

	return pat
}

func (p *parser) makeRows(numRows, numChannels int) []PatternRow {
	p.alloc(numRows*numChannels*int(unsafe.Sizeof(PatternNote{})), "pattern notes")
	rows := p.patternRowPool.MakeSlice(numRows)
	for i := range rows {
		rows[i].Notes = p.patternNotePool.MakeSlice(numChannels)
	}
	return rows
}

func (p *parser) parseXMInstrument(inst *Instrument) {
	instrumentHeaderSize := int(p.readDword("instrument header size")) - 4
	if instrumentHeaderSize < 25 || p.dataBytesRemaining() < instrumentHeaderSize {
		panic(p.errorf(ErrorUnsupportedInstrumentHeader, "invalid instrument header size: %d", instrumentHeaderSize+4))
	}
	offset := p.offset + instrumentHeaderSize

	inst.Name = p.readOptionalString(22, "instrument name")

	p.skip(1, "instrument type")

	numSamples := int(p.readWord("number of samples"))
	if numSamples > maxInstrumentSamples {
		panic(p.errorf(ErrorUnsupportedInstrumentHeader, "too many samples: %d", numSamples))
	}
	if numSamples == 0 {
		p.offset = offset
		return
	}

	sampleHeaderSize := int(p.readDword("instrument sample header size"))
	if sampleHeaderSize < 40 {
		sampleHeaderSize = 40
	}
	copy(inst.KeymapAssignments[:], p.read(len(inst.KeymapAssignments), "instrument samples keymap assignments"))

	var volumePoints, panningPoints [maxEnvelopePoints]EnvelopePoint
	for i := range volumePoints {
		x := p.readWord("envelope volume point x")
		y := p.readWord("envelope volume point y")
		volumePoints[i] = EnvelopePoint{X: x, Y: y}
	}
	for i := range panningPoints {
		x := p.readWord("envelope panning point x")
		y := p.readWord("envelope panning point y")
		panningPoints[i] = EnvelopePoint{X: x, Y: y}
	}

	numVolumePoints := int(p.readByte("number of volume points"))
	numPanningPoints := int(p.readByte("number of panning points"))

	inst.VolumeEnvelope.SustainPoint = p.readByte("volume sustain point")
	inst.VolumeEnvelope.LoopStartPoint = p.readByte("volume loop start point")
	inst.VolumeEnvelope.LoopEndPoint = p.readByte("volume loop end point")
	inst.PanningEnvelope.SustainPoint = p.readByte("panning sustain point")
	inst.PanningEnvelope.LoopStartPoint = p.readByte("panning loop start point")
	inst.PanningEnvelope.LoopEndPoint = p.readByte("panning loop end point")

	inst.VolumeEnvelope.Flags = EnvelopeFlags(p.readByte("volume type"))
	inst.PanningEnvelope.Flags = EnvelopeFlags(p.readByte("panning type"))

	inst.VibratoType = p.readByte("vibrato type")
	inst.VibratoSweep = p.readByte("vibrato sweep")
	inst.VibratoDepth = p.readByte("vibrato depth")
	inst.VibratoRate = p.readByte("vibrato rate")

	inst.VolumeFadeout = int(p.readWord("volume fadeout"))

	if p.offset > offset {
		panic(p.errorf(ErrorUnsupportedInstrumentHeader, "consumed %d extra bytes", p.offset-offset))
	}
	p.offset = offset

	p.startSubStage("volume envelope")
	p.initEnvelope(&inst.VolumeEnvelope, volumePoints[:], numVolumePoints)
	p.startSubStage("panning envelope")
	p.initEnvelope(&inst.PanningEnvelope, panningPoints[:], numPanningPoints)

	inst.Samples = make([]Sample, numSamples)
	p.startSubStage("sample")
	for i := range inst.Samples {
		p.subStageIndex = i
		p.parseXMSampleHeader(&inst.Samples[i], sampleHeaderSize)
	}

	p.startSubStage("sampledata")
	for i := range inst.Samples {
		p.subStageIndex = i
		p.parseXMSampleData(&inst.Samples[i])
	}
}

func (p *parser) initEnvelope(e *Envelope, points []EnvelopePoint, numPoints int) {
	if numPoints > maxEnvelopePoints {
		panic(p.errorf(ErrorUnsupportedInstrumentHeader, "too many points: %d", numPoints))
	}
	if numPoints == 0 {
		// FT2 ignores the flags of an empty envelope.
		e.Flags = 0
		return
	}
	for i := 1; i < numPoints; i++ {
		if points[i].X < points[i-1].X {
			panic(p.errorf(ErrorUnsupportedInstrumentHeader, "point[%d].x=%d goes before point[%d].x=%d",
				i, points[i].X, i-1, points[i-1].X))
		}
	}
	for i := 0; i < numPoints; i++ {
		if points[i].Y > 64 {
			points[i].Y = 64
		}
	}
	e.Points = make([]EnvelopePoint, numPoints)
	copy(e.Points, points)

	last := uint8(numPoints - 1)
	e.SustainPoint = min(e.SustainPoint, last)
	e.LoopEndPoint = min(e.LoopEndPoint, last)
	e.LoopStartPoint = min(e.LoopStartPoint, e.LoopEndPoint)
}

func (p *parser) parseXMSampleHeader(sample *Sample, headerSize int) {
	start := p.offset

	sample.Length = int(p.readDword("sample length"))
	sample.LoopStart = int(p.readDword("sample loop start"))
	sample.LoopLength = int(p.readDword("sample loop length"))
	sample.Volume = min(int(p.readByte("sample volume")), 64)
	sample.Finetune = p.readInt8("sample finetune")
	typeFlags := p.readByte("sample type")
	sample.Panning = p.readByte("sample panning")
	sample.RelativeNote = p.readInt8("sample relative note number")

	switch format := p.readByte("sample encoding"); format {
	case 0:
		// Delta packed, OK.
	case 0xAD:
		panic(p.errorf(ErrorUnsupportedInstrumentHeader, "ADPCM sample encoding is not supported"))
	default:
		panic(p.errorf(ErrorUnsupportedInstrumentHeader, "unknown sample encoding scheme (%#02x)", format))
	}

	sample.Name = p.readOptionalString(22, "sample name")
	p.skip(headerSize-(p.offset-start), "sample header padding")

	switch typeFlags & 0b11 {
	case 0:
		sample.LoopType = SampleLoopNone
	case 1:
		sample.LoopType = SampleLoopForward
	default:
		sample.LoopType = SampleLoopPingPong
	}

	if typeFlags&(1<<4) != 0 {
		// Mark the sample as 16-bit until the data is decoded.
		sample.Data16 = []int16{}
		sample.Length &^= 1
		sample.LoopStart &^= 1
		sample.LoopLength &^= 1
	}
}

func (p *parser) parseXMSampleData(sample *Sample) {
	length := sample.Length
	if length > p.dataBytesRemaining() {
		// Some trackers save truncated samples at the end of the file.
		p.logf("%s: sample data truncated from %d to %d bytes", p.formatStage(), length, p.dataBytesRemaining())
		length = p.dataBytesRemaining()
		if sample.Is16bits() {
			length &^= 1
		}
		sample.Length = length
	}
	p.alloc(length, "sample data")
	data := p.read(length, "sample data")

	if sample.Is16bits() {
		sample.Data16 = decodeDelta16(data)
	} else {
		sample.Data8 = decodeDelta8(data)
	}
	fixLoop(sample)
}

// decodeDelta8 integrates the delta-coded sample values.
func decodeDelta8(data []byte) []int8 {
	samples := make([]int8, len(data))
	v := int8(0)
	for i, delta := range data {
		v += int8(delta)
		samples[i] = v
	}
	return samples
}

// decodeDelta16 integrates the delta-coded little endian sample values.
func decodeDelta16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	v := int16(0)
	for i := range samples {
		v += int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
		samples[i] = v
	}
	return samples
}

// fixLoop clamps the loop points to the sample data bounds.
func fixLoop(sample *Sample) {
	if sample.LoopType == SampleLoopNone {
		sample.LoopStart = 0
		sample.LoopLength = 0
		return
	}
	if sample.LoopStart >= sample.Length {
		sample.LoopType = SampleLoopNone
		sample.LoopStart = 0
		sample.LoopLength = 0
		return
	}
	if sample.LoopStart+sample.LoopLength > sample.Length {
		sample.LoopLength = sample.Length - sample.LoopStart
	}
	if sample.LoopLength <= 0 {
		sample.LoopType = SampleLoopNone
		sample.LoopStart = 0
		sample.LoopLength = 0
	}
}

func normalizeTempo(tempo int) int {
	if tempo == 0 {
		return 6
	}
	return min(tempo, 31)
}

func normalizeBPM(bpm int) int {
	if bpm == 0 {
		return 125
	}
	return max(min(bpm, 255), 32)
}
