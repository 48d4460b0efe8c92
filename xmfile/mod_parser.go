package xmfile

import (
	"github.com/quasilyte/xm7/internal/xmdb"
	"github.com/quasilyte/xm7/pitch"
)

const (
	modNumSamples   = 31
	modNumRows      = 64
	modOrderSize    = 128
	modTagOffset    = 1080
	modHeaderLength = modTagOffset + 4
)

// modChannelsFromTag maps the 4-byte signature into a number of channels.
func modChannelsFromTag(data []byte) (int, bool) {
	if len(data) < modHeaderLength {
		return 0, false
	}
	tag := string(data[modTagOffset:modHeaderLength])
	switch tag {
	case "M.K.", "M!K!", "FLT4", "4CHN":
		return 4, true
	case "6CHN":
		return 6, true
	case "8CHN", "FLT8", "CD81", "OKTA", "OCTA":
		return 8, true
	}
	isDigit := func(b byte) bool { return b >= '0' && b <= '9' }
	if isDigit(tag[0]) && tag[1:] == "CHN" {
		return int(tag[0] - '0'), true
	}
	if isDigit(tag[0]) && isDigit(tag[1]) && (tag[2:] == "CH" || tag[2:] == "CN") {
		return int(tag[0]-'0')*10 + int(tag[1]-'0'), true
	}
	return 0, false
}

func (p *parser) parseMOD() {
	p.startStage("header")
	p.parseMODHeader()
	p.logf("MOD module %q: %d channels, %d patterns, song length %d",
		p.module.Name, p.module.NumChannels, p.module.NumPatterns, p.module.SongLength)

	p.startStage("pattern")
	p.module.Patterns = make([]Pattern, p.module.NumPatterns)
	for i := range p.module.Patterns {
		p.stageIndex = i
		p.parseMODPattern(&p.module.Patterns[i])
	}

	p.startStage("sampledata")
	for i := range p.module.Instruments {
		p.stageIndex = i
		inst := &p.module.Instruments[i]
		if len(inst.Samples) != 0 {
			p.parseMODSampleData(&inst.Samples[0])
		}
	}

	p.startStage("postprocess")
	p.postprocessSamples()
}

func (p *parser) parseMODHeader() {
	numChannels, ok := modChannelsFromTag(p.data)
	if !ok {
		panic(p.errorf(ErrorInvalidModule, "unrecognized MOD signature"))
	}
	if numChannels == 0 || numChannels > maxChannels {
		panic(p.errorf(ErrorUnsupportedChannelCount, "can't play %d channels", numChannels))
	}

	p.module.Format = FormatMOD
	p.module.TrackerName = string(p.data[modTagOffset:modHeaderLength])
	p.module.Name = p.readOptionalString(20, "module name")
	p.module.NumChannels = numChannels
	p.module.NumInstruments = modNumSamples
	p.module.DefaultTempo = 6
	p.module.DefaultBPM = 125

	// Validate the order table before allocating anything.
	songLengthOffset := 20 + modNumSamples*30
	songLength := int(p.data[songLengthOffset])
	if songLength == 0 || songLength > modOrderSize {
		p.offset = songLengthOffset
		panic(p.errorf(ErrorInvalidModule, "invalid song length value: %d", songLength))
	}

	p.module.Instruments = make([]Instrument, modNumSamples)
	p.startStage("instrument")
	for i := range p.module.Instruments {
		p.stageIndex = i
		p.parseMODSampleHeader(&p.module.Instruments[i])
	}

	p.startStage("header")
	p.module.SongLength = int(p.readByte("song length"))
	p.module.RestartPosition = int(p.readByte("restart position"))
	if p.module.RestartPosition >= p.module.SongLength {
		// 127 is a common marker, it means "no restart position".
		p.module.RestartPosition = 0
	}

	order := p.read(modOrderSize, "pattern order table")
	numPatterns := 0
	for _, patternIndex := range order {
		numPatterns = max(numPatterns, int(patternIndex)+1)
	}
	p.module.NumPatterns = numPatterns
	p.module.PatternOrder = make([]uint8, p.module.SongLength)
	copy(p.module.PatternOrder, order)

	p.skip(4, "signature")
}

func (p *parser) parseMODSampleHeader(inst *Instrument) {
	name := p.readOptionalString(22, "sample name")
	inst.Name = name
	length := int(p.readWordBE("sample length")) * 2
	finetune := p.readByte("sample finetune") & 0x0f
	volume := int(p.readByte("sample volume"))
	loopStart := int(p.readWordBE("sample loop start")) * 2
	loopLength := int(p.readWordBE("sample loop length")) * 2

	if length == 0 {
		return
	}

	// A signed nibble is converted into 1/128 semitone units.
	ft := int8(finetune<<4) >> 4
	sample := Sample{
		Name:       name,
		Length:     length,
		LoopStart:  loopStart,
		LoopLength: loopLength,
		Volume:     min(volume, 64),
		Panning:    128,
		Finetune:   ft * 16,
	}
	if loopLength > 2 {
		sample.LoopType = SampleLoopForward
	} else {
		sample.LoopStart = 0
		sample.LoopLength = 0
	}
	inst.Samples = []Sample{sample}
}

func (p *parser) parseMODPattern(pat *Pattern) {
	pat.Rows = p.makeRows(modNumRows, p.module.NumChannels)
	for i := range pat.Rows {
		notes := pat.Rows[i].Notes
		for j := range notes {
			cell := p.read(4, "pattern cell")
			note := &notes[j]
			period := int(cell[0]&0x0f)<<8 | int(cell[1])
			note.Note = uint8(pitch.NoteFromAmigaPeriod(period))
			note.Instrument = (cell[0] & 0xf0) | (cell[2] >> 4)
			if int(note.Instrument) > modNumSamples {
				panic(p.errorf(ErrorIncompletePattern, "invalid sample number %d at row %d channel %d", note.Instrument, i, j))
			}
			note.EffectType, note.EffectParameter = xmdb.ConvertMODEffect(cell[2]&0x0f, cell[3], p.module.NumChannels)
		}
	}
}

func (p *parser) parseMODSampleData(sample *Sample) {
	length := sample.Length
	if length > p.dataBytesRemaining() {
		p.logf("%s: sample data truncated from %d to %d bytes", p.formatStage(), length, p.dataBytesRemaining())
		length = p.dataBytesRemaining()
		sample.Length = length
	}
	p.alloc(length, "sample data")
	data := p.read(length, "sample data")
	sample.Data8 = make([]int8, length)
	for i, b := range data {
		sample.Data8[i] = int8(b)
	}
	fixLoop(sample)
}
