package xmfile

import (
	"fmt"
	"io"

	"github.com/quasilyte/xm7/pitch"
)

// Module is a parsed XM or MOD file contents.
// Both formats are decoded into this shape, so the
// player never needs to know where the module came from.
type Module struct {
	Name string

	TrackerName string

	Format Format

	// Major and minor version numbers.
	// Version[0] is a major version.
	// Version[1] is a minor version.
	// MOD files have a zero version.
	Version [2]byte

	SongLength      int
	RestartPosition int

	NumChannels    int
	NumPatterns    int
	NumInstruments int

	// 0 - Amiga
	// 1 - Linear
	Flags uint16

	DefaultTempo int
	DefaultBPM   int

	PatternOrder []uint8

	Patterns []Pattern

	Instruments []Instrument
}

// Format is a module file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatXM
	FormatMOD
)

func (f Format) String() string {
	switch f {
	case FormatXM:
		return "XM"
	case FormatMOD:
		return "MOD"
	default:
		return "unknown"
	}
}

// NoteKeyOff is a special note value that releases the playing note.
const NoteKeyOff = 97

type Pattern struct {
	Rows []PatternRow
}

type PatternRow struct {
	Notes []PatternNote
}

type PatternNote struct {
	Note            uint8
	Instrument      uint8
	Volume          uint8
	EffectType      uint8
	EffectParameter uint8
}

// IsEmpty reports whether this pattern slot has no data at all.
func (n PatternNote) IsEmpty() bool {
	return n == PatternNote{}
}

type Instrument struct {
	Name string

	Samples []Sample

	// KeymapAssignments maps a note (0-based) to a sample index.
	KeymapAssignments [pitch.NumNotes]uint8

	VolumeEnvelope  Envelope
	PanningEnvelope Envelope

	VibratoType  uint8
	VibratoSweep uint8
	VibratoDepth uint8
	VibratoRate  uint8

	VolumeFadeout int
}

type Envelope struct {
	Points []EnvelopePoint

	Flags EnvelopeFlags

	SustainPoint   uint8
	LoopStartPoint uint8
	LoopEndPoint   uint8
}

type EnvelopePoint struct {
	X uint16
	Y uint16
}

type Sample struct {
	Name string

	// Length is a sample data length in bytes.
	Length int

	// LoopStart and LoopLength are expressed in bytes too.
	LoopStart  int
	LoopLength int
	LoopType   SampleLoopType

	Volume       int
	Panning      uint8
	RelativeNote int8

	// Finetune is measured in 1/128 of a semitone.
	Finetune int8

	// Detuned is set when the loop points had to be moved
	// to satisfy the output hardware alignment rules.
	// Such samples may sound slightly off at the loop boundary.
	Detuned bool

	// Only one of these is set, depending on the sample bit depth.
	Data8  []int8
	Data16 []int16
}

func (s *Sample) Is16bits() bool {
	return s.Data16 != nil
}

// NumFrames returns the sample length in frames (sample points).
func (s *Sample) NumFrames() int {
	if s.Is16bits() {
		return len(s.Data16)
	}
	return len(s.Data8)
}

// LoopFrames returns the loop boundaries in frames.
func (s *Sample) LoopFrames() (start, length int) {
	if s.Is16bits() {
		return s.LoopStart / 2, s.LoopLength / 2
	}
	return s.LoopStart, s.LoopLength
}

type SampleLoopType int

const (
	SampleLoopNone SampleLoopType = iota
	SampleLoopForward
	SampleLoopPingPong
)

type EnvelopeFlags int

const (
	EnvelopeOn EnvelopeFlags = 1 << iota
	EnvelopeSustain
	EnvelopeLoop
)

func (f EnvelopeFlags) IsOn() bool {
	return f&EnvelopeOn != 0
}

func (f EnvelopeFlags) SustainEnabled() bool {
	return f&EnvelopeSustain != 0
}

func (f EnvelopeFlags) LoopEnabled() bool {
	return f&EnvelopeLoop != 0
}

// FrequencyTable reports the pitch table mode selected by the module flags.
func (m *Module) FrequencyTable() pitch.Table {
	if m.Flags&0b1 != 0 {
		return pitch.Linear
	}
	return pitch.Amiga
}

// SampleFor returns a sample that should be played for the given
// instrument (1-based) and note (1-based).
// A nil result means that there is nothing to play.
func (m *Module) SampleFor(instrument, note int) *Sample {
	if instrument <= 0 || instrument > len(m.Instruments) {
		return nil
	}
	inst := &m.Instruments[instrument-1]
	if len(inst.Samples) == 0 {
		return nil
	}
	sampleIndex := 0
	if note >= 1 && note <= pitch.NumNotes {
		sampleIndex = int(inst.KeymapAssignments[note-1])
	}
	if sampleIndex >= len(inst.Samples) {
		return nil
	}
	return &inst.Samples[sampleIndex]
}

// Unload releases all module data.
//
// It's safe to call Unload on a module that failed to load
// (no matter what the error was), on a zero value module
// and on a module that was already unloaded.
func (m *Module) Unload() {
	for i := range m.Instruments {
		inst := &m.Instruments[i]
		for j := range inst.Samples {
			inst.Samples[j].Data8 = nil
			inst.Samples[j].Data16 = nil
		}
		inst.Samples = nil
	}
	for i := range m.Patterns {
		m.Patterns[i].Rows = nil
	}
	*m = Module{}
}

// Parse reads XM or MOD file data and decodes it into a module.
//
// A non-nil error is usually a *ParseError object.
func Parse(r io.Reader) (*Module, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	return NewParser(ParserConfig{NeedStrings: true}).ParseFromBytes(data)
}
