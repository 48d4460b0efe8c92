package xmfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log"
	"strings"
)

// ParserConfig configures the module loading.
//
// A zero value is a valid configuration.
type ParserConfig struct {
	// NeedStrings makes the parser decode the module, instrument
	// and sample names. Otherwise they're left empty.
	NeedStrings bool

	// MemoryLimit is the max number of bytes the loaded module can
	// allocate for its patterns and samples.
	// Exceeding it results in ErrOutOfMemory.
	//
	// A zero value means "no limit".
	MemoryLimit int

	// SampleAlignment specifies the loop and length alignment in bytes
	// that the output hardware requires.
	//
	// A zero value means 4 (a word size of the DS sound channels).
	SampleAlignment int

	// Logger receives the loading progress messages.
	// A nil logger makes the parser silent.
	Logger *log.Logger
}

// Parser decodes module files.
//
// The same parser can be used to load several modules,
// the loaded modules don't share any memory.
type Parser struct {
	config ParserConfig
}

func NewParser(config ParserConfig) *Parser {
	if config.SampleAlignment == 0 {
		config.SampleAlignment = 4
	}
	return &Parser{config: config}
}

// Detect returns the module file format by looking at its contents.
func Detect(data []byte) Format {
	if isXM(data) {
		return FormatXM
	}
	if _, ok := modChannelsFromTag(data); ok {
		return FormatMOD
	}
	return FormatUnknown
}

// ParseFromBytes allocates a new module and loads the data into it.
// The module is unloaded automatically if loading fails.
func (p *Parser) ParseFromBytes(data []byte) (*Module, error) {
	m := &Module{}
	if err := p.Load(m, data); err != nil {
		m.Unload()
		return nil, err
	}
	return m, nil
}

// Load decodes an XM or MOD file into m.
// The format is detected from the data itself.
//
// The first three error kinds (invalid module, unknown version and
// unsupported channel count) leave m untouched.
// Any other error leaves m with partially loaded data that
// should be released with m.Unload().
func (p *Parser) Load(m *Module, data []byte) error {
	switch Detect(data) {
	case FormatXM:
		return p.LoadXM(m, data)
	case FormatMOD:
		return p.LoadMOD(m, data)
	default:
		return &ParseError{
			Kind:    ErrorInvalidModule,
			Message: "unrecognized module format",
		}
	}
}

// LoadXM is like Load, but it only accepts XM files.
func (p *Parser) LoadXM(m *Module, data []byte) error {
	state := newParser(data, p.config)
	return state.run(m, state.parseXM)
}

// LoadMOD is like Load, but it only accepts MOD files.
func (p *Parser) LoadMOD(m *Module, data []byte) error {
	state := newParser(data, p.config)
	return state.run(m, state.parseMOD)
}

type parser struct {
	// Data holds the module file input data bytes.
	data []byte

	// Offset is our current position inside the data.
	offset int

	// Module holds the results of parsing.
	module Module

	patternRowPool  objectPool[PatternRow]
	patternNotePool objectPool[PatternNote]

	allocated int

	config ParserConfig

	// These fields below are needed for better error reporting.
	stage         string
	stageIndex    int
	subStage      string
	subStageIndex int
}

func newParser(data []byte, config ParserConfig) *parser {
	if config.SampleAlignment == 0 {
		config.SampleAlignment = 4
	}
	p := &parser{
		data:   data,
		config: config,
	}
	initObjectPool(&p.patternRowPool, 64*16)
	initObjectPool(&p.patternNotePool, 64*16*8)
	return p
}

func (p *parser) run(m *Module, parseFunc func()) (err error) {
	defer func() {
		rv := recover()
		if rv == nil {
			*m = p.module
			return
		}
		panicErr, ok := rv.(*ParseError)
		if !ok {
			panic(rv)
		}
		err = panicErr
		if panicErr.Kind.NeedsUnload() {
			// Hand over whatever was allocated,
			// the caller is expected to unload it.
			*m = p.module
		}
		p.logf("load failed: %v", panicErr)
	}()

	parseFunc()

	return nil
}

func (p *parser) logf(format string, args ...any) {
	if p.config.Logger == nil {
		return
	}
	p.config.Logger.Printf(format, args...)
}

func (p *parser) startStage(name string) {
	p.stage = name
	p.stageIndex = -1
	p.subStage = ""
	p.subStageIndex = -1
}

func (p *parser) startSubStage(name string) {
	p.subStage = name
	p.subStageIndex = -1
}

func (p *parser) formatStage() string {
	var b strings.Builder
	b.Grow(len(p.stage) + len(p.subStage) + 16)
	b.WriteString(p.stage)
	if p.stageIndex >= 0 {
		fmt.Fprintf(&b, "[%d]", p.stageIndex)
	}
	if p.subStage != "" {
		b.WriteByte('.')
		b.WriteString(p.subStage)
		if p.subStageIndex >= 0 {
			fmt.Fprintf(&b, "[%d]", p.subStageIndex)
		}
	}
	return b.String()
}

func (p *parser) errorf(kind ErrorKind, format string, args ...any) *ParseError {
	text := fmt.Sprintf(format, args...)
	tag := p.formatStage()
	if tag != "" {
		text = tag + ": " + text
	}
	e := &ParseError{
		Kind:    kind,
		Message: text,
		Offset:  p.offset,
	}
	return e
}

// eofKind is used for the unexpected EOF errors.
// Truncated headers are invalid modules, truncated patterns
// and instruments have their own error kinds.
func (p *parser) eofKind() ErrorKind {
	switch p.stage {
	case "pattern":
		return ErrorIncompletePattern
	case "instrument":
		return ErrorUnsupportedInstrumentHeader
	default:
		return ErrorInvalidModule
	}
}

// alloc accounts n bytes against the configured memory limit.
func (p *parser) alloc(n int, what string) {
	p.allocated += n
	if p.config.MemoryLimit != 0 && p.allocated > p.config.MemoryLimit {
		panic(p.errorf(ErrorOutOfMemory, "can't allocate %d bytes for %s (limit=%d)", n, what, p.config.MemoryLimit))
	}
}

func (p *parser) dataBytesRemaining() int {
	return len(p.data) - p.offset
}

func (p *parser) sliceData(l int) []byte {
	return p.data[p.offset : p.offset+l]
}

func (p *parser) skip(l int, what string) {
	if p.dataBytesRemaining() < l {
		panic(p.errorf(p.eofKind(), "unexpected EOF while reading %s", what))
	}
	p.offset += l
}

func (p *parser) read(l int, what string) []byte {
	if p.dataBytesRemaining() < l {
		panic(p.errorf(p.eofKind(), "unexpected EOF while reading %s", what))
	}
	b := p.sliceData(l)
	p.offset += l
	return b
}

func (p *parser) readOptionalString(l int, what string) string {
	if !p.config.NeedStrings {
		p.skip(l, what)
		return ""
	}
	return p.readString(l, what)
}

func (p *parser) readString(l int, what string) string {
	return convertCstring(p.read(l, what))
}

func (p *parser) readDword(what string) uint32 {
	return binary.LittleEndian.Uint32(p.read(4, what))
}

func (p *parser) readWord(what string) uint16 {
	return binary.LittleEndian.Uint16(p.read(2, what))
}

// readWordBE reads a big endian word (used by MOD files).
func (p *parser) readWordBE(what string) uint16 {
	return binary.BigEndian.Uint16(p.read(2, what))
}

func (p *parser) readByte(what string) uint8 {
	if p.dataBytesRemaining() < 1 {
		panic(p.errorf(p.eofKind(), "unexpected EOF while reading %s", what))
	}
	b := p.data[p.offset]
	p.offset++
	return b
}

func (p *parser) readInt8(what string) int8 {
	return int8(p.readByte(what))
}

func isXM(data []byte) bool {
	const magic = "extended module: "
	if len(data) < len(magic) {
		return false
	}
	return bytes.EqualFold(data[:len(magic)], []byte(magic))
}
