package xmfile

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a module loading failure.
type ErrorKind int

const (
	ErrorInvalidModule ErrorKind = iota + 1
	ErrorUnknownVersion
	ErrorUnsupportedChannelCount
	ErrorUnsupportedPatternHeader
	ErrorIncompletePattern
	ErrorUnsupportedInstrumentHeader
	ErrorOutOfMemory
)

var (
	ErrInvalidModule               = errors.New("not a valid module")
	ErrUnknownVersion              = errors.New("unknown module version")
	ErrUnsupportedChannelCount     = errors.New("unsupported number of channels")
	ErrUnsupportedPatternHeader    = errors.New("unsupported pattern header")
	ErrIncompletePattern           = errors.New("incomplete pattern")
	ErrUnsupportedInstrumentHeader = errors.New("unsupported instrument header")
	ErrOutOfMemory                 = errors.New("not enough memory")
)

var errorKindSentinels = [...]error{
	ErrorInvalidModule:               ErrInvalidModule,
	ErrorUnknownVersion:              ErrUnknownVersion,
	ErrorUnsupportedChannelCount:     ErrUnsupportedChannelCount,
	ErrorUnsupportedPatternHeader:    ErrUnsupportedPatternHeader,
	ErrorIncompletePattern:           ErrIncompletePattern,
	ErrorUnsupportedInstrumentHeader: ErrUnsupportedInstrumentHeader,
	ErrorOutOfMemory:                 ErrOutOfMemory,
}

// Err returns a sentinel error associated with this kind.
// It can be used with errors.Is.
func (k ErrorKind) Err() error {
	if k <= 0 || int(k) >= len(errorKindSentinels) {
		return nil
	}
	return errorKindSentinels[k]
}

func (k ErrorKind) String() string {
	if err := k.Err(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// NeedsUnload reports whether this kind of error can happen after
// some of the module data was already allocated.
//
// Module.Unload is always safe to call, this method only
// describes whether the failed module holds anything at all.
func (k ErrorKind) NeedsUnload() bool {
	return k >= ErrorUnsupportedPatternHeader
}

type ParseError struct {
	Kind ErrorKind

	Message string

	Offset int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s (offset=%d)", e.Kind, e.Message, e.Offset)
}

func (e *ParseError) Unwrap() error {
	return e.Kind.Err()
}
