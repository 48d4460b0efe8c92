package xm7

import (
	"github.com/quasilyte/xm7/xmfile"
)

// OutputSink receives the per-channel output parameters.
//
// The channel argument is a logical module channel index (0..N-1).
// It's up to the sink to map it to the real output channels.
//
// All methods are called from inside Player.Tick,
// so they should return quickly.
type OutputSink interface {
	// SetFrequency sets the sample playback rate in Hz.
	SetFrequency(channel int, hz float64)

	// SetVolume sets the channel volume in [0, 64] range.
	SetVolume(channel int, volume uint8)

	// SetPanning sets the channel panning: 0 is left, 255 is right.
	SetPanning(channel int, panning uint8)

	// StartSample starts the sample playback from the given frame.
	// Forward loops should be handled by the sink,
	// other loop kinds are converted during the module loading.
	StartSample(channel int, sample *xmfile.Sample, offset int)

	// StopChannel silences the channel.
	StopChannel(channel int)
}

// NopSink is an output sink that ignores everything.
type NopSink struct{}

func (NopSink) SetFrequency(channel int, hz float64)                       {}
func (NopSink) SetVolume(channel int, volume uint8)                        {}
func (NopSink) SetPanning(channel int, panning uint8)                      {}
func (NopSink) StartSample(channel int, sample *xmfile.Sample, offset int) {}
func (NopSink) StopChannel(channel int)                                    {}
