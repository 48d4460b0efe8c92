package main

import (
	"flag"
	"fmt"
	"image/color"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/quasilyte/xm7"
	"github.com/quasilyte/xm7/xmfile"
)

/*
note indexes
C  = 0
C# = 1
D  = 2
D# = 3
E  = 4
F  = 5
F# = 6
G  = 7
G# = 8
A  = 9
A# = 10
B  = 11

D#5 = 52
octave := 5-1
(octave × 12) + note_index + 1 = 52
*/

// This simple tool plays the specified XM or MOD track visually:
// the Ebitengine game loop is used as a tick source and every channel
// is drawn as a volume meter with a panning marker.
//
// There is no audio mixing, the player only computes the channel
// parameters that an output device (or a mixer) would consume.

const (
	screenWidth  = 640
	screenHeight = 360
)

func main() {
	flag.Usage = func() {
		fmt.Printf("usage: go run ./cmd/ebitengine-example path/to/music.xm\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if len(flag.Args()) < 1 {
		panic("expected at least 1 command-line argument")
	}
	filename := flag.Args()[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		panic(fmt.Errorf("read module file: %v", err))
	}
	m, err := xmfile.NewParser(xmfile.ParserConfig{NeedStrings: true}).ParseFromBytes(data)
	if err != nil {
		panic(fmt.Errorf("parsing module file: %v", err))
	}

	g := &game{
		filename: filename,
		meters:   newMeterSink(m.NumChannels),
	}
	g.player = xm7.NewPlayer(xm7.PlayerConfig{Sink: g.meters})
	if err := g.player.Load(m); err != nil {
		panic(fmt.Errorf("loading module: %v", err))
	}

	g.synthMeters = newMeterSink(2)
	g.synth = xm7.NewSynthesizer(xm7.SynthesizerConfig{
		NumChannels: 2,
		Sink:        g.synthMeters,
	})
	if err := g.synth.LoadInstruments(m); err != nil {
		panic(err)
	}

	ebiten.SetWindowSize(screenWidth*2, screenHeight*2)
	ebiten.SetWindowTitle("xm7 player")
	g.syncTPS()
	if err := ebiten.RunGame(g); err != nil {
		panic(err)
	}
}

type channelMeter struct {
	volume  uint8
	panning uint8
	active  bool
}

type meterSink struct {
	channels []channelMeter
}

func newMeterSink(numChannels int) *meterSink {
	return &meterSink{channels: make([]channelMeter, numChannels)}
}

func (s *meterSink) SetFrequency(channel int, hz float64) {}

func (s *meterSink) SetVolume(channel int, volume uint8) {
	s.channels[channel].volume = volume
}

func (s *meterSink) SetPanning(channel int, panning uint8) {
	s.channels[channel].panning = panning
}

func (s *meterSink) StartSample(channel int, sample *xmfile.Sample, offset int) {
	s.channels[channel].active = true
}

func (s *meterSink) StopChannel(channel int) {
	s.channels[channel] = channelMeter{}
}

type game struct {
	player *xm7.Player
	meters *meterSink

	synth       *xm7.Synthesizer
	synthMeters *meterSink

	filename string
	bpm      int
}

// syncTPS makes one game update equal to one player tick.
// A tick lasts 2.5/BPM seconds.
func (g *game) syncTPS() {
	bpm := g.player.BPM()
	if bpm == g.bpm {
		return
	}
	g.bpm = bpm
	ebiten.SetTPS(bpm * 2 / 5)
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if g.player.State() == xm7.Playing {
			g.player.Post(xm7.StopCommand())
		} else {
			g.player.Post(xm7.PlayCommand(0))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		style, _ := g.player.PanningStyle()
		if style == xm7.PanningAmiga {
			g.player.Post(xm7.PanningStyleCommand(xm7.PanningNormal, 0))
		} else {
			g.player.Post(xm7.PanningStyleCommand(xm7.PanningAmiga, xm7.PanningDisplacementDefault))
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.Key1) {
		g.synth.PlayNote(20, xmfile.PatternNote{
			Note:       52,
			Instrument: 1,
		})
	}
	if inpututil.IsKeyJustPressed(ebiten.Key2) {
		g.synth.PlayNote(20, xmfile.PatternNote{
			Note:       52,
			Instrument: 2,
		}, xmfile.PatternNote{
			Note:       59,
			Instrument: 2,
		})
	}

	g.player.Tick()
	g.synth.Tick()
	g.syncTPS()
	return nil
}

var (
	meterColor   = color.RGBA{R: 0x40, G: 0xc0, B: 0x60, A: 0xff}
	idleColor    = color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}
	panningColor = color.RGBA{R: 0xe0, G: 0xd0, B: 0x40, A: 0xff}
	synthColor   = color.RGBA{R: 0x40, G: 0x80, B: 0xe0, A: 0xff}
)

func (g *game) Draw(screen *ebiten.Image) {
	pos := g.player.Position()
	status := "Stopped... press SPACE"
	if g.player.State() == xm7.Playing {
		status = fmt.Sprintf("Playing %s: order %d, pattern %d, row %d, %d BPM",
			g.filename, pos.Order, pos.Pattern, pos.Row, g.player.BPM())
	}
	ebitenutil.DebugPrint(screen, status+"\nP - toggle Amiga panning, 1/2 - play notes")

	drawMeters(screen, g.meters, 128, meterColor)
	drawMeters(screen, g.synthMeters, screenHeight-24, synthColor)
}

// drawMeters draws the volume bars on top of the baseline.
func drawMeters(screen *ebiten.Image, sink *meterSink, baseline float32, clr color.Color) {
	const maxHeight = 64
	n := len(sink.channels)
	columnWidth := float32(screenWidth-16) / float32(max(n, 1))
	for i, ch := range sink.channels {
		x := 8 + float32(i)*columnWidth
		w := columnWidth - 4
		vector.DrawFilledRect(screen, x, baseline, w, 2, idleColor, false)
		if !ch.active {
			continue
		}
		h := float32(ch.volume) * maxHeight / 64
		vector.DrawFilledRect(screen, x, baseline-h, w, h, clr, false)
		panX := x + w*float32(ch.panning)/255
		vector.DrawFilledRect(screen, panX-1, baseline+4, 3, 6, panningColor, false)
	}
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}
