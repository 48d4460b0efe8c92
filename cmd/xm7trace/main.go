package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/quasilyte/xm7"
	"github.com/quasilyte/xm7/pitch"
	"github.com/quasilyte/xm7/xmfile"
	"golang.org/x/term"
	"gonum.org/v1/gonum/stat"
)

// This CLI tool loads the XM or MOD file and runs the player
// without any audio output. Every tick of the output is printed
// as a table row: one column per channel.

func main() {
	log.SetFlags(log.Lshortfile)

	numTicks := flag.Int("ticks", 0,
		"the number of ticks to run; 0 means until the song loops")
	printStats := flag.Bool("stats", false,
		"print per-channel output statistics")
	exportDir := flag.String("export", "",
		"write every sample into the specified directory as WAV")
	verbose := flag.Bool("v", false,
		"print the module loading log")
	quiet := flag.Bool("q", false,
		"don't print the per-tick trace")
	replayStyle := flag.String("replay", "",
		"override the replay style: ft2 or pt")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: xm7trace [flags] path/to/music.xm\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if len(flag.Args()) != 1 {
		flag.Usage()
		os.Exit(2)
	}
	filename := flag.Args()[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("read module: %v", err)
	}
	parserConfig := xmfile.ParserConfig{NeedStrings: true}
	if *verbose {
		parserConfig.Logger = log.New(os.Stderr, "xmfile: ", 0)
	}
	m, err := xmfile.NewParser(parserConfig).ParseFromBytes(data)
	if err != nil {
		log.Fatalf("parse %s: %v", filename, err)
	}

	fmt.Printf("%s %q: %d channels, %d patterns, %d instruments, %s frequencies\n",
		m.Format, m.Name, m.NumChannels, m.NumPatterns, m.NumInstruments, m.FrequencyTable())

	if *exportDir != "" {
		if err := exportSamples(m, *exportDir); err != nil {
			log.Fatalf("export samples: %v", err)
		}
	}

	sink := newTraceSink(m.NumChannels)
	p := xm7.NewPlayer(xm7.PlayerConfig{Sink: sink})
	if err := p.Load(m); err != nil {
		log.Fatalf("load module: %v", err)
	}
	defer p.Unload()

	switch *replayStyle {
	case "":
	case "ft2":
		p.SetReplayStyle(xm7.ReplayStyleFT2)
	case "pt":
		p.SetReplayStyle(xm7.ReplayStylePT)
	default:
		log.Fatalf("unknown replay style %q", *replayStyle)
	}

	looped := false
	var prevOrder int
	p.SetEventHandler(func(e xm7.Event) {
		switch e.Kind {
		case xm7.EventNote:
			sink.notes[e.Channel]++
		case xm7.EventOrder:
			order, _ := e.OrderEventData()
			if order <= prevOrder && e.Tick != 0 {
				looped = true
			}
			prevOrder = order
		}
	})

	if err := p.Play(); err != nil {
		log.Fatalf("play: %v", err)
	}

	printer := newTracePrinter(m.NumChannels)
	ticks := 0
	for {
		if *numTicks != 0 && ticks >= *numTicks {
			break
		}
		pos := p.Position()
		p.Tick()
		ticks++
		if !*quiet {
			printer.printTick(pos, sink)
		}
		sink.collect()
		if *numTicks == 0 && looped {
			break
		}
	}

	fmt.Printf("%d ticks, %.2f seconds\n", ticks, float64(ticks)*p.TickDuration().Seconds())
	if *printStats {
		sink.printStats()
	}
}

type channelState struct {
	freq    float64
	volume  uint8
	panning uint8
	active  bool
	started bool
}

// traceSink records the output of the most recent tick.
type traceSink struct {
	channels []channelState

	notes []int

	volumeHistory [][]float64
	freqHistory   [][]float64
}

func newTraceSink(numChannels int) *traceSink {
	return &traceSink{
		channels:      make([]channelState, numChannels),
		notes:         make([]int, numChannels),
		volumeHistory: make([][]float64, numChannels),
		freqHistory:   make([][]float64, numChannels),
	}
}

func (s *traceSink) SetFrequency(channel int, hz float64) {
	s.channels[channel].freq = hz
}

func (s *traceSink) SetVolume(channel int, volume uint8) {
	s.channels[channel].volume = volume
}

func (s *traceSink) SetPanning(channel int, panning uint8) {
	s.channels[channel].panning = panning
}

func (s *traceSink) StartSample(channel int, sample *xmfile.Sample, offset int) {
	s.channels[channel].active = true
	s.channels[channel].started = true
}

func (s *traceSink) StopChannel(channel int) {
	s.channels[channel] = channelState{}
}

func (s *traceSink) collect() {
	for i := range s.channels {
		ch := &s.channels[i]
		if ch.active {
			s.volumeHistory[i] = append(s.volumeHistory[i], float64(ch.volume))
			s.freqHistory[i] = append(s.freqHistory[i], ch.freq)
		}
		ch.started = false
	}
}

func (s *traceSink) printStats() {
	for i := range s.channels {
		if len(s.volumeHistory[i]) == 0 {
			fmt.Printf("channel %2d: silent\n", i)
			continue
		}
		volumeMean, volumeStd := stat.MeanStdDev(s.volumeHistory[i], nil)
		freqMean, freqStd := stat.MeanStdDev(s.freqHistory[i], nil)
		fmt.Printf("channel %2d: %5d notes, volume %5.1f ±%4.1f, frequency %8.1f ±%7.1f Hz\n",
			i, s.notes[i], volumeMean, volumeStd, freqMean, freqStd)
	}
}

type tracePrinter struct {
	numColumns int

	posColor    *color.Color
	startColor  *color.Color
	activeColor *color.Color
	idleColor   *color.Color
}

const columnWidth = len(" 12345.0 64 255 |")

func newTracePrinter(numChannels int) *tracePrinter {
	width := 80
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil {
			width = w
		}
	}
	numColumns := (width - len("000:00.00 |")) / columnWidth
	numColumns = max(1, min(numColumns, numChannels))

	return &tracePrinter{
		numColumns:  numColumns,
		posColor:    color.New(color.FgYellow),
		startColor:  color.New(color.FgGreen, color.Bold),
		activeColor: color.New(color.FgWhite),
		idleColor:   color.New(color.FgHiBlack),
	}
}

func (tp *tracePrinter) printTick(pos xm7.Cursor, sink *traceSink) {
	var sb strings.Builder
	sb.WriteString(tp.posColor.Sprintf("%03d:%02d.%02d", pos.Order, pos.Row, pos.Tick))
	sb.WriteString(" |")
	for i := 0; i < tp.numColumns; i++ {
		ch := sink.channels[i]
		switch {
		case !ch.active:
			sb.WriteString(tp.idleColor.Sprint("      ...  .   . "))
		case ch.started:
			sb.WriteString(tp.startColor.Sprintf(" %7.1f %2d %3d ", ch.freq, ch.volume, ch.panning))
		default:
			sb.WriteString(tp.activeColor.Sprintf(" %7.1f %2d %3d ", ch.freq, ch.volume, ch.panning))
		}
		sb.WriteString("|")
	}
	fmt.Println(sb.String())
}

func exportSamples(m *xmfile.Module, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	table := m.FrequencyTable()
	for i := range m.Instruments {
		inst := &m.Instruments[i]
		for j := range inst.Samples {
			s := &inst.Samples[j]
			if s.NumFrames() == 0 {
				continue
			}
			filename := filepath.Join(dir, fmt.Sprintf("%02d_%02d.wav", i+1, j))
			// The sample rate that makes C-4 sound like C-4.
			sampleRate := pitch.Resolve(table, 49, int(s.RelativeNote), int(s.Finetune))
			if err := writeSampleWav(filename, s, int(sampleRate)); err != nil {
				return fmt.Errorf("instrument %d sample %d: %w", i+1, j, err)
			}
		}
	}
	return nil
}

func writeSampleWav(filename string, s *xmfile.Sample, sampleRate int) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, s.NumFrames()),
		SourceBitDepth: 16,
	}
	if s.Is16bits() {
		for i, v := range s.Data16 {
			buf.Data[i] = int(v)
		}
	} else {
		for i, v := range s.Data8 {
			buf.Data[i] = int(v) << 8
		}
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
