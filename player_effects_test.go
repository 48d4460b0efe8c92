package xm7

import (
	"math"
	"testing"

	"github.com/quasilyte/xm7/internal/xmdb"
	"github.com/quasilyte/xm7/xmfile"
)

// collectFreq runs n ticks and returns the channel frequency after each one.
func collectFreq(p *Player, sink *recordingSink, channel, n int) []float64 {
	result := make([]float64, n)
	for i := range result {
		p.Tick()
		result[i] = sink.freq[channel]
	}
	return result
}

func collectVolume(p *Player, sink *recordingSink, channel, n int) []int {
	result := make([]int, n)
	for i := range result {
		p.Tick()
		result[i] = int(sink.volume[channel])
	}
	return result
}

func TestTonePortamento(t *testing.T) {
	m := newTestModule(1, 6,
		[]xmfile.PatternNote{{Note: 49, Instrument: 1}},
		[]xmfile.PatternNote{{Note: 61, EffectType: 0x03, EffectParameter: 0x10}},
		[]xmfile.PatternNote{{EffectType: 0x03}},
		[]xmfile.PatternNote{{EffectType: 0x03}},
	)
	p, sink := newTestPlayer(t, m)

	runTicks(p, 6)
	start := linearFreq(4608)
	target := linearFreq(3840)
	if math.Abs(sink.freq[0]-start) > 0.001 {
		t.Fatalf("unexpected start frequency: %f", sink.freq[0])
	}

	freqs := collectFreq(p, sink, 0, 18)
	prev := start
	for i, f := range freqs {
		if f < prev {
			t.Fatalf("tick %d: frequency went down: %f => %f", i, prev, f)
		}
		if f > target+0.001 {
			t.Fatalf("tick %d: overshoot: %f > %f", i, f, target)
		}
		prev = f
	}
	if math.Abs(freqs[len(freqs)-1]-target) > 0.001 {
		t.Fatalf("target is not reached: %f", freqs[len(freqs)-1])
	}
	if sink.started[0] != 1 {
		t.Fatalf("tone portamento should not retrigger the sample")
	}
}

func TestPortamentoLimits(t *testing.T) {
	m := newTestModule(1, 32,
		[]xmfile.PatternNote{{Note: 96, Instrument: 1, EffectType: 0x01, EffectParameter: 0xFF}},
	)
	p, sink := newTestPlayer(t, m)
	runTicks(p, 31)
	if p.Channel(0).Period != 50 {
		t.Fatalf("period is not clamped: %d", p.Channel(0).Period)
	}
	if math.Abs(sink.freq[0]-linearFreq(50)) > 0.001 {
		t.Fatalf("unexpected frequency: %f", sink.freq[0])
	}
}

func TestArpeggio(t *testing.T) {
	tests := []struct {
		style   ReplayStyle
		periods []int
	}{
		{ReplayStyleFT2, []int{4608, 4160, 4416, 4608, 4160, 4416}},
		{ReplayStylePT, []int{4608, 4416, 4160, 4608, 4416, 4160}},
	}

	for _, test := range tests {
		m := newTestModule(1, 6,
			[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x00, EffectParameter: 0x37}},
		)
		p, sink := newTestPlayer(t, m)
		p.SetReplayStyle(test.style)
		freqs := collectFreq(p, sink, 0, 6)
		for i, period := range test.periods {
			if math.Abs(freqs[i]-linearFreq(period)) > 0.001 {
				t.Fatalf("style=%d tick=%d: frequency mismatch:\nhave: %f\nwant: %f",
					test.style, i, freqs[i], linearFreq(period))
			}
		}
	}
}

func TestArpeggioWithoutNote(t *testing.T) {
	m := newTestModule(1, 6,
		[]xmfile.PatternNote{{EffectType: 0x00, EffectParameter: 0x37}},
	)
	p, sink := newTestPlayer(t, m)
	runTicks(p, 6)
	if len(sink.calls) != 0 {
		t.Fatalf("an idle channel produced %d sink calls", len(sink.calls))
	}
}

func TestTremor(t *testing.T) {
	m := newTestModule(1, 6,
		[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x1D, EffectParameter: 0x12}},
	)
	p, sink := newTestPlayer(t, m)
	have := collectVolume(p, sink, 0, 6)
	want := []int{64, 64, 0, 0, 0, 64}
	for i := range want {
		if have[i] != want[i] {
			t.Fatalf("volume mismatch:\nhave: %v\nwant: %v", have, want)
		}
	}
}

func TestVolumeEffects(t *testing.T) {
	tests := []struct {
		name   string
		volume uint8
		effect uint8
		param  uint8
		want   []int
	}{
		{"set volume", 0, 0x0C, 0x20, []int{32, 32, 32}},
		{"set volume clamp", 0, 0x0C, 0x50, []int{64, 64, 64}},
		{"slide down", 0, 0x0A, 0x04, []int{64, 60, 56}},
		{"slide up", 0x30, 0x0A, 0x30, []int{32, 35, 38}},
		{"fine slide down", 0, 0x0E, 0xB5, []int{59, 59, 59}},
		{"volume column slide", 0x63, 0, 0, []int{64, 61, 58}},
		{"volume column fine slide", 0x82, 0, 0, []int{62, 62, 62}},
		{"note cut", 0, 0x0E, 0xC2, []int{64, 64, 0}},
		{"global volume", 0, 0x10, 0x20, []int{32, 32, 32}},
		{"global slide", 0, 0x11, 0x08, []int{64, 56, 48}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestModule(1, 6, []xmfile.PatternNote{{
				Note:            49,
				Instrument:      1,
				Volume:          test.volume,
				EffectType:      test.effect,
				EffectParameter: test.param,
			}})
			p, sink := newTestPlayer(t, m)
			have := collectVolume(p, sink, 0, len(test.want))
			for i := range test.want {
				if have[i] != test.want[i] {
					t.Fatalf("volume mismatch:\nhave: %v\nwant: %v", have, test.want)
				}
			}
		})
	}
}

func TestKeyOff(t *testing.T) {
	envelope := xmfile.Envelope{
		Points: []xmfile.EnvelopePoint{{X: 0, Y: 64}, {X: 100, Y: 64}},
		Flags:  xmfile.EnvelopeOn,
	}

	tests := []struct {
		name     string
		envelope xmfile.Envelope
		want     []int
	}{
		{"no envelope", xmfile.Envelope{}, []int{64, 0, 0, 0}},
		{"fadeout", envelope, []int{64, 48, 32, 16, 0}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestModule(1, 1,
				[]xmfile.PatternNote{{Note: 49, Instrument: 1}},
				[]xmfile.PatternNote{{Note: xmfile.NoteKeyOff}},
				[]xmfile.PatternNote{},
				[]xmfile.PatternNote{},
				[]xmfile.PatternNote{},
				[]xmfile.PatternNote{},
			)
			m.Instruments[0].VolumeEnvelope = test.envelope
			m.Instruments[0].VolumeFadeout = 8192
			p, sink := newTestPlayer(t, m)
			have := collectVolume(p, sink, 0, len(test.want))
			for i := range test.want {
				if have[i] != test.want[i] {
					t.Fatalf("volume mismatch:\nhave: %v\nwant: %v", have, test.want)
				}
			}
			if p.Channel(0).KeyOn {
				t.Fatalf("key is still on")
			}
		})
	}
}

func TestKeyOffEffect(t *testing.T) {
	m := newTestModule(1, 6,
		[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x14, EffectParameter: 3}},
	)
	p, sink := newTestPlayer(t, m)
	have := collectVolume(p, sink, 0, 5)
	want := []int{64, 64, 64, 0, 0}
	for i := range want {
		if have[i] != want[i] {
			t.Fatalf("volume mismatch:\nhave: %v\nwant: %v", have, want)
		}
	}
}

func TestSampleOffset(t *testing.T) {
	tests := []struct {
		param  uint8
		offset int
		active bool
	}{
		{0x00, 0, true},
		{0x02, 512, true},
		{0x03, 768, true},
		{0x04, 0, false},
		{0x0A, 0, false},
	}

	for _, test := range tests {
		m := newTestModule(1, 6,
			[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x09, EffectParameter: test.param}},
		)
		p, sink := newTestPlayer(t, m)
		p.Tick()
		if p.Channel(0).Active != test.active {
			t.Fatalf("param=%02X: active mismatch:\nhave: %v\nwant: %v", test.param, p.Channel(0).Active, test.active)
		}
		if !test.active {
			if sink.stopped[0] != 1 {
				t.Fatalf("param=%02X: expected a stop call", test.param)
			}
			continue
		}
		if sink.offset[0] != test.offset {
			t.Fatalf("param=%02X: offset mismatch:\nhave: %d\nwant: %d", test.param, sink.offset[0], test.offset)
		}
	}
}

func TestSampleOffsetMemory(t *testing.T) {
	m := newTestModule(1, 1,
		[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x09, EffectParameter: 0x01}},
		[]xmfile.PatternNote{{Note: 49, EffectType: 0x09}},
	)
	p, sink := newTestPlayer(t, m)
	runTicks(p, 2)
	if sink.started[0] != 2 || sink.offset[0] != 256 {
		t.Fatalf("unexpected sample start: count=%d offset=%d", sink.started[0], sink.offset[0])
	}
}

func TestNoteDelay(t *testing.T) {
	m := newTestModule(1, 6,
		[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x0E, EffectParameter: 0xD3}},
	)
	p, sink := newTestPlayer(t, m)
	runTicks(p, 3)
	if sink.started[0] != 0 {
		t.Fatalf("the note was triggered too early")
	}
	p.Tick()
	if sink.started[0] != 1 {
		t.Fatalf("the note was not triggered on tick 3")
	}
}

func TestRetrigger(t *testing.T) {
	m := newTestModule(1, 6,
		[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x0E, EffectParameter: 0x92}},
	)
	p, sink := newTestPlayer(t, m)
	runTicks(p, 6)
	// The initial trigger plus ticks 2 and 4.
	if sink.started[0] != 3 {
		t.Fatalf("sample starts mismatch:\nhave: %d\nwant: 3", sink.started[0])
	}
}

func TestMultiRetrigger(t *testing.T) {
	m := newTestModule(1, 6,
		[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x1B, EffectParameter: 0x72}},
	)
	p, sink := newTestPlayer(t, m)
	have := collectVolume(p, sink, 0, 6)
	want := []int{64, 64, 32, 32, 16, 16}
	for i := range want {
		if have[i] != want[i] {
			t.Fatalf("volume mismatch:\nhave: %v\nwant: %v", have, want)
		}
	}
	if sink.started[0] != 3 {
		t.Fatalf("sample starts mismatch:\nhave: %d\nwant: 3", sink.started[0])
	}
}

func TestVibrato(t *testing.T) {
	m := newTestModule(1, 6,
		[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x04, EffectParameter: 0x8F}},
		[]xmfile.PatternNote{},
	)
	p, sink := newTestPlayer(t, m)
	freqs := collectFreq(p, sink, 0, 12)
	base := linearFreq(4608)
	if math.Abs(freqs[0]-base) > 0.001 {
		t.Fatalf("tick 0 should use the base frequency: %f", freqs[0])
	}
	if math.Abs(freqs[2]-base) < 0.001 {
		t.Fatalf("vibrato had no effect")
	}
	// The vibrato stops on the next row.
	for i := 6; i < 12; i++ {
		if math.Abs(freqs[i]-base) > 0.001 {
			t.Fatalf("tick %d: vibrato is still running", i)
		}
	}
}

func TestModulationResetsOnNewNote(t *testing.T) {
	t.Run("vibrato", func(t *testing.T) {
		m := newTestModule(1, 4,
			[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x04, EffectParameter: 0x8F}},
			[]xmfile.PatternNote{{Note: 61, Instrument: 1, EffectType: 0x04}},
		)
		p, sink := newTestPlayer(t, m)
		freqs := collectFreq(p, sink, 0, 5)
		if math.Abs(freqs[3]-linearFreq(4608)) < 0.001 {
			t.Fatalf("vibrato had no effect")
		}
		if math.Abs(freqs[4]-linearFreq(3840)) > 0.001 {
			t.Fatalf("new note frequency mismatch:\nhave: %f\nwant: %f", freqs[4], linearFreq(3840))
		}
	})

	t.Run("tremolo", func(t *testing.T) {
		m := newTestModule(1, 6,
			[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x07, EffectParameter: 0xCF}},
			[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x07}},
		)
		p, sink := newTestPlayer(t, m)
		have := collectVolume(p, sink, 0, 7)
		want := []int{64, 64, 64, 64, 41, 4, 64}
		for i := range want {
			if have[i] != want[i] {
				t.Fatalf("volume mismatch:\nhave: %v\nwant: %v", have, want)
			}
		}
	})
}

func TestPitchEffects(t *testing.T) {
	tests := []struct {
		name    string
		effect  uint8
		param   uint8
		periods []int
	}{
		{"portamento up", 0x01, 0x02, []int{4608, 4600, 4592, 4584}},
		{"portamento down", 0x02, 0x02, []int{4608, 4616, 4624, 4632}},
		{"fine portamento up", 0x0E, 0x12, []int{4600, 4600, 4600, 4600}},
		{"fine portamento down", 0x0E, 0x22, []int{4616, 4616, 4616, 4616}},
		{"extra fine portamento up", 0x21, 0x12, []int{4606, 4606, 4606, 4606}},
		{"extra fine portamento down", 0x21, 0x22, []int{4610, 4610, 4610, 4610}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestModule(1, 4, []xmfile.PatternNote{{
				Note:            49,
				Instrument:      1,
				EffectType:      test.effect,
				EffectParameter: test.param,
			}})
			p, sink := newTestPlayer(t, m)
			for i, want := range test.periods {
				p.Tick()
				if have := p.Channel(0).Period; have != want {
					t.Fatalf("tick %d: period mismatch:\nhave: %d\nwant: %d", i, have, want)
				}
				if math.Abs(sink.freq[0]-linearFreq(want)) > 0.001 {
					t.Fatalf("tick %d: frequency mismatch:\nhave: %f\nwant: %f", i, sink.freq[0], linearFreq(want))
				}
			}
		})
	}
}

func TestGlissando(t *testing.T) {
	tests := []struct {
		name    string
		param   uint8
		periods []int
	}{
		{"off", 0x30, []int{4608, 4584, 4560, 4536}},
		{"on", 0x31, []int{4608, 4608, 4544, 4544}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestModule(1, 4,
				[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x0E, EffectParameter: test.param}},
				[]xmfile.PatternNote{{Note: 61, EffectType: 0x03, EffectParameter: 0x06}},
			)
			p, sink := newTestPlayer(t, m)
			runTicks(p, 4)
			freqs := collectFreq(p, sink, 0, 4)
			for i, period := range test.periods {
				if math.Abs(freqs[i]-linearFreq(period)) > 0.001 {
					t.Fatalf("tick %d: frequency mismatch:\nhave: %f\nwant: %f", i, freqs[i], linearFreq(period))
				}
			}
			if p.Channel(0).Period != 4536 {
				t.Fatalf("glissando should not affect the slide itself: %d", p.Channel(0).Period)
			}
		})
	}
}

func TestWaveforms(t *testing.T) {
	tests := []struct {
		name     string
		waveform uint8
		effect   uint8
		param    uint8
		periods  []int
		volumes  []int
	}{
		{"vibrato sine", 0x40, 0x04, 0x44, []int{4608, 4608, 4620, 4630}, nil},
		{"vibrato ramp", 0x41, 0x04, 0x44, []int{4608, 4639, 4635, 4631}, nil},
		{"vibrato square", 0x42, 0x04, 0x44, []int{4608, 4639, 4639, 4639}, nil},
		{"tremolo sine", 0x70, 0x07, 0x48, nil, []int{32, 32, 44, 54}},
		{"tremolo ramp", 0x71, 0x07, 0x48, nil, []int{32, 63, 59, 55}},
		{"tremolo square", 0x72, 0x07, 0x48, nil, []int{32, 63, 63, 63}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestModule(1, 4,
				[]xmfile.PatternNote{{
					Note:            49,
					Instrument:      1,
					Volume:          0x30,
					EffectType:      0x0E,
					EffectParameter: test.waveform,
				}},
				[]xmfile.PatternNote{{EffectType: test.effect, EffectParameter: test.param}},
			)
			p, sink := newTestPlayer(t, m)
			runTicks(p, 4)
			for i := 0; i < 4; i++ {
				p.Tick()
				if test.periods != nil && math.Abs(sink.freq[0]-linearFreq(test.periods[i])) > 0.001 {
					t.Fatalf("tick %d: frequency mismatch:\nhave: %f\nwant: %f", i, sink.freq[0], linearFreq(test.periods[i]))
				}
				if test.volumes != nil && int(sink.volume[0]) != test.volumes[i] {
					t.Fatalf("tick %d: volume mismatch:\nhave: %d\nwant: %d", i, sink.volume[0], test.volumes[i])
				}
			}
		})
	}
}

func TestEffectCombos(t *testing.T) {
	tests := []struct {
		name    string
		rows    [][]xmfile.PatternNote
		periods []int
		volumes []int
	}{
		{
			name: "tone portamento and volume slide",
			rows: [][]xmfile.PatternNote{
				{{Note: 49, Instrument: 1}},
				{{Note: 61, EffectType: 0x03, EffectParameter: 0x10}},
				{{EffectType: 0x05, EffectParameter: 0x04}},
			},
			periods: []int{4416, 4352, 4288, 4224},
			volumes: []int{64, 60, 56, 52},
		},
		{
			name: "vibrato and volume slide",
			rows: [][]xmfile.PatternNote{
				{{Note: 49, Instrument: 1, EffectType: 0x04, EffectParameter: 0x44}},
				{{EffectType: 0x06, EffectParameter: 0x04}},
			},
			periods: []int{4608, 4637, 4639, 4637},
			volumes: []int{64, 60, 56, 52},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestModule(1, 4, test.rows...)
			p, sink := newTestPlayer(t, m)
			runTicks(p, 4*(len(test.rows)-1))
			for i := range test.periods {
				p.Tick()
				if math.Abs(sink.freq[0]-linearFreq(test.periods[i])) > 0.001 {
					t.Fatalf("tick %d: frequency mismatch:\nhave: %f\nwant: %f", i, sink.freq[0], linearFreq(test.periods[i]))
				}
				if int(sink.volume[0]) != test.volumes[i] {
					t.Fatalf("tick %d: volume mismatch:\nhave: %d\nwant: %d", i, sink.volume[0], test.volumes[i])
				}
			}
		})
	}
}

func TestFinetuneOverride(t *testing.T) {
	m := newTestModule(1, 6,
		[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x0E, EffectParameter: 0x5F}},
	)
	p, _ := newTestPlayer(t, m)
	p.Tick()
	// (0xF-8)*16 = 112 finetune units, 56 linear period units.
	if p.Channel(0).Period != 4608-56 {
		t.Fatalf("period mismatch:\nhave: %d\nwant: %d", p.Channel(0).Period, 4608-56)
	}
}

func TestPanning(t *testing.T) {
	tests := []struct {
		name   string
		volume uint8
		effect uint8
		param  uint8
		want   []int
	}{
		{"set panning", 0, 0x08, 0x40, []int{0x40, 0x40}},
		{"set panning coarse", 0, 0x0E, 0x8F, []int{255, 255}},
		{"volume column panning", 0xC4, 0, 0, []int{0x40, 0x40}},
		{"volume column panning center", 0xC8, 0, 0, []int{0x80, 0x80}},
		{"slide right", 0, 0x19, 0x20, []int{128, 130, 132}},
		{"slide left", 0, 0x19, 0x03, []int{128, 125, 122}},
		{"volume column slide", 0xD4, 0, 0, []int{128, 124}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestModule(1, 6, []xmfile.PatternNote{{
				Note:            49,
				Instrument:      1,
				Volume:          test.volume,
				EffectType:      test.effect,
				EffectParameter: test.param,
			}})
			p, sink := newTestPlayer(t, m)
			for i, want := range test.want {
				p.Tick()
				if int(sink.panning[0]) != want {
					t.Fatalf("tick %d: panning mismatch:\nhave: %d\nwant: %d", i, sink.panning[0], want)
				}
			}
		})
	}
}

func TestPanningEnvelope(t *testing.T) {
	m := newTestModule(1, 6, []xmfile.PatternNote{{Note: 49, Instrument: 1}})
	m.Instruments[0].PanningEnvelope = xmfile.Envelope{
		Points: []xmfile.EnvelopePoint{{X: 0, Y: 0}, {X: 10, Y: 0}},
		Flags:  xmfile.EnvelopeOn,
	}
	p, sink := newTestPlayer(t, m)
	p.Tick()
	if sink.panning[0] != 0 {
		t.Fatalf("panning mismatch:\nhave: %d\nwant: 0", sink.panning[0])
	}
}

func TestAmigaPanning(t *testing.T) {
	m := newTestModule(4, 6, []xmfile.PatternNote{
		{Note: 49, Instrument: 1, EffectType: 0x08, EffectParameter: 0xFF},
		{Note: 49, Instrument: 1},
		{Note: 49, Instrument: 1},
		{Note: 49, Instrument: 1},
	})
	m.Format = xmfile.FormatMOD
	m.Flags = 0
	p, sink := newTestPlayer(t, m)

	if style, displacement := p.PanningStyle(); style != PanningAmiga || displacement != PanningDisplacementDefault {
		t.Fatalf("unexpected MOD panning defaults: %v %d", style, displacement)
	}
	if p.ReplayStyle() != ReplayStylePT {
		t.Fatalf("unexpected MOD replay style: %v", p.ReplayStyle())
	}

	p.Tick()
	want := []uint8{84, 171, 171, 84}
	for i := range want {
		if sink.panning[i] != want[i] {
			t.Fatalf("channel %d: panning mismatch:\nhave: %d\nwant: %d", i, sink.panning[i], want[i])
		}
	}
	if math.Abs(sink.freq[0]-8363) > 0.001 {
		t.Fatalf("unexpected Amiga C-4 frequency: %f", sink.freq[0])
	}

	p.SetPanningStyle(PanningAmiga, PanningDisplacementHard)
	p.Tick()
	want = []uint8{0, 255, 255, 0}
	for i := range want {
		if sink.panning[i] != want[i] {
			t.Fatalf("channel %d: hard panning mismatch:\nhave: %d\nwant: %d", i, sink.panning[i], want[i])
		}
	}

	p.SetPanningStyle(PanningAmiga, PanningDisplacementMono)
	p.Tick()
	for i := 0; i < 4; i++ {
		if sink.panning[i] != 128 && sink.panning[i] != 127 {
			t.Fatalf("channel %d: mono panning mismatch: %d", i, sink.panning[i])
		}
	}
}

func TestInstrumentWithoutNote(t *testing.T) {
	tests := []struct {
		style     ReplayStyle
		wantStart int
	}{
		{ReplayStyleFT2, 1},
		{ReplayStyleFT2 | ReplayOnTheFlySampleChange, 2},
		{ReplayStylePT, 2},
	}

	for _, test := range tests {
		m := newTestModule(1, 1,
			[]xmfile.PatternNote{{Note: 49, Instrument: 1, EffectType: 0x0C, EffectParameter: 0x10}},
			[]xmfile.PatternNote{{Instrument: 2}},
		)
		m.Instruments = append(m.Instruments, m.Instruments[0])
		m.NumInstruments = 2
		p, sink := newTestPlayer(t, m)
		p.SetReplayStyle(test.style)
		runTicks(p, 2)
		if sink.started[0] != test.wantStart {
			t.Fatalf("style=%d: sample starts mismatch:\nhave: %d\nwant: %d", test.style, sink.started[0], test.wantStart)
		}
		// The volume is restored from the sample.
		if p.Channel(0).Volume != 64 {
			t.Fatalf("style=%d: volume mismatch:\nhave: %d\nwant: 64", test.style, p.Channel(0).Volume)
		}
	}
}

func TestMissingInstrument(t *testing.T) {
	m := newTestModule(1, 1,
		[]xmfile.PatternNote{{Note: 49, Instrument: 1}},
		[]xmfile.PatternNote{{Note: 50, Instrument: 9}},
	)
	p, sink := newTestPlayer(t, m)
	runTicks(p, 2)
	if p.Channel(0).Active || sink.stopped[0] != 1 {
		t.Fatalf("a missing instrument should stop the channel")
	}
}

func TestEffectMemory(t *testing.T) {
	var ch channel
	ch.Reset(0, 128)

	steps := []struct {
		op   xmdb.EffectOp
		arg  uint8
		want uint8
	}{
		{xmdb.EffectPortamentoUp, 0x02, 0x02},
		{xmdb.EffectVolumeSlide, 0x04, 0x04},
		{xmdb.EffectPortamentoUp, 0x00, 0x02},
		{xmdb.EffectVolumeSlide, 0x00, 0x04},
		{xmdb.EffectPortamentoDown, 0x00, 0x00},
		{xmdb.EffectVibratoVolumeSlide, 0x00, 0x04},
		{xmdb.EffectVibrato, 0x34, 0x34},
		{xmdb.EffectVibrato, 0x05, 0x35},
		{xmdb.EffectVibrato, 0x60, 0x65},
		{xmdb.EffectTremolo, 0x00, 0x00},
		{xmdb.EffectSetVolume, 0x00, 0x00},
	}
	for i, step := range steps {
		have := ch.effectParam(xmdb.Effect{Op: step.op, Arg: step.arg})
		if have != step.want {
			t.Fatalf("step %d: param mismatch:\nhave: %02X\nwant: %02X", i, have, step.want)
		}
	}

	if have := ch.volumeEffectParam(xmdb.Effect{Op: xmdb.EffectSetVibratoSpeed, Arg: 7}); have != 7 {
		t.Fatalf("vibrato speed mismatch: %d", have)
	}
	if ch.memory[xmdb.SlotVibrato] != 0x75 {
		t.Fatalf("vibrato memory mismatch: %02X", ch.memory[xmdb.SlotVibrato])
	}
	if have := ch.volumeEffectParam(xmdb.Effect{Op: xmdb.EffectVolumeSlideDown, Arg: 0}); have != 0 {
		t.Fatalf("volume column slides should have no memory")
	}
}
