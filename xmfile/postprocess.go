package xmfile

// postprocessSamples prepares the samples for the output hardware.
//
// The hardware can only play forward loops, so ping-pong loops are unrolled:
// the loop segment is followed by its reversed copy.
// After that, loop points and the sample length are aligned.
func (p *parser) postprocessSamples() {
	for i := range p.module.Instruments {
		p.stageIndex = i
		inst := &p.module.Instruments[i]
		p.startSubStage("sample")
		for j := range inst.Samples {
			p.subStageIndex = j
			sample := &inst.Samples[j]
			if sample.LoopType == SampleLoopPingPong {
				p.unrollPingPong(sample)
			}
			p.alignSample(sample)
		}
	}
}

func (p *parser) unrollPingPong(sample *Sample) {
	loopStart, loopLength := sample.LoopFrames()
	loopEnd := loopStart + loopLength
	if sample.Is16bits() {
		p.alloc(loopLength*2, "ping-pong loop")
		sample.Data16 = unrollLoop(sample.Data16, loopStart, loopEnd)
	} else {
		p.alloc(loopLength, "ping-pong loop")
		sample.Data8 = unrollLoop(sample.Data8, loopStart, loopEnd)
	}
	sample.LoopLength *= 2
	sample.Length = sample.LoopStart + sample.LoopLength
	sample.LoopType = SampleLoopForward
}

func unrollLoop[T int8 | int16](data []T, loopStart, loopEnd int) []T {
	result := make([]T, loopEnd+(loopEnd-loopStart))
	copy(result, data[:loopEnd])
	k := loopEnd
	for i := loopEnd - 1; i >= loopStart; i-- {
		result[k] = data[i]
		k++
	}
	return result
}

func (p *parser) alignSample(sample *Sample) {
	align := p.config.SampleAlignment
	if align <= 1 {
		return
	}

	if sample.LoopType != SampleLoopNone {
		loopStart := alignDown(sample.LoopStart, align)
		loopLength := alignDown(sample.LoopLength, align)
		if loopLength == 0 {
			loopLength = align
		}
		if loopStart != sample.LoopStart || loopLength != sample.LoopLength {
			p.logf("%s: loop [%d, +%d] is not aligned, moved to [%d, +%d]",
				p.formatStage(), sample.LoopStart, sample.LoopLength, loopStart, loopLength)
			sample.Detuned = true
		}
		sample.LoopStart = loopStart
		sample.LoopLength = loopLength
		sample.Length = max(sample.Length, loopStart+loopLength)
	}

	length := alignUp(sample.Length, align)
	if length == sample.Length && sample.NumFrames()*bytesPerFrame(sample) == length {
		return
	}
	sample.Length = length
	if sample.Is16bits() {
		sample.Data16 = padData(sample.Data16, length/2)
	} else {
		sample.Data8 = padData(sample.Data8, length)
	}
}

func bytesPerFrame(sample *Sample) int {
	if sample.Is16bits() {
		return 2
	}
	return 1
}

func padData[T int8 | int16](data []T, n int) []T {
	if len(data) >= n {
		return data[:n]
	}
	padded := make([]T, n)
	copy(padded, data)
	return padded
}
