package xm7

// envelopeRunner walks the envelope one tick at a time.
//
// value() is a pure function of the current frame,
// only advance() moves the cursor.
type envelopeRunner struct {
	*envelope

	frame int
}

func (r *envelopeRunner) reset(e *envelope) {
	r.envelope = e
	r.frame = 0
}

func (r *envelopeRunner) isOn() bool {
	return r.envelope != nil && r.flags.IsOn()
}

// value returns the envelope value (0-64) at the current frame.
// defaultValue is returned when the envelope is disabled.
func (r *envelopeRunner) value(defaultValue int) int {
	if !r.isOn() {
		return defaultValue
	}
	points := r.points
	if r.frame <= points[0].frame {
		return points[0].value
	}
	for i := 0; i < len(points)-1; i++ {
		a := points[i]
		b := points[i+1]
		if r.frame < b.frame {
			return envelopeLerp(a, b, r.frame)
		}
	}
	return points[len(points)-1].value
}

func (r *envelopeRunner) advance(keyOn bool) {
	if !r.isOn() {
		return
	}
	if keyOn && r.flags.SustainEnabled() && r.frame == r.sustainFrame {
		return
	}
	if r.flags.LoopEnabled() && r.frame >= r.loopEndFrame {
		r.frame = r.loopStartFrame
		return
	}
	if r.frame < r.lastFrame() {
		r.frame++
	}
}

func (r *envelopeRunner) setPosition(frame int) {
	if !r.isOn() {
		return
	}
	r.frame = clamp(frame, 0, r.lastFrame())
}
