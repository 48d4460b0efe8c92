package xm7

type numeric interface {
	uint8 | int | float64
}

func clampMin[T numeric](v, min T) T {
	if v < min {
		return min
	}
	return v
}

func clampMax[T numeric](v, max T) T {
	if v > max {
		return max
	}
	return v
}

func clamp[T numeric](v, min, max T) T {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func envelopeLerp(a, b envelopePoint, frame int) int {
	if frame <= a.frame {
		return a.value
	}
	if frame >= b.frame {
		return b.value
	}
	return a.value + (b.value-a.value)*(frame-a.frame)/(b.frame-a.frame)
}
