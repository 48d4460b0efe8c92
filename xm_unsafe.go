package xm7

import (
	"unsafe"
)

func moduleSize(m *module) uint {
	memoryUsage := 0
	if m.raw != nil {
		for i := range m.raw.Instruments {
			for _, s := range m.raw.Instruments[i].Samples {
				memoryUsage += len(s.Data8) + len(s.Data16)*2
			}
		}
	}
	for _, inst := range m.instruments {
		memoryUsage += int(unsafe.Sizeof(inst))
		memoryUsage += (len(inst.volumeEnvelope.points) + len(inst.panningEnvelope.points)) * int(unsafe.Sizeof(envelopePoint{}))
	}
	for _, p := range m.patterns {
		memoryUsage += int(unsafe.Sizeof(pattern{}))
		memoryUsage += len(p.notes) * int(unsafe.Sizeof(patternNote{}))
	}
	memoryUsage += len(m.patternOrder) * int(unsafe.Sizeof(&pattern{}))

	return uint(memoryUsage)
}
