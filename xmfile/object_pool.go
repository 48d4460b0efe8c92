package xmfile

// objectPool hands out sub-slices of bigger chunks.
//
// Patterns consist of many small slices (one per row),
// allocating them from chunks makes loading a module a lot cheaper.
// Slices never overlap, so the module can own them as usual.
type objectPool[T any] struct {
	chunk     []T
	chunkSize int
}

func initObjectPool[T any](p *objectPool[T], chunkSize int) {
	p.chunk = nil
	p.chunkSize = chunkSize
}

func (p *objectPool[T]) MakeSlice(n int) []T {
	if n > p.chunkSize {
		// This memory block can't fit in any chunk,
		// so allocate it here right away.
		return make([]T, n)
	}

	if len(p.chunk) < n {
		// The rest of the current chunk is wasted,
		// but it's never bigger than n.
		p.chunk = make([]T, p.chunkSize)
	}

	// Limit the capacity so appending to the result
	// would never touch the neighbouring slices.
	slice := p.chunk[:n:n]
	p.chunk = p.chunk[n:]
	return slice
}
