package lifecycle

// Batch remembers which assets a single request has already named. Assets are
// keyed by their stable id, so the same asset entered under different casing
// or via a scan and a manual entry is still recognised as a repeat.
type Batch struct {
	seen map[string]struct{}
}

// NewBatch returns an empty batch.
func NewBatch(size int) *Batch {
	if size < 0 {
		size = 0
	}
	return &Batch{seen: make(map[string]struct{}, size)}
}

// Mark records assetID and reports whether it had been recorded before.
func (b *Batch) Mark(assetID string) (duplicate bool) {
	if b == nil || assetID == "" {
		return false
	}
	if _, ok := b.seen[assetID]; ok {
		return true
	}
	b.seen[assetID] = struct{}{}
	return false
}

// Len returns the number of distinct assets recorded.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.seen)
}
