package bozorth3

import "sort"

// rangeUnset marks an empty lookup slot.
const rangeUnset = ^uint32(0)

// pairRange is a half-open [begin, end) range into one of the sorted pair
// views.
type pairRange struct {
	begin, end uint32
}

func (r pairRange) valid() bool {
	return r.begin != rangeUnset && r.end != rangeUnset
}

// PairHolder stores candidate pairs in two sorted views with constant-time
// lookup by endpoint:
//
//   - forward holds the pairs sorted stably by (ProbeK, GalleryK, ProbeJ);
//   - backward holds indices into forward, sorted by (ProbeJ, GalleryJ,
//     index).
//
// Two MaxBozorthMinutiae² lookup tables map a (probe, gallery) endpoint to
// the run of pairs that starts (forward) or ends (backward) there. The
// tables are large, so allocate one holder per worker and Clear it between
// matches instead of reallocating.
type PairHolder struct {
	forward       []Pair
	backward      []uint32
	forwardCache  []pairRange
	backwardCache []pairRange
	dirty         bool
}

// NewPairHolder allocates an empty holder with its lookup tables.
func NewPairHolder() *PairHolder {
	h := &PairHolder{
		forwardCache:  make([]pairRange, MaxBozorthMinutiae*MaxBozorthMinutiae),
		backwardCache: make([]pairRange, MaxBozorthMinutiae*MaxBozorthMinutiae),
	}
	h.Clear()
	return h
}

// Add appends a pair. Pairs beyond MaxNumberOfPairs are dropped; the
// bound is a truncation limit, not an error.
func (h *PairHolder) Add(pair Pair) {
	if len(h.forward) == MaxNumberOfPairs {
		return
	}
	h.forward = append(h.forward, pair)
	h.dirty = true
}

// Empty reports whether the holder has no pairs.
func (h *PairHolder) Empty() bool {
	return len(h.forward) == 0
}

// Pairs returns the forward-sorted pair view. Valid only after Prepare.
func (h *PairHolder) Pairs() []Pair {
	return h.forward
}

// Clear drops all pairs and resets both lookup tables.
func (h *PairHolder) Clear() {
	h.forward = h.forward[:0]
	h.backward = h.backward[:0]
	for i := range h.forwardCache {
		h.forwardCache[i] = pairRange{begin: rangeUnset, end: rangeUnset}
	}
	for i := range h.backwardCache {
		h.backwardCache[i] = pairRange{begin: rangeUnset, end: rangeUnset}
	}
	h.dirty = true
}

// Prepare sorts both views and fills the lookup tables. It must run after
// the last Add and before the first lookup.
func (h *PairHolder) Prepare() {
	if !h.dirty {
		return
	}
	h.dirty = false
	if len(h.forward) == 0 {
		return
	}

	sort.SliceStable(h.forward, func(i, j int) bool {
		left, right := &h.forward[i], &h.forward[j]
		if left.ProbeK != right.ProbeK {
			return left.ProbeK < right.ProbeK
		}
		if left.GalleryK != right.GalleryK {
			return left.GalleryK < right.GalleryK
		}
		return left.ProbeJ < right.ProbeJ
	})

	runStart := 0
	for i := 1; i <= len(h.forward); i++ {
		if i == len(h.forward) ||
			h.forward[i].ProbeK != h.forward[runStart].ProbeK ||
			h.forward[i].GalleryK != h.forward[runStart].GalleryK {
			key := h.forward[runStart].ProbeK*MaxBozorthMinutiae + h.forward[runStart].GalleryK
			h.forwardCache[key] = pairRange{begin: uint32(runStart), end: uint32(i)}
			runStart = i
		}
	}

	h.backward = h.backward[:0]
	if cap(h.backward) < len(h.forward) {
		h.backward = make([]uint32, 0, len(h.forward))
	}
	for i := range h.forward {
		h.backward = append(h.backward, uint32(i))
	}

	// The trailing index comparison makes the order total, so a plain
	// sort is deterministic here.
	sort.Slice(h.backward, func(i, j int) bool {
		left, right := &h.forward[h.backward[i]], &h.forward[h.backward[j]]
		if left.ProbeJ != right.ProbeJ {
			return left.ProbeJ < right.ProbeJ
		}
		if left.GalleryJ != right.GalleryJ {
			return left.GalleryJ < right.GalleryJ
		}
		return h.backward[i] < h.backward[j]
	})

	runStart = 0
	for i := 1; i <= len(h.backward); i++ {
		if i == len(h.backward) ||
			h.forward[h.backward[i]].ProbeJ != h.forward[h.backward[runStart]].ProbeJ ||
			h.forward[h.backward[i]].GalleryJ != h.forward[h.backward[runStart]].GalleryJ {
			key := h.forward[h.backward[runStart]].ProbeJ*MaxBozorthMinutiae + h.forward[h.backward[runStart]].GalleryJ
			h.backwardCache[key] = pairRange{begin: uint32(runStart), end: uint32(i)}
			runStart = i
		}
	}
}

// FindPairsByFirstEndpoint visits every pair whose first endpoint is
// (probeEndpoint, galleryEndpoint) and whose forward index is at least
// offset, passing the pair's index and second endpoint to visit. It
// returns the exclusive upper bound of the scanned range; the caller uses
// that as the offset of subsequent scans so already-visited pairs are not
// revisited.
func (h *PairHolder) FindPairsByFirstEndpoint(offset, probeEndpoint, galleryEndpoint int, visit func(index, probeJ, galleryJ int)) int {
	r := h.forwardCache[probeEndpoint*MaxBozorthMinutiae+galleryEndpoint]
	if !r.valid() {
		return offset
	}
	for i := int(r.begin); i < int(r.end); i++ {
		if i >= offset {
			visit(i, h.forward[i].ProbeJ, h.forward[i].GalleryJ)
		}
	}
	return int(r.end)
}

// FindPairsBySecondEndpoint visits every pair whose second endpoint is
// (probeEndpoint, galleryEndpoint) and whose forward index is at least
// offset, passing the pair's index and first endpoint to visit.
func (h *PairHolder) FindPairsBySecondEndpoint(offset, probeEndpoint, galleryEndpoint int, visit func(index, probeK, galleryK int)) {
	r := h.backwardCache[probeEndpoint*MaxBozorthMinutiae+galleryEndpoint]
	if !r.valid() {
		return
	}
	for i := int(r.begin); i < int(r.end); i++ {
		index := int(h.backward[i])
		if index >= offset {
			visit(index, h.forward[index].ProbeK, h.forward[index].GalleryK)
		}
	}
}
