package bozorth3

// EndpointAssociator maintains the injective probe-to-gallery endpoint
// mapping built while a cluster grows. Both directions are stored in flat
// arrays with 1-based encoding: slot value 0 means unassigned, value n
// means partner index n-1. The arrays are allocated once per worker and
// zeroed between matches.
type EndpointAssociator struct {
	probeByGallery []uint32
	galleryByProbe []uint32
}

// NewEndpointAssociator allocates an associator sized for
// MaxNumberOfEndpoints on each side.
func NewEndpointAssociator() *EndpointAssociator {
	return &EndpointAssociator{
		probeByGallery: make([]uint32, MaxNumberOfEndpoints),
		galleryByProbe: make([]uint32, MaxNumberOfEndpoints),
	}
}

// Associate records probeEndpoint <-> galleryEndpoint, overwriting either
// side's previous partner slot.
func (a *EndpointAssociator) Associate(probeEndpoint, galleryEndpoint int) {
	a.probeByGallery[galleryEndpoint] = uint32(probeEndpoint + 1)
	a.galleryByProbe[probeEndpoint] = uint32(galleryEndpoint + 1)
}

// ClearByProbe removes the association of probeEndpoint, if any, from
// both sides.
func (a *EndpointAssociator) ClearByProbe(probeEndpoint int) {
	if value := a.galleryByProbe[probeEndpoint]; value != 0 {
		a.probeByGallery[value-1] = 0
		a.galleryByProbe[probeEndpoint] = 0
	}
}

// ProbeFor returns the probe endpoint associated with galleryEndpoint.
func (a *EndpointAssociator) ProbeFor(galleryEndpoint int) (int, bool) {
	endpoint := a.probeByGallery[galleryEndpoint]
	if endpoint == 0 {
		return 0, false
	}
	return int(endpoint - 1), true
}

// GalleryFor returns the gallery endpoint associated with probeEndpoint.
func (a *EndpointAssociator) GalleryFor(probeEndpoint int) (int, bool) {
	endpoint := a.galleryByProbe[probeEndpoint]
	if endpoint == 0 {
		return 0, false
	}
	return int(endpoint - 1), true
}

// AreClearOrMutuallyAssociated reports whether the two endpoints can be
// associated without conflict: either both are free, or they are already
// each other's partner.
func (a *EndpointAssociator) AreClearOrMutuallyAssociated(probeEndpoint, galleryEndpoint int) bool {
	associatedGallery := a.galleryByProbe[probeEndpoint]
	associatedProbe := a.probeByGallery[galleryEndpoint]
	if associatedGallery == 0 && associatedProbe == 0 {
		return true
	}
	return associatedGallery == uint32(galleryEndpoint+1) && associatedProbe == uint32(probeEndpoint+1)
}

// Clear resets every slot on both sides.
func (a *EndpointAssociator) Clear() {
	for i := range a.probeByGallery {
		a.probeByGallery[i] = 0
	}
	for i := range a.galleryByProbe {
		a.galleryByProbe[i] = 0
	}
}

// restoredMarker flags a pair that was pulled back out of a failed
// cluster attempt. It is deliberately nonzero: a restored pair still
// reads as assigned, which keeps the outer growth loop from reseeding
// it. That selection memory is part of the reference behavior.
const restoredMarker = -1

// ClusterAssigner maps pair index to cluster index in a flat array with
// 1-based encoding (0 = unassigned).
type ClusterAssigner struct {
	clusterByPair []int32
}

// NewClusterAssigner allocates an assigner sized for MaxNumberOfPairs.
func NewClusterAssigner() *ClusterAssigner {
	return &ClusterAssigner{clusterByPair: make([]int32, MaxNumberOfPairs)}
}

// Cluster returns the cluster assigned to pairIndex. A restored pair
// reports true with a meaningless index; callers only rely on the
// boolean.
func (c *ClusterAssigner) Cluster(pairIndex int) (int, bool) {
	cluster := c.clusterByPair[pairIndex]
	if cluster == 0 {
		return 0, false
	}
	return int(cluster) - 1, true
}

// Has reports whether pairIndex is assigned to exactly cluster.
func (c *ClusterAssigner) Has(pairIndex, cluster int) bool {
	return c.clusterByPair[pairIndex] == int32(cluster+1)
}

// Assign records pairIndex as a member of cluster.
func (c *ClusterAssigner) Assign(pairIndex, cluster int) {
	c.clusterByPair[pairIndex] = int32(cluster + 1)
}

// Restore marks pairIndex as removed from a discarded cluster attempt.
func (c *ClusterAssigner) Restore(pairIndex int) {
	c.clusterByPair[pairIndex] = restoredMarker
}

// Clear resets every slot.
func (c *ClusterAssigner) Clear() {
	for i := range c.clusterByPair {
		c.clusterByPair[i] = 0
	}
}

// AngleAverager accumulates angles in degrees and produces the
// fixed-precision circular mean used throughout the matcher. Positive and
// negative inputs are summed separately and the wrap-around correction is
// applied in single precision. This is not a true circular mean; the
// branches must stay exactly as written for score compatibility.
type AngleAverager struct {
	sumOfNegative    int
	numberOfNegative int
	sumOfPositive    int
	numberOfPositive int
}

// Push adds one angle to the running sums.
func (a *AngleAverager) Push(value int) {
	if value < 0 {
		a.sumOfNegative += value
		a.numberOfNegative++
	} else {
		a.sumOfPositive += value
		a.numberOfPositive++
	}
}

// Average folds the accumulated sums into one integer angle in
// (-180, 180].
func (a *AngleAverager) Average() int {
	negatives := a.numberOfNegative
	if negatives == 0 {
		negatives = 1
	}
	positives := a.numberOfPositive
	if positives == 0 {
		positives = 1
	}
	total := a.numberOfPositive + a.numberOfNegative

	fi := float32(a.sumOfPositive)/float32(positives) - float32(a.sumOfNegative)/float32(negatives)
	if fi > 180 {
		fi = float32(a.sumOfPositive+a.sumOfNegative+negatives*360) / float32(total)
		if fi > 180 {
			fi -= 360
		}
	} else {
		fi = float32(a.sumOfPositive+a.sumOfNegative) / float32(total)
	}

	average := rounded(fi)
	if average <= -180 {
		average += 360
	}
	return average
}
