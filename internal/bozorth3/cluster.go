package bozorth3

// Cluster is one locally coherent alignment hypothesis: a set of mutually
// endpoint-consistent pairs whose rotation estimates agree within
// tolerance. Points is the sum of the member pairs' points;
// PointsFromCompatible additionally counts every cluster found compatible
// during the merge pass. Compatible lists the indices of those clusters in
// ascending order.
type Cluster struct {
	Points               int
	PointsFromCompatible int
	Compatible           []int
}

// ClusterAverages summarizes a cluster for the compatibility checks: the
// mean rotation estimate and the mean first-endpoint coordinates on each
// side.
type ClusterAverages struct {
	DeltaTheta int
	ProbeX     int
	ProbeY     int
	GalleryX   int
	GalleryY   int
}

// endpointBitset tracks which minutia indices a cluster touches.
type endpointBitset [(MaxBozorthMinutiae + 63) / 64]uint64

func (b *endpointBitset) set(i int) {
	b[i/64] |= 1 << uint(i%64)
}

func (b *endpointBitset) intersects(other *endpointBitset) bool {
	for i := range b {
		if b[i]&other[i] != 0 {
			return true
		}
	}
	return false
}

// ClusterEndpoints holds the probe- and gallery-side endpoint bitsets of
// one cluster.
type ClusterEndpoints struct {
	Probe   endpointBitset
	Gallery endpointBitset
}

func haveCommonEndpoints(first, second *ClusterEndpoints) bool {
	return first.Probe.intersects(&second.Probe) || first.Gallery.intersects(&second.Gallery)
}

// Clusters keeps the per-cluster records in parallel slices indexed by
// cluster number.
type Clusters struct {
	Clusters  []Cluster
	Averages  []ClusterAverages
	Endpoints []ClusterEndpoints
}

func (c *Clusters) Len() int {
	return len(c.Clusters)
}

func (c *Clusters) Clear() {
	c.Clusters = c.Clusters[:0]
	c.Averages = c.Averages[:0]
	c.Endpoints = c.Endpoints[:0]
}

func (c *Clusters) append(cluster Cluster, averages ClusterAverages, endpoints ClusterEndpoints) {
	c.Clusters = append(c.Clusters, cluster)
	c.Averages = append(c.Averages, averages)
	c.Endpoints = append(c.Endpoints, endpoints)
}

type endpointType uint8

const (
	endpointTypeProbe endpointType = iota
	endpointTypeGallery
)

// endpointGroup is one backtracking frame: a fixed endpoint on one side
// and the candidate partners on the other side. index selects the
// candidate currently tried; toClear remembers the probe endpoint this
// frame associated so a rollback can undo it (-1 when it holds none).
type endpointGroup struct {
	endpoint  int
	kind      endpointType
	index     int
	endpoints []int
	toClear   int
}

// currentPair resolves the frame's active (probe, gallery) endpoint pair.
func (g *endpointGroup) currentPair() (probeEndpoint, galleryEndpoint int) {
	if g.kind == endpointTypeGallery {
		return g.endpoints[g.index], g.endpoint
	}
	return g.endpoint, g.endpoints[g.index]
}

// State is the per-worker scratch for cluster growth and combination.
// Allocate once with NewState, Clear between matches. A match mutates it
// heavily; it must not be shared between goroutines.
type State struct {
	clusters      Clusters
	associator    *EndpointAssociator
	assigner      *ClusterAssigner
	groups        []endpointGroup
	selectedPairs []int
	endpoints     []int
}

// NewState allocates the scratch arrays at their maximum sizes.
func NewState() *State {
	return &State{
		associator: NewEndpointAssociator(),
		assigner:   NewClusterAssigner(),
	}
}

// Clear resets all scratch for the next match.
func (s *State) Clear() {
	s.clusters.Clear()
	s.associator.Clear()
	s.assigner.Clear()
	s.groups = s.groups[:0]
	s.selectedPairs = s.selectedPairs[:0]
	s.endpoints = s.endpoints[:0]
}

// associateEndpointsOfAllGroups walks the group stack back to front and
// associates each frame's current candidate. On the first conflict it
// undoes the associations made by the frames behind the conflicting one
// and reports failure.
func associateEndpointsOfAllGroups(groups []endpointGroup, associator *EndpointAssociator) bool {
	for groupIndex := len(groups) - 1; groupIndex >= 0; groupIndex-- {
		probeEndpoint, galleryEndpoint := groups[groupIndex].currentPair()

		if associator.AreClearOrMutuallyAssociated(probeEndpoint, galleryEndpoint) {
			associator.Associate(probeEndpoint, galleryEndpoint)
			groups[groupIndex].toClear = probeEndpoint
		} else {
			for i := groupIndex + 1; i < len(groups); i++ {
				if old := groups[i].toClear; old >= 0 {
					groups[i].toClear = -1
					associator.ClearByProbe(old)
				}
			}
			return false
		}
	}
	return true
}

// tryAssociateAmbiguousEndpoints advances the group stack to its next
// consistent assignment. Frames are advanced from the back; a frame whose
// candidates are exhausted is reset to its first candidate and the frame
// before it is advanced instead. The first candidate of each frame is
// skipped here because it was already associated when the frame was
// created. Returns false when every combination has been tried.
func tryAssociateAmbiguousEndpoints(groups []endpointGroup, associator *EndpointAssociator) bool {
	for groupIndex := len(groups) - 1; groupIndex >= 0; {
		group := &groups[groupIndex]
		if group.index+1 < len(group.endpoints) {
			group.index++

			if associateEndpointsOfAllGroups(groups, associator) {
				return true
			}

			groupIndex = len(groups) - 1
		} else {
			group.index = 0
			groupIndex--
		}
	}
	return false
}

// associateMultipleCompatibleEndpoints records an ambiguous endpoint: the
// fixed endpoint already has a partner and a pair proposes another one.
// An existing frame for the same endpoint gains the new candidate;
// otherwise a fresh frame starts with the existing partner first so the
// current assignment is tried before any alternative.
func associateMultipleCompatibleEndpoints(kind endpointType, endpoint, existingEndpoint, newEndpoint int, groups *[]endpointGroup) {
	for i := range *groups {
		group := &(*groups)[i]
		if group.kind != kind || group.endpoint != endpoint {
			continue
		}
		for _, candidate := range group.endpoints {
			if candidate == newEndpoint {
				return
			}
		}
		group.endpoints = append(group.endpoints, newEndpoint)
		return
	}

	*groups = append(*groups, endpointGroup{
		endpoint:  endpoint,
		kind:      kind,
		index:     0,
		endpoints: []int{existingEndpoint, newEndpoint},
		toClear:   -1,
	})
}

// clusterGrower carries the scratch of one find-pairs walk.
type clusterGrower struct {
	holder  *PairHolder
	state   *State
	cluster int
}

// assign tries to add one pair to the growing cluster. Free endpoints are
// associated and remembered; endpoints that are already consistently
// associated just add the pair; conflicting endpoints open (or extend) a
// backtracking frame instead, up to MaxNumberOfGroups frames.
func (g *clusterGrower) assign(pairIndex, probeEndpoint, galleryEndpoint int) {
	state := g.state
	associatedGallery, hasGallery := state.associator.GalleryFor(probeEndpoint)
	associatedProbe, hasProbe := state.associator.ProbeFor(galleryEndpoint)

	if !hasGallery && !hasProbe {
		if !state.assigner.Has(pairIndex, g.cluster) {
			state.selectedPairs = append(state.selectedPairs, pairIndex)
			state.assigner.Assign(pairIndex, g.cluster)
		}

		state.endpoints = append(state.endpoints, probeEndpoint)
		state.associator.Associate(probeEndpoint, galleryEndpoint)
		return
	}

	if hasGallery && associatedGallery == galleryEndpoint {
		if state.assigner.Has(pairIndex, g.cluster) {
			return
		}

		state.selectedPairs = append(state.selectedPairs, pairIndex)
		state.assigner.Assign(pairIndex, g.cluster)
		// The reference checks the pair index, not the probe endpoint,
		// against the endpoint list here. Fixing the apparent typo
		// changes scores, so it stays.
		found := false
		for _, endpoint := range state.endpoints {
			if endpoint == pairIndex {
				found = true
				break
			}
		}
		if !found {
			state.endpoints = append(state.endpoints, probeEndpoint)
		}
		return
	}

	if len(state.groups) >= MaxNumberOfGroups {
		return
	}

	if hasGallery {
		associateMultipleCompatibleEndpoints(
			endpointTypeProbe, probeEndpoint,
			associatedGallery, galleryEndpoint,
			&state.groups)
	}

	if hasProbe {
		associateMultipleCompatibleEndpoints(
			endpointTypeGallery, galleryEndpoint,
			associatedProbe, probeEndpoint,
			&state.groups)
	}
}

// findPairs grows the candidate pair set of one cluster attempt starting
// from the seed pair. The walk first collects pairs sharing the seed's
// first endpoint, then repeatedly expands through every probe endpoint
// newly associated along the way, scanning by second and then by first
// endpoint from the high-water index returned by the seed scan. At the
// end all endpoints associated during the walk are released again; only
// the seed association (owned by the caller) survives.
func (g *clusterGrower) findPairs(startPair int) {
	state := g.state
	state.endpoints = state.endpoints[:0]

	start := g.holder.Pairs()[startPair]
	nextNotConnected := g.holder.FindPairsByFirstEndpoint(
		startPair,
		start.ProbeK, start.GalleryK,
		func(index, probeJ, gallery2 int) {
			g.assign(index, probeJ, gallery2)
		},
	)

	for i := 0; i < len(state.endpoints); i++ {
		probeEndpoint := state.endpoints[i]
		galleryEndpoint, _ := state.associator.GalleryFor(probeEndpoint)

		g.holder.FindPairsBySecondEndpoint(
			nextNotConnected, probeEndpoint, galleryEndpoint,
			func(index, probeK, gallery1 int) {
				// Walking back into the seed endpoint would close a cycle.
				if probeK != start.ProbeK && gallery1 != start.GalleryK {
					g.assign(index, probeK, gallery1)
				}
			},
		)

		g.holder.FindPairsByFirstEndpoint(
			nextNotConnected, probeEndpoint, galleryEndpoint,
			func(index, probeJ, gallery2 int) {
				g.assign(index, probeJ, gallery2)
			})
	}

	for _, endpoint := range state.endpoints {
		state.associator.ClearByProbe(endpoint)
	}
}

// calculateAverageDeltaTheta folds the selected pairs' rotation estimates.
func calculateAverageDeltaTheta(selectedPairs []int, pairs []Pair) int {
	var averager AngleAverager
	for _, pairIndex := range selectedPairs {
		averager.Push(pairs[pairIndex].DeltaTheta)
	}
	return averager.Average()
}

// filterSelected removes selected pairs whose rotation estimate is not
// within tolerance of the selection's average.
func filterSelected(selectedPairs []int, pairs []Pair) []int {
	average := calculateAverageDeltaTheta(selectedPairs, pairs)
	kept := selectedPairs[:0]
	for _, pairIndex := range selectedPairs {
		if anglesEqualWithTolerance(pairs[pairIndex].DeltaTheta, average) {
			kept = append(kept, pairIndex)
		}
	}
	return kept
}

// cleanupSelected marks the members of a discarded cluster attempt as
// restored so they are not reseeded.
func cleanupSelected(assigner *ClusterAssigner, selectedPairs []int) {
	for _, pairIndex := range selectedPairs {
		assigner.Restore(pairIndex)
	}
}

// calculatePoints sums the points of the selected pairs.
func calculatePoints(selectedPairs []int, pairs []Pair) int {
	total := 0
	for _, pairIndex := range selectedPairs {
		total += pairs[pairIndex].Points
	}
	return total
}

// calculateAverages builds the cluster summary used by the compatibility
// checks. Coordinate means use the first endpoint of each pair and
// truncating integer division, like the reference.
func calculateAverages(probeMinutiae, galleryMinutiae []Minutia, pairs []Pair, selectedPairs []int) ClusterAverages {
	var average ClusterAverages
	var averager AngleAverager

	for _, pairIndex := range selectedPairs {
		pair := &pairs[pairIndex]
		averager.Push(pair.DeltaTheta)

		average.ProbeX += probeMinutiae[pair.ProbeK].X
		average.ProbeY += probeMinutiae[pair.ProbeK].Y
		average.GalleryX += galleryMinutiae[pair.GalleryK].X
		average.GalleryY += galleryMinutiae[pair.GalleryK].Y
	}

	average.DeltaTheta = averager.Average()
	average.ProbeX /= len(selectedPairs)
	average.ProbeY /= len(selectedPairs)
	average.GalleryX /= len(selectedPairs)
	average.GalleryY /= len(selectedPairs)

	return average
}

// encodeEndpoints collects the minutia indices the selected pairs touch.
func encodeEndpoints(pairs []Pair, selectedPairs []int) ClusterEndpoints {
	var endpoints ClusterEndpoints
	for _, pairIndex := range selectedPairs {
		pair := &pairs[pairIndex]
		endpoints.Probe.set(pair.ProbeK)
		endpoints.Probe.set(pair.ProbeJ)
		endpoints.Gallery.set(pair.GalleryK)
		endpoints.Gallery.set(pair.GalleryJ)
	}
	return endpoints
}

// matchScore runs cluster growth over every unassigned seed pair and then
// combines the clusters into the final score.
//
// The outer loop stops one short of the last pair, mirroring the
// reference; kept for score compatibility. Each seed is retried through
// the group stack until backtracking is exhausted or the cluster budget
// is reached.
func matchScore(holder *PairHolder, state *State, probeMinutiae, galleryMinutiae []Minutia, format Format) int {
	pairs := holder.Pairs()

	for pairIndex := 0; pairIndex < len(pairs)-1; pairIndex++ {
		if _, assigned := state.assigner.Cluster(pairIndex); assigned {
			continue
		}

		probeK := pairs[pairIndex].ProbeK
		galleryK := pairs[pairIndex].GalleryK
		state.associator.Associate(probeK, galleryK)

		state.groups = state.groups[:0]
		for {
			numberOfOldGroups := len(state.groups)
			newClusterIndex := state.clusters.Len()

			state.selectedPairs = state.selectedPairs[:0]
			grower := clusterGrower{holder: holder, state: state, cluster: newClusterIndex}
			grower.findPairs(pairIndex)

			if len(state.selectedPairs) >= MinPairsPerCluster {
				state.selectedPairs = filterSelected(state.selectedPairs, pairs)
			}

			if len(state.selectedPairs) < MinPairsPerCluster {
				cleanupSelected(state.assigner, state.selectedPairs)
			} else {
				points := calculatePoints(state.selectedPairs, pairs)
				state.clusters.append(
					Cluster{
						Points:               points,
						PointsFromCompatible: points,
					},
					calculateAverages(probeMinutiae, galleryMinutiae, pairs, state.selectedPairs),
					encodeEndpoints(pairs, state.selectedPairs),
				)
			}

			if state.clusters.Len() > MaxNumberOfClusters-1 {
				break
			}

			for i := 0; i < numberOfOldGroups; i++ {
				if old := state.groups[i].toClear; old >= 0 {
					state.associator.ClearByProbe(old)
				}
			}

			if !tryAssociateAmbiguousEndpoints(state.groups, state.associator) {
				break
			}
		}

		if state.clusters.Len() > MaxNumberOfClusters-1 {
			break
		}

		state.associator.ClearByProbe(probeK)
	}

	mergeCompatibleClusters(&state.clusters, format)

	best := 0
	for i := range state.clusters.Clusters {
		if points := state.clusters.Clusters[i].PointsFromCompatible; points > best {
			best = points
		}
	}

	if best < ScoreThreshold {
		return best
	}
	return combineClusters(state.clusters.Clusters)
}
