package bozorth3

// areClustersCompatible decides whether two clusters can belong to one
// rigid alignment: their rotation estimates must agree, the squared
// distances between their probe and gallery centroids must match within
// the relative tolerance, and the direction of the centroid offset must
// rotate by the shared rotation estimate.
func areClustersCompatible(averages1, averages2 *ClusterAverages, format Format) bool {
	if !anglesEqualWithTolerance(averages2.DeltaTheta, averages1.DeltaTheta) {
		return false
	}

	probeDX := averages2.ProbeX - averages1.ProbeX
	probeDY := averages2.ProbeY - averages1.ProbeY
	galleryDX := averages2.GalleryX - averages1.GalleryX
	galleryDY := averages2.GalleryY - averages1.GalleryY

	probeDistanceSquared := float32(probeDX*probeDX + probeDY*probeDY)
	galleryDistanceSquared := float32(galleryDY*galleryDY + galleryDX*galleryDX)

	limit := (2 * Factor) * (probeDistanceSquared + galleryDistanceSquared)
	difference := probeDistanceSquared - galleryDistanceSquared
	if difference < 0 {
		difference = -difference
	}
	if difference > limit {
		return false
	}

	average := averageAngles(averages1.DeltaTheta, averages2.DeltaTheta)
	var slopeDifference int
	if format == FormatAnsi {
		slopeDifference = slopeInDegrees(probeDX, -probeDY) - slopeInDegrees(galleryDX, -galleryDY)
	} else {
		slopeDifference = slopeInDegrees(probeDX, probeDY) - slopeInDegrees(galleryDX, galleryDY)
	}
	return anglesEqualWithTolerance(average, normalizeAngle(slopeDifference))
}

// mergeCompatibleClusters marks, for every cluster, the later clusters it
// is compatible with. Clusters sharing a probe or gallery endpoint are
// never compatible. PointsFromCompatible becomes the cluster's own points
// plus the points of everything it accepts.
func mergeCompatibleClusters(clusters *Clusters, format Format) {
	for cluster := 0; cluster < clusters.Len(); cluster++ {
		pointsFromOthers := 0
		var compatibleClusters []int

		for otherCluster := cluster + 1; otherCluster < clusters.Len(); otherCluster++ {
			if haveCommonEndpoints(&clusters.Endpoints[cluster], &clusters.Endpoints[otherCluster]) {
				continue
			}

			if !areClustersCompatible(&clusters.Averages[cluster], &clusters.Averages[otherCluster], format) {
				continue
			}

			pointsFromOthers += clusters.Clusters[otherCluster].Points
			compatibleClusters = append(compatibleClusters, otherCluster)
		}

		clusters.Clusters[cluster].PointsFromCompatible = clusters.Clusters[cluster].Points + pointsFromOthers
		clusters.Clusters[cluster].Compatible = compatibleClusters
	}
}

// intersectSorted intersects two ascending index lists.
func intersectSorted(first, second []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(first) && j < len(second) {
		switch {
		case first[i] < second[j]:
			i++
		case first[i] > second[j]:
			j++
		default:
			out = append(out, first[i])
			i++
			j++
		}
	}
	return out
}

// combineClusters finds the best-scoring clique of mutually compatible
// clusters by explicit-stack DFS. Each frame narrows the set of clusters
// still connected to the whole path; a path whose set runs empty is a
// maximal clique and is scored as the sum of its members' points.
// Starting clusters that cannot beat the current best even with all their
// compatible points are pruned up front; dropping that prune makes large
// templates intractable.
func combineClusters(clusters []Cluster) int {
	type item struct {
		cluster   int
		index     int
		connected []int
	}

	var items []item
	bestScore := 0

	for clusterIndex := range clusters {
		if bestScore >= clusters[clusterIndex].PointsFromCompatible {
			continue
		}

		items = append(items, item{
			cluster:   clusterIndex,
			index:     0,
			connected: clusters[clusterIndex].Compatible,
		})

		for len(items) > 0 {
			last := &items[len(items)-1]
			if last.index < len(last.connected) {
				nextCluster := last.connected[last.index]
				connected := intersectSorted(last.connected, clusters[nextCluster].Compatible)
				items = append(items, item{cluster: nextCluster, index: 0, connected: connected})
			} else {
				if len(last.connected) == 0 {
					score := 0
					for i := range items {
						score += clusters[items[i].cluster].Points
					}
					if score > bestScore {
						bestScore = score
					}
				}

				items = items[:len(items)-1]
				if len(items) > 0 {
					items[len(items)-1].index++
				}
			}
		}
	}

	return bestScore
}
