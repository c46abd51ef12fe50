package bozorth3

import "sort"

// FindEdges builds the invariant edge table for one template. The minutia
// sequence must be sorted by (x, y) ascending; the x ordering lets the
// inner loop stop as soon as the horizontal distance alone exceeds
// MaxMinutiaDistance. Pairs whose orientations are exactly opposite are
// skipped, as are pairs whose squared distance exceeds
// MaxMinutiaDistanceSquared, and emission stops at MaxNumberOfEdges-1
// entries.
//
// The returned edges are stably sorted by (DistanceSquared, MinBeta,
// MaxBeta) ascending. Callers normally pass the result through LimitEdges
// before matching.
func FindEdges(minutiae []Minutia, format Format) []Edge {
	if len(minutiae) == 0 {
		return nil
	}

	edges := make([]Edge, 0, 4*len(minutiae))

scan:
	for k := 0; k < len(minutiae)-1; k++ {
		for j := k + 1; j < len(minutiae); j++ {
			if areOpposite(minutiae[k].T, minutiae[j].T) {
				continue
			}

			dx := minutiae[j].X - minutiae[k].X
			dy := minutiae[j].Y - minutiae[k].Y
			distanceSquared := dx*dx + dy*dy
			if distanceSquared > MaxMinutiaDistanceSquared {
				if dx > MaxMinutiaDistance {
					// Minutiae are x-sorted: no later j can be closer.
					break
				}
				continue
			}

			edgeDY := dy
			if format == FormatAnsi {
				edgeDY = -dy
			}
			thetaKJ := atan2RoundDegree(dx, edgeDY)
			betaK := normalizeAngle(thetaKJ - minutiae[k].T)
			betaJ := normalizeAngle(thetaKJ - minutiae[j].T + 180)

			edge := Edge{
				DistanceSquared: distanceSquared,
				EndpointK:       k,
				EndpointJ:       j,
				ThetaKJ:         thetaKJ,
			}
			if betaK < betaJ {
				edge.MinBeta = betaK
				edge.MaxBeta = betaJ
				edge.Order = OrderKJ
			} else {
				edge.MinBeta = betaJ
				edge.MaxBeta = betaK
				edge.Order = OrderJK
			}

			edges = append(edges, edge)
			if len(edges) == MaxNumberOfEdges-1 {
				break scan
			}
		}
	}

	sort.SliceStable(edges, func(i, j int) bool {
		left, right := &edges[i], &edges[j]
		if left.DistanceSquared != right.DistanceSquared {
			return left.DistanceSquared < right.DistanceSquared
		}
		if left.MinBeta != right.MinBeta {
			return left.MinBeta < right.MinBeta
		}
		return left.MaxBeta < right.MaxBeta
	})

	return edges
}

// LimitEdgesByLength returns the length of the largest prefix of the
// sorted edge slice whose last entry is within MaxMinutiaDistanceSquared.
// The search is binary and mirrors the reference bound computation.
func LimitEdgesByLength(edges []Edge) int {
	lower := 0
	upper := len(edges) + 1
	current := 1

	for upper-lower > 1 {
		midpoint := (lower + upper) / 2
		if edges[midpoint-1].DistanceSquared > MaxMinutiaDistanceSquared {
			upper = midpoint
		} else {
			lower = midpoint
			current = midpoint + 1
		}
	}

	if current > len(edges) {
		return len(edges)
	}
	return current
}

// LimitEdges truncates a sorted edge slice to the in-range prefix, but
// never below MinNumberOfEdges when that many edges exist.
func LimitEdges(edges []Edge) []Edge {
	limit := LimitEdgesByLength(edges)
	if limit < MinNumberOfEdges {
		limit = MinNumberOfEdges
		if limit > len(edges) {
			limit = len(edges)
		}
	}
	return edges[:limit]
}
