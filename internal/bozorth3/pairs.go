package bozorth3

// MatchEdgesIntoPairs joins the probe edge table against the gallery edge
// table and feeds every candidate correspondence into the holder. Both
// tables must be sorted the way FindEdges leaves them; the gallery scan
// keeps a moving start index so each probe edge only visits the gallery
// edges whose squared length is within tolerance.
//
// The outer loop stops one short of the last probe edge. The reference
// implementation does the same, and fixing the apparent off-by-one here
// would change scores.
func MatchEdgesIntoPairs(probeEdges []Edge, probeMinutiae []Minutia, galleryEdges []Edge, galleryMinutiae []Minutia, holder *PairHolder) {
	start := 0
	for k := 0; k < len(probeEdges)-1; k++ {
		probe := &probeEdges[k]

		for j := start; j < len(galleryEdges); j++ {
			gallery := &galleryEdges[j]

			dz := gallery.DistanceSquared - probe.DistanceSquared
			fi := (2 * Factor) * float32(gallery.DistanceSquared+probe.DistanceSquared)
			absDZ := dz
			if absDZ < 0 {
				absDZ = -absDZ
			}
			if float32(absDZ) > fi {
				if dz < 0 {
					// Gallery edge too short for this and all later
					// probe edges; skip it permanently.
					start = j + 1
					continue
				}
				// Gallery edges only get longer from here.
				break
			}

			if !anglesEqualWithTolerance(probe.MinBeta, gallery.MinBeta) ||
				!anglesEqualWithTolerance(probe.MaxBeta, gallery.MaxBeta) {
				continue
			}

			deltaTheta := probe.ThetaKJ - gallery.ThetaKJ
			if probe.Order != gallery.Order {
				deltaTheta -= 180
			}

			pair := Pair{
				DeltaTheta: normalizeAngle(deltaTheta),
				ProbeK:     probe.EndpointK,
				ProbeJ:     probe.EndpointJ,
				Points:     1,
			}
			if probe.Order != gallery.Order {
				pair.GalleryK = gallery.EndpointJ
				pair.GalleryJ = gallery.EndpointK
			} else {
				pair.GalleryK = gallery.EndpointK
				pair.GalleryJ = gallery.EndpointJ
			}

			probeKindK := probeMinutiae[pair.ProbeK].Kind
			probeKindJ := probeMinutiae[pair.ProbeJ].Kind
			galleryKindK := galleryMinutiae[pair.GalleryK].Kind
			galleryKindJ := galleryMinutiae[pair.GalleryJ].Kind

			if probeKindK != KindUnknown && probeKindJ != KindUnknown &&
				galleryKindK != KindUnknown && galleryKindJ != KindUnknown {
				if probeKindK == galleryKindK {
					pair.Points++
				}
				if probeKindJ == galleryKindJ {
					pair.Points++
				}
			}

			holder.Add(pair)
		}
	}
}
