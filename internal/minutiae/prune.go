package minutiae

import (
	"sort"

	"github.com/ridgeline-data/match.report/internal/bozorth3"
)

// Prune converts raw file entries into match-ready minutiae. Angles above
// 180 degrees are normalized into (-180, 180]. When the file holds more
// than maxMinutiae entries, the highest-quality ones are kept; the
// quality sort is stable, so equal-quality minutiae keep their file
// order. The survivors are sorted by (x, y) ascending — the edge builder
// depends on that order.
func Prune(raw []Raw, maxMinutiae int) []bozorth3.Minutia {
	entries := make([]Raw, len(raw))
	copy(entries, raw)
	for i := range entries {
		if entries[i].T > 180 {
			entries[i].T -= 360
		}
	}

	if len(entries) > maxMinutiae {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Q > entries[j].Q
		})
		entries = entries[:maxMinutiae]
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].X != entries[j].X {
			return entries[i].X < entries[j].X
		}
		return entries[i].Y < entries[j].Y
	})

	minutiae := make([]bozorth3.Minutia, len(entries))
	for i, entry := range entries {
		minutiae[i] = bozorth3.Minutia{X: entry.X, Y: entry.Y, T: entry.T, Kind: entry.Kind}
	}
	return minutiae
}
