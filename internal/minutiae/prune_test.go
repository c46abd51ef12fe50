package minutiae

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ridgeline-data/match.report/internal/bozorth3"
)

func TestPruneNormalizesAngles(t *testing.T) {
	raw := []Raw{
		{X: 0, Y: 0, T: 270, Q: 10},
		{X: 1, Y: 0, T: 180, Q: 10},
		{X: 2, Y: 0, T: -90, Q: 10},
	}
	minutiae := Prune(raw, 150)

	want := []int{-90, 180, -90}
	for i, m := range minutiae {
		if m.T != want[i] {
			t.Errorf("minutia %d angle = %d, want %d", i, m.T, want[i])
		}
	}
}

func TestPruneKeepsHighestQuality(t *testing.T) {
	raw := []Raw{
		{X: 0, Y: 0, T: 0, Q: 10},
		{X: 1, Y: 0, T: 0, Q: 90},
		{X: 2, Y: 0, T: 0, Q: 50},
		{X: 3, Y: 0, T: 0, Q: 70},
		{X: 4, Y: 0, T: 0, Q: 20},
	}
	minutiae := Prune(raw, 3)

	want := []bozorth3.Minutia{
		{X: 1, Y: 0, T: 0},
		{X: 2, Y: 0, T: 0},
		{X: 3, Y: 0, T: 0},
	}
	if diff := cmp.Diff(want, minutiae); diff != "" {
		t.Errorf("Prune mismatch (-want +got):\n%s", diff)
	}
}

func TestPruneBreaksQualityTiesByInputOrder(t *testing.T) {
	raw := []Raw{
		{X: 4, Y: 0, T: 0, Q: 50},
		{X: 3, Y: 0, T: 0, Q: 50},
		{X: 2, Y: 0, T: 0, Q: 50},
		{X: 1, Y: 0, T: 0, Q: 90},
	}
	minutiae := Prune(raw, 2)

	// Q=90 wins, then the first Q=50 entry in file order (x=4).
	want := []bozorth3.Minutia{
		{X: 1, Y: 0, T: 0},
		{X: 4, Y: 0, T: 0},
	}
	if diff := cmp.Diff(want, minutiae); diff != "" {
		t.Errorf("Prune mismatch (-want +got):\n%s", diff)
	}
}

func TestPruneSortsByXThenY(t *testing.T) {
	raw := []Raw{
		{X: 5, Y: 9, T: 0, Q: 1},
		{X: 5, Y: 2, T: 0, Q: 1},
		{X: 1, Y: 7, T: 0, Q: 1},
	}
	minutiae := Prune(raw, 150)

	want := []bozorth3.Minutia{
		{X: 1, Y: 7, T: 0},
		{X: 5, Y: 2, T: 0},
		{X: 5, Y: 9, T: 0},
	}
	if diff := cmp.Diff(want, minutiae); diff != "" {
		t.Errorf("Prune mismatch (-want +got):\n%s", diff)
	}
}

func TestPruneReversedInputIsEquivalent(t *testing.T) {
	raw := make([]Raw, 30)
	for i := range raw {
		raw[i] = Raw{X: (i * 13) % 50, Y: (i * 7) % 40, T: i*11 - 160, Q: 50}
	}

	reversed := make([]Raw, len(raw))
	for i := range raw {
		reversed[i] = raw[len(raw)-1-i]
	}

	// No pruning happens, so order is fully restored by the (x, y) sort.
	if diff := cmp.Diff(Prune(raw, 150), Prune(reversed, 150)); diff != "" {
		t.Errorf("reversed input produced a different template:\n%s", diff)
	}
}

func TestPruneDoesNotMutateInput(t *testing.T) {
	raw := []Raw{{X: 0, Y: 0, T: 270, Q: 10}}
	Prune(raw, 150)
	if raw[0].T != 270 {
		t.Errorf("input angle mutated to %d", raw[0].T)
	}
}
